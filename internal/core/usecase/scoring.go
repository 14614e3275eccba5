package usecase

import "time"

// Scoring holds the field point values and acceptance thresholds for
// both extraction paths. Thresholds are tunable here without touching
// the extraction control flow.
type Scoring struct {
	ContentOrderPoints  int
	ContentClientPoints int
	ContentEventPoints  int
	ContentDatePoints   int
	ContentThreshold    int

	FilenameOrderPoints    int
	FilenameClientPoints   int
	FilenameEventPoints    int
	FilenameDatePoints     int
	FilenameAltDatePoints  int
	FilenameRevisionBonus  int
	FilenameThreshold      int

	// MinContentLength rejects normalized content shorter than this
	// before any pattern matching runs.
	MinContentLength int
	MaxClientLength  int
	MaxEventLength   int

	// Event dates outside [MinEventDate, now + DateHorizonYears] are
	// treated as extraction noise.
	MinEventDate     time.Time
	DateHorizonYears int
}

func DefaultScoring() Scoring {
	return Scoring{
		ContentOrderPoints:  40,
		ContentClientPoints: 20,
		ContentEventPoints:  20,
		ContentDatePoints:   20,
		ContentThreshold:    60,

		FilenameOrderPoints:   30,
		FilenameClientPoints:  20,
		FilenameEventPoints:   20,
		FilenameDatePoints:    30,
		FilenameAltDatePoints: 20,
		FilenameRevisionBonus: 5,
		FilenameThreshold:     50,

		MinContentLength: 50,
		MaxClientLength:  100,
		MaxEventLength:   200,

		MinEventDate:     time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		DateHorizonYears: 5,
	}
}

func (s Scoring) dateInRange(t, now time.Time) bool {
	if t.Before(s.MinEventDate) {
		return false
	}
	return !t.After(now.AddDate(s.DateHorizonYears, 0, 0))
}

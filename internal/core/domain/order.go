package domain

import "time"

// MissingText marks a client or event field that could not be extracted
// from either source.
const MissingText = "N/A"

// DateOrigin tags where an event date came from, replacing the legacy
// 1900/1990 sentinel dates with an explicit source marker.
type DateOrigin string

const (
	DateFromContent  DateOrigin = "content"
	DateFromFilename DateOrigin = "filename"
	// DatePartial marks a content extraction that found the order number
	// but not a usable date.
	DatePartial DateOrigin = "partial"
	DateMissing DateOrigin = "missing"
)

// ExtractedRecord is the transient result of one extraction path
// (document content or filename) before cross-validation.
type ExtractedRecord struct {
	OrderNumber string
	Client      string
	Event       string
	EventDate   *time.Time
	DateOrigin  DateOrigin
	IsRevision  bool
}

// ValidationOutcome carries the confidence score and diagnostics of one
// extraction path. Record is nil when extraction failed outright; an
// invalid outcome may still carry an incomplete record when only the
// order number was recovered.
type ValidationOutcome struct {
	Valid    bool
	Score    int
	Errors   []string
	Warnings []string
	Record   *ExtractedRecord
}

// ServiceOrder is the persisted, versioned record of one indexed
// service order document.
type ServiceOrder struct {
	ID                string     `json:"id"`
	OrderNumber       string     `json:"order_number"`
	Version           int        `json:"version"`
	Client            string     `json:"client"`
	Event             string     `json:"event"`
	EventDate         *time.Time `json:"event_date,omitempty"`
	IsRevision        bool       `json:"is_revision"`
	FilePath          string     `json:"file_path"`
	RelativePath      string     `json:"relative_path"`
	FileName          string     `json:"file_name"`
	ContentHash       string     `json:"content_hash"`
	IsActive          bool       `json:"is_active"`
	PreviousVersionID *string    `json:"previous_version_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ScanSummary aggregates the outcome of one indexing pass.
type ScanSummary struct {
	NewFiles       int `json:"new_files"`
	AlreadyIndexed int `json:"already_indexed"`
	Errors         int `json:"errors"`
}

package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eventops/os-indexer/internal/core/domain"
)

func TestIndexerMetricsExposition(t *testing.T) {
	m := NewIndexerMetrics("indexer")

	m.PassStarted()
	m.PassFinished(domain.ScanSummary{NewFiles: 3, AlreadyIndexed: 10, Errors: 1}, 2*time.Second, nil)
	m.PassStarted()
	m.PassFinished(domain.ScanSummary{}, time.Second, errors.New("root unreadable"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`osi_indexer_scans_total{service="indexer",status="ok"} 1`,
		`osi_indexer_scans_total{service="indexer",status="error"} 1`,
		`osi_indexer_files_total{disposition="indexed",service="indexer"} 3`,
		`osi_indexer_files_total{disposition="already_indexed",service="indexer"} 10`,
		`osi_indexer_files_total{disposition="errors",service="indexer"} 1`,
		`osi_indexer_scan_in_flight{service="indexer"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRun(t *testing.T) {
	runsBefore := testutil.ToFloat64(ScrapeRuns.WithLabelValues("manual", "success"))
	addedBefore := testutil.ToFloat64(EventsReconciled.WithLabelValues("added"))
	degradedBefore := testutil.ToFloat64(DetailPagesDegraded)

	finished := time.Unix(1764000000, 0)
	RecordRun("manual", "success", 3, 2, 1, 4, 2*time.Second, finished)

	assert.Equal(t, runsBefore+1, testutil.ToFloat64(ScrapeRuns.WithLabelValues("manual", "success")))
	assert.Equal(t, addedBefore+3, testutil.ToFloat64(EventsReconciled.WithLabelValues("added")))
	assert.Equal(t, degradedBefore+4, testutil.ToFloat64(DetailPagesDegraded))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(LastSuccessfulScrape))
}

func TestRecordRun_FailureKeepsLastSuccess(t *testing.T) {
	RecordRun("scheduled", "success", 0, 0, 0, 0, time.Second, time.Unix(1764000100, 0))
	RecordRun("scheduled", "fetch_error", 0, 0, 0, 0, time.Second, time.Unix(1764000200, 0))

	assert.Equal(t, float64(1764000100), testutil.ToFloat64(LastSuccessfulScrape))
}

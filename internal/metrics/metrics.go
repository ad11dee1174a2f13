package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScrapeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csevents_scrape_runs_total",
		Help: "Scrape pipeline runs, labelled by trigger and outcome.",
	}, []string{"trigger", "status"})

	EventsReconciled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csevents_events_reconciled_total",
		Help: "Events written by the reconciler, labelled added, updated or error.",
	}, []string{"result"})

	DetailPagesDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csevents_detail_pages_degraded_total",
		Help: "Stubs stored without detail page enrichment.",
	})

	ScrapeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "csevents_scrape_duration_seconds",
		Help:    "Wall time of a full scrape run.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	LastSuccessfulScrape = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "csevents_last_successful_scrape_timestamp_seconds",
		Help: "Unix time of the last run that committed.",
	})
)

// RecordRun updates every run-level series for one finished run.
func RecordRun(trigger, status string, added, updated, failed, degraded int, elapsed time.Duration, finished time.Time) {
	ScrapeRuns.WithLabelValues(trigger, status).Inc()
	ScrapeDuration.Observe(elapsed.Seconds())
	EventsReconciled.WithLabelValues("added").Add(float64(added))
	EventsReconciled.WithLabelValues("updated").Add(float64(updated))
	EventsReconciled.WithLabelValues("error").Add(float64(failed))
	DetailPagesDegraded.Add(float64(degraded))
	if status == "success" {
		LastSuccessfulScrape.Set(float64(finished.Unix()))
	}
}

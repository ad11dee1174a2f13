package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"ms-csevents/internal/csevents/csevents_api"
	"ms-csevents/internal/csevents/service"
	"ms-csevents/internal/models"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteReport prints a finished run and the number of events now stored. The
// JSON form is the body POST /scrape returns.
func WriteReport(w io.Writer, report *service.RunReport, stored int, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, csevents_api.NewScrapeResponse(report))
	case FormatText:
		fmt.Fprintf(w, "Scraping completed (run %s)\n", report.RunID)
		fmt.Fprintf(w, "  added:    %d\n", report.Added)
		fmt.Fprintf(w, "  updated:  %d\n", report.Updated)
		fmt.Fprintf(w, "  total:    %d\n", report.Total)
		fmt.Fprintf(w, "  degraded: %d\n", report.Degraded)
		fmt.Fprintf(w, "  errors:   %d\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(w, "    - %s\n", e)
		}
		fmt.Fprintf(w, "Stored events: %d\n", stored)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteEvents prints the stubs found by a dry run.
func WriteEvents(w io.Writer, events []models.ScrapedEvent, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if events == nil {
			events = []models.ScrapedEvent{}
		}
		return writeJSON(w, events)
	case FormatText:
		if len(events) == 0 {
			fmt.Fprintln(w, "No events found.")
			return nil
		}
		fmt.Fprintf(w, "%d events found:\n", len(events))
		for _, e := range events {
			when := "(no date)"
			if e.HasDate() {
				when = e.EventDate.Format("2006-01-02")
			}
			if e.EventTime != "" {
				when += " " + e.EventTime
			}
			fmt.Fprintf(w, "  %-16s  %s\n", when, e.Title)
			if e.EventURL != "" {
				fmt.Fprintf(w, "  %-16s  %s\n", "", e.EventURL)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

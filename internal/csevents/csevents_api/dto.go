package csevents_api

import (
	"time"

	"ms-csevents/internal/csevents/service"
	"ms-csevents/internal/models"
)

// EventResponse is the public shape of a stored event. Absent optional
// fields are serialized as null.
type EventResponse struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Description      *string `json:"description"`
	Abstract         *string `json:"abstract"`
	EventDate        *string `json:"event_date"`
	EventTime        *string `json:"event_time"`
	Location         *string `json:"location"`
	EventURL         *string `json:"event_url"`
	Presenter        *string `json:"presenter"`
	WorkshopOutline  *string `json:"workshop_outline"`
	Prerequisites    *string `json:"prerequisites"`
	Biography        *string `json:"biography"`
	RegistrationLink *string `json:"registration_link"`
	ScrapedAt        string  `json:"scraped_at"`
	LastUpdated      string  `json:"last_updated"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func NewEventResponse(e models.CSEvent) EventResponse {
	resp := EventResponse{
		ID:               e.ID,
		Title:            e.Title,
		Description:      optional(e.Description),
		Abstract:         optional(e.Abstract),
		EventTime:        optional(e.EventTime),
		Location:         optional(e.Location),
		EventURL:         optional(e.EventURL),
		Presenter:        optional(e.Presenter),
		WorkshopOutline:  optional(e.WorkshopOutline),
		Prerequisites:    optional(e.Prerequisites),
		Biography:        optional(e.Biography),
		RegistrationLink: optional(e.RegistrationLink),
		ScrapedAt:        e.ScrapedAt.UTC().Format(time.RFC3339),
		LastUpdated:      e.LastUpdated.UTC().Format(time.RFC3339),
	}
	if e.HasDate() {
		resp.EventDate = optional(e.EventDate.Format("2006-01-02"))
	}
	return resp
}

func NewEventListResponse(events []models.CSEvent) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, NewEventResponse(e))
	}
	return out
}

// ScrapeResponse is returned by a successful manual run. Errors is always an
// array, empty when nothing failed.
type ScrapeResponse struct {
	Message  string   `json:"message"`
	RunID    string   `json:"run_id"`
	Added    int      `json:"added"`
	Updated  int      `json:"updated"`
	Total    int      `json:"total"`
	Degraded int      `json:"degraded"`
	Errors   []string `json:"errors"`
}

func NewScrapeResponse(r *service.RunReport) ScrapeResponse {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return ScrapeResponse{
		Message:  "Scraping completed",
		RunID:    r.RunID,
		Added:    r.Added,
		Updated:  r.Updated,
		Total:    r.Total,
		Degraded: r.Degraded,
		Errors:   errs,
	}
}

package models

import (
	"fmt"
	"time"
)

// Sections of the calendar index page a stub can come from.
const (
	SourceToday    = "today"
	SourceList     = "events"
	SourceCalendar = "calendar"
)

// ScrapedEvent is an event read from the upstream calendar. It starts as a
// stub from the index page and may be enriched from its detail page. Empty
// strings and a zero EventDate mean the field was not found.
type ScrapedEvent struct {
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Abstract         string    `json:"abstract,omitempty"`
	EventDate        time.Time `json:"event_date,omitzero"`
	EventTime        string    `json:"event_time,omitempty"`
	Location         string    `json:"location,omitempty"`
	EventURL         string    `json:"event_url,omitempty"`
	Presenter        string    `json:"presenter,omitempty"`
	WorkshopOutline  string    `json:"workshop_outline,omitempty"`
	Prerequisites    string    `json:"prerequisites,omitempty"`
	Biography        string    `json:"biography,omitempty"`
	RegistrationLink string    `json:"registration_link,omitempty"`
	Source           string    `json:"source,omitempty"`
	RawText          string    `json:"-"`
}

func (e ScrapedEvent) HasDate() bool {
	return !e.EventDate.IsZero()
}

func (e ScrapedEvent) Key() MatchKey {
	return NewMatchKey(e.Title, e.EventDate, e.EventURL)
}

// RawData is what gets persisted alongside the event for reprocessing.
func (e ScrapedEvent) RawData() map[string]string {
	raw := map[string]string{"text": e.RawText}
	if e.Source != "" {
		raw["source"] = e.Source
	}
	return raw
}

// MatchKey is the natural identity of an event: (title, date) when the date
// is known, otherwise (title, url).
type MatchKey struct {
	Title string
	Date  time.Time
	URL   string
}

func NewMatchKey(title string, date time.Time, url string) MatchKey {
	if !date.IsZero() {
		return MatchKey{Title: title, Date: date}
	}
	return MatchKey{Title: title, URL: url}
}

func (k MatchKey) ByDate() bool {
	return !k.Date.IsZero()
}

func (k MatchKey) String() string {
	if k.ByDate() {
		return fmt.Sprintf("%s@%s", k.Title, k.Date.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s@%s", k.Title, k.URL)
}

// DateOnly builds UTC midnight of a calendar day and reports false when the
// day does not exist (e.g. February 30).
func DateOnly(year int, month time.Month, day int) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

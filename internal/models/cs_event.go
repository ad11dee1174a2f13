package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CSEvent is a computer science calendar event cached from the upstream site.
type CSEvent struct {
	bun.BaseModel `bun:"table:cs_events,alias:cse"`

	ID               int64             `bun:"id,pk,autoincrement"`
	Title            string            `bun:"title,notnull"`
	Description      string            `bun:"description,nullzero"`
	Abstract         string            `bun:"abstract,nullzero"`
	EventDate        time.Time         `bun:"event_date,nullzero"`
	EventTime        string            `bun:"event_time,nullzero"`
	Location         string            `bun:"location,nullzero"`
	EventURL         string            `bun:"event_url,nullzero"`
	Presenter        string            `bun:"presenter,nullzero"`
	WorkshopOutline  string            `bun:"workshop_outline,nullzero"`
	Prerequisites    string            `bun:"prerequisites,nullzero"`
	Biography        string            `bun:"biography,nullzero"`
	RegistrationLink string            `bun:"registration_link,nullzero"`
	RawData          map[string]string `bun:"raw_data"`
	ScrapedAt        time.Time         `bun:"scraped_at,notnull"`
	LastUpdated      time.Time         `bun:"last_updated,notnull"`
}

func (e *CSEvent) HasDate() bool {
	return !e.EventDate.IsZero()
}

package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-csevents/internal/models"
)

const testOrigin = "https://www.uwindsor.ca"

const indexPage = `<html><body>
<h2>Today's CS Events</h2>
<ul>
  <li><a href="/science/computerscience/event/1">Thesis Defense: Graph Learning</a>
      Wednesday, 11/26/2025 - 2:30pm by: Jane Doe 123 Erie Hall</li>
  <li>No link in this item</li>
</ul>
<h2>CS Events</h2>
<ul>
  <li><a href="/science/computerscience/event/1">Thesis Defense: Graph Learning (repeat)</a></li>
  <li><a href="https://www.uwindsor.ca/science/computerscience/event/2">Workshop on Rust</a>
      Friday, 11/28/2025 - 10:00am</li>
  <li><a href="/science/computerscience/event/3">Colloquium</a> Monday, 2/30/2025</li>
</ul>
<table><tr>
  <td><a href="/calendar">Prev</a></td>
  <td><a href="/science/computerscience/event/4">Distinguished Lecture on Systems</a> by: John Roe</td>
  <td><a href="/science/computerscience/event/2">Workshop on Rust again</a></td>
</tr></table>
</body></html>`

func newTestParser(t *testing.T) *ListParser {
	t.Helper()
	p, err := NewListParser(testOrigin, "Today's CS Events", "CS Events", nil)
	require.NoError(t, err)
	return p
}

func TestListParser_Parse(t *testing.T) {
	events, err := newTestParser(t).Parse([]byte(indexPage))
	require.NoError(t, err)
	require.Len(t, events, 4)

	first := events[0]
	assert.Equal(t, "Thesis Defense: Graph Learning", first.Title)
	assert.Equal(t, testOrigin+"/science/computerscience/event/1", first.EventURL)
	assert.Equal(t, time.Date(2025, 11, 26, 0, 0, 0, 0, time.UTC), first.EventDate)
	assert.Equal(t, "14:30", first.EventTime)
	assert.Equal(t, "Jane Doe", first.Presenter)
	assert.Equal(t, models.SourceToday, first.Source)
	assert.Contains(t, first.RawText, "Wednesday, 11/26/2025")

	second := events[1]
	assert.Equal(t, "Workshop on Rust", second.Title)
	assert.Equal(t, "10:00", second.EventTime)
	assert.Equal(t, models.SourceList, second.Source)
	assert.Empty(t, second.Presenter)

	third := events[2]
	assert.Equal(t, "Colloquium", third.Title)
	assert.False(t, third.HasDate(), "February 30 is not a date")

	fourth := events[3]
	assert.Equal(t, "Distinguished Lecture on Systems", fourth.Title)
	assert.Equal(t, models.SourceCalendar, fourth.Source)
	assert.Equal(t, "John Roe", fourth.Presenter)
}

func TestListParser_FirstOccurrenceWins(t *testing.T) {
	events, err := newTestParser(t).Parse([]byte(indexPage))
	require.NoError(t, err)

	seen := map[string]int{}
	for _, e := range events {
		seen[e.EventURL]++
	}
	for url, n := range seen {
		assert.Equal(t, 1, n, url)
	}
	assert.Equal(t, "Thesis Defense: Graph Learning", events[0].Title)
}

func TestListParser_ShortCalendarLinksIgnored(t *testing.T) {
	page := `<table><tr><td><a href="/a">Next month</a></td><td><a href="/b">Eleven char</a></td></tr></table>`

	events, err := newTestParser(t).Parse([]byte(page))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Eleven char", events[0].Title)
}

func TestListParser_MissingSections(t *testing.T) {
	events, err := newTestParser(t).Parse([]byte(`<html><body><p>Nothing scheduled</p></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestListParser_CurlyApostropheHeading(t *testing.T) {
	page := `<h2>Today’s CS Events</h2><ul><li><a href="/e/9">Reading Group</a></li></ul>`

	events, err := newTestParser(t).Parse([]byte(page))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.SourceToday, events[0].Source)
}

func TestListParser_TwentyFourHourTime(t *testing.T) {
	page := `<h2>CS Events</h2><ul><li><a href="/e/1">Late Talk</a> Thursday, 1/8/2026 - 18:45</li></ul>`

	events, err := newTestParser(t).Parse([]byte(page))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "18:45", events[0].EventTime)
}

func TestListParser_TimeRangeSuffix(t *testing.T) {
	tests := []struct {
		when string
		want string
	}{
		{"1:30 - 3:00pm", "13:30"},
		{"11:30 - 1:00pm", "11:30"},
		{"11:00 – 12:00pm", "11:00"},
		{"10:00 - 11:30am", "10:00"},
		{"2:00pm - 4:00pm", "14:00"},
		{"9:00am", "09:00"},
	}

	for _, tt := range tests {
		t.Run(tt.when, func(t *testing.T) {
			page := `<h2>CS Events</h2><ul><li><a href="/e/1">Workshop</a> Monday, 2/2/2026 - ` + tt.when + `</li></ul>`
			events, err := newTestParser(t).Parse([]byte(page))
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, tt.want, events[0].EventTime)
		})
	}
}

func TestNewListParser_InvalidOrigin(t *testing.T) {
	_, err := NewListParser("not a url", "a", "b", nil)
	assert.Error(t, err)
}

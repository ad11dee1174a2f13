package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-csevents/internal/models"
)

const detailPage = `<html><body>
<h1>Thesis Defense: Learning on Graphs</h1>
<p>Wednesday, November 26, 2025</p>
<p>Time: 2.30 pm</p>
<p><strong>Location:</strong> Erie Hall 3123</p>
<p>Presenter: Jane Doe</p>
<p><strong>Abstract:</strong></p>
<p>Graphs are everywhere.</p>
<h3>Workshop Outline:</h3>
<ul><li>Intro</li><li>Hands on</li></ul>
<p>prerequisites:</p>
<div>Basic Python</div>
<p>Biography:</p>
<p>Jane is a PhD candidate.</p>
<a href="/about">About us</a>
<a href="/forms/event-registration">Sign up</a>
<a href="https://example.com/register">Register</a>
</body></html>`

type stubFetcher struct {
	pages map[string]string
	err   error
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, &FetchError{URL: url, StatusCode: 404}
	}
	return []byte(page), nil
}

func newTestEnricher(t *testing.T, f PageFetcher) *Enricher {
	t.Helper()
	e, err := NewEnricher(f, testOrigin, nil)
	require.NoError(t, err)
	return e
}

func TestEnricher_ParseDetail(t *testing.T) {
	stub := models.ScrapedEvent{
		Title:     "Thesis Defense",
		EventURL:  testOrigin + "/event/1",
		Presenter: "J. Doe",
		RawText:   "stub text",
	}

	got, err := newTestEnricher(t, &stubFetcher{}).ParseDetail([]byte(detailPage), stub)
	require.NoError(t, err)

	assert.Equal(t, "Thesis Defense: Learning on Graphs", got.Title)
	assert.Equal(t, time.Date(2025, 11, 26, 0, 0, 0, 0, time.UTC), got.EventDate)
	assert.Equal(t, "14:30", got.EventTime)
	assert.Equal(t, "Erie Hall 3123", got.Location)
	assert.Equal(t, "Jane Doe", got.Presenter)
	assert.Equal(t, "Graphs are everywhere.", got.Abstract)
	assert.Equal(t, "Intro\nHands on", got.WorkshopOutline)
	assert.Equal(t, "Basic Python", got.Prerequisites)
	assert.Equal(t, "Jane is a PhD candidate.", got.Biography)
	assert.Equal(t, testOrigin+"/forms/event-registration", got.RegistrationLink)
	assert.Equal(t, stub.EventURL, got.EventURL)
	assert.Equal(t, "stub text", got.RawText)
}

func TestEnricher_MissingBiographyLeavesOtherFields(t *testing.T) {
	page := `<h1>Talk</h1><p>Location: Lambton Tower</p><p>Abstract:</p><p>Short.</p>`

	got, err := newTestEnricher(t, &stubFetcher{}).ParseDetail([]byte(page), models.ScrapedEvent{Title: "Talk"})
	require.NoError(t, err)

	assert.Empty(t, got.Biography)
	assert.Equal(t, "Lambton Tower", got.Location)
	assert.Equal(t, "Short.", got.Abstract)
}

func TestEnricher_BadMonthKeepsStubDate(t *testing.T) {
	stubDate := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	page := `<p>Tuesday, Marchember 4, 2025</p>`

	got, err := newTestEnricher(t, &stubFetcher{}).ParseDetail([]byte(page), models.ScrapedEvent{Title: "x", EventDate: stubDate})
	require.NoError(t, err)
	assert.Equal(t, stubDate, got.EventDate)
}

func TestEnricher_OutOfRangeDayIgnored(t *testing.T) {
	page := `<p>Monday, February 31, 2025</p>`

	got, err := newTestEnricher(t, &stubFetcher{}).ParseDetail([]byte(page), models.ScrapedEvent{Title: "x"})
	require.NoError(t, err)
	assert.False(t, got.HasDate())
}

func TestEnricher_Enrich(t *testing.T) {
	url := testOrigin + "/event/1"
	f := &stubFetcher{pages: map[string]string{url: detailPage}}

	got, degraded := newTestEnricher(t, f).Enrich(context.Background(), models.ScrapedEvent{Title: "stub", EventURL: url})
	assert.False(t, degraded)
	assert.Equal(t, "Erie Hall 3123", got.Location)
	assert.Equal(t, []string{url}, f.calls)
}

func TestEnricher_FetchFailureReturnsStub(t *testing.T) {
	stub := models.ScrapedEvent{Title: "stub", EventURL: testOrigin + "/event/1", Presenter: "someone"}
	f := &stubFetcher{err: errors.New("connection refused")}

	got, degraded := newTestEnricher(t, f).Enrich(context.Background(), stub)
	assert.True(t, degraded)
	assert.Equal(t, stub, got)
}

func TestEnricher_NoURLSkipsFetch(t *testing.T) {
	f := &stubFetcher{}

	got, degraded := newTestEnricher(t, f).Enrich(context.Background(), models.ScrapedEvent{Title: "stub"})
	assert.False(t, degraded)
	assert.Equal(t, "stub", got.Title)
	assert.Empty(t, f.calls)
}

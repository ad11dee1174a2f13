package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ms-csevents/internal/logger"
	"ms-csevents/internal/models"
)

var (
	detailDatePattern      = regexp.MustCompile(`(?i)\b(\w+day),\s+(\w+)\s+(\d{1,2}),\s+(\d{4})`)
	detailTimePattern      = regexp.MustCompile(`(?i)Time:\s*(\d{1,2})[.:](\d{2})\s*(am|pm)`)
	detailLocationPattern  = regexp.MustCompile(`Location:\s*([^\n]+)`)
	detailPresenterPattern = regexp.MustCompile(`Presenter:\s*([^\n]+)`)
	registrationPattern    = regexp.MustCompile(`(?i)registration|register`)
)

// sectionLabels maps a label to the field filled by the element after it.
var sectionLabels = []struct {
	pattern *regexp.Regexp
	set     func(*models.ScrapedEvent, string)
}{
	{regexp.MustCompile(`(?i)Abstract:`), func(e *models.ScrapedEvent, v string) { e.Abstract = v }},
	{regexp.MustCompile(`(?i)Workshop Outline:`), func(e *models.ScrapedEvent, v string) { e.WorkshopOutline = v }},
	{regexp.MustCompile(`(?i)Prerequisites:`), func(e *models.ScrapedEvent, v string) { e.Prerequisites = v }},
	{regexp.MustCompile(`(?i)Biography:`), func(e *models.ScrapedEvent, v string) { e.Biography = v }},
}

// PageFetcher is the part of Fetcher the enricher needs.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Enricher overlays fields from an event's detail page onto its stub.
type Enricher struct {
	fetcher PageFetcher
	origin  *url.URL
	logger  *logger.Logger
}

func NewEnricher(fetcher PageFetcher, origin string, log *logger.Logger) (*Enricher, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid site origin %q", origin)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Enricher{fetcher: fetcher, origin: u, logger: log}, nil
}

// Enrich fetches the stub's detail page. On any failure the stub comes back
// unchanged and degraded is true.
func (e *Enricher) Enrich(ctx context.Context, stub models.ScrapedEvent) (event models.ScrapedEvent, degraded bool) {
	if stub.EventURL == "" {
		return stub, false
	}

	body, err := e.fetcher.Fetch(ctx, stub.EventURL)
	if err != nil {
		e.logger.Warn("SCRAPER", fmt.Sprintf("Detail page unavailable for '%s': %v", stub.Title, err))
		return stub, true
	}

	enriched, err := e.ParseDetail(body, stub)
	if err != nil {
		e.logger.Warn("SCRAPER", fmt.Sprintf("Detail page unreadable for '%s': %v", stub.Title, err))
		return stub, true
	}
	return enriched, false
}

// ParseDetail applies every extraction rule independently. A rule that does
// not match leaves the stub's value in place.
func (e *Enricher) ParseDetail(body []byte, stub models.ScrapedEvent) (models.ScrapedEvent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return stub, fmt.Errorf("parsing detail page: %w", err)
	}

	event := stub
	root := doc.Get(0)
	text := visibleText(root)

	if h1 := cleanText(doc.Find("h1").First().Text()); h1 != "" {
		event.Title = h1
	}

	if m := detailDatePattern.FindStringSubmatch(text); m != nil {
		if d, ok := parseLongDate(m[2], m[3], m[4]); ok {
			event.EventDate = d
		} else {
			e.logger.Debug("SCRAPER", fmt.Sprintf("Ignoring unparsable date %q on %s", m[0], stub.EventURL))
		}
	}

	if m := detailTimePattern.FindStringSubmatch(text); m != nil {
		if t, ok := to24Hour(m[1], m[2], m[3]); ok {
			event.EventTime = t
		}
	}

	if m := detailLocationPattern.FindStringSubmatch(text); m != nil {
		event.Location = cleanText(m[1])
	}
	if m := detailPresenterPattern.FindStringSubmatch(text); m != nil {
		event.Presenter = cleanText(m[1])
	}

	for _, label := range sectionLabels {
		node := findText(root, label.pattern.MatchString)
		if node == nil {
			continue
		}
		next := nextElement(node, "")
		if next == nil {
			continue
		}
		if v := visibleText(next); v != "" {
			label.set(&event, v)
		}
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !registrationPattern.MatchString(href) && !registrationPattern.MatchString(a.Text()) {
			return true
		}
		if link := resolveURL(e.origin, href); link != "" {
			event.RegistrationLink = link
			return false
		}
		return true
	})

	if event.RawText == "" {
		event.RawText = text
	}
	return event, nil
}

// parseLongDate reads "November 26, 2025" style parts into a calendar day.
func parseLongDate(monthName, dayText, yearText string) (time.Time, bool) {
	month, ok := monthFromName(monthName)
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return time.Time{}, false
	}
	return models.DateOnly(year, month, day)
}

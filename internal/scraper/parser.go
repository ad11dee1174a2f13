package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"ms-csevents/internal/logger"
	"ms-csevents/internal/models"
)

// minCalendarLinkText filters navigation chrome out of calendar tables.
const minCalendarLinkText = 10

var (
	listDatePattern  = regexp.MustCompile(`(\w+),\s*(\d{1,2})/(\d{1,2})/(\d{4})`)
	listTimePattern  = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?(?:\s*[-–]\s*(\d{1,2}):\d{2}\s*(am|pm))?\b`)
	presenterPattern = regexp.MustCompile(`(?i)by:[ \t]*([^0-9\n]+?)[ \t]*(?:\d|\n|$)`)
)

// ListParser turns the calendar index page into event stubs.
type ListParser struct {
	origin       *url.URL
	todayHeading string
	listHeading  string
	logger       *logger.Logger
}

func NewListParser(origin, todayHeading, listHeading string, log *logger.Logger) (*ListParser, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid site origin %q", origin)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ListParser{
		origin:       u,
		todayHeading: todayHeading,
		listHeading:  listHeading,
		logger:       log,
	}, nil
}

// Parse returns the stubs of the today section, then the list section, then
// any calendar table, deduplicated by URL with the first occurrence kept.
func (p *ListParser) Parse(body []byte) ([]models.ScrapedEvent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing calendar page: %w", err)
	}

	var events []models.ScrapedEvent
	seen := make(map[string]bool)
	add := func(e models.ScrapedEvent) {
		if seen[e.EventURL] {
			return
		}
		seen[e.EventURL] = true
		events = append(events, e)
	}

	sections := []struct {
		heading string
		source  string
	}{
		{p.todayHeading, models.SourceToday},
		{p.listHeading, models.SourceList},
	}
	for _, section := range sections {
		list := p.sectionList(doc, section.heading)
		if list == nil {
			p.logger.Debug("SCRAPER", fmt.Sprintf("No list found under heading %q", section.heading))
			continue
		}
		doc.FindNodes(list).ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			if e, ok := p.parseItem(li.Find("a[href]").First(), li, section.source); ok {
				add(e)
			}
		})
	}

	doc.Find("table td, table th").Each(func(_ int, cell *goquery.Selection) {
		cell.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			if utf8.RuneCountInString(cleanText(a.Text())) <= minCalendarLinkText {
				return
			}
			if e, ok := p.parseItem(a, cell, models.SourceCalendar); ok {
				add(e)
			}
		})
	})

	return events, nil
}

// sectionList finds the heading whose text is exactly heading and returns the
// first list after it in document order.
func (p *ListParser) sectionList(doc *goquery.Document, heading string) *html.Node {
	if heading == "" {
		return nil
	}
	var list *html.Node
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if normalizeHeading(h.Text()) != normalizeHeading(heading) {
			return true
		}
		list = nextElement(h.Get(0), "ul")
		return false
	})
	return list
}

// normalizeHeading folds typographic apostrophes so "Today’s" matches "Today's".
func normalizeHeading(s string) string {
	return strings.ReplaceAll(cleanText(s), "\u2019", "'")
}

// parseItem reads one stub from a link and the block of text around it.
// Fields that do not match stay empty.
func (p *ListParser) parseItem(link, block *goquery.Selection, source string) (models.ScrapedEvent, bool) {
	if link.Length() == 0 {
		return models.ScrapedEvent{}, false
	}
	href, _ := link.Attr("href")
	eventURL := resolveURL(p.origin, href)
	title := cleanText(link.Text())
	if eventURL == "" || title == "" {
		return models.ScrapedEvent{}, false
	}

	text := visibleText(block.Get(0))
	e := models.ScrapedEvent{
		Title:       title,
		Description: text,
		EventURL:    eventURL,
		Source:      source,
		RawText:     text,
	}

	if m := listDatePattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		year, _ := strconv.Atoi(m[4])
		if d, ok := models.DateOnly(year, time.Month(month), day); ok {
			e.EventDate = d
		}
	}
	if m := listTimePattern.FindStringSubmatch(text); m != nil {
		suffix := m[3]
		if suffix == "" && m[5] != "" {
			suffix = rangeStartSuffix(m[1], m[4], m[5])
		}
		if t, ok := to24Hour(m[1], m[2], suffix); ok {
			e.EventTime = t
		}
	}
	if m := presenterPattern.FindStringSubmatch(text); m != nil {
		e.Presenter = strings.Trim(m[1], " ,;-|")
	}

	return e, true
}

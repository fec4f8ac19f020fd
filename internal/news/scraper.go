package news

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"fx-signal-bot/internal/logger"
)

// Page is the calendar page reduced to what the risk rules read.
type Page struct {
	Text string
	// Impacts counts calendar rows by impact class ("high", "medium", "low").
	Impacts map[string]int
	// Events holds the titles of high impact calendar rows.
	Events []string
}

// Scraper fetches the economic calendar page.
type Scraper struct {
	url     string
	timeout time.Duration
}

func NewScraper(url string, timeout time.Duration) *Scraper {
	return &Scraper{url: url, timeout: timeout}
}

// Fetch visits the calendar page once and parses it.
func (s *Scraper) Fetch(ctx context.Context) (*Page, error) {
	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	var (
		page    *Page
		parseEr error
	)
	c.OnResponse(func(r *colly.Response) {
		page, parseEr = parsePage(r.Body)
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(s.url); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", s.url, err)
	}
	c.Wait()

	if visitErr != nil {
		return nil, visitErr
	}
	if parseEr != nil {
		return nil, parseEr
	}
	if page == nil {
		return nil, fmt.Errorf("no response from %s", s.url)
	}
	logger.Debug(ctx, "Calendar page fetched", "url", s.url, "bytes", len(page.Text), "high_impact_rows", page.Impacts["high"])
	return page, nil
}

func parsePage(body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing calendar html: %w", err)
	}

	p := &Page{Text: doc.Text(), Impacts: map[string]int{}}
	doc.Find("tr.calendar__row").Each(func(_ int, row *goquery.Selection) {
		impact := rowImpact(row)
		if impact == "" {
			return
		}
		p.Impacts[impact]++
		if impact == "high" {
			if title := strings.TrimSpace(row.Find(".calendar__event-title").Text()); title != "" {
				p.Events = append(p.Events, title)
			}
		}
	})
	return p, nil
}

// rowImpact reads the impact icon colour of a calendar row.
func rowImpact(row *goquery.Selection) string {
	icon := row.Find(".calendar__impact span")
	switch {
	case icon.HasClass("icon--ff-impact-red"):
		return "high"
	case icon.HasClass("icon--ff-impact-ora"):
		return "medium"
	case icon.HasClass("icon--ff-impact-yel"):
		return "low"
	}
	return ""
}

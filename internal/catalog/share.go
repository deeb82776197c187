package catalog

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"eatdecider/backend/internal/domain"
)

const (
	shareUserAgent   = "Mozilla/5.0 (compatible; EatDeciderBot/1.0)"
	maxSharePageSize = 2 << 20
)

var (
	priceRx = regexp.MustCompile(`(?:₹|INR\s*)(\d+[\d,]*)`)
	titleRx = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	tagRx   = regexp.MustCompile(`(?s)<[^>]*>`)
)

// ShareImporter turns a food-delivery share link into a catalog item.
type ShareImporter struct {
	client *http.Client
}

func NewShareImporter(timeout time.Duration) *ShareImporter {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &ShareImporter{client: &http.Client{Timeout: timeout}}
}

func (s *ShareImporter) Import(ctx context.Context, rawURL string) (domain.MenuItem, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return domain.MenuItem{}, fmt.Errorf("invalid share url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", shareUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("fetch share page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.MenuItem{}, fmt.Errorf("fetch share page: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSharePageSize))
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("read share page: %w", err)
	}
	return ParseSharePage(body, pageURL)
}

// ParseSharePage extracts name and restaurant from the page title
// ("name | restaurant | ..." or "name - ...") and the first rupee price in
// the readable text.
func ParseSharePage(body []byte, pageURL *url.URL) (domain.MenuItem, error) {
	title := ""
	if m := titleRx.FindSubmatch(body); m != nil {
		title = strings.TrimSpace(html.UnescapeString(string(m[1])))
	}

	text := ""
	if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
		text = article.TextContent
		if title == "" {
			title = strings.TrimSpace(article.Title)
		}
	}

	price, ok := ParsePrice(text)
	if !ok {
		price, _ = ParsePrice(html.UnescapeString(tagRx.ReplaceAllString(string(body), " ")))
	}

	name, restaurant := ParseShareTitle(title)
	cuisine := domain.DefaultCuisine
	return Normalize(domain.RawItem{
		Name:       &name,
		Restaurant: &restaurant,
		Cuisine:    &cuisine,
		Price:      &price,
	}, SourceImported)
}

// ParseShareTitle splits a page title into dish and restaurant names,
// substituting "Item" and "Unknown" for missing parts.
func ParseShareTitle(title string) (name string, restaurant string) {
	if strings.Contains(title, "|") {
		parts := strings.Split(title, "|")
		name = strings.TrimSpace(parts[0])
		if len(parts) >= 2 {
			restaurant = strings.TrimSpace(parts[1])
		}
	} else {
		name = strings.TrimSpace(strings.SplitN(title, "-", 2)[0])
	}
	if name == "" {
		name = "Item"
	}
	if restaurant == "" {
		restaurant = "Unknown"
	}
	return name, restaurant
}

// ParsePrice returns the first ₹ or INR amount in text.
func ParsePrice(text string) (float64, bool) {
	m := priceRx.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

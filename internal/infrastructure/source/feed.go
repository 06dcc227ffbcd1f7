package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	feedTimeout       = 20 * time.Second
	maxEntriesPerFeed = 10
	maxTitleLen       = 100
	maxSummaryLen     = 500
)

// DefaultFeeds are the deal feeds scanned when none are configured.
func DefaultFeeds() []string {
	return []string{
		"https://www.dealnews.com/c142/Electronics/?rss=1",
		"https://www.dealnews.com/c39/Computers/?rss=1",
		"https://www.dealnews.com/c238/Automotive/?rss=1",
		"https://www.dealnews.com/f1912/Smart-Home/?rss=1",
		"https://www.dealnews.com/s104/Home-Garden/?rss=1",
	}
}

// Entry is one raw feed item before deal selection.
type Entry struct {
	Title   string
	Summary string
	URL     string
}

// Snippet renders the entry for the selection prompt.
func (e Entry) Snippet() string {
	return fmt.Sprintf("Title: %s\nDetails: %s\nURL: %s", e.Title, e.Summary, e.URL)
}

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
}

// FeedClient fetches and normalizes RSS deal feeds.
type FeedClient struct {
	httpClient *http.Client
}

func NewFeedClient() *FeedClient {
	return &FeedClient{
		httpClient: &http.Client{Timeout: feedTimeout},
	}
}

func (c *FeedClient) WithHTTPClient(client *http.Client) *FeedClient {
	c.httpClient = client
	return c
}

// Fetch returns up to maxEntriesPerFeed cleaned entries from one feed.
func (c *FeedClient) Fetch(ctx context.Context, feedURL string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpClient.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s: unexpected status %d", feedURL, resp.StatusCode)
	}

	var doc rssDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	items := doc.Channel.Items
	if len(items) > maxEntriesPerFeed {
		items = items[:maxEntriesPerFeed]
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		url := strings.TrimSpace(item.Link)
		if url == "" {
			continue
		}

		entries = append(entries, Entry{
			Title:   truncate(cleanMarkup(item.Title), maxTitleLen),
			Summary: truncate(cleanMarkup(item.Description), maxSummaryLen),
			URL:     url,
		})
	}

	return entries, nil
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// cleanMarkup strips HTML tags and collapses whitespace so the
// selection prompt sees plain text.
func cleanMarkup(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ").Replace(s)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// truncate caps s at limit characters, never splitting a rune.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	return string(runes[:limit])
}

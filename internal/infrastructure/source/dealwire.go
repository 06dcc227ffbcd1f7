package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const (
	maxSelectedDeals = 5

	seenTTL          = 12 * time.Hour
	seenCleanupEvery = time.Hour

	selectionSystemPrompt = "You identify and summarize the most detailed deals from a list, " +
		"by selecting deals that have the most detailed, high quality description and the most clear price. " +
		"Respond strictly in JSON with no explanation. " +
		"Only select deals where the price is clearly stated in the details, and quote the price exactly. " +
		`Reply with {"deals": [{"product_description": "...", "price": 99.99, "url": "..."}]}`
)

type textCompleter interface {
	CompleteText(ctx context.Context, system, user string) (string, error)
}

// DealWire turns raw feed entries into priced deal candidates: it
// pulls the configured RSS feeds, drops already-seen and excluded
// URLs, then lets a language model pick the entries with clearly
// stated prices.
type DealWire struct {
	feeds    []string
	fetcher  *FeedClient
	selector textCompleter
	seen     *cache.Cache
}

func NewDealWire(fetcher *FeedClient, selector textCompleter) *DealWire {
	return &DealWire{
		feeds:    DefaultFeeds(),
		fetcher:  fetcher,
		selector: selector,
		seen:     cache.New(seenTTL, seenCleanupEvery),
	}
}

func (w *DealWire) WithFeeds(feeds []string) *DealWire {
	w.feeds = feeds
	return w
}

// Fetch implements the deal source contract: it never returns a deal
// whose URL is in excluding.
func (w *DealWire) Fetch(ctx context.Context, excluding map[string]struct{}) ([]entity.Deal, error) {
	entries, err := w.collect(ctx, excluding)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, nil
	}

	deals, err := w.selectDeals(ctx, entries, excluding)
	if err != nil {
		return nil, err
	}

	for _, deal := range deals {
		w.seen.Set(deal.URL, true, cache.DefaultExpiration)
	}

	return deals, nil
}

func (w *DealWire) collect(ctx context.Context, excluding map[string]struct{}) ([]Entry, error) {
	var (
		entries     []Entry
		failedFeeds int
	)

	for _, feedURL := range w.feeds {
		fetched, err := w.fetcher.Fetch(ctx, feedURL)
		if err != nil {
			failedFeeds++
			logger(ctx).Warn("feed fetch failed", "feed", feedURL, "error", err)
			continue
		}

		for _, entry := range fetched {
			if _, skip := excluding[entry.URL]; skip {
				continue
			}
			if _, found := w.seen.Get(entry.URL); found {
				continue
			}
			entries = append(entries, entry)
		}
	}

	if failedFeeds == len(w.feeds) {
		return nil, domain.NewError(errcodes.SourceUnavailable, "every deal feed failed")
	}

	logger(ctx).Info("feeds collected",
		"feeds", len(w.feeds),
		"failed", failedFeeds,
		"fresh_entries", len(entries),
	)

	return entries, nil
}

type selectionReply struct {
	Deals []entity.Deal `json:"deals"`
}

func (w *DealWire) selectDeals(ctx context.Context, entries []Entry, excluding map[string]struct{}) ([]entity.Deal, error) {
	snippets := make([]string, 0, len(entries))
	for _, entry := range entries {
		snippets = append(snippets, entry.Snippet())
	}

	prompt := fmt.Sprintf(
		"Select the %d best deals from this list. Respond strictly in JSON.\n\nDeals:\n\n%s",
		maxSelectedDeals, strings.Join(snippets, "\n\n"),
	)

	reply, err := w.selector.CompleteText(ctx, selectionSystemPrompt, prompt)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.SourceUnavailable, "deal selection")
	}

	var parsed selectionReply
	if err := json.Unmarshal([]byte(stripFences(reply)), &parsed); err != nil {
		return nil, domain.WrapError(err, errcodes.SourceUnavailable, "parse deal selection")
	}

	// The excluded set is re-applied after selection; the model is not
	// trusted to honor the prompt.
	deals := make([]entity.Deal, 0, maxSelectedDeals)
	for _, deal := range parsed.Deals {
		if _, skip := excluding[deal.URL]; skip {
			continue
		}
		if deal.URL == "" || deal.Price < 0 {
			continue
		}

		deals = append(deals, deal)
		if len(deals) == maxSelectedDeals {
			break
		}
	}

	return deals, nil
}

// stripFences removes a markdown code fence if the model wrapped its
// JSON reply in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}

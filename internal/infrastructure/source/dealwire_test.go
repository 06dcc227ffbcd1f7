package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

type fakeSelector struct {
	reply string
	err   error

	gotPrompt string
}

func (f *fakeSelector) CompleteText(_ context.Context, _ string, user string) (string, error) {
	f.gotPrompt = user
	return f.reply, f.err
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
}

func TestDealWireFetchSelectsDeals(t *testing.T) {
	srv := feedServer(t)
	defer srv.Close()

	selector := &fakeSelector{reply: `{"deals":[
		{"product_description":"Barista-grade espresso machine","price":49.99,"url":"https://deals.example/espresso"}
	]}`}

	wire := NewDealWire(NewFeedClient(), selector).WithFeeds([]string{srv.URL})

	deals, err := wire.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	require.Equal(t, "https://deals.example/espresso", deals[0].URL)
	require.InDelta(t, 49.99, deals[0].Price, 1e-9)

	require.Contains(t, selector.gotPrompt, "https://deals.example/espresso")
	require.Contains(t, selector.gotPrompt, "https://deals.example/chair")
}

func TestDealWireFetchHonorsExclusionBeforeAndAfterSelection(t *testing.T) {
	srv := feedServer(t)
	defer srv.Close()

	// The selector misbehaves and returns an excluded URL anyway.
	selector := &fakeSelector{reply: `{"deals":[
		{"product_description":"chair","price":89,"url":"https://deals.example/chair"},
		{"product_description":"espresso","price":49.99,"url":"https://deals.example/espresso"}
	]}`}

	wire := NewDealWire(NewFeedClient(), selector).WithFeeds([]string{srv.URL})

	excluding := map[string]struct{}{"https://deals.example/chair": {}}

	deals, err := wire.Fetch(context.Background(), excluding)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	require.Equal(t, "https://deals.example/espresso", deals[0].URL)

	require.NotContains(t, selector.gotPrompt, "https://deals.example/chair",
		"excluded entries never reach the selection prompt")
}

func TestDealWireFetchSkipsRecentlySeen(t *testing.T) {
	srv := feedServer(t)
	defer srv.Close()

	selector := &fakeSelector{reply: `{"deals":[
		{"product_description":"espresso","price":49.99,"url":"https://deals.example/espresso"},
		{"product_description":"chair","price":89,"url":"https://deals.example/chair"}
	]}`}

	wire := NewDealWire(NewFeedClient(), selector).WithFeeds([]string{srv.URL})

	first, err := wire.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, first, 2)

	selector.gotPrompt = ""

	second, err := wire.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, second, "both entries were selected last round")
	require.Empty(t, selector.gotPrompt, "no fresh entries means no selection call")
}

func TestDealWireFetchAllFeedsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wire := NewDealWire(NewFeedClient(), &fakeSelector{}).WithFeeds([]string{srv.URL, srv.URL + "/other"})

	_, err := wire.Fetch(context.Background(), nil)
	require.Error(t, err)
	require.True(t, domain.HasCode(err, errcodes.SourceUnavailable))
}

func TestDealWireFetchSelectorFailure(t *testing.T) {
	srv := feedServer(t)
	defer srv.Close()

	wire := NewDealWire(NewFeedClient(), &fakeSelector{err: errors.New("llm down")}).
		WithFeeds([]string{srv.URL})

	_, err := wire.Fetch(context.Background(), nil)
	require.Error(t, err)
	require.True(t, domain.HasCode(err, errcodes.SourceUnavailable))
}

func TestDealWireFetchStripsCodeFences(t *testing.T) {
	srv := feedServer(t)
	defer srv.Close()

	selector := &fakeSelector{reply: "```json\n{\"deals\":[{\"product_description\":\"espresso\",\"price\":49.99,\"url\":\"https://deals.example/espresso\"}]}\n```"}

	wire := NewDealWire(NewFeedClient(), selector).WithFeeds([]string{srv.URL})

	deals, err := wire.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, deals, 1)
}

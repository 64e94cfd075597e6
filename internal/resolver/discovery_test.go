package resolver

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFetcher serves canned responses keyed by URL and records every fetch.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]FetchResponse
	errs      map[string]error
	fetched   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]FetchResponse),
		errs:      make(map[string]error),
	}
}

func (f *fakeFetcher) serve(url string, status int, body string) {
	f.responses[url] = FetchResponse{URL: url, StatusCode: status, Body: []byte(body)}
}

func (f *fakeFetcher) Fetch(_ context.Context, req FetchRequest) (FetchResponse, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, req.URL)
	f.mu.Unlock()
	if err, ok := f.errs[req.URL]; ok {
		return FetchResponse{}, err
	}
	resp, ok := f.responses[req.URL]
	if !ok {
		return FetchResponse{}, errors.New("no canned response")
	}
	return resp, nil
}

func (f *fakeFetcher) fetchedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.fetched))
	copy(out, f.fetched)
	return out
}

const homeWithFeed = `<html><head>
<link rel="alternate" type="application/rss+xml" href="/feed.xml">
</head><body>
<a href="/2024/05/older-story-from-homepage">An older story with a long headline</a>
</body></html>`

const homeWithAnchors = `<html><body>
<a href="/2024/05/plant-closure-announced">Packaging plant closure announced after inspection</a>
<a href="/about">About us</a>
<a href="/contact">Contact</a>
</body></html>`

func TestDiscoverPrefersFeedOverAnchors(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.serve("https://outlet.example.com/", 200, homeWithFeed)
	fetcher.serve("https://outlet.example.com/feed.xml", 200, sampleRSS)

	d := NewDiscoverer(fetcher, nil, zap.NewNop())
	res, ok := d.Discover(context.Background(), "https://outlet.example.com/", "Outlet")
	require.True(t, ok)
	require.Equal(t, MethodRSS, res.Method)
	require.Equal(t, "https://outlet.example.com/2024/05/regulators-fine-packaging-plant", res.URL)
	require.Equal(t, "Regulators fine packaging plant", res.Title)
	require.NotNil(t, res.PublishedAt)
}

func TestDiscoverFallsBackToAnchorsWhenFeedUnusable(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.serve("https://outlet.example.com/", 200, homeWithFeed)
	fetcher.errs["https://outlet.example.com/feed.xml"] = errors.New("connection refused")
	fetcher.serve("https://outlet.example.com/2024/05/older-story-from-homepage", 200,
		"<html><body>story body</body></html>")

	d := NewDiscoverer(fetcher, nil, zap.NewNop())
	res, ok := d.Discover(context.Background(), "https://outlet.example.com/", "Outlet")
	require.True(t, ok)
	require.Equal(t, MethodHomepage, res.Method)
	require.Equal(t, "https://outlet.example.com/2024/05/older-story-from-homepage", res.URL)
}

func TestDiscoverAnchorHeuristic(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.serve("https://outlet.example.com/", 200, homeWithAnchors)
	fetcher.serve("https://outlet.example.com/2024/05/plant-closure-announced", 200,
		"<html><body>article body</body></html>")

	d := NewDiscoverer(fetcher, nil, zap.NewNop())
	res, ok := d.Discover(context.Background(), "https://outlet.example.com/", "Outlet")
	require.True(t, ok)
	require.Equal(t, "https://outlet.example.com/2024/05/plant-closure-announced", res.URL)
	require.Equal(t, "Packaging plant closure announced after inspection", res.Title)
	require.NotEmpty(t, res.Body)
}

func TestDiscoverCanonicalOverridesAnchorURL(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.serve("https://outlet.example.com/", 200, homeWithAnchors)
	fetcher.serve("https://outlet.example.com/2024/05/plant-closure-announced", 200,
		`<html><head><link rel="canonical" href="https://outlet.example.com/canonical/plant-closure"></head></html>`)

	d := NewDiscoverer(fetcher, nil, zap.NewNop())
	res, ok := d.Discover(context.Background(), "https://outlet.example.com/", "Outlet")
	require.True(t, ok)
	require.Equal(t, "https://outlet.example.com/canonical/plant-closure", res.URL)
}

func TestDiscoverRejectsLowScoringAnchors(t *testing.T) {
	t.Parallel()

	// A keyword path with short anchor text scores 0.3, below the 0.5 bar.
	fetcher := newFakeFetcher()
	fetcher.serve("https://outlet.example.com/", 200,
		`<html><body><a href="/news/x">More</a></body></html>`)

	d := NewDiscoverer(fetcher, nil, zap.NewNop())
	_, ok := d.Discover(context.Background(), "https://outlet.example.com/", "Outlet")
	require.False(t, ok)
}

func TestDiscoverNon2xxHomepage(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.serve("https://outlet.example.com/", 503, "service unavailable")

	d := NewDiscoverer(fetcher, nil, zap.NewNop())
	_, ok := d.Discover(context.Background(), "https://outlet.example.com/", "Outlet")
	require.False(t, ok)
}

func TestDiscoverUsesRendererWhenMarkupIsBare(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.serve("https://outlet.example.com/", 200, "<html><body><div id=app></div></body></html>")
	fetcher.serve("https://outlet.example.com/2024/05/rendered-story", 200,
		"<html><body>story body</body></html>")

	renderer := newFakeFetcher()
	renderer.serve("https://outlet.example.com/", 200,
		`<html><body><a href="/2024/05/rendered-story">A story only visible after rendering</a></body></html>`)

	d := NewDiscoverer(fetcher, renderer, zap.NewNop())
	res, ok := d.Discover(context.Background(), "https://outlet.example.com/", "Outlet")
	require.True(t, ok)
	require.Equal(t, "https://outlet.example.com/2024/05/rendered-story", res.URL)
	require.Equal(t, []string{"https://outlet.example.com/"}, renderer.fetchedURLs())
}

func TestScoreAnchorsWeights(t *testing.T) {
	t.Parallel()

	anchors := collectAnchorsFromMarkup(t, `<html><body>
<a href="https://outlet.example.com/2024/05/long-headline-story">A headline comfortably over twenty characters</a>
<a href="https://outlet.example.com/2024/05/short">Short</a>
<a href="https://outlet.example.com/news/brief">Brief</a>
<a href="https://outlet.example.com/shop/widgets">A product page with a very long link text</a>
</body></html>`)

	scored := scoreAnchors(anchors)
	require.Len(t, scored, 3)

	byURL := map[string]float64{}
	for _, a := range scored {
		byURL[a.url.String()] = a.score
	}
	require.InDelta(t, 0.8, byURL["https://outlet.example.com/2024/05/long-headline-story"], 0.001)
	require.InDelta(t, 0.6, byURL["https://outlet.example.com/2024/05/short"], 0.001)
	require.InDelta(t, 0.3, byURL["https://outlet.example.com/news/brief"], 0.001)
}

func collectAnchorsFromMarkup(t *testing.T, markup string) []anchorCandidate {
	t.Helper()
	fetcher := newFakeFetcher()
	fetcher.serve("https://outlet.example.com/", 200, markup)
	resp, err := fetcher.Fetch(context.Background(), FetchRequest{URL: "https://outlet.example.com/"})
	require.NoError(t, err)

	doc, base := parseDocument(t, resp)
	return collectAnchors(doc, base)
}

func parseDocument(t *testing.T, resp FetchResponse) (*goquery.Document, *url.URL) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	require.NoError(t, err)
	base, err := url.Parse(resp.URL)
	require.NoError(t, err)
	return doc, base
}

package resolver

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ethoscan/evidence-resolver/internal/metrics"
)

// Anchor scoring weights. The values are empirical carryovers from observed
// outlet layouts; tune only with new data.
const (
	anchorBaseScore       = 0.3
	anchorYearBonus       = 0.3
	anchorTextBonus       = 0.2
	anchorAcceptThreshold = 0.5
	anchorTextMinLen      = 20

	maxFeedCandidates = 3
)

// articlePathKeywords marks paths that look like article slugs even without
// a date segment.
var articlePathKeywords = []string{"news", "story", "politics", "environment"}

// yearSegment matches a four-digit year path segment, optionally followed by
// a month segment.
var yearSegment = regexp.MustCompile(`/(19|20)\d{2}(/\d{1,2})?(/|$)`)

// Discoverer resolves a canonical article URL from a generic outlet URL.
// It fetches the outlet's page, prefers a syndication feed match, and falls
// back to scoring the page's own anchors against a conservative threshold.
type Discoverer struct {
	fetcher  Fetcher
	renderer Fetcher
	logger   *zap.Logger
}

// NewDiscoverer builds a Discoverer. renderer is optional; when set it is
// used once to re-render homepages that expose no static markup.
func NewDiscoverer(fetcher Fetcher, renderer Fetcher, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{fetcher: fetcher, renderer: renderer, logger: logger}
}

type anchorCandidate struct {
	url   *url.URL
	text  string
	score float64
}

// Discover runs the two-tier discovery strategy. Every network call is
// individually time-boxed by the fetcher; any failure yields (zero, false).
func (d *Discoverer) Discover(ctx context.Context, genericURL, outletName string) (Resolution, bool) {
	resp, err := d.fetch(ctx, "home", genericURL)
	if err != nil {
		d.logger.Debug("home fetch failed", zap.String("outlet", outletName), zap.String("url", genericURL), zap.Error(err))
		return Resolution{}, false
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Resolution{}, false
	}

	base, err := url.Parse(resp.URL)
	if err != nil || base.Host == "" {
		return Resolution{}, false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return Resolution{}, false
	}

	// Script-rendered homepages carry neither feed links nor anchors in
	// their static markup; re-render once when a renderer is configured.
	if d.renderer != nil && doc.Find("a[href]").Length() == 0 && len(extractFeedLinks(doc, base)) == 0 {
		rendered, rerr := d.renderer.Fetch(ctx, FetchRequest{URL: genericURL})
		if rerr != nil {
			metrics.ObserveFetch("render", "error")
		} else {
			metrics.ObserveFetch("render", "ok")
		}
		if rerr == nil && len(rendered.Body) > 0 {
			if redoc, perr := goquery.NewDocumentFromReader(bytes.NewReader(rendered.Body)); perr == nil {
				doc = redoc
				if rb, berr := url.Parse(rendered.URL); berr == nil && rb.Host != "" {
					base = rb
				}
			}
		}
	}

	if res, ok := d.resolveViaFeed(ctx, doc, base); ok {
		return res, true
	}
	return d.resolveViaAnchors(ctx, doc, base)
}

// resolveViaFeed fetches each candidate feed and returns the first usable
// entry. Feed results are trusted without scoring.
func (d *Discoverer) resolveViaFeed(ctx context.Context, doc *goquery.Document, base *url.URL) (Resolution, bool) {
	feeds := extractFeedLinks(doc, base)
	if len(feeds) > maxFeedCandidates {
		feeds = feeds[:maxFeedCandidates]
	}
	for _, feedURL := range feeds {
		resp, err := d.fetch(ctx, "feed", feedURL)
		if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
			continue
		}
		entries, err := parseFeed(resp.Body)
		if err != nil {
			d.logger.Debug("feed parse failed", zap.String("feed", feedURL), zap.Error(err))
			continue
		}
		entry, ok := bestFeedEntry(entries)
		if !ok {
			continue
		}
		return Resolution{
			URL:         entry.Link,
			Title:       entry.Title,
			PublishedAt: entry.PublishedAt,
			Method:      MethodRSS,
		}, true
	}
	return Resolution{}, false
}

// resolveViaAnchors scores the homepage's own links and accepts the best
// candidate only when it clears the threshold. Homepage scraping is noisy,
// so the acceptance bar stays conservative.
func (d *Discoverer) resolveViaAnchors(ctx context.Context, doc *goquery.Document, base *url.URL) (Resolution, bool) {
	candidates := scoreAnchors(collectAnchors(doc, base))
	if len(candidates) == 0 {
		return Resolution{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	top := candidates[0]
	if top.score < anchorAcceptThreshold {
		return Resolution{}, false
	}

	result := Resolution{
		URL:    top.url.String(),
		Title:  top.text,
		Method: MethodHomepage,
	}
	// A canonical-link or Open Graph URL on the article page beats the raw
	// anchor URL when present.
	if resp, err := d.fetch(ctx, "article", top.url.String()); err == nil &&
		resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Body = resp.Body
		if canonical := extractCanonicalURL(resp.Body, top.url); canonical != "" {
			result.URL = canonical
		}
	}
	return result, true
}

// fetch wraps the fetcher with per-kind outcome counters.
func (d *Discoverer) fetch(ctx context.Context, kind, target string) (FetchResponse, error) {
	resp, err := d.fetcher.Fetch(ctx, FetchRequest{URL: target})
	switch {
	case err != nil:
		metrics.ObserveFetch(kind, "error")
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		metrics.ObserveFetch(kind, "ok")
	default:
		metrics.ObserveFetch(kind, "non-2xx")
	}
	return resp, err
}

// extractFeedLinks scans the markup for feed-relation link tags, resolving
// relative hrefs against the fetched page's final URL.
func extractFeedLinks(doc *goquery.Document, base *url.URL) []string {
	var feeds []string
	seen := map[string]struct{}{}
	doc.Find("link[rel='alternate']").Each(func(_ int, sel *goquery.Selection) {
		linkType, _ := sel.Attr("type")
		if !strings.Contains(linkType, "rss") && !strings.Contains(linkType, "atom") {
			return
		}
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		resolved := resolveHref(base, href)
		if resolved == "" {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		feeds = append(feeds, resolved)
	})
	return feeds
}

func collectAnchors(doc *goquery.Document, base *url.URL) []anchorCandidate {
	var anchors []anchorCandidate
	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved := resolveHref(base, href)
		if resolved == "" {
			return
		}
		u, err := url.Parse(resolved)
		if err != nil || u.Host == "" {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		anchors = append(anchors, anchorCandidate{
			url:  u,
			text: strings.TrimSpace(sel.Text()),
		})
	})
	return anchors
}

// scoreAnchors filters anchors whose path resembles an article and scores
// the survivors.
func scoreAnchors(anchors []anchorCandidate) []anchorCandidate {
	var scored []anchorCandidate
	for _, a := range anchors {
		path := a.url.Path
		hasYear := yearSegment.MatchString(path)
		if !hasYear && !containsArticleKeyword(path) {
			continue
		}
		score := anchorBaseScore
		if hasYear {
			score += anchorYearBonus
		}
		if len(a.text) > anchorTextMinLen {
			score += anchorTextBonus
		}
		a.score = score
		scored = append(scored, a)
	}
	return scored
}

func containsArticleKeyword(path string) bool {
	lower := strings.ToLower(path)
	for _, kw := range articlePathKeywords {
		if strings.Contains(lower, "/"+kw) {
			return true
		}
	}
	return false
}

// extractCanonicalURL pulls a canonical-link tag or an Open Graph URL meta
// tag out of an article page.
func extractCanonicalURL(body []byte, base *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok {
		if resolved := resolveHref(base, href); resolved != "" {
			return resolved
		}
	}
	if content, ok := doc.Find("meta[property='og:url']").First().Attr("content"); ok {
		if resolved := resolveHref(base, content); resolved != "" {
			return resolved
		}
	}
	return ""
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

package resolver

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// feedEntry is the normalized form of one RSS item or Atom entry.
type feedEntry struct {
	Link        string
	Title       string
	Content     string
	PublishedAt *time.Time
}

type rssDocument struct {
	XMLName xml.Name  `xml:"rss"`
	Items   []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Encoded     string `xml:"encoded"`
	PubDate     string `xml:"pubDate"`
}

type atomDocument struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Content   string     `xml:"content"`
	Summary   string     `xml:"summary"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// feedTimeFormats covers the pubDate variants seen in outlet feeds.
var feedTimeFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05Z",
	"2006-01-02",
}

// parseFeed decodes a syndication document, accepting RSS 2.0 and Atom.
func parseFeed(data []byte) ([]feedEntry, error) {
	var rss rssDocument
	if err := xml.Unmarshal(data, &rss); err == nil && len(rss.Items) > 0 {
		entries := make([]feedEntry, 0, len(rss.Items))
		for _, item := range rss.Items {
			content := item.Encoded
			if content == "" {
				content = item.Description
			}
			entries = append(entries, feedEntry{
				Link:        strings.TrimSpace(item.Link),
				Title:       strings.TrimSpace(item.Title),
				Content:     strings.TrimSpace(content),
				PublishedAt: parseFeedTime(item.PubDate),
			})
		}
		return entries, nil
	}

	var atom atomDocument
	if err := xml.Unmarshal(data, &atom); err == nil && len(atom.Entries) > 0 {
		entries := make([]feedEntry, 0, len(atom.Entries))
		for _, entry := range atom.Entries {
			content := entry.Content
			if content == "" {
				content = entry.Summary
			}
			published := entry.Published
			if published == "" {
				published = entry.Updated
			}
			entries = append(entries, feedEntry{
				Link:        atomEntryLink(entry.Links),
				Title:       strings.TrimSpace(entry.Title),
				Content:     strings.TrimSpace(content),
				PublishedAt: parseFeedTime(published),
			})
		}
		return entries, nil
	}

	return nil, fmt.Errorf("unrecognized feed document")
}

// bestFeedEntry returns the first entry exposing both a link and non-empty
// content. Feed entries are structured and near-certain matches, so no
// further scoring is applied.
func bestFeedEntry(entries []feedEntry) (feedEntry, bool) {
	for _, entry := range entries {
		if entry.Link != "" && entry.Content != "" {
			return entry, true
		}
	}
	return feedEntry{}, false
}

func atomEntryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "alternate" && l.Href != "" {
			return strings.TrimSpace(l.Href)
		}
	}
	for _, l := range links {
		if l.Rel == "" && l.Href != "" {
			return strings.TrimSpace(l.Href)
		}
	}
	return ""
}

func parseFeedTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range feedTimeFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

package resolver

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// PendingQuery selects the batch of citations to resolve.
type PendingQuery struct {
	EventID    string
	CitationID string
	Limit      int
}

// ResolvedFields is the set of columns written on successful resolution.
type ResolvedFields struct {
	CanonicalURL string
	ArchiveURL   string
	Title        string
	PublishedAt  *time.Time
	Notes        map[string]any
}

// CitationStore persists citation rows. MarkResolved must only write when
// canonical_url is still null and report whether the write happened, which
// keeps resolution idempotent across retries and overlapping runs.
type CitationStore interface {
	ListPending(ctx context.Context, q PendingQuery) ([]Citation, error)
	MarkResolved(ctx context.Context, citationID string, fields ResolvedFields) (bool, error)
	HasCanonical(ctx context.Context, eventID, canonicalURL string) (bool, error)
}

// EventStore reads event provenance data.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (Event, error)
}

// RunStore owns the run ledger.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, runID string, finishedAt time.Time, counts RunCounts, notes string) error
	GetRun(ctx context.Context, runID string) (Run, error)
}

// FetchRequest captures a single outbound GET.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result of a fetch. URL is the final URL after
// redirects, which relative links must be resolved against.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher performs one time-boxed HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// DiscoveryResolver derives a specific article link from a generic outlet
// URL. The boolean is false when nothing acceptable was found.
type DiscoveryResolver interface {
	Discover(ctx context.Context, genericURL, outletName string) (Resolution, bool)
}

// Archiver submits a URL to a public web archive. It returns the archived
// copy's address, or "" on any failure; it never returns an error because
// archival is a quality enhancement, not a correctness requirement.
type Archiver interface {
	Snapshot(ctx context.Context, url string) string
}

// Publisher pushes resolution events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// SnapshotStore writes raw evidence artifacts and returns a URI.
type SnapshotStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

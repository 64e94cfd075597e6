// Package memory provides in-memory store implementations for tests and
// local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ethoscan/evidence-resolver/internal/resolver"
)

// CitationStore keeps citation rows in a map guarded by a mutex.
type CitationStore struct {
	mu        sync.Mutex
	citations map[string]*resolver.Citation
	order     []string
}

// NewCitationStore creates an empty CitationStore.
func NewCitationStore() *CitationStore {
	return &CitationStore{citations: make(map[string]*resolver.Citation)}
}

// Seed inserts a citation row.
func (s *CitationStore) Seed(cit resolver.Citation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cit
	s.citations[cit.ID] = &cp
	s.order = append(s.order, cit.ID)
}

// Get returns a copy of a citation row.
func (s *CitationStore) Get(id string) (resolver.Citation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cit, ok := s.citations[id]
	if !ok {
		return resolver.Citation{}, false
	}
	return *cit, true
}

// ListPending returns pending citations with a homepage or unset link kind,
// in insertion order.
func (s *CitationStore) ListPending(_ context.Context, q resolver.PendingQuery) ([]resolver.Citation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := q.Limit
	if limit <= 0 {
		limit = resolver.DefaultLimit
	}

	var out []resolver.Citation
	for _, id := range s.order {
		cit := s.citations[id]
		if cit.EvidenceStatus != resolver.EvidencePending {
			continue
		}
		if cit.LinkKind != "" && cit.LinkKind != resolver.LinkKindHomepage {
			continue
		}
		if q.EventID != "" && cit.EventID != q.EventID {
			continue
		}
		if q.CitationID != "" && cit.ID != q.CitationID {
			continue
		}
		out = append(out, *cit)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkResolved applies the compare-and-set write.
func (s *CitationStore) MarkResolved(_ context.Context, citationID string, fields resolver.ResolvedFields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cit, ok := s.citations[citationID]
	if !ok {
		return false, resolver.ErrNotFound
	}
	if cit.CanonicalURL != "" {
		return false, nil
	}
	cit.CanonicalURL = fields.CanonicalURL
	cit.ArchiveURL = fields.ArchiveURL
	cit.ArticleTitle = fields.Title
	cit.ArticlePublishedAt = fields.PublishedAt
	cit.LinkKind = resolver.LinkKindArticle
	cit.EvidenceStatus = resolver.EvidenceResolved
	cit.Notes = fields.Notes
	return true, nil
}

// HasCanonical reports whether the event already carries this canonical URL.
func (s *CitationStore) HasCanonical(_ context.Context, eventID, canonicalURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cit := range s.citations {
		if cit.EventID == eventID && cit.CanonicalURL == canonicalURL {
			return true, nil
		}
	}
	return false, nil
}

// EventStore keeps event rows in a map.
type EventStore struct {
	mu     sync.Mutex
	events map[string]resolver.Event
}

// NewEventStore creates an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{events: make(map[string]resolver.Event)}
}

// Seed inserts an event row.
func (s *EventStore) Seed(ev resolver.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
}

// GetEvent returns an event or resolver.ErrNotFound.
func (s *EventStore) GetEvent(_ context.Context, id string) (resolver.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return resolver.Event{}, resolver.ErrNotFound
	}
	return ev, nil
}

// RunStore keeps run ledger rows in a map.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]resolver.Run
}

// NewRunStore creates an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]resolver.Run)}
}

// CreateRun inserts the ledger row.
func (s *RunStore) CreateRun(_ context.Context, run resolver.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// FinishRun finalizes the ledger row.
func (s *RunStore) FinishRun(
	_ context.Context,
	runID string,
	finishedAt time.Time,
	counts resolver.RunCounts,
	notes string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return resolver.ErrNotFound
	}
	run.FinishedAt = &finishedAt
	run.Counts = counts
	run.Notes = notes
	s.runs[runID] = run
	return nil
}

// GetRun returns a run or resolver.ErrNotFound.
func (s *RunStore) GetRun(_ context.Context, runID string) (resolver.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return resolver.Run{}, resolver.ErrNotFound
	}
	return run, nil
}

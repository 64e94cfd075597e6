// Package resolver upgrades generic citation URLs attached to brand events
// into specific, dated, archivable article or document links.
package resolver

import (
	"fmt"
	"time"
)

// Mode selects how far the pipeline goes looking for a canonical link.
type Mode string

// Resolution modes accepted by the batch endpoint and the CLI.
const (
	ModeAgencyOnly  Mode = "agency-only"
	ModeAgencyFirst Mode = "agency-first"
	ModeFull        Mode = "full"
)

// ParseMode validates a mode string. The empty string passes through
// unchanged so the orchestrator can apply its configured default.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAgencyOnly, ModeAgencyFirst, ModeFull:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// LinkKind classifies what a citation's URL points at.
type LinkKind string

// Link kinds persisted on citation rows.
const (
	LinkKindHomepage LinkKind = "homepage"
	LinkKindArticle  LinkKind = "article"
	LinkKindDatabase LinkKind = "database"
)

// EvidenceStatus tracks a citation's resolution lifecycle. The only
// transition this pipeline performs is pending -> resolved.
type EvidenceStatus string

// Evidence status values.
const (
	EvidencePending  EvidenceStatus = "pending"
	EvidenceResolved EvidenceStatus = "resolved"
)

// Resolution methods recorded in citation provenance notes.
const (
	MethodAgency   = "agency"
	MethodRSS      = "rss"
	MethodHomepage = "homepage-heuristic"
)

// Citation links a brand event to a cited source. CanonicalURL is set at
// most once; an empty string means it has not been resolved yet.
type Citation struct {
	ID                 string
	EventID            string
	SourceName         string
	SourceURL          string
	CanonicalURL       string
	ArchiveURL         string
	LinkKind           LinkKind
	EvidenceStatus     EvidenceStatus
	ArticleTitle       string
	ArticlePublishedAt *time.Time
	Notes              map[string]any
}

// Event carries the structured provenance bag consumed by the agency
// resolver. Events are read-only for this pipeline.
type Event struct {
	ID       string
	Category string
	RawData  map[string]any
}

// RunCounts accumulates per-invocation outcome tallies.
type RunCounts struct {
	Processed int `json:"processed"`
	Resolved  int `json:"resolved"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Run is the audit record of one pipeline invocation. It is created when the
// batch starts, mutated only by the owning invocation, and finalized once.
type Run struct {
	ID         string     `json:"id"`
	Mode       Mode       `json:"mode"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Counts     RunCounts  `json:"counts"`
	Notes      string     `json:"notes,omitempty"`
}

// Resolution is a candidate canonical link produced by one of the resolvers.
// Body holds the article page markup when discovery had to fetch it.
type Resolution struct {
	URL         string
	Title       string
	PublishedAt *time.Time
	Method      string
	Body        []byte
}

// BatchRequest are the invocation parameters for one resolution batch.
type BatchRequest struct {
	Mode       Mode
	Limit      int
	EventID    string
	CitationID string
}

// BatchSummary is returned to the caller when a batch completes.
type BatchSummary struct {
	RunID      string `json:"run_id"`
	Mode       Mode   `json:"mode"`
	Processed  int    `json:"processed"`
	Resolved   int    `json:"resolved"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"duration_ms"`
}

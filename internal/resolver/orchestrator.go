package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ethoscan/evidence-resolver/internal/metrics"
)

// Default invocation parameters.
const (
	DefaultLimit = 50

	defaultCitationPause = 250 * time.Millisecond
	defaultResolvePause  = 1500 * time.Millisecond
)

// Config controls Orchestrator behavior.
type Config struct {
	DefaultMode    Mode
	DefaultLimit   int
	CitationPause  time.Duration
	ResolvePause   time.Duration
	Topic          string
	SnapshotPrefix string
}

// Orchestrator runs one resolution batch: it pulls pending citations,
// tries the agency resolver first, falls back to outlet discovery unless
// the mode forbids it, persists results idempotently, and keeps the run
// ledger. Processing is strictly sequential; the pacing pauses and the
// circuit breaker are the politeness contract toward third-party sites.
type Orchestrator struct {
	citations CitationStore
	events    EventStore
	runs      RunStore
	discovery DiscoveryResolver
	archiver  Archiver
	publisher Publisher
	snapshots SnapshotStore
	clock     Clock
	idGen     IDGenerator
	pause     pauseController
	cfg       Config
	logger    *zap.Logger
}

type citationOutcome int

const (
	outcomeResolved citationOutcome = iota
	outcomeSkipped
	outcomeFailed
)

func (o citationOutcome) String() string {
	switch o {
	case outcomeResolved:
		return "resolved"
	case outcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// New constructs an Orchestrator. discovery is required; archiver,
// publisher, and snapshots are optional side-effects and may be nil.
func New(
	citations CitationStore,
	events EventStore,
	runs RunStore,
	discovery DiscoveryResolver,
	archiver Archiver,
	publisher Publisher,
	snapshots SnapshotStore,
	clock Clock,
	idGen IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = ModeAgencyFirst
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	return &Orchestrator{
		citations: citations,
		events:    events,
		runs:      runs,
		discovery: discovery,
		archiver:  archiver,
		publisher: publisher,
		snapshots: snapshots,
		clock:     clock,
		idGen:     idGen,
		pause:     timerPauseController{},
		cfg:       cfg,
		logger:    logger,
	}
}

// Resolve processes at most req.Limit pending citations and returns the run
// summary. Per-citation errors are tallied, not propagated; only failures
// before the loop starts (run creation, batch query) surface as errors.
func (o *Orchestrator) Resolve(ctx context.Context, req BatchRequest) (BatchSummary, error) {
	mode := req.Mode
	if mode == "" {
		mode = o.cfg.DefaultMode
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return BatchSummary{}, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = o.cfg.DefaultLimit
	}

	start := o.clock.Now()
	runID, err := o.idGen.NewID()
	if err != nil {
		return BatchSummary{}, fmt.Errorf("generate run id: %w", err)
	}
	if err := o.runs.CreateRun(ctx, Run{ID: runID, Mode: mode, StartedAt: start}); err != nil {
		return BatchSummary{}, fmt.Errorf("create run: %w", err)
	}

	pending, err := o.citations.ListPending(ctx, PendingQuery{
		EventID:    req.EventID,
		CitationID: req.CitationID,
		Limit:      limit,
	})
	if err != nil {
		o.finishRun(ctx, runID, RunCounts{}, fmt.Sprintf("batch query failed: %v", err))
		metrics.ObserveRun("failed")
		return BatchSummary{}, fmt.Errorf("list pending citations: %w", err)
	}

	o.logger.Info("resolution run started",
		zap.String("run_id", runID),
		zap.String("mode", string(mode)),
		zap.Int("pending", len(pending)),
	)

	var counts RunCounts
	streak := newSkipStreak(skipBreakThreshold)
	tripped := false

	for _, cit := range pending {
		outcome, networkBacked := o.processCitation(ctx, runID, mode, cit)
		counts.Processed++
		metrics.ObserveCitation(outcome.String())

		switch outcome {
		case outcomeResolved:
			counts.Resolved++
			streak.reset()
			if networkBacked {
				o.pause.Pause(ctx, o.resolvePause())
			}
		case outcomeSkipped:
			counts.Skipped++
			if mode != ModeAgencyOnly && streak.observeSkip() {
				tripped = true
				metrics.ObserveBreakerTrip()
				o.logger.Warn("circuit breaker tripped",
					zap.String("run_id", runID),
					zap.Int("consecutive_skips", streak.count),
				)
			}
		case outcomeFailed:
			counts.Failed++
		}

		o.pause.Pause(ctx, o.citationPause())
		if tripped {
			break
		}
	}

	notes := ""
	if tripped {
		notes = fmt.Sprintf("circuit breaker tripped after %d consecutive skips", streak.count)
	}
	o.finishRun(ctx, runID, counts, notes)
	metrics.ObserveRun("succeeded")

	finished := o.clock.Now()
	o.logger.Info("resolution run finished",
		zap.String("run_id", runID),
		zap.Int("processed", counts.Processed),
		zap.Int("resolved", counts.Resolved),
		zap.Int("skipped", counts.Skipped),
		zap.Int("failed", counts.Failed),
	)

	return BatchSummary{
		RunID:      runID,
		Mode:       mode,
		Processed:  counts.Processed,
		Resolved:   counts.Resolved,
		Skipped:    counts.Skipped,
		Failed:     counts.Failed,
		DurationMs: finished.Sub(start).Milliseconds(),
	}, nil
}

// processCitation resolves a single citation. Panics and errors stay inside
// this boundary so one bad row never aborts the batch. networkBacked is
// true when the result came from outlet discovery.
func (o *Orchestrator) processCitation(
	ctx context.Context,
	runID string,
	mode Mode,
	cit Citation,
) (outcome citationOutcome, networkBacked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("citation processing panicked",
				zap.String("citation_id", cit.ID),
				zap.Any("panic", rec),
			)
			outcome = outcomeFailed
		}
	}()

	ev, err := o.loadEvent(ctx, cit.EventID)
	if err != nil {
		o.logger.Error("event lookup failed",
			zap.String("citation_id", cit.ID),
			zap.String("event_id", cit.EventID),
			zap.Error(err),
		)
		return outcomeFailed, false
	}

	if res, ok := ResolveAgencyPermalink(ev); ok {
		return o.persist(ctx, runID, cit, res), false
	}
	if mode == ModeAgencyOnly {
		return outcomeSkipped, false
	}

	res, ok := o.discovery.Discover(ctx, cit.SourceURL, cit.SourceName)
	if !ok {
		return outcomeSkipped, false
	}
	return o.persist(ctx, runID, cit, res), true
}

// persist applies the write guards and the compare-and-set update, then
// fires the best-effort side effects (archive already ran, snapshot,
// notification).
func (o *Orchestrator) persist(ctx context.Context, runID string, cit Citation, res Resolution) citationOutcome {
	if IsGenericResult(res.URL) {
		o.logger.Info("generic result rejected",
			zap.String("citation_id", cit.ID),
			zap.String("url", res.URL),
		)
		return outcomeSkipped
	}

	dup, err := o.citations.HasCanonical(ctx, cit.EventID, res.URL)
	if err != nil {
		o.logger.Error("duplicate check failed", zap.String("citation_id", cit.ID), zap.Error(err))
		return outcomeFailed
	}
	if dup {
		o.logger.Info("duplicate canonical url suppressed",
			zap.String("citation_id", cit.ID),
			zap.String("event_id", cit.EventID),
			zap.String("url", res.URL),
		)
		return outcomeSkipped
	}

	archiveURL := ""
	if o.archiver != nil {
		archiveURL = o.archiver.Snapshot(ctx, res.URL)
		if archiveURL != "" {
			metrics.ObserveArchive("saved")
		} else {
			metrics.ObserveArchive("failed")
		}
	}

	notes := map[string]any{
		"method":      res.Method,
		"run_id":      runID,
		"source_url":  cit.SourceURL,
		"resolved_at": o.clock.Now().Format(time.RFC3339),
	}
	wrote, err := o.citations.MarkResolved(ctx, cit.ID, ResolvedFields{
		CanonicalURL: res.URL,
		ArchiveURL:   archiveURL,
		Title:        res.Title,
		PublishedAt:  res.PublishedAt,
		Notes:        notes,
	})
	if err != nil {
		o.logger.Error("citation update failed", zap.String("citation_id", cit.ID), zap.Error(err))
		return outcomeFailed
	}
	if !wrote {
		// Lost a race with a concurrent run; the existing canonical URL wins.
		o.logger.Info("citation already resolved", zap.String("citation_id", cit.ID))
		return outcomeSkipped
	}

	o.storeSnapshot(ctx, runID, cit, res)
	o.publishResolution(ctx, runID, cit, res)

	o.logger.Info("citation resolved",
		zap.String("citation_id", cit.ID),
		zap.String("method", res.Method),
		zap.String("url", res.URL),
	)
	return outcomeResolved
}

func (o *Orchestrator) storeSnapshot(ctx context.Context, runID string, cit Citation, res Resolution) {
	if o.snapshots == nil || len(res.Body) == 0 {
		return
	}
	path := fmt.Sprintf("%s/%s.html", runID, cit.ID)
	if prefix := strings.Trim(o.cfg.SnapshotPrefix, "/"); prefix != "" {
		path = prefix + "/" + path
	}
	uri, err := o.snapshots.PutObject(ctx, path, "text/html; charset=utf-8", res.Body)
	if err != nil {
		o.logger.Warn("evidence snapshot failed", zap.String("citation_id", cit.ID), zap.Error(err))
		return
	}
	o.logger.Debug("evidence snapshot stored", zap.String("citation_id", cit.ID), zap.String("uri", uri))
}

func (o *Orchestrator) publishResolution(ctx context.Context, runID string, cit Citation, res Resolution) {
	if o.publisher == nil || o.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"citation_id":   cit.ID,
		"event_id":      cit.EventID,
		"canonical_url": res.URL,
		"method":        res.Method,
		"run_id":        runID,
		"timestamp":     o.clock.Now().Format(time.RFC3339),
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.Topic, payload); err != nil {
		o.logger.Warn("resolution publish failed", zap.String("citation_id", cit.ID), zap.Error(err))
	}
}

func (o *Orchestrator) loadEvent(ctx context.Context, eventID string) (Event, error) {
	if o.events == nil || eventID == "" {
		return Event{}, nil
	}
	ev, err := o.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Event{ID: eventID}, nil
		}
		return Event{}, err
	}
	return ev, nil
}

func (o *Orchestrator) finishRun(ctx context.Context, runID string, counts RunCounts, notes string) {
	if err := o.runs.FinishRun(ctx, runID, o.clock.Now(), counts, notes); err != nil {
		o.logger.Error("run finalization failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (o *Orchestrator) citationPause() time.Duration {
	if o.cfg.CitationPause > 0 {
		return o.cfg.CitationPause
	}
	return defaultCitationPause
}

func (o *Orchestrator) resolvePause() time.Duration {
	if o.cfg.ResolvePause > 0 {
		return o.cfg.ResolvePause
	}
	return defaultResolvePause
}

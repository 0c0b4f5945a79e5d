// Package pipeline coordinates one candidate search: requirement extraction,
// retrieval, per-candidate enrichment and the aggregate summary. Progress is
// reported through a callback as the run moves between states.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/candidate-matcher/internal/logger"
	"github.com/jonathan/candidate-matcher/internal/matching"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// State is a pipeline phase.
type State string

const (
	StateExtracting  State = "extracting_requirements"
	StateSearching   State = "searching_candidates"
	StateEnriching   State = "enriching_candidates"
	StateSummarizing State = "summarizing"
	StateDone        State = "done"
)

// ProgressEvent represents a progress update during pipeline execution.
// Index and Total are set during enrichment; Index is 1-based and 0 marks
// the start of the stage.
type ProgressEvent struct {
	State   State  `json:"state"`
	Message string `json:"message"`
	Index   int    `json:"index,omitempty"`
	Total   int    `json:"total,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs. It is never
// called concurrently.
type ProgressCallback func(event ProgressEvent)

// Extractor turns a job description into requirements.
type Extractor interface {
	Extract(ctx context.Context, text string) types.JobRequirements
}

// Searcher retrieves candidates for requirements.
type Searcher interface {
	Search(ctx context.Context, reqs types.JobRequirements, topK int) ([]types.ScoredCandidate, error)
}

// Analyzer scores one candidate. The bool reports a fallback.
type Analyzer interface {
	Analyze(ctx context.Context, c types.Candidate, reqs types.JobRequirements) (types.MatchAnalysis, bool)
}

// Enricher writes the summary and outreach for one candidate.
type Enricher interface {
	Summarize(ctx context.Context, c types.Candidate, reqs types.JobRequirements) (string, bool)
	BuildOutreach(ctx context.Context, c types.Candidate, reqs types.JobRequirements, a types.MatchAnalysis) (types.OutreachTemplates, bool)
}

// Options tunes a Coordinator.
type Options struct {
	// TopK is the number of candidates retrieved (clamped to [1,100]).
	TopK int
	// Concurrency is the number of candidates enriched at once. Values
	// below 2 run sequentially.
	Concurrency int
}

// Coordinator runs the matching pipeline.
type Coordinator struct {
	extractor Extractor
	searcher  Searcher
	analyzer  Analyzer
	enricher  Enricher
	opts      Options
	log       *zap.Logger
	now       func() time.Time
}

// New creates a Coordinator.
func New(ex Extractor, s Searcher, a Analyzer, e Enricher, opts Options, log *zap.Logger) *Coordinator {
	if opts.TopK == 0 {
		opts.TopK = matching.DefaultTopK
	}
	opts.TopK = matching.ClampTopK(opts.TopK)
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Coordinator{
		extractor: ex,
		searcher:  s,
		analyzer:  a,
		enricher:  e,
		opts:      opts,
		log:       logger.Named(log, "pipeline"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run processes one job description. Only retrieval failures and
// cancellation abort a run; per-candidate generation failures are recorded
// in EnrichedCandidate.Degraded.
func (c *Coordinator) Run(ctx context.Context, text string, onProgress ProgressCallback) (*types.PipelineResult, error) {
	emit := c.emitter(onProgress)
	start := time.Now()

	emit(ProgressEvent{State: StateExtracting, Message: "Analyzing job requirements..."})
	reqs := c.extractor.Extract(ctx, text)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline canceled: %w", err)
	}

	emit(ProgressEvent{State: StateSearching, Message: "Searching for candidates..."})
	hits, err := c.searcher.Search(ctx, reqs, c.opts.TopK)
	if err != nil {
		c.log.Error("candidate search failed", zap.Error(err))
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}

	n := len(hits)
	emit(ProgressEvent{State: StateEnriching, Message: fmt.Sprintf("Generating profiles for %d candidates...", n), Total: n})
	enriched := c.enrichAll(ctx, reqs, hits, emit)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline canceled: %w", err)
	}

	emit(ProgressEvent{State: StateSummarizing, Message: "Generating final summary..."})
	result := &types.PipelineResult{
		Requirements: reqs,
		Candidates:   enriched,
		Summary:      Summarize(reqs, enriched),
		CompletedAt:  c.now(),
	}

	emit(ProgressEvent{State: StateDone, Message: "Complete!"})
	c.log.Info("pipeline complete",
		zap.String("job_title", reqs.Title),
		zap.Int("candidates", n),
		zap.Int("degraded", countDegraded(enriched)),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

func (c *Coordinator) enrichAll(ctx context.Context, reqs types.JobRequirements, hits []types.ScoredCandidate, emit func(ProgressEvent)) []types.EnrichedCandidate {
	n := len(hits)
	out := make([]types.EnrichedCandidate, n)
	progress := newOrderedEmitter(emit)

	announce := func(i int) {
		progress.emit(i, ProgressEvent{
			State:   StateEnriching,
			Message: fmt.Sprintf("Generating profile for candidate %d of %d: %s...", i+1, n, displayName(hits[i].Name)),
			Index:   i + 1,
			Total:   n,
		})
	}

	if c.opts.Concurrency < 2 {
		for i := range hits {
			announce(i)
			out[i] = c.enrichOne(ctx, reqs, hits[i])
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for i := range hits {
		g.Go(func() error {
			announce(i)
			out[i] = c.enrichOne(ctx, reqs, hits[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// enrichOne runs Analyze, Summarize and BuildOutreach for one hit.
func (c *Coordinator) enrichOne(ctx context.Context, reqs types.JobRequirements, hit types.ScoredCandidate) types.EnrichedCandidate {
	ec := types.EnrichedCandidate{ScoredCandidate: hit}

	var fallback bool
	ec.Analysis, fallback = c.analyzer.Analyze(ctx, hit.Candidate, reqs)
	if fallback {
		ec.Degraded = append(ec.Degraded, types.StageAnalysis)
	}
	ec.ProfileSummary, fallback = c.enricher.Summarize(ctx, hit.Candidate, reqs)
	if fallback {
		ec.Degraded = append(ec.Degraded, types.StageSummary)
	}
	ec.Outreach, fallback = c.enricher.BuildOutreach(ctx, hit.Candidate, reqs, ec.Analysis)
	if fallback {
		ec.Degraded = append(ec.Degraded, types.StageOutreach)
	}

	if ec.IsDegraded() {
		c.log.Warn("candidate enrichment degraded",
			zap.String(logger.FieldCandidate, hit.ID.String()),
			zap.Any("stages", ec.Degraded))
	}
	return ec
}

func displayName(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

func countDegraded(cs []types.EnrichedCandidate) int {
	n := 0
	for _, c := range cs {
		if c.IsDegraded() {
			n++
		}
	}
	return n
}

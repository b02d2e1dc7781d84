// Package pipeline implements the four-stage media attribution pipeline:
// describe, match, select, confidence. Stages run strictly in sequence;
// each consumes the validated output of the previous one. Recoverable parse
// failures degrade to documented fallback values, fatal inference failures
// abort the run.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/memetrace/attribution/internal/config"
	"github.com/memetrace/attribution/internal/model"
	"github.com/memetrace/attribution/internal/store"
	"github.com/memetrace/attribution/pkg/anthropic"
)

// Pipeline orchestrates one attribution run per call. Safe for concurrent
// use; each run has independently scoped state.
type Pipeline struct {
	client anthropic.Client
	store  store.Store
	cfg    *config.Config
}

// New creates a Pipeline.
func New(client anthropic.Client, st store.Store, cfg *config.Config) *Pipeline {
	return &Pipeline{client: client, store: st, cfg: cfg}
}

// Run executes all four stages against the uploaded media and returns the
// assembled result. The dataset is fetched once, before the match stage.
// A fatal stage error fails the run; the error identifies the stage.
func (p *Pipeline) Run(ctx context.Context, payload model.MediaPayload) (*model.AttributionResult, error) {
	run, err := p.store.CreateRun(ctx, payload.MimeType)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	start := time.Now()
	zap.L().Info("pipeline: run started",
		zap.String("run_id", run.ID),
		zap.String("mime_type", payload.MimeType),
	)

	result, err := p.execute(ctx, run.ID, payload)
	if err != nil {
		p.failRun(ctx, run.ID, err)
		return nil, err
	}

	if cerr := p.store.CompleteRun(ctx, run.ID, result); cerr != nil {
		zap.L().Warn("pipeline: failed to persist completed run",
			zap.String("run_id", run.ID), zap.Error(cerr))
	}

	zap.L().Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int64("final_match_id", result.FinalMatch.ID),
		zap.Float64("similarity_score", result.FinalMatch.SimilarityScore),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, runID string, payload model.MediaPayload) (*model.AttributionResult, error) {
	var total anthropic.TokenUsage
	var cost float64

	p.setStatus(ctx, runID, model.RunStatusDescribingMedia)
	description, usage, err := p.describe(ctx, payload)
	if err != nil {
		return nil, err
	}
	total.Add(usage)
	cost += usage.EstimateCost(p.cfg.Anthropic.VisionModel)

	p.setStatus(ctx, runID, model.RunStatusMatchingCandidates)
	dataset, err := p.store.ListDatasetRecords(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load dataset")
	}
	candidates, usage, err := p.match(ctx, description.Description, dataset)
	if err != nil {
		return nil, err
	}
	total.Add(usage)
	cost += usage.EstimateCost(p.cfg.Anthropic.TextModel)

	p.setStatus(ctx, runID, model.RunStatusSelectingBestMatch)
	selected, usage, err := p.selectBest(ctx, description.Description, candidates)
	if err != nil {
		return nil, err
	}
	total.Add(usage)
	cost += usage.EstimateCost(p.cfg.Anthropic.TextModel)

	p.setStatus(ctx, runID, model.RunStatusAnalyzingConfidence)
	report, usage, err := p.confidence(ctx, description.Description, selected)
	if err != nil {
		return nil, err
	}
	total.Add(usage)
	cost += usage.EstimateCost(p.cfg.Anthropic.TextModel)

	return p.assemble(runID, description, candidates, selected, report, total, cost), nil
}

func (p *Pipeline) describe(ctx context.Context, payload model.MediaPayload) (model.ContentDescription, anthropic.TokenUsage, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	return DescribeMedia(ctx, payload, p.client, p.cfg.Anthropic)
}

func (p *Pipeline) match(ctx context.Context, description string, dataset []model.DatasetRecord) (model.CandidateSet, anthropic.TokenUsage, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	return MatchCandidates(ctx, description, dataset, p.client, p.cfg.Anthropic, p.cfg.Pipeline)
}

func (p *Pipeline) selectBest(ctx context.Context, description string, candidates model.CandidateSet) (model.SelectedMatch, anthropic.TokenUsage, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	return SelectBestMatch(ctx, description, candidates, p.client, p.cfg.Anthropic)
}

func (p *Pipeline) confidence(ctx context.Context, description string, selected model.SelectedMatch) (model.ConfidenceReport, anthropic.TokenUsage, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	return AnalyzeConfidence(ctx, description, selected, p.client, p.cfg.Anthropic)
}

// stageContext bounds a single inference call. A hung upstream call fails
// the stage instead of hanging the run.
func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(p.cfg.Pipeline.StageTimeoutSecs) * time.Second
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (p *Pipeline) assemble(runID string, description model.ContentDescription, candidates model.CandidateSet, selected model.SelectedMatch, report model.ConfidenceReport, total anthropic.TokenUsage, cost float64) *model.AttributionResult {
	matches := make([]model.MatchSummary, 0, candidates.Len())
	for _, rec := range candidates.Candidates {
		matches = append(matches, rec.Summary())
	}

	return &model.AttributionResult{
		RunID:            runID,
		OriginalAnalysis: description,
		Matches:          matches,
		FinalMatch: model.FinalMatch{
			ID:              selected.Match.ID,
			Creator:         selected.Match.CreatorUsername,
			Description:     selected.Match.Description,
			UploadDate:      selected.Match.UploadDate,
			ImageURL:        selected.Match.ImageURL,
			PostLink:        selected.Match.PostLink,
			Explanation:     selected.Explanation,
			SimilarityScore: selected.SimilarityScore,
		},
		MatchResult: model.MatchResult{
			Percentage:   report.MatchPercentage,
			Features:     report.MatchingFeatures,
			CreatorStyle: report.CreatorStyle,
			Explanation:  report.ConfidenceExplanation,
		},
		TotalTokens: int(total.InputTokens + total.OutputTokens),
		TotalCost:   cost,
	}
}

// setStatus records a state transition. Persistence failures are logged and
// ignored; the run's outcome never depends on the audit trail.
func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus) {
	if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
		zap.L().Warn("pipeline: failed to update run status",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (p *Pipeline) failRun(ctx context.Context, runID string, cause error) {
	zap.L().Error("pipeline: run failed", zap.String("run_id", runID), zap.Error(cause))
	if err := p.store.FailRun(ctx, runID, cause.Error()); err != nil {
		zap.L().Warn("pipeline: failed to persist run failure",
			zap.String("run_id", runID), zap.Error(err))
	}
}

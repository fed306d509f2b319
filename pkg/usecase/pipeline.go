package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Pipeline runs risk evaluation then commit enrichment, sequentially
type Pipeline struct {
	risk     *RiskEvaluator
	enricher *Enricher
	sinks    []interfaces.ReportSink
}

type PipelineOption func(*Pipeline)

// WithReportSinks publishes every finished assessment to sinks
func WithReportSinks(sinks ...interfaces.ReportSink) PipelineOption {
	return func(x *Pipeline) {
		x.sinks = append(x.sinks, sinks...)
	}
}

func NewPipeline(risk *RiskEvaluator, enricher *Enricher, opts ...PipelineOption) *Pipeline {
	x := &Pipeline{risk: risk, enricher: enricher}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Assess evaluates a diff. Sink failures are logged and do not fail the assessment.
func (x *Pipeline) Assess(ctx context.Context, source, gitDiff string) (*model.Assessment, error) {
	assessment := model.NewAssessment(source, x.enricher.Mode())
	logger := ctxlog.From(ctx).With("assessment_id", assessment.ID)
	ctx = ctxlog.With(ctx, logger)

	verdict, riskSteps, err := x.risk.Evaluate(ctx, gitDiff)
	assessment.RiskSteps = riskSteps
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate risk", goerr.V("assessment_id", assessment.ID))
	}

	enriched, enrichSteps, err := x.enricher.Enrich(ctx, verdict)
	assessment.EnrichSteps = enrichSteps
	if err != nil {
		return nil, goerr.Wrap(err, "failed to enrich verdict", goerr.V("assessment_id", assessment.ID))
	}
	assessment.Verdict = enriched

	for _, sink := range x.sinks {
		if err := sink.Publish(ctx, assessment); err != nil {
			logger.Error("Failed to publish assessment", "error", err, "sink", fmt.Sprintf("%T", sink))
		}
	}

	logger.Info("Assessment finished",
		"risk_level", enriched.RiskLevel,
		"usage", len(enriched.Usage),
		"risk_steps", len(riskSteps),
		"enrich_steps", len(enrichSteps),
	)
	return assessment, nil
}

var _ interfaces.AssessmentUseCase = &Pipeline{}

package http_test

import (
	"context"
	"sync"

	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type recordingWebhookUC struct {
	mu     sync.Mutex
	events []*model.WebhookEvent
	err    error
}

func (x *recordingWebhookUC) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = append(x.events, event)
	return x.err
}

type stubAssessUC struct {
	source string
	diff   string
	fail   bool
}

func (x *stubAssessUC) Assess(ctx context.Context, source, diff string) (*model.Assessment, error) {
	x.source, x.diff = source, diff
	if x.fail {
		return nil, goerr.New("model unavailable")
	}
	return &model.Assessment{
		ID:     "a-1",
		Source: source,
		Verdict: &model.RiskVerdict{
			RiskLevel: model.RiskHigh,
			Comments:  "major bump",
			Usage:     []model.UsageRecord{},
		},
	}, nil
}

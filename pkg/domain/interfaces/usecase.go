package interfaces

//go:generate moq -out mocks/usecase_mock.go -pkg mocks . WebhookUseCase AssessmentUseCase

import (
	"context"

	"github.com/m-mizutani/bumprisk/pkg/domain/model"
)

// WebhookUseCase defines the interface for webhook event processing
type WebhookUseCase interface {
	// ProcessEvent processes a webhook event
	ProcessEvent(ctx context.Context, event *model.WebhookEvent) error
}

// AssessmentUseCase runs the risk pipeline over a dependency change
type AssessmentUseCase interface {
	// Assess evaluates the diff and returns the final assessment
	Assess(ctx context.Context, source, diff string) (*model.Assessment, error)
}

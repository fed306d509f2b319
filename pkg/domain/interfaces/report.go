package interfaces

import (
	"context"

	"github.com/m-mizutani/bumprisk/pkg/domain/model"
)

// ReportSink receives finished assessments
type ReportSink interface {
	Publish(ctx context.Context, assessment *model.Assessment) error
}

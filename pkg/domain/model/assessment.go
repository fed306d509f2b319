package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
)

// Assessment is one run of the pipeline over a dependency change
type Assessment struct {
	ID          string           `json:"id" firestore:"id"`
	Source      string           `json:"source" firestore:"source"`
	CreatedAt   time.Time        `json:"createdAt" firestore:"createdAt"`
	EnrichMode  types.EnrichMode `json:"enrichMode" firestore:"enrichMode"`
	Verdict     *RiskVerdict     `json:"verdict" firestore:"verdict"`
	RiskSteps   []Step           `json:"riskSteps,omitempty" firestore:"riskSteps"`
	EnrichSteps []Step           `json:"enrichSteps,omitempty" firestore:"enrichSteps"`
}

// NewAssessment creates an assessment with a fresh identifier
func NewAssessment(source string, mode types.EnrichMode) *Assessment {
	return &Assessment{
		ID:         uuid.NewString(),
		Source:     source,
		CreatedAt:  time.Now().UTC(),
		EnrichMode: mode,
	}
}

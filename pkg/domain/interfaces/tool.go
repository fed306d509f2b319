package interfaces

import (
	"context"
	"encoding/json"
)

// Tool is a named action an agent may invoke. Run returns the observation text; an error
// is turned into an "Error: ..." observation by the agent runtime instead of ending the loop.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input json.RawMessage) (string, error)
}

package model

import "encoding/json"

// FinalAnswerAction is the action name that ends an agent loop
const FinalAnswerAction = "Final Answer"

// Outcome is the parsed result of one agent turn: ActionRequest, FinalAnswer or ParseError
type Outcome interface {
	outcome()
}

// ActionRequest asks the runtime to invoke a tool
type ActionRequest struct {
	Tool  string
	Input json.RawMessage
	Raw   string
}

// FinalAnswer terminates the agent loop with the given payload
type FinalAnswer struct {
	Output string
	Raw    string
}

// ParseError is a model turn that did not follow the action protocol
type ParseError struct {
	Raw string
	Err error
}

func (ActionRequest) outcome() {}
func (FinalAnswer) outcome()   {}
func (ParseError) outcome()    {}

// Step is one (action, observation) pair of the agent transcript
type Step struct {
	Action      string          `json:"action" firestore:"action"`
	Input       json.RawMessage `json:"action_input,omitempty" firestore:"-"`
	Observation string          `json:"observation" firestore:"observation"`
}

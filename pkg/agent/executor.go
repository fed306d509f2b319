package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

const (
	DefaultMaxTurns       = 15
	DefaultMaxParseErrors = 3

	nodeAgent  = "agent"
	nodeAction = "action"

	RouteEnd      = "END"
	RouteContinue = "CONTINUE"

	// InvalidFormatAction is recorded as the step action of a malformed turn
	InvalidFormatAction = "invalid_format"
)

var (
	ErrMaxTurns           = goerr.New("agent exceeded the maximum number of turns")
	ErrTooManyParseErrors = goerr.New("agent produced too many malformed actions in a row")
	ErrEmptyModelResponse = goerr.New("model returned no text")
	ErrUnexpectedOutcome  = goerr.New("unexpected outcome in action node")
)

// Config describes one agent: its system prompt, tools and loop caps
type Config struct {
	Name           string
	SystemPrompt   string
	Tools          []interfaces.Tool
	MaxTurns       int
	MaxParseErrors int
}

// State is threaded through the graph. Steps is append-only.
type State struct {
	Input   string
	Outcome model.Outcome
	Steps   []model.Step
	Turns   int

	parseErrors int
	session     gollem.Session
}

// Result is the final answer of a finished run
type Result struct {
	Output string
	Steps  []model.Step
	Turns  int
}

// Executor runs the agent/action loop against a chat model
type Executor struct {
	llm   gollem.LLMClient
	cfg   Config
	tools map[string]interfaces.Tool
	graph *CompiledGraph[*State]
}

// New builds an executor. Tool names must be unique.
func New(llm gollem.LLMClient, cfg Config) (*Executor, error) {
	if llm == nil {
		return nil, goerr.New("LLM client is required", goerr.V("agent", cfg.Name))
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxParseErrors <= 0 {
		cfg.MaxParseErrors = DefaultMaxParseErrors
	}

	tools := make(map[string]interfaces.Tool, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if tool.Name() == model.FinalAnswerAction {
			return nil, goerr.New("tool name is reserved", goerr.V("name", tool.Name()))
		}
		if _, dup := tools[tool.Name()]; dup {
			return nil, goerr.New("duplicated tool name", goerr.V("name", tool.Name()))
		}
		tools[tool.Name()] = tool
	}

	e := &Executor{llm: llm, cfg: cfg, tools: tools}

	graph, err := NewGraph[*State]().
		AddNode(nodeAgent, e.agentNode).
		AddNode(nodeAction, e.actionNode).
		SetEntryPoint(nodeAgent).
		AddConditionalEdges(nodeAgent, ShouldContinue, map[string]string{
			RouteContinue: nodeAction,
			RouteEnd:      End,
		}).
		AddEdge(nodeAction, nodeAgent).
		Compile()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile agent graph", goerr.V("agent", cfg.Name))
	}
	e.graph = graph

	return e, nil
}

// Run opens a fresh chat session and loops until the model gives a final answer
func (e *Executor) Run(ctx context.Context, input string) (*Result, error) {
	logger := ctxlog.From(ctx).With("agent", e.cfg.Name)
	ctx = ctxlog.With(ctx, logger)

	session, err := e.llm.NewSession(ctx,
		gollem.WithSessionSystemPrompt(e.cfg.SystemPrompt),
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session", goerr.V("agent", e.cfg.Name))
	}

	state := &State{Input: input, session: session}
	if err := e.graph.Invoke(ctx, state); err != nil {
		return nil, goerr.Wrap(err, "agent run failed",
			goerr.V("agent", e.cfg.Name),
			goerr.V("turns", state.Turns),
			goerr.V("steps", len(state.Steps)),
		)
	}

	final, ok := state.Outcome.(model.FinalAnswer)
	if !ok {
		return nil, goerr.Wrap(ErrUnexpectedOutcome, "agent ended without a final answer", goerr.V("agent", e.cfg.Name))
	}

	logger.Info("Agent finished", "turns", state.Turns, "steps", len(state.Steps))
	return &Result{Output: final.Output, Steps: state.Steps, Turns: state.Turns}, nil
}

// ShouldContinue routes to END on a final answer and to the action node otherwise
func ShouldContinue(state *State) string {
	if _, ok := state.Outcome.(model.FinalAnswer); ok {
		return RouteEnd
	}
	return RouteContinue
}

func (e *Executor) agentNode(ctx context.Context, state *State) error {
	logger := ctxlog.From(ctx)

	if state.Turns >= e.cfg.MaxTurns {
		return goerr.Wrap(ErrMaxTurns, "turn limit reached", goerr.V("max_turns", e.cfg.MaxTurns))
	}

	resp, err := state.session.Generate(ctx, []gollem.Input{gollem.Text(nextMessage(state))})
	if err != nil {
		return goerr.Wrap(err, "failed to generate content", goerr.V("turn", state.Turns+1))
	}
	state.Turns++

	if resp == nil || len(resp.Texts) == 0 {
		return goerr.Wrap(ErrEmptyModelResponse, "model turn is empty", goerr.V("turn", state.Turns))
	}

	state.Outcome = ParseOutcome(strings.Join(resp.Texts, "\n"))

	switch v := state.Outcome.(type) {
	case model.ParseError:
		state.parseErrors++
		logger.Warn("Malformed agent action", "turn", state.Turns, "error", v.Err, "consecutive", state.parseErrors)
		if state.parseErrors > e.cfg.MaxParseErrors {
			return goerr.Wrap(ErrTooManyParseErrors, "parse error limit reached",
				goerr.V("max_parse_errors", e.cfg.MaxParseErrors),
				goerr.V("raw", v.Raw),
			)
		}
	case model.ActionRequest:
		state.parseErrors = 0
		logger.Debug("Agent requested tool", "turn", state.Turns, "tool", v.Tool)
	case model.FinalAnswer:
		state.parseErrors = 0
		logger.Debug("Agent gave final answer", "turn", state.Turns)
	}

	return nil
}

func (e *Executor) actionNode(ctx context.Context, state *State) error {
	switch v := state.Outcome.(type) {
	case model.ActionRequest:
		state.Steps = append(state.Steps, model.Step{
			Action:      v.Tool,
			Input:       v.Input,
			Observation: e.invoke(ctx, v),
		})
	case model.ParseError:
		state.Steps = append(state.Steps, model.Step{
			Action:      InvalidFormatAction,
			Observation: formatFeedback(v.Err),
		})
	default:
		return goerr.Wrap(ErrUnexpectedOutcome, "action node cannot handle outcome", goerr.V("outcome", fmt.Sprintf("%T", v)))
	}
	return nil
}

// invoke runs the named tool once. Failures become observations.
func (e *Executor) invoke(ctx context.Context, req model.ActionRequest) string {
	logger := ctxlog.From(ctx)

	tool, ok := e.tools[req.Tool]
	if !ok {
		return fmt.Sprintf("Error: %s is not a valid tool, try one of [%s].", req.Tool, strings.Join(e.toolNames(), ", "))
	}

	observation, err := tool.Run(ctx, req.Input)
	if err != nil {
		logger.Info("Tool failed", "tool", req.Tool, "error", err)
		return "Error: " + err.Error()
	}
	return observation
}

func (e *Executor) toolNames() []string {
	names := make([]string, 0, len(e.tools))
	for name := range e.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nextMessage(state *State) string {
	if len(state.Steps) == 0 {
		return state.Input
	}
	last := state.Steps[len(state.Steps)-1]
	return "Observation: " + last.Observation + "\n\n" +
		`Reminder: respond with exactly one JSON blob {"action": ..., "action_input": ...}. ` +
		`Use "Final Answer" as the action when you are done.`
}

func formatFeedback(err error) string {
	return fmt.Sprintf("Invalid format: %v. Respond with a single JSON blob using double quotes, "+
		`for example {"action": "Final Answer", "action_input": "..."}.`, err)
}

// DescribeTools renders the tool catalog for a system prompt, one "name: description" per line
func DescribeTools(tools []interfaces.Tool) string {
	var b strings.Builder
	for _, tool := range tools {
		fmt.Fprintf(&b, "%s: %s\n", tool.Name(), tool.Description())
	}
	return strings.TrimRight(b.String(), "\n")
}

// ToolNames lists tool names joined by ", "
func ToolNames(tools []interfaces.Tool) string {
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name()
	}
	return strings.Join(names, ", ")
}

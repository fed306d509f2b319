package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/bumprisk/pkg/infra/git"
	"github.com/m-mizutani/bumprisk/pkg/usecase"
	"github.com/m-mizutani/gollem/mock"
	"github.com/m-mizutani/gt"
)

func decodeVerdict(t *testing.T, s string) *model.RiskVerdict {
	t.Helper()
	v, err := model.DecodeVerdict([]byte(s))
	gt.NoError(t, err)
	return v
}

func newAgentEnricher(t *testing.T, llm *mock.LLMClientMock, runner *fakeRunner) *usecase.Enricher {
	t.Helper()
	tools := []interfaces.Tool{
		usecase.NewReadFileTool(t.TempDir()),
		usecase.NewGitCommandTool(runner),
	}
	executor, err := usecase.NewEnrichAgent(llm, tools, usecase.AgentLimits{})
	gt.NoError(t, err)

	enricher, err := usecase.NewEnricher(types.EnrichModeAgent, nil, usecase.WithEnrichAgent(executor))
	gt.NoError(t, err)
	return enricher
}

func TestEnricher_AgentMode(t *testing.T) {
	var prompts []string
	llm := scriptedLLM(&prompts, []string{
		action("run_git_command", "log -n 1 --format=%h -- src/main/java/io/spring/application/DateTimeCursor.java"),
		action("run_git_command", "show -s --format=%an%n%B 7dd7cba"),
		finalAnswer(jodaEnriched),
	})
	runner := &fakeRunner{output: "7dd7cba\n"}

	enricher := newAgentEnricher(t, llm, runner)
	input := decodeVerdict(t, jodaVerdict)

	enriched, steps, err := enricher.Enrich(context.Background(), input)
	gt.NoError(t, err)
	gt.Equal(t, len(steps), 2)
	gt.Equal(t, len(runner.calls), 2)

	gt.True(t, input.SameAssessment(enriched))
	gt.Equal(t, enriched.Usage[0].LastCommitInfo, &model.CommitInfo{
		CommitID: "7dd7cba",
		JiraID:   "XYZ-12",
		Author:   "A Name",
	})
	// input is not modified
	gt.Value(t, input.Usage[0].LastCommitInfo).Nil()

	// the verdict is handed to the agent as JSON
	gt.True(t, strings.Contains(prompts[0], `"artifactId": "joda-time"`))
}

func TestEnricher_SkipsEmptyUsage(t *testing.T) {
	llm := &mock.LLMClientMock{}
	enricher := newAgentEnricher(t, llm, &fakeRunner{})

	input := decodeVerdict(t, `{"riskLevel": "Low", "comments": "no direct usage", "usage": [], "changes": {"groupId": "a", "artifactId": "b", "oldVersion": "1", "newVersion": "2"}}`)
	enriched, steps, err := enricher.Enrich(context.Background(), input)
	gt.NoError(t, err)
	gt.Equal(t, enriched, input)
	gt.Equal(t, len(steps), 0)
	gt.Equal(t, len(llm.NewSessionCalls()), 0)
}

func TestEnricher_ClearsFabricatedTicket(t *testing.T) {
	var enriched map[string]any
	gt.NoError(t, json.Unmarshal([]byte(jodaEnriched), &enriched))
	usage := enriched["usage"].([]any)[0].(map[string]any)
	usage["lastCommitInfo"].(map[string]any)["jiraId"] = "not a ticket"
	answer, err := json.Marshal(enriched)
	gt.NoError(t, err)

	llm := scriptedLLM(nil, []string{finalAnswer(string(answer))})
	enricher := newAgentEnricher(t, llm, &fakeRunner{})

	result, _, err := enricher.Enrich(context.Background(), decodeVerdict(t, jodaVerdict))
	gt.NoError(t, err)
	gt.Equal(t, result.Usage[0].LastCommitInfo.JiraID, "")
	gt.Equal(t, result.Usage[0].LastCommitInfo.CommitID, "7dd7cba")
}

func TestEnricher_RejectsChangedAssessment(t *testing.T) {
	changed := strings.Replace(jodaEnriched, `"riskLevel": "Low"`, `"riskLevel": "High"`, 1)
	llm := scriptedLLM(nil, []string{finalAnswer(changed)})
	enricher := newAgentEnricher(t, llm, &fakeRunner{})

	_, _, err := enricher.Enrich(context.Background(), decodeVerdict(t, jodaVerdict))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrSchemaViolation))
}

func TestEnricher_RequiresCommitInfo(t *testing.T) {
	llm := scriptedLLM(nil, []string{finalAnswer(jodaVerdict)})
	enricher := newAgentEnricher(t, llm, &fakeRunner{})

	_, _, err := enricher.Enrich(context.Background(), decodeVerdict(t, jodaVerdict))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrSchemaViolation))
}

func TestEnricher_DirectMode(t *testing.T) {
	history := &fakeHistory{commits: map[string]*interfaces.Commit{
		"src/main/java/io/spring/application/DateTimeCursor.java": {
			Hash:    "7dd7cba",
			Author:  "A Name",
			Message: "Fix DateTimeCursor (XYZ-12)",
		},
	}}

	enricher, err := usecase.NewEnricher(types.EnrichModeDirect, nil, usecase.WithHistory(history))
	gt.NoError(t, err)

	enriched, steps, err := enricher.Enrich(context.Background(), decodeVerdict(t, jodaVerdict))
	gt.NoError(t, err)
	gt.Equal(t, len(steps), 0)
	gt.Equal(t, enriched.Usage[0].LastCommitInfo, &model.CommitInfo{
		CommitID: "7dd7cba",
		JiraID:   "XYZ-12",
		Author:   "A Name",
	})
}

func TestEnricher_DirectModeNoTicket(t *testing.T) {
	history := &fakeHistory{commits: map[string]*interfaces.Commit{
		"src/main/java/io/spring/application/DateTimeCursor.java": {Hash: "1234567", Author: "B", Message: "Refactor cursor"},
	}}
	enricher, err := usecase.NewEnricher(types.EnrichModeDirect, nil, usecase.WithHistory(history))
	gt.NoError(t, err)

	enriched, _, err := enricher.Enrich(context.Background(), decodeVerdict(t, jodaVerdict))
	gt.NoError(t, err)
	gt.Equal(t, enriched.Usage[0].LastCommitInfo.JiraID, "")
}

func TestEnricher_DirectModeNoHistory(t *testing.T) {
	history := &fakeHistory{err: git.ErrNoCommit}
	enricher, err := usecase.NewEnricher(types.EnrichModeDirect, nil, usecase.WithHistory(history))
	gt.NoError(t, err)

	enriched, _, err := enricher.Enrich(context.Background(), decodeVerdict(t, jodaVerdict))
	gt.NoError(t, err)
	gt.Equal(t, enriched.Usage[0].LastCommitInfo, &model.CommitInfo{})
}

func TestEnricher_NoneMode(t *testing.T) {
	enricher, err := usecase.NewEnricher(types.EnrichModeNone, nil)
	gt.NoError(t, err)

	input := decodeVerdict(t, jodaVerdict)
	enriched, _, err := enricher.Enrich(context.Background(), input)
	gt.NoError(t, err)
	gt.Equal(t, enriched, input)
}

func TestNewEnricher_Validation(t *testing.T) {
	_, err := usecase.NewEnricher(types.EnrichMode("magic"), nil)
	gt.Error(t, err)
	_, err = usecase.NewEnricher(types.EnrichModeAgent, nil)
	gt.Error(t, err)
	_, err = usecase.NewEnricher(types.EnrichModeDirect, nil)
	gt.Error(t, err)
}

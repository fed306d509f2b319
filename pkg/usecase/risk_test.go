package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/infra/vectorstore"
	"github.com/m-mizutani/bumprisk/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func retrievalTools() []interfaces.Tool {
	embedder := &letterEmbedder{}
	store := vectorstore.NewMemory()
	return []interfaces.Tool{
		usecase.NewSearchDependencyTreeTool(embedder, store, 5),
		usecase.NewSearchClassLevelDependencyTool(embedder, store, 5),
	}
}

func TestRiskEvaluator_Evaluate(t *testing.T) {
	var prompts []string
	llm := scriptedLLM(&prompts, []string{
		action("search_class_level_dependency", "org.joda.time"),
		"```json\n" + finalAnswer(jodaVerdict) + "\n```",
	})

	evaluator, err := usecase.NewRiskEvaluator(llm, retrievalTools(), usecase.AgentLimits{})
	gt.NoError(t, err)

	verdict, steps, err := evaluator.Evaluate(context.Background(), jodaDiff)
	gt.NoError(t, err)
	gt.Equal(t, verdict.RiskLevel, model.RiskLow)
	gt.Equal(t, verdict.Changes.NewVersion, "2.12.7")
	gt.Equal(t, len(verdict.Usage), 1)
	gt.Equal(t, len(steps), 1)
	gt.Equal(t, steps[0].Action, "search_class_level_dependency")
	// empty index
	gt.Equal(t, steps[0].Observation, "")

	gt.True(t, strings.Contains(prompts[0], "joda-time:joda-time:2.12.7"))
	gt.True(t, strings.Contains(prompts[0], "- build.gradle"))
	gt.True(t, strings.HasPrefix(prompts[1], "Observation: "))
}

func TestRiskEvaluator_SchemaViolation(t *testing.T) {
	llm := scriptedLLM(nil, []string{
		finalAnswer(`{"riskLevel": "Critical", "comments": "", "usage": [], "changes": {"groupId": "a", "artifactId": "b", "oldVersion": "1", "newVersion": "2"}}`),
	})

	evaluator, err := usecase.NewRiskEvaluator(llm, retrievalTools(), usecase.AgentLimits{})
	gt.NoError(t, err)

	_, _, err = evaluator.Evaluate(context.Background(), jodaDiff)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrSchemaViolation))
}

func TestRiskEvaluator_EmptyDiff(t *testing.T) {
	evaluator, err := usecase.NewRiskEvaluator(scriptedLLM(nil), retrievalTools(), usecase.AgentLimits{})
	gt.NoError(t, err)

	_, _, err = evaluator.Evaluate(context.Background(), "  ")
	gt.Error(t, err)
}

func TestChangedFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("git show output", func(t *testing.T) {
		gt.Equal(t, usecase.ChangedFiles(ctx, jodaDiff), []string{"build.gradle"})
	})

	t.Run("multiple files", func(t *testing.T) {
		d := "diff --git a/pom.xml b/pom.xml\n--- a/pom.xml\n+++ b/pom.xml\n@@ -1 +1 @@\n-a\n+b\n" +
			"diff --git a/old.txt b/old.txt\ndeleted file mode 100644\n--- a/old.txt\n+++ /dev/null\n@@ -1 +0,0 @@\n-x\n"
		gt.Equal(t, usecase.ChangedFiles(ctx, d), []string{"old.txt", "pom.xml"})
	})

	t.Run("not a diff", func(t *testing.T) {
		gt.Equal(t, len(usecase.ChangedFiles(ctx, "hello")), 0)
	})
}

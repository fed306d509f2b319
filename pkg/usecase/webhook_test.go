package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/domain/types"
	"github.com/m-mizutani/bumprisk/pkg/usecase"
	"github.com/m-mizutani/bumprisk/pkg/utils/async"
	"github.com/m-mizutani/gt"
)

type fakeGitHub struct {
	mu       sync.Mutex
	diff     string
	comments []string
}

func (x *fakeGitHub) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	return x.diff, nil
}

func (x *fakeGitHub) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.comments = append(x.comments, body)
	return nil
}

type fakeAssessor struct {
	mu      sync.Mutex
	sources []string
}

func (x *fakeAssessor) Assess(ctx context.Context, source, diff string) (*model.Assessment, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.sources = append(x.sources, source)
	return &model.Assessment{
		ID:         "a-1",
		Source:     source,
		EnrichMode: types.EnrichModeNone,
		Verdict: &model.RiskVerdict{
			RiskLevel: model.RiskLow,
			Comments:  "joda-time minor bump",
			Usage:     []model.UsageRecord{},
		},
	}, nil
}

const prPayload = `{
  "action": "opened",
  "number": 42,
  "pull_request": {"number": 42, "title": "Bump joda-time", "head": {"sha": "abc123"}},
  "repository": {"name": "realworld", "full_name": "acme/realworld", "owner": {"login": "acme"}}
}`

const gradleDiff = `diff --git a/build.gradle b/build.gradle
index 1111111..2222222 100644
--- a/build.gradle
+++ b/build.gradle
@@ -1,3 +1,3 @@
 dependencies {
-    implementation 'joda-time:joda-time:2.10.13'
+    implementation 'joda-time:joda-time:2.12.7'
 }
`

const readmeDiff = `diff --git a/README.md b/README.md
index 1111111..2222222 100644
--- a/README.md
+++ b/README.md
@@ -1 +1 @@
-old
+new
`

func prEvent(action string) *model.WebhookEvent {
	return &model.WebhookEvent{
		ID:         "test-delivery-1",
		Type:       model.EventTypePullRequest,
		Action:     action,
		Repository: "acme/realworld",
		Sender:     "testuser",
		ReceivedAt: time.Now(),
		RawPayload: []byte(prPayload),
	}
}

func TestWebhookUseCase_AssessesPullRequest(t *testing.T) {
	gh := &fakeGitHub{diff: gradleDiff}
	assessor := &fakeAssessor{}
	dispatcher := async.NewDispatcher()
	uc := usecase.NewWebhook("acme/realworld", assessor, gh, dispatcher)

	ctx := context.Background()
	gt.NoError(t, uc.ProcessEvent(ctx, prEvent("opened")))
	gt.NoError(t, dispatcher.Wait(ctx))

	gt.Equal(t, assessor.sources, []string{"github:acme/realworld#42"})
	gt.Equal(t, len(gh.comments), 1)
	gt.True(t, strings.Contains(gh.comments[0], "**Low**"))
	gt.True(t, strings.Contains(gh.comments[0], "No class uses the dependency directly."))
}

func TestWebhookUseCase_SkipsNonBuildChange(t *testing.T) {
	gh := &fakeGitHub{diff: readmeDiff}
	assessor := &fakeAssessor{}
	dispatcher := async.NewDispatcher()
	uc := usecase.NewWebhook("acme/realworld", assessor, gh, dispatcher)

	ctx := context.Background()
	gt.NoError(t, uc.ProcessEvent(ctx, prEvent("synchronize")))
	gt.NoError(t, dispatcher.Wait(ctx))

	gt.Equal(t, len(assessor.sources), 0)
	gt.Equal(t, len(gh.comments), 0)
}

func TestWebhookUseCase_RepositoryMismatch(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		want       int
	}{
		{name: "other repository", configured: "acme/other", want: 0},
		{name: "other owner", configured: "evil/realworld", want: 0},
		{name: "case differs", configured: "ACME/RealWorld", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gh := &fakeGitHub{diff: gradleDiff}
			assessor := &fakeAssessor{}
			dispatcher := async.NewDispatcher()
			uc := usecase.NewWebhook(tt.configured, assessor, gh, dispatcher)

			ctx := context.Background()
			gt.NoError(t, uc.ProcessEvent(ctx, prEvent("opened")))
			gt.NoError(t, dispatcher.Wait(ctx))
			gt.Equal(t, len(assessor.sources), tt.want)
			gt.Equal(t, len(gh.comments), tt.want)
		})
	}
}

func TestWebhookUseCase_IgnoresUnsupportedEvents(t *testing.T) {
	tests := []struct {
		name  string
		event *model.WebhookEvent
	}{
		{name: "closed pull request", event: prEvent("closed")},
		{
			name: "ping",
			event: &model.WebhookEvent{
				ID:         "test-delivery-2",
				Type:       model.EventTypePing,
				RawPayload: []byte(`{}`),
			},
		},
		{
			name: "unknown event type",
			event: &model.WebhookEvent{
				ID:         "test-delivery-3",
				Type:       model.EventTypeUnknown,
				Action:     "unknown",
				RawPayload: []byte(`{}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gh := &fakeGitHub{diff: gradleDiff}
			assessor := &fakeAssessor{}
			dispatcher := async.NewDispatcher()
			uc := usecase.NewWebhook("acme/realworld", assessor, gh, dispatcher)

			ctx := context.Background()
			gt.NoError(t, uc.ProcessEvent(ctx, tt.event))
			gt.NoError(t, dispatcher.Wait(ctx))
			gt.Equal(t, len(assessor.sources), 0)
		})
	}
}

func TestWebhookUseCase_InvalidPayload(t *testing.T) {
	uc := usecase.NewWebhook("acme/realworld", &fakeAssessor{}, &fakeGitHub{}, async.NewDispatcher())

	event := prEvent("opened")
	event.RawPayload = []byte(`{"action":"opened"}`)
	gt.Error(t, uc.ProcessEvent(context.Background(), event))

	event.RawPayload = []byte(`not json`)
	gt.Error(t, uc.ProcessEvent(context.Background(), event))
}

func TestTouchesBuildDescriptor(t *testing.T) {
	gt.True(t, usecase.TouchesBuildDescriptor([]string{"README.md", "service/pom.xml"}))
	gt.True(t, usecase.TouchesBuildDescriptor([]string{"gradle/libs.versions.toml"}))
	gt.True(t, usecase.TouchesBuildDescriptor([]string{"build.gradle.kts"}))
	gt.False(t, usecase.TouchesBuildDescriptor([]string{"src/main/java/Foo.java"}))
	gt.False(t, usecase.TouchesBuildDescriptor(nil))
}

func TestFormatComment(t *testing.T) {
	a := &model.Assessment{
		ID: "a-2",
		Verdict: &model.RiskVerdict{
			RiskLevel: model.RiskMedium,
			Changes: &model.DependencyChange{
				GroupID:    "joda-time",
				ArtifactID: "joda-time",
				OldVersion: "2.10.13",
				NewVersion: "2.12.7",
			},
			Usage: []model.UsageRecord{
				{
					Class: "io.spring.application.DateTimeCursor",
					Path:  "src/main/java/io/spring/application/DateTimeCursor.java",
					LastCommitInfo: &model.CommitInfo{
						CommitID: "7dd7cba",
						JiraID:   "XYZ-12",
						Author:   "A Name",
					},
				},
				{Class: "io.spring.Other", Path: "src/main/java/io/spring/Other.java"},
			},
		},
	}

	comment := usecase.FormatComment(a)
	gt.True(t, strings.HasPrefix(comment, "## Dependency upgrade risk: **Medium**"))
	gt.True(t, strings.Contains(comment, "`joda-time:joda-time` 2.10.13 → 2.12.7"))
	gt.True(t, strings.Contains(comment, "| `io.spring.application.DateTimeCursor` | `src/main/java/io/spring/application/DateTimeCursor.java` | 7dd7cba | XYZ-12 | A Name |"))
	gt.True(t, strings.Contains(comment, "| `io.spring.Other` | `src/main/java/io/spring/Other.java` |  |  |  |"))
	gt.True(t, strings.Contains(comment, "assessment a-2"))
}

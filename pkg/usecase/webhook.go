package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/bumprisk/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// build descriptors whose change can upgrade a dependency
var buildDescriptors = map[string]bool{
	"pom.xml":             true,
	"build.gradle":        true,
	"build.gradle.kts":    true,
	"libs.versions.toml":  true,
	"gradle.properties":   true,
	"dependencies.gradle": true,
}

type webhookUseCase struct {
	repository string
	assessUC   interfaces.AssessmentUseCase
	github     interfaces.GitHubClient
	dispatcher *async.Dispatcher
}

// NewWebhook creates a new instance of WebhookUseCase for pull requests of repository
// (owner/repo), the project whose checkout and logs the assessment reads. Assessments run on
// dispatcher and the verdict is posted as a comment with githubClient.
func NewWebhook(repository string, assessUC interfaces.AssessmentUseCase, githubClient interfaces.GitHubClient, dispatcher *async.Dispatcher) *webhookUseCase {
	return &webhookUseCase{
		repository: repository,
		assessUC:   assessUC,
		github:     githubClient,
		dispatcher: dispatcher,
	}
}

// ProcessEvent processes a webhook event
func (uc *webhookUseCase) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	logger := ctxlog.From(ctx)

	logger.Info("Processing webhook event",
		"id", event.ID,
		"type", event.Type,
		"action", event.Action,
		"repository", event.Repository,
		"sender", event.Sender,
		"supported", event.IsSupportedEvent(),
	)

	if !event.IsSupportedEvent() {
		logger.Debug("Unsupported event received",
			"type", event.Type,
			"action", event.Action,
		)
		return nil
	}

	var prEvent github.PullRequestEvent
	if err := json.Unmarshal(event.RawPayload, &prEvent); err != nil {
		return goerr.Wrap(err, "failed to unmarshal PR event", goerr.V("delivery_id", event.ID))
	}

	pr := &model.PRInfo{
		Owner:   prEvent.GetRepo().GetOwner().GetLogin(),
		Repo:    prEvent.GetRepo().GetName(),
		Number:  prEvent.GetPullRequest().GetNumber(),
		Title:   prEvent.GetPullRequest().GetTitle(),
		HeadSHA: prEvent.GetPullRequest().GetHead().GetSHA(),
	}
	if pr.Owner == "" || pr.Repo == "" || pr.Number == 0 {
		return goerr.New("pull request event lacks repository or number", goerr.V("delivery_id", event.ID))
	}

	// GitHub repository names are case-insensitive
	if fullName := pr.Owner + "/" + pr.Repo; !strings.EqualFold(fullName, uc.repository) {
		logger.Info("Pull request of another repository, skipped",
			"repository", fullName,
			"configured", uc.repository,
		)
		return nil
	}

	uc.dispatcher.Dispatch(ctx, func(ctx context.Context) error {
		return uc.assessPullRequest(ctx, pr)
	})
	return nil
}

func (uc *webhookUseCase) assessPullRequest(ctx context.Context, pr *model.PRInfo) error {
	logger := ctxlog.From(ctx).With("owner", pr.Owner, "repo", pr.Repo, "number", pr.Number)
	ctx = ctxlog.With(ctx, logger)

	diff, err := uc.github.GetPullRequestDiff(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		return err
	}

	if !TouchesBuildDescriptor(ChangedFiles(ctx, diff)) {
		logger.Info("Pull request does not change build descriptors, skipped")
		return nil
	}

	source := fmt.Sprintf("github:%s/%s#%d", pr.Owner, pr.Repo, pr.Number)
	assessment, err := uc.assessUC.Assess(ctx, source, diff)
	if err != nil {
		return goerr.Wrap(err, "failed to assess pull request", goerr.V("source", source))
	}

	if err := uc.github.CreateComment(ctx, pr.Owner, pr.Repo, pr.Number, FormatComment(assessment)); err != nil {
		return err
	}

	logger.Info("Posted assessment comment", "assessment_id", assessment.ID, "risk_level", assessment.Verdict.RiskLevel)
	return nil
}

// TouchesBuildDescriptor reports whether any of files is a Maven or Gradle build descriptor
func TouchesBuildDescriptor(files []string) bool {
	for _, f := range files {
		if buildDescriptors[path.Base(f)] {
			return true
		}
	}
	return false
}

// FormatComment renders an assessment as a pull request comment in Markdown
func FormatComment(a *model.Assessment) string {
	var b strings.Builder
	v := a.Verdict

	b.WriteString("## Dependency upgrade risk: **" + string(v.RiskLevel) + "**\n\n")
	if c := v.Changes; c != nil {
		fmt.Fprintf(&b, "`%s:%s` %s → %s\n\n", c.GroupID, c.ArtifactID, c.OldVersion, c.NewVersion)
	}
	if v.Comments != "" {
		b.WriteString(v.Comments + "\n\n")
	}

	if len(v.Usage) == 0 {
		b.WriteString("No class uses the dependency directly.\n")
	} else {
		b.WriteString("| Class | Path | Last commit | Ticket | Author |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, u := range v.Usage {
			var commit, ticket, author string
			if info := u.LastCommitInfo; info != nil {
				commit, ticket, author = info.CommitID, info.JiraID, info.Author
			}
			fmt.Fprintf(&b, "| `%s` | `%s` | %s | %s | %s |\n", u.Class, u.Path, commit, ticket, author)
		}
	}

	fmt.Fprintf(&b, "\n<sub>assessment %s</sub>\n", a.ID)
	return b.String()
}

var _ interfaces.WebhookUseCase = &webhookUseCase{}

package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

// Slack posts a verdict summary either through a bot token and channel or an incoming webhook
type Slack struct {
	client     *slack.Client
	channel    string
	webhookURL string
}

// NewSlackBot posts with chat.postMessage
func NewSlackBot(token, channel string, opts ...slack.Option) (*Slack, error) {
	if token == "" || channel == "" {
		return nil, goerr.New("Slack token and channel are required")
	}
	return &Slack{client: slack.New(token, opts...), channel: channel}, nil
}

// NewSlackWebhook posts to an incoming webhook URL
func NewSlackWebhook(webhookURL string) (*Slack, error) {
	if webhookURL == "" {
		return nil, goerr.New("Slack webhook URL is required")
	}
	return &Slack{webhookURL: webhookURL}, nil
}

func (x *Slack) Publish(ctx context.Context, assessment *model.Assessment) error {
	text := headline(assessment)
	blocks := Blocks(assessment)

	if x.webhookURL != "" {
		msg := &slack.WebhookMessage{
			Text:   text,
			Blocks: &slack.Blocks{BlockSet: blocks},
		}
		if err := slack.PostWebhookContext(ctx, x.webhookURL, msg); err != nil {
			return goerr.Wrap(err, "failed to post slack webhook", goerr.V("id", assessment.ID))
		}
		ctxlog.From(ctx).Info("Posted verdict to slack webhook", "id", assessment.ID)
		return nil
	}

	_, ts, err := x.client.PostMessageContext(ctx, x.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post slack message", goerr.V("channel", x.channel), goerr.V("id", assessment.ID))
	}

	ctxlog.From(ctx).Info("Posted verdict to slack", "channel", x.channel, "ts", ts)
	return nil
}

func headline(a *model.Assessment) string {
	if a.Verdict == nil {
		return "Dependency upgrade assessment"
	}
	v := a.Verdict
	if v.Changes == nil {
		return fmt.Sprintf("[%s] dependency upgrade", v.RiskLevel)
	}
	return fmt.Sprintf("[%s] %s:%s %s -> %s", v.RiskLevel,
		v.Changes.GroupID, v.Changes.ArtifactID, v.Changes.OldVersion, v.Changes.NewVersion)
}

// Blocks renders an assessment as Slack blocks
func Blocks(a *model.Assessment) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, headline(a), false, false)),
	}
	if a.Verdict == nil {
		return blocks
	}

	if a.Verdict.Comments != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, a.Verdict.Comments, false, false), nil, nil))
	}

	if len(a.Verdict.Usage) > 0 {
		var lines []string
		for _, u := range a.Verdict.Usage {
			line := fmt.Sprintf("• `%s` (%s)", u.Class, u.Path)
			if c := u.LastCommitInfo; c != nil {
				line += fmt.Sprintf(" last commit `%s` by %s", c.CommitID, c.Author)
				if c.JiraID != "" {
					line += " " + c.JiraID
				}
			}
			lines = append(lines, line)
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*Usage*\n"+strings.Join(lines, "\n"), false, false), nil, nil))
	}

	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("assessment `%s` from %s", a.ID, a.Source), false, false)))

	return blocks
}

var _ interfaces.ReportSink = &Slack{}

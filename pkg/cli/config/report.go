package config

import (
	"context"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/infra/report"
	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Report configures where finished assessments are published. Every sink is optional.
type Report struct {
	GCSBucket         string
	GCSPrefix         string
	FirestoreProject  string
	FirestoreDatabase string
	CredentialsFile   string
	SlackToken        string `masq:"secret"`
	SlackChannel      string
	SlackWebhookURL   string `masq:"secret"`
}

// Flags returns CLI flags for report sink configuration
func (c *Report) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "report-gcs-bucket",
			Usage:       "GCS bucket receiving <prefix>/<id>.json for every assessment",
			Destination: &c.GCSBucket,
			Sources:     cli.EnvVars("BUMPRISK_REPORT_GCS_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "report-gcs-prefix",
			Usage:       "Object prefix in the GCS bucket",
			Value:       report.DefaultGCSPrefix,
			Destination: &c.GCSPrefix,
			Sources:     cli.EnvVars("BUMPRISK_REPORT_GCS_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "report-firestore-project",
			Usage:       "Google Cloud project of the Firestore assessment history",
			Destination: &c.FirestoreProject,
			Sources:     cli.EnvVars("BUMPRISK_REPORT_FIRESTORE_PROJECT"),
		},
		&cli.StringFlag{
			Name:        "report-firestore-database",
			Usage:       "Firestore database ID",
			Destination: &c.FirestoreDatabase,
			Sources:     cli.EnvVars("BUMPRISK_REPORT_FIRESTORE_DATABASE"),
		},
		&cli.StringFlag{
			Name:        "google-credentials-file",
			Usage:       "Service account key for GCS and Firestore. Application default credentials are used when empty",
			Destination: &c.CredentialsFile,
			Sources:     cli.EnvVars("BUMPRISK_GOOGLE_CREDENTIALS_FILE"),
		},
		&cli.StringFlag{
			Name:        "report-slack-token",
			Usage:       "Slack bot token",
			Destination: &c.SlackToken,
			Sources:     cli.EnvVars("BUMPRISK_REPORT_SLACK_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "report-slack-channel",
			Usage:       "Slack channel for the bot token",
			Destination: &c.SlackChannel,
			Sources:     cli.EnvVars("BUMPRISK_REPORT_SLACK_CHANNEL"),
		},
		&cli.StringFlag{
			Name:        "report-slack-webhook-url",
			Usage:       "Slack incoming webhook URL",
			Destination: &c.SlackWebhookURL,
			Sources:     cli.EnvVars("BUMPRISK_REPORT_SLACK_WEBHOOK_URL"),
		},
	}
}

// NewSinks creates every configured sink. The returned close function is never nil.
func (c *Report) NewSinks(ctx context.Context) ([]interfaces.ReportSink, func(), error) {
	logger := ctxlog.From(ctx)

	var sinks []interfaces.ReportSink
	var closers []func() error
	closeAll := func() {
		for _, fn := range closers {
			if err := fn(); err != nil {
				logger.Warn("Failed to close report sink", "error", err)
			}
		}
	}

	var opts []option.ClientOption
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}

	if c.GCSBucket != "" {
		gcs, err := report.NewGCS(ctx, c.GCSBucket, c.GCSPrefix, opts...)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, gcs)
		closers = append(closers, gcs.Close)
	}

	if c.FirestoreProject != "" {
		fs, err := report.NewFirestore(ctx, c.FirestoreProject, c.FirestoreDatabase, opts...)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, fs)
		closers = append(closers, fs.Close)
	}

	switch {
	case c.SlackWebhookURL != "":
		s, err := report.NewSlackWebhook(c.SlackWebhookURL)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, s)
	case c.SlackToken != "":
		s, err := report.NewSlackBot(c.SlackToken, c.SlackChannel)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, s)
	}

	logger.Debug("Report sinks configured", "count", len(sinks))
	return sinks, closeAll, nil
}

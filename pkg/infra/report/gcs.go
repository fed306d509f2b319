package report

import (
	"context"
	"encoding/json"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

const DefaultGCSPrefix = "reports"

// GCS writes each assessment as a JSON object <prefix>/<id>.json
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("GCS bucket is required")
	}
	if prefix == "" {
		prefix = DefaultGCSPrefix
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// ObjectName returns the object path of an assessment report
func ObjectName(prefix, id string) string {
	if prefix == "" {
		prefix = DefaultGCSPrefix
	}
	return path.Join(prefix, id+".json")
}

func (x *GCS) Publish(ctx context.Context, assessment *model.Assessment) error {
	data, err := json.MarshalIndent(assessment, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal assessment", goerr.V("id", assessment.ID))
	}

	name := ObjectName(x.prefix, assessment.ID)
	w := x.client.Bucket(x.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write report", goerr.V("bucket", x.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to upload report", goerr.V("bucket", x.bucket), goerr.V("object", name))
	}

	ctxlog.From(ctx).Info("Report uploaded", "bucket", x.bucket, "object", name)
	return nil
}

func (x *GCS) Close() error {
	return x.client.Close()
}

var _ interfaces.ReportSink = &GCS{}

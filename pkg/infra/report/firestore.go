package report

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const assessmentCollection = "assessments"

// Firestore keeps assessment history as documents assessments/<id>
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("Firestore project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}
	return &Firestore{client: client}, nil
}

// Publish creates the document; an assessment already stored is left as is
func (x *Firestore) Publish(ctx context.Context, assessment *model.Assessment) error {
	doc := x.client.Collection(assessmentCollection).Doc(assessment.ID)
	if _, err := doc.Create(ctx, assessment); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			ctxlog.From(ctx).Warn("Assessment already stored", "id", assessment.ID)
			return nil
		}
		return goerr.Wrap(err, "failed to store assessment", goerr.V("id", assessment.ID))
	}

	ctxlog.From(ctx).Info("Assessment stored", "collection", assessmentCollection, "id", assessment.ID)
	return nil
}

// Get loads a stored assessment
func (x *Firestore) Get(ctx context.Context, id string) (*model.Assessment, error) {
	snap, err := x.client.Collection(assessmentCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get assessment", goerr.V("id", id))
	}

	var assessment model.Assessment
	if err := snap.DataTo(&assessment); err != nil {
		return nil, goerr.Wrap(err, "failed to decode assessment", goerr.V("id", id))
	}
	return &assessment, nil
}

func (x *Firestore) Close() error {
	return x.client.Close()
}

var _ interfaces.ReportSink = &Firestore{}

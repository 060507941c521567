package topo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/percona/linkseq/config"
	"github.com/percona/linkseq/errors"
	"github.com/percona/linkseq/stage"
)

//nolint:gochecknoglobals
var collectionBulkOptions = options.BulkWrite().
	SetOrdered(true).
	SetBypassDocumentValidation(false)

// CollectionWriter applies staged writes with the collection bulk write API.
type CollectionWriter struct {
	m *mongo.Client
}

var _ stage.BulkWriter = (*CollectionWriter)(nil)

func NewCollectionWriter(m *mongo.Client) *CollectionWriter {
	return &CollectionWriter{m: m}
}

// BulkWrite runs an ordered bulk write on ns, retrying transient errors.
func (w *CollectionWriter) BulkWrite(
	ctx context.Context,
	ns stage.Namespace,
	models []mongo.WriteModel,
) error {
	if len(models) == 0 {
		return nil
	}

	mcoll := w.m.Database(ns.Database).Collection(ns.Collection)

	err := RunWithRetry(ctx, func(ctx context.Context) error {
		_, err := mcoll.BulkWrite(ctx, models, collectionBulkOptions)

		return err //nolint:wrapcheck
	}, config.FlushRetryDelay, config.MaxFlushRetries)

	return errors.Wrap(err, "bulk write")
}

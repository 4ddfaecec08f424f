// Package mongo implements the staging stages of the export pipeline:
// replacing the staging collection with a normalized RecordSet, and
// reading the collection back for serialization.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/blobcast/pkg/config"
	"github.com/ajitpratap0/blobcast/pkg/recordset"
	"github.com/ajitpratap0/blobcast/pkg/xerrors"
)

// identityField is the store-assigned document identity. It never
// propagates past re-extraction.
const identityField = "_id"

// syncedAtField is stamped onto every staged document with the run's
// capture instant; all documents of one run carry the same value.
const syncedAtField = "synced_at"

// Stager owns the staging collection. Each operation establishes and
// tears down its own client; connections are never reused across stages
// or runs.
type Stager struct {
	cfg    *config.Config
	logger *zap.Logger

	// now is the clock used for the synced_at stamp.
	now func() time.Time
}

// NewStager creates a Stager for the configured staging store.
func NewStager(cfg *config.Config, logger *zap.Logger) *Stager {
	return &Stager{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "stager")),
		now:    time.Now,
	}
}

// connect establishes a client and verifies connectivity. The caller must
// disconnect it.
func (s *Stager) connect(ctx context.Context) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Connection)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(s.cfg.Mongo.URI))
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeConnection, "failed to connect to mongodb")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeConnection, "mongodb ping failed")
	}
	return client, nil
}

func (s *Stager) collection(client *mongo.Client) *mongo.Collection {
	return client.Database(s.cfg.Mongo.Database).Collection(s.cfg.Mongo.Collection)
}

// Stage replaces the full contents of the staging collection with the
// normalized record set. Every staged document is stamped with one
// synced_at instant captured at the start of the call.
//
// Replacement is delete-all-then-insert-all without a transaction: if the
// insert fails after the delete succeeded, the collection is left empty.
// That gap is part of this job's documented failure model, not hidden.
// An empty input still clears the collection and is not an error.
func (s *Stager) Stage(ctx context.Context, rs *recordset.RecordSet) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if derr := client.Disconnect(ctx); derr != nil {
			s.logger.Warn("failed to disconnect from mongodb", zap.Error(derr))
		}
	}()

	coll := s.collection(client)

	deleted, err := coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrorTypeQuery, "failed to clear staging collection")
	}
	s.logger.Info("staging collection cleared", zap.Int64("deleted", deleted.DeletedCount))

	if rs.Empty() {
		s.logger.Info("no records to stage")
		return nil
	}

	syncedAt := s.now().UTC().Truncate(time.Millisecond)
	docs := make([]interface{}, 0, rs.Len())
	for _, r := range rs.Rows() {
		docs = append(docs, toDocument(r, syncedAt))
	}

	result, err := coll.InsertMany(ctx, docs)
	if err != nil {
		// The delete already happened; the collection is empty now.
		s.logger.Error("staging insert failed after delete, collection left empty", zap.Error(err))
		return xerrors.Wrap(err, xerrors.ErrorTypeQuery, "failed to insert staged records")
	}

	s.logger.Info("records staged",
		zap.Int("inserted", len(result.InsertedIDs)),
		zap.Time("synced_at", syncedAt))

	return nil
}

// Unstage reads every document in the staging collection back into a
// RecordSet, stripping the store-assigned identity field. An empty
// collection yields an empty RecordSet, not an error.
func (s *Stager) Unstage(ctx context.Context) (*recordset.RecordSet, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if derr := client.Disconnect(ctx); derr != nil {
			s.logger.Warn("failed to disconnect from mongodb", zap.Error(derr))
		}
	}()

	cursor, err := s.collection(client).Find(ctx, bson.D{})
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeQuery, "failed to read staging collection")
	}
	defer cursor.Close(ctx)

	rs := recordset.New()
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, xerrors.Wrap(err, xerrors.ErrorTypeData, "failed to decode staged document")
		}
		rs.Append(fromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeQuery, "error iterating staging cursor")
	}

	s.logger.Info("staging collection read", zap.Int("rows", rs.Len()))

	return rs, nil
}

// toDocument converts a record into an ordered BSON document, normalizing
// every value and appending the synced_at stamp.
func toDocument(r recordset.Record, syncedAt time.Time) bson.D {
	doc := make(bson.D, 0, len(r)+1)
	for _, f := range recordset.NormalizeRecord(r) {
		doc = append(doc, bson.E{Key: f.Name, Value: f.Value})
	}
	return append(doc, bson.E{Key: syncedAtField, Value: syncedAt})
}

// fromDocument converts a BSON document back into a record, preserving
// field order and dropping the identity field.
func fromDocument(doc bson.D) recordset.Record {
	r := make(recordset.Record, 0, len(doc))
	for _, e := range doc {
		if e.Key == identityField {
			continue
		}
		r = append(r, recordset.Field{Name: e.Key, Value: fromBSONValue(e.Value)})
	}
	return r
}

// fromBSONValue maps driver decode types back onto the pipeline's scalar
// set. Temporal values come back as UTC time.Time.
func fromBSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.A:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = fromBSONValue(elem)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = fromBSONValue(e.Value)
		}
		return out
	case primitive.ObjectID:
		return val.Hex()
	default:
		return v
	}
}

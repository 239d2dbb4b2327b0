package recorder

import (
	"context"
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dennishilgert/fnexec/internal/app/executor"
)

const collectionName = "invocations"

type MongoOptions struct {
	Uri      string
	Database string
}

// History queries recorded invocations.
type History interface {
	Recent(ctx context.Context, function string, limit int64) ([]executor.Record, error)
}

type MongoSink interface {
	Sink
	History
}

type mongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSink connects to the database and prepares the invocations collection.
func NewMongoSink(ctx context.Context, opts MongoOptions) (MongoSink, error) {
	log.Infof("connecting to database server: %s", redactedUri(opts.Uri))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.Uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	collection := client.Database(opts.Database).Collection(collectionName)

	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "function", Value: 1}, {Key: "started_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &mongoSink{
		client:     client,
		collection: collection,
	}, nil
}

func (m *mongoSink) Name() string {
	return "mongo"
}

func (m *mongoSink) Store(ctx context.Context, record executor.Record) error {
	if _, err := m.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert invocation record: %w", err)
	}
	return nil
}

// Recent returns the latest records of a function, newest first.
func (m *mongoSink) Recent(ctx context.Context, function string, limit int64) ([]executor.Record, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	cursor, err := m.collection.Find(ctx, bson.D{{Key: "function", Value: function}}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to get invocation records: %w", err)
	}

	records := make([]executor.Record, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode invocation records: %w", err)
	}
	return records, nil
}

func (m *mongoSink) Close() error {
	log.Infof("closing database connection")
	return m.client.Disconnect(context.Background())
}

// redactedUri masks the password of a connection string for logging.
func redactedUri(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<invalid uri>"
	}
	return u.Redacted()
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDoc is one key-value pair. All keys live in a single shared
// collection, one document per key, with the key as the document id. The
// alternate collection-per-key layout would turn Keys into a collection
// enumeration and is deliberately not used.
type mongoDoc struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

const mongoCollection = "kv"

type mongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
	coll   *mongo.Collection
}

func openMongo(ctx context.Context, cfg Config, logger *slog.Logger) (*mongoBackend, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(cfg.connectTimeout())

	connectCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: mongo connect: %v", ErrBackend, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: mongo ping: %v", ErrBackend, err)
	}

	db := client.Database(cfg.mongoDatabase())
	logger.Info("mongo_open", "database", db.Name(), "collection", mongoCollection)
	return &mongoBackend{
		client: client,
		db:     db,
		coll:   db.Collection(mongoCollection),
	}, nil
}

func (m *mongoBackend) Name() string { return "MongoDB" }

func (m *mongoBackend) Set(ctx context.Context, key string, value any) error {
	text, err := encodeValue(value)
	if err != nil {
		return err
	}
	doc := mongoDoc{Key: key, Value: text}
	_, err = m.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: mongo set %q: %v", ErrBackend, key, err)
	}
	return nil
}

func (m *mongoBackend) Get(ctx context.Context, key string) (any, bool, error) {
	var doc mongoDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: mongo get %q: %v", ErrBackend, key, err)
	}
	return decodeValue(doc.Value), true, nil
}

func (m *mongoBackend) Delete(ctx context.Context, key string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("%w: mongo delete %q: %v", ErrBackend, key, err)
	}
	return nil
}

func (m *mongoBackend) Keys(ctx context.Context) ([]string, error) {
	cur, err := m.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("%w: mongo keys: %v", ErrBackend, err)
	}
	var docs []mongoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: mongo keys: %v", ErrBackend, err)
	}
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		keys = append(keys, d.Key)
	}
	return keys, nil
}

func (m *mongoBackend) Usage(ctx context.Context) (string, error) {
	var stats struct {
		DataSize float64 `bson:"dataSize"`
	}
	err := m.db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats)
	if err != nil {
		return "", fmt.Errorf("%w: mongo usage: %v", ErrBackend, err)
	}
	return humanize.IBytes(uint64(stats.DataSize)), nil
}

func (m *mongoBackend) Close() error {
	return m.client.Disconnect(context.Background())
}

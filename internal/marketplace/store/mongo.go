package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"marketplace-mirror/internal/marketplace/model"
	"marketplace-mirror/pkg/mongodb"
)

type MongoBackend struct {
	Log    *zap.Logger
	client *mongo.Client
	db     *mongo.Database
	coll   *mongo.Collection
}

// MongoConnector 返回一个用固定用户名/认证库连接 MongoDB 的 Connector
func MongoConnector(log *zap.Logger, username, authSource string, timeout time.Duration) Connector {
	return func(ctx context.Context, endpoint, key string) (Backend, error) {
		cli, err := mongodb.Connect(ctx, mongodb.ConnectOptions{
			Endpoint:   endpoint,
			Username:   username,
			Key:        key,
			AuthSource: authSource,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, err
		}
		return &MongoBackend{Log: log, client: cli}, nil
	}
}

func (b *MongoBackend) EnsureDatabase(ctx context.Context, name string) (bool, error) {
	names, err := b.client.ListDatabaseNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, fmt.Errorf("list databases: %w", err)
	}
	b.db = b.client.Database(name)
	// MongoDB 在第一个集合创建时才真正建库
	return len(names) == 0, nil
}

func (b *MongoBackend) EnsureCollection(ctx context.Context, name string) (bool, error) {
	if b.db == nil {
		return false, errors.New("database not selected")
	}
	names, err := b.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	created := false
	if len(names) == 0 {
		if err := b.db.CreateCollection(ctx, name); err != nil {
			return false, fmt.Errorf("create collection %s: %w", name, err)
		}
		created = true
	}
	b.coll = b.db.Collection(name)

	// id 唯一索引：exists 与 insert 不是原子操作
	_, err = b.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: model.IDField, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return created, fmt.Errorf("ensure id index: %w", err)
	}
	return created, nil
}

func (b *MongoBackend) CountByID(ctx context.Context, id string) (int64, error) {
	return b.coll.CountDocuments(ctx, bson.M{model.IDField: id}, options.Count().SetLimit(1))
}

func (b *MongoBackend) InsertDocument(ctx context.Context, doc bson.D) error {
	_, err := b.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (b *MongoBackend) ListDocuments(ctx context.Context, skip, limit int64) ([]bson.M, int64, error) {
	total, err := b.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: model.IDField, Value: 1}}).
		SetSkip(max(skip, 0)).
		SetLimit(limit).
		SetProjection(bson.M{"_id": 0})
	cur, err := b.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer func(cur *mongo.Cursor, ctx context.Context) {
		if err := cur.Close(ctx); err != nil {
			b.Log.Warn("Failed to close cursor", zap.Error(err))
		}
	}(cur, ctx)

	out := make([]bson.M, 0, limit)
	for cur.Next(ctx) {
		var m bson.M
		if err := cur.Decode(&m); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, cur.Err()
}

func (b *MongoBackend) GetDocument(ctx context.Context, id string) (bson.M, error) {
	var m bson.M
	err := b.coll.FindOne(ctx, bson.M{model.IDField: id}, options.FindOne().SetProjection(bson.M{"_id": 0})).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (b *MongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

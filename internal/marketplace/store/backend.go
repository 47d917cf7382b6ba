package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"marketplace-mirror/pkg/config"
)

// ErrDuplicate 后端拒绝了重复 id 的写入（并发运行时的竞争）
var ErrDuplicate = errors.New("duplicate document id")

// Backend 是文档库需要提供的最小能力集合
type Backend interface {
	// EnsureDatabase 检查数据库；不存在时返回 created=true（由后续建集合真正落地）
	EnsureDatabase(ctx context.Context, name string) (created bool, err error)
	EnsureCollection(ctx context.Context, name string) (created bool, err error)
	CountByID(ctx context.Context, id string) (int64, error)
	InsertDocument(ctx context.Context, doc bson.D) error
	ListDocuments(ctx context.Context, skip, limit int64) ([]bson.M, int64, error)
	GetDocument(ctx context.Context, id string) (bson.M, error)
	Close(ctx context.Context) error
}

// Connector 根据 endpoint 和凭据打开一个 Backend
type Connector func(ctx context.Context, endpoint, key string) (Backend, error)

// NewConnector 按 store.driver 选择后端
func NewConnector(log *zap.Logger, cfg config.StoreConfig) (Connector, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return MongoConnector(log, cfg.Username, cfg.AuthSource, cfg.Timeout), nil
	case config.DriverMemory:
		return MemoryConnector(NewMemoryBackend()), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"marketplace-mirror/internal/marketplace/model"
)

type State int

const (
	Uninitialized State = iota
	Ready
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Writer 把 feed 记录按 identity 去重写入文档库。
// 只有 Initialize 成功（Ready）之后才能调用 Exists/Insert。
type Writer struct {
	Log        *zap.Logger
	Connect    Connector
	Database   string
	Collection string

	backend Backend
	state   State
	initErr error
}

func NewWriter(log *zap.Logger, connect Connector, database, collection string) *Writer {
	return &Writer{
		Log:        log,
		Connect:    connect,
		Database:   database,
		Collection: collection,
	}
}

func (w *Writer) State() State {
	return w.state
}

// Err 返回初始化失败的原因
func (w *Writer) Err() error {
	return w.initErr
}

// Initialize 连接文档库，取得或创建数据库和集合
func (w *Writer) Initialize(ctx context.Context, endpoint, key string) error {
	if w.state != Uninitialized {
		return fmt.Errorf("%w: initialize called in state %s", model.ErrInit, w.state)
	}

	if err := w.initialize(ctx, endpoint, key); err != nil {
		w.state = Failed
		w.initErr = fmt.Errorf("%w: %w", model.ErrInit, err)
		w.Log.Error("Store initialization failed",
			zap.String("database", w.Database),
			zap.String("collection", w.Collection),
			zap.Error(err),
		)
		if w.backend != nil {
			if cerr := w.backend.Close(context.Background()); cerr != nil {
				w.Log.Warn("Failed to close store backend", zap.Error(cerr))
			}
			w.backend = nil
		}
		return w.initErr
	}

	w.state = Ready
	return nil
}

func (w *Writer) initialize(ctx context.Context, endpoint, key string) error {
	if w.Connect == nil {
		return errors.New("no store connector configured")
	}
	backend, err := w.Connect(ctx, endpoint, key)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	w.backend = backend

	dbCreated, err := backend.EnsureDatabase(ctx, w.Database)
	if err != nil {
		return fmt.Errorf("database %s: %w", w.Database, err)
	}
	collCreated, err := backend.EnsureCollection(ctx, w.Collection)
	if err != nil {
		return fmt.Errorf("collection %s: %w", w.Collection, err)
	}

	w.Log.Info("Store ready",
		zap.String("database", w.Database),
		zap.Bool("databaseCreated", dbCreated),
		zap.String("collection", w.Collection),
		zap.Bool("collectionCreated", collCreated),
	)
	return nil
}

// Exists 集合中是否已有 id == candidateID 的文档
func (w *Writer) Exists(ctx context.Context, candidateID string) (bool, error) {
	if w.state != Ready {
		return false, fmt.Errorf("%w: state %s", model.ErrNotReady, w.state)
	}
	n, err := w.backend.CountByID(ctx, candidateID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert 写入一条记录；同 identity 的文档已存在时静默跳过并返回 false
func (w *Writer) Insert(ctx context.Context, rec model.Record) (bool, error) {
	if w.state != Ready {
		return false, fmt.Errorf("%w: state %s", model.ErrNotReady, w.state)
	}

	identity, ok := rec.Identity()
	if !ok {
		return false, fmt.Errorf("%w: %w", model.ErrInsert, model.ErrMissingIdentity)
	}
	candidateID := model.IdentityKey(identity)

	exists, err := w.Exists(ctx, candidateID)
	if err != nil {
		return false, fmt.Errorf("%w: lookup %s: %w", model.ErrInsert, candidateID, err)
	}
	if exists {
		w.Log.Debug("Document already mirrored, skip",
			zap.String("identity", identity),
			zap.String("id", candidateID),
		)
		return false, nil
	}

	if err := w.backend.InsertDocument(ctx, rec.WithID(candidateID)); err != nil {
		if errors.Is(err, ErrDuplicate) {
			w.Log.Debug("Document inserted concurrently, skip",
				zap.String("identity", identity),
				zap.String("id", candidateID),
			)
			return false, nil
		}
		return false, fmt.Errorf("%w: write %s: %w", model.ErrInsert, candidateID, err)
	}
	return true, nil
}

// Backend 暴露底层连接给只读 API；未就绪时为 nil
func (w *Writer) Backend() Backend {
	if w.state != Ready {
		return nil
	}
	return w.backend
}

func (w *Writer) Close(ctx context.Context) error {
	if w.backend == nil {
		return nil
	}
	err := w.backend.Close(ctx)
	w.backend = nil
	w.state = Closed
	return err
}

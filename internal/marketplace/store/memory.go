package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"marketplace-mirror/internal/marketplace/model"
)

// memoryData 是同一个 MemoryBackend 的所有连接共享的数据
type memoryData struct {
	mu        sync.RWMutex
	databases map[string]map[string]map[string]bson.D // db -> collection -> id -> doc
}

// MemoryBackend 进程内文档库，用于 dry run 和测试。
// 每个连接（MemoryConnector 返回的实例）各自记录选中的库和集合，数据共享。
type MemoryBackend struct {
	data *memoryData
	db   string
	coll string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: &memoryData{databases: make(map[string]map[string]map[string]bson.D)}}
}

// MemoryConnector 每次连接返回一个新的连接实例，多次运行之间数据保留
func MemoryConnector(b *MemoryBackend) Connector {
	return func(context.Context, string, string) (Backend, error) {
		return &MemoryBackend{data: b.data}, nil
	}
}

func (b *MemoryBackend) EnsureDatabase(_ context.Context, name string) (bool, error) {
	b.data.mu.Lock()
	defer b.data.mu.Unlock()
	_, ok := b.data.databases[name]
	if !ok {
		b.data.databases[name] = make(map[string]map[string]bson.D)
	}
	b.db = name
	b.coll = ""
	return !ok, nil
}

func (b *MemoryBackend) EnsureCollection(_ context.Context, name string) (bool, error) {
	b.data.mu.Lock()
	defer b.data.mu.Unlock()
	db, ok := b.data.databases[b.db]
	if b.db == "" || !ok {
		return false, fmt.Errorf("database not selected")
	}
	_, ok = db[name]
	if !ok {
		db[name] = make(map[string]bson.D)
	}
	b.coll = name
	return !ok, nil
}

// collection 返回当前连接选中的集合；调用方持有锁
func (b *MemoryBackend) collection() map[string]bson.D {
	if b.coll == "" {
		return nil
	}
	return b.data.databases[b.db][b.coll]
}

func (b *MemoryBackend) CountByID(_ context.Context, id string) (int64, error) {
	b.data.mu.RLock()
	defer b.data.mu.RUnlock()
	if _, ok := b.collection()[id]; ok {
		return 1, nil
	}
	return 0, nil
}

func (b *MemoryBackend) InsertDocument(_ context.Context, doc bson.D) error {
	id, ok := docID(doc)
	if !ok {
		return fmt.Errorf("document has no string %q field", model.IDField)
	}
	b.data.mu.Lock()
	defer b.data.mu.Unlock()
	coll := b.collection()
	if coll == nil {
		return fmt.Errorf("collection not selected")
	}
	if _, exists := coll[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	coll[id] = doc
	return nil
}

func (b *MemoryBackend) ListDocuments(_ context.Context, skip, limit int64) ([]bson.M, int64, error) {
	b.data.mu.RLock()
	defer b.data.mu.RUnlock()
	coll := b.collection()

	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := int64(len(ids))
	start := min(max(skip, 0), total)
	end := total
	if limit >= 0 && limit < total-start {
		end = start + limit
	}

	out := make([]bson.M, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, toM(coll[id]))
	}
	return out, total, nil
}

func (b *MemoryBackend) GetDocument(_ context.Context, id string) (bson.M, error) {
	b.data.mu.RLock()
	defer b.data.mu.RUnlock()
	doc, ok := b.collection()[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return toM(doc), nil
}

func (b *MemoryBackend) Close(context.Context) error {
	return nil
}

func docID(doc bson.D) (string, bool) {
	for _, e := range doc {
		if e.Key == model.IDField {
			s, ok := e.Value.(string)
			return s, ok
		}
	}
	return "", false
}

func toM(doc bson.D) bson.M {
	m := make(bson.M, len(doc))
	for _, e := range doc {
		m[e.Key] = e.Value
	}
	return m
}

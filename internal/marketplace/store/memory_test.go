package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"marketplace-mirror/internal/marketplace/model"
	"marketplace-mirror/pkg/config"
)

func TestMemoryBackend_EnsureReportsCreation(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	_, err := b.EnsureCollection(ctx, "coll")
	assert.Error(t, err, "collection before database")

	created, err := b.EnsureDatabase(ctx, "db")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = b.EnsureDatabase(ctx, "db")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = b.EnsureCollection(ctx, "coll")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = b.EnsureCollection(ctx, "coll")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestMemoryBackend_InsertAndRead(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	_, _ = b.EnsureDatabase(ctx, "db")
	_, _ = b.EnsureCollection(ctx, "coll")

	require.NoError(t, b.InsertDocument(ctx, bson.D{{Key: "id", Value: "2"}, {Key: "name", Value: "b"}}))
	require.NoError(t, b.InsertDocument(ctx, bson.D{{Key: "id", Value: "1"}, {Key: "name", Value: "a"}}))
	require.NoError(t, b.InsertDocument(ctx, bson.D{{Key: "id", Value: "3"}, {Key: "name", Value: "c"}}))

	err := b.InsertDocument(ctx, bson.D{{Key: "id", Value: "1"}})
	assert.ErrorIs(t, err, ErrDuplicate)

	assert.Error(t, b.InsertDocument(ctx, bson.D{{Key: "name", Value: "no id"}}))

	n, err := b.CountByID(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	docs, total, err := b.ListDocuments(ctx, 1, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0]["name"])
	assert.Equal(t, "c", docs[1]["name"])

	docs, _, err = b.ListDocuments(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, docs)

	doc, err := b.GetDocument(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "c", doc["name"])

	_, err = b.GetDocument(ctx, "404")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryBackend_ListClampsWindow(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	_, _ = b.EnsureDatabase(ctx, "db")
	_, _ = b.EnsureCollection(ctx, "coll")
	for _, id := range []string{"1", "2"} {
		require.NoError(t, b.InsertDocument(ctx, bson.D{{Key: "id", Value: id}}))
	}

	docs, total, err := b.ListDocuments(ctx, -5, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, docs, 1)
	assert.Equal(t, "1", docs[0]["id"])

	docs, _, err = b.ListDocuments(ctx, 1, math.MaxInt64)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "2", docs[0]["id"])

	docs, _, err = b.ListDocuments(ctx, math.MaxInt64, math.MaxInt64)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryConnector_ConnectionsKeepOwnSelection(t *testing.T) {
	ctx := context.Background()
	connect := MemoryConnector(NewMemoryBackend())

	open := func(coll string) Backend {
		b, err := connect(ctx, "", "")
		require.NoError(t, err)
		_, err = b.EnsureDatabase(ctx, "db")
		require.NoError(t, err)
		_, err = b.EnsureCollection(ctx, coll)
		require.NoError(t, err)
		return b
	}

	listings := open("listings")
	archive := open("archive")
	require.NoError(t, listings.InsertDocument(ctx, bson.D{{Key: "id", Value: "1"}}))
	require.NoError(t, archive.InsertDocument(ctx, bson.D{{Key: "id", Value: "2"}}))

	// archive 选中集合后 listings 仍写读自己的集合
	n, err := listings.CountByID(ctx, "2")
	require.NoError(t, err)
	assert.Zero(t, n)
	_, total, err := listings.ListDocuments(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	// 同一集合的连接共享数据
	again := open("listings")
	n, err = again.CountByID(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.ErrorIs(t, again.InsertDocument(ctx, bson.D{{Key: "id", Value: "1"}}), ErrDuplicate)
}

func TestNewConnector(t *testing.T) {
	c, err := NewConnector(zap.NewNop(), config.StoreConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	b, err := c(context.Background(), "", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	c, err = NewConnector(zap.NewNop(), config.StoreConfig{Driver: config.DriverMongo})
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewConnector(zap.NewNop(), config.StoreConfig{Driver: "cosmos"})
	assert.Error(t, err)
}

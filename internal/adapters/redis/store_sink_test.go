package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/usts/internal/protocol"
)

func newTestSink(t *testing.T, mr *miniredis.Miniredis) *StoreSink {
	t.Helper()
	s, err := New(Config{URL: "redis://" + mr.Addr(), Timeout: 500 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreSink_Put(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newTestSink(t, mr)

	out := s.Put(context.Background(), "m1", "hello: world")
	require.True(t, out.OK, out.Message)
	assert.Equal(t, protocol.StoreSavedLine("m1"), out.Message)

	ok, err := mr.SIsMember(collectionsKey, DefaultCollection)
	require.NoError(t, err)
	assert.True(t, ok)

	docs, err := mr.List("messages:docs")
	require.NoError(t, err)
	require.Equal(t, []string{"messages:doc:1"}, docs)
	assert.Equal(t, "m1", mr.HGet("messages:doc:1", "messageId"))
	assert.Equal(t, "hello: world", mr.HGet("messages:doc:1", "message"))
}

func TestStoreSink_EachPutIsANewDocument(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newTestSink(t, mr)

	require.True(t, s.Put(context.Background(), "m1", "a").OK)
	require.True(t, s.Put(context.Background(), "m1", "b").OK)

	docs, err := mr.List("messages:docs")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, "b", mr.HGet("messages:doc:2", "message"))
}

func TestStoreSink_ExistingCollectionIsReused(t *testing.T) {
	mr := miniredis.RunT(t)
	_, err := mr.SAdd(collectionsKey, "archive")
	require.NoError(t, err)

	s, err := New(Config{URL: "redis://" + mr.Addr(), Collection: "archive"})
	require.NoError(t, err)
	defer s.Close()

	require.True(t, s.Put(context.Background(), "m1", "x").OK)
	members, err := mr.Members(collectionsKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive"}, members)
}

func TestStoreSink_UnreachableStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newTestSink(t, mr)
	mr.Close()

	out := s.Put(context.Background(), "m1", "x")
	assert.False(t, out.OK)
	assert.True(t, strings.HasPrefix(out.Message, "Message with id - m1 has !ERROR! with writing into DB on server side!"))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{URL: "http://not-redis"})
	assert.Error(t, err)
}

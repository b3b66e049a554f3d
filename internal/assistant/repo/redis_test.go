package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestConversationRoundTripAndLimit(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	repo := NewRedisConversationRepository(rdb, 15*time.Minute)

	require.NoError(t, repo.AddMessages(ctx, "u1",
		schema.UserMessage("what day is it?"),
		schema.AssistantMessage("Today is Friday.", nil),
	))
	require.NoError(t, repo.AddMessages(ctx, "u1", schema.UserMessage("thanks")))

	all, err := repo.LoadHistory(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, all.Messages, 3)
	assert.Equal(t, schema.User, all.Messages[0].Role)
	assert.Equal(t, "Today is Friday.", all.Messages[1].Content)

	last, err := repo.LoadHistory(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, last.Messages, 2)
	assert.Equal(t, "thanks", last.Messages[1].Content)

	assert.Equal(t, 15*time.Minute, mr.TTL("conversation:u1:messages"))
}

func TestConversationMissingKeyIsEmpty(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewRedisConversationRepository(rdb, 0)

	h, err := repo.LoadHistory(context.Background(), "nobody", 5)
	require.NoError(t, err)
	assert.Equal(t, "nobody", h.ConversationID)
	assert.Empty(t, h.Messages)
}

func TestConversationSkipsNilMessages(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	repo := NewRedisConversationRepository(rdb, time.Minute)

	require.NoError(t, repo.AddMessages(ctx, "u1", nil, nil))
	assert.False(t, mr.Exists("conversation:u1:messages"))

	require.NoError(t, repo.AddMessages(ctx, "u1", nil, schema.UserMessage("hi")))
	h, err := repo.LoadHistory(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, h.Messages, 1)
	assert.Equal(t, "hi", h.Messages[0].Content)
}

func TestConversationTrimsStoredList(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	repo := NewRedisConversationRepository(rdb, 0)

	for i := 0; i < maxStoredMessages+5; i++ {
		require.NoError(t, repo.AddMessages(ctx, "u2", schema.UserMessage(fmt.Sprintf("m%d", i))))
	}
	h, err := repo.LoadHistory(ctx, "u2", 0)
	require.NoError(t, err)
	require.Len(t, h.Messages, maxStoredMessages)
	assert.Equal(t, "m5", h.Messages[0].Content)
}

func TestConversationClear(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	repo := NewRedisConversationRepository(rdb, time.Minute)

	require.NoError(t, repo.AddMessages(ctx, "u3", schema.UserMessage("hi")))
	require.NoError(t, repo.ClearHistory(ctx, "u3"))
	assert.False(t, mr.Exists("conversation:u3:messages"))
}

func TestDenylist(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	dl := NewRedisTokenDenylist(rdb)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	dl.now = func() time.Time { return now }

	revoked, err := dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, dl.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	revoked, err = dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, time.Hour, mr.TTL("auth:revoked:jti-1"))

	// expired tokens are not stored
	require.NoError(t, dl.Revoke(ctx, "jti-2", now.Add(-time.Minute)))
	assert.False(t, mr.Exists("auth:revoked:jti-2"))
}

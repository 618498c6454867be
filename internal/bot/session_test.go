package bot

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	s, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Session{}, s)

	require.NoError(t, m.Set(ctx, 1, Session{State: StateOwnerPlate}))
	s, _ = m.Get(ctx, 1)
	assert.Equal(t, StateOwnerPlate, s.State)

	clock = clock.Add(time.Minute)
	s, _ = m.Get(ctx, 1)
	assert.Equal(t, Session{}, s, "expired session must read as empty")

	require.NoError(t, m.Set(ctx, 2, Session{State: StateVehiclePlate}))
	require.NoError(t, m.Clear(ctx, 2))
	s, _ = m.Get(ctx, 2)
	assert.Equal(t, Session{}, s)
}

func TestMemoryStore_NoTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)
	m.now = func() time.Time { return time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, m.Set(ctx, 1, Session{State: StatePersonDocType}))
	s, _ := m.Get(ctx, 1)
	assert.Equal(t, StatePersonDocType, s.State)
}

func TestRedisStore_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:0",
		DialTimeout: 100 * time.Millisecond,
		ReadTimeout: 100 * time.Millisecond,
		PoolTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	st := NewRedisStore(rdb, time.Minute)

	_, err := st.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.Error(t, st.Set(context.Background(), 1, Session{State: StateOwnerPlate}))
}

func TestMemoryStore_SetSweepsAbandonedChats(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	for id := int64(1); id <= 50; id++ {
		require.NoError(t, m.Set(ctx, id, Session{State: StateVehiclePlate}))
	}
	assert.Len(t, m.items, 50)

	// The first 50 chats never come back.
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, m.Set(ctx, 99, Session{State: StateOwnerPlate}))
	assert.Len(t, m.items, 1)

	s, _ := m.Get(ctx, 99)
	assert.Equal(t, StateOwnerPlate, s.State)
}

func TestMemoryStore_SweepKeepsLiveSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	require.NoError(t, m.Set(ctx, 1, Session{State: StatePersonDocType}))
	clock = clock.Add(30 * time.Second)
	require.NoError(t, m.Set(ctx, 2, Session{State: StateSignatureDocType}))
	clock = clock.Add(45 * time.Second)
	require.NoError(t, m.Set(ctx, 3, Session{State: StateOwnerPlate}))

	assert.Len(t, m.items, 2, "only chat 1 had expired")
	s, _ := m.Get(ctx, 2)
	assert.Equal(t, StateSignatureDocType, s.State)
}

func newMiniRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, time.Minute), mr
}

func TestRedisStore_RoundTripAndTTL(t *testing.T) {
	ctx := context.Background()
	st, mr := newMiniRedisStore(t)
	const chat = int64(-424242)

	s, err := st.Get(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, Session{}, s)

	require.NoError(t, st.Set(ctx, chat, Session{State: StateSignatureDocNumber, DocType: "CE"}))
	assert.True(t, mr.Exists("bot:session:-424242"))
	assert.Equal(t, time.Minute, mr.TTL(sessionKey(chat)))

	raw, err := mr.Get(sessionKey(chat))
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"firma_esperando_num_doc","doc_type":"CE"}`, raw)

	s, err = st.Get(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, Session{State: StateSignatureDocNumber, DocType: "CE"}, s)

	mr.FastForward(time.Minute)
	s, err = st.Get(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, Session{}, s, "expired session must read as empty")
}

func TestRedisStore_CorruptEntryAndClear(t *testing.T) {
	ctx := context.Background()
	st, mr := newMiniRedisStore(t)

	require.NoError(t, mr.Set(sessionKey(7), "{not json"))
	s, err := st.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, Session{}, s)

	require.NoError(t, st.Set(ctx, 7, Session{State: StateOwnerPlate}))
	require.NoError(t, st.Clear(ctx, 7))
	assert.False(t, mr.Exists(sessionKey(7)))
	s, err = st.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, Session{}, s)
}

func TestRedisStore_NoTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	st := NewRedisStore(rdb, -time.Second)

	require.NoError(t, st.Set(ctx, 1, Session{State: StatePersonDocNumber}))
	assert.Equal(t, time.Duration(0), mr.TTL(sessionKey(1)))
}

func TestRedisStore_ServerErrorsSurface(t *testing.T) {
	ctx := context.Background()
	st, mr := newMiniRedisStore(t)

	mr.SetError("ERR simulated failure")
	_, err := st.Get(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, st.Set(ctx, 1, Session{State: StateOwnerPlate}))
	assert.Error(t, st.Clear(ctx, 1))

	mr.SetError("")
	require.NoError(t, st.Set(ctx, 1, Session{State: StateOwnerPlate}))
}

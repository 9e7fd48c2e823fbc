package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/dice-duel-backend/internal/engine"
)

func newDoc(code string, version int, at time.Time) Document {
	room := engine.NewRoom(code, "", 1, engine.Fighter{ID: "f1", Name: "One", CurrentHP: 5, MaxHP: 5}, false, at)
	return Document{Version: version, Room: room}
}

// exerciseStore runs the same contract against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Get(ctx, "NOPE22")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Create(ctx, newDoc("AAAA22", 0, base)))
	require.ErrorIs(t, s.Create(ctx, newDoc("AAAA22", 0, base)), ErrCodeTaken)
	require.NoError(t, s.Create(ctx, newDoc("BBBB33", 0, base.Add(time.Minute))))

	got, err := s.Get(ctx, "AAAA22")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Version)
	assert.Equal(t, "One's room", got.Room.DisplayName)

	next := got
	next.Version = 1
	next.Room.DisplayName = "renamed"
	require.NoError(t, s.Save(ctx, next, 0))
	require.ErrorIs(t, s.Save(ctx, next, 0), ErrVersionConflict)
	require.ErrorIs(t, s.Save(ctx, newDoc("ZZZZ99", 1, base), 0), ErrNotFound)

	got, err = s.Get(ctx, "AAAA22")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "renamed", got.Room.DisplayName)

	list, err := s.List(ctx)
	require.NoError(t, err)
	codes := []string{}
	for _, d := range list {
		codes = append(codes, d.Room.Code)
	}
	assert.ElementsMatch(t, []string{"AAAA22", "BBBB33"}, codes)

	require.NoError(t, s.Delete(ctx, "AAAA22"))
	require.NoError(t, s.Delete(ctx, "AAAA22"))
	_, err = s.Get(ctx, "AAAA22")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Delete(ctx, "BBBB33"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_ListOrderedByCreation(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	base := time.Now()
	require.NoError(t, s.Create(ctx, newDoc("LATE22", 0, base.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, newDoc("EARLY2", 0, base)))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "EARLY2", list[0].Room.Code)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.FlushDB(context.Background()).Err())

	exerciseStore(t, NewRedis(rdb, time.Hour))
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	_, err = p.pool.Exec(ctx, `TRUNCATE rooms`)
	require.NoError(t, err)

	exerciseStore(t, p)
}

package presence

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	conns []Conn
	err   error
}

func (s staticSource) Conns(context.Context) ([]Conn, error) {
	return s.conns, s.err
}

func TestLocalStore_OnlineDedupesDevices(t *testing.T) {
	req := require.New(t)

	// Given bob on two devices
	store := NewLocalStore(staticSource{conns: []Conn{
		{ID: "c1", Username: "bob"},
		{ID: "c2", Username: "alice"},
		{ID: "c3", Username: "bob"},
	}})

	// When
	online, err := store.Online(context.Background())

	// Then
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, online)
}

func TestLocalStore_SourceError(t *testing.T) {
	boom := errors.New("boom")
	store := NewLocalStore(staticSource{err: boom})

	_, err := store.Online(context.Background())

	require.ErrorIs(t, err, boom)
}

// The Redis test needs a disposable server, e.g.
// PRESENCE_TEST_REDIS_URL=redis://localhost:6379/15.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("PRESENCE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PRESENCE_TEST_REDIS_URL not set")
	}
	req := require.New(t)
	ctx := context.Background()

	opts, err := redis.ParseURL(url)
	req.NoError(err)
	client := redis.NewClient(opts)
	req.NoError(client.FlushDB(ctx).Err())
	store := NewRedisStoreWithClient(client, time.Minute, time.Second)
	defer store.Close()

	// Given
	req.NoError(store.Add(ctx, Conn{ID: "c1", Username: "bob"}))
	req.NoError(store.Add(ctx, Conn{ID: "c2", Username: "bob"}))
	req.NoError(store.Add(ctx, Conn{ID: "c3", Username: "alice"}))

	// When
	online, err := store.Online(ctx)

	// Then
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, online)

	// When a connection goes away
	req.NoError(store.Remove(ctx, "c3"))
	online, err = store.Online(ctx)
	req.NoError(err)
	req.Equal([]string{"bob"}, online)

	// And a refresh keeps the TTL alive
	req.NoError(store.Refresh(ctx, []Conn{{ID: "c1", Username: "bob"}}))
	ttl, err := client.TTL(ctx, keyFor("c1")).Result()
	req.NoError(err)
	req.Greater(ttl, 50*time.Second)
}

package presence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/vedran77/courier/internal/config"
	"github.com/vedran77/courier/pkg/log"
)

const keyPrefix = "presence:conn:"

// RedisStore mirrors live connections into Redis so presence survives
// across server instances. Keys expire unless the heartbeat refreshes them.
type RedisStore struct {
	client            redis.UniversalClient
	ttl               time.Duration
	heartbeatInterval time.Duration
}

func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.PresenceTTL, cfg.HeartbeatInterval), nil
}

func NewRedisStoreWithClient(client redis.UniversalClient, ttl, heartbeatInterval time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, heartbeatInterval: heartbeatInterval}
}

func keyFor(connID string) string {
	return keyPrefix + connID
}

func (s *RedisStore) Add(ctx context.Context, c Conn) error {
	if err := s.client.Set(ctx, keyFor(c.ID), c.Username, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing presence of %s: %w", c.ID, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, connID string) error {
	if err := s.client.Del(ctx, keyFor(connID)).Err(); err != nil {
		return fmt.Errorf("removing presence of %s: %w", connID, err)
	}
	return nil
}

// Online scans every presence key, including other instances' connections.
func (s *RedisStore) Online(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning presence keys: %w", err)
	}
	if len(keys) == 0 {
		return []string{}, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading presence keys: %w", err)
	}

	// keys may expire between SCAN and MGET
	names := lo.Uniq(lo.FilterMap(vals, func(v any, _ int) (string, bool) {
		name, ok := v.(string)
		return name, ok && strings.TrimSpace(name) != ""
	}))
	sort.Strings(names)
	return names, nil
}

// Refresh rewrites the keys of conns with a fresh TTL.
func (s *RedisStore) Refresh(ctx context.Context, conns []Conn) error {
	if len(conns) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, c := range conns {
			p.Set(ctx, keyFor(c.ID), c.Username, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("refreshing presence: %w", err)
	}
	return nil
}

// RunHeartbeat refreshes the keys of every connection in source until ctx
// is cancelled.
func (s *RedisStore) RunHeartbeat(ctx context.Context, source Source) error {
	logger := log.Ctx(ctx).With().Str(log.FieldService, "presence").Logger()
	logger.Info().Dur("interval", s.heartbeatInterval).Dur("ttl", s.ttl).Msg("presence heartbeat started")

	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			conns, err := source.Conns(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn().Err(err).Msg("listing connections for heartbeat")
				continue
			}
			if err := s.Refresh(ctx, conns); err != nil {
				logger.Error().Err(err).Int("conns", len(conns)).Msg("presence heartbeat failed")
			}
		}
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// SPDX-License-Identifier: MIT

package position

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore keeps playback state in Redis, for deployments where several
// devices share one viewing profile.
type RedisStore struct {
	client *redis.Client
	log    zerolog.Logger
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, log zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to redis position store")
	return &RedisStore{client: client, log: log}, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Save(ctx context.Context, movieID string, seconds float64) error {
	return s.client.Set(ctx, positionKey(movieID), seconds, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context, movieID string) (float64, error) {
	return s.get(ctx, positionKey(movieID))
}

func (s *RedisStore) SaveSubtitleOffset(ctx context.Context, movieID, language string, seconds float64) error {
	return s.client.Set(ctx, subtitleKey(movieID, language), seconds, 0).Err()
}

func (s *RedisStore) LoadSubtitleOffset(ctx context.Context, movieID, language string) (float64, error) {
	return s.get(ctx, subtitleKey(movieID, language))
}

func (s *RedisStore) get(ctx context.Context, key string) (float64, error) {
	val, err := s.client.Get(ctx, key).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

var _ Store = (*RedisStore)(nil)

package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/config"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/session"
)

// SessionComponents holds the session store and, for Redis, its client.
type SessionComponents struct {
	Store  session.Store
	Client *redis.Client
}

// Ping checks the Redis connection. It is nil for the in-memory store.
func (s *SessionComponents) Ping() func(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return s.Client.Ping(ctx).Err()
	}
}

// Close closes the Redis client, if any.
func (s *SessionComponents) Close() error {
	if s.Client == nil {
		return nil
	}
	return s.Client.Close()
}

// SetupSessions returns a Redis-backed store when an address is
// configured, otherwise an in-memory one.
func SetupSessions(cfg config.SessionConfig, log logger.Logger) (*SessionComponents, error) {
	if cfg.RedisAddress == "" {
		log.Info("Using in-memory session store")
		return &SessionComponents{Store: session.NewMemoryStore()}, nil
	}

	client, err := session.NewRedisClient(session.RedisConfig{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect session redis: %w", err)
	}

	log.Info("Using Redis session store",
		logger.String("address", cfg.RedisAddress),
		logger.Int("db", cfg.RedisDB),
	)

	return &SessionComponents{
		Store:  session.NewRedisStore(client, cfg.KeyPrefix),
		Client: client,
	}, nil
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by this package.
const DefaultKeyPrefix = "numrt:"

var (
	// ErrNilClient is returned when a constructor receives a nil client.
	ErrNilClient = errors.New("redis client is nil")
	// ErrEmptyAddress is returned by Connect when no address is configured.
	ErrEmptyAddress = errors.New("redis address is empty")
)

// Config holds connection settings. Fields carry env tags for
// numrt.SetConfigFromEnvVars.
type Config struct {
	Address  string `env:"NUMRT_REDIS_ADDR"`
	Password string `env:"NUMRT_REDIS_PASSWORD"`
	DB       int64  `env:"NUMRT_REDIS_DB"`
}

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       int(cfg.DB),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}

	return client, nil
}

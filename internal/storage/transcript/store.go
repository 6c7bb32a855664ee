// Package transcript provides the durable append-only per-chat turn log.
package transcript

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

// Driver selects a Store implementation.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
)

var (
	ErrInvalidDriver = errors.New("unknown transcript driver")
	ErrInvalidConfig = errors.New("invalid transcript store configuration")
)

// Store is the append-only transcript log. Append failures are always
// reported to the caller, never swallowed.
type Store interface {
	Append(ctx context.Context, chatID string, turn chat.Turn) error
	LoadRecent(ctx context.Context, chatID string, n int) ([]chat.Turn, error)
	Close() error
}

// Options carries driver-specific settings.
type Options struct {
	SQLitePath string
	RedisAddr  string
	RedisTTL   time.Duration
}

// New constructs a Store for the given driver.
func New(driver Driver, opts Options) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return OpenSQLite(opts.SQLitePath)
	case DriverRedis:
		if opts.RedisAddr == "" {
			return nil, ErrInvalidConfig
		}
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		return NewRedisStore(client, opts.RedisTTL), nil
	default:
		return nil, ErrInvalidDriver
	}
}

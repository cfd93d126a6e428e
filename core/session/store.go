package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/murende/soko/core/config"
)

// ErrNotFound is returned by driver internals when a session is absent.
var ErrNotFound = errors.New("session: not found")

// Store persists conversation state between stateless gateway callbacks.
//
// LoadOrCreate applies lazy expiry: a session idle past the configured
// timeout (or already terminal for longer than the timeout) is replaced by
// a fresh one positioned at the tree root, so an abandoned attempt never
// leaks collected fields into the next dialog. Recently terminal sessions
// are returned as-is so gateway redeliveries can be answered idempotently.
type Store interface {
	LoadOrCreate(ctx context.Context, id, caller string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	SweepExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// Options carries driver-independent store settings.
type Options struct {
	IdleTimeout time.Duration
	RootNode    string
}

// NewStore selects and constructs the session store driver from config.
// The Postgres driver requires a connected database handle.
func NewStore(cfg coreconfig.SessionConfig, rootNode string, db *sqlx.DB) (Store, error) {
	opts := Options{
		IdleTimeout: time.Duration(cfg.IdleTimeoutSeconds) * time.Second,
		RootNode:    rootNode,
	}

	switch cfg.StoreDriver {
	case coreconfig.StoreMemory:
		return NewMemoryStore(opts), nil

	case coreconfig.StorePostgres:
		if db == nil {
			return nil, fmt.Errorf("session: postgres driver requires a database connection")
		}
		return NewPostgresStore(db, opts), nil

	case coreconfig.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client, opts), nil

	default:
		return nil, fmt.Errorf("session: unknown store driver %q", cfg.StoreDriver)
	}
}

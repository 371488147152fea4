package database

import (
	"context"
	"sync"

	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Opener establishes a new connection
type Opener func(ctx context.Context) (*DB, error)

// Provider hands out one process-wide connection, opened on first use.
// Concurrent first callers share a single connection attempt; a failed
// attempt is not remembered, so the next caller tries again.
type Provider struct {
	open  Opener
	group singleflight.Group
	log   zerolog.Logger

	mu sync.RWMutex
	db *DB
}

// NewProvider creates a provider that connects with the given settings
func NewProvider(cfg *config.DatabaseConfig, log zerolog.Logger) *Provider {
	return NewProviderWithOpener(func(ctx context.Context) (*DB, error) {
		return New(ctx, cfg, log)
	}, log)
}

// NewProviderWithOpener creates a provider around a custom opener
func NewProviderWithOpener(open Opener, log zerolog.Logger) *Provider {
	return &Provider{
		open: open,
		log:  log.With().Str("component", "db_provider").Logger(),
	}
}

// Conn returns the shared connection, connecting if needed
func (p *Provider) Conn(ctx context.Context) (*DB, error) {
	if db := p.cached(); db != nil {
		return db, nil
	}

	v, err, shared := p.group.Do("connect", func() (interface{}, error) {
		if db := p.cached(); db != nil {
			return db, nil
		}
		// The attempt is shared, so one caller's cancellation must not fail the others.
		db, err := p.open(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.db = db
		p.mu.Unlock()
		return db, nil
	})
	if err != nil {
		p.log.Error().Err(err).Bool("shared", shared).Msg("Database connection failed")
		return nil, err
	}
	return v.(*DB), nil
}

func (p *Provider) cached() *DB {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.db
}

// HealthCheck pings the shared connection
func (p *Provider) HealthCheck(ctx context.Context) error {
	db, err := p.Conn(ctx)
	if err != nil {
		return err
	}
	return db.HealthCheck(ctx)
}

// Close closes the shared connection if one was opened
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil || p.db.DB == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

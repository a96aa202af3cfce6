// Package store opens the optional postgres backend behind the run ledger
// and exposes it through small query interfaces repos can fake
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reviewprep/internal/platform/logger"
)

// Config selects and configures backends
type Config struct {
	AppName string
	PG      PGConfig
}

// PGConfig configures the ledger database
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool // log every statement at info
	SlowQueryMs int  // warn above this; 0 disables

	ConnectRetries int           // <=0 -> 20
	PingTimeout    time.Duration // per attempt; <=0 -> 3s
}

// Store holds whichever backends were enabled; the zero value has none
type Store struct {
	Log logger.Logger
	PG  TxRunner // nil when postgres is disabled
}

type (
	Row interface {
		Scan(dest ...any) error
	}

	Rows interface {
		Next() bool
		Scan(dest ...any) error
		Err() error
		Close()
	}

	CommandTag interface {
		String() string
		RowsAffected() int64
	}

	// RowQuerier is what a bound repo reads and writes through
	RowQuerier interface {
		Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
		Query(ctx context.Context, sql string, args ...any) (Rows, error)
		QueryRow(ctx context.Context, sql string, args ...any) Row
	}

	// TxRunner commits when fn returns nil and rolls back otherwise
	TxRunner interface {
		RowQuerier
		Tx(ctx context.Context, fn func(q RowQuerier) error) error
	}
)

// Option adjusts a Store before backends open
type Option func(*Store) error

// WithLogger sets the logger handed to backends
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// Open brings up every enabled backend, waiting for each to answer a ping
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	s.Log = s.Log.With().Str("app", cfg.AppName).Logger()

	if cfg.PG.Enabled {
		pg, err := openPG(ctx, cfg.AppName, cfg.PG, s)
		if err != nil {
			return nil, err
		}
		s.PG = pg
	}
	return s, nil
}

// Guard pings the backends that support it
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	if p, ok := s.PG.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
	}
	return nil
}

// Close releases the backends; nil ones are skipped
func (s *Store) Close(_ context.Context) error {
	if c, ok := s.PG.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

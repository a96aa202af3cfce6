package store

import (
	"context"
	"fmt"
	"time"

	"reviewprep/internal/platform/store/pg"
)

const (
	backoffStart   = 150 * time.Millisecond
	backoffCeiling = 2 * time.Second
)

// openPG builds the pool and waits for the server with capped exponential backoff
func openPG(ctx context.Context, appName string, cfg PGConfig, s *Store) (TxRunner, error) {
	pool, err := pg.Open(ctx, pg.Config{
		URL:      cfg.URL,
		MaxConns: cfg.MaxConns,
		AppName:  appName,
		Tracer:   pg.NewTracer(s.Log, time.Duration(cfg.SlowQueryMs)*time.Millisecond, cfg.LogSQL),
	})
	if err != nil {
		return nil, err
	}

	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = 20
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	var lastErr error
	backoff := backoffStart
	for i := range attempts {
		toCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = pool.Ping(toCtx)
		cancel()
		if lastErr == nil {
			return newPGPool(pool), nil
		}
		if i == attempts-1 {
			break
		}
		s.Log.Warn().Err(lastErr).Int("attempt", i+1).Dur("retry_in", backoff).Msg("postgres not ready")
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffCeiling)
	}

	pool.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, lastErr)
}

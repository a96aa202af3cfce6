package repokit

import (
	"context"
	"fmt"
	"time"
)

// BeginHook runs at the start of a transaction with the tx bound Queryer
type BeginHook func(ctx context.Context, q Queryer) error

// WithBeginHooks wraps a TxRunner and runs hooks before fn inside the same tx.
// Exec, Query and QueryRow outside Tx go straight to inner
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	return hookedTx{TxRunner: inner, hooks: hooks}
}

type hookedTx struct {
	TxRunner
	hooks []BeginHook
}

// Tx starts a tx on inner then runs all hooks before fn
func (h hookedTx) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.TxRunner.Tx(ctx, func(q Queryer) error {
		for _, hk := range h.hooks {
			if err := hk(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}

// LockTimeout bounds lock waits for the rest of the transaction
func LockTimeout(d time.Duration) BeginHook {
	return setLocal("lock_timeout", d)
}

// StatementTimeout bounds each statement for the rest of the transaction
func StatementTimeout(d time.Duration) BeginHook {
	return setLocal("statement_timeout", d)
}

func setLocal(name string, d time.Duration) BeginHook {
	stmt := fmt.Sprintf("SET LOCAL %s = '%dms'", name, d.Milliseconds())
	return func(ctx context.Context, q Queryer) error {
		_, err := q.Exec(ctx, stmt)
		return err
	}
}

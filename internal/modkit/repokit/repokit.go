// Package repokit holds the shared seams SQL repositories are built on
package repokit

import (
	"context"

	"reviewprep/internal/platform/store"
)

type (
	// Queryer is the read and write surface a bound repo uses
	Queryer = store.RowQuerier

	// TxRunner is a Queryer that can also open transactions
	TxRunner = store.TxRunner

	Rows       = store.Rows
	Row        = store.Row
	CommandTag = store.CommandTag
)

// Binder builds a repo bound to a Queryer, either the pool or a tx
type Binder[T any] interface {
	Bind(Queryer) T
}

// RequireQueryer panics on a nil q so wiring mistakes surface at startup
func RequireQueryer(q Queryer) Queryer {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return q
}

// WithTx runs fn in a transaction on tx
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}

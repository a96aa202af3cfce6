package modkit

import (
	"context"
	"testing"

	"reviewprep/internal/modkit/repokit"
	"reviewprep/internal/platform/config"
)

type nopTx struct{ repokit.Queryer }

func (nopTx) Tx(context.Context, func(repokit.Queryer) error) error { return nil }

func TestDeps_HasPG(t *testing.T) {
	t.Parallel()

	if (Deps{Cfg: config.New()}).HasPG() {
		t.Fatal("zero deps should not report a database")
	}
	if !(Deps{PG: nopTx{}}).HasPG() {
		t.Fatal("deps with PG should report a database")
	}
}

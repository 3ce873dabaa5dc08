package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx    *fakeTx
	calls int
	err   error
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestTxFromContext_Empty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx, got %v", tx)
	}
}

func TestWithTx_Commits(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	err := WithTx(context.Background(), b, func(ctx context.Context) error {
		if TxFromContext(ctx) == nil {
			t.Error("expected tx on context")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.tx.committed {
		t.Error("expected commit")
	}
	if b.tx.rolledBack {
		t.Error("did not expect rollback after commit")
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")
	err := WithTx(context.Background(), b, func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if b.tx.committed || !b.tx.rolledBack {
		t.Errorf("expected rollback only, committed=%v rolledBack=%v", b.tx.committed, b.tx.rolledBack)
	}
}

func TestWithTx_ReusesOuterTx(t *testing.T) {
	outer := &fakeTx{}
	b := &fakeBeginner{tx: &fakeTx{}}
	ctx := ContextWithTx(context.Background(), outer)

	err := WithTx(ctx, b, func(ctx context.Context) error {
		if TxFromContext(ctx) != outer {
			t.Error("expected outer tx to be reused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.calls != 0 {
		t.Errorf("expected no Begin call, got %d", b.calls)
	}
	if outer.committed {
		t.Error("outer tx must be committed by its owner")
	}
}

func TestWithTx_NoBeginner(t *testing.T) {
	err := WithTx(context.Background(), nil, func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrNoBeginner) {
		t.Fatalf("expected ErrNoBeginner, got %v", err)
	}
}

func TestWithTx_BeginError(t *testing.T) {
	b := &fakeBeginner{err: errors.New("pool closed")}
	called := false
	err := WithTx(context.Background(), b, func(ctx context.Context) error { called = true; return nil })
	if err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("fn must not run when Begin fails")
	}
}

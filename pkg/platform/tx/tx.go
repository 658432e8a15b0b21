// Package tx carries an open *sql.Tx through a context so stores invoked inside
// a unit of work (incident writes plus their outbox rows) join it. In-memory
// units of work carry an AfterCommit buffer instead.
package tx

import (
	"context"
	"database/sql"
	"sync"
)

type ctxKey struct{}

type afterCommitKey struct{}

// Executor is the query surface shared by *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx returns ctx carrying tx. A nil tx leaves ctx unchanged.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From returns the transaction carried by ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// ExecutorFor returns the transaction in ctx, falling back to db.
func ExecutorFor(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// AfterCommit collects writes that become visible only when the surrounding
// unit of work commits. A discarded buffer drops them.
type AfterCommit struct {
	mu  sync.Mutex
	fns []func()
}

// Add stages fn.
func (a *AfterCommit) Add(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fns = append(a.fns, fn)
}

// Run applies staged writes in the order they were added, once.
func (a *AfterCommit) Run() {
	a.mu.Lock()
	fns := a.fns
	a.fns = nil
	a.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func WithAfterCommit(ctx context.Context, a *AfterCommit) context.Context {
	return context.WithValue(ctx, afterCommitKey{}, a)
}

// AfterCommitFrom returns the buffer carried by ctx, if any.
func AfterCommitFrom(ctx context.Context) (*AfterCommit, bool) {
	a, ok := ctx.Value(afterCommitKey{}).(*AfterCommit)
	return a, ok && a != nil
}

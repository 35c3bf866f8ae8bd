// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrInvalidPath = errors.New("invalid path")
	// ErrAbort may be returned by a transaction function to give up
	// without writing. The transaction then reports Committed=false.
	ErrAbort = errors.New("transaction aborted")
)

// MaxTransactionAttempts bounds how often a transaction function is
// re-applied after losing a compare-and-swap race.
const MaxTransactionAttempts = 25

// TransactionFunc computes the new value from the current one. It may be
// called several times and must not have side effects.
type TransactionFunc func(current Snapshot) (any, error)

// TxResult reports the outcome of a transaction. Committed is false when
// the function aborted or every attempt lost a race.
type TxResult struct {
	Committed bool
	Snapshot  Snapshot
}

// Store is the hosted key-path document store contract.
type Store interface {
	Read(ctx context.Context, path string) (Snapshot, error)
	Write(ctx context.Context, path string, value any) error
	Update(ctx context.Context, updates map[string]any) error
	Transaction(ctx context.Context, path string, fn TransactionFunc) (TxResult, error)
	Subscribe(path string, cb func(Snapshot)) (cancel func(), err error)
}

// SQLStore implements Store on a node/revision table pair.
type SQLStore struct {
	db       *sql.DB
	postgres bool
	instance string

	locksMu sync.Mutex
	locks   map[string]*pathLock

	hub *hub
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open database whose schema has been created.
// dbType is "sqlite" or "postgres".
func NewSQLStore(db *sql.DB, dbType string) *SQLStore {
	return &SQLStore{
		db:       db,
		postgres: dbType == "postgres",
		instance: uuid.NewString(),
		locks:    make(map[string]*pathLock),
		hub:      newHub(),
	}
}

// Read returns the value stored at path.
func (s *SQLStore) Read(ctx context.Context, path string) (Snapshot, error) {
	p, err := CleanPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	return s.read(ctx, s.db, p)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) read(ctx context.Context, q querier, p string) (Snapshot, error) {
	prefix := p + "/"
	rows, err := q.QueryContext(ctx, `
		SELECT path, value FROM node
		WHERE path = $1 OR substr(path, 1, $2) = $3
	`, p, len(prefix), prefix)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read %s: %w", p, err)
	}
	defer rows.Close()

	leaves := make(map[string]string)
	for rows.Next() {
		var path, value string
		if err := rows.Scan(&path, &value); err != nil {
			return Snapshot{}, fmt.Errorf("failed to scan %s: %w", p, err)
		}
		leaves[path] = value
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("failed to read %s: %w", p, err)
	}

	v, err := unflatten(p, leaves)
	if err != nil {
		return Snapshot{}, fmt.Errorf("corrupt value under %s: %w", p, err)
	}
	return Snapshot{Path: p, Value: v}, nil
}

// Write replaces the subtree at path. A nil value deletes it.
func (s *SQLStore) Write(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

// Update writes several subtrees in one database transaction. Paths must
// not overlap each other.
func (s *SQLStore) Update(ctx context.Context, updates map[string]any) error {
	writes, err := prepareWrites(updates)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	if _, err := s.commit(ctx, writes, "", 0); err != nil {
		return err
	}
	s.publish(ctx, writes.paths())
	return nil
}

// Transaction applies fn to the latest value at path and commits the
// result only if nothing else wrote the path in between, retrying
// otherwise. Transactions on one path within this store run one at a time.
func (s *SQLStore) Transaction(ctx context.Context, path string, fn TransactionFunc) (TxResult, error) {
	p, err := CleanPath(path)
	if err != nil {
		return TxResult{}, err
	}

	unlock := s.lockPath(p)
	result, err := s.transact(ctx, p, fn)
	unlock()

	if err == nil && result.Committed {
		s.publish(ctx, []string{p})
	}
	return result, err
}

func (s *SQLStore) transact(ctx context.Context, p string, fn TransactionFunc) (TxResult, error) {
	var current Snapshot
	for attempt := 1; attempt <= MaxTransactionAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return TxResult{}, err
		}

		rev, err := s.revision(ctx, p)
		if err != nil {
			return TxResult{}, err
		}
		current, err = s.read(ctx, s.db, p)
		if err != nil {
			return TxResult{}, err
		}

		next, err := fn(current)
		if errors.Is(err, ErrAbort) {
			return TxResult{Committed: false, Snapshot: current}, nil
		}
		if err != nil {
			return TxResult{}, err
		}

		writes, err := prepareWrites(map[string]any{p: next})
		if err != nil {
			return TxResult{}, err
		}
		ok, err := s.commit(ctx, writes, p, rev)
		if err != nil {
			return TxResult{}, err
		}
		if ok {
			value, err := normalize(next)
			if err != nil {
				return TxResult{}, err
			}
			return TxResult{Committed: true, Snapshot: Snapshot{Path: p, Value: value}}, nil
		}

		slog.Debug("transaction lost race, retrying", "path", p, "attempt", attempt)
	}

	slog.Warn("transaction not committed", "path", p, "attempts", MaxTransactionAttempts)
	return TxResult{Committed: false, Snapshot: current}, nil
}

func (s *SQLStore) revision(ctx context.Context, p string) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT rev FROM revision WHERE path = $1`, p).Scan(&rev)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read revision of %s: %w", p, err)
	}
	return rev, nil
}

type pendingWrite struct {
	path   string
	leaves map[string]string
}

type writeSet []pendingWrite

func (w writeSet) paths() []string {
	out := make([]string, len(w))
	for i, pw := range w {
		out[i] = pw.path
	}
	return out
}

func prepareWrites(updates map[string]any) (writeSet, error) {
	var writes writeSet
	for path, value := range updates {
		p, err := CleanPath(path)
		if err != nil {
			return nil, err
		}
		v, err := normalize(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode value for %s: %w", p, err)
		}
		leaves := make(map[string]string)
		if err := flatten(p, v, leaves); err != nil {
			return nil, err
		}
		writes = append(writes, pendingWrite{path: p, leaves: leaves})
	}

	sort.Slice(writes, func(i, j int) bool { return writes[i].path < writes[j].path })
	for i := 1; i < len(writes); i++ {
		if overlaps(writes[i-1].path, writes[i].path) {
			return nil, fmt.Errorf("%w: %s overlaps %s", ErrInvalidPath, writes[i-1].path, writes[i].path)
		}
	}
	return writes, nil
}

// commit applies writes in one database transaction. When casPath is set
// the commit only happens if its revision still equals casRev.
func (s *SQLStore) commit(ctx context.Context, writes writeSet, casPath string, casRev int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range lockOrder(writes.paths()) {
		if p == casPath {
			ok, err := s.compareAndBump(ctx, tx, p, casRev)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO revision (path, rev) VALUES ($1, 1)
			ON CONFLICT (path) DO UPDATE SET rev = revision.rev + 1
		`, p); err != nil {
			return false, fmt.Errorf("failed to bump revision of %s: %w", p, err)
		}
	}

	for _, w := range writes {
		prefix := w.path + "/"
		if _, err := tx.ExecContext(ctx, `
			UPDATE revision SET rev = rev + 1 WHERE substr(path, 1, $1) = $2
		`, len(prefix), prefix); err != nil {
			return false, fmt.Errorf("failed to bump revisions under %s: %w", w.path, err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM node WHERE path = $1 OR substr(path, 1, $2) = $3
		`, w.path, len(prefix), prefix); err != nil {
			return false, fmt.Errorf("failed to clear %s: %w", w.path, err)
		}

		// A scalar stored at an ancestor would shadow the new subtree.
		for _, a := range ancestors(w.path) {
			if _, err := tx.ExecContext(ctx, `DELETE FROM node WHERE path = $1`, a); err != nil {
				return false, fmt.Errorf("failed to clear ancestor %s: %w", a, err)
			}
		}

		for path, value := range w.leaves {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO node (path, value, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)
			`, path, value); err != nil {
				return false, fmt.Errorf("failed to write %s: %w", path, err)
			}
		}

		if s.postgres {
			if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, s.instance+" "+w.path); err != nil {
				return false, fmt.Errorf("failed to notify change of %s: %w", w.path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

func (s *SQLStore) compareAndBump(ctx context.Context, tx *sql.Tx, p string, expected int64) (bool, error) {
	var res sql.Result
	var err error
	if expected == 0 {
		res, err = tx.ExecContext(ctx, `
			INSERT INTO revision (path, rev) VALUES ($1, 1)
			ON CONFLICT (path) DO NOTHING
		`, p)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE revision SET rev = rev + 1 WHERE path = $1 AND rev = $2
		`, p, expected)
	}
	if err != nil {
		return false, fmt.Errorf("failed to compare revision of %s: %w", p, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to compare revision of %s: %w", p, err)
	}
	return n == 1, nil
}

func (s *SQLStore) lockPath(p string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[p]
	if !ok {
		l = &pathLock{}
		s.locks[p] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, p)
		}
		s.locksMu.Unlock()
	}
}

// Subscribe calls cb with the current value at path and again after every
// committed write that touches the path, its ancestors or descendants.
// Calls for one subscription never run concurrently.
func (s *SQLStore) Subscribe(path string, cb func(Snapshot)) (func(), error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	sub := s.hub.add(p, cb)
	s.deliver(context.Background(), sub)
	return func() { s.hub.remove(sub) }, nil
}

// publish notifies subscribers overlapping any of the changed paths.
func (s *SQLStore) publish(ctx context.Context, changed []string) {
	for _, sub := range s.hub.matching(changed) {
		s.deliver(ctx, sub)
	}
}

func (s *SQLStore) deliver(ctx context.Context, sub *subscription) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed.Load() {
		return
	}
	snap, err := s.read(context.WithoutCancel(ctx), s.db, sub.path)
	if err != nil {
		slog.Error("subscription read failed", "path", sub.path, "error", err)
		return
	}
	sub.cb(snap)
}

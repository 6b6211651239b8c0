package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLite allows one writer at a time. Card submissions, annotation syncs,
// and key minting can collide on the same file, so writes retry a BUSY
// handful of times with a growing pause before giving up.
const busyAttempts = 3

// IsBusy reports whether err is SQLite's BUSY/locked condition, the only
// failure class worth retrying at this layer.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// RunTx runs fn inside a transaction, retrying the whole transaction when
// the database is busy. fn must tolerate being re-run from scratch.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := runTxOnce(ctx, db, fn)
		if err == nil {
			return nil
		}
		if !IsBusy(err) || attempt == busyAttempts {
			return err
		}
		if werr := waitBusy(ctx, attempt); werr != nil {
			return werr
		}
	}
}

func runTxOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbopen: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}

// Exec runs one statement with the same busy-retry discipline as RunTx.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	for attempt := 1; ; attempt++ {
		result, err := db.ExecContext(ctx, query, args...)
		if err == nil {
			return result, nil
		}
		if !IsBusy(err) || attempt == busyAttempts {
			return nil, err
		}
		if werr := waitBusy(ctx, attempt); werr != nil {
			return nil, werr
		}
	}
}

// waitBusy pauses 100 ms times the attempt number, or returns early when
// the context ends first.
func waitBusy(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt) * 100 * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("dbopen: cancelled while waiting on a busy database: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

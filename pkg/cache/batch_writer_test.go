package cache

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func closeWithTimeout(t *testing.T, bw *BatchWriter) {
	t.Helper()
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- bw.Close()
	}()
	select {
	case err := <-doneCh:
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for batch commit/close")
	}
}

func TestBatchWriterFlushesOnClose(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	bw := NewBatchWriter(db, 10, 0)
	for _, val := range []string{"A", "B", "C"} {
		v := val
		if err := bw.Submit(func(tx DBExecutor) error {
			_, err := tx.Exec("INSERT INTO test (val) VALUES (?)", v)
			return err
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	closeWithTimeout(t, bw)

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM test").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows, got %d", count)
	}
}

func TestBatchWriterFlushesWhenBufferFull(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	bw := NewBatchWriter(db, 2, 0)
	for i := 0; i < 2; i++ {
		n := i
		if err := bw.Submit(func(tx DBExecutor) error {
			_, err := tx.Exec("INSERT INTO test (val) VALUES (?)", fmt.Sprintf("row-%d", n))
			return err
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	// The full buffer was handed to the committer; poll until it lands.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM test").Scan(&count); err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if count == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("batch never committed, have %d rows", count)
		}
		time.Sleep(10 * time.Millisecond)
	}
	closeWithTimeout(t, bw)
}

func TestBatchWriterRollbackOnError(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	bw := NewBatchWriter(db, 10, 0)
	bw.Submit(func(tx DBExecutor) error {
		_, err := tx.Exec("INSERT INTO test (val) VALUES (?)", "A")
		return err
	})
	bw.Submit(func(tx DBExecutor) error {
		return fmt.Errorf("boom")
	})

	if err := bw.Close(); err == nil {
		t.Fatal("expected close to surface the batch error")
	}

	// The whole batch rolled back, including the good write.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM test").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, got %d rows", count)
	}
}

func TestBatchWriterRejectsSubmitAfterClose(t *testing.T) {
	db := openTestDB(t)
	bw := NewBatchWriter(db, 10, 0)
	closeWithTimeout(t, bw)

	err := bw.Submit(func(tx DBExecutor) error { return nil })
	if err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed, got %v", err)
	}
	if err := bw.Close(); err != ErrBatchWriterClosed {
		t.Fatalf("expected ErrBatchWriterClosed on double close, got %v", err)
	}
}

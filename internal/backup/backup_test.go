package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func fakeDump(calls *atomic.Int32) DumpFunc {
	return func(ctx context.Context, dsn, path string) error {
		calls.Add(1)
		return os.WriteFile(path, []byte("-- dump of "+dsn+"\n"), 0o600)
	}
}

func TestCreateBackup_WritesDumpAndMetadata(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	m := NewManager("postgres://test", dir, 10).WithDumpFunc(fakeDump(&calls))

	info, err := m.CreateBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if info.Type != TriggerManual || info.SizeBytes == 0 {
		t.Errorf("unexpected info: %+v", info)
	}
	if _, err := os.Stat(filepath.Join(dir, info.Filename)); err != nil {
		t.Errorf("dump file missing: %v", err)
	}

	list, err := m.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Filename != info.Filename {
		t.Errorf("ListBackups() = %+v", list)
	}
}

func TestCreateBackup_DumpFailure(t *testing.T) {
	m := NewManager("postgres://test", t.TempDir(), 10).WithDumpFunc(func(ctx context.Context, dsn, path string) error {
		return errors.New("pg_dump: not found")
	})
	if _, err := m.CreateBackup(context.Background(), TriggerManual); err == nil {
		t.Fatal("expected dump failure to surface")
	}
}

func TestRecordMutation_Threshold(t *testing.T) {
	var calls atomic.Int32
	m := NewManager("postgres://test", t.TempDir(), 3).WithDumpFunc(fakeDump(&calls))

	m.RecordMutation()
	m.RecordMutation()
	if m.PendingMutations() != 2 {
		t.Fatalf("PendingMutations() = %d, want 2", m.PendingMutations())
	}
	m.RecordMutation()
	m.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected one threshold backup, got %d", calls.Load())
	}
	if m.PendingMutations() != 0 {
		t.Errorf("counter should reset after a threshold backup, got %d", m.PendingMutations())
	}
}

func TestListBackups_MissingDir(t *testing.T) {
	m := NewManager("postgres://test", filepath.Join(t.TempDir(), "nope"), 3)
	list, err := m.ListBackups()
	if err != nil || len(list) != 0 {
		t.Errorf("ListBackups() = %v, %v", list, err)
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	m := NewManager("postgres://test", t.TempDir(), 3)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestCreateBackup_RemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "backup_daily_old.sql")
	if err := os.WriteFile(stale, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	m := NewManager("postgres://test", dir, 10).WithDumpFunc(fakeDump(&calls))
	info, err := m.CreateBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expired backup should be removed, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, info.Filename)); err != nil {
		t.Errorf("fresh backup removed: %v", err)
	}
}

package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// Check that the file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreRecordAndListSessions(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if err := store.RecordSession("died", 120, 3, 85); err != nil {
		t.Fatalf("RecordSession() failed: %v", err)
	}
	if err := store.RecordSession("quit", 40, 1, 10); err != nil {
		t.Fatalf("RecordSession() failed: %v", err)
	}
	if err := store.RecordSession("died", 300, 5, 210); err != nil {
		t.Fatalf("RecordSession() failed: %v", err)
	}

	records, err := store.RecentSessions(10)
	if err != nil {
		t.Fatalf("RecentSessions() failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(records))
	}

	// Newest first
	if records[0].Turns != 300 || records[0].Result != "died" {
		t.Errorf("Expected the latest session first, got %+v", records[0])
	}
	if records[2].Turns != 120 {
		t.Errorf("Expected the earliest session last, got %+v", records[2])
	}
}

func TestStoreRecentSessionsLimit(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	for i := 0; i < 5; i++ {
		store.RecordSession("quit", uint64(i), 1, 0)
	}

	records, err := store.RecentSessions(3)
	if err != nil {
		t.Fatalf("RecentSessions() failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 sessions with limit, got %d", len(records))
	}
}

func TestStoreDeepestRun(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// No sessions yet
	depth, err := store.DeepestRun()
	if err != nil {
		t.Fatalf("DeepestRun() failed: %v", err)
	}
	if depth != 0 {
		t.Errorf("Expected depth 0 with no sessions, got %d", depth)
	}

	store.RecordSession("died", 100, 2, 40)
	store.RecordSession("died", 500, 7, 300)
	store.RecordSession("quit", 50, 1, 5)

	depth, err = store.DeepestRun()
	if err != nil {
		t.Fatalf("DeepestRun() failed: %v", err)
	}
	if depth != 7 {
		t.Errorf("Expected deepest run 7, got %d", depth)
	}
}

func TestStoreClearSessions(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	store.RecordSession("died", 100, 2, 40)
	store.RecordSession("quit", 50, 1, 5)

	if err := store.ClearSessions(); err != nil {
		t.Fatalf("ClearSessions() failed: %v", err)
	}

	records, _ := store.RecentSessions(10)
	if len(records) != 0 {
		t.Errorf("Expected 0 sessions after clear, got %d", len(records))
	}
}

func TestStoreSnapshotIndex(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	err = store.RecordSnapshot("save1", "/saves/save1.state", "/saves/save1.arena", 42, 1024)
	if err != nil {
		t.Fatalf("RecordSnapshot() failed: %v", err)
	}
	err = store.RecordSnapshot("save2", "/saves/save2.state", "/saves/save2.arena", 99, 2048)
	if err != nil {
		t.Fatalf("RecordSnapshot() failed: %v", err)
	}

	records, err := store.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(records))
	}
	if records[0].Name != "save2" {
		t.Errorf("Expected newest snapshot first, got %q", records[0].Name)
	}

	rec, err := store.SnapshotByName("save1")
	if err != nil {
		t.Fatalf("SnapshotByName() failed: %v", err)
	}
	if rec == nil || rec.Turn != 42 || rec.ArenaBytes != 1024 {
		t.Errorf("Snapshot record wrong: %+v", rec)
	}

	// Unknown name is nil, not an error
	rec, err = store.SnapshotByName("missing")
	if err != nil {
		t.Fatalf("SnapshotByName() failed: %v", err)
	}
	if rec != nil {
		t.Errorf("Expected nil for an unknown name, got %+v", rec)
	}
}

func TestStoreSnapshotReplacesName(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	store.RecordSnapshot("save", "/a.state", "/a.arena", 10, 100)
	store.RecordSnapshot("save", "/a.state", "/a.arena", 25, 100)

	records, err := store.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 snapshot after overwrite, got %d", len(records))
	}
	if records[0].Turn != 25 {
		t.Errorf("Expected the newer record to win, got turn %d", records[0].Turn)
	}
}

func TestStoreDeleteSnapshot(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	store.RecordSnapshot("gone", "/g.state", "/g.arena", 1, 10)
	if err := store.DeleteSnapshot("gone"); err != nil {
		t.Fatalf("DeleteSnapshot() failed: %v", err)
	}

	rec, _ := store.SnapshotByName("gone")
	if rec != nil {
		t.Error("Snapshot should be gone from the index")
	}
}

func TestStoreNestedPath(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	// Verify nested directories were created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

package store

import (
	"testing"

	"go.uber.org/goleak"

	"nautilus/internal/model"
)

// TestMain ensures the retry/locking path exercised below (Query, Execute,
// Transaction under Store.mu) leaves no goroutines running after the
// package's tests finish.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestStore mirrors the teacher's TestNewLocalStore pattern: an
// in-memory SQLite database, fresh per test.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := newTestStore(t)
	for _, table := range []string{"gravity", "access_log", "mirrors"} {
		if !tableExists(s.db, table) {
			t.Errorf("expected table %s to exist after Open", table)
		}
	}
}

func TestRecordAccessCreatesChunkAndLogs(t *testing.T) {
	s := newTestStore(t)
	key := model.ChunkKey{Path: "notes.md"}

	if err := s.RecordAccess(key, "hello", nil, ""); err != nil {
		t.Fatalf("RecordAccess failed: %v", err)
	}

	rec, err := s.GetGravityRecord(key)
	if err != nil {
		t.Fatalf("GetGravityRecord failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected chunk to exist after RecordAccess")
	}
	if rec.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1", rec.AccessCount)
	}
	if rec.LastAccessedAt == nil {
		t.Error("LastAccessedAt is nil, want non-nil")
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.AccessLogCount != 1 {
		t.Errorf("AccessLogCount = %d, want 1", stats.AccessLogCount)
	}
}

func TestRecordAccessTwiceIncrements(t *testing.T) {
	s := newTestStore(t)
	key := model.ChunkKey{Path: "a.md"}

	for i := 0; i < 3; i++ {
		if err := s.RecordAccess(key, "q", nil, ""); err != nil {
			t.Fatalf("RecordAccess #%d failed: %v", i, err)
		}
	}
	rec, err := s.GetGravityRecord(key)
	if err != nil {
		t.Fatalf("GetGravityRecord failed: %v", err)
	}
	if rec.AccessCount != 3 {
		t.Errorf("AccessCount = %d, want 3", rec.AccessCount)
	}
}

func TestBoostRejectsNegativeAmount(t *testing.T) {
	s := newTestStore(t)
	err := s.Boost(model.ChunkKey{Path: "a.md"}, -1)
	if err == nil {
		t.Fatal("expected error for negative boost amount")
	}
}

func TestBoostAccumulates(t *testing.T) {
	s := newTestStore(t)
	key := model.ChunkKey{Path: "a.md"}
	if err := s.Boost(key, 2.0); err != nil {
		t.Fatalf("Boost failed: %v", err)
	}
	if err := s.Boost(key, 1.5); err != nil {
		t.Fatalf("Boost failed: %v", err)
	}
	rec, _ := s.GetGravityRecord(key)
	if rec.ExplicitImportance != 3.5 {
		t.Errorf("ExplicitImportance = %v, want 3.5", rec.ExplicitImportance)
	}
}

func TestLinkMirrorsAndResolve(t *testing.T) {
	s := newTestStore(t)
	if err := s.LinkMirrors("daily-2026-01-01", "memory/2026-01-01.md", "memory/corridors/corridor-2026-01-01.md", ""); err != nil {
		t.Fatalf("LinkMirrors failed: %v", err)
	}

	entries, err := s.MirrorsByEventKey("daily-2026-01-01")
	if err != nil {
		t.Fatalf("MirrorsByEventKey failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Granularity != model.GranularityRaw {
		t.Errorf("entries[0].Granularity = %s, want raw", entries[0].Granularity)
	}

	key, err := s.EventKeyForPath("memory/2026-01-01.md")
	if err != nil {
		t.Fatalf("EventKeyForPath failed: %v", err)
	}
	if key != "daily-2026-01-01" {
		t.Errorf("EventKeyForPath = %q, want daily-2026-01-01", key)
	}
}

func TestLinkMirrorsOverwritesExisting(t *testing.T) {
	s := newTestStore(t)
	if err := s.LinkMirrors("k", "raw.md", "", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.LinkMirrors("k", "raw-v2.md", "", ""); err != nil {
		t.Fatal(err)
	}
	entries, err := s.MirrorsByEventKey("k")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Path != "raw-v2.md" {
		t.Errorf("expected single overwritten row, got %+v", entries)
	}
}

func TestVacuumPrunesOldAccessLogAndOrphans(t *testing.T) {
	s := newTestStore(t)
	if err := s.RecordAccess(model.ChunkKey{Path: "a.md"}, "q", nil, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureChunk(model.ChunkKey{Path: "orphan.md"}); err != nil {
		t.Fatal(err)
	}

	report, err := s.Vacuum(0)
	if err != nil {
		t.Fatalf("Vacuum failed: %v", err)
	}
	if report.AccessLogRowsDeleted != 1 {
		t.Errorf("AccessLogRowsDeleted = %d, want 1", report.AccessLogRowsDeleted)
	}

	rec, _ := s.GetGravityRecord(model.ChunkKey{Path: "orphan.md"})
	if rec != nil {
		t.Error("expected orphan chunk to be deleted by vacuum")
	}
}

func TestDecayOnlySkipsRecentlyActive(t *testing.T) {
	s := newTestStore(t)
	key := model.ChunkKey{Path: "recent.md"}
	if err := s.Boost(key, 2.0); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordAccess(key, "", nil, ""); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Decay(0.05); err != nil {
		t.Fatalf("Decay failed: %v", err)
	}

	rec, _ := s.GetGravityRecord(key)
	if rec.ExplicitImportance != 2.0 {
		t.Errorf("ExplicitImportance = %v, want unchanged 2.0 (recently accessed)", rec.ExplicitImportance)
	}
}

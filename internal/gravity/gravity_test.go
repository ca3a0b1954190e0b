package gravity

import (
	"math"
	"testing"
	"time"

	"nautilus/internal/config"
	"nautilus/internal/model"
	"nautilus/internal/store"
)

func newTestGravity(t *testing.T) (*Gravity, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	cfg := config.DefaultConfig()
	return New(st, cfg), st
}

func TestRecordAccessOnAbsentChunk(t *testing.T) {
	g, _ := newTestGravity(t)
	key := model.ChunkKey{Path: "a.md"}

	if err := g.RecordAccess(key, "q", nil); err != nil {
		t.Fatalf("RecordAccess failed: %v", err)
	}

	rec, err := g.store.GetGravityRecord(key)
	if err != nil {
		t.Fatal(err)
	}
	if rec.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1", rec.AccessCount)
	}
	if rec.LastAccessedAt == nil {
		t.Error("LastAccessedAt is nil, want non-nil")
	}
}

func TestScoreModifierAtZeroMass(t *testing.T) {
	if got := ScoreModifier(0); got != 1.0 {
		t.Errorf("ScoreModifier(0) = %v, want 1.0", got)
	}
}

func TestScoreModifierMonotonicNonDecreasing(t *testing.T) {
	prev := ScoreModifier(0)
	for _, m := range []float64{1, 5, 10, 50, 100} {
		cur := ScoreModifier(m)
		if cur < prev {
			t.Errorf("ScoreModifier(%v) = %v < previous %v, want non-decreasing", m, cur, prev)
		}
		prev = cur
	}
}

func TestEffectiveMassNeverExceedsCap(t *testing.T) {
	g, _ := newTestGravity(t)
	now := time.Now()
	rec := &model.GravityRecord{
		AccessCount:        1_000_000,
		ExplicitImportance: 1_000_000,
		LastWrittenAt:      &now,
	}
	mass := g.EffectiveMass(rec)
	if mass > g.cfg.MassCap {
		t.Errorf("EffectiveMass = %v, want <= mass_cap %v", mass, g.cfg.MassCap)
	}
	if mass < 0 {
		t.Errorf("EffectiveMass = %v, want >= 0", mass)
	}
}

func TestEffectiveMassNilRecordIsZero(t *testing.T) {
	g, _ := newTestGravity(t)
	if got := g.EffectiveMass(nil); got != 0 {
		t.Errorf("EffectiveMass(nil) = %v, want 0", got)
	}
}

func TestRerankPreservesInputSet(t *testing.T) {
	g, _ := newTestGravity(t)
	candidates := []model.RetrievedResult{
		{Path: "a.md", Score: 0.9},
		{Path: "b.md", Score: 0.8},
		{Path: "c.md", Score: 0.7},
	}
	results, err := g.Rerank(candidates)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if len(results) != len(candidates) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(candidates))
	}
}

func TestRerankAbsentChunkHasUnitModifier(t *testing.T) {
	g, _ := newTestGravity(t)
	candidates := []model.RetrievedResult{{Path: "unseen.md", Score: 0.5}}
	results, err := g.Rerank(candidates)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Gravity.Modifier != 1.0 {
		t.Errorf("Modifier = %v, want 1.0 for absent chunk", results[0].Gravity.Modifier)
	}
	if results[0].Score != 0.5 {
		t.Errorf("Score = %v, want unchanged 0.5", results[0].Score)
	}
}

func TestAuthorityBoostOutranksOlderEquallyScored(t *testing.T) {
	g, st := newTestGravity(t)

	if err := g.RecordWrite("A.md"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if err := g.RecordAccess(model.ChunkKey{Path: "A.md"}, "", nil); err != nil {
			t.Fatal(err)
		}
		if err := g.RecordAccess(model.ChunkKey{Path: "B.md"}, "", nil); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-30 * 24 * time.Hour)
	if _, err := st.Execute(`UPDATE gravity SET last_written_at = ? WHERE path = 'B.md'`, old); err != nil {
		t.Fatal(err)
	}

	candidates := []model.RetrievedResult{
		{Path: "A.md", Score: 0.5},
		{Path: "B.md", Score: 0.5},
	}
	results, err := g.Rerank(candidates)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Path != "A.md" {
		t.Errorf("expected A.md to rank first, got %s", results[0].Path)
	}
	if results[0].Gravity.Modifier <= results[1].Gravity.Modifier {
		t.Errorf("A.modifier (%v) should exceed B.modifier (%v)", results[0].Gravity.Modifier, results[1].Gravity.Modifier)
	}
}

func TestDecayRespectsRecentActivity(t *testing.T) {
	g, st := newTestGravity(t)
	key := model.ChunkKey{Path: "z.md"}
	if err := g.Boost(key, 2.0); err != nil {
		t.Fatal(err)
	}
	if err := g.RecordAccess(key, "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Decay(); err != nil {
		t.Fatal(err)
	}
	rec, _ := st.GetGravityRecord(key)
	if rec.ExplicitImportance != 2.0 {
		t.Errorf("ExplicitImportance = %v, want unchanged 2.0", rec.ExplicitImportance)
	}
}

func TestDecayAppliesToInactiveChunk(t *testing.T) {
	g, st := newTestGravity(t)
	key := model.ChunkKey{Path: "z.md"}
	if err := g.Boost(key, 2.0); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-100 * 24 * time.Hour)
	if _, err := st.Execute(
		`UPDATE gravity SET last_accessed_at = ?, last_written_at = ? WHERE path = ?`,
		old, old, key.Path,
	); err != nil {
		t.Fatal(err)
	}

	if _, err := g.Decay(); err != nil {
		t.Fatal(err)
	}
	rec, _ := st.GetGravityRecord(key)
	want := 2.0 * 0.95
	if math.Abs(rec.ExplicitImportance-want) > 1e-9 {
		t.Errorf("ExplicitImportance = %v, want %v", rec.ExplicitImportance, want)
	}
}

func TestBoostRejectsNegativeAmount(t *testing.T) {
	g, _ := newTestGravity(t)
	if err := g.Boost(model.ChunkKey{Path: "a.md"}, -1); err == nil {
		t.Fatal("expected error for negative boost")
	}
}

package mirrors

import (
	"os"
	"path/filepath"
	"testing"

	"nautilus/internal/errs"
	"nautilus/internal/store"
)

func newTestMirrors(t *testing.T) (*Mirrors, string) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	root := t.TempDir()
	return New(st, root), root
}

func TestLinkRequiresEventKey(t *testing.T) {
	m, _ := newTestMirrors(t)
	if err := m.Link("", "raw.md", "", ""); err == nil {
		t.Fatal("expected error for empty event_key")
	}
}

func TestLinkAndResolveByPath(t *testing.T) {
	m, _ := newTestMirrors(t)
	if err := m.Link("daily-2026-01-01", "memory/2026-01-01.md", "memory/corridors/corridor-2026-01-01.md", ""); err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	resolved, err := m.Resolve("memory/2026-01-01.md")
	if err != nil {
		t.Fatalf("Resolve by path failed: %v", err)
	}
	if resolved.EventKey != "daily-2026-01-01" {
		t.Errorf("EventKey = %s, want daily-2026-01-01", resolved.EventKey)
	}
	if len(resolved.Mirrors) != 2 {
		t.Fatalf("len(Mirrors) = %d, want 2", len(resolved.Mirrors))
	}

	resolvedByKey, err := m.Resolve("daily-2026-01-01")
	if err != nil {
		t.Fatalf("Resolve by key failed: %v", err)
	}
	if len(resolvedByKey.Mirrors) != len(resolved.Mirrors) {
		t.Errorf("resolve by key and by path disagree: %v vs %v", resolvedByKey.Mirrors, resolved.Mirrors)
	}
}

func TestResolveUnknownReturnsNotFound(t *testing.T) {
	m, _ := newTestMirrors(t)
	_, err := m.Resolve("nothing-here")
	kind, ok := errs.Of(err)
	if !ok || kind != errs.NotFound {
		t.Fatalf("expected NotFound error, got %v", err)
	}
}

func TestResolveForSearchReturnsNilWithoutError(t *testing.T) {
	m, _ := newTestMirrors(t)
	mirrorSet, err := m.ResolveForSearch("no-such-file.md")
	if err != nil {
		t.Fatalf("ResolveForSearch returned error: %v", err)
	}
	if mirrorSet != nil {
		t.Errorf("expected nil mirror set, got %+v", mirrorSet)
	}
}

func TestAutoLinkLinksCorridorToDaily(t *testing.T) {
	m, root := newTestMirrors(t)

	mustWrite(t, filepath.Join(root, "2026-01-01.md"), "daily notes")
	mustWrite(t, filepath.Join(root, "corridors", "corridor-2026-01-01.md"), "summary")

	linked, err := m.AutoLink()
	if err != nil {
		t.Fatalf("AutoLink failed: %v", err)
	}
	if linked != 1 {
		t.Fatalf("linked = %d, want 1", linked)
	}

	resolved, err := m.Resolve("daily-2026-01-01")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(resolved.Mirrors) != 2 {
		t.Errorf("expected raw+summary mirrors, got %+v", resolved.Mirrors)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

package maintain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"nautilus/internal/chambers"
	"nautilus/internal/config"
	"nautilus/internal/doors"
	"nautilus/internal/gravity"
	"nautilus/internal/mirrors"
	"nautilus/internal/store"
)

func newTestMaintain(t *testing.T) (*Maintain, string) {
	t.Helper()
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "2026-01-01.md"), "some recent note content")

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	cfg.WorkspaceDir = root
	cfg.MemoryDir = "."

	g := gravity.New(st, cfg)
	d, err := doors.New(st, cfg)
	if err != nil {
		t.Fatalf("doors.New failed: %v", err)
	}
	mr := mirrors.New(st, root)
	c := chambers.New(st, mr, nil, cfg)

	return New(g, c, d, mr, cfg), root
}

func TestRunCompletesAllSteps(t *testing.T) {
	m, _ := newTestMaintain(t)
	report := m.Run(context.Background(), Options{RegisterRecentWrites: true})

	wantSteps := []string{"register_recent_writes", "classify_all", "auto_tag", "decay", "auto_link_mirrors"}
	if len(report.Steps) != len(wantSteps) {
		t.Fatalf("len(Steps) = %d, want %d", len(report.Steps), len(wantSteps))
	}
	for i, name := range wantSteps {
		if report.Steps[i].Name != name {
			t.Errorf("Steps[%d].Name = %s, want %s", i, report.Steps[i].Name, name)
		}
	}
	if report.Failed() {
		t.Errorf("report unexpectedly failed: %+v", report.Steps)
	}
}

func TestRunWithoutPromoteSkipsPromoteSteps(t *testing.T) {
	m, _ := newTestMaintain(t)
	report := m.Run(context.Background(), Options{})
	for _, s := range report.Steps {
		if s.Name == "promote" || s.Name == "crystallize" {
			t.Errorf("unexpected step %s ran without Promote option", s.Name)
		}
	}
}

func TestOneStepFailureDoesNotStopTheRest(t *testing.T) {
	m, root := newTestMaintain(t)
	// Remove the memory root so classify_all's walk fails, but subsequent
	// steps (which don't depend on the filesystem) still run.
	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}

	report := m.Run(context.Background(), Options{RegisterRecentWrites: true})
	if len(report.Steps) == 0 {
		t.Fatal("expected steps to run even after an earlier failure")
	}
	ran := map[string]bool{}
	for _, s := range report.Steps {
		ran[s.Name] = true
	}
	if !ran["decay"] || !ran["auto_link_mirrors"] {
		t.Errorf("expected later steps to still run, got %+v", report.Steps)
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

package retriever

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestUniqueTermsDedupesAndLowercases(t *testing.T) {
	terms := uniqueTerms("Nautilus nautilus Memory memory!")
	if len(terms) != 2 {
		t.Fatalf("len(terms) = %d, want 2: %v", len(terms), terms)
	}
	seen := map[string]bool{}
	for _, term := range terms {
		seen[term] = true
	}
	if !seen["nautilus"] || !seen["memory"] {
		t.Errorf("expected nautilus and memory, got %v", terms)
	}
}

func TestUniqueTermsDropsSingleCharacters(t *testing.T) {
	terms := uniqueTerms("a b go")
	if len(terms) != 1 || terms[0] != "go" {
		t.Errorf("terms = %v, want [go]", terms)
	}
}

func TestParseRipgrepOutputExtractsPathLineSnippet(t *testing.T) {
	output := "/ws/memory/2026-01-01.md:12:some matching line\n/ws/memory/other.md:3:another line\n"
	hits := parseRipgrepOutput(output, "/ws/memory")
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d, want 2", len(hits))
	}
	if hits[0].path != "2026-01-01.md" || hits[0].line != 12 || hits[0].snippet != "some matching line" {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
}

func TestParseRipgrepOutputFallsBackWhenPathEscapesWorkDir(t *testing.T) {
	output := "/other/tree/file.md:1:line\n"
	hits := parseRipgrepOutput(output, "/ws/memory")
	if len(hits) != 1 || hits[0].path != "/other/tree/file.md" {
		t.Errorf("unexpected hit: %+v", hits)
	}
}

// TestSearchAgainstRealRipgrepReturnsWorkspaceRelativePaths shells out to
// the real rg binary (skipping if it's not on PATH) against an absolute
// WorkDir, the same shape main.go's filepath.Abs-resolved WorkspaceDir
// produces in real CLI use. A RetrievedResult.Path that came back
// workDir-prefixed instead of relativized would never match the keys
// Chambers/Doors/Mirrors persist for the same file.
func TestSearchAgainstRealRipgrepReturnsWorkspaceRelativePaths(t *testing.T) {
	if _, err := exec.LookPath("rg"); err != nil {
		t.Skip("rg not found on PATH")
	}

	dir := t.TempDir()
	sub := filepath.Join(dir, "notes")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "today.md"), []byte("nautilus memory engine\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r := New(RipgrepRetrieverConfig{WorkDir: dir})
	results, err := r.Search(context.Background(), "nautilus", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1: %+v", len(results), results)
	}
	if want := "notes/today.md"; results[0].Path != want {
		t.Errorf("Path = %q, want %q (must be relative to WorkDir, not absolute)", results[0].Path, want)
	}
}

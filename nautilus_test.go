package nautilus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nautilus/internal/config"
	"nautilus/internal/maintain"
	"nautilus/internal/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "memory"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "memory", "note.md"), []byte("nautilus engine notes"), 0644))

	cfg := config.DefaultConfig()
	cfg.WorkspaceDir = root
	cfg.StateDir = filepath.Join(root, "state")
	cfg.Summarizer.Enabled = false

	e, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestOpenCreatesEngineAndStatus(t *testing.T) {
	e := newTestEngine(t)
	stats, err := e.Status()
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.ChunkCount)
}

func TestRecordWriteAndBoostShareOneChunk(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.RecordWrite("memory/note.md"))
	require.NoError(t, e.Boost(model.ChunkKey{Path: "memory/note.md"}, 5))

	stats, err := e.Status()
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.ChunkCount)
}

func TestMaintainRunsWithoutPromote(t *testing.T) {
	e := newTestEngine(t)
	report := e.Maintain(context.Background(), maintain.Options{RegisterRecentWrites: true})
	require.False(t, report.Failed(), "maintain run should not fail: %+v", report.Steps)
	require.NotEmpty(t, report.Steps)
}

func TestClassifyAllAndAutoTag(t *testing.T) {
	e := newTestEngine(t)
	n, err := e.ClassifyAll()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	tagged, err := e.AutoTag()
	require.NoError(t, err)
	require.GreaterOrEqual(t, tagged, 0)
}

func TestVacuumOnEmptyStoreIsNoop(t *testing.T) {
	e := newTestEngine(t)
	report, err := e.Vacuum()
	require.NoError(t, err)
	require.Equal(t, int64(0), report.AccessLogRowsDeleted)
}

// TestSearchAgainstRealRetrieverUsesWorkspaceRelativeKeys runs a search
// through the actual RipgrepRetriever wired by Open (not a stub), with an
// absolute WorkspaceDir exactly as cmd/nautilus's PersistentPreRunE produces
// via filepath.Abs. It guards the chunk-key invariant shared by Gravity,
// Chambers, Doors, and Mirrors: a hit ripgrep reports as an absolute path
// must come back out of Search relativized to the memory root, or chamber
// and context-tag annotations silently never match.
func TestSearchAgainstRealRetrieverUsesWorkspaceRelativeKeys(t *testing.T) {
	e := newTestEngine(t)

	n, err := e.ClassifyAll()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, e.store.SetTags(model.ChunkKey{Path: "note.md"}, []string{"project:nautilus"}))

	results, err := e.Search(context.Background(), "nautilus", 5, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "note.md", results[0].Path, "retriever hit must be relativized to the memory root")
	require.NotEqual(t, model.ChamberUnknown, results[0].Chamber, "chamber lookup must find the row ClassifyAll wrote")
}

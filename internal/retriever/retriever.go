// Package retriever implements Nautilus's base-retriever capability (spec
// §6's "Base retriever contract"): an opaque text search returning ranked
// (path, line_start, line_end, score, snippet) records. Nautilus's pipeline
// depends only on the retriever.BaseRetriever interface; RipgrepRetriever is
// one concrete implementation grounded on the teacher's
// internal/retrieval/sparse.go SparseRetriever, which shells out to ripgrep
// for keyword-based file discovery across large workspaces.
package retriever

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"nautilus/internal/logging"
	"nautilus/internal/model"
)

// BaseRetriever is Nautilus's dependency-injected search capability.
// Implementations are free to be anything from ripgrep to a vector store;
// Nautilus only ever calls Search.
type BaseRetriever interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.RetrievedResult, error)
}

// RipgrepRetriever scores files by how many times query's terms appear in
// them, using ripgrep for the underlying scan.
type RipgrepRetriever struct {
	workDir         string
	searchTimeout   time.Duration
	excludePatterns []string
}

// RipgrepRetrieverConfig configures a RipgrepRetriever.
type RipgrepRetrieverConfig struct {
	WorkDir         string
	SearchTimeout   time.Duration
	ExcludePatterns []string
}

// DefaultExcludePatterns mirrors the teacher's SparseRetriever defaults.
func DefaultExcludePatterns() []string {
	return []string{".git", "node_modules", "vendor", "dist", "build", ".venv", "venv"}
}

// New builds a RipgrepRetriever rooted at cfg.WorkDir.
func New(cfg RipgrepRetrieverConfig) *RipgrepRetriever {
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = 30 * time.Second
	}
	if cfg.ExcludePatterns == nil {
		cfg.ExcludePatterns = DefaultExcludePatterns()
	}
	return &RipgrepRetriever{
		workDir:         cfg.WorkDir,
		searchTimeout:   cfg.SearchTimeout,
		excludePatterns: cfg.ExcludePatterns,
	}
}

var wordSplitter = regexp.MustCompile(`[A-Za-z0-9_]+`)

// Search runs one ripgrep pass per distinct query term and aggregates hit
// counts per file into a score, returning at most maxResults records
// ordered by descending score.
func (r *RipgrepRetriever) Search(ctx context.Context, query string, maxResults int) ([]model.RetrievedResult, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "RipgrepRetriever.Search")
	defer timer.Stop()

	terms := uniqueTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	// One ripgrep process per term, run with controlled concurrency via
	// errgroup exactly as the teacher's intelligence_gatherer.go fans out
	// its per-source gathering. hitsByTerm keeps each term's hits in its
	// own slot so the merge below stays single-threaded and deterministic.
	hitsByTerm := make([][]rawHit, len(terms))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, term := range terms {
		i, term := i, term
		eg.Go(func() error {
			hits, err := r.searchTerm(egCtx, term)
			if err != nil {
				return fmt.Errorf("retrieval failed for term %q: %w", term, err)
			}
			hitsByTerm[i] = hits
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	type fileHit struct {
		count   int
		line    int
		snippet string
	}
	byFile := make(map[string]*fileHit)
	for _, hits := range hitsByTerm {
		for _, h := range hits {
			fh, ok := byFile[h.path]
			if !ok {
				fh = &fileHit{line: h.line, snippet: h.snippet}
				byFile[h.path] = fh
			}
			fh.count++
		}
	}

	results := make([]model.RetrievedResult, 0, len(byFile))
	for path, fh := range byFile {
		score := float64(fh.count) / float64(len(terms))
		results = append(results, model.RetrievedResult{
			Path:      path,
			LineStart: 0,
			LineEnd:   0,
			Score:     score,
			Snippet:   fh.snippet,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

type rawHit struct {
	path    string
	line    int
	snippet string
}

// searchTerm shells out to ripgrep for a single term, exactly as the
// teacher's SparseRetriever.searchSingleKeyword does.
func (r *RipgrepRetriever) searchTerm(ctx context.Context, term string) ([]rawHit, error) {
	ctx, cancel := context.WithTimeout(ctx, r.searchTimeout)
	defer cancel()

	args := []string{"--line-number", "--no-heading", "--with-filename", "--color=never", "-i"}
	for _, pattern := range r.excludePatterns {
		args = append(args, "-g", "!"+pattern)
	}
	args = append(args, regexp.QuoteMeta(term), r.workDir)

	cmd := exec.CommandContext(ctx, "rg", args...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}
	return parseRipgrepOutput(string(output), r.workDir), nil
}

// parseRipgrepOutput relativizes each hit's path against workDir so it
// matches the workspace-relative chunk keys Chambers/Doors/Mirrors persist
// (spec §3/§9's single (path, line_start, line_end) value-key invariant) —
// ripgrep was invoked with workDir as its search root, so every hit comes
// back workDir-prefixed (absolute, if workDir is absolute).
func parseRipgrepOutput(output, workDir string) []rawHit {
	var hits []rawHit
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), ":", 3)
		if len(parts) < 3 {
			continue
		}
		line, _ := strconv.Atoi(parts[1])
		hits = append(hits, rawHit{path: relativizePath(parts[0], workDir), line: line, snippet: strings.TrimSpace(parts[2])})
	}
	return hits
}

// relativizePath returns path relative to workDir in slash form, falling
// back to the original path if it cannot be made relative (e.g. workDir is
// empty, or path lies outside workDir).
func relativizePath(path, workDir string) string {
	if workDir == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(workDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func uniqueTerms(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range wordSplitter.FindAllString(query, -1) {
		w = strings.ToLower(w)
		if len(w) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

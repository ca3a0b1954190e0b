// Package nautilus is the in-process API for the importance-weighted
// memory engine: open a store, search it, and run its periodic upkeep.
// Grounded on the teacher's internal/system "Cortex" boot sequence
// (internal/system/cortex.go's GetOrBootCortex), which opens persistent
// state once and hands back a single struct exposing the whole surface
// rather than making callers wire components themselves.
package nautilus

import (
	"context"
	"os"
	"path/filepath"

	"nautilus/internal/chambers"
	"nautilus/internal/config"
	"nautilus/internal/doors"
	"nautilus/internal/errs"
	"nautilus/internal/gravity"
	"nautilus/internal/logging"
	"nautilus/internal/maintain"
	"nautilus/internal/mirrors"
	"nautilus/internal/model"
	"nautilus/internal/pipeline"
	"nautilus/internal/retriever"
	"nautilus/internal/store"
	"nautilus/internal/summarizer"
)

// Engine is Nautilus's public entry point: one open store plus every
// component wired against it.
type Engine struct {
	cfg      *config.Config
	store    *store.Store
	gravity  *gravity.Gravity
	chambers *chambers.Chambers
	doors    *doors.Doors
	mirrors  *mirrors.Mirrors
	pipeline *pipeline.Pipeline
	maintain *maintain.Maintain
}

// Open boots an Engine: creates the state directory, opens the embedded
// database, runs migrations, and wires every component against cfg.
func Open(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if err := logging.Initialize(cfg.StateDir, cfg.DebugMode); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "failed to initialize logging", err)
	}

	dbPath := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errs.WrapPath(errs.StoreUnavailable, "failed to create state directory", dbPath, err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	summ, err := summarizer.New(ctx, cfg.Summarizer)
	if err != nil {
		st.Close()
		return nil, err
	}

	d, err := doors.New(st, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	g := gravity.New(st, cfg)
	mr := mirrors.New(st, cfg.MemoryPath())
	c := chambers.New(st, mr, summ, cfg)
	r := retriever.New(retriever.RipgrepRetrieverConfig{WorkDir: cfg.MemoryPath()})
	p := pipeline.New(r, g, d, mr, cfg)
	m := maintain.New(g, c, d, mr, cfg)

	return &Engine{
		cfg: cfg, store: st, gravity: g, chambers: c, doors: d, mirrors: mr,
		pipeline: p, maintain: m,
	}, nil
}

// Close releases the underlying database connection.
func (e *Engine) Close() error {
	defer logging.CloseAll()
	return e.store.Close()
}

// Search runs the full retrieval pipeline: search(query, n, trapdoor) from
// spec §4.1, returning at most n results.
func (e *Engine) Search(ctx context.Context, query string, n int, trapdoor bool) ([]model.Result, error) {
	return e.pipeline.Search(ctx, query, n, trapdoor)
}

// RecordAccess logs a manual access outside of search(), e.g. an agent
// opening a file directly.
func (e *Engine) RecordAccess(key model.ChunkKey, query string, score *float64) error {
	return e.gravity.RecordAccess(key, query, score)
}

// RecordWrite marks path as freshly written, feeding the authority boost.
func (e *Engine) RecordWrite(path string) error {
	return e.gravity.RecordWrite(path)
}

// Boost adds amount to a chunk's explicit_importance.
func (e *Engine) Boost(key model.ChunkKey, amount float64) error {
	return e.gravity.Boost(key, amount)
}

// Maintain runs the periodic upkeep batch (spec §4.7).
func (e *Engine) Maintain(ctx context.Context, opts maintain.Options) maintain.Report {
	return e.maintain.Run(ctx, opts)
}

// Promote runs Chambers' corridor promotion pass directly, outside a full
// Maintain run.
func (e *Engine) Promote(ctx context.Context, dryRun bool) (chambers.PromoteReport, error) {
	return e.chambers.Promote(ctx, dryRun)
}

// Crystallize runs Chambers' vault crystallization pass directly.
func (e *Engine) Crystallize(ctx context.Context, dryRun bool) (chambers.PromoteReport, error) {
	return e.chambers.Crystallize(ctx, dryRun)
}

// ClassifyQuery returns the context tags Doors would assign to a query or
// file excerpt, without running a search.
func (e *Engine) ClassifyQuery(text string) []string {
	return e.doors.Classify(text)
}

// AutoTag re-tags every known chunk from its file contents.
func (e *Engine) AutoTag() (int, error) {
	return e.doors.AutoTag(e.cfg.MemoryPath())
}

// ResolveMirrors looks up the raw/summary/lesson siblings of a path or
// event key.
func (e *Engine) ResolveMirrors(pathOrKey string) (*mirrors.Resolved, error) {
	return e.mirrors.Resolve(pathOrKey)
}

// LinkMirrors records a raw/summary/lesson family under one event key.
func (e *Engine) LinkMirrors(eventKey, raw, summary, lesson string) error {
	return e.mirrors.Link(eventKey, raw, summary, lesson)
}

// Status reports the engine's current persisted state (spec's supplemented
// status/stats surface).
func (e *Engine) Status() (store.Stats, error) {
	return e.store.GetStats()
}

// Vacuum prunes access-log rows older than cfg.AccessLogRetentionDays and
// orphaned chunks with no activity (spec's supplemented vacuum operation).
func (e *Engine) Vacuum() (store.VacuumReport, error) {
	return e.store.Vacuum(e.cfg.AccessLogRetentionDays)
}

// Decay applies importance decay to inactive chunks directly, outside a
// full Maintain run.
func (e *Engine) Decay() (int64, error) {
	return e.gravity.Decay()
}

// ClassifyAll reclassifies every memory file into its chamber.
func (e *Engine) ClassifyAll() (int, error) {
	return e.chambers.ClassifyAll()
}

// AutoLinkMirrors links corridor/vault summaries back to their daily notes.
func (e *Engine) AutoLinkMirrors() (int, error) {
	return e.mirrors.AutoLink()
}

// Package maintain runs Nautilus's periodic upkeep batch: registering
// recent writes, reclassifying chambers, auto-tagging, decaying importance,
// auto-linking mirrors, and promoting/crystallizing stale material (spec
// §4.7). Grounded on the teacher's cmd/nerd "maintenance" subcommand shape
// (a fixed sequence of independent steps, each one's failure recorded but
// never fatal to the rest of the run).
package maintain

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"nautilus/internal/chambers"
	"nautilus/internal/config"
	"nautilus/internal/doors"
	"nautilus/internal/gravity"
	"nautilus/internal/logging"
	"nautilus/internal/mirrors"
)

// StepResult records the outcome of one maintenance step.
type StepResult struct {
	Name    string
	Ran     bool
	Count   int
	Err     error
	Elapsed time.Duration
}

// Report is the outcome of one Maintain run.
type Report struct {
	Steps []StepResult
}

// Failed reports whether any step returned an error.
func (r Report) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Maintain runs the upkeep batch against its dependencies.
type Maintain struct {
	gravity  *gravity.Gravity
	chambers *chambers.Chambers
	doors    *doors.Doors
	mirrors  *mirrors.Mirrors
	cfg      *config.Config
}

// New builds a Maintain batch runner from its dependencies.
func New(g *gravity.Gravity, c *chambers.Chambers, d *doors.Doors, m *mirrors.Mirrors, cfg *config.Config) *Maintain {
	return &Maintain{gravity: g, chambers: c, doors: d, mirrors: m, cfg: cfg}
}

// Options controls which optional steps a Run performs.
type Options struct {
	// RegisterRecentWrites records last_written_at for files modified in
	// the last RegisterRecentHours before classifying anything.
	RegisterRecentWrites bool
	// Promote runs Chambers.Promote/Crystallize at the end of the batch.
	Promote bool
	DryRun  bool
}

// Run executes every maintenance step in order. Each step's failure is
// recorded in the returned Report; the next step always runs regardless.
func (m *Maintain) Run(ctx context.Context, opts Options) Report {
	log := logging.Get(logging.CategoryMaintain)
	var report Report

	run := func(name string, fn func() (int, error)) {
		start := time.Now()
		n, err := fn()
		res := StepResult{Name: name, Ran: true, Count: n, Err: err, Elapsed: time.Since(start)}
		if err != nil {
			log.Warn("maintain step %s failed: %v", name, err)
		} else {
			log.Info("maintain step %s completed: %d", name, n)
		}
		report.Steps = append(report.Steps, res)
	}

	if opts.RegisterRecentWrites {
		run("register_recent_writes", func() (int, error) {
			return m.registerRecentWrites()
		})
	}

	run("classify_all", func() (int, error) {
		return m.chambers.ClassifyAll()
	})

	run("auto_tag", func() (int, error) {
		return m.doors.AutoTag(m.cfg.MemoryPath())
	})

	run("decay", func() (int, error) {
		n, err := m.gravity.Decay()
		return int(n), err
	})

	run("auto_link_mirrors", func() (int, error) {
		return m.mirrors.AutoLink()
	})

	if opts.Promote {
		run("promote", func() (int, error) {
			r, err := m.chambers.Promote(ctx, opts.DryRun)
			return r.Written, err
		})
		run("crystallize", func() (int, error) {
			r, err := m.chambers.Crystallize(ctx, opts.DryRun)
			return r.Written, err
		})
	}

	return report
}

// registerRecentWrites records last_written_at for every memory file
// modified within RegisterRecentHours, so a file edited outside Nautilus's
// own write path still contributes to the authority boost.
func (m *Maintain) registerRecentWrites() (int, error) {
	root := m.cfg.MemoryPath()
	cutoff := time.Now().Add(-time.Duration(m.cfg.RegisterRecentHours) * time.Hour)
	count := 0

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil || info.ModTime().Before(cutoff) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if err := m.gravity.RecordWrite(rel); err != nil {
			return nil
		}
		count++
		return nil
	})
	return count, err
}

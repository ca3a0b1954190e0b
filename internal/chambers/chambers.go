// Package chambers classifies memory files into temporal buckets by age and
// drives LLM-backed promotion/crystallization into progressively shorter
// granularities (spec §4.3). Grounded on the teacher's archival-tier
// migration in internal/store/learning.go (age-based tiering followed by a
// write-once archival pass) generalized to filesystem-backed output files.
package chambers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"nautilus/internal/config"
	"nautilus/internal/errs"
	"nautilus/internal/logging"
	"nautilus/internal/model"
	"nautilus/internal/mirrors"
	"nautilus/internal/store"
	"nautilus/internal/summarizer"
)

var dateLikePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Chambers classifies files by age and promotes/crystallizes old ones.
type Chambers struct {
	store      *store.Store
	mirrors    *mirrors.Mirrors
	summarizer summarizer.Summarizer
	cfg        *config.Config
	memoryRoot string
}

// New builds a Chambers component.
func New(st *store.Store, mr *mirrors.Mirrors, summ summarizer.Summarizer, cfg *config.Config) *Chambers {
	return &Chambers{store: st, mirrors: mr, summarizer: summ, cfg: cfg, memoryRoot: cfg.MemoryPath()}
}

// Classify is a pure function of file age: atrium if age <= atrium_max_hours,
// corridor if age <= corridor_max_days, otherwise vault. Files whose age
// cannot be determined classify as unknown.
func Classify(age time.Duration, cfg *config.Config, ageKnown bool) model.Chamber {
	if !ageKnown {
		return model.ChamberUnknown
	}
	if age <= time.Duration(cfg.AtriumMaxHours*float64(time.Hour)) {
		return model.ChamberAtrium
	}
	if age <= time.Duration(cfg.CorridorMaxDays*24*float64(time.Hour)) {
		return model.ChamberCorridor
	}
	return model.ChamberVault
}

// fileAge returns a file's age by mtime, falling back to the chunk's
// created_at gravity-record timestamp when the file is no longer on disk
// (spec §9's chosen fallback).
func fileAge(fullPath string, createdAt time.Time) (time.Duration, bool) {
	info, err := os.Stat(fullPath)
	if err != nil {
		if createdAt.IsZero() {
			return 0, false
		}
		return time.Since(createdAt), true
	}
	return time.Since(info.ModTime()), true
}

// ClassifyPath classifies a single workspace-relative memory file.
func (c *Chambers) ClassifyPath(relPath string) (model.Chamber, error) {
	full := filepath.Join(c.memoryRoot, relPath)
	age, known := fileAge(full, time.Time{})
	return Classify(age, c.cfg, known), nil
}

// ClassifyAll walks the memory tree and sets chamber on the whole-file chunk
// of every file it finds, creating that chunk if it is not yet in the store.
func (c *Chambers) ClassifyAll() (int, error) {
	log := logging.Get(logging.CategoryChambers)
	classified := 0

	err := filepath.WalkDir(c.memoryRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == c.memoryRoot {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(c.memoryRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		age, known := fileAge(path, time.Time{})
		chamber := Classify(age, c.cfg, known)

		key := model.ChunkKey{Path: rel}
		if err := c.store.EnsureChunk(key); err != nil {
			log.Warn("classify_all: failed to ensure chunk for %s: %v", rel, err)
			return nil
		}
		if err := c.store.SetChamber(key, chamber); err != nil {
			log.Warn("classify_all: failed to set chamber for %s: %v", rel, err)
			return nil
		}
		classified++
		return nil
	})
	if err != nil {
		return classified, errs.Wrap(errs.InvalidArgument, "classify_all failed to walk memory tree", err)
	}
	return classified, nil
}

// Candidate is one file promote/crystallize would act on.
type Candidate struct {
	RelPath  string
	FullPath string
	EventKey string
}

// PromoteCandidates returns files classified corridor, not already named
// corridor-*, with no existing corridor mirror.
func (c *Chambers) PromoteCandidates() ([]Candidate, error) {
	return c.candidatesForChamber(model.ChamberCorridor, "corridor-", model.GranularitySummary)
}

// CrystallizeCandidates returns files classified vault, not already named
// vault-*, with no existing vault mirror.
func (c *Chambers) CrystallizeCandidates() ([]Candidate, error) {
	return c.candidatesForChamber(model.ChamberVault, "vault-", model.GranularityLesson)
}

func (c *Chambers) candidatesForChamber(chamber model.Chamber, excludePrefix string, granularity model.Granularity) ([]Candidate, error) {
	records, err := c.store.AllGravityRecords()
	if err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, "failed to list chunks", err)
	}

	var out []Candidate
	seen := make(map[string]bool)
	for _, rec := range records {
		if rec.Chamber != chamber || seen[rec.Path] {
			continue
		}
		seen[rec.Path] = true
		base := filepath.Base(rec.Path)
		if strings.HasPrefix(base, excludePrefix) {
			continue
		}

		eventKey := eventKeyFor(rec.Path)
		hasMirror, err := c.store.HasMirrorGranularity(eventKey, granularity)
		if err != nil {
			return nil, errs.Wrap(errs.StoreUnavailable, "failed to check mirror", err)
		}
		if hasMirror {
			continue
		}

		out = append(out, Candidate{
			RelPath:  rec.Path,
			FullPath: filepath.Join(c.memoryRoot, rec.Path),
			EventKey: eventKey,
		})
	}
	return out, nil
}

// eventKeyFor derives daily-YYYY-MM-DD from a name like "2026-01-01.md"; for
// any other name it falls back to the extensionless basename so promotion
// still produces a stable, resolvable event key.
func eventKeyFor(relPath string) string {
	base := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	if dateLikePattern.MatchString(base) {
		return "daily-" + base
	}
	return "file-" + base
}

// PromoteReport summarizes one promote() run.
type PromoteReport struct {
	Candidates int
	Written    int
	Skipped    int
}

// Promote finds corridor candidates, summarizes each (mode=corridor), and
// writes memory/corridors/corridor-<basename>.md plus a summary mirror. With
// dryRun the candidate list is computed and returned but nothing is written.
func (c *Chambers) Promote(ctx context.Context, dryRun bool) (PromoteReport, error) {
	return c.run(ctx, dryRun, c.PromoteCandidates, "corridors", "corridor-", summarizer.ModeCorridor, model.GranularitySummary)
}

// Crystallize is Promote's analogue for vault classification and mode vault.
func (c *Chambers) Crystallize(ctx context.Context, dryRun bool) (PromoteReport, error) {
	return c.run(ctx, dryRun, c.CrystallizeCandidates, "vaults", "vault-", summarizer.ModeVault, model.GranularityLesson)
}

func (c *Chambers) run(
	ctx context.Context,
	dryRun bool,
	candidatesFn func() ([]Candidate, error),
	subdir, filePrefix string,
	mode summarizer.Mode,
	granularity model.Granularity,
) (PromoteReport, error) {
	log := logging.Get(logging.CategoryChambers)
	candidates, err := candidatesFn()
	if err != nil {
		return PromoteReport{}, err
	}
	report := PromoteReport{Candidates: len(candidates)}
	if dryRun {
		return report, nil
	}

	outDir := filepath.Join(c.memoryRoot, subdir)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return report, errs.WrapPath(errs.InvalidArgument, "failed to create output directory", outDir, err)
	}

	for _, cand := range candidates {
		content, err := os.ReadFile(cand.FullPath)
		if err != nil {
			log.Warn("%s: failed to read %s: %v", mode, cand.RelPath, err)
			report.Skipped++
			continue
		}

		summary, err := c.summarizer.Summarize(ctx, string(content), mode)
		if err != nil {
			log.Warn("%s: summarizer failed for %s: %v", mode, cand.RelPath, err)
			report.Skipped++
			continue
		}
		if summary == "" {
			log.Debug("%s: summarizer skipped %s", mode, cand.RelPath)
			report.Skipped++
			continue
		}

		info, statErr := os.Stat(cand.FullPath)
		mtime := "unknown"
		if statErr == nil {
			mtime = info.ModTime().UTC().Format(time.RFC3339)
		}

		outName := filePrefix + filepath.Base(cand.RelPath)
		outPath := filepath.Join(outDir, outName)
		header := fmt.Sprintf("<!-- source: %s\n     source_mtime: %s\n     summary_mode: %s -->\n\n", cand.RelPath, mtime, mode)
		if err := os.WriteFile(outPath, []byte(header+summary), 0644); err != nil {
			log.Warn("%s: failed to write %s: %v", mode, outPath, err)
			report.Skipped++
			continue
		}

		outRel, _ := filepath.Rel(c.memoryRoot, outPath)
		outRel = filepath.ToSlash(outRel)

		var linkErr error
		if granularity == model.GranularitySummary {
			linkErr = c.mirrors.Link(cand.EventKey, cand.RelPath, outRel, "")
		} else {
			existing, _ := c.mirrors.Resolve(cand.EventKey)
			summaryPath := ""
			if existing != nil {
				for _, m := range existing.Mirrors {
					if m.Granularity == model.GranularitySummary {
						summaryPath = m.Path
					}
				}
			}
			linkErr = c.mirrors.Link(cand.EventKey, cand.RelPath, summaryPath, outRel)
		}
		if linkErr != nil {
			log.Warn("%s: failed to link mirror for %s: %v", mode, cand.RelPath, linkErr)
			report.Skipped++
			continue
		}

		report.Written++
	}

	return report, nil
}

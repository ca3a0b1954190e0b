// Package mirrors links up to three granularities (raw, summary, lesson) of
// the same logical event (spec §4.5). Grounded on the teacher's event-key
// correlation pattern in internal/session (session ids tie together
// multiple artifacts of one run) generalized to Nautilus's raw/summary/
// lesson triple.
package mirrors

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"nautilus/internal/errs"
	"nautilus/internal/logging"
	"nautilus/internal/model"
	"nautilus/internal/store"
)

// Mirrors links and resolves event-key-based families of memory files.
type Mirrors struct {
	store      *store.Store
	memoryRoot string
}

// New builds a Mirrors index borrowing st.
func New(st *store.Store, memoryRoot string) *Mirrors {
	return &Mirrors{store: st, memoryRoot: memoryRoot}
}

// Link inserts up to three rows atomically under eventKey, overwriting any
// existing row at the same (event_key, granularity) and logging a warning
// when the overwritten path differs.
func (m *Mirrors) Link(eventKey, rawPath, summaryPath, lessonPath string) error {
	if eventKey == "" {
		return errs.New(errs.InvalidArgument, "event_key must not be empty")
	}
	if rawPath == "" && summaryPath == "" && lessonPath == "" {
		return errs.New(errs.InvalidArgument, "at least one path must be supplied")
	}
	if existing, err := m.store.MirrorsByEventKey(eventKey); err == nil {
		incoming := map[model.Granularity]string{
			model.GranularityRaw: rawPath, model.GranularitySummary: summaryPath, model.GranularityLesson: lessonPath,
		}
		for _, e := range existing {
			if p := incoming[e.Granularity]; p != "" && p != e.Path {
				logging.Get(logging.CategoryMirrors).Warn("%s: %s %s overwrites %s with %s", errs.MirrorConflict, eventKey, e.Granularity, e.Path, p)
			}
		}
	}
	if err := m.store.LinkMirrors(eventKey, rawPath, summaryPath, lessonPath); err != nil {
		return errs.Wrap(errs.StoreUnavailable, "link failed", err)
	}
	return nil
}

// Resolved is the result of Resolve.
type Resolved struct {
	EventKey string
	Mirrors  []model.MirrorEntry
}

// Resolve accepts either an event key or a workspace-relative path. If the
// argument matches an existing path, its event_key is resolved first; all
// siblings are returned ordered raw -> summary -> lesson.
func (m *Mirrors) Resolve(pathOrKey string) (*Resolved, error) {
	eventKey := pathOrKey

	byPath, err := m.store.EventKeyForPath(pathOrKey)
	if err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, "resolve failed", err)
	}
	if byPath != "" {
		eventKey = byPath
	}

	entries, err := m.store.MirrorsByEventKey(eventKey)
	if err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, "resolve failed", err)
	}
	if len(entries) == 0 {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("no mirrors for %q", pathOrKey))
	}
	return &Resolved{EventKey: eventKey, Mirrors: entries}, nil
}

// ResolveForSearch is Resolve but returns (nil, nil) instead of NotFound,
// for the pipeline's "attach mirrors when any exist" stage (spec §4.6 step
// 7), which must not fail the search when a result simply has no mirrors.
func (m *Mirrors) ResolveForSearch(path string) (*model.MirrorSet, error) {
	resolved, err := m.Resolve(path)
	if err != nil {
		if kind, ok := errs.Of(err); ok && kind == errs.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return &model.MirrorSet{EventKey: resolved.EventKey, Mirrors: resolved.Mirrors}, nil
}

var corridorDatePattern = regexp.MustCompile(`^corridor-(\d{4}-\d{2}-\d{2})\.md$`)
var vaultDatePattern = regexp.MustCompile(`^vault-(\d{4}-\d{2}-\d{2})\.md$`)

// AutoLink scans memory/corridors/corridor-YYYY-MM-DD.md and
// memory/vaults/vault-YYYY-MM-DD.md files, extracts the date, and links each
// to memory/YYYY-MM-DD.md when present, using event_key = daily-YYYY-MM-DD.
func (m *Mirrors) AutoLink() (int, error) {
	linked := 0
	log := logging.Get(logging.CategoryMirrors)

	corridorFiles, _ := filepath.Glob(filepath.Join(m.memoryRoot, "corridors", "corridor-*.md"))
	for _, f := range corridorFiles {
		match := corridorDatePattern.FindStringSubmatch(filepath.Base(f))
		if match == nil {
			continue
		}
		date := match[1]
		eventKey := "daily-" + date
		rawPath := filepath.Join(m.memoryRoot, date+".md")
		if !fileExists(rawPath) {
			continue
		}
		corridorRel := relTo(m.memoryRoot, f)
		rawRel := relTo(m.memoryRoot, rawPath)
		if err := m.store.LinkMirrors(eventKey, rawRel, corridorRel, ""); err != nil {
			log.Warn("auto_link: failed to link %s: %v", eventKey, err)
			continue
		}
		linked++
	}

	vaultFiles, _ := filepath.Glob(filepath.Join(m.memoryRoot, "vaults", "vault-*.md"))
	for _, f := range vaultFiles {
		match := vaultDatePattern.FindStringSubmatch(filepath.Base(f))
		if match == nil {
			continue
		}
		date := match[1]
		eventKey := "daily-" + date
		rawPath := filepath.Join(m.memoryRoot, date+".md")
		if !fileExists(rawPath) {
			continue
		}
		vaultRel := relTo(m.memoryRoot, f)
		rawRel := relTo(m.memoryRoot, rawPath)
		existing, err := m.store.MirrorsByEventKey(eventKey)
		if err != nil {
			log.Warn("auto_link: failed to read existing mirrors for %s: %v", eventKey, err)
			continue
		}
		summary := ""
		for _, e := range existing {
			if e.Granularity == model.GranularitySummary {
				summary = e.Path
			}
		}
		if err := m.store.LinkMirrors(eventKey, rawRel, summary, vaultRel); err != nil {
			log.Warn("auto_link: failed to link %s: %v", eventKey, err)
			continue
		}
		linked++
	}

	return linked, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return strings.TrimPrefix(filepath.ToSlash(rel), "./")
}

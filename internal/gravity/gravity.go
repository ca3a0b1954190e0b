// Package gravity tracks per-chunk importance and re-ranks retrieval
// results by it. Grounded on the teacher's confidence/activation-tracking
// shape in internal/store/learning.go (access counters, decay, a pure
// scoring function) generalized to the chunk-identity model spec §3 defines.
package gravity

import (
	"math"
	"sort"
	"time"

	"nautilus/internal/config"
	"nautilus/internal/errs"
	"nautilus/internal/logging"
	"nautilus/internal/model"
	"nautilus/internal/store"
)

// Gravity computes and persists per-chunk importance.
type Gravity struct {
	store *store.Store
	cfg   *config.Config
}

// New builds a Gravity tracker borrowing st for the lifetime of each call.
func New(st *store.Store, cfg *config.Config) *Gravity {
	return &Gravity{store: st, cfg: cfg}
}

// RecordAccess upserts the chunk, increments access_count, and appends an
// access-log row (spec §4.2).
func (g *Gravity) RecordAccess(key model.ChunkKey, query string, score *float64) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := g.store.RecordAccess(key, query, score, ""); err != nil {
		return errs.Wrap(errs.StoreUnavailable, "record_access failed", err)
	}
	return nil
}

// RecordWrite sets last_written_at = now() on every existing chunk at path,
// creating a whole-file chunk if none exists.
func (g *Gravity) RecordWrite(path string) error {
	if path == "" {
		return errs.New(errs.InvalidArgument, "path must not be empty")
	}
	if err := g.store.RecordWrite(path); err != nil {
		return errs.Wrap(errs.StoreUnavailable, "record_write failed", err)
	}
	return nil
}

// Boost increments explicit_importance by amount (amount >= 0).
func (g *Gravity) Boost(key model.ChunkKey, amount float64) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if amount < 0 {
		return errs.New(errs.InvalidArgument, "boost amount must be >= 0")
	}
	if err := g.store.Boost(key, amount); err != nil {
		return errs.Wrap(errs.StoreUnavailable, "boost failed", err)
	}
	return nil
}

// Decay multiplies explicit_importance by (1 - decay_rate) for every chunk
// inactive for >= 30 days and unwritten for >= 14 days.
func (g *Gravity) Decay() (int64, error) {
	n, err := g.store.Decay(g.cfg.DecayRate)
	if err != nil {
		return 0, errs.Wrap(errs.StoreUnavailable, "decay failed", err)
	}
	logging.Get(logging.CategoryGravity).Info("decay applied to %d chunks", n)
	return n, nil
}

// EffectiveMass is the pure function of spec §4.2's formula.
func (g *Gravity) EffectiveMass(rec *model.GravityRecord) float64 {
	if rec == nil {
		return 0
	}
	base := 0.3*float64(rec.AccessCount) + 0.5*float64(rec.ReferenceCount) + rec.ExplicitImportance

	daysSinceWrite := math.Inf(1)
	if rec.LastWrittenAt != nil {
		daysSinceWrite = time.Since(*rec.LastWrittenAt).Hours() / 24
	}
	recency := 1 / (1 + g.cfg.DecayRate*daysSinceWrite)

	var authority float64
	if daysSinceWrite < 2 {
		authority = g.cfg.AuthorityBoost
	}

	mass := base*recency + authority
	if mass > g.cfg.MassCap {
		mass = g.cfg.MassCap
	}
	if mass < 0 {
		mass = 0
	}
	return mass
}

// ScoreModifier is the pure function of spec §4.2: a multiplier >= 1.0.
func ScoreModifier(mass float64) float64 {
	if mass < 0 {
		mass = 0
	}
	return 1 + 0.1*math.Log(1+mass)
}

// Rerank attaches gravity metadata to each candidate and multiplies its
// score by ScoreModifier(effective_mass). Candidates whose chunk does not
// exist pass through with modifier 1.0. The set of input results is
// preserved; nothing is dropped here. Output is sorted by adjusted score
// descending, ties broken by last_written_at descending then path
// ascending (spec §4.2, §8).
func (g *Gravity) Rerank(candidates []model.RetrievedResult) ([]model.Result, error) {
	results := make([]model.Result, 0, len(candidates))
	lastWritten := make([]time.Time, 0, len(candidates))

	for _, c := range candidates {
		key := c.Key()
		rec, err := g.store.GetGravityRecord(key)
		if err != nil {
			return nil, errs.Wrap(errs.StoreUnavailable, "rerank lookup failed", err)
		}

		r := model.Result{
			Path:          c.Path,
			LineStart:     c.LineStart,
			LineEnd:       c.LineEnd,
			OriginalScore: c.Score,
			Snippet:       c.Snippet,
			Chamber:       model.ChamberUnknown,
		}

		var writeTime time.Time
		if rec == nil {
			r.Score = c.Score
			r.Gravity = model.GravityAnnotation{EffectiveMass: 0, Modifier: 1.0, Superseded: false}
		} else {
			mass := g.EffectiveMass(rec)
			modifier := ScoreModifier(mass)
			r.Score = c.Score * modifier
			r.Gravity = model.GravityAnnotation{
				EffectiveMass: mass,
				Modifier:      modifier,
				Superseded:    rec.SupersededBy != "",
			}
			r.Chamber = rec.Chamber
			if rec.LastWrittenAt != nil {
				writeTime = *rec.LastWrittenAt
			}
		}
		results = append(results, r)
		lastWritten = append(lastWritten, writeTime)
	}

	sortResults(results, lastWritten)
	return results, nil
}

// sortResults orders by adjusted score descending, ties broken by
// last_written_at descending, then by path ascending.
func sortResults(results []model.Result, lastWritten []time.Time) {
	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !lastWritten[i].Equal(lastWritten[j]) {
			return lastWritten[i].After(lastWritten[j])
		}
		return results[i].Path < results[j].Path
	})

	ordered := make([]model.Result, len(results))
	orderedWritten := make([]time.Time, len(results))
	for newPos, oldPos := range idx {
		ordered[newPos] = results[oldPos]
		orderedWritten[newPos] = lastWritten[oldPos]
	}
	copy(results, ordered)
	copy(lastWritten, orderedWritten)
}

func validateKey(key model.ChunkKey) error {
	if key.Path == "" {
		return errs.New(errs.InvalidArgument, "path must not be empty")
	}
	if key.LineStart < 0 || key.LineEnd < 0 || (key.LineEnd != 0 && key.LineEnd < key.LineStart) {
		return errs.New(errs.InvalidArgument, "invalid line range")
	}
	return nil
}

// Package doors classifies text into context tags and filters retrieval
// results by tag overlap (spec §4.4). Grounded on the teacher's pattern-table
// classifiers (internal/transparency and internal/retrieval both drive
// behavior off named regex groups); Doors generalizes that shape to
// configurable tag -> []regexp mappings.
package doors

import (
	"os"
	"regexp"
	"sort"

	"nautilus/internal/config"
	"nautilus/internal/errs"
	"nautilus/internal/logging"
	"nautilus/internal/model"
	"nautilus/internal/store"
)

// compiledTag is one tag's compiled pattern set.
type compiledTag struct {
	tag      string
	patterns []*regexp.Regexp
}

// Doors classifies text into context tags using a configurable pattern
// table, and filters results against a query's tags.
type Doors struct {
	store        *store.Store
	prefixLimit  int
	compiledTags []compiledTag
}

// New compiles cfg.PatternTable once at construction.
func New(st *store.Store, cfg *config.Config) (*Doors, error) {
	d := &Doors{store: st, prefixLimit: cfg.DoorsPrefixLimitBytes}
	for _, entry := range cfg.PatternTable {
		var compiled []*regexp.Regexp
		for _, p := range entry.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, errs.Wrap(errs.InvalidArgument, "invalid doors pattern: "+p, err)
			}
			compiled = append(compiled, re)
		}
		d.compiledTags = append(d.compiledTags, compiledTag{tag: entry.Tag, patterns: compiled})
	}
	return d, nil
}

// Classify returns the ordered set of tags whose patterns match text, sorted
// by descending match count with lexicographic tie-break. Each tag appears
// at most once.
func (d *Doors) Classify(text string) []string {
	type scored struct {
		tag   string
		count int
	}
	var scores []scored
	for _, ct := range d.compiledTags {
		count := 0
		for _, re := range ct.patterns {
			if re.MatchString(text) {
				count++
			}
		}
		if count > 0 {
			scores = append(scores, scored{tag: ct.tag, count: count})
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].count != scores[j].count {
			return scores[i].count > scores[j].count
		}
		return scores[i].tag < scores[j].tag
	})

	tags := make([]string, len(scores))
	for i, s := range scores {
		tags[i] = s.tag
	}
	return tags
}

// ClassifyFile is Classify(read(path)[:prefix_limit]).
func (d *Doors) ClassifyFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapPath(errs.InvalidArgument, "failed to read file for classification", path, err)
	}
	if len(data) > d.prefixLimit {
		data = data[:d.prefixLimit]
	}
	return d.Classify(string(data)), nil
}

// AutoTag classifies every file already known to the store (one file may
// have multiple chunks) and merges the resulting tags into each chunk's
// persisted tag set: existing tags keep their positions, new tags append.
func (d *Doors) AutoTag(memoryRoot string) (int, error) {
	records, err := d.store.AllGravityRecords()
	if err != nil {
		return 0, errs.Wrap(errs.StoreUnavailable, "auto_tag failed to list chunks", err)
	}

	seenPaths := make(map[string]bool)
	tagged := 0
	log := logging.Get(logging.CategoryDoors)

	for _, rec := range records {
		if seenPaths[rec.Path] {
			continue
		}
		seenPaths[rec.Path] = true

		fullPath := rec.Path
		if memoryRoot != "" {
			fullPath = joinPath(memoryRoot, rec.Path)
		}
		newTags, err := d.ClassifyFile(fullPath)
		if err != nil {
			log.Warn("auto_tag: skipping %s: %v", rec.Path, err)
			continue
		}

		for _, chunk := range mustChunksForPath(d.store, rec.Path) {
			merged := mergeTags(chunk.Tags, newTags)
			if err := d.store.SetTags(chunk.Key(), merged); err != nil {
				log.Warn("auto_tag: failed to set tags for %s: %v", rec.Path, err)
				continue
			}
			tagged++
		}
	}
	return tagged, nil
}

func mustChunksForPath(st *store.Store, path string) []*model.GravityRecord {
	recs, err := st.GravityRecordsForPath(path)
	if err != nil {
		return nil
	}
	return recs
}

// mergeTags unions existing and fresh, deduplicating by first occurrence:
// a tag already present keeps its original position, new tags append in
// classify order.
func mergeTags(existing, fresh []string) []string {
	seen := make(map[string]bool, len(existing)+len(fresh))
	merged := make([]string, 0, len(existing)+len(fresh))
	for _, t := range existing {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	for _, t := range fresh {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	return merged
}

// FilterResult is one result annotated with its context-match score.
type FilterResult struct {
	Result       model.Result
	ContextMatch float64
}

// Filter keeps results with tag overlap against queryTags, scoring
// context_match = overlap/len(queryTags); untagged files pass through at
// 0.5; files with unrelated tags are dropped. With an empty queryTags the
// filter is the identity, stable-sorted by score descending.
func (d *Doors) Filter(results []model.Result, queryTags []string) []model.Result {
	if len(queryTags) == 0 {
		out := make([]model.Result, len(results))
		copy(out, results)
		stableSortByScore(out)
		return out
	}

	querySet := make(map[string]bool, len(queryTags))
	for _, t := range queryTags {
		querySet[t] = true
	}

	out := make([]model.Result, 0, len(results))
	for _, r := range results {
		fileTags := d.fileTags(r.Key())
		overlap := 0
		for _, t := range fileTags {
			if querySet[t] {
				overlap++
			}
		}
		switch {
		case overlap >= 1:
			r.ContextMatch = float64(overlap) / float64(len(queryTags))
			out = append(out, r)
		case len(fileTags) == 0:
			r.ContextMatch = 0.5
			out = append(out, r)
		default:
			// tagged but no overlap with the query: drop
		}
	}

	stableSortByScore(out)
	return out
}

func (d *Doors) fileTags(key model.ChunkKey) []string {
	rec, err := d.store.GetGravityRecord(key)
	if err != nil || rec == nil {
		return nil
	}
	return rec.Tags
}

func stableSortByScore(results []model.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func joinPath(root, path string) string {
	if root == "" {
		return path
	}
	if len(path) > 0 && path[0] == '/' {
		return path
	}
	return root + "/" + path
}

// Package pipeline orchestrates search(): base retrieval, Gravity rerank,
// Doors filter, Chambers preference, Mirrors resolution (spec §4.6).
// Grounded on the teacher's multi-stage retrieval orchestration in
// internal/retrieval (sparse candidate generation feeding a downstream
// ranker) generalized to Nautilus's fixed eight-stage pipeline.
package pipeline

import (
	"context"
	"sort"

	"nautilus/internal/config"
	"nautilus/internal/doors"
	"nautilus/internal/errs"
	"nautilus/internal/gravity"
	"nautilus/internal/logging"
	"nautilus/internal/mirrors"
	"nautilus/internal/model"
	"nautilus/internal/retriever"
)

// chamberRank gives atrium < corridor < vault < unknown, for stable
// near-tie reordering (spec §4.6 stage 6).
var chamberRank = map[model.Chamber]int{
	model.ChamberAtrium:   0,
	model.ChamberCorridor: 1,
	model.ChamberVault:    2,
	model.ChamberUnknown:  3,
}

// Pipeline wires the base retriever and Nautilus's own components into the
// search() operation.
type Pipeline struct {
	retriever retriever.BaseRetriever
	gravity   *gravity.Gravity
	doors     *doors.Doors
	mirrors   *mirrors.Mirrors
	cfg       *config.Config
}

// New builds a Pipeline from its dependencies.
func New(r retriever.BaseRetriever, g *gravity.Gravity, d *doors.Doors, m *mirrors.Mirrors, cfg *config.Config) *Pipeline {
	return &Pipeline{retriever: r, gravity: g, doors: d, mirrors: m, cfg: cfg}
}

// Search runs the eight-stage pipeline and returns at most n results.
func (p *Pipeline) Search(ctx context.Context, query string, n int, trapdoor bool) ([]model.Result, error) {
	if n <= 0 {
		return nil, errs.New(errs.InvalidArgument, "n must be > 0")
	}
	log := logging.Get(logging.CategoryPipeline)
	timer := logging.StartTimer(logging.CategoryPipeline, "Search")
	defer timer.Stop()

	// Stage 1: context classification.
	var contextTags []string
	if !trapdoor {
		contextTags = p.doors.Classify(query)
	}

	// Stage 2: base retrieval.
	maxResults := n * 3
	if p.cfg.MinimumCandidates > maxResults {
		maxResults = p.cfg.MinimumCandidates
	}
	candidates, err := p.retriever.Search(ctx, query, maxResults)
	if err != nil {
		return nil, errs.Wrap(errs.RetrievalFailed, "base retriever failed", err)
	}

	// Stage 3: record accesses. Store failures here are logged and
	// swallowed, never abort the query (spec §7 propagation policy).
	for _, c := range candidates {
		score := c.Score
		if err := p.gravity.RecordAccess(c.Key(), query, &score); err != nil {
			log.Warn("record_access failed for %s: %v", c.Path, err)
		}
	}

	// Stage 4: gravity rerank.
	results, err := p.gravity.Rerank(candidates)
	if err != nil {
		log.Warn("rerank failed, falling back to unranked candidates: %v", err)
		results = fallbackResults(candidates)
	}

	// Stage 5: context filter.
	if len(contextTags) > 0 {
		results = p.doors.Filter(results, contextTags)
	} else {
		results = identitySortByScore(results)
	}

	// Stage 6: chamber preference among near-ties (within 5% of each
	// other's adjusted score).
	results = applyChamberPreference(results)

	// Stage 7: mirror resolution.
	for i := range results {
		mirrorSet, err := p.mirrors.ResolveForSearch(results[i].Path)
		if err != nil {
			log.Warn("mirror resolution failed for %s: %v", results[i].Path, err)
			continue
		}
		results[i].Mirrors = mirrorSet
	}

	// Stage 8: truncate to n.
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

func fallbackResults(candidates []model.RetrievedResult) []model.Result {
	out := make([]model.Result, len(candidates))
	for i, c := range candidates {
		out[i] = model.Result{
			Path: c.Path, LineStart: c.LineStart, LineEnd: c.LineEnd,
			Score: c.Score, OriginalScore: c.Score, Snippet: c.Snippet,
			Gravity: model.GravityAnnotation{Modifier: 1.0},
			Chamber: model.ChamberUnknown,
		}
	}
	return out
}

func identitySortByScore(results []model.Result) []model.Result {
	out := make([]model.Result, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// applyChamberPreference stable-sorts by chamber only among items whose
// adjusted scores lie within 5% of each other, so near-ties prefer fresher
// material while decisively-ranked results keep their order.
func applyChamberPreference(results []model.Result) []model.Result {
	out := make([]model.Result, len(results))
	copy(out, results)

	i := 0
	for i < len(out) {
		j := i + 1
		for j < len(out) && withinFivePercent(out[i].Score, out[j].Score) {
			j++
		}
		if j-i > 1 {
			band := out[i:j]
			sort.SliceStable(band, func(a, b int) bool {
				return chamberRank[band[a].Chamber] < chamberRank[band[b].Chamber]
			})
		}
		i = j
	}
	return out
}

func withinFivePercent(a, b float64) bool {
	if a == 0 && b == 0 {
		return true
	}
	base := a
	if base == 0 {
		base = b
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff/absFloat(base) <= 0.05
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

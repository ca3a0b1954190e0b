// Package model holds the value types shared across Nautilus's components.
// Everything here is a plain value keyed by (path, line_start, line_end) —
// no pointer graphs, no cross-package interfaces — so Gravity, Chambers,
// Doors, Mirrors, and Pipeline can all speak the same vocabulary without
// importing one another.
package model

import "time"

// Chamber is the temporal bucket assigned to a chunk by file age.
type Chamber string

const (
	ChamberAtrium   Chamber = "atrium"
	ChamberCorridor Chamber = "corridor"
	ChamberVault    Chamber = "vault"
	ChamberUnknown  Chamber = "unknown"
)

// Granularity identifies which level of detail a mirror entry records.
type Granularity string

const (
	GranularityRaw     Granularity = "raw"
	GranularitySummary Granularity = "summary"
	GranularityLesson  Granularity = "lesson"
)

// ChunkKey identifies a chunk: a whole file (LineStart == LineEnd == 0)
// or a line range within one. Path is workspace-relative.
type ChunkKey struct {
	Path      string
	LineStart int
	LineEnd   int
}

// IsWholeFile reports whether this key addresses an entire file.
func (k ChunkKey) IsWholeFile() bool {
	return k.LineStart == 0 && k.LineEnd == 0
}

// GravityRecord is the persisted importance state for one chunk.
type GravityRecord struct {
	Path               string
	LineStart          int
	LineEnd            int
	AccessCount        int64
	ReferenceCount     int64
	ExplicitImportance float64
	LastAccessedAt     *time.Time
	LastWrittenAt      *time.Time
	CreatedAt          time.Time
	SupersededBy       string
	Tags               []string
	Chamber            Chamber
}

// Key returns the record's chunk identity.
func (g GravityRecord) Key() ChunkKey {
	return ChunkKey{Path: g.Path, LineStart: g.LineStart, LineEnd: g.LineEnd}
}

// RetrievedResult is one record returned by the base retriever, before any
// Nautilus annotation is applied.
type RetrievedResult struct {
	Path      string
	LineStart int
	LineEnd   int
	Score     float64
	Snippet   string
}

// Key returns the chunk identity this result addresses.
func (r RetrievedResult) Key() ChunkKey {
	return ChunkKey{Path: r.Path, LineStart: r.LineStart, LineEnd: r.LineEnd}
}

// GravityAnnotation is the gravity metadata attached to a search result.
type GravityAnnotation struct {
	EffectiveMass float64
	Modifier      float64
	Superseded    bool
}

// MirrorEntry is one sibling granularity of an event, as returned by resolve.
type MirrorEntry struct {
	Granularity Granularity
	Path        string
}

// MirrorSet is the resolved family of granularities for one event.
type MirrorSet struct {
	EventKey string
	Mirrors  []MirrorEntry
}

// Result is a fully-annotated search result, as returned by Pipeline.Search.
type Result struct {
	Path          string
	LineStart     int
	LineEnd       int
	Score         float64
	OriginalScore float64
	Snippet       string
	Gravity       GravityAnnotation
	ContextMatch  float64
	Chamber       Chamber
	Mirrors       *MirrorSet
}

// Key returns the chunk identity this result addresses.
func (r Result) Key() ChunkKey {
	return ChunkKey{Path: r.Path, LineStart: r.LineStart, LineEnd: r.LineEnd}
}

// AccessLogEntry is one append-only row of the retrieval audit trail.
type AccessLogEntry struct {
	ID         int64
	Path       string
	LineStart  int
	LineEnd    int
	AccessedAt time.Time
	Query      string
	Score      *float64
	Context    string
}

package store

import "nautilus/internal/model"

// Stats is the row-count summary behind the `status` CLI command (spec §6).
type Stats struct {
	ChunkCount       int64
	AccessLogCount   int64
	MirrorCount      int64
	ChamberCounts    map[model.Chamber]int64
	TaggedChunkCount int64
	DBPath           string
	DBSizeBytes      int64
}

// GetStats computes store-wide counters, tolerating missing tables exactly
// as the teacher's LocalStore.GetStats does — a fresh store with no tables
// yet populated still returns zeroed stats rather than an error.
func (s *Store) GetStats() (Stats, error) {
	stats := Stats{
		ChamberCounts: make(map[model.Chamber]int64),
		DBPath:        s.dbPath,
		DBSizeBytes:   s.Size(),
	}

	tableCount := func(query string) int64 {
		var n int64
		if err := s.QueryRow(query).Scan(&n); err != nil {
			return 0
		}
		return n
	}

	stats.ChunkCount = tableCount(`SELECT COUNT(*) FROM gravity`)
	stats.AccessLogCount = tableCount(`SELECT COUNT(*) FROM access_log`)
	stats.MirrorCount = tableCount(`SELECT COUNT(*) FROM mirrors`)
	stats.TaggedChunkCount = tableCount(`SELECT COUNT(*) FROM gravity WHERE tags != '[]' AND tags != ''`)

	for _, chamber := range []model.Chamber{model.ChamberAtrium, model.ChamberCorridor, model.ChamberVault, model.ChamberUnknown} {
		var n int64
		err := s.QueryRow(`SELECT COUNT(*) FROM gravity WHERE chamber = ?`, string(chamber)).Scan(&n)
		if err == nil {
			stats.ChamberCounts[chamber] = n
		}
	}

	return stats, nil
}

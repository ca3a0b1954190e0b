package store

import (
	"database/sql"

	"nautilus/internal/model"
)

// LinkMirrors inserts up to three mirror rows atomically under one event
// key, overwriting any existing row at the same (event_key, granularity) —
// Mirrors' link operation (spec §4.5).
func (s *Store) LinkMirrors(eventKey string, raw, summary, lesson string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		upsert := func(granularity model.Granularity, path string) error {
			if path == "" {
				return nil
			}
			_, err := tx.Exec(
				`INSERT INTO mirrors (event_key, granularity, path) VALUES (?, ?, ?)
				 ON CONFLICT(event_key, granularity) DO UPDATE SET path = excluded.path`,
				eventKey, string(granularity), path,
			)
			return err
		}
		if err := upsert(model.GranularityRaw, raw); err != nil {
			return err
		}
		if err := upsert(model.GranularitySummary, summary); err != nil {
			return err
		}
		return upsert(model.GranularityLesson, lesson)
	})
}

// MirrorsByEventKey returns every mirror row sharing eventKey, ordered
// raw -> summary -> lesson.
func (s *Store) MirrorsByEventKey(eventKey string) ([]model.MirrorEntry, error) {
	rows, err := s.Query(
		`SELECT granularity, path FROM mirrors WHERE event_key = ?
		 ORDER BY CASE granularity WHEN 'raw' THEN 0 WHEN 'summary' THEN 1 WHEN 'lesson' THEN 2 ELSE 3 END`,
		eventKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MirrorEntry
	for rows.Next() {
		var g, p string
		if err := rows.Scan(&g, &p); err != nil {
			return nil, classifyErr(err)
		}
		out = append(out, model.MirrorEntry{Granularity: model.Granularity(g), Path: p})
	}
	return out, rows.Err()
}

// EventKeyForPath returns the event_key of the mirror row whose path
// matches, or "" if none exists.
func (s *Store) EventKeyForPath(path string) (string, error) {
	var key string
	err := s.QueryRow(`SELECT event_key FROM mirrors WHERE path = ? LIMIT 1`, path).Scan(&key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", classifyErr(err)
	}
	return key, nil
}

// HasMirrorGranularity reports whether eventKey already has a row for
// granularity, used by Chambers to decide promotion/crystallization
// idempotence.
func (s *Store) HasMirrorGranularity(eventKey string, granularity model.Granularity) (bool, error) {
	var count int
	err := s.QueryRow(
		`SELECT COUNT(*) FROM mirrors WHERE event_key = ? AND granularity = ?`,
		eventKey, string(granularity),
	).Scan(&count)
	if err != nil {
		return false, classifyErr(err)
	}
	return count > 0, nil
}

// MirrorCount returns the total number of mirror rows, for status reporting.
func (s *Store) MirrorCount() (int64, error) {
	var count int64
	err := s.QueryRow(`SELECT COUNT(*) FROM mirrors`).Scan(&count)
	if err != nil {
		return 0, classifyErr(err)
	}
	return count, nil
}

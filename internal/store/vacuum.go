package store

import (
	"database/sql"
	"time"

	"nautilus/internal/logging"
)

// VacuumReport summarizes the row counts a Vacuum call removed.
type VacuumReport struct {
	AccessLogRowsDeleted int64
	OrphanChunksDeleted  int64
}

// Vacuum prunes access_log rows older than retentionDays and orphan chunks
// with zero activity (never accessed, never written, no explicit importance,
// no tags). Modeled on the teacher's LearningStore.DecayConfidence
// delete-then-report pattern: two bounded deletes, each counted and logged.
// Not named as an operation in spec.md's prose Lifecycle section, but named
// there as a capability ("vacuum prunes access-log entries... and orphan
// chunks"); SPEC_FULL.md promotes it to a first-class Store method.
func (s *Store) Vacuum(retentionDays int) (VacuumReport, error) {
	log := logging.Get(logging.CategoryStore)
	var report VacuumReport

	err := s.Transaction(func(tx *sql.Tx) error {
		days := retentionDays
		if days < 0 {
			days = 0
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		res, err := tx.Exec(`DELETE FROM access_log WHERE accessed_at <= ?`, cutoff)
		if err != nil {
			return err
		}
		report.AccessLogRowsDeleted, _ = res.RowsAffected()

		res, err = tx.Exec(
			`DELETE FROM gravity
			 WHERE access_count = 0
			   AND reference_count = 0
			   AND explicit_importance = 0
			   AND last_written_at IS NULL
			   AND (tags = '[]' OR tags = '' OR tags IS NULL)
			   AND superseded_by = ''`,
		)
		if err != nil {
			return err
		}
		report.OrphanChunksDeleted, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return report, err
	}

	log.Info("vacuum complete: access_log=-%d gravity=-%d", report.AccessLogRowsDeleted, report.OrphanChunksDeleted)
	return report, nil
}

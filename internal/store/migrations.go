package store

import (
	"database/sql"
	"fmt"

	"nautilus/internal/logging"
)

// migration names one additive column the schema might be missing on a
// pre-existing database, and the default to backfill it with.
type migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations is Nautilus's one additive migration step (spec §4.1):
// a pre-existing gravity table from before tags/chamber support gets those
// columns added with their documented defaults. Modeled on the teacher's
// internal/store/migrations.go pendingMigrations list.
var pendingMigrations = []migration{
	{"gravity", "tags", `TEXT NOT NULL DEFAULT '[]'`},
	{"gravity", "chamber", `TEXT NOT NULL DEFAULT 'unknown'`},
	{"access_log", "context", `TEXT`},
}

func (s *Store) runMigrations() error {
	log := logging.Get(logging.CategoryStore)
	applied, skipped := 0, 0

	for _, m := range pendingMigrations {
		if !tableExists(s.db, m.Table) {
			skipped++
			continue
		}
		if columnExists(s.db, m.Table, m.Column) {
			skipped++
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := s.db.Exec(stmt); err != nil {
			log.Warn("migration failed (may already exist): %s.%s: %v", m.Table, m.Column, err)
			skipped++
			continue
		}
		log.Info("migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	log.Debug("migrations complete: applied=%d skipped=%d", applied, skipped)
	return nil
}

// columnExists reports whether table has column, via PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists reports whether table exists in sqlite_master.
func tableExists(db *sql.DB, table string) bool {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

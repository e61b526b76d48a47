package sqlite

import "database/sql"

// schemaVersion is the current forward-migration target. Bump it and add a
// case to migrate when the schema changes; migrations never rewrite
// history, only move forward.
const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS targets (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL UNIQUE,
	locator        TEXT NOT NULL,
	engine         TEXT NOT NULL,
	strategy_json  TEXT NOT NULL,
	normalize_json TEXT NOT NULL,
	headers_json   TEXT NOT NULL,
	interval_sec   INTEGER NOT NULL,
	enabled        INTEGER NOT NULL,
	notify_json    TEXT,
	agent_json     TEXT NOT NULL,
	profile        INTEGER NOT NULL,
	tags_json      TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	filters_json   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	target_id   TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	fetched_at  INTEGER NOT NULL,
	raw_payload BLOB,
	text        TEXT NOT NULL,
	hash        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_target_fetched ON snapshots(target_id, fetched_at DESC);

CREATE TABLE IF NOT EXISTS changes (
	id            TEXT PRIMARY KEY,
	target_id     TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	detected_at   INTEGER NOT NULL,
	old_snapshot  TEXT NOT NULL,
	new_snapshot  TEXT NOT NULL,
	diff_text     TEXT NOT NULL,
	diff_size     INTEGER NOT NULL,
	filter_passed INTEGER NOT NULL,
	agent_json    TEXT,
	agent_error   TEXT NOT NULL DEFAULT '',
	notified      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_target_detected ON changes(target_id, detected_at DESC);
CREATE INDEX IF NOT EXISTS idx_changes_detected ON changes(detected_at DESC);

CREATE TABLE IF NOT EXISTS agent_memory (
	target_id        TEXT PRIMARY KEY REFERENCES targets(id) ON DELETE CASCADE,
	counters_json    TEXT NOT NULL,
	last_values_json TEXT NOT NULL,
	notes_json       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS global_memory (
	id                INTEGER PRIMARY KEY CHECK (id = 1),
	observations_json TEXT NOT NULL,
	weights_json      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reminders (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	body         TEXT NOT NULL,
	trigger_at   INTEGER NOT NULL,
	interval_sec INTEGER,
	enabled      INTEGER NOT NULL,
	notify_json  TEXT,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reminders_trigger ON reminders(trigger_at);
`

// migrate brings db forward to schemaVersion, applying each numbered step
// in order inside its own transaction. Steps are additive; none of them
// rewrites data written by an earlier version.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}

	current, err := currentVersion(db)
	if err != nil {
		return err
	}

	steps := []string{schemaV1}
	for v := current; v < schemaVersion; v++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(steps[v]); err != nil {
			tx.Rollback()
			return err
		}
		if err := bumpVersion(tx, v+1); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func currentVersion(db *sql.DB) (int, error) {
	row := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return v, nil
}

func bumpVersion(tx *sql.Tx, v int) error {
	if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, v)
	return err
}

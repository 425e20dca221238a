package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/evanschultz/ucm/internal/domain"
)

// schemaVersion is recorded in _metadata so later releases can migrate forward.
const schemaVersion = 2

// schema contains the DDL executed on every open.
const schema = `
CREATE TABLE IF NOT EXISTS _metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS actors (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	emoji                TEXT NOT NULL DEFAULT '',
	kind                 TEXT NOT NULL,
	background           TEXT NOT NULL DEFAULT '',
	role                 TEXT NOT NULL DEFAULT '',
	education            TEXT NOT NULL DEFAULT '',
	technical_experience TEXT NOT NULL DEFAULT '',
	motivation           TEXT NOT NULL DEFAULT '',
	system_type          TEXT NOT NULL DEFAULT '',
	system_description   TEXT NOT NULL DEFAULT '',
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS use_cases (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	category     TEXT NOT NULL,
	category_key TEXT NOT NULL DEFAULT '',
	priority     TEXT NOT NULL,
	status       TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	version      INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_use_cases_status ON use_cases(status);

CREATE TABLE IF NOT EXISTS use_case_preconditions (
	use_case_id     TEXT NOT NULL REFERENCES use_cases(id) ON DELETE CASCADE,
	condition_order INTEGER NOT NULL,
	text            TEXT NOT NULL,
	PRIMARY KEY (use_case_id, condition_order)
);

CREATE TABLE IF NOT EXISTS use_case_postconditions (
	use_case_id     TEXT NOT NULL REFERENCES use_cases(id) ON DELETE CASCADE,
	condition_order INTEGER NOT NULL,
	text            TEXT NOT NULL,
	PRIMARY KEY (use_case_id, condition_order)
);

CREATE TABLE IF NOT EXISTS use_case_references (
	source_id   TEXT NOT NULL REFERENCES use_cases(id) ON DELETE CASCADE,
	ref_order   INTEGER NOT NULL,
	target_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	kind        TEXT NOT NULL,
	note        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source_id, ref_order)
);
CREATE INDEX IF NOT EXISTS idx_use_case_references_target ON use_case_references(target_id);

CREATE TABLE IF NOT EXISTS scenarios (
	id                  TEXT PRIMARY KEY,
	use_case_id         TEXT NOT NULL REFERENCES use_cases(id) ON DELETE CASCADE,
	title               TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	type                TEXT NOT NULL,
	status              TEXT NOT NULL,
	actor_id            TEXT REFERENCES actors(id) ON DELETE SET NULL,
	preconditions_json  TEXT NOT NULL DEFAULT '[]',
	postconditions_json TEXT NOT NULL DEFAULT '[]',
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL,
	version             INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_scenarios_use_case ON scenarios(use_case_id);
CREATE INDEX IF NOT EXISTS idx_scenarios_actor ON scenarios(actor_id);

CREATE TABLE IF NOT EXISTS scenario_steps (
	scenario_id TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
	step_order  INTEGER NOT NULL,
	action      TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL,
	actor_id    TEXT REFERENCES actors(id) ON DELETE SET NULL,
	notes       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (scenario_id, step_order)
);
CREATE INDEX IF NOT EXISTS idx_scenario_steps_actor ON scenario_steps(actor_id);

CREATE TABLE IF NOT EXISTS scenario_references (
	source_id   TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
	ref_order   INTEGER NOT NULL,
	target_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	kind        TEXT NOT NULL,
	note        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source_id, ref_order)
);
CREATE INDEX IF NOT EXISTS idx_scenario_references_target ON scenario_references(target_id);
`

// categoryKeyIndex is created after upgrades so version 1 databases gain the column first.
const categoryKeyIndex = `CREATE INDEX IF NOT EXISTS idx_use_cases_category_key ON use_cases(category_key)`

// migrate creates the schema, upgrades older databases and records the version.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM _metadata WHERE key = 'schema_version'`).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, `INSERT INTO _metadata(key, value) VALUES('schema_version', ?)`, strconv.Itoa(schemaVersion))
		if err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	default:
		version, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", raw, err)
		}
		if version > schemaVersion {
			return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion)
		}
		if version < 2 {
			if err := s.addCategoryKeys(ctx); err != nil {
				return err
			}
		}
	}
	if _, err := s.db.ExecContext(ctx, categoryKeyIndex); err != nil {
		return fmt.Errorf("create category key index: %w", err)
	}
	return nil
}

// addCategoryKeys upgrades a version 1 database: it adds use_cases.category_key and fills it with
// domain.CategoryKey, which SQLite's own lower() cannot reproduce for non-ASCII text.
func (s *Store) addCategoryKeys(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin category key upgrade: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `ALTER TABLE use_cases ADD COLUMN category_key TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("add category_key column: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_use_cases_category`); err != nil {
		return fmt.Errorf("drop category index: %w", err)
	}
	rows, err := tx.QueryContext(ctx, `SELECT id, category FROM use_cases`)
	if err != nil {
		return fmt.Errorf("read categories: %w", err)
	}
	keys := map[string]string{}
	for rows.Next() {
		var id, category string
		if err := rows.Scan(&id, &category); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan category: %w", err)
		}
		keys[id] = domain.CategoryKey(category)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return fmt.Errorf("read categories: %w", err)
	}
	for id, key := range keys {
		if _, err := tx.ExecContext(ctx, `UPDATE use_cases SET category_key = ? WHERE id = ?`, key, id); err != nil {
			return fmt.Errorf("fill category_key for %s: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE _metadata SET value = ? WHERE key = 'schema_version'`, strconv.Itoa(schemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

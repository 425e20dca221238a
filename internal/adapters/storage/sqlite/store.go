// Package sqlite persists a project in a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/evanschultz/ucm/internal/app"
	"github.com/evanschultz/ucm/internal/domain"
)

// driverName defines a package constant value.
const driverName = "sqlite"

const backendName = "sqlite"

var errReadOnly = errors.New("write in read-only transaction")

// Store represents store data used by this package.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, app.StorageFailure(backendName, "create dir", filepath.Dir(path), err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	return open(dsn, path)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Store, error) {
	dsn := fmt.Sprintf("file:ucm-%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	return open(dsn, "")
}

func open(dsn, path string) (*Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, app.StorageFailure(backendName, "open", path, err)
	}
	// One connection serializes writers and keeps an in-memory database alive between calls.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, app.StorageFailure(backendName, "migrate", path, err)
	}
	return s, nil
}

// Path returns the database file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the requested operation.
func (s *Store) Close() error {
	return s.db.Close()
}

// Update runs fn inside a database transaction and commits when fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(app.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return app.StorageFailure(backendName, "begin", s.path, err)
	}
	if err := fn(&txn{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return app.StorageFailure(backendName, "commit", s.path, err)
	}
	return nil
}

// View runs fn inside a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(app.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return app.StorageFailure(backendName, "begin", s.path, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	return fn(&txn{tx: tx, readOnly: true})
}

// txn implements app.Tx over one sql.Tx.
type txn struct {
	tx       *sql.Tx
	readOnly bool
}

func (t *txn) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

// exists reports whether table holds a row with id. table is always a package constant.
func (t *txn) exists(ctx context.Context, table, id string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, app.StorageFailure(backendName, "query "+table, "", err)
	}
	return true, nil
}

func (t *txn) require(ctx context.Context, table, kind, id string) error {
	ok, err := t.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return app.NotFoundError(kind, id)
	}
	return nil
}

func (t *txn) requireActors(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := t.require(ctx, "actors", "actor", id); err != nil {
			return err
		}
	}
	return nil
}

func (t *txn) CreateUseCase(ctx context.Context, uc domain.UseCase) error {
	if err := t.writable(); err != nil {
		return err
	}
	ok, err := t.exists(ctx, "use_cases", uc.ID)
	if err != nil {
		return err
	}
	if ok {
		return app.DuplicateError("use case", uc.ID)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO use_cases(id, title, category, category_key, priority, status, description, created_at, updated_at, version)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uc.ID, uc.Title, uc.Category, domain.CategoryKey(uc.Category), string(uc.Priority), string(uc.Status), uc.Description, ts(uc.CreatedAt), ts(uc.UpdatedAt), uc.Version)
	if err != nil {
		return translateErr("insert use case", "use case", uc.ID, err)
	}
	return t.writeUseCaseChildren(ctx, uc)
}

func (t *txn) GetUseCase(ctx context.Context, id string) (domain.UseCase, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, title, category, priority, status, description, created_at, updated_at, version
		FROM use_cases
		WHERE id = ?
	`, id)
	uc, err := scanUseCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UseCase{}, app.NotFoundError("use case", id)
	}
	if err != nil {
		return domain.UseCase{}, app.StorageFailure(backendName, "get use case", "", err)
	}
	if err := t.loadUseCaseChildren(ctx, &uc); err != nil {
		return domain.UseCase{}, err
	}
	return uc, nil
}

func (t *txn) ListUseCases(ctx context.Context, filter app.UseCaseFilter) ([]domain.UseCase, error) {
	query := `SELECT id, title, category, priority, status, description, created_at, updated_at, version FROM use_cases`
	var (
		clauses []string
		args    []any
	)
	// category_key holds domain.CategoryKey; NOCASE would fold ASCII only.
	if key := domain.CategoryKey(filter.Category); key != "" {
		clauses = append(clauses, `category_key = ?`)
		args = append(args, key)
	}
	if filter.Status != "" {
		clauses = append(clauses, `status = ?`)
		args = append(args, string(filter.Status))
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY id`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, app.StorageFailure(backendName, "list use cases", "", err)
	}
	out := make([]domain.UseCase, 0)
	for rows.Next() {
		uc, err := scanUseCase(rows)
		if err != nil {
			_ = rows.Close()
			return nil, app.StorageFailure(backendName, "list use cases", "", err)
		}
		out = append(out, uc)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, app.StorageFailure(backendName, "list use cases", "", err)
	}
	for i := range out {
		if err := t.loadUseCaseChildren(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *txn) UpdateUseCase(ctx context.Context, uc domain.UseCase) error {
	if err := t.writable(); err != nil {
		return err
	}
	// The category is fixed at creation; it is left out of the SET list.
	res, err := t.tx.ExecContext(ctx, `
		UPDATE use_cases
		SET title = ?, priority = ?, status = ?, description = ?, created_at = ?, updated_at = ?, version = ?
		WHERE id = ?
	`, uc.Title, string(uc.Priority), string(uc.Status), uc.Description, ts(uc.CreatedAt), ts(uc.UpdatedAt), uc.Version, uc.ID)
	if err != nil {
		return translateErr("update use case", "use case", uc.ID, err)
	}
	if err := translateNoRows(res, "use case", uc.ID); err != nil {
		return err
	}
	return t.writeUseCaseChildren(ctx, uc)
}

// DeleteUseCase removes the use case; foreign keys cascade to its scenarios, steps, conditions and edges.
func (t *txn) DeleteUseCase(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM use_cases WHERE id = ?`, id)
	if err != nil {
		return app.StorageFailure(backendName, "delete use case", "", err)
	}
	return translateNoRows(res, "use case", id)
}

func (t *txn) CreateScenario(ctx context.Context, sc domain.Scenario) error {
	if err := t.writable(); err != nil {
		return err
	}
	ok, err := t.exists(ctx, "scenarios", sc.ID)
	if err != nil {
		return err
	}
	if ok {
		return app.DuplicateError("scenario", sc.ID)
	}
	if err := t.require(ctx, "use_cases", "use case", sc.UseCaseID); err != nil {
		return err
	}
	if err := t.requireActors(ctx, scenarioActors(sc)...); err != nil {
		return err
	}
	pre, post, err := encodeConditions(sc)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO scenarios(
			id, use_case_id, title, description, type, status, actor_id, preconditions_json, postconditions_json,
			created_at, updated_at, version
		)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sc.ID, sc.UseCaseID, sc.Title, sc.Description, string(sc.Type), string(sc.Status), nullable(sc.ActorID), pre, post,
		ts(sc.CreatedAt), ts(sc.UpdatedAt), sc.Version)
	if err != nil {
		return translateErr("insert scenario", "scenario", sc.ID, err)
	}
	return t.writeScenarioChildren(ctx, sc)
}

func (t *txn) GetScenario(ctx context.Context, id string) (domain.Scenario, error) {
	row := t.tx.QueryRowContext(ctx, scenarioSelect+` WHERE s.id = ?`, id)
	sc, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Scenario{}, app.NotFoundError("scenario", id)
	}
	if err != nil {
		return domain.Scenario{}, app.StorageFailure(backendName, "get scenario", "", err)
	}
	if err := t.loadScenarioChildren(ctx, &sc); err != nil {
		return domain.Scenario{}, err
	}
	return sc, nil
}

const scenarioSelect = `
	SELECT s.id, s.use_case_id, s.title, s.description, s.type, s.status, s.actor_id, s.preconditions_json,
		s.postconditions_json, s.created_at, s.updated_at, s.version
	FROM scenarios s`

func (t *txn) ListScenarios(ctx context.Context, filter app.ScenarioFilter) ([]domain.Scenario, error) {
	query := scenarioSelect
	var (
		clauses []string
		args    []any
	)
	if filter.UseCaseID != "" {
		clauses = append(clauses, `s.use_case_id = ?`)
		args = append(args, filter.UseCaseID)
	}
	if filter.ActorID != "" {
		clauses = append(clauses, `(s.actor_id = ? OR EXISTS (
			SELECT 1 FROM scenario_steps st WHERE st.scenario_id = s.id AND st.actor_id = ?
		))`)
		args = append(args, filter.ActorID, filter.ActorID)
	}
	if filter.Status != "" {
		clauses = append(clauses, `s.status = ?`)
		args = append(args, string(filter.Status))
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY s.id`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, app.StorageFailure(backendName, "list scenarios", "", err)
	}
	out := make([]domain.Scenario, 0)
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			_ = rows.Close()
			return nil, app.StorageFailure(backendName, "list scenarios", "", err)
		}
		out = append(out, sc)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, app.StorageFailure(backendName, "list scenarios", "", err)
	}
	for i := range out {
		if err := t.loadScenarioChildren(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *txn) UpdateScenario(ctx context.Context, sc domain.Scenario) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.require(ctx, "scenarios", "scenario", sc.ID); err != nil {
		return err
	}
	if err := t.requireActors(ctx, scenarioActors(sc)...); err != nil {
		return err
	}
	pre, post, err := encodeConditions(sc)
	if err != nil {
		return err
	}
	// The owning use case never changes after creation.
	_, err = t.tx.ExecContext(ctx, `
		UPDATE scenarios
		SET title = ?, description = ?, type = ?, status = ?, actor_id = ?, preconditions_json = ?,
			postconditions_json = ?, created_at = ?, updated_at = ?, version = ?
		WHERE id = ?
	`, sc.Title, sc.Description, string(sc.Type), string(sc.Status), nullable(sc.ActorID), pre, post,
		ts(sc.CreatedAt), ts(sc.UpdatedAt), sc.Version, sc.ID)
	if err != nil {
		return translateErr("update scenario", "scenario", sc.ID, err)
	}
	return t.writeScenarioChildren(ctx, sc)
}

func (t *txn) DeleteScenario(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return app.StorageFailure(backendName, "delete scenario", "", err)
	}
	return translateNoRows(res, "scenario", id)
}

func (t *txn) CreateActor(ctx context.Context, a domain.Actor) error {
	if err := t.writable(); err != nil {
		return err
	}
	ok, err := t.exists(ctx, "actors", a.ID)
	if err != nil {
		return err
	}
	if ok {
		return app.DuplicateError("actor", a.ID)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO actors(
			id, name, emoji, kind, background, role, education, technical_experience, motivation,
			system_type, system_description, created_at, updated_at
		)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Emoji, string(a.Kind), a.Persona.Background, a.Persona.Role, a.Persona.Education,
		a.Persona.TechnicalExperience, a.Persona.Motivation, string(a.System.Type), a.System.Description,
		ts(a.CreatedAt), ts(a.UpdatedAt))
	if err != nil {
		return translateErr("insert actor", "actor", a.ID, err)
	}
	return nil
}

const actorSelect = `
	SELECT id, name, emoji, kind, background, role, education, technical_experience, motivation,
		system_type, system_description, created_at, updated_at
	FROM actors`

func (t *txn) GetActor(ctx context.Context, id string) (domain.Actor, error) {
	a, err := scanActor(t.tx.QueryRowContext(ctx, actorSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Actor{}, app.NotFoundError("actor", id)
	}
	if err != nil {
		return domain.Actor{}, app.StorageFailure(backendName, "get actor", "", err)
	}
	return a, nil
}

func (t *txn) ListActors(ctx context.Context, filter app.ActorFilter) ([]domain.Actor, error) {
	query := actorSelect
	var args []any
	if filter.Kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(filter.Kind))
	}
	query += ` ORDER BY id`
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, app.StorageFailure(backendName, "list actors", "", err)
	}
	defer rows.Close()
	out := make([]domain.Actor, 0)
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, app.StorageFailure(backendName, "list actors", "", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, app.StorageFailure(backendName, "list actors", "", err)
	}
	return out, nil
}

func (t *txn) UpdateActor(ctx context.Context, a domain.Actor) error {
	if err := t.writable(); err != nil {
		return err
	}
	// kind is fixed at creation.
	res, err := t.tx.ExecContext(ctx, `
		UPDATE actors
		SET name = ?, emoji = ?, background = ?, role = ?, education = ?, technical_experience = ?, motivation = ?,
			system_type = ?, system_description = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`, a.Name, a.Emoji, a.Persona.Background, a.Persona.Role, a.Persona.Education, a.Persona.TechnicalExperience,
		a.Persona.Motivation, string(a.System.Type), a.System.Description, ts(a.CreatedAt), ts(a.UpdatedAt), a.ID)
	if err != nil {
		return translateErr("update actor", "actor", a.ID, err)
	}
	return translateNoRows(res, "actor", a.ID)
}

// DeleteActor removes the actor; ON DELETE SET NULL blanks scenario and step references.
func (t *txn) DeleteActor(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM actors WHERE id = ?`, id)
	if err != nil {
		return app.StorageFailure(backendName, "delete actor", "", err)
	}
	return translateNoRows(res, "actor", id)
}

// writeUseCaseChildren replaces the condition and reference rows of a use case.
func (t *txn) writeUseCaseChildren(ctx context.Context, uc domain.UseCase) error {
	for _, table := range []string{"use_case_preconditions", "use_case_postconditions"} {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE use_case_id = ?`, uc.ID); err != nil {
			return app.StorageFailure(backendName, "clear "+table, "", err)
		}
	}
	if err := t.insertConditions(ctx, "use_case_preconditions", uc.ID, uc.Preconditions); err != nil {
		return err
	}
	if err := t.insertConditions(ctx, "use_case_postconditions", uc.ID, uc.Postconditions); err != nil {
		return err
	}
	return t.replaceReferences(ctx, "use_case_references", uc.ID, uc.References)
}

func (t *txn) insertConditions(ctx context.Context, table, useCaseID string, conditions []string) error {
	for i, text := range conditions {
		_, err := t.tx.ExecContext(ctx, `INSERT INTO `+table+`(use_case_id, condition_order, text) VALUES(?, ?, ?)`,
			useCaseID, i+1, text)
		if err != nil {
			return app.StorageFailure(backendName, "insert "+table, "", err)
		}
	}
	return nil
}

func (t *txn) replaceReferences(ctx context.Context, table, sourceID string, refs []domain.Reference) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE source_id = ?`, sourceID); err != nil {
		return app.StorageFailure(backendName, "clear "+table, "", err)
	}
	for i, ref := range refs {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO `+table+`(source_id, ref_order, target_type, target_id, kind, note)
			VALUES(?, ?, ?, ?, ?, ?)
		`, sourceID, i+1, string(ref.TargetType), ref.TargetID, string(ref.Kind), ref.Note)
		if err != nil {
			return app.StorageFailure(backendName, "insert "+table, "", err)
		}
	}
	return nil
}

// writeScenarioChildren replaces the step and reference rows of a scenario.
func (t *txn) writeScenarioChildren(ctx context.Context, sc domain.Scenario) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM scenario_steps WHERE scenario_id = ?`, sc.ID); err != nil {
		return app.StorageFailure(backendName, "clear scenario_steps", "", err)
	}
	for _, step := range sc.Steps {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO scenario_steps(scenario_id, step_order, action, description, actor_id, notes)
			VALUES(?, ?, ?, ?, ?, ?)
		`, sc.ID, step.Order, step.Action, step.Description, nullable(step.ActorID), step.Notes)
		if err != nil {
			return translateErr("insert scenario step", "scenario", sc.ID, err)
		}
	}
	return t.replaceReferences(ctx, "scenario_references", sc.ID, sc.References)
}

func (t *txn) loadUseCaseChildren(ctx context.Context, uc *domain.UseCase) error {
	var err error
	if uc.Preconditions, err = t.loadStrings(ctx,
		`SELECT text FROM use_case_preconditions WHERE use_case_id = ? ORDER BY condition_order`, uc.ID); err != nil {
		return err
	}
	if uc.Postconditions, err = t.loadStrings(ctx,
		`SELECT text FROM use_case_postconditions WHERE use_case_id = ? ORDER BY condition_order`, uc.ID); err != nil {
		return err
	}
	if uc.ScenarioIDs, err = t.loadStrings(ctx,
		`SELECT id FROM scenarios WHERE use_case_id = ? ORDER BY id`, uc.ID); err != nil {
		return err
	}
	uc.References, err = t.loadReferences(ctx, "use_case_references", uc.ID)
	return err
}

func (t *txn) loadScenarioChildren(ctx context.Context, sc *domain.Scenario) error {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT step_order, action, description, actor_id, notes
		FROM scenario_steps
		WHERE scenario_id = ?
		ORDER BY step_order
	`, sc.ID)
	if err != nil {
		return app.StorageFailure(backendName, "load steps", "", err)
	}
	defer rows.Close()
	var steps []domain.Step
	for rows.Next() {
		var (
			step    domain.Step
			actorID sql.NullString
		)
		if err := rows.Scan(&step.Order, &step.Action, &step.Description, &actorID, &step.Notes); err != nil {
			return app.StorageFailure(backendName, "load steps", "", err)
		}
		step.ActorID = actorID.String
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return app.StorageFailure(backendName, "load steps", "", err)
	}
	sc.Steps = steps
	sc.References, err = t.loadReferences(ctx, "scenario_references", sc.ID)
	return err
}

func (t *txn) loadStrings(ctx context.Context, query, id string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, query, id)
	if err != nil {
		return nil, app.StorageFailure(backendName, "query", "", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, app.StorageFailure(backendName, "query", "", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, app.StorageFailure(backendName, "query", "", err)
	}
	return out, nil
}

func (t *txn) loadReferences(ctx context.Context, table, sourceID string) ([]domain.Reference, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT target_type, target_id, kind, note FROM `+table+` WHERE source_id = ? ORDER BY ref_order
	`, sourceID)
	if err != nil {
		return nil, app.StorageFailure(backendName, "load "+table, "", err)
	}
	defer rows.Close()
	var out []domain.Reference
	for rows.Next() {
		var ref domain.Reference
		var targetType, kind string
		if err := rows.Scan(&targetType, &ref.TargetID, &kind, &ref.Note); err != nil {
			return nil, app.StorageFailure(backendName, "load "+table, "", err)
		}
		ref.TargetType = domain.TargetType(targetType)
		ref.Kind = domain.RelationKind(kind)
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, app.StorageFailure(backendName, "load "+table, "", err)
	}
	return out, nil
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

func scanUseCase(s scanner) (domain.UseCase, error) {
	var (
		uc                     domain.UseCase
		priority, status       string
		createdRaw, updatedRaw string
	)
	if err := s.Scan(&uc.ID, &uc.Title, &uc.Category, &priority, &status, &uc.Description, &createdRaw, &updatedRaw,
		&uc.Version); err != nil {
		return domain.UseCase{}, err
	}
	uc.Priority = domain.Priority(priority)
	uc.Status = domain.Status(status)
	uc.CreatedAt = parseTS(createdRaw)
	uc.UpdatedAt = parseTS(updatedRaw)
	return uc, nil
}

func scanScenario(s scanner) (domain.Scenario, error) {
	var (
		sc                     domain.Scenario
		scenarioType, status   string
		actorID                sql.NullString
		preRaw, postRaw        string
		createdRaw, updatedRaw string
	)
	if err := s.Scan(&sc.ID, &sc.UseCaseID, &sc.Title, &sc.Description, &scenarioType, &status, &actorID, &preRaw,
		&postRaw, &createdRaw, &updatedRaw, &sc.Version); err != nil {
		return domain.Scenario{}, err
	}
	sc.Type = domain.ScenarioType(scenarioType)
	sc.Status = domain.Status(status)
	sc.ActorID = actorID.String
	if err := decodeConditions(preRaw, &sc.Preconditions); err != nil {
		return domain.Scenario{}, fmt.Errorf("decode scenario preconditions_json: %w", err)
	}
	if err := decodeConditions(postRaw, &sc.Postconditions); err != nil {
		return domain.Scenario{}, fmt.Errorf("decode scenario postconditions_json: %w", err)
	}
	sc.CreatedAt = parseTS(createdRaw)
	sc.UpdatedAt = parseTS(updatedRaw)
	return sc, nil
}

func scanActor(s scanner) (domain.Actor, error) {
	var (
		a                      domain.Actor
		kind, systemType       string
		createdRaw, updatedRaw string
	)
	if err := s.Scan(&a.ID, &a.Name, &a.Emoji, &kind, &a.Persona.Background, &a.Persona.Role, &a.Persona.Education,
		&a.Persona.TechnicalExperience, &a.Persona.Motivation, &systemType, &a.System.Description, &createdRaw,
		&updatedRaw); err != nil {
		return domain.Actor{}, err
	}
	a.Kind = domain.ActorKind(kind)
	a.System.Type = domain.SystemType(systemType)
	a.CreatedAt = parseTS(createdRaw)
	a.UpdatedAt = parseTS(updatedRaw)
	return a, nil
}

func encodeConditions(sc domain.Scenario) (string, string, error) {
	pre, err := json.Marshal(nonNil(sc.Preconditions))
	if err != nil {
		return "", "", fmt.Errorf("encode scenario preconditions: %w", err)
	}
	post, err := json.Marshal(nonNil(sc.Postconditions))
	if err != nil {
		return "", "", fmt.Errorf("encode scenario postconditions: %w", err)
	}
	return string(pre), string(post), nil
}

func decodeConditions(raw string, dst *[]string) error {
	if strings.TrimSpace(raw) == "" {
		raw = "[]"
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return err
	}
	if len(out) == 0 {
		out = nil
	}
	*dst = out
	return nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func scenarioActors(sc domain.Scenario) []string {
	ids := []string{sc.ActorID}
	for _, step := range sc.Steps {
		ids = append(ids, step.ActorID)
	}
	return ids
}

// nullable maps an empty id to SQL NULL so optional actor columns satisfy their foreign keys.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// translateNoRows maps an update or delete that matched nothing to ErrNotFound.
func translateNoRows(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return app.StorageFailure(backendName, "rows affected", "", err)
	}
	if affected == 0 {
		return app.NotFoundError(kind, id)
	}
	return nil
}

// translateErr maps constraint violations onto the service taxonomy and wraps everything else as a storage failure.
func translateErr(op, kind, id string, err error) error {
	var sqlErr *moderncsqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return app.DuplicateError(kind, id)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s %q references a missing entity: %w", kind, id, app.ErrNotFound)
		}
	}
	return app.StorageFailure(backendName, op, "", err)
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// Package filestore persists a project as a tree of human-editable TOML files.
//
// The committed state is held in memory and mirrored on disk. Transactions work on a copy of that state and are
// written back file by file on commit; a failed commit restores every file it already touched.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/evanschultz/ucm/internal/app"
	"github.com/evanschultz/ucm/internal/domain"
)

const (
	backendName = "toml"
	useCaseDir  = "use-cases"
	actorDir    = "actors"
	fileExt     = ".toml"
)

var errReadOnly = errors.New("write in read-only transaction")

// Store is the TOML file backend.
type Store struct {
	root  string
	mu    sync.RWMutex
	state *state
}

// Open loads the tree under root, creating the directory layout when absent.
func Open(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("filestore root is required")
	}
	for _, dir := range []string{filepath.Join(root, useCaseDir), filepath.Join(root, actorDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, app.StorageFailure(backendName, "create dir", dir, err)
		}
	}
	s := &Store{root: root}
	loaded, err := s.load()
	if err != nil {
		return nil, err
	}
	s.state = loaded
	return s, nil
}

// Root returns the base directory of the store.
func (s *Store) Root() string {
	return s.root
}

// Close releases nothing; the store holds no open handles between calls.
func (s *Store) Close() error {
	return nil
}

// Reload replaces the in-memory state with the current content of the tree.
// The tree is read under the write lock so a commit cannot land between the read and the swap.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	loaded, err := s.load()
	if err != nil {
		return err
	}
	s.state = loaded
	return nil
}

// Update runs fn against a working copy and writes the changed files on success.
func (s *Store) Update(ctx context.Context, fn func(app.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{state: s.state.clone(), dirty: map[entityKey]struct{}{}}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.dirty) == 0 {
		return nil
	}
	if err := s.commit(s.state, tx.state, tx.dirty); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View runs fn against the committed state.
func (s *Store) View(ctx context.Context, fn func(app.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&txn{state: s.state, readOnly: true})
}

type entityKind int

const (
	kindUseCase entityKind = iota
	kindScenario
	kindActor
)

type entityKey struct {
	kind entityKind
	id   string
}

type state struct {
	useCases  map[string]domain.UseCase
	scenarios map[string]domain.Scenario
	actors    map[string]domain.Actor
	// paths holds the file each committed entity was read from or written to, relative to the root.
	paths map[entityKey]string
}

func newState() *state {
	return &state{
		useCases:  map[string]domain.UseCase{},
		scenarios: map[string]domain.Scenario{},
		actors:    map[string]domain.Actor{},
		paths:     map[entityKey]string{},
	}
}

func (st *state) clone() *state {
	out := newState()
	for id, uc := range st.useCases {
		out.useCases[id] = cloneUseCase(uc)
	}
	for id, sc := range st.scenarios {
		out.scenarios[id] = cloneScenario(sc)
	}
	for id, a := range st.actors {
		out.actors[id] = a
	}
	for k, p := range st.paths {
		out.paths[k] = p
	}
	return out
}

func cloneUseCase(uc domain.UseCase) domain.UseCase {
	uc.Preconditions = slices.Clone(uc.Preconditions)
	uc.Postconditions = slices.Clone(uc.Postconditions)
	uc.References = slices.Clone(uc.References)
	uc.ScenarioIDs = nil
	return uc
}

func cloneScenario(sc domain.Scenario) domain.Scenario {
	sc.Steps = slices.Clone(sc.Steps)
	sc.Preconditions = slices.Clone(sc.Preconditions)
	sc.Postconditions = slices.Clone(sc.Postconditions)
	sc.References = slices.Clone(sc.References)
	return sc
}

// categoryDir turns a category into its directory name: lower case with runs of other characters folded to "_".
func categoryDir(category string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(category)) {
		isWord := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isWord {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "uncategorized"
	}
	return b.String()
}

// pathFor computes the relative file path of an entity from st. ok is false when the entity or its owner is absent.
func (st *state) pathFor(key entityKey) (string, bool) {
	switch key.kind {
	case kindUseCase:
		uc, ok := st.useCases[key.id]
		if !ok {
			return "", false
		}
		return filepath.Join(useCaseDir, categoryDir(uc.Category), uc.ID+fileExt), true
	case kindScenario:
		sc, ok := st.scenarios[key.id]
		if !ok {
			return "", false
		}
		owner, ok := st.useCases[sc.UseCaseID]
		if !ok {
			return "", false
		}
		return filepath.Join(useCaseDir, categoryDir(owner.Category), owner.ID, sc.ID+fileExt), true
	case kindActor:
		if _, ok := st.actors[key.id]; !ok {
			return "", false
		}
		return filepath.Join(actorDir, key.id+fileExt), true
	}
	return "", false
}

// encode renders the current content of an entity.
func (st *state) encode(key entityKey) ([]byte, error) {
	switch key.kind {
	case kindUseCase:
		return encodeRecord(useCaseToRecord(st.useCases[key.id]))
	case kindScenario:
		return encodeRecord(scenarioToRecord(st.scenarios[key.id]))
	default:
		return encodeRecord(actorToRecord(st.actors[key.id]))
	}
}

// load reads the whole tree into a fresh state.
func (s *Store) load() (*state, error) {
	st := newState()
	ucRoot := filepath.Join(s.root, useCaseDir)
	err := filepath.WalkDir(ucRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != fileExt {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		// use-cases/<category>/<UC>.toml or use-cases/<category>/<UC>/<SC>.toml
		depth := len(strings.Split(filepath.ToSlash(rel), "/"))
		switch depth {
		case 3:
			return s.loadUseCase(st, path, rel)
		case 4:
			return s.loadScenario(st, path, rel)
		}
		return nil
	})
	if err != nil {
		return nil, app.StorageFailure(backendName, "load", ucRoot, err)
	}

	entries, err := os.ReadDir(filepath.Join(s.root, actorDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, app.StorageFailure(backendName, "load", actorDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExt {
			continue
		}
		rel := filepath.Join(actorDir, entry.Name())
		if err := s.loadActor(st, filepath.Join(s.root, rel), rel); err != nil {
			return nil, app.StorageFailure(backendName, "load", rel, err)
		}
	}

	for id, sc := range st.scenarios {
		if _, ok := st.useCases[sc.UseCaseID]; !ok {
			return nil, app.StorageFailure(backendName, "load", st.paths[entityKey{kindScenario, id}],
				fmt.Errorf("scenario %s has no use case %s", id, sc.UseCaseID))
		}
	}
	return st, nil
}

func (s *Store) loadUseCase(st *state, path, rel string) error {
	var rec useCaseRecord
	if err := readRecord(path, &rec); err != nil {
		return err
	}
	uc, err := rec.toDomain()
	if err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	if _, dup := st.useCases[uc.ID]; dup {
		return fmt.Errorf("%s: use case %s defined twice", rel, uc.ID)
	}
	st.useCases[uc.ID] = uc
	st.paths[entityKey{kindUseCase, uc.ID}] = rel
	return nil
}

func (s *Store) loadScenario(st *state, path, rel string) error {
	var rec scenarioRecord
	if err := readRecord(path, &rec); err != nil {
		return err
	}
	sc, err := rec.toDomain()
	if err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	if _, dup := st.scenarios[sc.ID]; dup {
		return fmt.Errorf("%s: scenario %s defined twice", rel, sc.ID)
	}
	st.scenarios[sc.ID] = sc
	st.paths[entityKey{kindScenario, sc.ID}] = rel
	return nil
}

func (s *Store) loadActor(st *state, path, rel string) error {
	var rec actorRecord
	if err := readRecord(path, &rec); err != nil {
		return err
	}
	a, err := rec.toDomain()
	if err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	if _, dup := st.actors[a.ID]; dup {
		return fmt.Errorf("%s: actor %s defined twice", rel, a.ID)
	}
	st.actors[a.ID] = a
	st.paths[entityKey{kindActor, a.ID}] = rel
	return nil
}

func readRecord(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := decodeRecord(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// txn implements app.Tx over one state.
type txn struct {
	state    *state
	dirty    map[entityKey]struct{}
	readOnly bool
}

func (t *txn) mark(kind entityKind, id string) error {
	if t.readOnly {
		return errReadOnly
	}
	t.dirty[entityKey{kind, id}] = struct{}{}
	return nil
}

func (t *txn) scenarioIDs(useCaseID string) []string {
	var ids []string
	for id, sc := range t.state.scenarios {
		if sc.UseCaseID == useCaseID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (t *txn) readUseCase(uc domain.UseCase) domain.UseCase {
	out := cloneUseCase(uc)
	out.ScenarioIDs = t.scenarioIDs(uc.ID)
	return out
}

func (t *txn) actorsExist(ids ...string) error {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := t.state.actors[id]; !ok {
			return app.NotFoundError("actor", id)
		}
	}
	return nil
}

func (t *txn) CreateUseCase(_ context.Context, uc domain.UseCase) error {
	if _, ok := t.state.useCases[uc.ID]; ok {
		return app.DuplicateError("use case", uc.ID)
	}
	if err := t.mark(kindUseCase, uc.ID); err != nil {
		return err
	}
	t.state.useCases[uc.ID] = cloneUseCase(uc)
	return nil
}

func (t *txn) GetUseCase(_ context.Context, id string) (domain.UseCase, error) {
	uc, ok := t.state.useCases[id]
	if !ok {
		return domain.UseCase{}, app.NotFoundError("use case", id)
	}
	return t.readUseCase(uc), nil
}

func (t *txn) ListUseCases(_ context.Context, filter app.UseCaseFilter) ([]domain.UseCase, error) {
	categoryKey := domain.CategoryKey(filter.Category)
	out := make([]domain.UseCase, 0, len(t.state.useCases))
	for _, uc := range t.state.useCases {
		if categoryKey != "" && domain.CategoryKey(uc.Category) != categoryKey {
			continue
		}
		if filter.Status != "" && filter.Status != uc.Status {
			continue
		}
		out = append(out, t.readUseCase(uc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *txn) UpdateUseCase(_ context.Context, uc domain.UseCase) error {
	current, ok := t.state.useCases[uc.ID]
	if !ok {
		return app.NotFoundError("use case", uc.ID)
	}
	if err := t.mark(kindUseCase, uc.ID); err != nil {
		return err
	}
	// The category decides the directory of the use case and its scenarios, so it never moves.
	uc.Category = current.Category
	t.state.useCases[uc.ID] = cloneUseCase(uc)
	return nil
}

func (t *txn) DeleteUseCase(_ context.Context, id string) error {
	if _, ok := t.state.useCases[id]; !ok {
		return app.NotFoundError("use case", id)
	}
	if err := t.mark(kindUseCase, id); err != nil {
		return err
	}
	for _, sid := range t.scenarioIDs(id) {
		t.dirty[entityKey{kindScenario, sid}] = struct{}{}
		delete(t.state.scenarios, sid)
	}
	delete(t.state.useCases, id)
	return nil
}

func (t *txn) CreateScenario(_ context.Context, sc domain.Scenario) error {
	if _, ok := t.state.scenarios[sc.ID]; ok {
		return app.DuplicateError("scenario", sc.ID)
	}
	if _, ok := t.state.useCases[sc.UseCaseID]; !ok {
		return app.NotFoundError("use case", sc.UseCaseID)
	}
	if err := t.actorsExist(scenarioActors(sc)...); err != nil {
		return err
	}
	if err := t.mark(kindScenario, sc.ID); err != nil {
		return err
	}
	t.state.scenarios[sc.ID] = cloneScenario(sc)
	return nil
}

func (t *txn) GetScenario(_ context.Context, id string) (domain.Scenario, error) {
	sc, ok := t.state.scenarios[id]
	if !ok {
		return domain.Scenario{}, app.NotFoundError("scenario", id)
	}
	return cloneScenario(sc), nil
}

func (t *txn) ListScenarios(_ context.Context, filter app.ScenarioFilter) ([]domain.Scenario, error) {
	out := make([]domain.Scenario, 0)
	for _, sc := range t.state.scenarios {
		if filter.UseCaseID != "" && filter.UseCaseID != sc.UseCaseID {
			continue
		}
		if filter.ActorID != "" && !sc.UsesActor(filter.ActorID) {
			continue
		}
		if filter.Status != "" && filter.Status != sc.Status {
			continue
		}
		out = append(out, cloneScenario(sc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *txn) UpdateScenario(_ context.Context, sc domain.Scenario) error {
	current, ok := t.state.scenarios[sc.ID]
	if !ok {
		return app.NotFoundError("scenario", sc.ID)
	}
	if err := t.actorsExist(scenarioActors(sc)...); err != nil {
		return err
	}
	if err := t.mark(kindScenario, sc.ID); err != nil {
		return err
	}
	sc.UseCaseID = current.UseCaseID
	t.state.scenarios[sc.ID] = cloneScenario(sc)
	return nil
}

func (t *txn) DeleteScenario(_ context.Context, id string) error {
	if _, ok := t.state.scenarios[id]; !ok {
		return app.NotFoundError("scenario", id)
	}
	if err := t.mark(kindScenario, id); err != nil {
		return err
	}
	delete(t.state.scenarios, id)
	return nil
}

func (t *txn) CreateActor(_ context.Context, a domain.Actor) error {
	if _, ok := t.state.actors[a.ID]; ok {
		return app.DuplicateError("actor", a.ID)
	}
	if err := t.mark(kindActor, a.ID); err != nil {
		return err
	}
	t.state.actors[a.ID] = a
	return nil
}

func (t *txn) GetActor(_ context.Context, id string) (domain.Actor, error) {
	a, ok := t.state.actors[id]
	if !ok {
		return domain.Actor{}, app.NotFoundError("actor", id)
	}
	return a, nil
}

func (t *txn) ListActors(_ context.Context, filter app.ActorFilter) ([]domain.Actor, error) {
	out := make([]domain.Actor, 0, len(t.state.actors))
	for _, a := range t.state.actors {
		if filter.Kind != "" && filter.Kind != a.Kind {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *txn) UpdateActor(_ context.Context, a domain.Actor) error {
	current, ok := t.state.actors[a.ID]
	if !ok {
		return app.NotFoundError("actor", a.ID)
	}
	if err := t.mark(kindActor, a.ID); err != nil {
		return err
	}
	a.Kind = current.Kind
	t.state.actors[a.ID] = a
	return nil
}

// DeleteActor removes the actor and blanks every scenario or step reference to it.
func (t *txn) DeleteActor(_ context.Context, id string) error {
	if _, ok := t.state.actors[id]; !ok {
		return app.NotFoundError("actor", id)
	}
	if err := t.mark(kindActor, id); err != nil {
		return err
	}
	delete(t.state.actors, id)
	for sid, sc := range t.state.scenarios {
		if !sc.UsesActor(id) {
			continue
		}
		sc = cloneScenario(sc)
		if sc.ActorID == id {
			sc.ActorID = ""
		}
		for i := range sc.Steps {
			if sc.Steps[i].ActorID == id {
				sc.Steps[i].ActorID = ""
			}
		}
		t.state.scenarios[sid] = sc
		t.dirty[entityKey{kindScenario, sid}] = struct{}{}
	}
	return nil
}

func scenarioActors(sc domain.Scenario) []string {
	ids := []string{sc.ActorID}
	for _, step := range sc.Steps {
		ids = append(ids, step.ActorID)
	}
	return ids
}

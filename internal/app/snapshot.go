package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evanschultz/ucm/internal/domain"
	"github.com/evanschultz/ucm/internal/refgraph"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "ucm.snapshot.v1"

// Snapshot represents snapshot data used by this package.
type Snapshot struct {
	Version    string             `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	UseCases   []SnapshotUseCase  `json:"use_cases"`
	Scenarios  []SnapshotScenario `json:"scenarios"`
	Actors     []SnapshotActor    `json:"actors"`
}

// SnapshotReference represents one reference edge in a snapshot.
type SnapshotReference struct {
	TargetType domain.TargetType   `json:"target_type"`
	TargetID   string              `json:"target_id"`
	Kind       domain.RelationKind `json:"kind"`
	Note       string              `json:"note,omitempty"`
}

// SnapshotUseCase represents snapshot use case data used by this package.
type SnapshotUseCase struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Category       string              `json:"category"`
	Priority       domain.Priority     `json:"priority"`
	Status         domain.Status       `json:"status"`
	Description    string              `json:"description,omitempty"`
	Preconditions  []string            `json:"preconditions,omitempty"`
	Postconditions []string            `json:"postconditions,omitempty"`
	References     []SnapshotReference `json:"references,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Version        int                 `json:"version"`
}

// SnapshotStep represents one scenario step in a snapshot.
type SnapshotStep struct {
	Order       int    `json:"order"`
	Action      string `json:"action,omitempty"`
	Description string `json:"description"`
	ActorID     string `json:"actor_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// SnapshotScenario represents snapshot scenario data used by this package.
type SnapshotScenario struct {
	ID             string              `json:"id"`
	UseCaseID      string              `json:"use_case_id"`
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	Type           domain.ScenarioType `json:"type"`
	Status         domain.Status       `json:"status"`
	ActorID        string              `json:"actor_id,omitempty"`
	Steps          []SnapshotStep      `json:"steps,omitempty"`
	Preconditions  []string            `json:"preconditions,omitempty"`
	Postconditions []string            `json:"postconditions,omitempty"`
	References     []SnapshotReference `json:"references,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Version        int                 `json:"version"`
}

// SnapshotActor represents snapshot actor data used by this package.
type SnapshotActor struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Emoji     string                `json:"emoji,omitempty"`
	Kind      domain.ActorKind      `json:"kind"`
	Persona   *domain.Persona       `json:"persona,omitempty"`
	System    *domain.SystemProfile `json:"system,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// ExportSnapshot captures every entity of the project in one consistent read.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.now(),
		UseCases:   make([]SnapshotUseCase, 0),
		Scenarios:  make([]SnapshotScenario, 0),
		Actors:     make([]SnapshotActor, 0),
	}
	err := s.view(ctx, func(tx Tx) error {
		useCases, err := tx.ListUseCases(ctx, UseCaseFilter{})
		if err != nil {
			return err
		}
		for _, uc := range useCases {
			snap.UseCases = append(snap.UseCases, SnapshotUseCaseFrom(uc))
		}
		scenarios, err := tx.ListScenarios(ctx, ScenarioFilter{})
		if err != nil {
			return err
		}
		for _, sc := range scenarios {
			snap.Scenarios = append(snap.Scenarios, SnapshotScenarioFrom(sc))
		}
		actors, err := tx.ListActors(ctx, ActorFilter{})
		if err != nil {
			return err
		}
		for _, actor := range actors {
			snap.Actors = append(snap.Actors, SnapshotActorFrom(actor))
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot loads a validated snapshot into an empty store in one transaction. Use case statuses are
// re-derived from the imported scenarios.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()
	return s.update(ctx, func(tx Tx, now time.Time) error {
		existing, err := tx.ListUseCases(ctx, UseCaseFilter{})
		if err != nil {
			return err
		}
		actors, err := tx.ListActors(ctx, ActorFilter{})
		if err != nil {
			return err
		}
		if len(existing) > 0 || len(actors) > 0 {
			return ErrStoreNotEmpty
		}

		for _, a := range snap.Actors {
			if err := tx.CreateActor(ctx, a.toDomain()); err != nil {
				return err
			}
		}
		statuses := map[string][]domain.Status{}
		for _, sc := range snap.Scenarios {
			statuses[sc.UseCaseID] = append(statuses[sc.UseCaseID], sc.Status)
		}
		for _, uc := range snap.UseCases {
			du := uc.toDomain()
			du.Status = domain.AggregateStatus(statuses[du.ID])
			if err := tx.CreateUseCase(ctx, du); err != nil {
				return err
			}
		}
		for _, sc := range snap.Scenarios {
			if err := tx.CreateScenario(ctx, sc.toDomain()); err != nil {
				return err
			}
		}
		return nil
	})
}

// Validate checks the snapshot is self-consistent before anything is written.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedSnapshot, s.Version)
	}

	actorIDs := map[string]struct{}{}
	for i, a := range s.Actors {
		if !domain.ValidActorID(a.ID) {
			return fmt.Errorf("actors[%d].id %q: %w", i, a.ID, domain.ErrInvalidID)
		}
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("actors[%d].name: %w", i, domain.ErrInvalidName)
		}
		if !a.Kind.Valid() {
			return fmt.Errorf("actors[%d].kind %q: %w", i, a.Kind, domain.ErrInvalidActorKind)
		}
		if _, ok := actorIDs[a.ID]; ok {
			return DuplicateError("actor", a.ID)
		}
		actorIDs[a.ID] = struct{}{}
	}

	useCaseIDs := map[string]struct{}{}
	for i, uc := range s.UseCases {
		if strings.TrimSpace(uc.ID) == "" {
			return fmt.Errorf("use_cases[%d].id: %w", i, domain.ErrInvalidID)
		}
		if strings.TrimSpace(uc.Title) == "" {
			return fmt.Errorf("use_cases[%d].title: %w", i, domain.ErrInvalidTitle)
		}
		if strings.TrimSpace(uc.Category) == "" {
			return fmt.Errorf("use_cases[%d].category: %w", i, domain.ErrInvalidCategory)
		}
		priority, err := domain.ParsePriority(string(uc.Priority))
		if err != nil {
			return fmt.Errorf("use_cases[%d].priority: %w", i, err)
		}
		s.UseCases[i].Priority = priority
		if uc.CreatedAt.IsZero() || uc.UpdatedAt.IsZero() {
			return fmt.Errorf("use_cases[%d] timestamps are required", i)
		}
		refs, err := normalizeSnapshotReferences(domain.LevelUseCase, uc.References)
		if err != nil {
			return fmt.Errorf("use_cases[%d].references: %w", i, err)
		}
		s.UseCases[i].References = refs
		if _, ok := useCaseIDs[uc.ID]; ok {
			return DuplicateError("use case", uc.ID)
		}
		useCaseIDs[uc.ID] = struct{}{}
	}

	scenarioIDs := map[string]struct{}{}
	for i, sc := range s.Scenarios {
		if _, ok := useCaseIDs[sc.UseCaseID]; !ok {
			return fmt.Errorf("scenarios[%d] owner: %w", i, NotFoundError("use case", sc.UseCaseID))
		}
		if !strings.HasPrefix(sc.ID, sc.UseCaseID+"-") {
			return fmt.Errorf("scenarios[%d].id %q: %w", i, sc.ID, domain.ErrInvalidID)
		}
		if strings.TrimSpace(sc.Title) == "" {
			return fmt.Errorf("scenarios[%d].title: %w", i, domain.ErrInvalidTitle)
		}
		scenarioType, err := domain.ParseScenarioType(string(sc.Type))
		if err != nil {
			return fmt.Errorf("scenarios[%d].type: %w", i, err)
		}
		s.Scenarios[i].Type = scenarioType
		if sc.Status == "" {
			s.Scenarios[i].Status = domain.StatusPlanned
		} else if !sc.Status.Valid() {
			return fmt.Errorf("scenarios[%d].status %q: %w", i, sc.Status, domain.ErrInvalidStatus)
		}
		if sc.CreatedAt.IsZero() || sc.UpdatedAt.IsZero() {
			return fmt.Errorf("scenarios[%d] timestamps are required", i)
		}
		for j, step := range sc.Steps {
			if step.Order != j+1 {
				return fmt.Errorf("scenarios[%d].steps: %w", i, domain.ErrInvalidStepOrder)
			}
			if strings.TrimSpace(step.Description) == "" {
				return fmt.Errorf("scenarios[%d].steps[%d]: %w", i, j, domain.ErrInvalidStep)
			}
			if step.ActorID != "" {
				if _, ok := actorIDs[step.ActorID]; !ok {
					return fmt.Errorf("scenarios[%d].steps[%d]: %w", i, j, NotFoundError("actor", step.ActorID))
				}
			}
		}
		if sc.ActorID != "" {
			if _, ok := actorIDs[sc.ActorID]; !ok {
				return fmt.Errorf("scenarios[%d]: %w", i, NotFoundError("actor", sc.ActorID))
			}
		}
		refs, err := normalizeSnapshotReferences(domain.LevelScenario, sc.References)
		if err != nil {
			return fmt.Errorf("scenarios[%d].references: %w", i, err)
		}
		s.Scenarios[i].References = refs
		if _, ok := scenarioIDs[sc.ID]; ok {
			return DuplicateError("scenario", sc.ID)
		}
		scenarioIDs[sc.ID] = struct{}{}
	}

	useCases := make([]domain.UseCase, 0, len(s.UseCases))
	for _, uc := range s.UseCases {
		useCases = append(useCases, uc.toDomain())
	}
	scenarios := make([]domain.Scenario, 0, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		scenarios = append(scenarios, sc.toDomain())
	}
	if problems := refgraph.Build(useCases, scenarios).Check(); len(problems) > 0 {
		first := problems[0]
		return &refgraph.ReferenceError{Source: first.Edge.Source, Target: first.Edge.Target, Kind: first.Edge.Kind, Err: first.Err}
	}
	return nil
}

func normalizeSnapshotReferences(level domain.RelationLevel, in []SnapshotReference) ([]SnapshotReference, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]SnapshotReference, 0, len(in))
	for _, raw := range in {
		ref, err := domain.NewReference(level, raw.TargetType, raw.TargetID, raw.Kind, raw.Note)
		if err != nil {
			return nil, err
		}
		out = append(out, SnapshotReference{TargetType: ref.TargetType, TargetID: ref.TargetID, Kind: ref.Kind, Note: ref.Note})
	}
	return out, nil
}

func (s *Snapshot) sort() {
	sort.Slice(s.UseCases, func(i, j int) bool { return s.UseCases[i].ID < s.UseCases[j].ID })
	sort.Slice(s.Scenarios, func(i, j int) bool { return s.Scenarios[i].ID < s.Scenarios[j].ID })
	sort.Slice(s.Actors, func(i, j int) bool { return s.Actors[i].ID < s.Actors[j].ID })
}

func snapshotReferencesFromDomain(in []domain.Reference) []SnapshotReference {
	if len(in) == 0 {
		return nil
	}
	out := make([]SnapshotReference, 0, len(in))
	for _, ref := range in {
		out = append(out, SnapshotReference{TargetType: ref.TargetType, TargetID: ref.TargetID, Kind: ref.Kind, Note: ref.Note})
	}
	return out
}

func referencesToDomain(in []SnapshotReference) []domain.Reference {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Reference, 0, len(in))
	for _, ref := range in {
		targetType := ref.TargetType
		if targetType == "" {
			targetType = domain.TargetUseCase
		}
		out = append(out, domain.Reference{TargetType: targetType, TargetID: ref.TargetID, Kind: ref.Kind, Note: ref.Note})
	}
	return out
}

// SnapshotUseCaseFrom returns the serialized form of one use case.
func SnapshotUseCaseFrom(uc domain.UseCase) SnapshotUseCase {
	return SnapshotUseCase{
		ID:             uc.ID,
		Title:          uc.Title,
		Category:       uc.Category,
		Priority:       uc.Priority,
		Status:         uc.Status,
		Description:    uc.Description,
		Preconditions:  append([]string(nil), uc.Preconditions...),
		Postconditions: append([]string(nil), uc.Postconditions...),
		References:     snapshotReferencesFromDomain(uc.References),
		CreatedAt:      uc.CreatedAt.UTC(),
		UpdatedAt:      uc.UpdatedAt.UTC(),
		Version:        uc.Version,
	}
}

func (uc SnapshotUseCase) toDomain() domain.UseCase {
	version := uc.Version
	if version < 1 {
		version = 1
	}
	return domain.UseCase{
		ID:             strings.TrimSpace(uc.ID),
		Title:          strings.TrimSpace(uc.Title),
		Category:       strings.TrimSpace(uc.Category),
		Priority:       uc.Priority,
		Status:         uc.Status,
		Description:    uc.Description,
		Preconditions:  append([]string(nil), uc.Preconditions...),
		Postconditions: append([]string(nil), uc.Postconditions...),
		References:     referencesToDomain(uc.References),
		Metadata: domain.Metadata{
			CreatedAt: uc.CreatedAt.UTC(),
			UpdatedAt: uc.UpdatedAt.UTC(),
			Version:   version,
		},
	}
}

// SnapshotScenarioFrom returns the serialized form of one scenario.
func SnapshotScenarioFrom(sc domain.Scenario) SnapshotScenario {
	steps := make([]SnapshotStep, 0, len(sc.Steps))
	for _, step := range sc.Steps {
		steps = append(steps, SnapshotStep{
			Order:       step.Order,
			Action:      step.Action,
			Description: step.Description,
			ActorID:     step.ActorID,
			Notes:       step.Notes,
		})
	}
	return SnapshotScenario{
		ID:             sc.ID,
		UseCaseID:      sc.UseCaseID,
		Title:          sc.Title,
		Description:    sc.Description,
		Type:           sc.Type,
		Status:         sc.Status,
		ActorID:        sc.ActorID,
		Steps:          steps,
		Preconditions:  append([]string(nil), sc.Preconditions...),
		Postconditions: append([]string(nil), sc.Postconditions...),
		References:     snapshotReferencesFromDomain(sc.References),
		CreatedAt:      sc.CreatedAt.UTC(),
		UpdatedAt:      sc.UpdatedAt.UTC(),
		Version:        sc.Version,
	}
}

func (sc SnapshotScenario) toDomain() domain.Scenario {
	version := sc.Version
	if version < 1 {
		version = 1
	}
	var steps []domain.Step
	for _, step := range sc.Steps {
		steps = append(steps, domain.Step{
			Order:       step.Order,
			Action:      step.Action,
			Description: step.Description,
			ActorID:     step.ActorID,
			Notes:       step.Notes,
		})
	}
	return domain.Scenario{
		ID:             strings.TrimSpace(sc.ID),
		UseCaseID:      strings.TrimSpace(sc.UseCaseID),
		Title:          strings.TrimSpace(sc.Title),
		Description:    sc.Description,
		Type:           sc.Type,
		Status:         sc.Status,
		ActorID:        sc.ActorID,
		Steps:          steps,
		Preconditions:  append([]string(nil), sc.Preconditions...),
		Postconditions: append([]string(nil), sc.Postconditions...),
		References:     referencesToDomain(sc.References),
		Metadata: domain.Metadata{
			CreatedAt: sc.CreatedAt.UTC(),
			UpdatedAt: sc.UpdatedAt.UTC(),
			Version:   version,
		},
	}
}

// SnapshotActorFrom returns the serialized form of one actor.
func SnapshotActorFrom(a domain.Actor) SnapshotActor {
	out := SnapshotActor{
		ID:        a.ID,
		Name:      a.Name,
		Emoji:     a.Emoji,
		Kind:      a.Kind,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
	switch a.Kind {
	case domain.ActorPersona:
		persona := a.Persona
		out.Persona = &persona
	case domain.ActorSystem:
		profile := a.System
		out.System = &profile
	}
	return out
}

func (a SnapshotActor) toDomain() domain.Actor {
	out := domain.Actor{
		ID:        a.ID,
		Name:      strings.TrimSpace(a.Name),
		Emoji:     a.Emoji,
		Kind:      a.Kind,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
	if a.Persona != nil {
		out.Persona = *a.Persona
	}
	if a.System != nil {
		out.System = *a.System
		if out.System.Type == "" {
			out.System.Type = domain.SystemTypeSystem
		}
	}
	return out
}

package app

import (
	"context"
	"errors"
	"slices"
	"sort"

	"github.com/evanschultz/ucm/internal/domain"
)

// fakeStore keeps committed state in maps; Update works on a copy that replaces the committed state on success.
type fakeStore struct {
	state fakeState
	// failCommit makes the next Update fail after fn succeeded.
	failCommit error
}

type fakeState struct {
	useCases  map[string]domain.UseCase
	scenarios map[string]domain.Scenario
	actors    map[string]domain.Actor
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: fakeState{
		useCases:  map[string]domain.UseCase{},
		scenarios: map[string]domain.Scenario{},
		actors:    map[string]domain.Actor{},
	}}
}

func (f *fakeStore) Update(_ context.Context, fn func(Tx) error) error {
	work := f.state.clone()
	if err := fn(&work); err != nil {
		return err
	}
	if f.failCommit != nil {
		err := f.failCommit
		f.failCommit = nil
		return StorageFailure("fake", "commit", "", err)
	}
	f.state = work
	return nil
}

func (f *fakeStore) View(_ context.Context, fn func(Tx) error) error {
	snapshot := f.state.clone()
	return fn(&snapshot)
}

func (f *fakeStore) Close() error {
	return nil
}

func (s fakeState) clone() fakeState {
	out := fakeState{
		useCases:  make(map[string]domain.UseCase, len(s.useCases)),
		scenarios: make(map[string]domain.Scenario, len(s.scenarios)),
		actors:    make(map[string]domain.Actor, len(s.actors)),
	}
	for id, uc := range s.useCases {
		uc.Preconditions = slices.Clone(uc.Preconditions)
		uc.Postconditions = slices.Clone(uc.Postconditions)
		uc.References = slices.Clone(uc.References)
		uc.ScenarioIDs = nil
		out.useCases[id] = uc
	}
	for id, sc := range s.scenarios {
		sc.Steps = slices.Clone(sc.Steps)
		sc.Preconditions = slices.Clone(sc.Preconditions)
		sc.Postconditions = slices.Clone(sc.Postconditions)
		sc.References = slices.Clone(sc.References)
		out.scenarios[id] = sc
	}
	for id, a := range s.actors {
		out.actors[id] = a
	}
	return out
}

func (s *fakeState) withScenarioIDs(uc domain.UseCase) domain.UseCase {
	uc.ScenarioIDs = nil
	for id, sc := range s.scenarios {
		if sc.UseCaseID == uc.ID {
			uc.ScenarioIDs = append(uc.ScenarioIDs, id)
		}
	}
	sort.Strings(uc.ScenarioIDs)
	return uc
}

func (s *fakeState) CreateUseCase(_ context.Context, uc domain.UseCase) error {
	if _, ok := s.useCases[uc.ID]; ok {
		return DuplicateError("use case", uc.ID)
	}
	uc.ScenarioIDs = nil
	s.useCases[uc.ID] = uc
	return nil
}

func (s *fakeState) GetUseCase(_ context.Context, id string) (domain.UseCase, error) {
	uc, ok := s.useCases[id]
	if !ok {
		return domain.UseCase{}, NotFoundError("use case", id)
	}
	return s.withScenarioIDs(uc), nil
}

func (s *fakeState) ListUseCases(_ context.Context, filter UseCaseFilter) ([]domain.UseCase, error) {
	out := []domain.UseCase{}
	for _, uc := range s.useCases {
		if key := domain.CategoryKey(filter.Category); key != "" && domain.CategoryKey(uc.Category) != key {
			continue
		}
		if filter.Status != "" && filter.Status != uc.Status {
			continue
		}
		out = append(out, s.withScenarioIDs(uc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeState) UpdateUseCase(_ context.Context, uc domain.UseCase) error {
	if _, ok := s.useCases[uc.ID]; !ok {
		return NotFoundError("use case", uc.ID)
	}
	uc.ScenarioIDs = nil
	s.useCases[uc.ID] = uc
	return nil
}

func (s *fakeState) DeleteUseCase(_ context.Context, id string) error {
	if _, ok := s.useCases[id]; !ok {
		return NotFoundError("use case", id)
	}
	delete(s.useCases, id)
	for sid, sc := range s.scenarios {
		if sc.UseCaseID == id {
			delete(s.scenarios, sid)
		}
	}
	return nil
}

func (s *fakeState) CreateScenario(_ context.Context, sc domain.Scenario) error {
	if _, ok := s.scenarios[sc.ID]; ok {
		return DuplicateError("scenario", sc.ID)
	}
	if _, ok := s.useCases[sc.UseCaseID]; !ok {
		return NotFoundError("use case", sc.UseCaseID)
	}
	s.scenarios[sc.ID] = sc
	return nil
}

func (s *fakeState) GetScenario(_ context.Context, id string) (domain.Scenario, error) {
	sc, ok := s.scenarios[id]
	if !ok {
		return domain.Scenario{}, NotFoundError("scenario", id)
	}
	return sc, nil
}

func (s *fakeState) ListScenarios(_ context.Context, filter ScenarioFilter) ([]domain.Scenario, error) {
	out := []domain.Scenario{}
	for _, sc := range s.scenarios {
		if filter.UseCaseID != "" && filter.UseCaseID != sc.UseCaseID {
			continue
		}
		if filter.ActorID != "" && !sc.UsesActor(filter.ActorID) {
			continue
		}
		if filter.Status != "" && filter.Status != sc.Status {
			continue
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeState) UpdateScenario(_ context.Context, sc domain.Scenario) error {
	if _, ok := s.scenarios[sc.ID]; !ok {
		return NotFoundError("scenario", sc.ID)
	}
	s.scenarios[sc.ID] = sc
	return nil
}

func (s *fakeState) DeleteScenario(_ context.Context, id string) error {
	if _, ok := s.scenarios[id]; !ok {
		return NotFoundError("scenario", id)
	}
	delete(s.scenarios, id)
	return nil
}

func (s *fakeState) CreateActor(_ context.Context, a domain.Actor) error {
	if _, ok := s.actors[a.ID]; ok {
		return DuplicateError("actor", a.ID)
	}
	s.actors[a.ID] = a
	return nil
}

func (s *fakeState) GetActor(_ context.Context, id string) (domain.Actor, error) {
	a, ok := s.actors[id]
	if !ok {
		return domain.Actor{}, NotFoundError("actor", id)
	}
	return a, nil
}

func (s *fakeState) ListActors(_ context.Context, filter ActorFilter) ([]domain.Actor, error) {
	out := []domain.Actor{}
	for _, a := range s.actors {
		if filter.Kind != "" && filter.Kind != a.Kind {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeState) UpdateActor(_ context.Context, a domain.Actor) error {
	if _, ok := s.actors[a.ID]; !ok {
		return NotFoundError("actor", a.ID)
	}
	s.actors[a.ID] = a
	return nil
}

func (s *fakeState) DeleteActor(_ context.Context, id string) error {
	if _, ok := s.actors[id]; !ok {
		return NotFoundError("actor", id)
	}
	delete(s.actors, id)
	for sid, sc := range s.scenarios {
		if !sc.UsesActor(id) {
			continue
		}
		if sc.ActorID == id {
			sc.ActorID = ""
		}
		sc.Steps = slices.Clone(sc.Steps)
		for i := range sc.Steps {
			if sc.Steps[i].ActorID == id {
				sc.Steps[i].ActorID = ""
			}
		}
		s.scenarios[sid] = sc
	}
	return nil
}

var errInjected = errors.New("injected failure")

package app

import (
	"context"
	"errors"
	"strings"

	"github.com/evanschultz/ucm/internal/domain"
)

// GetUseCase returns one use case.
func (s *Service) GetUseCase(ctx context.Context, id string) (domain.UseCase, error) {
	var out domain.UseCase
	err := s.view(ctx, func(tx Tx) error {
		uc, err := tx.GetUseCase(ctx, strings.TrimSpace(id))
		out = uc
		return err
	})
	return out, err
}

// ListUseCases returns use cases matching filter, sorted by id.
func (s *Service) ListUseCases(ctx context.Context, filter UseCaseFilter) ([]domain.UseCase, error) {
	var out []domain.UseCase
	err := s.view(ctx, func(tx Tx) error {
		list, err := tx.ListUseCases(ctx, filter)
		out = list
		return err
	})
	return out, err
}

// ListByCategory returns the use cases of one category.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]domain.UseCase, error) {
	return s.ListUseCases(ctx, UseCaseFilter{Category: strings.TrimSpace(category)})
}

// ListByStatus returns the use cases whose derived status equals status.
func (s *Service) ListByStatus(ctx context.Context, status domain.Status) ([]domain.UseCase, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.ListUseCases(ctx, UseCaseFilter{Status: status})
}

// FindUseCasesReferencingActor returns the use cases with at least one scenario or step naming actorID.
func (s *Service) FindUseCasesReferencingActor(ctx context.Context, actorID string) ([]domain.UseCase, error) {
	var out []domain.UseCase
	err := s.view(ctx, func(tx Tx) error {
		scenarios, err := tx.ListScenarios(ctx, ScenarioFilter{ActorID: actorID})
		if err != nil {
			return err
		}
		seen := map[string]struct{}{}
		for _, sc := range scenarios {
			if _, ok := seen[sc.UseCaseID]; ok {
				continue
			}
			seen[sc.UseCaseID] = struct{}{}
			uc, err := tx.GetUseCase(ctx, sc.UseCaseID)
			if err != nil {
				return err
			}
			out = append(out, uc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Scenarios are sorted by id and carry their owner id as prefix, so out is already in use case id order.
	return out, nil
}

// GetScenario returns one scenario.
func (s *Service) GetScenario(ctx context.Context, id string) (domain.Scenario, error) {
	var out domain.Scenario
	err := s.view(ctx, func(tx Tx) error {
		sc, err := tx.GetScenario(ctx, strings.TrimSpace(id))
		out = sc
		return err
	})
	return out, err
}

// ListScenarios returns scenarios matching filter, sorted by id.
func (s *Service) ListScenarios(ctx context.Context, filter ScenarioFilter) ([]domain.Scenario, error) {
	var out []domain.Scenario
	err := s.view(ctx, func(tx Tx) error {
		list, err := tx.ListScenarios(ctx, filter)
		out = list
		return err
	})
	return out, err
}

// ScenarioDetails is a read model of a scenario with inherited conditions merged and actors resolved.
type ScenarioDetails struct {
	Scenario domain.Scenario
	UseCase  domain.UseCase
	// Actor is nil when the scenario has no actor.
	Actor *domain.Actor
	// StepActors maps the actor ids named by steps to the resolved actor.
	StepActors map[string]domain.Actor
	// Preconditions lists the use case preconditions followed by the scenario ones.
	Preconditions  []string
	Postconditions []string
}

// ScenarioView resolves a scenario together with its owning use case and actors.
func (s *Service) ScenarioView(ctx context.Context, id string) (ScenarioDetails, error) {
	var out ScenarioDetails
	err := s.view(ctx, func(tx Tx) error {
		sc, err := tx.GetScenario(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		uc, err := tx.GetUseCase(ctx, sc.UseCaseID)
		if err != nil {
			return err
		}
		out = ScenarioDetails{
			Scenario:       sc,
			UseCase:        uc,
			StepActors:     map[string]domain.Actor{},
			Preconditions:  mergeConditions(uc.Preconditions, sc.Preconditions),
			Postconditions: mergeConditions(uc.Postconditions, sc.Postconditions),
		}
		if sc.ActorID != "" {
			actor, err := lookupActor(ctx, tx, sc.ActorID)
			if err != nil {
				return err
			}
			out.Actor = actor
		}
		for _, step := range sc.Steps {
			if step.ActorID == "" {
				continue
			}
			if _, ok := out.StepActors[step.ActorID]; ok {
				continue
			}
			actor, err := lookupActor(ctx, tx, step.ActorID)
			if err != nil {
				return err
			}
			if actor != nil {
				out.StepActors[step.ActorID] = *actor
			}
		}
		return nil
	})
	if err != nil {
		return ScenarioDetails{}, err
	}
	return out, nil
}

// lookupActor returns nil for an actor id that no longer resolves.
func lookupActor(ctx context.Context, tx Tx, id string) (*domain.Actor, error) {
	actor, err := tx.GetActor(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &actor, nil
}

func mergeConditions(inherited, own []string) []string {
	out := make([]string, 0, len(inherited)+len(own))
	out = append(out, inherited...)
	return append(out, own...)
}

package app

import (
	"context"
	"time"

	"github.com/evanschultz/ucm/internal/domain"
)

// AddScenarioInput holds input values for add scenario operations.
type AddScenarioInput struct {
	UseCaseID      string
	Title          string
	Description    string
	Type           domain.ScenarioType
	Status         domain.Status
	ActorID        string
	Steps          []domain.StepInput
	Preconditions  []string
	Postconditions []string
}

// AddScenario allocates the next scenario id under a use case and re-derives the use case status.
func (s *Service) AddScenario(ctx context.Context, in AddScenarioInput) (domain.Scenario, error) {
	var out domain.Scenario
	err := s.update(ctx, func(tx Tx, now time.Time) error {
		uc, err := tx.GetUseCase(ctx, in.UseCaseID)
		if err != nil {
			return err
		}
		siblings, err := tx.ListScenarios(ctx, ScenarioFilter{UseCaseID: uc.ID})
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(siblings))
		for _, sc := range siblings {
			ids = append(ids, sc.ID)
		}
		id, err := s.alloc.ScenarioID(uc.ID, ids)
		if err != nil {
			return err
		}
		sc, err := domain.NewScenario(domain.ScenarioInput{
			ID:             id,
			UseCaseID:      uc.ID,
			Title:          in.Title,
			Description:    in.Description,
			Type:           in.Type,
			Status:         in.Status,
			ActorID:        in.ActorID,
			Steps:          in.Steps,
			Preconditions:  in.Preconditions,
			Postconditions: in.Postconditions,
		}, now)
		if err != nil {
			return err
		}
		if err := ensureActors(ctx, tx, scenarioActorIDs(sc)...); err != nil {
			return err
		}
		if err := tx.CreateScenario(ctx, sc); err != nil {
			return err
		}
		if err := recompute(ctx, tx, uc.ID, now); err != nil {
			return err
		}
		out = sc
		return nil
	})
	if err != nil {
		return domain.Scenario{}, err
	}
	return out, nil
}

// UpdateScenarioInput holds input values for update scenario operations.
type UpdateScenarioInput struct {
	ID          string
	Title       string
	Description string
	Type        domain.ScenarioType
}

// UpdateScenario replaces the descriptive fields of a scenario.
func (s *Service) UpdateScenario(ctx context.Context, in UpdateScenarioInput) (domain.Scenario, error) {
	return s.mutateScenario(ctx, in.ID, func(tx Tx, sc *domain.Scenario, now time.Time) error {
		scenarioType := in.Type
		if scenarioType == "" {
			scenarioType = sc.Type
		}
		return sc.UpdateDetails(in.Title, in.Description, scenarioType, now)
	})
}

// UpdateScenarioStatus changes a scenario status and re-derives the owning use case status.
func (s *Service) UpdateScenarioStatus(ctx context.Context, id string, status domain.Status) (domain.Scenario, error) {
	return s.mutateScenario(ctx, id, func(tx Tx, sc *domain.Scenario, now time.Time) error {
		_, err := sc.SetStatus(status, now)
		return err
	})
}

// AssignScenarioActor sets the scenario actor. An empty actorID clears it.
func (s *Service) AssignScenarioActor(ctx context.Context, id, actorID string) (domain.Scenario, error) {
	return s.mutateScenario(ctx, id, func(tx Tx, sc *domain.Scenario, now time.Time) error {
		if err := sc.AssignActor(actorID, now); err != nil {
			return err
		}
		return ensureActors(ctx, tx, sc.ActorID)
	})
}

// SetScenarioConditions replaces the scenario-specific preconditions or postconditions.
func (s *Service) SetScenarioConditions(ctx context.Context, id string, kind domain.ConditionKind, conditions []string) (domain.Scenario, error) {
	return s.mutateScenario(ctx, id, func(tx Tx, sc *domain.Scenario, now time.Time) error {
		return sc.SetConditions(kind, conditions, now)
	})
}

// AddStep inserts a step at a 1-based position; zero appends.
func (s *Service) AddStep(ctx context.Context, scenarioID string, in domain.StepInput, position int) (domain.Scenario, error) {
	return s.mutateScenario(ctx, scenarioID, func(tx Tx, sc *domain.Scenario, now time.Time) error {
		step, err := sc.AddStep(in, position, now)
		if err != nil {
			return err
		}
		return ensureActors(ctx, tx, step.ActorID)
	})
}

// RemoveStep deletes a step and renumbers the rest.
func (s *Service) RemoveStep(ctx context.Context, scenarioID string, order int) (domain.Scenario, error) {
	return s.mutateScenario(ctx, scenarioID, func(tx Tx, sc *domain.Scenario, now time.Time) error {
		return sc.RemoveStep(order, now)
	})
}

// MoveStep moves a step to a new 1-based position.
func (s *Service) MoveStep(ctx context.Context, scenarioID string, from, to int) (domain.Scenario, error) {
	return s.mutateScenario(ctx, scenarioID, func(tx Tx, sc *domain.Scenario, now time.Time) error {
		return sc.MoveStep(from, to, now)
	})
}

// SetSteps replaces the whole step list of a scenario. An empty list clears it.
func (s *Service) SetSteps(ctx context.Context, scenarioID string, steps []domain.StepInput) (domain.Scenario, error) {
	return s.mutateScenario(ctx, scenarioID, func(tx Tx, sc *domain.Scenario, now time.Time) error {
		if err := sc.ReplaceSteps(steps, now); err != nil {
			return err
		}
		ids := make([]string, 0, len(sc.Steps))
		for _, step := range sc.Steps {
			ids = append(ids, step.ActorID)
		}
		return ensureActors(ctx, tx, ids...)
	})
}

// DeleteScenario removes a scenario and re-derives the owning use case status. Incoming references are handled
// as in DeleteUseCase.
func (s *Service) DeleteScenario(ctx context.Context, id string, opts DeleteOptions) error {
	return s.update(ctx, func(tx Tx, now time.Time) error {
		sc, err := tx.GetScenario(ctx, id)
		if err != nil {
			return err
		}
		if err := s.releaseTargets(ctx, tx, []string{id}, opts, now); err != nil {
			return err
		}
		if err := tx.DeleteScenario(ctx, id); err != nil {
			return err
		}
		return recompute(ctx, tx, sc.UseCaseID, now)
	})
}

// mutateScenario loads, mutates, stores, and re-derives the owner status in one transaction.
func (s *Service) mutateScenario(ctx context.Context, id string, mutate func(Tx, *domain.Scenario, time.Time) error) (domain.Scenario, error) {
	var out domain.Scenario
	err := s.update(ctx, func(tx Tx, now time.Time) error {
		sc, err := tx.GetScenario(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(tx, &sc, now); err != nil {
			return err
		}
		if !domain.DenseSteps(sc.Steps) {
			return domain.ErrInvalidStepOrder
		}
		if err := tx.UpdateScenario(ctx, sc); err != nil {
			return err
		}
		if err := recompute(ctx, tx, sc.UseCaseID, now); err != nil {
			return err
		}
		out = sc
		return nil
	})
	if err != nil {
		return domain.Scenario{}, err
	}
	return out, nil
}

func scenarioActorIDs(sc domain.Scenario) []string {
	ids := []string{sc.ActorID}
	for _, step := range sc.Steps {
		ids = append(ids, step.ActorID)
	}
	return ids
}

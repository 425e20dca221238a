package app

import (
	"context"
	"time"

	"github.com/evanschultz/ucm/internal/domain"
)

// CreatePersonaInput holds input values for create persona operations.
type CreatePersonaInput struct {
	ID      string
	Name    string
	Emoji   string
	Persona domain.Persona
}

// CreateSystemActorInput holds input values for create system actor operations.
type CreateSystemActorInput struct {
	ID      string
	Name    string
	Emoji   string
	Profile domain.SystemProfile
}

// UpdateActorInput holds input values for update actor operations. Only the profile matching the actor kind is
// applied.
type UpdateActorInput struct {
	ID      string
	Name    string
	Emoji   string
	Persona domain.Persona
	Profile domain.SystemProfile
}

// CreatePersona stores a new persona actor.
func (s *Service) CreatePersona(ctx context.Context, in CreatePersonaInput) (domain.Actor, error) {
	return s.createActor(ctx, func(now time.Time) (domain.Actor, error) {
		return domain.NewPersona(domain.ActorInput{ID: in.ID, Name: in.Name, Emoji: in.Emoji}, in.Persona, now)
	})
}

// CreateSystemActor stores a new system actor.
func (s *Service) CreateSystemActor(ctx context.Context, in CreateSystemActorInput) (domain.Actor, error) {
	return s.createActor(ctx, func(now time.Time) (domain.Actor, error) {
		return domain.NewSystemActor(domain.ActorInput{ID: in.ID, Name: in.Name, Emoji: in.Emoji}, in.Profile, now)
	})
}

func (s *Service) createActor(ctx context.Context, build func(time.Time) (domain.Actor, error)) (domain.Actor, error) {
	var out domain.Actor
	err := s.update(ctx, func(tx Tx, now time.Time) error {
		actor, err := build(now)
		if err != nil {
			return err
		}
		if err := tx.CreateActor(ctx, actor); err != nil {
			return err
		}
		out = actor
		return nil
	})
	if err != nil {
		return domain.Actor{}, err
	}
	return out, nil
}

// UpdateActor replaces the mutable fields of an actor.
func (s *Service) UpdateActor(ctx context.Context, in UpdateActorInput) (domain.Actor, error) {
	var out domain.Actor
	err := s.update(ctx, func(tx Tx, now time.Time) error {
		actor, err := tx.GetActor(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := actor.UpdateDetails(in.Name, in.Emoji, in.Persona, in.Profile, now); err != nil {
			return err
		}
		if err := tx.UpdateActor(ctx, actor); err != nil {
			return err
		}
		out = actor
		return nil
	})
	if err != nil {
		return domain.Actor{}, err
	}
	return out, nil
}

// DeleteActor removes an actor and clears it from every scenario and step that named it. It returns the ids of the
// scenarios that changed.
func (s *Service) DeleteActor(ctx context.Context, id string) ([]string, error) {
	var cleared []string
	err := s.update(ctx, func(tx Tx, now time.Time) error {
		if _, err := tx.GetActor(ctx, id); err != nil {
			return err
		}
		scenarios, err := tx.ListScenarios(ctx, ScenarioFilter{ActorID: id})
		if err != nil {
			return err
		}
		for _, sc := range scenarios {
			if !sc.ClearActor(id, now) {
				continue
			}
			if err := tx.UpdateScenario(ctx, sc); err != nil {
				return err
			}
			cleared = append(cleared, sc.ID)
		}
		return tx.DeleteActor(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

// GetActor returns one actor.
func (s *Service) GetActor(ctx context.Context, id string) (domain.Actor, error) {
	var out domain.Actor
	err := s.view(ctx, func(tx Tx) error {
		actor, err := tx.GetActor(ctx, id)
		out = actor
		return err
	})
	return out, err
}

// ListActors returns actors sorted by id.
func (s *Service) ListActors(ctx context.Context, filter ActorFilter) ([]domain.Actor, error) {
	var out []domain.Actor
	err := s.view(ctx, func(tx Tx) error {
		actors, err := tx.ListActors(ctx, filter)
		out = actors
		return err
	})
	return out, err
}

package app

import (
	"context"

	"github.com/evanschultz/ucm/internal/domain"
)

// Store is the persistence port. Backends implement it with equivalent observable behavior.
type Store interface {
	// Update runs fn in a transaction. Every write made through tx is applied if fn returns nil and none is
	// applied otherwise.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx is the set of entity operations available inside a transaction.
//
// Create returns ErrDuplicateIdentifier for an id that is already stored and ErrNotFound when an owning use case
// or a referenced actor does not exist. Get, Update and Delete return ErrNotFound for unknown ids. DeleteUseCase
// removes owned scenarios; DeleteActor clears scenario and step actor references. Lists are sorted by id.
type Tx interface {
	CreateUseCase(context.Context, domain.UseCase) error
	GetUseCase(context.Context, string) (domain.UseCase, error)
	ListUseCases(context.Context, UseCaseFilter) ([]domain.UseCase, error)
	UpdateUseCase(context.Context, domain.UseCase) error
	DeleteUseCase(context.Context, string) error

	CreateScenario(context.Context, domain.Scenario) error
	GetScenario(context.Context, string) (domain.Scenario, error)
	ListScenarios(context.Context, ScenarioFilter) ([]domain.Scenario, error)
	UpdateScenario(context.Context, domain.Scenario) error
	DeleteScenario(context.Context, string) error

	CreateActor(context.Context, domain.Actor) error
	GetActor(context.Context, string) (domain.Actor, error)
	ListActors(context.Context, ActorFilter) ([]domain.Actor, error)
	UpdateActor(context.Context, domain.Actor) error
	DeleteActor(context.Context, string) error
}

// UseCaseFilter narrows ListUseCases. Zero values match everything; Category matches case-insensitively.
type UseCaseFilter struct {
	Category string
	Status   domain.Status
}

// ScenarioFilter narrows ListScenarios. ActorID matches the scenario actor or any step actor.
type ScenarioFilter struct {
	UseCaseID string
	ActorID   string
	Status    domain.Status
}

// ActorFilter narrows ListActors.
type ActorFilter struct {
	Kind domain.ActorKind
}

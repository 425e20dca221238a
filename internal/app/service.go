package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/evanschultz/ucm/internal/domain"
	"github.com/evanschultz/ucm/internal/ident"
	"github.com/evanschultz/ucm/internal/refgraph"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Identifiers ident.Config
}

// Clock returns the current time.
type Clock func() time.Time

// Service is the entry point for every read and write of a project. Writes are serialized and each runs in a
// single store transaction.
type Service struct {
	store Store
	alloc *ident.Allocator
	clock Clock
	mu    sync.RWMutex
}

// NewService constructs a new value for this package.
func NewService(store Store, clock Clock, cfg ServiceConfig) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if clock == nil {
		clock = time.Now
	}
	alloc, err := ident.New(cfg.Identifiers)
	if err != nil {
		return nil, fmt.Errorf("identifier allocator: %w", err)
	}
	return &Service{store: store, alloc: alloc, clock: clock}, nil
}

// DeleteOptions controls how deletes treat incoming references.
type DeleteOptions struct {
	// Cascade removes references that point at the deleted entities instead of refusing the delete.
	Cascade bool
}

// now returns the service clock in UTC at millisecond precision so every backend stores it exactly.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

// update runs fn as one serialized transaction.
func (s *Service) update(ctx context.Context, fn func(tx Tx, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	return s.store.Update(ctx, func(tx Tx) error {
		return fn(tx, now)
	})
}

// view runs fn against a read snapshot.
func (s *Service) view(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.View(ctx, fn)
}

// CreateUseCaseInput holds input values for create use case operations.
type CreateUseCaseInput struct {
	Title          string
	Category       string
	Priority       domain.Priority
	Description    string
	Preconditions  []string
	Postconditions []string
}

// CreateUseCase allocates an identifier from the category and stores a new use case.
func (s *Service) CreateUseCase(ctx context.Context, in CreateUseCaseInput) (domain.UseCase, error) {
	var out domain.UseCase
	err := s.update(ctx, func(tx Tx, now time.Time) error {
		existing, err := tx.ListUseCases(ctx, UseCaseFilter{})
		if err != nil {
			return err
		}
		keys := make([]ident.UseCaseKey, 0, len(existing))
		for _, uc := range existing {
			keys = append(keys, ident.UseCaseKey{ID: uc.ID, Category: uc.Category})
		}
		id, err := s.alloc.UseCaseID(in.Category, keys)
		if err != nil {
			if errors.Is(err, ident.ErrInvalidCategory) {
				return domain.ErrInvalidCategory
			}
			return err
		}
		uc, err := domain.NewUseCase(domain.UseCaseInput{
			ID:             id,
			Title:          in.Title,
			Category:       in.Category,
			Priority:       in.Priority,
			Description:    in.Description,
			Preconditions:  in.Preconditions,
			Postconditions: in.Postconditions,
		}, now)
		if err != nil {
			return err
		}
		if err := tx.CreateUseCase(ctx, uc); err != nil {
			return err
		}
		out = uc
		return nil
	})
	if err != nil {
		return domain.UseCase{}, err
	}
	return out, nil
}

// UpdateUseCaseInput holds input values for update use case operations.
type UpdateUseCaseInput struct {
	ID          string
	Title       string
	Description string
	Priority    domain.Priority
}

// UpdateUseCase replaces the descriptive fields of a use case.
func (s *Service) UpdateUseCase(ctx context.Context, in UpdateUseCaseInput) (domain.UseCase, error) {
	return s.mutateUseCase(ctx, in.ID, func(uc *domain.UseCase, now time.Time) error {
		priority := in.Priority
		if priority == "" {
			priority = uc.Priority
		}
		return uc.UpdateDetails(in.Title, in.Description, priority, now)
	})
}

// AddCondition appends a precondition or postcondition to a use case.
func (s *Service) AddCondition(ctx context.Context, useCaseID string, kind domain.ConditionKind, text string) (domain.UseCase, error) {
	return s.mutateUseCase(ctx, useCaseID, func(uc *domain.UseCase, now time.Time) error {
		_, err := uc.AddCondition(kind, text, now)
		return err
	})
}

// RemoveCondition deletes the condition at a 1-based position.
func (s *Service) RemoveCondition(ctx context.Context, useCaseID string, kind domain.ConditionKind, position int) (domain.UseCase, error) {
	return s.mutateUseCase(ctx, useCaseID, func(uc *domain.UseCase, now time.Time) error {
		return uc.RemoveCondition(kind, position, now)
	})
}

func (s *Service) mutateUseCase(ctx context.Context, id string, mutate func(*domain.UseCase, time.Time) error) (domain.UseCase, error) {
	var out domain.UseCase
	err := s.update(ctx, func(tx Tx, now time.Time) error {
		uc, err := tx.GetUseCase(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(&uc, now); err != nil {
			return err
		}
		if err := tx.UpdateUseCase(ctx, uc); err != nil {
			return err
		}
		out = uc
		return nil
	})
	if err != nil {
		return domain.UseCase{}, err
	}
	return out, nil
}

// DeleteUseCase removes a use case together with its scenarios.
//
// References from other entities to the use case or any of its scenarios block the delete with
// ErrReferencedEntityInUse unless opts.Cascade is set, in which case those references are removed in the same
// transaction.
func (s *Service) DeleteUseCase(ctx context.Context, id string, opts DeleteOptions) error {
	return s.update(ctx, func(tx Tx, now time.Time) error {
		if _, err := tx.GetUseCase(ctx, id); err != nil {
			return err
		}
		owned, err := tx.ListScenarios(ctx, ScenarioFilter{UseCaseID: id})
		if err != nil {
			return err
		}
		targets := []string{id}
		for _, sc := range owned {
			targets = append(targets, sc.ID)
		}
		if err := s.releaseTargets(ctx, tx, targets, opts, now); err != nil {
			return err
		}
		return tx.DeleteUseCase(ctx, id)
	})
}

// releaseTargets checks incoming references to targets and removes them when cascading.
func (s *Service) releaseTargets(ctx context.Context, tx Tx, targets []string, opts DeleteOptions, now time.Time) error {
	graph, err := loadGraph(ctx, tx)
	if err != nil {
		return err
	}
	blocking, err := graph.ValidateDelete(targets...)
	if err == nil {
		return nil
	}
	if !opts.Cascade {
		return err
	}
	return removeEdgesTo(ctx, tx, graph, blocking, targets, now)
}

// removeEdgesTo strips references to targets from every source of the given edges.
func removeEdgesTo(ctx context.Context, tx Tx, graph *refgraph.Graph, edges []refgraph.Edge, targets []string, now time.Time) error {
	targetSet := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		targetSet[t] = struct{}{}
	}
	sources := map[string]struct{}{}
	for _, e := range edges {
		sources[e.Source] = struct{}{}
	}
	ordered := make([]string, 0, len(sources))
	for id := range sources {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	for _, source := range ordered {
		kind, _ := graph.NodeType(source)
		switch kind {
		case domain.TargetUseCase:
			uc, err := tx.GetUseCase(ctx, source)
			if err != nil {
				return err
			}
			uc.RemoveReferencesTo(targetSet, now)
			if err := tx.UpdateUseCase(ctx, uc); err != nil {
				return err
			}
		case domain.TargetScenario:
			sc, err := tx.GetScenario(ctx, source)
			if err != nil {
				return err
			}
			sc.RemoveReferencesTo(targetSet, now)
			if err := tx.UpdateScenario(ctx, sc); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadGraph snapshots every entity visible in tx.
func loadGraph(ctx context.Context, tx Tx) (*refgraph.Graph, error) {
	useCases, err := tx.ListUseCases(ctx, UseCaseFilter{})
	if err != nil {
		return nil, err
	}
	scenarios, err := tx.ListScenarios(ctx, ScenarioFilter{})
	if err != nil {
		return nil, err
	}
	return refgraph.Build(useCases, scenarios), nil
}

// recompute re-derives the status of a use case from its scenarios and persists it when it changed.
func recompute(ctx context.Context, tx Tx, useCaseID string, now time.Time) error {
	uc, err := tx.GetUseCase(ctx, useCaseID)
	if err != nil {
		return err
	}
	scenarios, err := tx.ListScenarios(ctx, ScenarioFilter{UseCaseID: useCaseID})
	if err != nil {
		return err
	}
	if !uc.Recompute(domain.ScenarioStatuses(scenarios), now) {
		return nil
	}
	return tx.UpdateUseCase(ctx, uc)
}

// ensureActors verifies that every non-empty actor id resolves.
func ensureActors(ctx context.Context, tx Tx, ids ...string) error {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := tx.GetActor(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return NotFoundError("actor", id)
			}
			return err
		}
	}
	return nil
}

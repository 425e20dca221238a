package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/ucm/internal/domain"
	"github.com/evanschultz/ucm/internal/refgraph"
)

// AddReferenceInput holds input values for add reference operations. The source and target may each be a use
// case or a scenario; the kind is checked against the source's level.
type AddReferenceInput struct {
	SourceID string
	TargetID string
	Kind     string
	Note     string
}

// AddReference validates and stores a reference edge.
func (s *Service) AddReference(ctx context.Context, in AddReferenceInput) (domain.Reference, error) {
	in.SourceID = strings.TrimSpace(in.SourceID)
	in.TargetID = strings.TrimSpace(in.TargetID)
	var out domain.Reference
	err := s.update(ctx, func(tx Tx, now time.Time) error {
		graph, err := loadGraph(ctx, tx)
		if err != nil {
			return err
		}
		sourceType, ok := graph.NodeType(in.SourceID)
		if !ok {
			return NotFoundError("reference source", in.SourceID)
		}
		level := levelFor(sourceType)
		kind, err := domain.ParseRelationKind(in.Kind, level)
		if err != nil {
			return fmt.Errorf("%w: %q for a %s", err, in.Kind, sourceType)
		}
		if err := graph.ValidateAdd(in.SourceID, in.TargetID, kind); err != nil {
			return err
		}
		targetType, _ := graph.NodeType(in.TargetID)
		ref, err := domain.NewReference(level, targetType, in.TargetID, kind, in.Note)
		if err != nil {
			return err
		}

		switch sourceType {
		case domain.TargetUseCase:
			uc, err := tx.GetUseCase(ctx, in.SourceID)
			if err != nil {
				return err
			}
			if uc.AddReference(ref, now) {
				if err := tx.UpdateUseCase(ctx, uc); err != nil {
					return err
				}
			}
		case domain.TargetScenario:
			sc, err := tx.GetScenario(ctx, in.SourceID)
			if err != nil {
				return err
			}
			if sc.AddReference(ref, now) {
				if err := tx.UpdateScenario(ctx, sc); err != nil {
					return err
				}
			}
		}
		out = ref
		return nil
	})
	if err != nil {
		return domain.Reference{}, err
	}
	return out, nil
}

// RemoveReference deletes the edge source -kind-> target.
func (s *Service) RemoveReference(ctx context.Context, sourceID, targetID, rawKind string) error {
	return s.update(ctx, func(tx Tx, now time.Time) error {
		graph, err := loadGraph(ctx, tx)
		if err != nil {
			return err
		}
		sourceType, ok := graph.NodeType(sourceID)
		if !ok {
			return NotFoundError("reference source", sourceID)
		}
		kind, err := domain.ParseRelationKind(rawKind, levelFor(sourceType))
		if err != nil {
			return err
		}
		missing := NotFoundError("reference", fmt.Sprintf("%s -%s-> %s", sourceID, kind, targetID))
		switch sourceType {
		case domain.TargetUseCase:
			uc, err := tx.GetUseCase(ctx, sourceID)
			if err != nil {
				return err
			}
			if !uc.RemoveReference(targetID, kind, now) {
				return missing
			}
			return tx.UpdateUseCase(ctx, uc)
		default:
			sc, err := tx.GetScenario(ctx, sourceID)
			if err != nil {
				return err
			}
			if !sc.RemoveReference(targetID, kind, now) {
				return missing
			}
			return tx.UpdateScenario(ctx, sc)
		}
	})
}

// CheckReferences runs a full integrity pass over every stored edge.
func (s *Service) CheckReferences(ctx context.Context) ([]refgraph.Problem, error) {
	var problems []refgraph.Problem
	err := s.view(ctx, func(tx Tx) error {
		graph, err := loadGraph(ctx, tx)
		if err != nil {
			return err
		}
		problems = graph.Check()
		return nil
	})
	return problems, err
}

func levelFor(t domain.TargetType) domain.RelationLevel {
	if t == domain.TargetScenario {
		return domain.LevelScenario
	}
	return domain.LevelUseCase
}

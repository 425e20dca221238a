package filestore

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/evanschultz/ucm/internal/domain"
)

type referenceRecord struct {
	TargetType string `toml:"target_type"`
	TargetID   string `toml:"target_id"`
	Kind       string `toml:"kind"`
	Note       string `toml:"note,omitempty"`
}

type useCaseRecord struct {
	ID             string            `toml:"id"`
	Title          string            `toml:"title"`
	Category       string            `toml:"category"`
	Priority       string            `toml:"priority"`
	Status         string            `toml:"status"`
	Description    string            `toml:"description,omitempty"`
	Preconditions  []string          `toml:"preconditions,omitempty"`
	Postconditions []string          `toml:"postconditions,omitempty"`
	CreatedAt      time.Time         `toml:"created_at"`
	UpdatedAt      time.Time         `toml:"updated_at"`
	Version        int               `toml:"version"`
	References     []referenceRecord `toml:"references,omitempty"`
}

type stepRecord struct {
	Order       int    `toml:"order"`
	Action      string `toml:"action,omitempty"`
	Description string `toml:"description"`
	ActorID     string `toml:"actor_id,omitempty"`
	Notes       string `toml:"notes,omitempty"`
}

type scenarioRecord struct {
	ID             string            `toml:"id"`
	UseCaseID      string            `toml:"use_case_id"`
	Title          string            `toml:"title"`
	Description    string            `toml:"description,omitempty"`
	Type           string            `toml:"type"`
	Status         string            `toml:"status"`
	ActorID        string            `toml:"actor_id,omitempty"`
	Preconditions  []string          `toml:"preconditions,omitempty"`
	Postconditions []string          `toml:"postconditions,omitempty"`
	CreatedAt      time.Time         `toml:"created_at"`
	UpdatedAt      time.Time         `toml:"updated_at"`
	Version        int               `toml:"version"`
	Steps          []stepRecord      `toml:"steps,omitempty"`
	References     []referenceRecord `toml:"references,omitempty"`
}

type personaRecord struct {
	Background          string `toml:"background,omitempty"`
	Role                string `toml:"role,omitempty"`
	Education           string `toml:"education,omitempty"`
	TechnicalExperience string `toml:"technical_experience,omitempty"`
	Motivation          string `toml:"motivation,omitempty"`
}

type systemRecord struct {
	Type        string `toml:"type"`
	Description string `toml:"description,omitempty"`
}

type actorRecord struct {
	ID        string         `toml:"id"`
	Name      string         `toml:"name"`
	Emoji     string         `toml:"emoji,omitempty"`
	Kind      string         `toml:"kind"`
	CreatedAt time.Time      `toml:"created_at"`
	UpdatedAt time.Time      `toml:"updated_at"`
	Persona   *personaRecord `toml:"persona,omitempty"`
	System    *systemRecord  `toml:"system,omitempty"`
}

func encodeRecord(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte, v any) error {
	if err := toml.Unmarshal(data, v); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return err
	}
	return nil
}

func referencesToRecords(in []domain.Reference) []referenceRecord {
	if len(in) == 0 {
		return nil
	}
	out := make([]referenceRecord, 0, len(in))
	for _, ref := range in {
		out = append(out, referenceRecord{
			TargetType: string(ref.TargetType),
			TargetID:   ref.TargetID,
			Kind:       string(ref.Kind),
			Note:       ref.Note,
		})
	}
	return out
}

func referencesFromRecords(in []referenceRecord) []domain.Reference {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Reference, 0, len(in))
	for _, rec := range in {
		targetType := domain.TargetType(rec.TargetType)
		if targetType == "" {
			targetType = domain.TargetUseCase
		}
		out = append(out, domain.Reference{
			TargetType: targetType,
			TargetID:   rec.TargetID,
			Kind:       domain.RelationKind(rec.Kind),
			Note:       rec.Note,
		})
	}
	return out
}

func useCaseToRecord(uc domain.UseCase) useCaseRecord {
	return useCaseRecord{
		ID:             uc.ID,
		Title:          uc.Title,
		Category:       uc.Category,
		Priority:       string(uc.Priority),
		Status:         string(uc.Status),
		Description:    uc.Description,
		Preconditions:  nonEmpty(uc.Preconditions),
		Postconditions: nonEmpty(uc.Postconditions),
		CreatedAt:      uc.CreatedAt.UTC(),
		UpdatedAt:      uc.UpdatedAt.UTC(),
		Version:        uc.Version,
		References:     referencesToRecords(uc.References),
	}
}

func (r useCaseRecord) toDomain() (domain.UseCase, error) {
	priority, err := domain.ParsePriority(r.Priority)
	if err != nil {
		return domain.UseCase{}, err
	}
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return domain.UseCase{}, err
	}
	return domain.UseCase{
		ID:             r.ID,
		Title:          r.Title,
		Category:       r.Category,
		Priority:       priority,
		Status:         status,
		Description:    r.Description,
		Preconditions:  nonEmpty(r.Preconditions),
		Postconditions: nonEmpty(r.Postconditions),
		References:     referencesFromRecords(r.References),
		Metadata: domain.Metadata{
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
			Version:   r.Version,
		},
	}, nil
}

func scenarioToRecord(sc domain.Scenario) scenarioRecord {
	var steps []stepRecord
	for _, step := range sc.Steps {
		steps = append(steps, stepRecord{
			Order:       step.Order,
			Action:      step.Action,
			Description: step.Description,
			ActorID:     step.ActorID,
			Notes:       step.Notes,
		})
	}
	return scenarioRecord{
		ID:             sc.ID,
		UseCaseID:      sc.UseCaseID,
		Title:          sc.Title,
		Description:    sc.Description,
		Type:           string(sc.Type),
		Status:         string(sc.Status),
		ActorID:        sc.ActorID,
		Preconditions:  nonEmpty(sc.Preconditions),
		Postconditions: nonEmpty(sc.Postconditions),
		CreatedAt:      sc.CreatedAt.UTC(),
		UpdatedAt:      sc.UpdatedAt.UTC(),
		Version:        sc.Version,
		Steps:          steps,
		References:     referencesToRecords(sc.References),
	}
}

func (r scenarioRecord) toDomain() (domain.Scenario, error) {
	scenarioType, err := domain.ParseScenarioType(r.Type)
	if err != nil {
		return domain.Scenario{}, err
	}
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return domain.Scenario{}, err
	}
	var steps []domain.Step
	for _, rec := range r.Steps {
		steps = append(steps, domain.Step{
			Order:       rec.Order,
			Action:      rec.Action,
			Description: rec.Description,
			ActorID:     rec.ActorID,
			Notes:       rec.Notes,
		})
	}
	if !domain.DenseSteps(steps) {
		return domain.Scenario{}, domain.ErrInvalidStepOrder
	}
	return domain.Scenario{
		ID:             r.ID,
		UseCaseID:      r.UseCaseID,
		Title:          r.Title,
		Description:    r.Description,
		Type:           scenarioType,
		Status:         status,
		ActorID:        r.ActorID,
		Steps:          steps,
		Preconditions:  nonEmpty(r.Preconditions),
		Postconditions: nonEmpty(r.Postconditions),
		References:     referencesFromRecords(r.References),
		Metadata: domain.Metadata{
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
			Version:   r.Version,
		},
	}, nil
}

func actorToRecord(a domain.Actor) actorRecord {
	rec := actorRecord{
		ID:        a.ID,
		Name:      a.Name,
		Emoji:     a.Emoji,
		Kind:      string(a.Kind),
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
	switch a.Kind {
	case domain.ActorPersona:
		rec.Persona = &personaRecord{
			Background:          a.Persona.Background,
			Role:                a.Persona.Role,
			Education:           a.Persona.Education,
			TechnicalExperience: a.Persona.TechnicalExperience,
			Motivation:          a.Persona.Motivation,
		}
	case domain.ActorSystem:
		rec.System = &systemRecord{Type: string(a.System.Type), Description: a.System.Description}
	}
	return rec
}

func (r actorRecord) toDomain() (domain.Actor, error) {
	kind := domain.ActorKind(r.Kind)
	if !kind.Valid() {
		return domain.Actor{}, domain.ErrInvalidActorKind
	}
	a := domain.Actor{
		ID:        r.ID,
		Name:      r.Name,
		Emoji:     r.Emoji,
		Kind:      kind,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.Persona != nil && kind == domain.ActorPersona {
		a.Persona = domain.Persona{
			Background:          r.Persona.Background,
			Role:                r.Persona.Role,
			Education:           r.Persona.Education,
			TechnicalExperience: r.Persona.TechnicalExperience,
			Motivation:          r.Persona.Motivation,
		}
	}
	if kind == domain.ActorSystem {
		var rec systemRecord
		if r.System != nil {
			rec = *r.System
		}
		systemType, err := domain.ParseSystemType(rec.Type)
		if err != nil {
			return domain.Actor{}, err
		}
		a.System = domain.SystemProfile{Type: systemType, Description: rec.Description}
	}
	return a, nil
}

// nonEmpty returns nil for an empty list so that nil and empty read back identically.
func nonEmpty(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}

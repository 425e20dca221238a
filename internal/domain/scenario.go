package domain

import (
	"slices"
	"strings"
	"time"
)

// ScenarioType classifies the path a scenario takes through its use case.
type ScenarioType string

const (
	ScenarioMain        ScenarioType = "main"
	ScenarioAlternative ScenarioType = "alternative"
	ScenarioException   ScenarioType = "exception"
)

var validScenarioTypes = []ScenarioType{ScenarioMain, ScenarioAlternative, ScenarioException}

// ParseScenarioType normalizes input into a ScenarioType. Empty input yields main.
func ParseScenarioType(raw string) (ScenarioType, error) {
	t := ScenarioType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case "":
		return ScenarioMain, nil
	case "happy_path", "happy-path":
		return ScenarioMain, nil
	case "alternative_flow", "alternative-flow":
		return ScenarioAlternative, nil
	case "exception_flow", "exception-flow", "error":
		return ScenarioException, nil
	}
	if !slices.Contains(validScenarioTypes, t) {
		return "", ErrInvalidScenarioType
	}
	return t, nil
}

// Scenario represents one concrete path through a use case.
type Scenario struct {
	ID             string
	UseCaseID      string
	Title          string
	Description    string
	Type           ScenarioType
	Status         Status
	ActorID        string
	Steps          []Step
	Preconditions  []string
	Postconditions []string
	References     []Reference
	Metadata
}

// ScenarioInput holds the values needed to construct a scenario.
type ScenarioInput struct {
	ID             string       `validate:"required"`
	UseCaseID      string       `validate:"required"`
	Title          string       `validate:"required,max=200"`
	Description    string
	Type           ScenarioType `validate:"oneof=main alternative exception"`
	Status         Status
	ActorID        string       `validate:"omitempty,kebab"`
	Steps          []StepInput  `validate:"dive"`
	Preconditions  []string     `validate:"dive,required"`
	Postconditions []string     `validate:"dive,required"`
}

var scenarioFieldErrors = map[string]error{
	"ID":             ErrInvalidID,
	"UseCaseID":      ErrInvalidID,
	"Title":          ErrInvalidTitle,
	"Type":           ErrInvalidScenarioType,
	"ActorID":        ErrInvalidID,
	"Steps":          ErrInvalidStep,
	"Preconditions":  ErrInvalidCondition,
	"Postconditions": ErrInvalidCondition,
}

// NewScenario constructs a scenario with densely numbered steps.
func NewScenario(in ScenarioInput, now time.Time) (Scenario, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.UseCaseID = strings.TrimSpace(in.UseCaseID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ActorID = strings.TrimSpace(in.ActorID)
	in.Preconditions = trimAll(in.Preconditions)
	in.Postconditions = trimAll(in.Postconditions)
	if in.Type == "" {
		in.Type = ScenarioMain
	}
	if in.Status == "" {
		in.Status = StatusPlanned
	}
	if !in.Status.Valid() {
		return Scenario{}, ErrInvalidStatus
	}
	in.Steps = normalizeStepInputs(in.Steps)
	if err := checkInput(in, scenarioFieldErrors); err != nil {
		return Scenario{}, err
	}
	if !strings.HasPrefix(in.ID, in.UseCaseID+"-") {
		return Scenario{}, ErrInvalidID
	}

	return Scenario{
		ID:             in.ID,
		UseCaseID:      in.UseCaseID,
		Title:          in.Title,
		Description:    in.Description,
		Type:           in.Type,
		Status:         in.Status,
		ActorID:        in.ActorID,
		Steps:          buildSteps(in.Steps),
		Preconditions:  in.Preconditions,
		Postconditions: in.Postconditions,
		Metadata:       newMetadata(now),
	}, nil
}

// UpdateDetails replaces the descriptive fields of a scenario.
func (s *Scenario) UpdateDetails(title, description string, scenarioType ScenarioType, now time.Time) error {
	title = strings.TrimSpace(title)
	if !validTitle(title) {
		return ErrInvalidTitle
	}
	if !slices.Contains(validScenarioTypes, scenarioType) {
		return ErrInvalidScenarioType
	}
	s.Title = title
	s.Description = strings.TrimSpace(description)
	s.Type = scenarioType
	s.Touch(now)
	return nil
}

// SetStatus changes the scenario status. It reports whether the value changed.
func (s *Scenario) SetStatus(status Status, now time.Time) (bool, error) {
	if !status.Valid() {
		return false, ErrInvalidStatus
	}
	if s.Status == status {
		return false, nil
	}
	s.Status = status
	s.Touch(now)
	return true, nil
}

// AssignActor sets or clears (empty id) the scenario actor.
func (s *Scenario) AssignActor(actorID string, now time.Time) error {
	actorID = strings.TrimSpace(actorID)
	if actorID != "" && !ValidActorID(actorID) {
		return ErrInvalidID
	}
	s.ActorID = actorID
	s.Touch(now)
	return nil
}

// ClearActor removes every reference to actorID from the scenario and its steps.
func (s *Scenario) ClearActor(actorID string, now time.Time) bool {
	changed := false
	if s.ActorID == actorID {
		s.ActorID = ""
		changed = true
	}
	steps := slices.Clone(s.Steps)
	for i := range steps {
		if steps[i].ActorID == actorID {
			steps[i].ActorID = ""
			changed = true
		}
	}
	if changed {
		s.Steps = steps
		s.Touch(now)
	}
	return changed
}

// UsesActor reports whether the scenario or one of its steps references actorID.
func (s Scenario) UsesActor(actorID string) bool {
	if s.ActorID == actorID {
		return true
	}
	return slices.ContainsFunc(s.Steps, func(step Step) bool { return step.ActorID == actorID })
}

// SetConditions replaces the scenario-specific preconditions or postconditions.
func (s *Scenario) SetConditions(kind ConditionKind, conditions []string, now time.Time) error {
	conditions = trimAll(conditions)
	if slices.Contains(conditions, "") {
		return ErrInvalidCondition
	}
	switch kind {
	case ConditionPre:
		s.Preconditions = conditions
	case ConditionPost:
		s.Postconditions = conditions
	default:
		return ErrInvalidCondition
	}
	s.Touch(now)
	return nil
}

// AddReference appends ref unless the same edge already exists.
func (s *Scenario) AddReference(ref Reference, now time.Time) bool {
	if slices.ContainsFunc(s.References, ref.Same) {
		return false
	}
	s.References = append(cloneReferences(s.References), ref)
	s.Touch(now)
	return true
}

// RemoveReference drops the edge to targetID of the given kind.
func (s *Scenario) RemoveReference(targetID string, kind RelationKind, now time.Time) bool {
	return removeReferences(&s.References, &s.Metadata, now, func(r Reference) bool {
		return r.TargetID == targetID && r.Kind == kind
	})
}

// RemoveReferencesTo drops every edge whose target is in targets.
func (s *Scenario) RemoveReferencesTo(targets map[string]struct{}, now time.Time) int {
	before := len(s.References)
	removeReferences(&s.References, &s.Metadata, now, func(r Reference) bool {
		_, ok := targets[r.TargetID]
		return ok
	})
	return before - len(s.References)
}

// ScenarioStatuses collects the statuses of a scenario list.
func ScenarioStatuses(scenarios []Scenario) []Status {
	out := make([]Status, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, s.Status)
	}
	return out
}

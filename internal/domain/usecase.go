package domain

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// maxTitleLen bounds use case and scenario titles in characters.
const maxTitleLen = 200

// Priority ranks a use case for planning.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// ParsePriority normalizes user or file input into a Priority. Empty input yields medium.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if p == "" {
		return PriorityMedium, nil
	}
	if !slices.Contains(validPriorities, p) {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// ConditionKind selects the precondition or postcondition list.
type ConditionKind string

const (
	ConditionPre  ConditionKind = "pre"
	ConditionPost ConditionKind = "post"
)

// Metadata carries the bookkeeping every versioned entity shares.
type Metadata struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

func newMetadata(now time.Time) Metadata {
	ts := now.UTC()
	return Metadata{CreatedAt: ts, UpdatedAt: ts, Version: 1}
}

// Touch records a mutation.
func (m *Metadata) Touch(now time.Time) {
	m.UpdatedAt = now.UTC()
	m.Version++
}

// CategoryKey folds a category into the form used for matching: lower case with runs of whitespace collapsed to
// one space. Filters, token reuse and both backends compare categories through it.
func CategoryKey(category string) string {
	return strings.ToLower(strings.Join(strings.Fields(category), " "))
}

// UseCase is a documented capability of the system. Its status is derived from its scenarios.
type UseCase struct {
	ID             string
	Title          string
	Category       string
	Priority       Priority
	Status         Status
	Description    string
	Preconditions  []string
	Postconditions []string
	References     []Reference
	ScenarioIDs    []string
	Metadata
}

// UseCaseInput holds the caller-supplied fields of a new use case. The ID is allocated by the service.
type UseCaseInput struct {
	ID             string   `validate:"required"`
	Title          string   `validate:"required,max=200"`
	Category       string   `validate:"required,max=100"`
	Priority       Priority `validate:"oneof=low medium high critical"`
	Description    string
	Preconditions  []string `validate:"dive,required"`
	Postconditions []string `validate:"dive,required"`
}

var useCaseFieldErrors = map[string]error{
	"ID":             ErrInvalidID,
	"Title":          ErrInvalidTitle,
	"Category":       ErrInvalidCategory,
	"Priority":       ErrInvalidPriority,
	"Preconditions":  ErrInvalidCondition,
	"Postconditions": ErrInvalidCondition,
}

// NewUseCase validates in and returns a planned use case at version 1.
func NewUseCase(in UseCaseInput, now time.Time) (UseCase, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.Preconditions = trimAll(in.Preconditions)
	in.Postconditions = trimAll(in.Postconditions)
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if err := checkInput(in, useCaseFieldErrors); err != nil {
		return UseCase{}, err
	}

	return UseCase{
		ID:             in.ID,
		Title:          in.Title,
		Category:       in.Category,
		Priority:       in.Priority,
		Status:         StatusPlanned,
		Description:    in.Description,
		Preconditions:  in.Preconditions,
		Postconditions: in.Postconditions,
		Metadata:       newMetadata(now),
	}, nil
}

// UpdateDetails replaces the editable fields. The category and conditions are left alone.
func (u *UseCase) UpdateDetails(title, description string, priority Priority, now time.Time) error {
	title = strings.TrimSpace(title)
	if !validTitle(title) {
		return ErrInvalidTitle
	}
	if !slices.Contains(validPriorities, priority) {
		return ErrInvalidPriority
	}
	u.Title = title
	u.Description = strings.TrimSpace(description)
	u.Priority = priority
	u.Touch(now)
	return nil
}

// Conditions returns the condition list of the requested kind.
func (u *UseCase) Conditions(kind ConditionKind) []string {
	if kind == ConditionPost {
		return u.Postconditions
	}
	return u.Preconditions
}

func (u *UseCase) setConditions(kind ConditionKind, conditions []string) {
	if kind == ConditionPost {
		u.Postconditions = conditions
		return
	}
	u.Preconditions = conditions
}

// AddCondition appends a condition unless an identical one is already present. It reports whether the list changed.
func (u *UseCase) AddCondition(kind ConditionKind, text string, now time.Time) (bool, error) {
	if kind != ConditionPre && kind != ConditionPost {
		return false, ErrInvalidCondition
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return false, ErrInvalidCondition
	}
	current := u.Conditions(kind)
	if slices.Contains(current, text) {
		return false, nil
	}
	u.setConditions(kind, append(slices.Clone(current), text))
	u.Touch(now)
	return true, nil
}

// RemoveCondition deletes the condition at a 1-based position.
func (u *UseCase) RemoveCondition(kind ConditionKind, position int, now time.Time) error {
	if kind != ConditionPre && kind != ConditionPost {
		return ErrInvalidCondition
	}
	current := u.Conditions(kind)
	if position < 1 || position > len(current) {
		return ErrInvalidCondition
	}
	u.setConditions(kind, slices.Delete(slices.Clone(current), position-1, position))
	u.Touch(now)
	return nil
}

// AddReference appends ref unless the same edge already exists. It reports whether the list changed.
func (u *UseCase) AddReference(ref Reference, now time.Time) bool {
	if slices.ContainsFunc(u.References, ref.Same) {
		return false
	}
	u.References = append(cloneReferences(u.References), ref)
	u.Touch(now)
	return true
}

// RemoveReference drops the edge to targetID of the given kind. It reports whether an edge was removed.
func (u *UseCase) RemoveReference(targetID string, kind RelationKind, now time.Time) bool {
	return removeReferences(&u.References, &u.Metadata, now, func(r Reference) bool {
		return r.TargetID == targetID && r.Kind == kind
	})
}

// RemoveReferencesTo drops every edge whose target is in targets and returns how many were removed.
func (u *UseCase) RemoveReferencesTo(targets map[string]struct{}, now time.Time) int {
	before := len(u.References)
	removeReferences(&u.References, &u.Metadata, now, func(r Reference) bool {
		_, ok := targets[r.TargetID]
		return ok
	})
	return before - len(u.References)
}

// Recompute derives the use case status from its scenarios. It reports whether the status changed.
func (u *UseCase) Recompute(children []Status, now time.Time) bool {
	next := AggregateStatus(children)
	if next == u.Status {
		return false
	}
	u.Status = next
	u.Touch(now)
	return true
}

func removeReferences(refs *[]Reference, meta *Metadata, now time.Time, match func(Reference) bool) bool {
	if !slices.ContainsFunc(*refs, match) {
		return false
	}
	next := slices.DeleteFunc(cloneReferences(*refs), match)
	if len(next) == 0 {
		next = nil
	}
	*refs = next
	meta.Touch(now)
	return true
}

// validTitle applies the same rule as the required,max=200 tags on the create inputs.
func validTitle(title string) bool {
	return title != "" && utf8.RuneCountInString(title) <= maxTitleLen
}

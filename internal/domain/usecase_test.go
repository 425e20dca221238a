package domain

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

func TestNewUseCaseDefaultsAndValidation(t *testing.T) {
	uc, err := NewUseCase(UseCaseInput{
		ID:            " UC-SEC-001 ",
		Title:         "  User Login ",
		Category:      "Security",
		Description:   " Sign in with a password. ",
		Preconditions: []string{" account exists "},
	}, fixedNow.In(time.FixedZone("x", 3600)))
	if err != nil {
		t.Fatalf("NewUseCase() error = %v", err)
	}
	if uc.ID != "UC-SEC-001" || uc.Title != "User Login" || uc.Description != "Sign in with a password." {
		t.Fatalf("unexpected normalized use case %#v", uc)
	}
	if uc.Priority != PriorityMedium {
		t.Fatalf("priority = %q, want medium", uc.Priority)
	}
	if uc.Status != StatusPlanned {
		t.Fatalf("status = %q, want planned", uc.Status)
	}
	if uc.Version != 1 || !uc.CreatedAt.Equal(fixedNow) || uc.CreatedAt.Location() != time.UTC {
		t.Fatalf("unexpected metadata %#v", uc.Metadata)
	}
	if !slices.Equal(uc.Preconditions, []string{"account exists"}) {
		t.Fatalf("preconditions = %v", uc.Preconditions)
	}

	cases := []struct {
		name string
		in   UseCaseInput
		want error
	}{
		{name: "missing id", in: UseCaseInput{Title: "t", Category: "c"}, want: ErrInvalidID},
		{name: "missing title", in: UseCaseInput{ID: "UC-A-001", Category: "c"}, want: ErrInvalidTitle},
		{name: "missing category", in: UseCaseInput{ID: "UC-A-001", Title: "t"}, want: ErrInvalidCategory},
		{name: "bad priority", in: UseCaseInput{ID: "UC-A-001", Title: "t", Category: "c", Priority: "urgent"}, want: ErrInvalidPriority},
		{name: "blank condition", in: UseCaseInput{ID: "UC-A-001", Title: "t", Category: "c", Postconditions: []string{" "}}, want: ErrInvalidCondition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewUseCase(tc.in, fixedNow); !errors.Is(err, tc.want) {
				t.Fatalf("NewUseCase() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUseCaseConditions(t *testing.T) {
	uc, err := NewUseCase(UseCaseInput{ID: "UC-SEC-001", Title: "Login", Category: "Security"}, fixedNow)
	if err != nil {
		t.Fatalf("NewUseCase() error = %v", err)
	}
	later := fixedNow.Add(time.Minute)
	if changed, err := uc.AddCondition(ConditionPre, "user is registered", later); err != nil || !changed {
		t.Fatalf("AddCondition() = %t, %v", changed, err)
	}
	if changed, err := uc.AddCondition(ConditionPre, "user is registered", later); err != nil || changed {
		t.Fatalf("duplicate AddCondition() = %t, %v", changed, err)
	}
	if _, err := uc.AddCondition(ConditionPost, "session issued", later); err != nil {
		t.Fatalf("AddCondition(post) error = %v", err)
	}
	if uc.Version != 3 || !uc.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected metadata %#v", uc.Metadata)
	}
	if err := uc.RemoveCondition(ConditionPre, 2, later); !errors.Is(err, ErrInvalidCondition) {
		t.Fatalf("RemoveCondition(out of range) error = %v", err)
	}
	if err := uc.RemoveCondition(ConditionPre, 1, later); err != nil {
		t.Fatalf("RemoveCondition() error = %v", err)
	}
	if len(uc.Preconditions) != 0 || len(uc.Postconditions) != 1 {
		t.Fatalf("unexpected conditions pre=%v post=%v", uc.Preconditions, uc.Postconditions)
	}
}

func TestUseCaseReferences(t *testing.T) {
	uc, err := NewUseCase(UseCaseInput{ID: "UC-SEC-001", Title: "Login", Category: "Security"}, fixedNow)
	if err != nil {
		t.Fatalf("NewUseCase() error = %v", err)
	}
	ref, err := NewReference(LevelUseCase, "", "UC-SEC-002", "depends_on", " needs accounts ")
	if err != nil {
		t.Fatalf("NewReference() error = %v", err)
	}
	if ref.Kind != RelationDependency || ref.TargetType != TargetUseCase || ref.Note != "needs accounts" {
		t.Fatalf("unexpected reference %#v", ref)
	}
	if !uc.AddReference(ref, fixedNow) {
		t.Fatal("expected reference to be added")
	}
	if uc.AddReference(Reference{TargetType: TargetUseCase, TargetID: "UC-SEC-002", Kind: RelationDependency, Note: "other"}, fixedNow) {
		t.Fatal("expected duplicate edge to be ignored")
	}
	if uc.RemoveReference("UC-SEC-002", RelationInclusion, fixedNow) {
		t.Fatal("expected kind mismatch to remove nothing")
	}
	removed := uc.RemoveReferencesTo(map[string]struct{}{"UC-SEC-002": {}}, fixedNow)
	if removed != 1 || uc.References != nil {
		t.Fatalf("RemoveReferencesTo() = %d, refs = %v", removed, uc.References)
	}
}

func TestParsePriority(t *testing.T) {
	if p, err := ParsePriority(""); err != nil || p != PriorityMedium {
		t.Fatalf("ParsePriority(\"\") = %q, %v", p, err)
	}
	if p, err := ParsePriority("Critical"); err != nil || p != PriorityCritical {
		t.Fatalf("ParsePriority(Critical) = %q, %v", p, err)
	}
	if _, err := ParsePriority("urgent"); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("ParsePriority(urgent) error = %v", err)
	}
}

func TestUpdateDetailsCountsTitleCharacters(t *testing.T) {
	title := strings.Repeat("日", 150)
	uc, err := NewUseCase(UseCaseInput{ID: "UC-GLO-001", Title: title, Category: "Global"}, fixedNow)
	if err != nil {
		t.Fatalf("NewUseCase() error = %v", err)
	}
	if err := uc.UpdateDetails(title, "", uc.Priority, fixedNow); err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}
	if err := uc.UpdateDetails(strings.Repeat("日", 201), "", uc.Priority, fixedNow); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("UpdateDetails() error = %v, want ErrInvalidTitle", err)
	}
	if _, err := NewUseCase(UseCaseInput{ID: "UC-GLO-002", Title: strings.Repeat("日", 201), Category: "Global"}, fixedNow); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("NewUseCase() error = %v, want ErrInvalidTitle", err)
	}

	sc, err := NewScenario(ScenarioInput{ID: "UC-GLO-001-S01", UseCaseID: "UC-GLO-001", Title: title}, fixedNow)
	if err != nil {
		t.Fatalf("NewScenario() error = %v", err)
	}
	if err := sc.UpdateDetails(title, "", sc.Type, fixedNow); err != nil {
		t.Fatalf("Scenario.UpdateDetails() error = %v", err)
	}
}

func TestCategoryKey(t *testing.T) {
	cases := map[string]string{
		"Security":       "security",
		"  Big   Data ":  "big data",
		"Übersicht":      "übersicht",
		"ÜBERSICHT\tNeu": "übersicht neu",
	}
	for in, want := range cases {
		if got := CategoryKey(in); got != want {
			t.Fatalf("CategoryKey(%q) = %q, want %q", in, got, want)
		}
	}
}

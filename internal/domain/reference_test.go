package domain

import (
	"errors"
	"testing"
)

func TestParseRelationKind(t *testing.T) {
	cases := []struct {
		raw   string
		level RelationLevel
		want  RelationKind
		err   error
	}{
		{raw: "dependency", level: LevelUseCase, want: RelationDependency},
		{raw: "depends-on", level: LevelUseCase, want: RelationDependency},
		{raw: "Extends", level: LevelUseCase, want: RelationExtension},
		{raw: "alternative_to", level: LevelUseCase, want: RelationAlternative},
		{raw: "depends_on", level: LevelScenario, want: RelationDependsOn},
		{raw: "precedes", level: LevelScenario, want: RelationPrecedes},
		{raw: "dependency", level: LevelScenario, err: ErrInvalidRelation},
		{raw: "precedes", level: LevelUseCase, err: ErrInvalidRelation},
		{raw: "blocks", level: LevelUseCase, err: ErrInvalidRelation},
	}
	for _, tc := range cases {
		got, err := ParseRelationKind(tc.raw, tc.level)
		if !errors.Is(err, tc.err) {
			t.Fatalf("ParseRelationKind(%q, %q) error = %v, want %v", tc.raw, tc.level, err, tc.err)
		}
		if got != tc.want {
			t.Fatalf("ParseRelationKind(%q, %q) = %q, want %q", tc.raw, tc.level, got, tc.want)
		}
	}
}

func TestRelationPolicyTable(t *testing.T) {
	sensitive := []RelationKind{RelationDependency, RelationExtension, RelationDependsOn, RelationExtends, RelationPrecedes}
	for _, kind := range sensitive {
		if !IsCycleSensitive(kind) {
			t.Fatalf("expected %q to be cycle sensitive", kind)
		}
	}
	relaxed := []RelationKind{RelationInclusion, RelationAlternative, RelationIncludes, RelationAlternativeTo}
	for _, kind := range relaxed {
		if IsCycleSensitive(kind) {
			t.Fatalf("expected %q not to be cycle sensitive", kind)
		}
	}
}

func TestNewReferenceTargetRules(t *testing.T) {
	if _, err := NewReference(LevelUseCase, TargetScenario, "UC-A-001-S01", RelationDependency, ""); !errors.Is(err, ErrInvalidTargetType) {
		t.Fatalf("use case -> scenario edge error = %v", err)
	}
	ref, err := NewReference(LevelScenario, TargetScenario, "UC-A-001-S01", RelationExtends, "")
	if err != nil {
		t.Fatalf("NewReference() error = %v", err)
	}
	if ref.TargetType != TargetScenario {
		t.Fatalf("target type = %q", ref.TargetType)
	}
	if _, err := NewReference(LevelScenario, TargetScenario, " ", RelationExtends, ""); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("blank target error = %v", err)
	}
}

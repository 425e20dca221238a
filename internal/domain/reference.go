package domain

import "strings"

// RelationKind names the semantics of a reference edge.
type RelationKind string

// Use-case-level relationship kinds.
const (
	RelationDependency  RelationKind = "dependency"
	RelationExtension   RelationKind = "extension"
	RelationInclusion   RelationKind = "inclusion"
	RelationAlternative RelationKind = "alternative"
)

// Scenario-level relationship kinds.
const (
	RelationIncludes      RelationKind = "includes"
	RelationExtends       RelationKind = "extends"
	RelationDependsOn     RelationKind = "depends_on"
	RelationAlternativeTo RelationKind = "alternative_to"
	RelationPrecedes      RelationKind = "precedes"
)

// RelationLevel says which kind of entity may own an edge of a given kind.
type RelationLevel string

const (
	LevelUseCase  RelationLevel = "use_case"
	LevelScenario RelationLevel = "scenario"
)

// RelationPolicy describes how the reference validator treats one relationship kind.
type RelationPolicy struct {
	Level          RelationLevel
	CycleSensitive bool
}

var relationPolicies = map[RelationKind]RelationPolicy{
	RelationDependency:    {Level: LevelUseCase, CycleSensitive: true},
	RelationExtension:     {Level: LevelUseCase, CycleSensitive: true},
	RelationInclusion:     {Level: LevelUseCase},
	RelationAlternative:   {Level: LevelUseCase},
	RelationIncludes:      {Level: LevelScenario},
	RelationExtends:       {Level: LevelScenario, CycleSensitive: true},
	RelationDependsOn:     {Level: LevelScenario, CycleSensitive: true},
	RelationAlternativeTo: {Level: LevelScenario},
	RelationPrecedes:      {Level: LevelScenario, CycleSensitive: true},
}

// useCaseAliases maps the scenario-style spellings onto use-case-level kinds.
var useCaseAliases = map[RelationKind]RelationKind{
	RelationDependsOn:     RelationDependency,
	RelationExtends:       RelationExtension,
	RelationIncludes:      RelationInclusion,
	RelationAlternativeTo: RelationAlternative,
}

// RelationPolicyFor returns the policy of a kind. ok is false for unknown kinds.
func RelationPolicyFor(kind RelationKind) (RelationPolicy, bool) {
	policy, ok := relationPolicies[kind]
	return policy, ok
}

// IsCycleSensitive reports whether edges of kind must stay acyclic.
func IsCycleSensitive(kind RelationKind) bool {
	return relationPolicies[kind].CycleSensitive
}

// ParseRelationKind normalizes a kind for an edge owned by an entity of the given level.
func ParseRelationKind(raw string, level RelationLevel) (RelationKind, error) {
	kind := RelationKind(strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(raw))))
	if level == LevelUseCase {
		if alias, ok := useCaseAliases[kind]; ok {
			kind = alias
		}
	}
	policy, ok := relationPolicies[kind]
	if !ok || policy.Level != level {
		return "", ErrInvalidRelation
	}
	return kind, nil
}

// TargetType names the entity kind a reference points at.
type TargetType string

const (
	TargetUseCase  TargetType = "use_case"
	TargetScenario TargetType = "scenario"
)

// Valid reports whether the target type is known.
func (t TargetType) Valid() bool {
	return t == TargetUseCase || t == TargetScenario
}

// Reference is a directed, typed edge from the owning entity to TargetID.
type Reference struct {
	TargetType TargetType
	TargetID   string
	Kind       RelationKind
	Note       string
}

// Same reports whether two references describe the same edge, ignoring the note.
func (r Reference) Same(other Reference) bool {
	return r.TargetID == other.TargetID && r.Kind == other.Kind
}

// NewReference validates and normalizes an edge owned by an entity of the given level.
func NewReference(level RelationLevel, targetType TargetType, targetID string, kind RelationKind, note string) (Reference, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return Reference{}, ErrInvalidID
	}
	if targetType == "" {
		targetType = TargetUseCase
	}
	if !targetType.Valid() {
		return Reference{}, ErrInvalidTargetType
	}
	if level == LevelUseCase && targetType != TargetUseCase {
		return Reference{}, ErrInvalidTargetType
	}
	parsed, err := ParseRelationKind(string(kind), level)
	if err != nil {
		return Reference{}, err
	}
	return Reference{
		TargetType: targetType,
		TargetID:   targetID,
		Kind:       parsed,
		Note:       strings.TrimSpace(note),
	}, nil
}

// cloneReferences copies a reference list so callers can mutate it safely.
func cloneReferences(in []Reference) []Reference {
	if len(in) == 0 {
		return nil
	}
	out := make([]Reference, len(in))
	copy(out, in)
	return out
}

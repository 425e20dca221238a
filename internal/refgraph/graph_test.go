package refgraph

import (
	"errors"
	"testing"

	"github.com/evanschultz/ucm/internal/domain"
)

func graphWith(ids ...string) *Graph {
	g := New()
	for _, id := range ids {
		g.AddNode(id, domain.TargetUseCase)
	}
	return g
}

func addValidated(t *testing.T, g *Graph, source, target string, kind domain.RelationKind) error {
	t.Helper()
	if err := g.ValidateAdd(source, target, kind); err != nil {
		return err
	}
	g.AddEdge(Edge{Source: source, Target: target, Kind: kind})
	return nil
}

func TestValidateAddRejectsTwoCycle(t *testing.T) {
	g := graphWith("A", "B")
	if err := addValidated(t, g, "A", "B", domain.RelationDependency); err != nil {
		t.Fatalf("A->B error = %v", err)
	}
	err := addValidated(t, g, "B", "A", domain.RelationDependency)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("B->A error = %v, want ErrCycleDetected", err)
	}
	var refErr *ReferenceError
	if !errors.As(err, &refErr) || refErr.Source != "B" || refErr.Target != "A" {
		t.Fatalf("unexpected error detail %#v", err)
	}
}

func TestValidateAddRejectsThreeCycle(t *testing.T) {
	g := graphWith("A", "B", "C")
	if err := addValidated(t, g, "A", "B", domain.RelationDependency); err != nil {
		t.Fatalf("A->B error = %v", err)
	}
	if err := addValidated(t, g, "C", "A", domain.RelationDependency); err != nil {
		t.Fatalf("C->A error = %v", err)
	}
	if err := addValidated(t, g, "B", "C", domain.RelationDependency); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("B->C error = %v, want ErrCycleDetected", err)
	}
}

func TestValidateAddPerKindPolicy(t *testing.T) {
	g := graphWith("A", "B")
	if err := addValidated(t, g, "A", "B", domain.RelationInclusion); err != nil {
		t.Fatalf("A includes B error = %v", err)
	}
	// Inclusion and alternative edges are not transitive, so loops through them are allowed.
	if err := addValidated(t, g, "B", "A", domain.RelationAlternative); err != nil {
		t.Fatalf("B alternative A error = %v", err)
	}
	// A non-sensitive edge never contributes to reachability for sensitive checks.
	if err := addValidated(t, g, "B", "A", domain.RelationExtension); err != nil {
		t.Fatalf("B extends A error = %v", err)
	}
	if err := addValidated(t, g, "A", "B", domain.RelationDependency); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("A depends on B error = %v, want ErrCycleDetected", err)
	}
}

func TestValidateAddDanglingAndSelf(t *testing.T) {
	g := graphWith("A")
	if err := g.ValidateAdd("A", "A", domain.RelationInclusion); !errors.Is(err, ErrSelfReference) {
		t.Fatalf("self error = %v", err)
	}
	if err := g.ValidateAdd("A", "missing", domain.RelationInclusion); !errors.Is(err, ErrDanglingTarget) {
		t.Fatalf("dangling error = %v", err)
	}
}

func TestValidateDelete(t *testing.T) {
	uc := func(id string, refs ...domain.Reference) domain.UseCase {
		return domain.UseCase{ID: id, References: refs}
	}
	dep := func(target string) domain.Reference {
		return domain.Reference{TargetType: domain.TargetUseCase, TargetID: target, Kind: domain.RelationDependency}
	}
	scenario := domain.Scenario{
		ID:        "UC-A-001-S01",
		UseCaseID: "UC-A-001",
		References: []domain.Reference{
			{TargetType: domain.TargetUseCase, TargetID: "UC-A-001", Kind: domain.RelationIncludes},
		},
	}
	g := Build([]domain.UseCase{uc("UC-A-001"), uc("UC-B-001", dep("UC-A-001")), uc("UC-C-001")}, []domain.Scenario{scenario})

	blocking, err := g.ValidateDelete("UC-A-001", "UC-A-001-S01")
	if !errors.Is(err, ErrReferencedEntityInUse) {
		t.Fatalf("ValidateDelete() error = %v, want ErrReferencedEntityInUse", err)
	}
	if len(blocking) != 1 || blocking[0].Source != "UC-B-001" {
		t.Fatalf("blocking = %#v, want only the UC-B-001 edge", blocking)
	}

	if blocking, err := g.ValidateDelete("UC-C-001"); err != nil || blocking != nil {
		t.Fatalf("ValidateDelete(unreferenced) = %v, %v", blocking, err)
	}

	g.RemoveEdge(blocking[0])
	if _, err := g.ValidateDelete("UC-A-001", "UC-A-001-S01"); err != nil {
		t.Fatalf("ValidateDelete() after edge removal error = %v", err)
	}
}

func TestCheckReportsProblems(t *testing.T) {
	g := graphWith("A", "B")
	g.AddEdge(Edge{Source: "A", Target: "B", Kind: domain.RelationDependency})
	g.AddEdge(Edge{Source: "B", Target: "A", Kind: domain.RelationDependency})
	g.AddEdge(Edge{Source: "A", Target: "gone", Kind: domain.RelationInclusion})
	g.AddEdge(Edge{Source: "B", Target: "B", Kind: domain.RelationInclusion})

	problems := g.Check()
	if len(problems) != 4 {
		t.Fatalf("Check() = %#v, want 4 problems", problems)
	}
	want := []error{ErrCycleDetected, ErrDanglingTarget, ErrCycleDetected, ErrSelfReference}
	for i, p := range problems {
		if !errors.Is(p.Err, want[i]) {
			t.Fatalf("problem %d = %v on %#v, want %v", i, p.Err, p.Edge, want[i])
		}
	}

	g.RemoveNode("B")
	if problems := g.Check(); len(problems) != 1 || !errors.Is(problems[0].Err, ErrDanglingTarget) {
		t.Fatalf("Check() after RemoveNode = %#v", problems)
	}
}

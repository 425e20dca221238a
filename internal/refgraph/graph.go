// Package refgraph validates the reference edges between use cases and scenarios.
//
// A Graph is a point-in-time snapshot built from the stored entities. Callers validate a change against the
// snapshot before applying it, inside the same storage transaction, so the answer cannot go stale.
package refgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/evanschultz/ucm/internal/domain"
)

var (
	// ErrDanglingTarget means the referenced entity does not exist.
	ErrDanglingTarget = errors.New("reference target does not exist")
	// ErrSelfReference means an entity tried to reference itself.
	ErrSelfReference = errors.New("entity cannot reference itself")
	// ErrCycleDetected means the edge would close a cycle over cycle-sensitive kinds.
	ErrCycleDetected = errors.New("reference would create a cycle")
	// ErrReferencedEntityInUse means a delete was blocked by incoming references.
	ErrReferencedEntityInUse = errors.New("entity is referenced by other entities")
)

// ReferenceError describes a rejected edge.
type ReferenceError struct {
	Source string
	Target string
	Kind   domain.RelationKind
	Err    error
}

// Error implements error.
func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference %s -%s-> %s: %v", e.Source, e.Kind, e.Target, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// InUseError lists the edges that block a delete.
type InUseError struct {
	Targets []string
	Edges   []Edge
}

// Error implements error.
func (e *InUseError) Error() string {
	if len(e.Edges) == 0 {
		return ErrReferencedEntityInUse.Error()
	}
	first := e.Edges[0]
	return fmt.Sprintf("%s is referenced by %d edge(s), first %s -%s-> %s",
		strings.Join(e.Targets, ", "), len(e.Edges), first.Source, first.Kind, first.Target)
}

// Unwrap returns ErrReferencedEntityInUse.
func (e *InUseError) Unwrap() error {
	return ErrReferencedEntityInUse
}

// Edge is one directed reference.
type Edge struct {
	Source string
	Target string
	Kind   domain.RelationKind
}

// Graph holds nodes and edges of one project snapshot.
type Graph struct {
	nodes map[string]domain.TargetType
	out   map[string][]Edge
	in    map[string][]Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: map[string]domain.TargetType{},
		out:   map[string][]Edge{},
		in:    map[string][]Edge{},
	}
}

// Build snapshots every use case and scenario with their outgoing references.
func Build(useCases []domain.UseCase, scenarios []domain.Scenario) *Graph {
	g := New()
	for _, uc := range useCases {
		g.AddNode(uc.ID, domain.TargetUseCase)
	}
	for _, sc := range scenarios {
		g.AddNode(sc.ID, domain.TargetScenario)
	}
	for _, uc := range useCases {
		for _, ref := range uc.References {
			g.AddEdge(Edge{Source: uc.ID, Target: ref.TargetID, Kind: ref.Kind})
		}
	}
	for _, sc := range scenarios {
		for _, ref := range sc.References {
			g.AddEdge(Edge{Source: sc.ID, Target: ref.TargetID, Kind: ref.Kind})
		}
	}
	return g
}

// AddNode registers an entity.
func (g *Graph) AddNode(id string, kind domain.TargetType) {
	g.nodes[id] = kind
}

// RemoveNode drops an entity and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	delete(g.nodes, id)
	for _, e := range g.out[id] {
		g.in[e.Target] = dropEdge(g.in[e.Target], e)
	}
	for _, e := range g.in[id] {
		g.out[e.Source] = dropEdge(g.out[e.Source], e)
	}
	delete(g.out, id)
	delete(g.in, id)
}

// AddEdge records an edge without validating it.
func (g *Graph) AddEdge(e Edge) {
	g.out[e.Source] = append(g.out[e.Source], e)
	g.in[e.Target] = append(g.in[e.Target], e)
}

// RemoveEdge drops an edge if present.
func (g *Graph) RemoveEdge(e Edge) {
	g.out[e.Source] = dropEdge(g.out[e.Source], e)
	g.in[e.Target] = dropEdge(g.in[e.Target], e)
}

// Has reports whether id is a known entity.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeType returns the entity type of id.
func (g *Graph) NodeType(id string) (domain.TargetType, bool) {
	kind, ok := g.nodes[id]
	return kind, ok
}

// ValidateAdd checks a new edge source -kind-> target.
func (g *Graph) ValidateAdd(source, target string, kind domain.RelationKind) error {
	reject := func(err error) error {
		return &ReferenceError{Source: source, Target: target, Kind: kind, Err: err}
	}
	if source == target {
		return reject(ErrSelfReference)
	}
	if !g.Has(target) {
		return reject(ErrDanglingTarget)
	}
	if domain.IsCycleSensitive(kind) && g.Reachable(target, source) {
		return reject(ErrCycleDetected)
	}
	return nil
}

// Reachable reports whether to can be reached from from by following cycle-sensitive edges.
func (g *Graph) Reachable(from, to string) bool {
	visited := map[string]struct{}{}
	stack := []string{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == to {
			return true
		}
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}
		for _, e := range g.out[current] {
			if !domain.IsCycleSensitive(e.Kind) {
				continue
			}
			if _, seen := visited[e.Target]; !seen {
				stack = append(stack, e.Target)
			}
		}
	}
	return false
}

// Incoming returns the edges pointing at any of targets, sorted by source, target and kind.
func (g *Graph) Incoming(targets ...string) []Edge {
	var out []Edge
	for _, target := range targets {
		out = append(out, g.in[target]...)
	}
	sortEdges(out)
	return out
}

// ValidateDelete checks whether targets can be deleted together. Edges that originate inside the deleted set do
// not block. The blocking edges are returned alongside the error so a caller can cascade.
func (g *Graph) ValidateDelete(targets ...string) ([]Edge, error) {
	deleted := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		deleted[t] = struct{}{}
	}
	var blocking []Edge
	for _, e := range g.Incoming(targets...) {
		if _, inside := deleted[e.Source]; inside {
			continue
		}
		blocking = append(blocking, e)
	}
	if len(blocking) == 0 {
		return nil, nil
	}
	return blocking, &InUseError{Targets: targets, Edges: blocking}
}

// Problem is one integrity violation found by Check.
type Problem struct {
	Edge Edge
	Err  error
}

// Check scans every edge for dangling targets, self references and cycles.
func (g *Graph) Check() []Problem {
	var edges []Edge
	for _, out := range g.out {
		edges = append(edges, out...)
	}
	sortEdges(edges)

	var problems []Problem
	for _, e := range edges {
		switch {
		case e.Source == e.Target:
			problems = append(problems, Problem{Edge: e, Err: ErrSelfReference})
		case !g.Has(e.Target):
			problems = append(problems, Problem{Edge: e, Err: ErrDanglingTarget})
		case domain.IsCycleSensitive(e.Kind) && g.Reachable(e.Target, e.Source):
			problems = append(problems, Problem{Edge: e, Err: ErrCycleDetected})
		}
	}
	return problems
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		if edges[i].Target != edges[j].Target {
			return edges[i].Target < edges[j].Target
		}
		return edges[i].Kind < edges[j].Kind
	})
}

func dropEdge(edges []Edge, e Edge) []Edge {
	out := edges[:0:0]
	for _, existing := range edges {
		if existing != e {
			out = append(out, existing)
		}
	}
	return out
}

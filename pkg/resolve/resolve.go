// Package resolve builds the dependency graph for a package and computes a
// safe installation order. Resolution is a pure read over the catalog: it
// either returns a complete, cycle-free order or an error, never a partial
// result.
package resolve

import (
	stderrors "errors"
	"strings"

	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/model"
)

// Catalog is the subset of the package catalog used by the resolver.
type Catalog interface {
	Resolve(name string) (*model.Package, error)
}

// InstallOrder is a sequence of package names in which every package appears
// after all of its dependencies.
type InstallOrder []string

// Resolver computes installation orders against a catalog.
type Resolver struct {
	catalog Catalog
}

// New creates a Resolver over the given catalog.
func New(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// node is one vertex of the dependency graph. Traversal state lives in side
// tables, not on the node, so a built graph is effectively read-only.
type node struct {
	name string
	deps []string
}

// graph is an insertion-ordered dependency graph keyed by package name.
type graph struct {
	nodes map[string]*node
	order []string // insertion order of discovery, for deterministic output
}

// Resolve returns the installation order for root and everything it
// transitively depends on, dependencies first and root last.
func (r *Resolver) Resolve(root string) (InstallOrder, error) {
	g, err := r.buildGraph(root)
	if err != nil {
		return nil, err
	}
	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	return g.topoSort()
}

// buildGraph expands the graph breadth-first from root, loading each
// discovered package exactly once. An unresolvable name is a hard error;
// partial graphs are never returned.
func (r *Resolver) buildGraph(root string) (*graph, error) {
	g := &graph{nodes: make(map[string]*node)}

	type pending struct {
		name      string
		requester string
	}
	queue := []pending{{name: root}}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		if _, ok := g.nodes[next.name]; ok {
			continue
		}

		pkg, err := r.catalog.Resolve(next.name)
		if err != nil {
			if next.requester == "" {
				return nil, err
			}
			if stderrors.Is(err, errors.ErrPackageNotFound) {
				return nil, errors.Wrapf(errors.ErrUnknownDependency, "%s (required by %s)", next.name, next.requester)
			}
			return nil, errors.Wrapf(err, "resolving %s (required by %s)", next.name, next.requester)
		}

		// A dependency can name a capability; the node is keyed by the
		// name the dependent used so edges stay consistent.
		deps := pkg.AllDependencies()
		g.nodes[next.name] = &node{name: next.name, deps: deps}
		g.order = append(g.order, next.name)

		for _, dep := range deps {
			if _, ok := g.nodes[dep]; !ok {
				queue = append(queue, pending{name: dep, requester: next.name})
			}
		}
	}

	return g, nil
}

// detectCycles runs a depth-first search over every component, flagging
// nodes as visited on entry and keeping them on-stack while their subtree
// is explored. A back-edge to an on-stack node is a cycle.
func (g *graph) detectCycles() error {
	visited := make(map[string]bool, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		visited[name] = true
		onStack[name] = true
		stack = append(stack, name)

		for _, dep := range g.nodes[name].deps {
			if onStack[dep] {
				return errors.Wrapf(errors.ErrCircularDependency, "%s", cyclePath(stack, dep))
			}
			if !visited[dep] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		onStack[name] = false
		return nil
	}

	// Every component is checked; a graph can hold independent cycles.
	for _, name := range g.order {
		if !visited[name] {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// cyclePath renders the offending portion of the traversal stack, closing
// the loop on the repeated name: "a -> b -> a".
func cyclePath(stack []string, repeat string) string {
	start := 0
	for i, name := range stack {
		if name == repeat {
			start = i
			break
		}
	}
	return strings.Join(append(append([]string{}, stack[start:]...), repeat), " -> ")
}

// topoSort runs Kahn's algorithm. In-degree counts how many packages depend
// on a node, so the queue drains from the roots downward; the emitted
// sequence is reversed to put dependencies first. Ties are broken by
// discovery order, keeping output deterministic.
func (g *graph) topoSort() (InstallOrder, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for _, name := range g.order {
		for _, dep := range g.nodes[name].deps {
			inDegree[dep]++
		}
	}

	var queue []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	emitted := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		emitted = append(emitted, name)

		for _, dep := range g.nodes[name].deps {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	// Cycle detection already ran; emitting fewer nodes than the graph
	// holds means the two passes disagree.
	if len(emitted) != len(g.nodes) {
		return nil, errors.Wrapf(errors.ErrCircularDependency, "topological sort emitted %d of %d packages", len(emitted), len(g.nodes))
	}

	order := make(InstallOrder, 0, len(emitted))
	for i := len(emitted) - 1; i >= 0; i-- {
		order = append(order, emitted[i])
	}
	return order, nil
}

// Package migrate holds the migrator graph of an extension and resolves
// migration paths through it.
//
// Nodes are schema versions and edges are migrators registered by the
// extension author, one per ordered (from, to) pair. The graph may contain
// cycles and gaps: FindPath reports a missing path as NoPathError instead of
// guessing. Like the registry, a Graph is filled once and then sealed; a
// sealed Graph is read-only and safe for concurrent FindPath and Run calls.
package migrate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// Func transforms a canonical tree of the source version into a tree of the
// target version. It must either represent every input in the target schema
// or fail; it must not drop data silently.
type Func func(in value.Value) (value.Value, error)

// Typed adapts a migrator written over Go structs. The input tree is bound to
// A by json tag names and the result is converted back through B's json
// encoding.
func Typed[A, B any](fn func(A) (B, error)) Func {
	return func(in value.Value) (value.Value, error) {
		var a A
		if err := value.Bind(in, &a); err != nil {
			return value.Value{}, err
		}
		b, err := fn(a)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromStruct(b)
	}
}

// Edge is one registered migrator.
type Edge struct {
	From types.Version
	To   types.Version
	fn   Func
}

func (e Edge) String() string { return fmt.Sprintf("%s->%s", e.From, e.To) }

// Graph is the set of registered migrators of one extension.
type Graph struct {
	edges  []Edge
	out    map[types.Version][]int
	index  map[[2]types.Version]int
	sealed bool
}

// NewGraph returns an empty, unsealed graph.
func NewGraph() *Graph {
	return &Graph{
		out:   make(map[types.Version][]int),
		index: make(map[[2]types.Version]int),
	}
}

// Register adds the migrator for from -> to. Each ordered pair may be
// registered once; the reverse direction is a separate migrator.
func (g *Graph) Register(from, to types.Version, fn Func) error {
	if g.sealed {
		return fmt.Errorf("register %s->%s: %w", from, to, types.ErrGraphSealed)
	}
	if from == to {
		return fmt.Errorf("register %s->%s: %w", from, to, types.ErrSelfEdge)
	}
	if fn == nil {
		return fmt.Errorf("register %s->%s: nil migrator", from, to)
	}
	key := [2]types.Version{from, to}
	if _, ok := g.index[key]; ok {
		return &types.DuplicateEdgeError{From: from, To: to}
	}
	g.index[key] = len(g.edges)
	g.out[from] = append(g.out[from], len(g.edges))
	g.edges = append(g.edges, Edge{From: from, To: to, fn: fn})
	return nil
}

// Seal makes the graph read-only.
func (g *Graph) Seal() { g.sealed = true }

// Edges returns every migrator in registration order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// Has reports whether a migrator for from -> to is registered.
func (g *Graph) Has(from, to types.Version) bool {
	_, ok := g.index[[2]types.Version{from, to}]
	return ok
}

// Path is an ordered chain of migrators from one version to another. The
// empty path leads from a version to itself.
type Path struct {
	from  types.Version
	to    types.Version
	edges []Edge
}

// From returns the start version.
func (p Path) From() types.Version { return p.from }

// To returns the end version.
func (p Path) To() types.Version { return p.to }

// Len returns the number of migrators in the path.
func (p Path) Len() int { return len(p.edges) }

// Edges returns the migrators in application order.
func (p Path) Edges() []Edge { return slices.Clone(p.edges) }

// Versions returns every version the path visits, start and end included.
func (p Path) Versions() []types.Version {
	vs := []types.Version{p.from}
	for _, e := range p.edges {
		vs = append(vs, e.To)
	}
	return vs
}

// String renders the path as "v1 -> v2 -> v3".
func (p Path) String() string {
	names := make([]string, 0, len(p.edges)+1)
	for _, v := range p.Versions() {
		names = append(names, string(v))
	}
	return strings.Join(names, " -> ")
}

// FindPath returns the path from -> to with the fewest migrators. Among
// paths of equal length the one whose migrators were registered earliest
// wins, comparing from the first migrator onward. from == to yields the
// empty path.
func (g *Graph) FindPath(from, to types.Version) (Path, error) {
	if from == to {
		return Path{from: from, to: to}, nil
	}
	// parent[v] is the edge index that first reached v.
	parent := map[types.Version]int{}
	visited := map[types.Version]bool{from: true}
	queue := []types.Version{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ei := range g.out[cur] {
			next := g.edges[ei].To
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = ei
			if next == to {
				return g.trace(from, to, parent), nil
			}
			queue = append(queue, next)
		}
	}
	return Path{}, &types.NoPathError{From: from, To: to}
}

func (g *Graph) trace(from, to types.Version, parent map[types.Version]int) Path {
	var rev []Edge
	for v := to; v != from; {
		e := g.edges[parent[v]]
		rev = append(rev, e)
		v = e.From
	}
	slices.Reverse(rev)
	return Path{from: from, to: to, edges: rev}
}

// reachable returns every version reachable from start, start excluded.
func (g *Graph) reachable(start types.Version) map[types.Version]bool {
	seen := map[types.Version]bool{start: true}
	queue := []types.Version{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ei := range g.out[cur] {
			if next := g.edges[ei].To; !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	delete(seen, start)
	return seen
}

// Gap is an ordered pair of versions with no path between them.
type Gap struct {
	From types.Version `json:"from"`
	To   types.Version `json:"to"`
}

func (g Gap) String() string { return fmt.Sprintf("%s->%s", g.From, g.To) }

// Gaps lists every ordered pair of distinct versions that no chain of
// migrators connects, in the order of versions.
func (g *Graph) Gaps(versions []types.Version) []Gap {
	var gaps []Gap
	for _, from := range versions {
		reach := g.reachable(from)
		for _, to := range versions {
			if from != to && !reach[to] {
				gaps = append(gaps, Gap{From: from, To: to})
			}
		}
	}
	return gaps
}

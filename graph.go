package archon

import "sync"

// RelationshipKind distinguishes a directed edge from an undirected
// one in the relationship graph.
type RelationshipKind int

const (
	// Directed edges have a distinct From and To; OutNeighbors(From)
	// and InNeighbors(To) each see the edge once.
	Directed RelationshipKind = iota
	// Undirected edges are symmetric: both endpoints see the edge via
	// both OutNeighbors and InNeighbors.
	Undirected
)

// Edge is one relationship between two entities in an arbitrary
// labeled multigraph: any entity may have any number of edges of any
// kind to any other entity.
type Edge struct {
	From, To EntityID
	Kind     RelationshipKind
	Attrs    map[string]any
}

func otherEndpoint(e *Edge, u EntityID) EntityID {
	if e.From == u {
		return e.To
	}
	return e.From
}

func filterEdges(edges []*Edge, remove func(*Edge) bool) []*Edge {
	kept := edges[:0]
	for _, e := range edges {
		if !remove(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// RelationEdge is one entity's view of an incident edge, as returned
// by EdgesOf: the other endpoint plus the edge's kind and attributes.
type RelationEdge struct {
	Other EntityID
	Kind  RelationshipKind
	Attrs map[string]any
}

// RelationshipGraph is a labeled multigraph over EntityIDs. It is
// owned by a World, which calls Detach whenever an entity is
// destroyed so no edge ever survives its endpoint.
type RelationshipGraph struct {
	mu     sync.RWMutex
	out    map[EntityID][]*Edge
	in     map[EntityID][]*Edge
	isLive func(EntityID) bool
}

func newRelationshipGraph() *RelationshipGraph {
	return &RelationshipGraph{
		out: make(map[EntityID][]*Edge),
		in:  make(map[EntityID][]*Edge),
	}
}

// bindLiveness wires the directory lookup a World-owned graph checks
// edge endpoints against. A graph with no liveness check bound (as in
// a standalone RelationshipGraph built outside a World) accepts any
// id, unconditionally.
func (g *RelationshipGraph) bindLiveness(isLive func(EntityID) bool) {
	g.isLive = isLive
}

func (g *RelationshipGraph) checkLive(u, v EntityID) error {
	if g.isLive == nil {
		return nil
	}
	if !g.isLive(u) {
		return StaleEntityError{ID: u}
	}
	if !g.isLive(v) {
		return StaleEntityError{ID: v}
	}
	return nil
}

// AddDirected creates an edge from u to v. Self-loops are rejected,
// and so is either endpoint naming an id that isn't currently alive.
func (g *RelationshipGraph) AddDirected(u, v EntityID, attrs map[string]any) (*Edge, error) {
	if u == v {
		return nil, EntityRelationError{Reason: "self-loop edges are not allowed"}
	}
	if err := g.checkLive(u, v); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e := &Edge{From: u, To: v, Kind: Directed, Attrs: attrs}
	g.out[u] = append(g.out[u], e)
	g.in[v] = append(g.in[v], e)
	return e, nil
}

// AddUndirected creates a symmetric edge between u and v. Self-loops
// are rejected, and so is either endpoint naming an id that isn't
// currently alive.
func (g *RelationshipGraph) AddUndirected(u, v EntityID, attrs map[string]any) (*Edge, error) {
	if u == v {
		return nil, EntityRelationError{Reason: "self-loop edges are not allowed"}
	}
	if err := g.checkLive(u, v); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e := &Edge{From: u, To: v, Kind: Undirected, Attrs: attrs}
	g.out[u] = append(g.out[u], e)
	g.out[v] = append(g.out[v], e)
	g.in[u] = append(g.in[u], e)
	g.in[v] = append(g.in[v], e)
	return e, nil
}

// RemoveEdge removes every edge directly connecting u and v,
// regardless of direction or kind.
func (g *RelationshipGraph) RemoveEdge(u, v EntityID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	connects := func(e *Edge) bool {
		return (e.From == u && e.To == v) || (e.From == v && e.To == u)
	}
	g.out[u] = filterEdges(g.out[u], connects)
	g.out[v] = filterEdges(g.out[v], connects)
	g.in[u] = filterEdges(g.in[u], connects)
	g.in[v] = filterEdges(g.in[v], connects)
}

// OutNeighbors returns the distinct entities reachable from u: the
// other endpoint of every edge where u is the source (directed) or
// either endpoint (undirected).
func (g *RelationshipGraph) OutNeighbors(u EntityID) []EntityID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return dedupeEndpoints(g.out[u], u)
}

// InNeighbors returns the distinct entities that reach u: the other
// endpoint of every edge where u is the target (directed) or either
// endpoint (undirected).
func (g *RelationshipGraph) InNeighbors(u EntityID) []EntityID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return dedupeEndpoints(g.in[u], u)
}

// Neighbors returns the union of OutNeighbors and InNeighbors.
func (g *RelationshipGraph) Neighbors(u EntityID) []EntityID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[EntityID]bool)
	var out []EntityID
	for _, edges := range [2][]*Edge{g.out[u], g.in[u]} {
		for _, e := range edges {
			other := otherEndpoint(e, u)
			if !seen[other] {
				seen[other] = true
				out = append(out, other)
			}
		}
	}
	return out
}

func dedupeEndpoints(edges []*Edge, u EntityID) []EntityID {
	seen := make(map[EntityID]bool, len(edges))
	var out []EntityID
	for _, e := range edges {
		other := otherEndpoint(e, u)
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out
}

// EdgesOf returns u's incident edges, each reported once even if it
// appears in both u's outgoing and incoming index (true for every
// undirected edge).
func (g *RelationshipGraph) EdgesOf(u EntityID) []RelationEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[*Edge]bool)
	var result []RelationEdge
	collect := func(edges []*Edge) {
		for _, e := range edges {
			if seen[e] {
				continue
			}
			seen[e] = true
			result = append(result, RelationEdge{Other: otherEndpoint(e, u), Kind: e.Kind, Attrs: e.Attrs})
		}
	}
	collect(g.out[u])
	collect(g.in[u])
	return result
}

// AllEdges returns every edge in the graph exactly once, used by
// serialization to dump the graph without double-counting undirected
// edges that appear in both endpoints' adjacency lists.
func (g *RelationshipGraph) AllEdges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[*Edge]bool)
	var out []*Edge
	for _, edges := range g.out {
		for _, e := range edges {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// NodeIDs returns every entity id that currently has at least one
// incident edge.
func (g *RelationshipGraph) NodeIDs() []EntityID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[EntityID]bool)
	var out []EntityID
	for id, edges := range g.out {
		if len(edges) > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for id, edges := range g.in {
		if len(edges) > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Detach removes every edge touching id, called by World.DestroyEntity
// so a destroyed entity never lingers as a dangling edge endpoint.
func (g *RelationshipGraph) Detach(id EntityID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	incident := append(append([]*Edge{}, g.out[id]...), g.in[id]...)
	for _, e := range incident {
		other := otherEndpoint(e, id)
		isThis := func(x *Edge) bool { return x == e }
		g.out[other] = filterEdges(g.out[other], isThis)
		g.in[other] = filterEdges(g.in[other], isThis)
	}
	delete(g.out, id)
	delete(g.in, id)
}

package archon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninthtower/archon/table"
)

func TestRelationshipGraphDirectedEdges(t *testing.T) {
	g := newRelationshipGraph()
	u, v := EntityID(1), EntityID(2)

	_, err := g.AddDirected(u, v, map[string]any{"kind": "parent"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []EntityID{v}, g.OutNeighbors(u))
	assert.ElementsMatch(t, []EntityID{u}, g.InNeighbors(v))
	assert.Empty(t, g.InNeighbors(u))
	assert.Empty(t, g.OutNeighbors(v))
}

func TestRelationshipGraphUndirectedEdgesAreSymmetric(t *testing.T) {
	g := newRelationshipGraph()
	u, v := EntityID(1), EntityID(2)

	_, err := g.AddUndirected(u, v, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []EntityID{v}, g.OutNeighbors(u))
	assert.ElementsMatch(t, []EntityID{u}, g.OutNeighbors(v))
	assert.ElementsMatch(t, []EntityID{v}, g.InNeighbors(u))
	assert.ElementsMatch(t, []EntityID{u}, g.InNeighbors(v))
}

func TestRelationshipGraphRejectsSelfLoops(t *testing.T) {
	g := newRelationshipGraph()
	u := EntityID(1)

	_, err := g.AddDirected(u, u, nil)
	assert.Error(t, err)

	_, err = g.AddUndirected(u, u, nil)
	assert.Error(t, err)
}

func TestRelationshipGraphRemoveEdge(t *testing.T) {
	g := newRelationshipGraph()
	u, v, w := EntityID(1), EntityID(2), EntityID(3)

	_, err := g.AddDirected(u, v, nil)
	require.NoError(t, err)
	_, err = g.AddUndirected(u, w, nil)
	require.NoError(t, err)

	g.RemoveEdge(u, v)
	assert.Empty(t, g.OutNeighbors(u))
	assert.ElementsMatch(t, []EntityID{w}, g.Neighbors(u))
}

func TestRelationshipGraphEdgesOfDeduplicatesUndirected(t *testing.T) {
	g := newRelationshipGraph()
	u, v := EntityID(1), EntityID(2)

	_, err := g.AddUndirected(u, v, map[string]any{"weight": 4})
	require.NoError(t, err)

	edges := g.EdgesOf(u)
	require.Len(t, edges, 1)
	assert.Equal(t, v, edges[0].Other)
	assert.Equal(t, Undirected, edges[0].Kind)
}

// TestRelationshipGraphDetach checks that after destroy, no edge
// touches the destroyed entity.
func TestRelationshipGraphDetach(t *testing.T) {
	g := newRelationshipGraph()
	u, v, w := EntityID(1), EntityID(2), EntityID(3)

	_, err := g.AddDirected(u, v, nil)
	require.NoError(t, err)
	_, err = g.AddUndirected(v, w, nil)
	require.NoError(t, err)

	g.Detach(v)

	assert.Empty(t, g.OutNeighbors(v))
	assert.Empty(t, g.InNeighbors(v))
	assert.Empty(t, g.OutNeighbors(u))
	assert.Empty(t, g.Neighbors(w))
}

func TestRelationshipGraphAllEdgesAndNodeIDs(t *testing.T) {
	g := newRelationshipGraph()
	u, v, w := EntityID(1), EntityID(2), EntityID(3)

	_, err := g.AddDirected(u, v, nil)
	require.NoError(t, err)
	_, err = g.AddUndirected(v, w, nil)
	require.NoError(t, err)

	assert.Len(t, g.AllEdges(), 2)
	assert.ElementsMatch(t, []EntityID{u, v, w}, g.NodeIDs())
}

func TestWorldDestroyEntityDetachesGraph(t *testing.T) {
	world := NewWorld(table.NewSchema())
	entities, err := world.NewEntities(2)
	require.NoError(t, err)
	a, b := entities[0].ID(), entities[1].ID()

	_, err = world.Graph().AddDirected(a, b, nil)
	require.NoError(t, err)

	require.NoError(t, world.DestroyEntity(a))

	assert.Empty(t, world.Graph().InNeighbors(b))
}

package entitygraph_test

import (
	"testing"

	"github.com/simforge/simstate/assert"
	"github.com/simforge/simstate/entitygraph"
	"github.com/simforge/simstate/types"
)

func TestAddAndRemoveVertices(t *testing.T) {
	g := entitygraph.New()

	assert.True(t, g.AddVertex(1))
	assert.True(t, g.AddVertex(2))
	assert.False(t, g.AddVertex(1), "duplicate vertex must be rejected")
	assert.False(t, g.AddVertex(types.NullEntity), "null entity is not a vertex")

	assert.Equal(t, 2, g.VertexCount())
	assert.Equal(t, types.EntityID(1), g.VertexFromID(1))
	assert.Equal(t, types.NullEntity, g.VertexFromID(42))

	g.RemoveVertex(1)
	assert.Equal(t, 1, g.VertexCount())
	assert.Equal(t, types.NullEntity, g.VertexFromID(1))
}

func TestEdges(t *testing.T) {
	g := entitygraph.New()
	g.AddVertex(1)
	g.AddVertex(2)
	g.AddVertex(3)

	assert.True(t, g.AddEdge(1, 2))
	assert.False(t, g.AddEdge(1, 2), "duplicate edge must be rejected")
	assert.False(t, g.AddEdge(1, 1), "self loop must be rejected")
	assert.False(t, g.AddEdge(1, 99), "edge to missing vertex must be rejected")

	assert.True(t, g.EdgeFromVertices(1, 2))
	assert.False(t, g.EdgeFromVertices(2, 1), "edges are directed")

	assert.ElementsMatch(t, []types.EntityID{2}, g.AdjacentsFrom(1))
	assert.ElementsMatch(t, []types.EntityID{1}, g.AdjacentsTo(2))

	g.RemoveEdge(1, 2)
	assert.False(t, g.EdgeFromVertices(1, 2))
}

func TestRemoveVertexDropsIncidentEdges(t *testing.T) {
	g := entitygraph.New()
	g.AddVertex(1)
	g.AddVertex(2)
	g.AddVertex(3)
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)

	g.RemoveVertex(2)

	assert.Empty(t, g.AdjacentsFrom(1))
	assert.Empty(t, g.AdjacentsTo(3))
}

func TestBreadthFirstSort(t *testing.T) {
	g := entitygraph.New()
	for e := types.EntityID(1); e <= 6; e++ {
		g.AddVertex(e)
	}
	// 1 -> {2, 3}, 2 -> {4, 5}, 3 -> {6}
	g.AddEdge(1, 2)
	g.AddEdge(1, 3)
	g.AddEdge(2, 4)
	g.AddEdge(2, 5)
	g.AddEdge(3, 6)

	order := g.BreadthFirstSort(1)
	assert.Len(t, order, 6)
	assert.Equal(t, types.EntityID(1), order[0], "root comes first")

	depth := make(map[types.EntityID]int)
	for i, e := range order {
		depth[e] = i
	}
	assert.True(t, depth[2] < depth[4] && depth[2] < depth[5])
	assert.True(t, depth[3] < depth[6])
	assert.True(t, depth[4] > depth[3], "all depth-1 vertices precede depth-2 vertices")

	assert.Empty(t, g.BreadthFirstSort(99), "missing root yields nothing")
}

func TestBreadthFirstSortSubtree(t *testing.T) {
	g := entitygraph.New()
	for e := types.EntityID(1); e <= 4; e++ {
		g.AddVertex(e)
	}
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(1, 4)

	assert.ElementsMatch(t, []types.EntityID{2, 3}, g.BreadthFirstSort(2))
}

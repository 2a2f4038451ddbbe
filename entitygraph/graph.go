// Package entitygraph maintains the parent/child relationships between
// entities as a directed graph. Vertices are entity ids and every edge points
// from a parent to one of its children.
package entitygraph

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/simforge/simstate/types"
)

// Graph is a directed graph of entity ids backed by gonum. The zero value is
// not usable; call New.
type Graph struct {
	g *simple.DirectedGraph
}

func New() *Graph {
	return &Graph{g: simple.NewDirectedGraph()}
}

// AddVertex inserts an entity vertex. Returns false if the entity is the null
// entity or is already a vertex.
func (eg *Graph) AddVertex(e types.EntityID) bool {
	if e == types.NullEntity || eg.hasNode(e) {
		return false
	}
	eg.g.AddNode(simple.Node(int64(e)))
	return true
}

// RemoveVertex removes an entity vertex along with all of its incident edges.
func (eg *Graph) RemoveVertex(e types.EntityID) {
	eg.g.RemoveNode(int64(e))
}

// VertexFromID returns the entity if it is a vertex, or NullEntity.
func (eg *Graph) VertexFromID(e types.EntityID) types.EntityID {
	if !eg.hasNode(e) {
		return types.NullEntity
	}
	return e
}

// Vertices returns every entity in the graph.
func (eg *Graph) Vertices() []types.EntityID {
	nodes := eg.g.Nodes()
	out := make([]types.EntityID, 0, nodes.Len())
	for nodes.Next() {
		out = append(out, types.EntityID(nodes.Node().ID()))
	}
	return out
}

// VertexCount returns the number of entities in the graph.
func (eg *Graph) VertexCount() int {
	return eg.g.Nodes().Len()
}

// AddEdge inserts a directed parent→child edge. Returns false when either
// endpoint is missing, the edge would be a self loop, or the edge already
// exists.
func (eg *Graph) AddEdge(parent, child types.EntityID) bool {
	if parent == child || !eg.hasNode(parent) || !eg.hasNode(child) {
		return false
	}
	if eg.g.HasEdgeFromTo(int64(parent), int64(child)) {
		return false
	}
	eg.g.SetEdge(eg.g.NewEdge(simple.Node(int64(parent)), simple.Node(int64(child))))
	return true
}

// RemoveEdge removes the parent→child edge if present.
func (eg *Graph) RemoveEdge(parent, child types.EntityID) {
	eg.g.RemoveEdge(int64(parent), int64(child))
}

// EdgeFromVertices reports whether a parent→child edge exists.
func (eg *Graph) EdgeFromVertices(parent, child types.EntityID) bool {
	return eg.g.HasEdgeFromTo(int64(parent), int64(child))
}

// AdjacentsFrom returns the children of the given entity.
func (eg *Graph) AdjacentsFrom(e types.EntityID) []types.EntityID {
	return collect(eg.g.From(int64(e)))
}

// AdjacentsTo returns the parents of the given entity.
func (eg *Graph) AdjacentsTo(e types.EntityID) []types.EntityID {
	return collect(eg.g.To(int64(e)))
}

// BreadthFirstSort returns the root followed by its descendants in
// breadth-first order. The result is empty if the root is not a vertex.
func (eg *Graph) BreadthFirstSort(root types.EntityID) []types.EntityID {
	node := eg.g.Node(int64(root))
	if node == nil {
		return nil
	}
	var order []types.EntityID
	bfs := traverse.BreadthFirst{}
	bfs.Walk(eg.g, node, func(n graph.Node, _ int) bool {
		order = append(order, types.EntityID(n.ID()))
		return false
	})
	return order
}

func (eg *Graph) hasNode(e types.EntityID) bool {
	return eg.g.Node(int64(e)) != nil
}

func collect(nodes graph.Nodes) []types.EntityID {
	if nodes.Len() == 0 {
		return nil
	}
	out := make([]types.EntityID, 0, nodes.Len())
	for nodes.Next() {
		out = append(out, types.EntityID(nodes.Node().ID()))
	}
	return out
}

package graph

import (
	"fmt"
	"sort"

	"docgraph/domain/core/valueobjects"
)

// NodeType discriminates graph nodes
type NodeType string

const (
	NodeTypeDocument NodeType = "document"
	NodeTypeMemory   NodeType = "memory"
)

// EdgeType discriminates graph edges
type EdgeType string

const (
	EdgeTypeDocMemory EdgeType = "doc-memory"
	EdgeTypeDocDoc    EdgeType = "doc-doc"
	EdgeTypeVersion   EdgeType = "version"
)

// Node is a positioned document or memory. DataRef is the id of the
// underlying document or memory record.
type Node struct {
	ID          string                `json:"id"`
	Type        NodeType              `json:"type"`
	SpaceID     string                `json:"spaceId"`
	DocumentID  string                `json:"documentId"`
	MemoryIndex int                   `json:"-"`
	Label       string                `json:"label"`
	Position    valueobjects.Position `json:"position"`
	Size        float64               `json:"size"`
	DataRef     string                `json:"dataRef"`
	IsDragging  bool                  `json:"isDragging,omitempty"`
	IsHovered   bool                  `json:"isHovered,omitempty"`
}

// Edge connects two nodes of the same graph by id
type Edge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	Similarity   float64  `json:"similarity"`
	Type         EdgeType `json:"edgeType"`
	RelationType string   `json:"relationType,omitempty"`
}

// EdgeID derives the identity of an edge from its type and endpoints.
// Doc-doc edges are undirected, so their endpoints are ordered first.
func EdgeID(t EdgeType, source, target string) string {
	if t == EdgeTypeDocDoc && target < source {
		source, target = target, source
	}
	return fmt.Sprintf("%s:%s:%s", t, source, target)
}

// Graph is an arena of nodes and edges. Nodes and edges refer to each other
// by id only; index and adjacency hold positions into the arena slices.
type Graph struct {
	Nodes []Node
	Edges []Edge

	index     map[string]int
	edgeIndex map[string]int
	adjacency map[string][]int
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		index:     make(map[string]int),
		edgeIndex: make(map[string]int),
		adjacency: make(map[string][]int),
	}
}

// AddNode appends a node. A node whose id is already present is rejected.
func (g *Graph) AddNode(n Node) bool {
	if n.ID == "" {
		return false
	}
	if _, exists := g.index[n.ID]; exists {
		return false
	}
	g.index[n.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	return true
}

// AddEdge appends an edge when both endpoints exist and the id is new
func (g *Graph) AddEdge(e Edge) bool {
	if e.Source == e.Target {
		return false
	}
	if !g.HasNode(e.Source) || !g.HasNode(e.Target) {
		return false
	}
	if e.ID == "" {
		e.ID = EdgeID(e.Type, e.Source, e.Target)
	}
	if _, exists := g.edgeIndex[e.ID]; exists {
		return false
	}
	pos := len(g.Edges)
	g.edgeIndex[e.ID] = pos
	g.Edges = append(g.Edges, e)
	g.adjacency[e.Source] = append(g.adjacency[e.Source], pos)
	g.adjacency[e.Target] = append(g.adjacency[e.Target], pos)
	return true
}

// HasNode reports whether a node id is in the graph
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Node returns a pointer into the arena for in-place updates
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.Nodes[i], true
}

// Edge looks an edge up by id
func (g *Graph) Edge(id string) (Edge, bool) {
	i, ok := g.edgeIndex[id]
	if !ok {
		return Edge{}, false
	}
	return g.Edges[i], true
}

// EdgesOf returns every edge touching the node, in insertion order
func (g *Graph) EdgesOf(id string) []Edge {
	positions := g.adjacency[id]
	out := make([]Edge, 0, len(positions))
	for _, p := range positions {
		out = append(out, g.Edges[p])
	}
	return out
}

// NodesOfType returns the nodes of one kind in arena order
func (g *Graph) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a deep copy that can be mutated independently
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Nodes:     append([]Node(nil), g.Nodes...),
		Edges:     append([]Edge(nil), g.Edges...),
		index:     make(map[string]int, len(g.index)),
		edgeIndex: make(map[string]int, len(g.edgeIndex)),
		adjacency: make(map[string][]int, len(g.adjacency)),
	}
	for k, v := range g.index {
		c.index[k] = v
	}
	for k, v := range g.edgeIndex {
		c.edgeIndex[k] = v
	}
	for k, v := range g.adjacency {
		c.adjacency[k] = append([]int(nil), v...)
	}
	return c
}

// Stats summarizes the graph for API consumers
type Stats struct {
	DocumentCount int              `json:"documentCount"`
	MemoryCount   int              `json:"memoryCount"`
	EdgeCount     int              `json:"edgeCount"`
	EdgesByType   map[EdgeType]int `json:"edgesByType"`
	SpaceCount    int              `json:"spaceCount"`
}

// Stats counts nodes and edges by kind
func (g *Graph) Stats() Stats {
	s := Stats{EdgeCount: len(g.Edges), EdgesByType: make(map[EdgeType]int)}
	spaces := make(map[string]struct{})
	for _, n := range g.Nodes {
		switch n.Type {
		case NodeTypeDocument:
			s.DocumentCount++
			spaces[n.SpaceID] = struct{}{}
		case NodeTypeMemory:
			s.MemoryCount++
		}
	}
	for _, e := range g.Edges {
		s.EdgesByType[e.Type]++
	}
	s.SpaceCount = len(spaces)
	return s
}

// SpaceIDs returns the distinct spaces of document nodes, sorted
func (g *Graph) SpaceIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range g.Nodes {
		if n.Type != NodeTypeDocument {
			continue
		}
		if _, ok := seen[n.SpaceID]; ok {
			continue
		}
		seen[n.SpaceID] = struct{}{}
		out = append(out, n.SpaceID)
	}
	sort.Strings(out)
	return out
}

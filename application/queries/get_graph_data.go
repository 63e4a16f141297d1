package queries

import (
	"docgraph/domain/core/valueobjects"
	"docgraph/domain/graph"
	pkgerrors "docgraph/pkg/errors"
	"docgraph/pkg/utils"
)

// GetGraphDataQuery renders the graph view of an org's documents
type GetGraphDataQuery struct {
	OrgID       string `validate:"required"`
	Space       string
	DocumentIDs []string `validate:"dive,required"`
	Pinned      map[string]valueobjects.Position
	DraggingID  string
	// UseConnections draws doc-doc edges from stored connections instead
	// of computing them from embeddings.
	UseConnections bool
}

// Validate validates the query
func (q GetGraphDataQuery) Validate() error {
	if err := utils.ValidateStruct(q); err != nil {
		return err
	}
	for id, p := range q.Pinned {
		if !p.IsValid() {
			return pkgerrors.NewInvalidArgumentErrorf("pinned position for %s must be finite", id)
		}
	}
	return nil
}

// NodeView is a positioned node in API form
type NodeView struct {
	ID         string         `json:"id"`
	Type       graph.NodeType `json:"type"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Size       float64        `json:"size"`
	DataRef    string         `json:"dataRef"`
	IsDragging bool           `json:"isDragging"`
	SpaceID    string         `json:"spaceId"`
	Label      string         `json:"label,omitempty"`
}

// GraphView is the result of GetGraphDataQuery
type GraphView struct {
	Nodes []NodeView   `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
	Stats graph.Stats  `json:"stats"`
}

// NewGraphView copies a rendered graph into its API form
func NewGraphView(g *graph.Graph) *GraphView {
	view := &GraphView{
		Nodes: make([]NodeView, 0, len(g.Nodes)),
		Edges: make([]graph.Edge, len(g.Edges)),
		Stats: g.Stats(),
	}
	for _, n := range g.Nodes {
		view.Nodes = append(view.Nodes, NodeView{
			ID:         n.ID,
			Type:       n.Type,
			X:          n.Position.X,
			Y:          n.Position.Y,
			Size:       n.Size,
			DataRef:    n.DataRef,
			IsDragging: n.IsDragging,
			SpaceID:    n.SpaceID,
			Label:      n.Label,
		})
	}
	copy(view.Edges, g.Edges)
	return view
}

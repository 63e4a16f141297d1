package handlers

import (
	"context"
	"fmt"

	"docgraph/application/ports"
	"docgraph/application/queries"
	"docgraph/application/queries/bus"
	"docgraph/application/services"
	"docgraph/domain/config"
	"docgraph/domain/graph"
	pkgerrors "docgraph/pkg/errors"

	"go.uber.org/zap"
)

// DocumentQueryHandler serves similarity, connection and graph reads
type DocumentQueryHandler struct {
	documents   ports.DocumentRepository
	similarity  *services.SimilarityService
	connections *services.ConnectionService
	graphs      *services.GraphService
	edgeFetches *services.EdgeFetchRegistry
	config      *config.DomainConfig
	logger      *zap.Logger
}

// NewDocumentQueryHandler creates a new handler
func NewDocumentQueryHandler(
	documents ports.DocumentRepository,
	similarity *services.SimilarityService,
	connections *services.ConnectionService,
	graphs *services.GraphService,
	edgeFetches *services.EdgeFetchRegistry,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *DocumentQueryHandler {
	return &DocumentQueryHandler{
		documents:   documents,
		similarity:  similarity,
		connections: connections,
		graphs:      graphs,
		edgeFetches: edgeFetches,
		config:      cfg,
		logger:      logger,
	}
}

// Register binds the handler to each query it serves
func (h *DocumentQueryHandler) Register(b *bus.QueryBus) error {
	for _, q := range []bus.Query{
		queries.FindSimilarDocumentsQuery{},
		queries.ListConnectionsQuery{},
		queries.GetGraphDataQuery{},
		queries.GetConnectionEdgesQuery{},
	} {
		if err := b.Register(q, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle implements bus.QueryHandler
func (h *DocumentQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.FindSimilarDocumentsQuery:
		return h.similarity.FindSimilar(ctx, q.DocumentID, q.OrgID, q.Threshold, q.Limit)
	case queries.ListConnectionsQuery:
		return h.connections.List(ctx, q.DocumentID, q.OrgID, q.Type, q.Limit)
	case queries.GetGraphDataQuery:
		return h.handleGetGraphData(ctx, q)
	case queries.GetConnectionEdgesQuery:
		return h.handleGetConnectionEdges(ctx, q)
	default:
		return nil, pkgerrors.NewInternalError(fmt.Sprintf("unexpected query type %T", query))
	}
}

func (h *DocumentQueryHandler) handleGetGraphData(ctx context.Context, q queries.GetGraphDataQuery) (*queries.GraphView, error) {
	docs, err := h.documents.ListWithMemories(ctx, q.OrgID, ports.GraphDocumentFilter{
		Space:       q.Space,
		DocumentIDs: q.DocumentIDs,
		Limit:       h.config.MaxDocumentsPerGraph,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load documents")
	}

	var edges []graph.ExternalEdge
	if q.UseConnections {
		ids := make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.Document.ID)
		}
		edges, err = h.connections.EdgesAmong(ctx, q.OrgID, ids)
		if err != nil {
			return nil, err
		}
	}

	g, err := h.graphs.Render(ctx, services.RenderInput{
		Documents:  docs,
		Edges:      edges,
		Space:      q.Space,
		Pinned:     q.Pinned,
		DraggingID: q.DraggingID,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Graph rendered",
		zap.String("orgID", q.OrgID),
		zap.Int("documents", len(docs)),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
	)
	return queries.NewGraphView(g), nil
}

func (h *DocumentQueryHandler) handleGetConnectionEdges(ctx context.Context, q queries.GetConnectionEdgesQuery) ([]graph.ExternalEdge, error) {
	return h.edgeFetches.Fetch(ctx, q.OrgID+"/"+q.ViewerKey, q.DocumentIDs, func(ctx context.Context, ids []string) ([]graph.ExternalEdge, error) {
		return h.connections.EdgesAmong(ctx, q.OrgID, ids)
	})
}

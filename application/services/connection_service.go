package services

import (
	"context"
	"sort"
	"time"

	"docgraph/application/ports"
	"docgraph/domain/config"
	"docgraph/domain/core/entities"
	"docgraph/domain/core/valueobjects"
	"docgraph/domain/graph"
	pkgerrors "docgraph/pkg/errors"
	"docgraph/pkg/observability"

	"go.uber.org/zap"
)

// CreateManualInput carries a user's request to link two documents
type CreateManualInput struct {
	SourceDocumentID string
	TargetDocumentID string
	OrgID            string
	UserID           string
	Reason           string
	Metadata         map[string]interface{}
}

// ConnectionView is a connection enriched with the document on its other end
type ConnectionView struct {
	ID               string                    `json:"id"`
	SourceDocumentID string                    `json:"sourceDocumentId"`
	TargetDocumentID string                    `json:"targetDocumentId"`
	OrgID            string                    `json:"orgId"`
	UserID           *string                   `json:"userId"`
	ConnectionType   entities.ConnectionType   `json:"connectionType"`
	SimilarityScore  *float64                  `json:"similarityScore"`
	Reason           *string                   `json:"reason"`
	Metadata         map[string]interface{}    `json:"metadata"`
	CreatedAt        time.Time                 `json:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
	TargetDocument   *entities.DocumentSummary `json:"targetDocument"`
}

// NewConnectionView flattens a connection into its API form
func NewConnectionView(c *entities.DocumentConnection) ConnectionView {
	v := ConnectionView{
		ID:               c.ID(),
		SourceDocumentID: c.SourceDocumentID(),
		TargetDocumentID: c.TargetDocumentID(),
		OrgID:            c.OrgID(),
		ConnectionType:   c.Type(),
		SimilarityScore:  c.SimilarityScore(),
		Metadata:         c.Metadata(),
		CreatedAt:        c.CreatedAt(),
		UpdatedAt:        c.UpdatedAt(),
	}
	if id := c.UserID(); id != "" {
		v.UserID = &id
	}
	if r := c.Reason(); r != "" {
		v.Reason = &r
	}
	return v
}

// ConnectionService manages automatic and manual document connections
type ConnectionService struct {
	connections ports.ConnectionRepository
	documents   ports.DocumentRepository
	publisher   ports.EventPublisher
	metrics     ports.Metrics
	config      *config.DomainConfig
	tracer      *observability.Tracer
	logger      *zap.Logger
}

// NewConnectionService creates a new connection service
func NewConnectionService(
	connections ports.ConnectionRepository,
	documents ports.DocumentRepository,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	cfg *config.DomainConfig,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		documents:   documents,
		publisher:   publisher,
		metrics:     metrics,
		config:      cfg,
		tracer:      tracer,
		logger:      logger,
	}
}

// CreateManual links two documents on behalf of a user
func (s *ConnectionService) CreateManual(ctx context.Context, in CreateManualInput) (*entities.DocumentConnection, error) {
	if in.OrgID == "" || in.UserID == "" {
		return nil, pkgerrors.NewInvalidArgumentError("orgId and userId are required")
	}
	pair, err := valueobjects.NewDocumentPair(in.SourceDocumentID, in.TargetDocumentID)
	if err != nil {
		return nil, err
	}

	var conn *entities.DocumentConnection
	err = s.tracer.TraceFunction(ctx, "connections.createManual", func(ctx context.Context) error {
		docs, err := s.documents.GetByIDs(ctx, in.OrgID, []string{in.SourceDocumentID, in.TargetDocumentID})
		if err != nil {
			return pkgerrors.Wrap(err, "failed to load documents")
		}
		if _, ok := docs[in.SourceDocumentID]; !ok {
			return pkgerrors.NewNotFoundError("source document")
		}
		if _, ok := docs[in.TargetDocumentID]; !ok {
			return pkgerrors.NewNotFoundError("target document")
		}

		// Fast path only; the store's pair guard is what enforces uniqueness.
		existing, err := s.connections.FindByPair(ctx, in.OrgID, pair)
		if err != nil {
			return pkgerrors.Wrap(err, "failed to check existing connections")
		}
		if len(existing) > 0 {
			return pkgerrors.NewAlreadyExistsError("connection between these documents")
		}

		conn, err = entities.NewManualConnection(in.OrgID, in.SourceDocumentID, in.TargetDocumentID, in.UserID, in.Reason, in.Metadata)
		if err != nil {
			return err
		}
		return s.connections.CreateManual(ctx, conn)
	})
	if err != nil {
		if pkgerrors.IsAlreadyExists(err) {
			s.metrics.IncrementCounter(ctx, "ConnectionWrites", map[string]string{"Type": "manual", "Result": "duplicate"})
		}
		return nil, err
	}

	s.publishEvents(ctx, conn)
	s.metrics.IncrementCounter(ctx, "ConnectionWrites", map[string]string{"Type": "manual", "Result": "created"})
	s.logger.Info("Manual connection created",
		zap.String("connectionID", conn.ID()),
		zap.String("orgID", in.OrgID),
		zap.String("userID", in.UserID),
	)
	return conn, nil
}

// Delete removes a connection. Manual connections may only be removed by
// their creator.
func (s *ConnectionService) Delete(ctx context.Context, connectionID, orgID, userID string) error {
	if connectionID == "" || orgID == "" {
		return pkgerrors.NewInvalidArgumentError("connectionId and orgId are required")
	}

	var conn *entities.DocumentConnection
	err := s.tracer.TraceFunction(ctx, "connections.delete", func(ctx context.Context) error {
		var err error
		conn, err = s.connections.GetByID(ctx, orgID, connectionID)
		if err != nil {
			return err
		}
		if err := conn.AuthorizeDelete(userID); err != nil {
			s.logger.Warn("Connection delete rejected",
				zap.String("connectionID", connectionID),
				zap.String("userID", userID),
			)
			return err
		}
		return s.connections.Delete(ctx, conn)
	})
	if err != nil {
		return err
	}

	conn.MarkDeleted(userID)
	s.publishEvents(ctx, conn)
	s.logger.Info("Connection deleted",
		zap.String("connectionID", connectionID),
		zap.String("connectionType", string(conn.Type())),
	)
	return nil
}

// List returns the connections touching a document, newest first, each
// enriched with the document on the other end. Enrichment is one batch
// lookup for the whole page.
func (s *ConnectionService) List(ctx context.Context, documentID, orgID string, connType *entities.ConnectionType, limit int) ([]ConnectionView, error) {
	if documentID == "" || orgID == "" {
		return nil, pkgerrors.NewInvalidArgumentError("documentId and orgId are required")
	}
	if limit == 0 {
		limit = s.config.DefaultConnectionListLimit
	}
	if limit < 1 || limit > s.config.MaxConnectionListLimit {
		return nil, pkgerrors.NewInvalidArgumentErrorf("limit must be between 1 and %d, got %d", s.config.MaxConnectionListLimit, limit)
	}

	var views []ConnectionView
	err := s.tracer.TraceFunction(ctx, "connections.list", func(ctx context.Context) error {
		conns, err := s.connections.ListByDocument(ctx, orgID, documentID, ports.ConnectionFilter{Type: connType, Limit: limit})
		if err != nil {
			return pkgerrors.Wrap(err, "failed to list connections")
		}

		sort.SliceStable(conns, func(i, j int) bool {
			return conns[i].CreatedAt().After(conns[j].CreatedAt())
		})
		if len(conns) > limit {
			conns = conns[:limit]
		}

		views = make([]ConnectionView, 0, len(conns))
		if len(conns) == 0 {
			return nil
		}

		otherIDs := make([]string, 0, len(conns))
		seen := make(map[string]struct{}, len(conns))
		for _, c := range conns {
			other := c.OtherDocumentID(documentID)
			if _, ok := seen[other]; ok {
				continue
			}
			seen[other] = struct{}{}
			otherIDs = append(otherIDs, other)
		}

		docs, err := s.documents.GetByIDs(ctx, orgID, otherIDs)
		if err != nil {
			return pkgerrors.Wrap(err, "failed to load connected documents")
		}

		for _, c := range conns {
			v := NewConnectionView(c)
			if d, ok := docs[c.OtherDocumentID(documentID)]; ok {
				summary := d.ToSummary()
				v.TargetDocument = &summary
			}
			views = append(views, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// RecordAutomatic stores a similarity-derived connection. Recording the same
// pair again refreshes the stored record instead of adding a second one.
func (s *ConnectionService) RecordAutomatic(ctx context.Context, sourceID, targetID, orgID string, score float64, reason string) (*entities.DocumentConnection, error) {
	conn, err := entities.NewAutomaticConnection(orgID, sourceID, targetID, score, reason)
	if err != nil {
		return nil, err
	}

	stored, err := s.connections.UpsertAutomatic(ctx, conn)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to record automatic connection")
	}

	s.publishEvents(ctx, conn)
	s.metrics.IncrementCounter(ctx, "ConnectionWrites", map[string]string{"Type": "automatic", "Result": "recorded"})
	s.logger.Debug("Automatic connection recorded",
		zap.String("connectionID", stored.ID()),
		zap.Float64("score", score),
	)
	return stored, nil
}

// EdgesAmong returns stored connections between the given documents as a
// document-document edge batch for the graph builder.
func (s *ConnectionService) EdgesAmong(ctx context.Context, orgID string, documentIDs []string) ([]graph.ExternalEdge, error) {
	if orgID == "" {
		return nil, pkgerrors.NewInvalidArgumentError("orgId is required")
	}
	edges := []graph.ExternalEdge{}
	if len(documentIDs) < 2 {
		return edges, nil
	}

	conns, err := s.connections.ListAmong(ctx, orgID, documentIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load connections")
	}

	sort.SliceStable(conns, func(i, j int) bool {
		return conns[i].ID() < conns[j].ID()
	})
	for _, c := range conns {
		edges = append(edges, graph.ExternalEdge{
			SourceID:   c.SourceDocumentID(),
			TargetID:   c.TargetDocumentID(),
			Similarity: c.Score(),
		})
	}
	return edges, nil
}

func (s *ConnectionService) publishEvents(ctx context.Context, conn *entities.DocumentConnection) {
	pending := conn.GetUncommittedEvents()
	if len(pending) == 0 {
		return
	}
	if err := s.publisher.PublishBatch(ctx, pending); err != nil {
		s.logger.Warn("Failed to publish connection events",
			zap.String("connectionID", conn.ID()),
			zap.Error(err),
		)
		return
	}
	conn.MarkEventsAsCommitted()
}

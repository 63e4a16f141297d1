package ports

import (
	"context"
	"time"

	"docgraph/domain/core/entities"
	"docgraph/domain/core/valueobjects"
	"docgraph/domain/events"
)

// DocumentRepository reads documents owned by the ingestion pipeline.
// Every lookup is scoped to an org; documents of other orgs are invisible.
type DocumentRepository interface {
	// GetByID returns the document or a NotFound error
	GetByID(ctx context.Context, orgID, documentID string) (*entities.Document, error)

	// GetByIDs resolves many documents in one round trip. Ids that do not
	// resolve in the org are absent from the result.
	GetByIDs(ctx context.Context, orgID string, documentIDs []string) (map[string]*entities.Document, error)

	// ListWithMemories loads documents and their memories for graph views
	ListWithMemories(ctx context.Context, orgID string, filter GraphDocumentFilter) ([]entities.DocumentWithMemories, error)
}

// GraphDocumentFilter narrows the documents loaded for a graph view
type GraphDocumentFilter struct {
	Space       string
	DocumentIDs []string
	Limit       int
}

// SimilarityMatch is a candidate returned by the vector index
type SimilarityMatch struct {
	Document entities.Document
	Score    float64
}

// VectorIndex ranks documents by embedding similarity
type VectorIndex interface {
	// FindSimilar returns documents of the org whose similarity to the
	// embedding is at least threshold, excluding excludeID.
	FindSimilar(ctx context.Context, orgID, excludeID string, embedding []float32, threshold float64, limit int) ([]SimilarityMatch, error)
}

// ConnectionFilter narrows connection listings
type ConnectionFilter struct {
	Type  *entities.ConnectionType
	Limit int
}

// ConnectionRepository persists document connections
type ConnectionRepository interface {
	// CreateManual inserts a manual connection. The store rejects a second
	// manual connection for the same unordered pair with AlreadyExists.
	CreateManual(ctx context.Context, conn *entities.DocumentConnection) error

	// UpsertAutomatic inserts or refreshes the automatic connection for the
	// pair and returns the stored record.
	UpsertAutomatic(ctx context.Context, conn *entities.DocumentConnection) (*entities.DocumentConnection, error)

	// GetByID returns the connection or a NotFound error
	GetByID(ctx context.Context, orgID, connectionID string) (*entities.DocumentConnection, error)

	// FindByPair returns every connection between the two documents
	FindByPair(ctx context.Context, orgID string, pair valueobjects.DocumentPair) ([]*entities.DocumentConnection, error)

	// Delete removes the connection and any uniqueness guard it holds
	Delete(ctx context.Context, conn *entities.DocumentConnection) error

	// ListByDocument returns connections where the document is source or
	// target, newest first.
	ListByDocument(ctx context.Context, orgID, documentID string, filter ConnectionFilter) ([]*entities.DocumentConnection, error)

	// ListAmong returns connections whose both ends are in documentIDs
	ListAmong(ctx context.Context, orgID string, documentIDs []string) ([]*entities.DocumentConnection, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// Metrics records operational measurements
type Metrics interface {
	RecordLatency(ctx context.Context, operation string, d time.Duration)
	IncrementCounter(ctx context.Context, name string, dims map[string]string)
}

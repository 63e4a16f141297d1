package mocks

import (
	"context"
	"time"

	"docgraph/application/ports"
	"docgraph/domain/core/entities"
	"docgraph/domain/core/valueobjects"
	"docgraph/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockDocumentRepository mocks ports.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, orgID, documentID string) (*entities.Document, error) {
	args := m.Called(ctx, orgID, documentID)
	if doc := args.Get(0); doc != nil {
		return doc.(*entities.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) GetByIDs(ctx context.Context, orgID string, documentIDs []string) (map[string]*entities.Document, error) {
	args := m.Called(ctx, orgID, documentIDs)
	if docs := args.Get(0); docs != nil {
		return docs.(map[string]*entities.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) ListWithMemories(ctx context.Context, orgID string, filter ports.GraphDocumentFilter) ([]entities.DocumentWithMemories, error) {
	args := m.Called(ctx, orgID, filter)
	if docs := args.Get(0); docs != nil {
		return docs.([]entities.DocumentWithMemories), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockVectorIndex mocks ports.VectorIndex
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) FindSimilar(ctx context.Context, orgID, excludeID string, embedding []float32, threshold float64, limit int) ([]ports.SimilarityMatch, error) {
	args := m.Called(ctx, orgID, excludeID, embedding, threshold, limit)
	if matches := args.Get(0); matches != nil {
		return matches.([]ports.SimilarityMatch), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockConnectionRepository mocks ports.ConnectionRepository
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) CreateManual(ctx context.Context, conn *entities.DocumentConnection) error {
	return m.Called(ctx, conn).Error(0)
}

func (m *MockConnectionRepository) UpsertAutomatic(ctx context.Context, conn *entities.DocumentConnection) (*entities.DocumentConnection, error) {
	args := m.Called(ctx, conn)
	switch stored := args.Get(0).(type) {
	case func(context.Context, *entities.DocumentConnection) *entities.DocumentConnection:
		return stored(ctx, conn), args.Error(1)
	case *entities.DocumentConnection:
		return stored, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConnectionRepository) GetByID(ctx context.Context, orgID, connectionID string) (*entities.DocumentConnection, error) {
	args := m.Called(ctx, orgID, connectionID)
	if conn := args.Get(0); conn != nil {
		return conn.(*entities.DocumentConnection), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConnectionRepository) FindByPair(ctx context.Context, orgID string, pair valueobjects.DocumentPair) ([]*entities.DocumentConnection, error) {
	args := m.Called(ctx, orgID, pair)
	if conns := args.Get(0); conns != nil {
		return conns.([]*entities.DocumentConnection), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConnectionRepository) Delete(ctx context.Context, conn *entities.DocumentConnection) error {
	return m.Called(ctx, conn).Error(0)
}

func (m *MockConnectionRepository) ListByDocument(ctx context.Context, orgID, documentID string, filter ports.ConnectionFilter) ([]*entities.DocumentConnection, error) {
	args := m.Called(ctx, orgID, documentID, filter)
	if conns := args.Get(0); conns != nil {
		return conns.([]*entities.DocumentConnection), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConnectionRepository) ListAmong(ctx context.Context, orgID string, documentIDs []string) ([]*entities.DocumentConnection, error) {
	args := m.Called(ctx, orgID, documentIDs)
	if conns := args.Get(0); conns != nil {
		return conns.([]*entities.DocumentConnection), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEventPublisher mocks ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	return m.Called(ctx, evts).Error(0)
}

// NopMetrics satisfies ports.Metrics and discards everything
type NopMetrics struct{}

func (NopMetrics) RecordLatency(ctx context.Context, operation string, d time.Duration)      {}
func (NopMetrics) IncrementCounter(ctx context.Context, name string, dims map[string]string) {}

package integration

import (
	"context"
	"slices"
	"sort"
	"sync"

	"docgraph/application/ports"
	"docgraph/domain/core/entities"
	"docgraph/domain/core/valueobjects"
	"docgraph/domain/graph"
	pkgerrors "docgraph/pkg/errors"
)

// memoryDocuments serves documents from memory, scoped by org
type memoryDocuments struct {
	docs []entities.DocumentWithMemories
}

func (m *memoryDocuments) GetByID(ctx context.Context, orgID, documentID string) (*entities.Document, error) {
	for _, d := range m.docs {
		if d.Document.ID == documentID && d.Document.OrgID == orgID {
			doc := d.Document
			return &doc, nil
		}
	}
	return nil, pkgerrors.NewNotFoundError("document")
}

func (m *memoryDocuments) GetByIDs(ctx context.Context, orgID string, documentIDs []string) (map[string]*entities.Document, error) {
	out := make(map[string]*entities.Document)
	for _, id := range documentIDs {
		if doc, err := m.GetByID(ctx, orgID, id); err == nil {
			out[id] = doc
		}
	}
	return out, nil
}

func (m *memoryDocuments) ListWithMemories(ctx context.Context, orgID string, filter ports.GraphDocumentFilter) ([]entities.DocumentWithMemories, error) {
	var out []entities.DocumentWithMemories
	for _, d := range m.docs {
		if d.Document.OrgID != orgID {
			continue
		}
		if len(filter.DocumentIDs) > 0 && !slices.Contains(filter.DocumentIDs, d.Document.ID) {
			continue
		}
		out = append(out, d)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// memoryIndex ranks by brute-force cosine similarity
type memoryIndex struct {
	documents *memoryDocuments
}

func (m *memoryIndex) FindSimilar(ctx context.Context, orgID, excludeID string, embedding []float32, threshold float64, limit int) ([]ports.SimilarityMatch, error) {
	var out []ports.SimilarityMatch
	for _, d := range m.documents.docs {
		if d.Document.OrgID != orgID || d.Document.ID == excludeID || !d.Document.HasEmbedding() {
			continue
		}
		if score := graph.CosineSimilarity(embedding, d.Document.Embedding); score >= threshold {
			out = append(out, ports.SimilarityMatch{Document: d.Document, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memoryConnections keeps connections in memory with the same pair guard
// semantics as the DynamoDB store
type memoryConnections struct {
	mu     sync.Mutex
	byID   map[string]*entities.DocumentConnection
	guards map[string]string
}

func newMemoryConnections() *memoryConnections {
	return &memoryConnections{
		byID:   make(map[string]*entities.DocumentConnection),
		guards: make(map[string]string),
	}
}

func guardKey(orgID string, pair valueobjects.DocumentPair) string {
	return orgID + "#" + pair.Key()
}

func (m *memoryConnections) CreateManual(ctx context.Context, conn *entities.DocumentConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := guardKey(conn.OrgID(), conn.Pair())
	if _, taken := m.guards[key]; taken {
		return pkgerrors.NewAlreadyExistsError("connection between these documents")
	}
	m.guards[key] = conn.ID()
	m.byID[conn.ID()] = conn
	return nil
}

func (m *memoryConnections) UpsertAutomatic(ctx context.Context, conn *entities.DocumentConnection) (*entities.DocumentConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byID[conn.ID()]; ok {
		snap := existing.Snapshot()
		snap.SimilarityScore = conn.SimilarityScore()
		snap.Reason = conn.Reason()
		snap.UpdatedAt = conn.UpdatedAt()
		conn = entities.ReconstructConnection(snap)
	}
	m.byID[conn.ID()] = conn
	return conn, nil
}

func (m *memoryConnections) GetByID(ctx context.Context, orgID, connectionID string) (*entities.DocumentConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.byID[connectionID]
	if !ok || conn.OrgID() != orgID {
		return nil, pkgerrors.NewNotFoundError("connection")
	}
	return conn, nil
}

func (m *memoryConnections) FindByPair(ctx context.Context, orgID string, pair valueobjects.DocumentPair) ([]*entities.DocumentConnection, error) {
	return m.filter(orgID, func(c *entities.DocumentConnection) bool {
		return c.Pair() == pair
	}), nil
}

func (m *memoryConnections) Delete(ctx context.Context, conn *entities.DocumentConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[conn.ID()]; !ok {
		return pkgerrors.NewNotFoundError("connection")
	}
	delete(m.byID, conn.ID())
	if conn.IsManual() {
		delete(m.guards, guardKey(conn.OrgID(), conn.Pair()))
	}
	return nil
}

func (m *memoryConnections) ListByDocument(ctx context.Context, orgID, documentID string, filter ports.ConnectionFilter) ([]*entities.DocumentConnection, error) {
	out := m.filter(orgID, func(c *entities.DocumentConnection) bool {
		if filter.Type != nil && c.Type() != *filter.Type {
			return false
		}
		return c.Pair().Contains(documentID)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memoryConnections) ListAmong(ctx context.Context, orgID string, documentIDs []string) ([]*entities.DocumentConnection, error) {
	return m.filter(orgID, func(c *entities.DocumentConnection) bool {
		return slices.Contains(documentIDs, c.SourceDocumentID()) && slices.Contains(documentIDs, c.TargetDocumentID())
	}), nil
}

func (m *memoryConnections) filter(orgID string, keep func(*entities.DocumentConnection) bool) []*entities.DocumentConnection {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.DocumentConnection
	for _, c := range m.byID {
		if c.OrgID() == orgID && keep(c) {
			out = append(out, c)
		}
	}
	return out
}

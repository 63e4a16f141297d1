package fixtures

import (
	"fmt"
	"time"

	"docgraph/domain/core/entities"
)

// DocumentBuilder helps create test documents with default values
type DocumentBuilder struct {
	doc      entities.Document
	memories []entities.MemoryEntry
}

func NewDocumentBuilder(id string) *DocumentBuilder {
	return &DocumentBuilder{
		doc: entities.Document{
			ID:        id,
			OrgID:     "org-test",
			SpaceID:   "space-default",
			Title:     "Document " + id,
			Summary:   "Summary of " + id,
			Type:      "note",
			CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func (b *DocumentBuilder) WithOrg(orgID string) *DocumentBuilder {
	b.doc.OrgID = orgID
	return b
}

func (b *DocumentBuilder) WithSpace(spaceID string) *DocumentBuilder {
	b.doc.SpaceID = spaceID
	return b
}

func (b *DocumentBuilder) WithEmbedding(v ...float32) *DocumentBuilder {
	b.doc.Embedding = v
	return b
}

// WithMemories adds n active memories in the document's space
func (b *DocumentBuilder) WithMemories(n int) *DocumentBuilder {
	for i := 0; i < n; i++ {
		b.memories = append(b.memories, entities.MemoryEntry{
			ID:         fmt.Sprintf("%s-mem-%d", b.doc.ID, len(b.memories)),
			DocumentID: b.doc.ID,
			SpaceID:    b.doc.SpaceID,
			Content:    fmt.Sprintf("memory %d of %s", len(b.memories), b.doc.ID),
			CreatedAt:  b.doc.CreatedAt,
		})
	}
	return b
}

func (b *DocumentBuilder) Build() *entities.Document {
	doc := b.doc
	return &doc
}

func (b *DocumentBuilder) BuildWithMemories() entities.DocumentWithMemories {
	return entities.DocumentWithMemories{
		Document: b.doc,
		Memories: append([]entities.MemoryEntry(nil), b.memories...),
	}
}

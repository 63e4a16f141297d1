package entities

import "time"

// Document is an indexed document supplied by the ingestion pipeline. The
// graph engine never mutates documents.
type Document struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	SpaceID   string    `json:"spaceId"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Type      string    `json:"type,omitempty"`
	URL       string    `json:"url,omitempty"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// DocumentSummary is the slice of a document shown next to a connection
type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Type      string    `json:"type,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToSummary projects the document onto its summary fields
func (d Document) ToSummary() DocumentSummary {
	return DocumentSummary{
		ID:        d.ID,
		Title:     d.Title,
		Summary:   d.Summary,
		Type:      d.Type,
		URL:       d.URL,
		CreatedAt: d.CreatedAt,
	}
}

// HasEmbedding reports whether the document carries a usable vector
func (d Document) HasEmbedding() bool {
	return len(d.Embedding) > 0
}

// MemoryEntry is a unit of extracted knowledge that belongs to one document
type MemoryEntry struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"documentId"`
	SpaceID     string    `json:"spaceId"`
	Content     string    `json:"content"`
	IsForgotten bool      `json:"isForgotten"`
	CreatedAt   time.Time `json:"createdAt"`

	// ParentRelations maps a parent memory id to the relation kind
	// ("updates", "extends", ...). A memory may have several parents.
	ParentRelations map[string]string `json:"parentRelations,omitempty"`

	// ParentMemoryID is the single-parent field written by older ingestion
	// versions. It is only consulted when ParentRelations is empty.
	ParentMemoryID string `json:"parentMemoryId,omitempty"`
}

// IsActive reports whether the memory takes part in graph views
func (m MemoryEntry) IsActive() bool {
	return !m.IsForgotten
}

// DocumentWithMemories bundles a document with the memories extracted from it
type DocumentWithMemories struct {
	Document Document      `json:"document"`
	Memories []MemoryEntry `json:"memories"`
}

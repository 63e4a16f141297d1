package postgres

import (
	"context"

	"docgraph/application/ports"
	pkgerrors "docgraph/pkg/errors"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// VectorIndex ranks documents by cosine similarity with pgvector
type VectorIndex struct {
	db     DB
	logger *zap.Logger
}

// NewVectorIndex creates a new VectorIndex
func NewVectorIndex(db DB, logger *zap.Logger) *VectorIndex {
	return &VectorIndex{db: db, logger: logger}
}

var _ ports.VectorIndex = (*VectorIndex)(nil)

// similarQuery orders by cosine distance, newest first on ties. Similarity
// is 1 - distance.
const similarQuery = `
SELECT ` + documentColumns + `, 1 - (embedding <=> $3) AS similarity
FROM documents
WHERE org_id = $1 AND id <> $2 AND embedding IS NOT NULL
  AND 1 - (embedding <=> $3) >= $4
ORDER BY embedding <=> $3, created_at DESC, id
LIMIT $5`

// FindSimilar returns documents whose similarity to embedding is at least
// threshold
func (v *VectorIndex) FindSimilar(ctx context.Context, orgID, excludeID string, embedding []float32, threshold float64, limit int) ([]ports.SimilarityMatch, error) {
	if len(embedding) == 0 || limit < 1 {
		return []ports.SimilarityMatch{}, nil
	}

	rows, err := v.db.Query(ctx, similarQuery, orgID, excludeID, pgvector.NewVector(embedding), threshold, limit)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("vector search", err)
	}
	defer rows.Close()

	matches := []ports.SimilarityMatch{}
	for rows.Next() {
		var (
			score     float64
			embedding *pgvector.Vector
			m         ports.SimilarityMatch
		)
		d := &m.Document
		if err := rows.Scan(&d.ID, &d.OrgID, &d.SpaceID, &d.Title, &d.Summary, &d.Type, &d.URL, &embedding, &d.CreatedAt, &score); err != nil {
			return nil, pkgerrors.NewDatabaseError("scan similar document", err)
		}
		if embedding != nil {
			d.Embedding = embedding.Slice()
		}
		d.CreatedAt = d.CreatedAt.UTC()
		m.Score = score
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("vector search", err)
	}

	v.logger.Debug("Vector search completed",
		zap.String("orgID", orgID),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

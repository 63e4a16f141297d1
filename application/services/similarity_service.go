package services

import (
	"context"
	"sort"
	"time"

	"docgraph/application/ports"
	"docgraph/domain/config"
	"docgraph/domain/core/entities"
	pkgerrors "docgraph/pkg/errors"
	"docgraph/pkg/observability"
	"docgraph/pkg/utils"

	"go.uber.org/zap"
)

// SimilarDocument is one ranked similarity search result
type SimilarDocument struct {
	DocumentID      string  `json:"documentId"`
	Title           string  `json:"title"`
	Summary         string  `json:"summary"`
	SimilarityScore float64 `json:"similarityScore"`
	SpaceID         string  `json:"spaceId"`
	CreatedAt       string  `json:"createdAt"`

	createdAt time.Time
}

// SimilarityService answers "which documents look like this one" queries
// against the vector index.
type SimilarityService struct {
	documents ports.DocumentRepository
	index     ports.VectorIndex
	config    *config.DomainConfig
	tracer    *observability.Tracer
	logger    *zap.Logger
}

// NewSimilarityService creates a new similarity service
func NewSimilarityService(
	documents ports.DocumentRepository,
	index ports.VectorIndex,
	cfg *config.DomainConfig,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *SimilarityService {
	return &SimilarityService{
		documents: documents,
		index:     index,
		config:    cfg,
		tracer:    tracer,
		logger:    logger,
	}
}

// FindSimilar returns documents similar to documentID, best match first.
// A document that does not resolve in the org yields an empty result rather
// than an error, so callers cannot probe other orgs' ids.
func (s *SimilarityService) FindSimilar(ctx context.Context, documentID, orgID string, threshold float64, limit int) ([]SimilarDocument, error) {
	if threshold < 0 || threshold > 1 || threshold != threshold {
		return nil, pkgerrors.NewInvalidArgumentErrorf("threshold must be between 0 and 1, got %v", threshold)
	}
	if limit < 1 || limit > s.config.MaxSimilarityLimit {
		return nil, pkgerrors.NewInvalidArgumentErrorf("limit must be between 1 and %d, got %d", s.config.MaxSimilarityLimit, limit)
	}
	if documentID == "" || orgID == "" {
		return nil, pkgerrors.NewInvalidArgumentError("documentId and orgId are required")
	}

	var results []SimilarDocument
	err := s.tracer.TraceFunction(ctx, "similarity.findSimilar", func(ctx context.Context) error {
		s.tracer.AddAnnotation(ctx, "orgID", orgID)
		source, err := s.documents.GetByID(ctx, orgID, documentID)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				s.logger.Debug("Similarity source not visible in org",
					zap.String("documentID", documentID),
					zap.String("orgID", orgID),
				)
				results = []SimilarDocument{}
				return nil
			}
			return pkgerrors.Wrap(err, "failed to resolve source document")
		}
		if !source.HasEmbedding() {
			results = []SimilarDocument{}
			return nil
		}

		matches, err := s.index.FindSimilar(ctx, orgID, source.ID, source.Embedding, threshold, limit)
		if err != nil {
			return pkgerrors.Wrap(err, "vector search failed")
		}
		results = rankMatches(matches, source.ID, threshold, limit)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Similarity search completed",
		zap.String("documentID", documentID),
		zap.Float64("threshold", threshold),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// rankMatches orders by score descending, newest first on ties, and
// re-applies the threshold and limit regardless of what the index did.
func rankMatches(matches []ports.SimilarityMatch, sourceID string, threshold float64, limit int) []SimilarDocument {
	out := make([]SimilarDocument, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if m.Document.ID == sourceID || m.Score < threshold {
			continue
		}
		if _, dup := seen[m.Document.ID]; dup {
			continue
		}
		seen[m.Document.ID] = struct{}{}
		out = append(out, SimilarDocument{
			DocumentID:      m.Document.ID,
			Title:           m.Document.Title,
			Summary:         m.Document.Summary,
			SimilarityScore: entities.ClampScore(m.Score),
			SpaceID:         m.Document.SpaceID,
			CreatedAt:       utils.FormatRFC3339(m.Document.CreatedAt),
			createdAt:       m.Document.CreatedAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SimilarityScore != out[j].SimilarityScore {
			return out[i].SimilarityScore > out[j].SimilarityScore
		}
		return out[i].createdAt.After(out[j].createdAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

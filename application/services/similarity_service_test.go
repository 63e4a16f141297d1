package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"docgraph/application/ports"
	"docgraph/domain/config"
	"docgraph/domain/core/entities"
	pkgerrors "docgraph/pkg/errors"
	"docgraph/tests/fixtures"
	"docgraph/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSimilarityService(docs *mocks.MockDocumentRepository, index *mocks.MockVectorIndex) *SimilarityService {
	return NewSimilarityService(docs, index, config.DefaultDomainConfig(), nil, zap.NewNop())
}

func TestFindSimilar_ValidatesArguments(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		limit     int
	}{
		{"threshold below zero", -0.1, 10},
		{"threshold above one", 1.01, 10},
		{"limit zero", 0.7, 0},
		{"limit above max", 0.7, 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			docs := new(mocks.MockDocumentRepository)
			index := new(mocks.MockVectorIndex)
			svc := newSimilarityService(docs, index)

			// Act
			results, err := svc.FindSimilar(context.Background(), "doc-1", "org-1", tt.threshold, tt.limit)

			// Assert
			assert.Nil(t, results)
			assert.True(t, pkgerrors.IsInvalidArgument(err))
			docs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestFindSimilar_InaccessibleDocumentReturnsEmpty(t *testing.T) {
	// Arrange
	ctx := context.Background()
	docs := new(mocks.MockDocumentRepository)
	index := new(mocks.MockVectorIndex)
	docs.On("GetByID", mock.Anything, "org-1", "doc-elsewhere").Return(nil, pkgerrors.NewNotFoundError("document"))
	svc := newSimilarityService(docs, index)

	// Act
	results, err := svc.FindSimilar(ctx, "doc-elsewhere", "org-1", 0.7, 10)

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	index.AssertNotCalled(t, "FindSimilar", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFindSimilar_PropagatesStoreFailures(t *testing.T) {
	docs := new(mocks.MockDocumentRepository)
	index := new(mocks.MockVectorIndex)
	docs.On("GetByID", mock.Anything, "org-1", "doc-1").Return(nil, pkgerrors.NewDatabaseError("select", errors.New("conn reset")))
	svc := newSimilarityService(docs, index)

	_, err := svc.FindSimilar(context.Background(), "doc-1", "org-1", 0.7, 10)

	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeDatabase))
}

func TestFindSimilar_OrdersByScoreThenRecency(t *testing.T) {
	// Arrange
	ctx := context.Background()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)

	source := fixtures.NewDocumentBuilder("doc-1").WithOrg("org-1").WithEmbedding(1, 0).Build()
	docs := new(mocks.MockDocumentRepository)
	docs.On("GetByID", mock.Anything, "org-1", "doc-1").Return(source, nil)

	index := new(mocks.MockVectorIndex)
	index.On("FindSimilar", mock.Anything, "org-1", "doc-1", source.Embedding, 0.7, 3).Return([]ports.SimilarityMatch{
		{Document: entities.Document{ID: "old-tie", CreatedAt: older}, Score: 0.8},
		{Document: entities.Document{ID: "best", CreatedAt: older}, Score: 0.95},
		{Document: entities.Document{ID: "doc-1", CreatedAt: older}, Score: 1},
		{Document: entities.Document{ID: "below", CreatedAt: newer}, Score: 0.5},
		{Document: entities.Document{ID: "new-tie", CreatedAt: newer, SpaceID: "s1", Title: "New"}, Score: 0.8},
		{Document: entities.Document{ID: "overflow", CreatedAt: newer}, Score: 0.71},
	}, nil)
	svc := newSimilarityService(docs, index)

	// Act
	results, err := svc.FindSimilar(ctx, "doc-1", "org-1", 0.7, 3)

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "best", results[0].DocumentID)
	assert.Equal(t, "new-tie", results[1].DocumentID)
	assert.Equal(t, "old-tie", results[2].DocumentID)
	assert.Equal(t, "s1", results[1].SpaceID)
	assert.Equal(t, "New", results[1].Title)
	assert.Equal(t, newer.Format(time.RFC3339), results[1].CreatedAt)
	index.AssertExpectations(t)
}

func TestFindSimilar_DocumentWithoutEmbedding(t *testing.T) {
	source := fixtures.NewDocumentBuilder("doc-1").Build()
	docs := new(mocks.MockDocumentRepository)
	docs.On("GetByID", mock.Anything, "org-1", "doc-1").Return(source, nil)
	index := new(mocks.MockVectorIndex)

	results, err := newSimilarityService(docs, index).FindSimilar(context.Background(), "doc-1", "org-1", 0.7, 10)

	require.NoError(t, err)
	assert.Empty(t, results)
}

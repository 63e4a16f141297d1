package services

import (
	"context"
	"testing"
	"time"

	"docgraph/domain/config"
	"docgraph/domain/core/entities"
	"docgraph/domain/core/valueobjects"
	"docgraph/domain/graph"
	"docgraph/infrastructure/cache"
	"docgraph/tests/fixtures"
	"docgraph/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGraphService() (*GraphService, *cache.LRUCache) {
	c := cache.NewLRUCache(8, time.Minute)
	return NewGraphService(config.DefaultDomainConfig(), c, mocks.NopMetrics{}, nil, zap.NewNop()), c
}

func sampleDocuments() []entities.DocumentWithMemories {
	return []entities.DocumentWithMemories{
		fixtures.NewDocumentBuilder("d1").WithSpace("s1").WithEmbedding(1, 0).WithMemories(2).BuildWithMemories(),
		fixtures.NewDocumentBuilder("d2").WithSpace("s1").WithEmbedding(0.8, 0.6).WithMemories(1).BuildWithMemories(),
		fixtures.NewDocumentBuilder("d3").WithSpace("s2").WithEmbedding(0, 1).WithMemories(3).BuildWithMemories(),
	}
}

func TestRender_MemoizesUnchangedInputs(t *testing.T) {
	// Arrange
	svc, c := newGraphService()
	in := RenderInput{Documents: sampleDocuments()}

	// Act
	first, err := svc.Render(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.Render(context.Background(), RenderInput{Documents: sampleDocuments()})
	require.NoError(t, err)

	// Assert
	assert.Same(t, first, second, "equal inputs reuse the cached graph")
	assert.Equal(t, 1, c.Len())
}

func TestRender_RecomputesWhenInputsChange(t *testing.T) {
	svc, c := newGraphService()
	base := RenderInput{Documents: sampleDocuments()}
	first, err := svc.Render(context.Background(), base)
	require.NoError(t, err)

	variants := []RenderInput{
		{Documents: sampleDocuments(), Space: "s1"},
		{Documents: sampleDocuments(), Pinned: map[string]valueobjects.Position{"d1": {X: 10, Y: 10}}},
		{Documents: sampleDocuments(), Edges: []graph.ExternalEdge{}},
	}
	for _, v := range variants {
		g, err := svc.Render(context.Background(), v)
		require.NoError(t, err)
		assert.NotSame(t, first, g)
	}
	assert.Equal(t, 4, c.Len())
}

func TestRender_DraggingDoesNotInvalidateOrMutateCache(t *testing.T) {
	svc, c := newGraphService()
	in := RenderInput{Documents: sampleDocuments()}

	plain, err := svc.Render(context.Background(), in)
	require.NoError(t, err)

	in.DraggingID = "d2"
	dragged, err := svc.Render(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Len())
	n, ok := dragged.Node("d2")
	require.True(t, ok)
	assert.True(t, n.IsDragging)

	orig, _ := plain.Node("d2")
	assert.False(t, orig.IsDragging)
	assert.Equal(t, orig.Position, n.Position)
}

func TestRender_ProducesPositionedGraph(t *testing.T) {
	svc, _ := newGraphService()

	g, err := svc.Render(context.Background(), RenderInput{Documents: sampleDocuments()})
	require.NoError(t, err)

	stats := g.Stats()
	assert.Equal(t, 3, stats.DocumentCount)
	assert.Equal(t, 6, stats.MemoryCount)
	assert.Equal(t, 1, stats.EdgesByType[graph.EdgeTypeDocDoc])
	for _, n := range g.Nodes {
		assert.NotEqual(t, valueobjects.Position{}, n.Position, "node %s was not placed", n.ID)
	}
}

func TestFingerprint(t *testing.T) {
	a := RenderInput{Documents: sampleDocuments()}
	b := RenderInput{Documents: sampleDocuments(), DraggingID: "d1"}
	assert.Equal(t, Fingerprint(a), Fingerprint(b), "dragging never changes the layout")

	c := RenderInput{Documents: sampleDocuments()}
	c.Documents[0].Document.Embedding = []float32{0.9, 0.1}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))

	d := RenderInput{Documents: sampleDocuments()}
	d.Documents[0].Memories[0].ParentRelations = map[string]string{"x": "updates"}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(d))

	nilEdges := RenderInput{Documents: sampleDocuments()}
	emptyEdges := RenderInput{Documents: sampleDocuments(), Edges: []graph.ExternalEdge{}}
	assert.NotEqual(t, Fingerprint(nilEdges), Fingerprint(emptyEdges))
}

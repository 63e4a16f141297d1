package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"sort"
	"time"

	"docgraph/application/ports"
	"docgraph/domain/config"
	"docgraph/domain/core/entities"
	"docgraph/domain/core/valueobjects"
	"docgraph/domain/graph"
	"docgraph/domain/layout"
	"docgraph/pkg/observability"

	"go.uber.org/zap"
)

// RenderInput is the full input tuple of a graph view. Two inputs with equal
// content produce the same cache key.
type RenderInput struct {
	Documents  []entities.DocumentWithMemories
	Edges      []graph.ExternalEdge
	Space      string
	Pinned     map[string]valueobjects.Position
	DraggingID string
}

// GraphService builds and lays out graph views, memoizing the result per
// input tuple so unchanged inputs are never recomputed.
type GraphService struct {
	builder *graph.Builder
	engine  *layout.Engine
	cache   ports.Cache
	ttl     int
	metrics ports.Metrics
	tracer  *observability.Tracer
	logger  *zap.Logger
}

// NewGraphService creates a new graph service
func NewGraphService(
	cfg *config.DomainConfig,
	cache ports.Cache,
	metrics ports.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *GraphService {
	return &GraphService{
		builder: graph.NewBuilder(graph.OptionsFromConfig(cfg)),
		engine:  layout.NewEngine(cfg.Layout),
		cache:   cache,
		ttl:     int(cfg.GraphCacheTTL / time.Second),
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
	}
}

// Render returns the positioned graph for the input. The returned graph may
// be shared with other callers and must not be mutated.
func (s *GraphService) Render(ctx context.Context, in RenderInput) (*graph.Graph, error) {
	key := "graph:" + Fingerprint(in)

	if cached, ok := s.cache.Get(ctx, key); ok {
		if g, ok := cached.(*graph.Graph); ok {
			s.metrics.IncrementCounter(ctx, "GraphCache", map[string]string{"Result": "hit"})
			return withDragging(g, in.DraggingID), nil
		}
	}
	s.metrics.IncrementCounter(ctx, "GraphCache", map[string]string{"Result": "miss"})

	var positioned *graph.Graph
	start := time.Now()
	err := s.tracer.TraceFunction(ctx, "graph.render", func(ctx context.Context) error {
		s.tracer.AddAnnotation(ctx, "space", in.Space)
		built := s.builder.Build(graph.Input{Documents: in.Documents, Edges: in.Edges, Space: in.Space})
		positioned = s.engine.Apply(built, in.Pinned, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	s.metrics.RecordLatency(ctx, "graph.render", elapsed)

	if err := s.cache.Set(ctx, key, positioned, s.ttl); err != nil {
		s.logger.Warn("Failed to cache graph view", zap.Error(err))
	}

	stats := positioned.Stats()
	s.logger.Debug("Graph view computed",
		zap.Int("documents", stats.DocumentCount),
		zap.Int("memories", stats.MemoryCount),
		zap.Int("edges", stats.EdgeCount),
		zap.Duration("elapsed", elapsed),
	)
	return withDragging(positioned, in.DraggingID), nil
}

// withDragging flags the dragged node on a copy, leaving cached graphs untouched
func withDragging(g *graph.Graph, draggingID string) *graph.Graph {
	if draggingID == "" || !g.HasNode(draggingID) {
		return g
	}
	c := g.Clone()
	n, _ := c.Node(draggingID)
	n.IsDragging = true
	return c
}

// Fingerprint hashes every field of the input that affects the computed
// layout. The dragging id is excluded because it never moves nodes.
func Fingerprint(in RenderInput) string {
	h := sha256.New()

	writeString(h, in.Space)
	writeInt(h, len(in.Documents))
	for _, dm := range in.Documents {
		d := dm.Document
		writeString(h, d.ID)
		writeString(h, d.SpaceID)
		writeString(h, d.Title)
		writeInt(h, len(d.Embedding))
		for _, v := range d.Embedding {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			h.Write(buf[:])
		}

		writeInt(h, len(dm.Memories))
		for _, m := range dm.Memories {
			writeString(h, m.ID)
			writeString(h, m.SpaceID)
			writeString(h, m.Content)
			writeBool(h, m.IsForgotten)
			writeString(h, m.ParentMemoryID)
			writeStringMap(h, m.ParentRelations)
		}
	}

	writeBool(h, in.Edges != nil)
	writeInt(h, len(in.Edges))
	for _, e := range in.Edges {
		writeString(h, e.SourceID)
		writeString(h, e.TargetID)
		writeFloat(h, e.Similarity)
	}

	pinnedIDs := make([]string, 0, len(in.Pinned))
	for id := range in.Pinned {
		pinnedIDs = append(pinnedIDs, id)
	}
	sort.Strings(pinnedIDs)
	writeInt(h, len(pinnedIDs))
	for _, id := range pinnedIDs {
		writeString(h, id)
		writeFloat(h, in.Pinned[id].X)
		writeFloat(h, in.Pinned[id].Y)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeString(h hash.Hash, s string) {
	writeInt(h, len(s))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, n int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

func writeFloat(h hash.Hash, f float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
	h.Write(buf[:])
}

func writeBool(h hash.Hash, b bool) {
	if b {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
}

func writeStringMap(h hash.Hash, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeInt(h, len(keys))
	for _, k := range keys {
		writeString(h, k)
		writeString(h, m[k])
	}
}

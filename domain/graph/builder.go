package graph

import (
	"math"
	"sort"
	"strings"

	"docgraph/domain/config"
	"docgraph/domain/core/entities"
)

// AllSpaces disables space filtering
const AllSpaces = "all"

// RelationUpdates is the relation synthesized for the legacy parent field
const RelationUpdates = "updates"

// ExternalEdge is a precomputed document-document edge
type ExternalEdge struct {
	SourceID   string  `json:"sourceId"`
	TargetID   string  `json:"targetId"`
	Similarity float64 `json:"similarity"`
}

// Input is everything a build depends on. A nil Edges slice means doc-doc
// edges are computed from embeddings; a non-nil slice, even an empty one,
// is used as given.
type Input struct {
	Documents []entities.DocumentWithMemories
	Edges     []ExternalEdge
	Space     string
}

// Options tunes the builder
type Options struct {
	Threshold        float64
	MaxNeighbors     int
	DocumentNodeSize float64
	MemoryNodeSize   float64
}

// OptionsFromConfig reads builder options from the domain config
func OptionsFromConfig(cfg *config.DomainConfig) Options {
	return Options{
		Threshold:        cfg.DocumentEdgeThreshold,
		MaxNeighbors:     cfg.MaxNeighborsPerDocument,
		DocumentNodeSize: cfg.Layout.DocumentNodeSize,
		MemoryNodeSize:   cfg.Layout.MemoryNodeSize,
	}
}

// Builder assembles document/memory graphs. It is stateless and safe for
// concurrent use.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder
func NewBuilder(opts Options) *Builder {
	if opts.MaxNeighbors <= 0 {
		opts.MaxNeighbors = 3
	}
	return &Builder{opts: opts}
}

// Build turns documents and memories into a graph. Malformed pieces are
// skipped so a partial graph is still returned.
func (b *Builder) Build(in Input) *Graph {
	g := New()
	kept := b.filterDocuments(in.Documents, in.Space)

	for _, dm := range kept {
		g.AddNode(Node{
			ID:          dm.Document.ID,
			Type:        NodeTypeDocument,
			SpaceID:     dm.Document.SpaceID,
			DocumentID:  dm.Document.ID,
			MemoryIndex: -1,
			Label:       dm.Document.Title,
			Size:        b.opts.DocumentNodeSize + 4*math.Sqrt(float64(len(dm.Memories))),
			DataRef:     dm.Document.ID,
		})
	}

	for _, dm := range kept {
		for i, m := range dm.Memories {
			if !g.AddNode(Node{
				ID:          m.ID,
				Type:        NodeTypeMemory,
				SpaceID:     memorySpace(m, dm.Document),
				DocumentID:  dm.Document.ID,
				MemoryIndex: i,
				Label:       m.Content,
				Size:        b.opts.MemoryNodeSize,
				DataRef:     m.ID,
			}) {
				continue
			}
			g.AddEdge(Edge{
				ID:         EdgeID(EdgeTypeDocMemory, dm.Document.ID, m.ID),
				Source:     dm.Document.ID,
				Target:     m.ID,
				Similarity: 1,
				Type:       EdgeTypeDocMemory,
			})
		}
	}

	for _, dm := range kept {
		for _, m := range dm.Memories {
			b.addVersionEdges(g, m)
		}
	}

	if in.Edges != nil {
		b.addExternalEdges(g, in.Edges)
	} else {
		b.addSimilarityEdges(g, kept)
	}

	return g
}

// filterDocuments drops forgotten and out-of-space memories, then drops
// documents left without memories.
func (b *Builder) filterDocuments(docs []entities.DocumentWithMemories, space string) []entities.DocumentWithMemories {
	filterSpace := space != "" && space != AllSpaces
	seen := make(map[string]struct{}, len(docs))

	out := make([]entities.DocumentWithMemories, 0, len(docs))
	for _, dm := range docs {
		if dm.Document.ID == "" {
			continue
		}
		if _, dup := seen[dm.Document.ID]; dup {
			continue
		}

		memories := make([]entities.MemoryEntry, 0, len(dm.Memories))
		for _, m := range dm.Memories {
			if m.ID == "" || !m.IsActive() {
				continue
			}
			if filterSpace && memorySpace(m, dm.Document) != space {
				continue
			}
			memories = append(memories, m)
		}
		if len(memories) == 0 {
			continue
		}

		seen[dm.Document.ID] = struct{}{}
		out = append(out, entities.DocumentWithMemories{Document: dm.Document, Memories: memories})
	}
	return out
}

func memorySpace(m entities.MemoryEntry, doc entities.Document) string {
	if m.SpaceID != "" {
		return m.SpaceID
	}
	return doc.SpaceID
}

func (b *Builder) addVersionEdges(g *Graph, child entities.MemoryEntry) {
	if !g.HasNode(child.ID) {
		return
	}
	relations := child.ParentRelations
	if len(relations) == 0 {
		relations = legacyParentRelations(child)
	}

	parents := make([]string, 0, len(relations))
	for parentID := range relations {
		parents = append(parents, parentID)
	}
	sort.Strings(parents)

	for _, parentID := range parents {
		parent, ok := g.Node(parentID)
		if !ok || parent.Type != NodeTypeMemory {
			continue
		}
		g.AddEdge(Edge{
			ID:           EdgeID(EdgeTypeVersion, parentID, child.ID),
			Source:       parentID,
			Target:       child.ID,
			Similarity:   1,
			Type:         EdgeTypeVersion,
			RelationType: relations[parentID],
		})
	}
}

// legacyParentRelations maps the single-parent field of older records onto
// the relations map. Remove once no stored memory carries parentMemoryId.
func legacyParentRelations(m entities.MemoryEntry) map[string]string {
	if strings.TrimSpace(m.ParentMemoryID) == "" {
		return nil
	}
	return map[string]string{m.ParentMemoryID: RelationUpdates}
}

func (b *Builder) addExternalEdges(g *Graph, edges []ExternalEdge) {
	for _, e := range edges {
		src, ok := g.Node(e.SourceID)
		if !ok || src.Type != NodeTypeDocument {
			continue
		}
		tgt, ok := g.Node(e.TargetID)
		if !ok || tgt.Type != NodeTypeDocument {
			continue
		}
		g.AddEdge(Edge{
			ID:         EdgeID(EdgeTypeDocDoc, e.SourceID, e.TargetID),
			Source:     e.SourceID,
			Target:     e.TargetID,
			Similarity: entities.ClampScore(e.Similarity),
			Type:       EdgeTypeDocDoc,
		})
	}
}

type neighbor struct {
	pos int
	sim float64
}

// addSimilarityEdges links documents of the same space. Each document
// initiates edges to at most MaxNeighbors of the documents after it in input
// order, strongest first, so it may still be the target of other documents'
// selections.
func (b *Builder) addSimilarityEdges(g *Graph, docs []entities.DocumentWithMemories) {
	bySpace := make(map[string][]int)
	var spaces []string
	for i, dm := range docs {
		if !dm.Document.HasEmbedding() {
			continue
		}
		space := dm.Document.SpaceID
		if _, ok := bySpace[space]; !ok {
			spaces = append(spaces, space)
		}
		bySpace[space] = append(bySpace[space], i)
	}
	sort.Strings(spaces)

	for _, space := range spaces {
		members := bySpace[space]
		for a, i := range members {
			candidates := make([]neighbor, 0, len(members)-a-1)
			for _, j := range members[a+1:] {
				sim := CosineSimilarity(docs[i].Document.Embedding, docs[j].Document.Embedding)
				if sim >= b.opts.Threshold {
					candidates = append(candidates, neighbor{pos: j, sim: sim})
				}
			}
			sort.SliceStable(candidates, func(x, y int) bool {
				if candidates[x].sim != candidates[y].sim {
					return candidates[x].sim > candidates[y].sim
				}
				return docs[candidates[x].pos].Document.ID < docs[candidates[y].pos].Document.ID
			})
			if len(candidates) > b.opts.MaxNeighbors {
				candidates = candidates[:b.opts.MaxNeighbors]
			}

			for _, c := range candidates {
				source, target := docs[i].Document.ID, docs[c.pos].Document.ID
				g.AddEdge(Edge{
					ID:         EdgeID(EdgeTypeDocDoc, source, target),
					Source:     source,
					Target:     target,
					Similarity: entities.ClampScore(c.sim),
					Type:       EdgeTypeDocDoc,
				})
			}
		}
	}
}

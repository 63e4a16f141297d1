package layout

import (
	"hash/fnv"
	"math"
	"strconv"

	"docgraph/domain/config"
	"docgraph/domain/core/valueobjects"
	"docgraph/domain/graph"
)

// Engine computes deterministic 2D positions for a graph. Identical inputs
// without pinned positions always produce identical coordinates.
type Engine struct {
	cfg config.LayoutConfig
}

// NewEngine creates a layout engine
func NewEngine(cfg config.LayoutConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Apply returns a positioned copy of g. Pinned positions replace computed
// ones; draggingID only flags the dragged node.
func (e *Engine) Apply(g *graph.Graph, pinned map[string]valueobjects.Position, draggingID string) *graph.Graph {
	out := g.Clone()

	centers := e.spaceCenters(out.SpaceIDs())
	bySpace := make(map[string][]int)
	for i, n := range out.Nodes {
		if n.Type == graph.NodeTypeDocument {
			bySpace[n.SpaceID] = append(bySpace[n.SpaceID], i)
		}
	}

	for space, members := range bySpace {
		e.placeRings(out, members, centers[space])
		e.relax(out, members)
	}

	e.applyPinned(out, pinned, graph.NodeTypeDocument)
	e.placeMemories(out)
	e.applyPinned(out, pinned, graph.NodeTypeMemory)

	if draggingID != "" {
		if n, ok := out.Node(draggingID); ok {
			n.IsDragging = true
		}
	}
	return out
}

// spaceCenters spreads spaces evenly on a circle around the origin. Space i
// sits at angle 2π·i/n, so a lone space is centred at (SpaceRadius, 0).
func (e *Engine) spaceCenters(spaces []string) map[string]valueobjects.Position {
	centers := make(map[string]valueobjects.Position, len(spaces))
	step := 2 * math.Pi / float64(len(spaces))
	for i, space := range spaces {
		centers[space] = valueobjects.Position{}.Polar(e.cfg.SpaceRadius, step*float64(i))
	}
	return centers
}

// RingCapacity is the number of documents ring r can hold
func (e *Engine) RingCapacity(ring int) int {
	return e.cfg.BaseRingCapacity + e.cfg.RingCapacityStep*ring
}

// RingRadius is the distance of ring r from its space center
func (e *Engine) RingRadius(ring int) float64 {
	return e.cfg.BaseRingRadius + float64(ring)*e.cfg.RingSpacing
}

func (e *Engine) placeRings(g *graph.Graph, members []int, center valueobjects.Position) {
	placed := 0
	for ring := 0; placed < len(members); ring++ {
		count := e.RingCapacity(ring)
		if remaining := len(members) - placed; remaining < count {
			count = remaining
		}
		radius := e.RingRadius(ring)
		step := 2 * math.Pi / float64(count)
		for k := 0; k < count; k++ {
			g.Nodes[members[placed+k]].Position = center.Polar(radius, step*float64(k))
		}
		placed += count
	}
}

// relax pushes apart documents of one space that sit closer than the
// minimum distance. The push shrinks as the pair gets closer so overlapping
// nodes separate gradually instead of oscillating.
func (e *Engine) relax(g *graph.Graph, members []int) {
	minDist := e.cfg.MinDocumentDistance
	if minDist <= 0 {
		return
	}
	for pass := 0; pass < e.cfg.CollisionPasses; pass++ {
		for a := 0; a < len(members); a++ {
			for b := a + 1; b < len(members); b++ {
				p := &g.Nodes[members[a]]
				q := &g.Nodes[members[b]]

				dx, dy := q.Position.X-p.Position.X, q.Position.Y-p.Position.Y
				dist := math.Hypot(dx, dy)
				if dist >= minDist {
					continue
				}

				var ux, uy float64
				if dist == 0 {
					angle := hashAngle(p.ID + "|" + q.ID)
					ux, uy = math.Cos(angle), math.Sin(angle)
				} else {
					ux, uy = dx/dist, dy/dist
				}

				factor := e.cfg.CollisionDamping * (0.5 + 0.5*dist/minDist)
				shift := (minDist - dist) * factor / 2
				p.Position = p.Position.Translate(-ux*shift, -uy*shift)
				q.Position = q.Position.Translate(ux*shift, uy*shift)
			}
		}
	}
}

// placeMemories orbits each document's memories around it. The angle offset
// comes from a hash of the document id and the per-memory jitter from the
// memory index, so placement is reproducible.
func (e *Engine) placeMemories(g *graph.Graph) {
	byDocument := make(map[string][]int)
	for i, n := range g.Nodes {
		if n.Type == graph.NodeTypeMemory {
			byDocument[n.DocumentID] = append(byDocument[n.DocumentID], i)
		}
	}

	for docID, members := range byDocument {
		parent, ok := g.Node(docID)
		if !ok {
			continue
		}
		center := parent.Position
		base := hashAngle(docID)
		step := 2 * math.Pi / float64(len(members))

		for k, idx := range members {
			n := &g.Nodes[idx]
			seed := hashUnit(docID + "#" + strconv.Itoa(n.MemoryIndex))
			angle := base + step*float64(k) + (seed-0.5)*step*0.5
			radius := e.cfg.MemoryOrbitRadius + seed*e.cfg.MemoryOrbitJitter
			n.Position = center.Polar(radius, angle)
		}
	}
}

func (e *Engine) applyPinned(g *graph.Graph, pinned map[string]valueobjects.Position, t graph.NodeType) {
	for id, pos := range pinned {
		if !pos.IsValid() {
			continue
		}
		if n, ok := g.Node(id); ok && n.Type == t {
			n.Position = pos
		}
	}
}

func hashUnit(s string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return float64(h.Sum32()) / float64(math.MaxUint32)
}

func hashAngle(s string) float64 {
	return hashUnit(s) * 2 * math.Pi
}

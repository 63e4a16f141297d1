package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"docgraph/domain/graph"

	"go.uber.org/zap"
)

// ErrStaleResponse is returned to a fetch that was superseded by a newer one
var ErrStaleResponse = errors.New("edge fetch superseded by a newer request")

// EdgeFetchFunc loads document-document edges for a set of documents
type EdgeFetchFunc func(ctx context.Context, documentIDs []string) ([]graph.ExternalEdge, error)

// EdgeFetchCoordinator serializes overlapping edge fetches for one viewer.
// Each fetch gets a generation number; starting a new fetch cancels the
// previous one, and a response whose generation is no longer current is
// dropped instead of applied.
type EdgeFetchCoordinator struct {
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	logger     *zap.Logger
}

// NewEdgeFetchCoordinator creates a coordinator
func NewEdgeFetchCoordinator(logger *zap.Logger) *EdgeFetchCoordinator {
	return &EdgeFetchCoordinator{logger: logger}
}

// Fetch runs fetch for documentIDs. It returns ErrStaleResponse when another
// Fetch started before this one finished.
func (c *EdgeFetchCoordinator) Fetch(ctx context.Context, documentIDs []string, fetch EdgeFetchFunc) ([]graph.ExternalEdge, error) {
	ids := normalizeIDs(documentIDs)

	c.mu.Lock()
	c.generation++
	gen := c.generation
	if c.cancel != nil {
		c.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	edges, err := fetch(fetchCtx, ids)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug("Discarding stale edge response",
			zap.Uint64("generation", gen),
			zap.Uint64("current", c.generation),
		)
		return nil, ErrStaleResponse
	}
	c.cancel = nil
	if err != nil {
		return nil, err
	}
	return edges, nil
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// EdgeFetchRegistry routes fetches to one coordinator per viewer. A
// coordinator lives only while the viewer has a fetch in flight, so the
// registry never holds more entries than there are concurrent fetches.
type EdgeFetchRegistry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	logger  *zap.Logger
}

type registryEntry struct {
	coordinator *EdgeFetchCoordinator
	inFlight    int
}

// NewEdgeFetchRegistry creates a registry
func NewEdgeFetchRegistry(logger *zap.Logger) *EdgeFetchRegistry {
	return &EdgeFetchRegistry{
		entries: make(map[string]*registryEntry),
		logger:  logger,
	}
}

// Fetch runs fetch through the viewer's coordinator. Overlapping fetches of
// the same viewer supersede each other; fetches of different viewers are
// independent.
func (r *EdgeFetchRegistry) Fetch(ctx context.Context, viewerKey string, documentIDs []string, fetch EdgeFetchFunc) ([]graph.ExternalEdge, error) {
	entry := r.acquire(viewerKey)
	defer r.release(viewerKey, entry)
	return entry.coordinator.Fetch(ctx, documentIDs, fetch)
}

func (r *EdgeFetchRegistry) acquire(viewerKey string) *registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[viewerKey]
	if !ok {
		entry = &registryEntry{coordinator: NewEdgeFetchCoordinator(r.logger)}
		r.entries[viewerKey] = entry
	}
	entry.inFlight++
	return entry
}

func (r *EdgeFetchRegistry) release(viewerKey string, entry *registryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.inFlight--
	if entry.inFlight == 0 {
		delete(r.entries, viewerKey)
	}
}

package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Similarity search
	DefaultSimilarityThreshold float64
	DefaultSimilarityLimit     int
	MaxSimilarityLimit         int

	// Connection listing
	DefaultConnectionListLimit int
	MaxConnectionListLimit     int

	// Graph building
	DocumentEdgeThreshold   float64
	MaxNeighborsPerDocument int
	MaxDocumentsPerGraph    int

	// Layout
	Layout LayoutConfig

	// Memoization of rendered graphs
	GraphCacheSize int
	GraphCacheTTL  time.Duration

	// Connection discovery worker
	DiscoveryThreshold float64
	DiscoveryLimit     int
}

// LayoutConfig groups the geometry constants of the layout engine
type LayoutConfig struct {
	SpaceRadius         float64
	BaseRingCapacity    int
	RingCapacityStep    int
	BaseRingRadius      float64
	RingSpacing         float64
	CollisionPasses     int
	MinDocumentDistance float64
	CollisionDamping    float64
	MemoryOrbitRadius   float64
	MemoryOrbitJitter   float64
	DocumentNodeSize    float64
	MemoryNodeSize      float64
}

// DefaultLayoutConfig returns the layout geometry used by every environment
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		SpaceRadius:         1200,
		BaseRingCapacity:    6,
		RingCapacityStep:    4,
		BaseRingRadius:      180,
		RingSpacing:         160,
		CollisionPasses:     2,
		MinDocumentDistance: 120,
		CollisionDamping:    0.5,
		MemoryOrbitRadius:   70,
		MemoryOrbitJitter:   25,
		DocumentNodeSize:    48,
		MemoryNodeSize:      18,
	}
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DefaultSimilarityThreshold: 0.7,
		DefaultSimilarityLimit:     10,
		MaxSimilarityLimit:         100,

		DefaultConnectionListLimit: 50,
		MaxConnectionListLimit:     100,

		DocumentEdgeThreshold:   0.72,
		MaxNeighborsPerDocument: 3,
		MaxDocumentsPerGraph:    2000,

		Layout: DefaultLayoutConfig(),

		GraphCacheSize: 128,
		GraphCacheTTL:  10 * time.Minute,

		DiscoveryThreshold: 0.75,
		DiscoveryLimit:     10,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxDocumentsPerGraph = 1000
	config.GraphCacheSize = 512

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxDocumentsPerGraph = 10000
	config.GraphCacheSize = 32
	config.GraphCacheTTL = time.Minute

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.DefaultSimilarityThreshold < 0 || c.DefaultSimilarityThreshold > 1 {
		return fmt.Errorf("default similarity threshold must be in [0,1], got %v", c.DefaultSimilarityThreshold)
	}
	if c.DocumentEdgeThreshold < 0 || c.DocumentEdgeThreshold > 1 {
		return fmt.Errorf("document edge threshold must be in [0,1], got %v", c.DocumentEdgeThreshold)
	}
	if c.DefaultSimilarityLimit < 1 || c.DefaultSimilarityLimit > c.MaxSimilarityLimit {
		return fmt.Errorf("default similarity limit must be in [1,%d]", c.MaxSimilarityLimit)
	}
	if c.DefaultConnectionListLimit < 1 || c.DefaultConnectionListLimit > c.MaxConnectionListLimit {
		return fmt.Errorf("default connection list limit must be in [1,%d]", c.MaxConnectionListLimit)
	}
	if c.MaxNeighborsPerDocument < 1 {
		return fmt.Errorf("max neighbors per document must be positive")
	}
	if c.Layout.BaseRingCapacity < 1 {
		return fmt.Errorf("base ring capacity must be positive")
	}
	if c.Layout.CollisionDamping <= 0 || c.Layout.CollisionDamping > 1 {
		return fmt.Errorf("collision damping must be in (0,1]")
	}
	return nil
}

package di

import (
	"context"
	"testing"

	"docgraph/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:        "development",
		LogLevel:           "info",
		MetricsNamespace:   "DocGraph",
		JWTIssuer:          "docgraph",
		DiscoveryThreshold: 0.8,
		DiscoveryLimit:     5,
	}
}

func TestProvideLogger(t *testing.T) {
	cfg := testConfig()
	logger, err := ProvideLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.LogLevel = "chatty"
	_, err = ProvideLogger(cfg)
	assert.Error(t, err)
}

func TestProvideDomainConfig_DiscoveryFromProcessConfig(t *testing.T) {
	domainCfg, err := ProvideDomainConfig(testConfig())
	require.NoError(t, err)
	assert.Equal(t, 0.8, domainCfg.DiscoveryThreshold)
	assert.Equal(t, 5, domainCfg.DiscoveryLimit)
}

func TestProvideTracer(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, ProvideTracer(cfg))

	cfg.EnableTracing = true
	assert.NotNil(t, ProvideTracer(cfg))
}

func TestProvideMetrics_DisabledIsNoop(t *testing.T) {
	metrics := ProvideMetrics(nil, testConfig(), zap.NewNop())
	require.NotNil(t, metrics)
	assert.NotPanics(t, func() {
		metrics.IncrementCounter(context.Background(), "ConnectionsCreated", nil)
	})
}

func TestProvideJWTValidator_DevelopmentFallback(t *testing.T) {
	validator, err := ProvideJWTValidator(testConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, validator)
}

func TestProvideDatabasePool_RequiresURL(t *testing.T) {
	_, _, err := ProvideDatabasePool(context.Background(), testConfig(), zap.NewNop())
	assert.Error(t, err)
}

// Package main implements the Lambda that discovers automatic connections
// for newly indexed documents.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"

	"docgraph/infrastructure/config"
	"docgraph/infrastructure/di"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()

	discoverer := NewDiscoverer(
		container.CommandBus,
		container.QueryBus,
		container.DomainConfig.DiscoveryThreshold,
		container.DomainConfig.DiscoveryLimit,
		container.Logger,
	)

	if cfg.IsLambda {
		lambda.Start(discoverer.HandleEvent)
		return
	}

	// Local mode: discover connections for one document from the command line
	documentID := flag.String("document", "", "document id")
	orgID := flag.String("org", "", "organization id")
	spaceID := flag.String("space", "", "space of the document")
	flag.Parse()

	result, err := discoverer.Discover(context.Background(), DiscoveryRequest{DocumentID: *documentID, OrgID: *orgID, SpaceID: *spaceID})
	if err != nil {
		container.Logger.Error("Discovery failed", zap.Error(err))
	}
	if result != nil {
		out, _ := json.MarshalIndent(result, "", "  ")
		log.Printf("Discovery result:\n%s", out)
	}
	_ = container.Logger.Sync()
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"docgraph/application/commands"
	commandbus "docgraph/application/commands/bus"
	"docgraph/application/queries"
	querybus "docgraph/application/queries/bus"
	"docgraph/application/services"
	"docgraph/domain/events"
	pkgerrors "docgraph/pkg/errors"

	awsevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// DiscoveryRequest names the document to connect and the space it lives
// in. Threshold and Limit override the configured defaults when set.
type DiscoveryRequest struct {
	DocumentID string  `json:"documentId"`
	OrgID      string  `json:"orgId"`
	SpaceID    string  `json:"spaceId"`
	Threshold  float64 `json:"threshold,omitempty"`
	Limit      int     `json:"limit,omitempty"`
}

// DiscoveryResult summarizes one discovery run
type DiscoveryResult struct {
	DocumentID string   `json:"documentId"`
	Found      int      `json:"found"`
	Recorded   int      `json:"recorded"`
	Skipped    int      `json:"skipped"`
	Failed     []string `json:"failed,omitempty"`
}

// Discoverer records automatic connections between a document and its
// most similar peers
type Discoverer struct {
	commandBus *commandbus.CommandBus
	queryBus   *querybus.QueryBus
	threshold  float64
	limit      int
	logger     *zap.Logger
}

// NewDiscoverer creates a discoverer with default threshold and limit
func NewDiscoverer(commandBus *commandbus.CommandBus, queryBus *querybus.QueryBus, threshold float64, limit int, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		commandBus: commandBus,
		queryBus:   queryBus,
		threshold:  threshold,
		limit:      limit,
		logger:     logger,
	}
}

// Discover finds similar documents and records one automatic connection per
// match in the same space. Matches in other spaces are skipped so stored
// automatic connections never join two spaces. A failed record does not stop the run; failures are reported in the
// result and joined into the returned error.
func (d *Discoverer) Discover(ctx context.Context, req DiscoveryRequest) (*DiscoveryResult, error) {
	if req.SpaceID == "" {
		return nil, pkgerrors.NewInvalidArgumentError("spaceId is required")
	}
	if req.Threshold == 0 {
		req.Threshold = d.threshold
	}
	if req.Limit == 0 {
		req.Limit = d.limit
	}

	result, err := d.queryBus.Ask(ctx, queries.FindSimilarDocumentsQuery{
		OrgID:      req.OrgID,
		DocumentID: req.DocumentID,
		Threshold:  req.Threshold,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	matches, _ := result.([]services.SimilarDocument)

	out := &DiscoveryResult{DocumentID: req.DocumentID, Found: len(matches)}
	var errs []error
	for _, match := range matches {
		if match.SpaceID != req.SpaceID {
			out.Skipped++
			continue
		}
		_, err := d.commandBus.Send(ctx, commands.RecordAutomaticConnectionCommand{
			OrgID:            req.OrgID,
			SourceDocumentID: req.DocumentID,
			TargetDocumentID: match.DocumentID,
			SimilarityScore:  match.SimilarityScore,
			Reason:           fmt.Sprintf("similarity %.2f", match.SimilarityScore),
		})
		if err != nil {
			d.logger.Warn("Failed to record automatic connection",
				zap.String("documentID", req.DocumentID),
				zap.String("targetDocumentID", match.DocumentID),
				zap.Error(err),
			)
			out.Failed = append(out.Failed, match.DocumentID)
			errs = append(errs, err)
			continue
		}
		out.Recorded++
	}

	d.logger.Info("Connection discovery completed",
		zap.String("documentID", req.DocumentID),
		zap.String("orgID", req.OrgID),
		zap.Int("found", out.Found),
		zap.Int("recorded", out.Recorded),
		zap.Int("skipped", out.Skipped),
	)
	return out, errors.Join(errs...)
}

// HandleEvent accepts either an EventBridge document.indexed event or a
// direct invocation payload
func (d *Discoverer) HandleEvent(ctx context.Context, event json.RawMessage) (*DiscoveryResult, error) {
	var envelope awsevents.CloudWatchEvent
	if err := json.Unmarshal(event, &envelope); err == nil && envelope.DetailType != "" {
		if envelope.DetailType != events.TypeDocumentIndexed {
			d.logger.Debug("Ignoring event", zap.String("detailType", envelope.DetailType))
			return &DiscoveryResult{}, nil
		}
		var indexed events.DocumentIndexed
		if err := json.Unmarshal(envelope.Detail, &indexed); err != nil {
			return nil, fmt.Errorf("failed to parse %s detail: %w", events.TypeDocumentIndexed, err)
		}
		documentID := indexed.DocumentID
		if documentID == "" {
			documentID = indexed.AggregateID
		}
		return d.Discover(ctx, DiscoveryRequest{DocumentID: documentID, OrgID: indexed.OrgID, SpaceID: indexed.SpaceID})
	}

	var req DiscoveryRequest
	if err := json.Unmarshal(event, &req); err != nil || req.DocumentID == "" {
		return nil, fmt.Errorf("unable to parse event")
	}
	return d.Discover(ctx, req)
}

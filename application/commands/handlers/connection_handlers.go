package handlers

import (
	"context"
	"fmt"

	"docgraph/application/commands"
	"docgraph/application/commands/bus"
	"docgraph/application/services"
	pkgerrors "docgraph/pkg/errors"
)

// ConnectionCommandHandler serves every connection write
type ConnectionCommandHandler struct {
	service *services.ConnectionService
}

// NewConnectionCommandHandler creates a new handler
func NewConnectionCommandHandler(service *services.ConnectionService) *ConnectionCommandHandler {
	return &ConnectionCommandHandler{service: service}
}

// Register binds the handler to each command it serves
func (h *ConnectionCommandHandler) Register(b *bus.CommandBus) error {
	for _, cmd := range []bus.Command{
		commands.CreateManualConnectionCommand{},
		commands.DeleteConnectionCommand{},
		commands.RecordAutomaticConnectionCommand{},
	} {
		if err := b.Register(cmd, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle implements bus.CommandHandler
func (h *ConnectionCommandHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	switch c := cmd.(type) {
	case commands.CreateManualConnectionCommand:
		conn, err := h.service.CreateManual(ctx, services.CreateManualInput{
			SourceDocumentID: c.SourceDocumentID,
			TargetDocumentID: c.TargetDocumentID,
			OrgID:            c.OrgID,
			UserID:           c.UserID,
			Reason:           c.Reason,
			Metadata:         c.Metadata,
		})
		if err != nil {
			return nil, err
		}
		return services.NewConnectionView(conn), nil

	case commands.DeleteConnectionCommand:
		return nil, h.service.Delete(ctx, c.ConnectionID, c.OrgID, c.UserID)

	case commands.RecordAutomaticConnectionCommand:
		conn, err := h.service.RecordAutomatic(ctx, c.SourceDocumentID, c.TargetDocumentID, c.OrgID, c.SimilarityScore, c.Reason)
		if err != nil {
			return nil, err
		}
		return services.NewConnectionView(conn), nil

	default:
		return nil, pkgerrors.NewInternalError(fmt.Sprintf("unexpected command type %T", cmd))
	}
}

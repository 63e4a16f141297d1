package handlers

import (
	"net/http"

	"docgraph/application/commands"
	"docgraph/application/commands/bus"
	"docgraph/pkg/auth"
	"docgraph/pkg/common"
	pkgerrors "docgraph/pkg/errors"
	"docgraph/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ConnectionHandler handles manual connection writes
type ConnectionHandler struct {
	commandBus *bus.CommandBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(commandBus *bus.CommandBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		commandBus: commandBus,
		errors:     errs,
		logger:     logger,
	}
}

// CreateConnectionRequest is the body of POST /connections
type CreateConnectionRequest struct {
	SourceDocumentID string                 `json:"sourceDocumentId" validate:"required"`
	TargetDocumentID string                 `json:"targetDocumentId" validate:"required"`
	Reason           string                 `json:"reason,omitempty" validate:"max=1000"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// CreateConnection handles POST /connections
func (h *ConnectionHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req CreateConnectionRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Unauthorized"))
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.CreateManualConnectionCommand{
		OrgID:            user.OrgID,
		UserID:           user.UserID,
		SourceDocumentID: req.SourceDocumentID,
		TargetDocumentID: req.TargetDocumentID,
		Reason:           req.Reason,
		Metadata:         req.Metadata,
	})
	if err != nil {
		h.logger.Info("Manual connection rejected",
			zap.String("userID", user.UserID),
			zap.String("sourceDocumentID", req.SourceDocumentID),
			zap.String("targetDocumentID", req.TargetDocumentID),
			zap.Error(err),
		)
		h.errors.Handle(w, r, err)
		return
	}

	if err := common.RespondJSON(w, http.StatusCreated, result); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// DeleteConnection handles DELETE /connections/{connectionID}
func (h *ConnectionHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Unauthorized"))
		return
	}

	_, err = h.commandBus.Send(r.Context(), commands.DeleteConnectionCommand{
		OrgID:        user.OrgID,
		UserID:       user.UserID,
		ConnectionID: chi.URLParam(r, "connectionID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondNoContent(w)
}

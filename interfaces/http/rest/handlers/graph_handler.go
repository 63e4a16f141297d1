package handlers

import (
	"errors"
	"net/http"

	"docgraph/application/queries"
	querybus "docgraph/application/queries/bus"
	"docgraph/application/services"
	"docgraph/domain/core/valueobjects"
	"docgraph/domain/graph"
	"docgraph/pkg/auth"
	"docgraph/pkg/common"
	pkgerrors "docgraph/pkg/errors"
	"docgraph/pkg/utils"

	"go.uber.org/zap"
)

// HeaderViewerID distinguishes concurrent views (tabs) of the same user.
// Edge fetches are superseded per user and viewer.
const HeaderViewerID = "X-Viewer-ID"

// GraphHandler serves the rendered graph and edge batches
type GraphHandler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		queryBus: queryBus,
		errors:   errs,
		logger:   logger,
	}
}

// GraphRequest is the body of POST /graph
type GraphRequest struct {
	Space          string                           `json:"space,omitempty"`
	Pinned         map[string]valueobjects.Position `json:"pinned,omitempty"`
	DraggingID     string                           `json:"draggingId,omitempty"`
	DocumentIDs    []string                         `json:"documentIds,omitempty" validate:"dive,required"`
	UseConnections bool                             `json:"useConnections,omitempty"`
}

// EdgesRequest is the body of POST /graph/edges
type EdgesRequest struct {
	DocumentIDs []string `json:"documentIds" validate:"required,dive,required"`
}

// GetGraph handles POST /graph
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	var req GraphRequest
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

	result, err := h.queryBus.Ask(r.Context(), queries.GetGraphDataQuery{
		OrgID:          user.OrgID,
		Space:          req.Space,
		DocumentIDs:    req.DocumentIDs,
		Pinned:         req.Pinned,
		DraggingID:     req.DraggingID,
		UseConnections: req.UseConnections,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, result)
}

// GetEdges handles POST /graph/edges. A request superseded by a newer one
// from the same viewer gets 409 and must be discarded by the client.
func (h *GraphHandler) GetEdges(w http.ResponseWriter, r *http.Request) {
	var req EdgesRequest
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

	viewer := user.UserID
	if tab := r.Header.Get(HeaderViewerID); tab != "" {
		viewer += "/" + tab
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetConnectionEdgesQuery{
		OrgID:       user.OrgID,
		ViewerKey:   viewer,
		DocumentIDs: req.DocumentIDs,
	})
	if err != nil {
		if errors.Is(err, services.ErrStaleResponse) {
			h.errors.HandleStatus(w, r, http.StatusConflict, "Edge request superseded by a newer request")
			return
		}
		h.errors.Handle(w, r, err)
		return
	}

	edges, _ := result.([]graph.ExternalEdge)
	if edges == nil {
		edges = []graph.ExternalEdge{}
	}
	h.respond(w, http.StatusOK, common.ListResponse{Items: edges, Count: len(edges)})
}

func (h *GraphHandler) respond(w http.ResponseWriter, status int, data interface{}) {
	if err := common.RespondJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

package handlers

import (
	"net/http"
	"strconv"

	"docgraph/application/queries"
	querybus "docgraph/application/queries/bus"
	"docgraph/application/services"
	"docgraph/domain/config"
	"docgraph/domain/core/entities"
	"docgraph/pkg/auth"
	"docgraph/pkg/common"
	pkgerrors "docgraph/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DocumentHandler serves per-document reads: similarity and connections
type DocumentHandler struct {
	queryBus *querybus.QueryBus
	config   *config.DomainConfig
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(queryBus *querybus.QueryBus, cfg *config.DomainConfig, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		queryBus: queryBus,
		config:   cfg,
		errors:   errs,
		logger:   logger,
	}
}

// FindSimilar handles GET /documents/{documentID}/similar
func (h *DocumentHandler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Unauthorized"))
		return
	}

	threshold, err := floatParam(r, "threshold", h.config.DefaultSimilarityThreshold)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", h.config.DefaultSimilarityLimit)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.FindSimilarDocumentsQuery{
		OrgID:      user.OrgID,
		DocumentID: chi.URLParam(r, "documentID"),
		Threshold:  threshold,
		Limit:      limit,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	docs, _ := result.([]services.SimilarDocument)
	h.respond(w, http.StatusOK, common.ListResponse{Items: docs, Count: len(docs)})
}

// ListConnections handles GET /documents/{documentID}/connections
func (h *DocumentHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Unauthorized"))
		return
	}

	query := queries.ListConnectionsQuery{
		OrgID:      user.OrgID,
		DocumentID: chi.URLParam(r, "documentID"),
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		connType, err := entities.ParseConnectionType(raw)
		if err != nil {
			h.errors.Handle(w, r, err)
			return
		}
		query.Type = &connType
	}
	if query.Limit, err = intParam(r, "limit", 0); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	views, _ := result.([]services.ConnectionView)
	h.respond(w, http.StatusOK, common.ListResponse{Items: views, Count: len(views)})
}

func (h *DocumentHandler) respond(w http.ResponseWriter, status int, data interface{}) {
	if err := common.RespondJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func floatParam(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, pkgerrors.NewInvalidArgumentErrorf("%s must be a number", name)
	}
	return v, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.NewInvalidArgumentErrorf("%s must be an integer", name)
	}
	return v, nil
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docgraph/application/commands"
	"docgraph/application/commands/bus"
	"docgraph/application/queries"
	querybus "docgraph/application/queries/bus"
	"docgraph/application/services"
	"docgraph/domain/config"
	"docgraph/domain/core/entities"
	"docgraph/domain/graph"
	"docgraph/pkg/auth"
	pkgerrors "docgraph/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func withUser(r *http.Request) *http.Request {
	user := &auth.UserContext{UserID: "user-1", OrgID: "org-1"}
	return r.WithContext(auth.SetUserInContext(r.Context(), user))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body pkgerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Type
}

func newQueryBus(t *testing.T, query querybus.Query, fn querybus.QueryHandlerFunc) *querybus.QueryBus {
	t.Helper()
	b := querybus.NewQueryBus()
	require.NoError(t, b.Register(query, fn))
	return b
}

func TestDocumentHandler_FindSimilar(t *testing.T) {
	logger := zap.NewNop()
	errs := pkgerrors.NewErrorHandler(logger, false)
	cfg := config.DefaultDomainConfig()

	t.Run("applies defaults and scopes to caller org", func(t *testing.T) {
		var got queries.FindSimilarDocumentsQuery
		qb := newQueryBus(t, queries.FindSimilarDocumentsQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			got = q.(queries.FindSimilarDocumentsQuery)
			return []services.SimilarDocument{{DocumentID: "doc-2", SimilarityScore: 0.9}}, nil
		})
		h := NewDocumentHandler(qb, cfg, errs, logger)

		req := withUser(withURLParam(httptest.NewRequest(http.MethodGet, "/documents/doc-1/similar", nil), "documentID", "doc-1"))
		rec := httptest.NewRecorder()
		h.FindSimilar(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "org-1", got.OrgID)
		assert.Equal(t, "doc-1", got.DocumentID)
		assert.Equal(t, cfg.DefaultSimilarityThreshold, got.Threshold)
		assert.Equal(t, cfg.DefaultSimilarityLimit, got.Limit)

		var body struct {
			Items []services.SimilarDocument `json:"items"`
			Count int                        `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, "doc-2", body.Items[0].DocumentID)
	})

	tests := []struct {
		name  string
		query string
	}{
		{name: "non numeric threshold", query: "?threshold=abc"},
		{name: "non integer limit", query: "?limit=1.5"},
		{name: "threshold out of range", query: "?threshold=1.5"},
		{name: "limit below one", query: "?limit=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qb := newQueryBus(t, queries.FindSimilarDocumentsQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
				t.Fatal("handler must not run for invalid input")
				return nil, nil
			})
			h := NewDocumentHandler(qb, cfg, errs, logger)

			req := withUser(withURLParam(httptest.NewRequest(http.MethodGet, "/documents/doc-1/similar"+tt.query, nil), "documentID", "doc-1"))
			rec := httptest.NewRecorder()
			h.FindSimilar(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(pkgerrors.ErrorTypeInvalidArgument), errorType(t, rec))
		})
	}

	t.Run("missing user", func(t *testing.T) {
		h := NewDocumentHandler(querybus.NewQueryBus(), cfg, errs, logger)
		rec := httptest.NewRecorder()
		h.FindSimilar(rec, httptest.NewRequest(http.MethodGet, "/documents/doc-1/similar", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDocumentHandler_ListConnections(t *testing.T) {
	logger := zap.NewNop()
	errs := pkgerrors.NewErrorHandler(logger, false)
	cfg := config.DefaultDomainConfig()

	t.Run("passes type filter and limit", func(t *testing.T) {
		var got queries.ListConnectionsQuery
		qb := newQueryBus(t, queries.ListConnectionsQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			got = q.(queries.ListConnectionsQuery)
			return []services.ConnectionView{{ID: "c1"}}, nil
		})
		h := NewDocumentHandler(qb, cfg, errs, logger)

		req := withUser(withURLParam(httptest.NewRequest(http.MethodGet, "/documents/doc-1/connections?type=Manual&limit=5", nil), "documentID", "doc-1"))
		rec := httptest.NewRecorder()
		h.ListConnections(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got.Type)
		assert.Equal(t, entities.ConnectionTypeManual, *got.Type)
		assert.Equal(t, 5, got.Limit)
	})

	t.Run("unknown type", func(t *testing.T) {
		h := NewDocumentHandler(querybus.NewQueryBus(), cfg, errs, logger)
		req := withUser(withURLParam(httptest.NewRequest(http.MethodGet, "/documents/doc-1/connections?type=weird", nil), "documentID", "doc-1"))
		rec := httptest.NewRecorder()
		h.ListConnections(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("limit above maximum", func(t *testing.T) {
		qb := newQueryBus(t, queries.ListConnectionsQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return nil, pkgerrors.NewInvalidArgumentError("limit must be between 1 and 100, got 101")
		})
		h := NewDocumentHandler(qb, cfg, errs, logger)
		req := withUser(withURLParam(httptest.NewRequest(http.MethodGet, "/documents/doc-1/connections?limit=101", nil), "documentID", "doc-1"))
		rec := httptest.NewRecorder()
		h.ListConnections(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestConnectionHandler_CreateConnection(t *testing.T) {
	logger := zap.NewNop()
	errs := pkgerrors.NewErrorHandler(logger, false)

	newBus := func(t *testing.T, fn bus.CommandHandlerFunc) *bus.CommandBus {
		b := bus.NewCommandBus()
		require.NoError(t, b.Register(commands.CreateManualConnectionCommand{}, fn))
		return b
	}

	t.Run("created", func(t *testing.T) {
		var got commands.CreateManualConnectionCommand
		h := NewConnectionHandler(newBus(t, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			got = cmd.(commands.CreateManualConnectionCommand)
			return services.ConnectionView{ID: "conn-1", ConnectionType: entities.ConnectionTypeManual}, nil
		}), errs, logger)

		body := `{"sourceDocumentId":"a","targetDocumentId":"b","reason":"related"}`
		req := withUser(httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader(body)))
		rec := httptest.NewRecorder()
		h.CreateConnection(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "org-1", got.OrgID)
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "related", got.Reason)

		var view services.ConnectionView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, "conn-1", view.ID)
	})

	errorCases := []struct {
		name       string
		body       string
		handlerErr error
		wantStatus int
	}{
		{name: "malformed body", body: `{"sourceDocumentId":`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"sourceDocumentId":"a","targetDocumentId":"b","weight":1}`, wantStatus: http.StatusBadRequest},
		{name: "missing target", body: `{"sourceDocumentId":"a"}`, wantStatus: http.StatusBadRequest},
		{name: "self connection", body: `{"sourceDocumentId":"a","targetDocumentId":"a"}`,
			handlerErr: pkgerrors.NewInvalidArgumentError("cannot connect a document to itself"), wantStatus: http.StatusBadRequest},
		{name: "document missing", body: `{"sourceDocumentId":"a","targetDocumentId":"b"}`,
			handlerErr: pkgerrors.NewNotFoundError("document"), wantStatus: http.StatusNotFound},
		{name: "duplicate", body: `{"sourceDocumentId":"a","targetDocumentId":"b"}`,
			handlerErr: pkgerrors.NewAlreadyExistsError("connection between these documents"), wantStatus: http.StatusConflict},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			h := NewConnectionHandler(newBus(t, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
				return nil, tt.handlerErr
			}), errs, logger)

			req := withUser(httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader(tt.body)))
			rec := httptest.NewRecorder()
			h.CreateConnection(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestConnectionHandler_DeleteConnection(t *testing.T) {
	logger := zap.NewNop()
	errs := pkgerrors.NewErrorHandler(logger, false)

	tests := []struct {
		name       string
		handlerErr error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusNoContent},
		{name: "not found", handlerErr: pkgerrors.NewNotFoundError("connection"), wantStatus: http.StatusNotFound},
		{name: "not the creator", handlerErr: pkgerrors.NewForbiddenError("only the creator can delete a manual connection"), wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got commands.DeleteConnectionCommand
			b := bus.NewCommandBus()
			require.NoError(t, b.Register(commands.DeleteConnectionCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
				got = cmd.(commands.DeleteConnectionCommand)
				return nil, tt.handlerErr
			})))
			h := NewConnectionHandler(b, errs, logger)

			req := withUser(withURLParam(httptest.NewRequest(http.MethodDelete, "/connections/conn-1", nil), "connectionID", "conn-1"))
			rec := httptest.NewRecorder()
			h.DeleteConnection(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "conn-1", got.ConnectionID)
			assert.Equal(t, "org-1", got.OrgID)
		})
	}
}

func TestGraphHandler_GetGraph(t *testing.T) {
	logger := zap.NewNop()
	errs := pkgerrors.NewErrorHandler(logger, false)

	var got queries.GetGraphDataQuery
	qb := newQueryBus(t, queries.GetGraphDataQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
		got = q.(queries.GetGraphDataQuery)
		return &queries.GraphView{
			Nodes: []queries.NodeView{{ID: "doc-1", Type: graph.NodeTypeDocument, X: 1, Y: 2, DataRef: "doc-1", IsDragging: true}},
			Edges: []graph.Edge{},
		}, nil
	})
	h := NewGraphHandler(qb, errs, logger)

	body := `{"space":"work","pinned":{"doc-1":{"x":1,"y":2}},"draggingId":"doc-1","useConnections":true}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/graph", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	h.GetGraph(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "work", got.Space)
	assert.Equal(t, "doc-1", got.DraggingID)
	assert.True(t, got.UseConnections)
	assert.Equal(t, 1.0, got.Pinned["doc-1"].X)

	var view queries.GraphView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Nodes, 1)
	assert.True(t, view.Nodes[0].IsDragging)
}

func TestGraphHandler_GetEdges(t *testing.T) {
	logger := zap.NewNop()
	errs := pkgerrors.NewErrorHandler(logger, false)

	t.Run("returns edges scoped to viewer", func(t *testing.T) {
		var got queries.GetConnectionEdgesQuery
		qb := newQueryBus(t, queries.GetConnectionEdgesQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			got = q.(queries.GetConnectionEdgesQuery)
			return []graph.ExternalEdge{{SourceID: "a", TargetID: "b", Similarity: 0.8}}, nil
		})
		h := NewGraphHandler(qb, errs, logger)

		req := withUser(httptest.NewRequest(http.MethodPost, "/graph/edges", strings.NewReader(`{"documentIds":["a","b"]}`)))
		req.Header.Set(HeaderViewerID, "tab-2")
		rec := httptest.NewRecorder()
		h.GetEdges(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1/tab-2", got.ViewerKey)
		assert.Equal(t, []string{"a", "b"}, got.DocumentIDs)
		assert.Contains(t, rec.Body.String(), `"sourceId":"a"`)
	})

	t.Run("stale fetch is a conflict", func(t *testing.T) {
		qb := newQueryBus(t, queries.GetConnectionEdgesQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return nil, services.ErrStaleResponse
		})
		h := NewGraphHandler(qb, errs, logger)

		req := withUser(httptest.NewRequest(http.MethodPost, "/graph/edges", strings.NewReader(`{"documentIds":["a"]}`)))
		rec := httptest.NewRecorder()
		h.GetEdges(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("document ids required", func(t *testing.T) {
		h := NewGraphHandler(querybus.NewQueryBus(), errs, logger)
		req := withUser(httptest.NewRequest(http.MethodPost, "/graph/edges", strings.NewReader(`{}`)))
		rec := httptest.NewRecorder()
		h.GetEdges(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

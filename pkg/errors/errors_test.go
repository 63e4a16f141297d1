package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConstructorsSetTypeAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		typ    ErrorType
		status int
	}{
		{"invalid argument", NewInvalidArgumentError("bad"), ErrorTypeInvalidArgument, http.StatusBadRequest},
		{"not found", NewNotFoundError("document"), ErrorTypeNotFound, http.StatusNotFound},
		{"already exists", NewAlreadyExistsError("connection"), ErrorTypeAlreadyExists, http.StatusConflict},
		{"forbidden", NewForbiddenError(""), ErrorTypeForbidden, http.StatusForbidden},
		{"unauthorized", NewUnauthorizedError(""), ErrorTypeUnauthorized, http.StatusUnauthorized},
		{"database", NewDatabaseError("query", fmt.Errorf("boom")), ErrorTypeDatabase, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.True(t, IsType(tt.err, tt.typ))
		})
	}
}

func TestAlreadyExistsMessageIsMatchable(t *testing.T) {
	err := NewAlreadyExistsError("connection between these documents")
	assert.Contains(t, err.Error(), "already exists")
	assert.True(t, IsAlreadyExists(fmt.Errorf("outer: %w", err)))
	assert.False(t, IsForbidden(err))
	assert.False(t, IsUnauthorized(err))
}

func TestWrapPreservesType(t *testing.T) {
	base := NewNotFoundError("connection")
	wrapped := Wrap(base, "delete")

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "delete: connection not found", GetAppError(wrapped).Message)
	assert.Equal(t, "connection not found", base.Message)

	plain := Wrap(fmt.Errorf("io"), "read")
	assert.True(t, IsType(plain, ErrorTypeInternal))
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestErrorHandlerWritesJSON(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/connections/c1", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()

	h.Handle(rec, req, NewForbiddenError("only the creator can delete a manual connection"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(ErrorTypeForbidden), body.Error.Type)
	assert.Equal(t, "req-1", body.Error.RequestID)
}

func TestErrorHandlerHidesUnknownErrors(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()

	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("secret detail"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestMiddlewareRecoversPanics(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// Package http exposes the ledger services as a JSON API.
//
// This file holds the response builder and the single place where service
// errors are mapped to HTTP status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cuotas/internal/core"
	applog "cuotas/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

// writeError reports err with the status matching its class. Store and
// unknown failures are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := applog.FromContext(r.Context())

	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		NewJSONResponse().Status(http.StatusUnprocessableEntity).
			Body(errorBody{Error: ve.Message, Field: ve.Field}).Write(w)
	case errors.Is(err, core.ErrValidation):
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		ErrorResponse(http.StatusNotFound, err.Error()).Write(w)
	case errors.Is(err, core.ErrUnauthenticated):
		ErrorResponse(http.StatusUnauthorized, core.ErrUnauthenticated.Error()).Write(w)
	case errors.Is(err, core.ErrForbidden):
		ErrorResponse(http.StatusForbidden, core.ErrForbidden.Error()).Write(w)
	case errors.Is(err, core.ErrRemote):
		logger.ErrorContext(r.Context(), "Store failure",
			applog.FieldError, err,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusBadGateway, "storage unavailable, try again").Write(w)
	default:
		logger.ErrorContext(r.Context(), "Unhandled error",
			applog.FieldError, err,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusInternalServerError, "internal error").Write(w)
	}
}

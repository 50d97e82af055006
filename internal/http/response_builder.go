// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses.
// Every error body has the same shape, so the pages can show the message
// and branch on the category.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"financas/internal/auth"
	applog "financas/internal/log"
	"financas/internal/services"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
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
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string, category services.Category) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, Category: string(category)})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message, "")
}

// UnauthorizedError creates a 401 response carrying the auth message.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message, services.CategoryPermission)
}

// Accepted creates the 202 response for a write handed to the gateway.
func Accepted(id string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusAccepted).
		Body(map[string]string{"id": id})
}

// statusFor maps an error category onto the HTTP status it is reported
// with.
func statusFor(c services.Category) int {
	switch c {
	case services.CategoryValidation:
		return http.StatusUnprocessableEntity
	case services.CategoryDisallowed:
		return http.StatusConflict
	case services.CategoryNotFound:
		return http.StatusNotFound
	case services.CategoryPermission:
		return http.StatusUnauthorized
	case services.CategoryUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ServiceError builds the response for an error returned by the ledger or
// the auth service.
func ServiceError(err error) *JSONResponseBuilder {
	var authErr bool
	for _, target := range []error{auth.ErrUserNotFound, auth.ErrWrongPassword, auth.ErrEmailInUse, auth.ErrInvalidEmail, auth.ErrWeakPassword} {
		if errors.Is(err, target) {
			authErr = true
			break
		}
	}
	if authErr {
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, auth.ErrEmailInUse):
			status = http.StatusConflict
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			status = http.StatusUnprocessableEntity
		}
		return ErrorResponse(status, auth.Message(err), "auth")
	}
	if errors.Is(err, errMalformedBody) {
		return BadRequestError("Formato de requisição inválido.")
	}

	category := services.Classify(err)
	if category == services.CategoryPermission && errors.Is(err, auth.ErrUnauthenticated) {
		return UnauthorizedError(auth.Message(err))
	}
	message := services.UserMessage(err)
	if category == services.CategoryUnknown {
		// Internal details stay in the logs.
		message = "Erro interno. Tente novamente."
	}
	return ErrorResponse(statusFor(category), message, category)
}

// writeServiceError logs err at a level matching its category and writes
// the response.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	category := services.Classify(err)
	logger := applog.FromContext(r.Context())
	switch category {
	case services.CategoryUnknown, services.CategoryUnavailable:
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, op,
			applog.NewFields().WithErrorKind(string(category)))
	default:
		logger.InfoContext(r.Context(), "Request rejected",
			applog.FieldOperation, op,
			applog.FieldErrorKind, string(category),
			applog.FieldError, err.Error())
	}
	ServiceError(err).Write(w)
}

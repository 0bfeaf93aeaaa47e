package main

import (
	"errors"
	"net/http"
)

// Error kinds. Handlers and the storage layer wrap them, the HTTP boundary
// maps them to status codes with errors.Is.
var (
	errConflict     = errors.New("conflict")
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("forbidden")
	errNotFound     = errors.New("not found")
	errInvalidToken = errors.New("invalid token")
)

var (
	errRecordNotFound    = errors.New("record not found")
	errDuplicateUsername = newAPIError(errConflict, "username already taken")
	errDuplicateEmail    = newAPIError(errConflict, "email already registered")
)

// apiError is an error kind paired with the message shown to the client.
type apiError struct {
	kind    error
	message string
}

func newAPIError(kind error, message string) *apiError {
	return &apiError{kind: kind, message: message}
}

func (e *apiError) Error() string {
	return e.message
}

func (e *apiError) Unwrap() error {
	return e.kind
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errConflict):
		return http.StatusConflict
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, errInvalidToken):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.message
	}
	return err.Error()
}

func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	err := writeJSON(w, status, envelope{"error": message}, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// handleError writes the response for an error returned by a handler step.
// Unknown errors are logged and reported as 500.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		app.serverErrorResponse(w, r, err)
	case http.StatusUnauthorized:
		app.invalidCredentialsResponse(w, r, messageFor(err))
	default:
		app.errorResponse(w, r, status, messageFor(err))
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string]string) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, fieldErrors)
}

func (app *application) invalidCredentialsResponse(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, message)
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

func (app *application) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(), "method", r.Method, "uri", r.URL.RequestURI(), "request_id", requestIDFromContext(r.Context()))
}

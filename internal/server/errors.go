package server

import (
	"fmt"
	"net/http"
)

// HTTPError is a transport level failure. It always produces a single
// top-level error object, whatever the shape of the request.
type HTTPError struct {
	Status  int
	Message string
	Headers http.Header
}

func (e *HTTPError) Error() string { return e.Message }

func httpError(status int, msg string) *HTTPError {
	return &HTTPError{Status: status, Message: msg}
}

const allowedMethods = "GET, POST"

var (
	errInvalidJSON      = httpError(http.StatusBadRequest, "POST body sent invalid JSON.")
	errInvalidVariables = httpError(http.StatusBadRequest, "Variables are invalid JSON.")
	errMissingQuery     = httpError(http.StatusBadRequest, "Must provide query string.")
	errBatchDisabled    = httpError(http.StatusBadRequest, "Batch GraphQL requests are not enabled.")
	errEmptyBatch       = httpError(http.StatusBadRequest, "Received an empty list in the batch request.")
	errBodyTooLarge     = httpError(http.StatusRequestEntityTooLarge, "POST body is too large.")
	errInvalidGzip      = httpError(http.StatusBadRequest, "POST body sent invalid gzip data.")
	errInvalidForm      = httpError(http.StatusBadRequest, "POST body sent invalid form data.")
	errInternal         = httpError(http.StatusInternalServerError, "Internal server error.")
)

var errUnsupportedMethod = &HTTPError{
	Status:  http.StatusMethodNotAllowed,
	Message: "GraphQL only supports GET and POST requests.",
	Headers: http.Header{"Allow": {allowedMethods}},
}

func errParamsNotObject(raw string) *HTTPError {
	return httpError(http.StatusBadRequest, fmt.Sprintf("GraphQL params should be a dict. Received %s.", raw))
}

func errRequiresPost(operationType string) *HTTPError {
	return &HTTPError{
		Status:  http.StatusMethodNotAllowed,
		Message: fmt.Sprintf("Can only perform a %s operation from a POST request.", operationType),
		Headers: http.Header{"Allow": {"POST"}},
	}
}

package server

import (
	"net/http"

	executor "github.com/hanpama/graphqlview/internal/executor"
	language "github.com/hanpama/graphqlview/internal/language"
)

// Outcome is the result of one operation request. It is one of DataOutcome,
// PartialOutcome, RequestErrorOutcome or TransportErrorOutcome. A nil
// Outcome stands for a request the explorer swallowed.
type Outcome interface {
	Status() int
	outcome()
}

// DataOutcome is a clean execution.
type DataOutcome struct {
	Data  any
	order *keyOrder
}

// PartialOutcome is an execution where some fields failed.
type PartialOutcome struct {
	Data   any
	Errors []executor.GraphQLError
	order  *keyOrder
}

// RequestErrorOutcome is a document rejected before execution: syntax,
// validation, operation selection or variable errors.
type RequestErrorOutcome struct {
	Errors []executor.GraphQLError
}

// TransportErrorOutcome is a protocol failure. It turns the whole response
// into a single error object.
type TransportErrorOutcome struct {
	Err *HTTPError
}

func (DataOutcome) Status() int             { return http.StatusOK }
func (PartialOutcome) Status() int          { return http.StatusOK }
func (RequestErrorOutcome) Status() int     { return http.StatusBadRequest }
func (o TransportErrorOutcome) Status() int { return o.Err.Status }

func (DataOutcome) outcome()           {}
func (PartialOutcome) outcome()        {}
func (RequestErrorOutcome) outcome()   {}
func (TransportErrorOutcome) outcome() {}

// outcomeOf classifies an execution result. order, when known, fixes the key
// order of the encoded data.
func outcomeOf(res *executor.ExecutionResult, order *keyOrder) Outcome {
	switch {
	case len(res.Errors) == 0:
		return DataOutcome{Data: res.Data, order: order}
	case res.HasRequestError():
		return RequestErrorOutcome{Errors: res.Errors}
	}
	return PartialOutcome{Data: res.Data, Errors: res.Errors, order: order}
}

func requestErrors(list language.ErrorList) RequestErrorOutcome {
	errs := make([]executor.GraphQLError, len(list))
	for i, e := range list {
		ge := executor.GraphQLError{Message: e.Message, Extensions: e.Extensions}
		for _, loc := range e.Locations {
			ge.Locations = append(ge.Locations, executor.Location{Line: loc.Line, Column: loc.Column})
		}
		errs[i] = ge
	}
	return RequestErrorOutcome{Errors: errs}
}

// statusOf folds item statuses into the response status: the highest one
// wins, so any failed item marks the whole response.
func statusOf(outcomes []Outcome) int {
	status := http.StatusOK
	for _, o := range outcomes {
		if o != nil && o.Status() > status {
			status = o.Status()
		}
	}
	return status
}

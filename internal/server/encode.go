package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	executor "github.com/hanpama/graphqlview/internal/executor"
)

// wireError is the error shape of every response. locations and path are
// always present and null when unknown.
type wireError struct {
	Message    string              `json:"message"`
	Locations  []executor.Location `json:"locations"`
	Path       executor.Path       `json:"path"`
	Extensions map[string]any      `json:"extensions,omitempty"`
}

// wireResponse is one response object. A nil Data omits the key, a non-nil
// pointer to nil writes "data": null.
type wireResponse struct {
	ID     any         `json:"id,omitempty"`
	Data   *any        `json:"data,omitempty"`
	Errors []wireError `json:"errors,omitempty"`
}

func wireErrors(errs []executor.GraphQLError) []wireError {
	out := make([]wireError, len(errs))
	for i, e := range errs {
		out[i] = wireError{Message: e.Message, Locations: e.Locations, Path: e.Path, Extensions: e.Extensions}
	}
	return out
}

func transportBody(e *HTTPError) wireResponse {
	return wireResponse{Errors: []wireError{{Message: e.Message}}}
}

// wire converts o into its response object. A nil Outcome encodes as null.
func wire(o Outcome, id any) *wireResponse {
	var r wireResponse
	switch o := o.(type) {
	case nil:
		return nil
	case DataOutcome:
		r.Data = orderedPtr(o.Data, o.order)
	case PartialOutcome:
		r.Data = orderedPtr(o.Data, o.order)
		r.Errors = wireErrors(o.Errors)
	case RequestErrorOutcome:
		r.Errors = wireErrors(o.Errors)
	case TransportErrorOutcome:
		r = transportBody(o.Err)
	default:
		panic(fmt.Sprintf("server: unexpected outcome %T", o))
	}
	r.ID = id
	return &r
}

func orderedPtr(data any, order *keyOrder) *any {
	var v any = orderedData{value: data, order: order}
	return &v
}

// encodeOutcomes serializes the response body: the one outcome in single
// mode, an array aligned with params in batch mode.
func encodeOutcomes(outcomes []Outcome, params []Params, batch, pretty bool) ([]byte, error) {
	if !batch {
		return marshal(wire(outcomes[0], nil), pretty)
	}
	items := make([]*wireResponse, len(outcomes))
	for i, o := range outcomes {
		items[i] = wire(o, params[i].ID)
	}
	return marshal(items, pretty)
}

func marshal(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

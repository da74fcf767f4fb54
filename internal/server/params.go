package server

import (
	"encoding/json"
	"net/url"
)

// Params is one operation request assembled from the body and the query
// string.
type Params struct {
	Query         *string
	Variables     map[string]any
	OperationName *string
	// ID correlates a batch item with its response. It holds the raw JSON
	// of the item's id, nil when absent or null.
	ID any
}

// assemble builds the operation requests of a decoded body.
func assemble(p payload, query url.Values, batchEnabled bool) ([]Params, *HTTPError) {
	if !p.isBatch {
		params, herr := buildParams(p.single, query)
		if herr != nil {
			return nil, herr
		}
		return []Params{params}, nil
	}

	if !batchEnabled {
		return nil, errBatchDisabled
	}
	if len(p.batch) == 0 {
		return nil, errEmptyBatch
	}
	items := make([]map[string]any, len(p.batch))
	for i, raw := range p.batch {
		m, herr := decodeItem(raw)
		if herr != nil {
			return nil, herr
		}
		items[i] = m
	}
	out := make([]Params, len(items))
	for i, item := range items {
		params, herr := buildParams(item, query)
		if herr != nil {
			return nil, herr
		}
		out[i] = params
	}
	return out, nil
}

// buildParams merges one body mapping with the query string. A non-empty
// body value wins; otherwise the query-string value applies.
func buildParams(data map[string]any, query url.Values) (Params, *HTTPError) {
	var p Params
	p.Query = pick(data, query, "query")
	p.OperationName = pick(data, query, "operationName")
	p.ID = data["id"]

	vars, herr := variables(data, query)
	if herr != nil {
		return Params{}, herr
	}
	p.Variables = vars
	return p, nil
}

func pick(data map[string]any, query url.Values, key string) *string {
	if s, ok := data[key].(string); ok && s != "" {
		return &s
	}
	if s := query.Get(key); s != "" {
		return &s
	}
	return nil
}

func variables(data map[string]any, query url.Values) (map[string]any, *HTTPError) {
	v, ok := data["variables"]
	if !ok || isEmpty(v) {
		if s := query.Get("variables"); s != "" {
			v = s
		} else {
			return nil, nil
		}
	}
	switch vars := v.(type) {
	case map[string]any:
		return vars, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(vars), &out); err != nil {
			return nil, errInvalidVariables
		}
		return out, nil
	}
	return nil, errInvalidVariables
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	}
	return false
}

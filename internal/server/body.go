package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// multipartMemory bounds the text fields kept in memory while decoding
// multipart bodies; file parts are dropped.
const multipartMemory = 32 << 20

// payload is a decoded request body. A JSON array body is a batch; every
// other body decodes into single.
type payload struct {
	single map[string]any
	batch  []json.RawMessage
	// isBatch is kept apart from batch so that "[]" stays a batch.
	isBatch bool
}

// mediaType returns the MIME type token of the Content-Type header, without
// parameters. It is empty when the header is missing or malformed.
func mediaType(r *http.Request) (string, map[string]string) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return "", nil
	}
	mt, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", nil
	}
	return strings.ToLower(mt), params
}

func readBody(r *http.Request, maxBytes int64) ([]byte, *HTTPError) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	var body io.Reader = r.Body
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, errInvalidGzip
		}
		defer zr.Close()
		body = zr
	}
	if maxBytes > 0 {
		body = io.LimitReader(body, maxBytes+1)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return nil, errBodyTooLarge
		case errors.Is(err, gzip.ErrChecksum), errors.Is(err, gzip.ErrHeader), errors.Is(err, io.ErrUnexpectedEOF):
			return nil, errInvalidGzip
		}
		return nil, errInvalidJSON
	}
	if maxBytes > 0 && int64(len(raw)) > maxBytes {
		return nil, errBodyTooLarge
	}
	return raw, nil
}

// decodeBody dispatches on the MIME type. Unknown or missing types decode
// into an empty mapping so that the missing query is reported downstream.
func decodeBody(r *http.Request, maxBytes int64) (payload, *HTTPError) {
	mt, params := mediaType(r)
	switch mt {
	case "application/graphql", "application/json", "application/x-www-form-urlencoded", "multipart/form-data":
	default:
		return payload{single: map[string]any{}}, nil
	}

	raw, herr := readBody(r, maxBytes)
	if herr != nil {
		return payload{}, herr
	}

	switch mt {
	case "application/graphql":
		return payload{single: map[string]any{"query": string(raw)}}, nil
	case "application/json":
		return decodeJSON(raw)
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return payload{}, errInvalidForm
		}
		return payload{single: flatten(values)}, nil
	default:
		boundary := params["boundary"]
		if boundary == "" {
			return payload{}, errInvalidForm
		}
		form, err := multipart.NewReader(bytes.NewReader(raw), boundary).ReadForm(multipartMemory)
		if err != nil {
			return payload{}, errInvalidForm
		}
		defer form.RemoveAll()
		return payload{single: flatten(form.Value)}, nil
	}
}

func decodeJSON(raw []byte) (payload, *HTTPError) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return payload{}, errInvalidJSON
		}
		return payload{batch: items, isBatch: true}, nil
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return payload{}, errInvalidJSON
	}
	m, ok := v.(map[string]any)
	if !ok {
		return payload{}, errParamsNotObject(string(trimmed))
	}
	return payload{single: m}, nil
}

// decodeItem decodes one element of a batch.
func decodeItem(raw json.RawMessage) (map[string]any, *HTTPError) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errInvalidJSON
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errParamsNotObject(string(raw))
	}
	// The id is echoed as sent, so numbers keep every digit.
	var tagged struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &tagged); err == nil && m["id"] != nil {
		m["id"] = tagged.ID
	}
	return m, nil
}

// flatten keeps the first value of every form key.
func flatten(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when an HTTP request is received.
// Context carries the request context.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler completes. Kind names the branch
// that served the request: "graphql", "graphiql", "preflight" or "error".
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Kind     string
	Batch    bool
	Duration time.Duration
}

package executor

// Location is a 1-based position in the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError represents an error that occurred during execution.
// Errors without a Path were raised before any field was resolved.
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult represents the result of executing a GraphQL query.
// Data is nil when execution never started.
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// HasRequestError reports whether any error was raised outside field
// resolution, such as operation selection or variable coercion.
func (r *ExecutionResult) HasRequestError() bool {
	for _, e := range r.Errors {
		if len(e.Path) == 0 {
			return true
		}
	}
	return false
}

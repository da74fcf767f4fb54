package events

import "time"

// GraphQLStart is emitted before executing one operation of a request.
// Index is the position of the operation inside a batch, 0 otherwise.
type GraphQLStart struct {
	Index         int
	Batch         bool
	Query         string
	OperationName string
}

// GraphQLFinish is emitted after one operation completed, whatever its
// outcome. OperationType is empty when the document did not parse. Status
// is the HTTP status the outcome maps to.
type GraphQLFinish struct {
	Index         int
	Batch         bool
	Query         string
	OperationName string
	OperationType string
	Status        int
	Errors        []error
	Duration      time.Duration
}

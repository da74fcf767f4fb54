package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	eventbus "github.com/hanpama/graphqlview/internal/eventbus"
	events "github.com/hanpama/graphqlview/internal/events"
	executor "github.com/hanpama/graphqlview/internal/executor"
	language "github.com/hanpama/graphqlview/internal/language"
)

// request is the per-request input of the coordinator.
type request struct {
	method string
	params []Params
	batch  bool
	// catch swallows the transport errors of single operations, so the
	// explorer still renders for a missing query or a GET mutation.
	catch bool
	root  any
}

// executeAll runs every operation of req and returns their outcomes in
// request order. Batch items run concurrently.
func (h *Handler) executeAll(ctx context.Context, req *request) []Outcome {
	outcomes := make([]Outcome, len(req.params))
	if len(req.params) == 1 {
		outcomes[0] = h.executeOne(ctx, req, 0)
		return outcomes
	}
	var eg errgroup.Group
	for i := range req.params {
		eg.Go(func() error {
			outcomes[i] = h.executeOne(ctx, req, i)
			return nil
		})
	}
	_ = eg.Wait()
	return outcomes
}

func (h *Handler) executeOne(ctx context.Context, req *request, i int) (out Outcome) {
	p := req.params[i]
	query, name := deref(p.Query), deref(p.OperationName)
	opType := ""
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Index: i, Batch: req.batch, Query: query, OperationName: name})

	defer func() {
		if rec := recover(); rec != nil {
			h.opt.Logger.Error("panic while executing operation",
				zap.Any("panic", rec),
				zap.String("operation", name),
				zap.Stack("stack"),
			)
			out = TransportErrorOutcome{Err: errInternal}
		}
		status, errs := http.StatusOK, []error(nil)
		if out != nil {
			status, errs = out.Status(), outcomeErrors(out)
		}
		eventbus.Publish(ctx, events.GraphQLFinish{
			Index:         i,
			Batch:         req.batch,
			Query:         query,
			OperationName: name,
			OperationType: opType,
			Status:        status,
			Errors:        errs,
			Duration:      time.Since(start),
		})
	}()

	if p.Query == nil {
		return req.reject(errMissingQuery)
	}
	doc, err := language.ParseQuery(query)
	if err != nil {
		return requestErrors(language.AsErrorList(err))
	}
	var order *keyOrder
	if op, err := executor.SelectOperation(doc, name); err == nil {
		opType = string(op.Operation)
		order = orderOf(op, doc.Fragments)
	}
	if req.method == http.MethodGet && opType != "" && opType != string(language.Query) {
		return req.reject(errRequiresPost(opType))
	}
	if ts := h.schema.Document; ts != nil {
		if errs := language.Validate(ts, doc); len(errs) > 0 {
			return requestErrors(errs)
		}
	}
	return outcomeOf(h.exec.ExecuteRequest(ctx, doc, name, p.Variables, req.root), order)
}

func (req *request) reject(e *HTTPError) Outcome {
	if req.catch {
		return nil
	}
	return TransportErrorOutcome{Err: e}
}

func outcomeErrors(o Outcome) []error {
	var out []error
	switch o := o.(type) {
	case PartialOutcome:
		for _, e := range o.Errors {
			out = append(out, e)
		}
	case RequestErrorOutcome:
		for _, e := range o.Errors {
			out = append(out, e)
		}
	case TransportErrorOutcome:
		out = append(out, o.Err)
	case DataOutcome:
	default:
		panic(fmt.Sprintf("server: unexpected outcome %T", o))
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

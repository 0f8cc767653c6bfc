package frappekit

import (
	"context"
	"net/http"
)

// DocUpdate is the input of an update mutation: the document ID and the
// fields to change.
type DocUpdate struct {
	ID   string
	Data any
}

// DeleteResult is the outcome of a delete.
type DeleteResult struct {
	Message string `json:"message"`
}

func documentMutation[In, Out any](name string, t Transport, shape Shape, build func(in In) *Request) *Mutation[In, Out] {
	return NewMutation(name, func(ctx context.Context, in In) (Out, error) {
		env, err := t.Send(ctx, build(in))
		if err != nil {
			var zero Out
			return zero, err
		}
		return DecodeEnvelope[Out](env, shape)
	})
}

// CreateDoc returns a mutation that inserts a document of doctype.
func CreateDoc[T any](t Transport, doctype string) *Mutation[any, T] {
	return documentMutation[any, T]("create:"+doctype, t, ShapeDocument, func(doc any) *Request {
		return &Request{Method: http.MethodPost, Path: resourcePath(doctype), Body: doc}
	})
}

// UpdateDoc returns a mutation that applies a partial update to a document
// of doctype.
func UpdateDoc[T any](t Transport, doctype string) *Mutation[DocUpdate, T] {
	return documentMutation[DocUpdate, T]("update:"+doctype, t, ShapeDocument, func(u DocUpdate) *Request {
		return &Request{Method: http.MethodPut, Path: documentPath(doctype, u.ID), Body: u.Data}
	})
}

// DeleteDoc returns a mutation that deletes a document of doctype by ID. A
// response without a message reports "ok".
func DeleteDoc(t Transport, doctype string) *Mutation[string, DeleteResult] {
	return NewMutation("delete:"+doctype, func(ctx context.Context, id string) (DeleteResult, error) {
		env, err := t.Send(ctx, &Request{Method: http.MethodDelete, Path: documentPath(doctype, id)})
		if err != nil {
			return DeleteResult{}, err
		}
		res, err := DecodeEnvelope[DeleteResult](env, ShapeRaw)
		if err != nil || res.Message == "" {
			return DeleteResult{Message: "ok"}, nil
		}
		return res, nil
	})
}

func callMutation[T any](method string, t Transport, endpoint string) *Mutation[Params, T] {
	return NewMutation(method+":"+endpoint, func(ctx context.Context, params Params) (T, error) {
		req := &Request{Method: method, Path: endpoint}
		if params != nil {
			req.Body = params
		}
		env, err := t.Send(ctx, req)
		if err != nil {
			var zero T
			return zero, err
		}
		return DecodeEnvelope[T](env, ShapeRPC)
	})
}

// PostCall returns a mutation that POSTs params as JSON to endpoint.
func PostCall[T any](t Transport, endpoint string) *Mutation[Params, T] {
	return callMutation[T](http.MethodPost, t, endpoint)
}

// PutCall returns a mutation that PUTs params as JSON to endpoint.
func PutCall[T any](t Transport, endpoint string) *Mutation[Params, T] {
	return callMutation[T](http.MethodPut, t, endpoint)
}

// DeleteCall returns a mutation that sends a DELETE to endpoint with params
// as its JSON body.
func DeleteCall[T any](t Transport, endpoint string) *Mutation[Params, T] {
	return callMutation[T](http.MethodDelete, t, endpoint)
}

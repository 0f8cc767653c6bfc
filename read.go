package frappekit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

// DefaultListLimit is the page size of list queries that set none.
const DefaultListLimit = 20

// Params is an argument bag for method calls. Strings are sent verbatim;
// everything else is JSON encoded.
type Params map[string]any

// Values encodes p as query parameters.
func (p Params) Values() url.Values {
	if len(p) == 0 {
		return nil
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	v := url.Values{}
	for _, k := range keys {
		v.Set(k, paramString(p[k]))
	}
	return v
}

func paramString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case fmt.Stringer:
		return x.String()
	default:
		b, err := encodeJSON(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func resourcePath(doctype string) string {
	return "/api/resource/" + url.PathEscape(doctype)
}

func documentPath(doctype, id string) string {
	return resourcePath(doctype) + "/" + url.PathEscape(id)
}

func mustJSON(v any) string {
	b, err := encodeJSON(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// listParams renders args as resource API query parameters.
func listParams(args ListArgs) url.Values {
	v := url.Values{}
	if len(args.Fields) > 0 {
		v.Set("fields", mustJSON(args.Fields))
	}
	if len(args.Filters) > 0 {
		v.Set("filters", mustJSON(args.Filters))
	}
	if len(args.OrFilters) > 0 {
		v.Set("or_filters", mustJSON(args.OrFilters))
	}
	if args.LimitStart != nil {
		v.Set("limit_start", strconv.Itoa(*args.LimitStart))
	}
	limit := DefaultListLimit
	if args.Limit != nil {
		limit = *args.Limit
	}
	v.Set("limit", strconv.Itoa(limit))
	if args.OrderBy != nil && args.OrderBy.Field != "" {
		order := args.OrderBy.Order
		if order == "" {
			order = Asc
		}
		v.Set("order_by", args.OrderBy.Field+" "+string(order))
	}
	if args.AsDict {
		v.Set("as_dict", "1")
	}
	return v
}

// GetDoc reads one document. The query is disabled while id is empty.
func GetDoc[T any](qc *QueryClient, doctype, id string, opts ...QueryOption) *Query[T] {
	t := qc.Transport()
	fetch := func(ctx context.Context) (T, error) {
		env, err := t.Send(ctx, &Request{Method: http.MethodGet, Path: documentPath(doctype, id)})
		if err != nil {
			var zero T
			return zero, err
		}
		return DecodeEnvelope[T](env, ShapeDocument)
	}
	opts = append([]QueryOption{WithEnabled(id != "")}, opts...)
	return NewQuery(qc, NewKey(doctype, "doc", id), fetch, opts...)
}

// GetList reads a page of documents.
func GetList[T any](qc *QueryClient, doctype string, args ListArgs, opts ...QueryOption) *Query[[]T] {
	t := qc.Transport()
	params := listParams(args)
	fetch := func(ctx context.Context) ([]T, error) {
		env, err := t.Send(ctx, &Request{Method: http.MethodGet, Path: resourcePath(doctype), Params: params})
		if err != nil {
			return nil, err
		}
		return DecodeEnvelope[[]T](env, ShapeList)
	}
	return NewQuery(qc, NewKey(doctype, "list", args), fetch, opts...)
}

// GetCount counts the documents matching filters by fetching their names.
func GetCount(qc *QueryClient, doctype string, filters []Filter, opts ...QueryOption) *Query[int] {
	t := qc.Transport()
	logger := qc.Logger()
	params := url.Values{}
	if len(filters) > 0 {
		params.Set("filters", mustJSON(filters))
	}
	params.Set("fields", `["name"]`)
	params.Set("limit_page_length", "0")

	fetch := func(ctx context.Context) (int, error) {
		env, err := t.Send(ctx, &Request{Method: http.MethodGet, Path: resourcePath(doctype), Params: params})
		if err != nil {
			return 0, err
		}
		count := CountOf(env.Body)
		if logger.IsDebug() {
			logger.Debug("count fetched", "doctype", doctype, "count", count, "raw", string(env.Body))
		}
		return count, nil
	}

	var keyArgs any
	if len(filters) > 0 {
		keyArgs = filters
	}
	return NewQuery(qc, NewKey(doctype, "count", keyArgs), fetch, opts...)
}

// GetCall performs a GET method call. The query is disabled while endpoint
// is empty.
func GetCall[T any](qc *QueryClient, endpoint string, params Params, opts ...QueryOption) *Query[T] {
	t := qc.Transport()
	values := params.Values()
	fetch := func(ctx context.Context) (T, error) {
		env, err := t.Send(ctx, &Request{Method: http.MethodGet, Path: endpoint, Params: values})
		if err != nil {
			var zero T
			return zero, err
		}
		return DecodeEnvelope[T](env, ShapeRPC)
	}

	var keyArgs any
	if len(params) > 0 {
		keyArgs = params
	}
	opts = append([]QueryOption{WithEnabled(endpoint != "")}, opts...)
	return NewQuery(qc, NewKey(endpoint, "call", keyArgs), fetch, opts...)
}

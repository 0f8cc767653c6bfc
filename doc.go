// Package frappekit is a client-side data-access layer for a Frappe-style
// document REST API:
//
//   - Transport client with session cookies, CSRF injection, timeouts and a
//     single error type (Client, ClientError)
//   - Envelope normalization of {data}, {message} and raw bodies (Unwrap, Decode)
//   - Query cache with staleness, in-flight de-duplication, background
//     revalidation and invalidation (QueryClient, Query)
//   - Mutations with an idle / running / succeeded / failed lifecycle (Mutation)
//   - Debounced document search (Search) and file upload with progress (FileUpload)
//   - Session manager with redirect-on-expiry (Auth)
//   - Prometheus metrics and hclog structured logging
//
// The client is constructed once and passed to everything that needs it:
//
//	client := frappekit.New(
//	    frappekit.WithBaseURL("https://erp.example.com"),
//	    frappekit.WithTimeout(15*time.Second),
//	)
//	qc := frappekit.NewQueryClient(client)
//
//	task := frappekit.GetDoc[Task](qc, "Task", "TASK-0001")
//	st := task.Observe(ctx) // starts the fetch; st.IsLoading is true
//	t, err := task.Fetch(ctx)
//
// Reads are keyed by resource, operation and canonical arguments, so two
// queries built from equal arguments share one cache entry and one network
// call. Writes never touch the cache; invalidate explicitly.
package frappekit

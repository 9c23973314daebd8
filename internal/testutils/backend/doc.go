// Package backend provides an in-process stand-in for the task analysis
// service, for tests that exercise the client and the CLI end to end.
//
// The fake mirrors the service's wire contract (routes, query parameter,
// success and error bodies) but its scoring is whatever the test configures:
//
//	srv := backend.New(t, backend.Options{Scores: []float64{82, 41, 12}})
//	client, _ := analysis.NewClient(srv.BaseURL)
//
// Every request is recorded and can be inspected with Requests.
package backend

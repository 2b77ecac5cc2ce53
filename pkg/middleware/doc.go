// Package middleware provides HTTP middleware for Reflow servers.
//
// The middleware wraps the server's handler and composes with any
// chi-compatible stack:
//
//	srv := server.New(nil, reg)
//	handler := middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	)(srv.Handler())
//	http.ListenAndServe(":8080", handler)
package middleware

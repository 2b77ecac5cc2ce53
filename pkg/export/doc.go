// Package export renders routes to static HTML documents.
//
// Each route renders with its own state store; the final store state is
// embedded as a hydration snapshot, so the exported documents match what
// the server would have produced for a first request. Documents go to a
// Publisher: local disk for builds, S3 for direct deployment.
package export

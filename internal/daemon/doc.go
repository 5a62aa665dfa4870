// Package daemon runs the long-lived clipvault process.
//
// It owns the flock-based single-instance lock under the data directory,
// runs preflight checks on start, and serves the HTTP API that fronts
// api.VideoService: uploads, trim and merge derivatives, signed link issuance
// and token-gated retrieval, plus /healthz and /metrics.
//
// Keep domain rules out of this package. Handlers decode requests, call the
// service, and translate services.Kind into status codes.
package daemon

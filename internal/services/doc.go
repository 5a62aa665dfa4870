// Package services defines shared utilities consumed by the asset pipeline
// and the HTTP transport.
//
// Key responsibilities:
//   - Context helpers that stamp operation names and correlation identifiers
//     for logging.
//   - The closed set of failure kinds plus the Wrap helper that lets the
//     transport translate any pipeline failure into a status code and a
//     client-safe message.
//
// Use these helpers when wiring new pipeline logic so error classification and
// observability stay uniform across upload, trim, merge and retrieval.
package services

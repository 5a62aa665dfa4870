// Package api composes the clip pipeline into the operations the transports
// call, and defines their wire-format types.
//
// VideoService wires the ingestion validator, the derivative orchestrator,
// the capability token service and the asset repository together. Each
// operation tags its context for logging, records a metric, and returns a
// services.Error whose kind the transport maps to a status code.
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Storage paths never appear in API payloads.
package api

// Package derive produces new assets from existing ones.
//
// Both operations follow the same sequence: resolve sources, validate the
// request, mint a fresh output path, run the engine, measure the output and
// record it. Validation happens before the engine runs, and any failure after
// the engine wrote its output removes that output, so a derivative either ends
// up fully recorded or leaves nothing behind. Derivatives are not checked
// against the upload duration window.
package derive

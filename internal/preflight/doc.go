// Package preflight provides readiness checks for the filesystem paths,
// external binaries and settings clipvault depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to serve when a required
//     check fails.
//   - The CLI "clipvault status" command renders the same results as a table.
package preflight

// Package main hosts the clipvault CLI entrypoint and command graph.
//
// The Cobra command tree works directly against the asset store and storage
// area named by the configuration: listing and removing clips, issuing signed
// links, admitting local files through the upload checks, and reporting
// preflight status. Whether the daemon is running is read from its lock file.
//
// Keep this package lean: new behaviour belongs in internal/api first and is
// surfaced here as a command or flag.
package main

// Package storage owns the on-disk clip area.
//
// Every file path the pipeline writes is minted here from a fixed prefix and a
// fresh UUID, never from caller input, so two requests cannot collide and a
// client cannot steer writes outside the area. Display filenames supplied by
// uploaders are normalized separately and never touch the filesystem.
package storage

// Package ingest admits staged uploads into the asset repository.
//
// A staged file is checked against the size cap, probed for its duration and
// checked against the accepted duration window. Only a file that passes every
// check is recorded; anything else is deleted before Admit returns, so the
// storage area never holds a file without a matching record.
package ingest

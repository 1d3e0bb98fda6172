// Package staging holds uploaded files on disk for the lifetime of one
// analysis request.
//
// A Store is created explicitly with its directory and TTL and handed to
// whoever needs it. Callers Put an upload, read it back with Open, and
// Remove it when done. Run sweeps anything left behind for longer than the
// TTL, including files from a previous process.
package staging

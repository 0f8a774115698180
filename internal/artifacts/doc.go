// Package artifacts maps completed page numbers to the locations their
// colorized output can be fetched from.
//
// Locations are derived from (fileId, pageNumber) alone, so a cache can be
// rebuilt from a list of completed pages without talking to the backend.
// Fetching the bytes is left to whoever renders them.
package artifacts

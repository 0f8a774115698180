// Package checkpoint decides, at startup and on file switch, whether to pick
// up server-side progress or discard it.
//
// The resolver lists known files, lets a Policy pick a candidate, fetches its
// authoritative state and, when there is progress worth keeping, blocks on a
// Decider. It never resumes on its own. Resuming adopts the fetched session
// and rebuilds the artifact cache from the completed page numbers; restarting
// deletes the server state and clears everything local.
//
// Listing, status and decider failures are soft: the resolver reports that
// nothing is resumable.
package checkpoint

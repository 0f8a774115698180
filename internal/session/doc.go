// Package session mirrors the server-side progress of one processing job.
//
// Reduce is a pure function over (session, event); Store serializes every
// mutation behind a single writer and fans snapshots out to subscribers.
// Command responses and checkpoint resumes go through Replace, which swaps the
// whole session at once.
package session

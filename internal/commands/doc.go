// Package commands issues control operations against the processing backend
// and applies the state the backend returns.
//
// A reply carrying state replaces the mirrored session wholesale; the
// dispatcher never merges fields. A reply without state, a rejected reply
// (success false) and a transport failure all leave the store untouched.
//
// Commands are neither queued nor serialized. When two commands for the
// same file are in flight the last reply to arrive wins. A reply whose file
// is no longer selected is dropped.
package commands

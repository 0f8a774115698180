// Package types provides shared data structures for the colorization coordinator.
//
// This package defines the server-authoritative session model mirrored by the
// coordinator and the wire shapes exchanged with the processing backend.
//
// Core Types:
//   - ProcessingSession: Tracked lifecycle of one uploaded source file
//   - BatchRecord: One contiguous run of pages processed as a unit
//   - Status, BatchStatus: Lifecycle enums
//
// Wire Types:
//   - Frame and the Event union: Push-channel messages
//   - CommandResponse, StatusResponse, FilesResponse: Request/response bodies
//   - UploadAck: Upload acknowledgment that seeds a new session
//
// Example Usage:
//
//	session := types.NewSession("f1", "volume1.pdf", 23, 10, types.DefaultPrompt)
//	// session.TotalBatches == 3, ranges 1-10, 11-20, 21-23
package types

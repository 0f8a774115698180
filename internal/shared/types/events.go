package types

import "encoding/json"

// EventType tags push-channel frames
type EventType string

const (
	EventProgress      EventType = "progress"
	EventPageComplete  EventType = "page_complete"
	EventBatchComplete EventType = "batch_complete"
	EventStatus        EventType = "status"
	EventError         EventType = "error"
	EventPong          EventType = "pong"
	EventPing          EventType = "ping"
)

// Frame is the envelope of every push-channel message
type Frame struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is the tagged union of inbound frames
type Event interface {
	Kind() EventType
	// Target returns the fileId the event refers to, empty if unscoped
	Target() string
}

// ProgressEvent reports that a page entered processing
type ProgressEvent struct {
	FileID      string  `json:"fileId"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
	BatchNumber int     `json:"batchNumber"`
	Percentage  float64 `json:"percentage"`
}

func (ProgressEvent) Kind() EventType  { return EventProgress }
func (e ProgressEvent) Target() string { return e.FileID }

// PageCompleteEvent reports that a colorized page was written
type PageCompleteEvent struct {
	FileID     string `json:"fileId"`
	PageNumber int    `json:"pageNumber"`
	OutputPath string `json:"outputPath"`
}

func (PageCompleteEvent) Kind() EventType  { return EventPageComplete }
func (e PageCompleteEvent) Target() string { return e.FileID }

// BatchCompleteEvent reports that every page of a batch finished
type BatchCompleteEvent struct {
	FileID      string `json:"fileId"`
	BatchNumber int    `json:"batchNumber"`
	StartPage   int    `json:"startPage"`
	EndPage     int    `json:"endPage"`
}

func (BatchCompleteEvent) Kind() EventType  { return EventBatchComplete }
func (e BatchCompleteEvent) Target() string { return e.FileID }

// StatusEvent reports a lifecycle change
type StatusEvent struct {
	FileID  string `json:"fileId"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func (StatusEvent) Kind() EventType  { return EventStatus }
func (e StatusEvent) Target() string { return e.FileID }

// ErrorEvent reports a business failure
type ErrorEvent struct {
	FileID     string `json:"fileId"`
	Error      string `json:"error"`
	PageNumber *int   `json:"pageNumber,omitempty"`
}

func (ErrorEvent) Kind() EventType  { return EventError }
func (e ErrorEvent) Target() string { return e.FileID }

// PongEvent acknowledges a keepalive ping
type PongEvent struct{}

func (PongEvent) Kind() EventType { return EventPong }
func (PongEvent) Target() string  { return "" }

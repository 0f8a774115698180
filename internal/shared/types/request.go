package types

// Command names a control operation
type Command string

const (
	CommandStart       Command = "start"
	CommandPause       Command = "pause"
	CommandContinue    Command = "continue"
	CommandStop        Command = "stop"
	CommandRetryBatch  Command = "retry_batch"
	CommandTrustAndRun Command = "trust_and_run"
)

// Path returns the backend route for the command
func (c Command) Path() string {
	switch c {
	case CommandRetryBatch:
		return "/retry-batch"
	case CommandTrustAndRun:
		return "/trust-and-run"
	default:
		return "/" + string(c)
	}
}

// ParseCommand maps a command name to a control command, excluding start
func ParseCommand(name string) (Command, bool) {
	switch c := Command(name); c {
	case CommandPause, CommandContinue, CommandStop, CommandRetryBatch, CommandTrustAndRun:
		return c, true
	}
	return "", false
}

// StartRequest begins processing a file
type StartRequest struct {
	FileID   string `json:"file_id"`
	StepSize int    `json:"step_size"`
	Prompt   string `json:"prompt"`
}

// ControlRequest issues a pause/continue/stop/retry/trust command
type ControlRequest struct {
	FileID  string  `json:"file_id"`
	Command Command `json:"command"`
}

// PromptUpdateRequest replaces the prompt for subsequent batches
type PromptUpdateRequest struct {
	FileID string `json:"file_id"`
	Prompt string `json:"prompt"`
}

// CommandResponse is returned by every control operation
type CommandResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	State   *ProcessingSession `json:"state,omitempty"`
}

// StatusResponse is returned by the status query
type StatusResponse struct {
	Success bool               `json:"success"`
	State   *ProcessingSession `json:"state,omitempty"`
	Message string             `json:"message"`
}

// FileSummary is one entry of the file listing
type FileSummary struct {
	FileID         string  `json:"fileId"`
	Filename       string  `json:"filename"`
	TotalPages     int     `json:"totalPages"`
	Status         Status  `json:"status"`
	CompletedPages int     `json:"completedPages"`
	CreatedAt      float64 `json:"createdAt"`
	UpdatedAt      float64 `json:"updatedAt"`
}

// FilesResponse is returned by the file listing
type FilesResponse struct {
	Success bool          `json:"success"`
	Files   []FileSummary `json:"files"`
}

// DeleteResponse is returned by file deletion
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UploadAck is the backend acknowledgment of an uploaded source file
type UploadAck struct {
	Success    bool   `json:"success"`
	FileID     string `json:"fileId"`
	Filename   string `json:"filename"`
	TotalPages int    `json:"totalPages"`
	Message    string `json:"message"`
}

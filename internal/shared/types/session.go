package types

import (
	"fmt"
	"slices"
)

// DefaultPrompt is used when a job is started without an explicit prompt
const DefaultPrompt = "Colorize this manga page with vibrant, natural colors while preserving the original line art and details."

// Step size bounds accepted by the backend
const (
	MinStepSize     = 1
	MaxStepSize     = 50
	DefaultStepSize = 10
)

// Status represents the processing lifecycle of a session
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// transitions lists the legal non-reset moves of the lifecycle state machine.
// A move to idle is always legal (explicit reset).
var transitions = map[Status][]Status{
	StatusIdle:       {StatusProcessing},
	StatusProcessing: {StatusPaused, StatusCompleted, StatusError},
	StatusPaused:     {StatusProcessing, StatusError},
	StatusError:      {StatusProcessing},
	StatusCompleted:  {},
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the lifecycle may move from one status to another
func CanTransition(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	if from == to || to == StatusIdle {
		return true
	}
	return slices.Contains(transitions[from], to)
}

// BatchStatus represents the state of a single batch
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// BatchRecord describes one contiguous page range
type BatchRecord struct {
	BatchNumber    int         `json:"batchNumber"`
	StartPage      int         `json:"startPage"`
	EndPage        int         `json:"endPage"`
	Status         BatchStatus `json:"status"`
	PromptUsed     *string     `json:"promptUsed,omitempty"`
	CompletedPages []int       `json:"completedPages"`
}

// Contains reports whether page falls inside the batch range
func (b *BatchRecord) Contains(page int) bool {
	return page >= b.StartPage && page <= b.EndPage
}

// ProcessingSession is the mirrored progress of one uploaded source file
type ProcessingSession struct {
	FileID         string        `json:"fileId"`
	Filename       string        `json:"filename"`
	TotalPages     int           `json:"totalPages"`
	StepSize       int           `json:"stepSize"`
	CurrentBatch   int           `json:"currentBatch"`
	TotalBatches   int           `json:"totalBatches"`
	Status         Status        `json:"status"`
	CurrentPrompt  string        `json:"currentPrompt"`
	CompletedPages []int         `json:"completedPages"`
	Batches        []BatchRecord `json:"batches"`
	ErrorMessage   *string       `json:"errorMessage,omitempty"`
}

// TotalBatches returns the number of stepSize ranges covering totalPages
func TotalBatches(totalPages, stepSize int) int {
	if totalPages <= 0 || stepSize <= 0 {
		return 0
	}
	return (totalPages + stepSize - 1) / stepSize
}

// PartitionBatches splits [1,totalPages] into pending stepSize ranges.
// The final range may be shorter.
func PartitionBatches(totalPages, stepSize int) []BatchRecord {
	n := TotalBatches(totalPages, stepSize)
	batches := make([]BatchRecord, 0, n)
	for i := 0; i < n; i++ {
		batches = append(batches, BatchRecord{
			BatchNumber:    i + 1,
			StartPage:      i*stepSize + 1,
			EndPage:        min((i+1)*stepSize, totalPages),
			Status:         BatchPending,
			CompletedPages: []int{},
		})
	}
	return batches
}

// NewSession builds an idle session from an upload acknowledgment
func NewSession(fileID, filename string, totalPages, stepSize int, prompt string) *ProcessingSession {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &ProcessingSession{
		FileID:         fileID,
		Filename:       filename,
		TotalPages:     totalPages,
		StepSize:       stepSize,
		CurrentBatch:   0,
		TotalBatches:   TotalBatches(totalPages, stepSize),
		Status:         StatusIdle,
		CurrentPrompt:  prompt,
		CompletedPages: []int{},
		Batches:        PartitionBatches(totalPages, stepSize),
	}
}

// Clone returns a deep copy
func (s *ProcessingSession) Clone() *ProcessingSession {
	if s == nil {
		return nil
	}
	c := *s
	c.CompletedPages = slices.Clone(s.CompletedPages)
	if c.CompletedPages == nil {
		c.CompletedPages = []int{}
	}
	c.Batches = make([]BatchRecord, len(s.Batches))
	for i, b := range s.Batches {
		nb := b
		nb.CompletedPages = slices.Clone(b.CompletedPages)
		if b.PromptUsed != nil {
			p := *b.PromptUsed
			nb.PromptUsed = &p
		}
		c.Batches[i] = nb
	}
	if s.ErrorMessage != nil {
		msg := *s.ErrorMessage
		c.ErrorMessage = &msg
	}
	return &c
}

// HasPage reports whether page is recorded as completed
func (s *ProcessingSession) HasPage(page int) bool {
	return slices.Contains(s.CompletedPages, page)
}

// BatchFor returns the index of the batch containing page, or -1
func (s *ProcessingSession) BatchFor(page int) int {
	for i := range s.Batches {
		if s.Batches[i].Contains(page) {
			return i
		}
	}
	return -1
}

// BatchIndex returns the index of the batch with the given number, or -1
func (s *ProcessingSession) BatchIndex(number int) int {
	for i := range s.Batches {
		if s.Batches[i].BatchNumber == number {
			return i
		}
	}
	return -1
}

// Resumable reports whether the session holds progress worth resuming
func (s *ProcessingSession) Resumable() bool {
	return s != nil && len(s.CompletedPages) > 0 && s.Status != StatusCompleted
}

// Progress returns the completed percentage rounded to one decimal
func (s *ProcessingSession) Progress() float64 {
	if s.TotalPages <= 0 {
		return 0
	}
	pct := float64(len(s.CompletedPages)) / float64(s.TotalPages) * 100
	return float64(int(pct*10+0.5)) / 10
}

// Validate checks the session invariants
func (s *ProcessingSession) Validate() error {
	if s.FileID == "" {
		return fmt.Errorf("session has empty fileId")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("session %s: unknown status %q", s.FileID, s.Status)
	}
	if s.CurrentBatch < 0 || s.CurrentBatch > s.TotalBatches {
		return fmt.Errorf("session %s: currentBatch %d outside [0,%d]", s.FileID, s.CurrentBatch, s.TotalBatches)
	}

	seen := make(map[int]struct{}, len(s.CompletedPages))
	for _, p := range s.CompletedPages {
		if p < 1 || p > s.TotalPages {
			return fmt.Errorf("session %s: completed page %d outside [1,%d]", s.FileID, p, s.TotalPages)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("session %s: completed page %d listed twice", s.FileID, p)
		}
		seen[p] = struct{}{}
	}

	if len(s.Batches) != s.TotalBatches {
		return fmt.Errorf("session %s: %d batches, expected %d", s.FileID, len(s.Batches), s.TotalBatches)
	}
	next := 1
	for _, b := range s.Batches {
		if b.StartPage != next || b.EndPage < b.StartPage || b.EndPage-b.StartPage+1 > s.StepSize {
			return fmt.Errorf("session %s: batch %d range %d-%d breaks partition", s.FileID, b.BatchNumber, b.StartPage, b.EndPage)
		}
		next = b.EndPage + 1
	}
	if s.TotalPages > 0 && next != s.TotalPages+1 {
		return fmt.Errorf("session %s: batches end at page %d, expected %d", s.FileID, next-1, s.TotalPages)
	}
	return nil
}

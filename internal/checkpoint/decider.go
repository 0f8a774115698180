package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

// Decision is the operator's answer to a resumable checkpoint
type Decision string

const (
	DecisionResume  Decision = "resume"
	DecisionRestart Decision = "restart"
)

var (
	ErrInvalidDecision   = errors.New("invalid checkpoint decision")
	ErrNoPendingDecision = errors.New("no checkpoint decision pending")
	ErrDecisionPending   = errors.New("a checkpoint decision is already pending")
)

// ParseDecision maps "resume" or "restart" to a Decision
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionResume, DecisionRestart:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
}

// Candidate is the checkpoint offered to the operator
type Candidate struct {
	FileID         string                   `json:"fileId"`
	Filename       string                   `json:"filename"`
	CompletedPages int                      `json:"completedPages"`
	TotalPages     int                      `json:"totalPages"`
	Progress       float64                  `json:"progress"`
	Status         types.Status             `json:"status"`
	Session        *types.ProcessingSession `json:"-"`
}

func newCandidate(s *types.ProcessingSession) Candidate {
	return Candidate{
		FileID:         s.FileID,
		Filename:       s.Filename,
		CompletedPages: len(s.CompletedPages),
		TotalPages:     s.TotalPages,
		Progress:       s.Progress(),
		Status:         s.Status,
		Session:        s,
	}
}

// Decider answers the resume-or-restart question. Decide may block.
type Decider interface {
	Decide(ctx context.Context, c Candidate) (Decision, error)
}

// StaticDecider always gives the same answer
type StaticDecider Decision

// Decide implements Decider
func (d StaticDecider) Decide(context.Context, Candidate) (Decision, error) {
	return ParseDecision(string(d))
}

// PromptDecider parks the candidate until someone answers it
type PromptDecider struct {
	mu      sync.Mutex
	pending *Candidate
	answer  chan Decision
}

// NewPromptDecider creates a decider with nothing pending
func NewPromptDecider() *PromptDecider {
	return &PromptDecider{}
}

// Decide blocks until Answer is called or ctx is done
func (p *PromptDecider) Decide(ctx context.Context, c Candidate) (Decision, error) {
	ch := make(chan Decision, 1)

	p.mu.Lock()
	if p.pending != nil {
		p.mu.Unlock()
		return "", ErrDecisionPending
	}
	p.pending = &c
	p.answer = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.pending = nil
		p.answer = nil
		p.mu.Unlock()
	}()

	select {
	case d := <-ch:
		return d, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Pending returns the candidate awaiting an answer
func (p *PromptDecider) Pending() (Candidate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return Candidate{}, false
	}
	return *p.pending, true
}

// Answer resolves the pending decision
func (p *PromptDecider) Answer(d Decision) error {
	if _, err := ParseDecision(string(d)); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.answer == nil {
		return ErrNoPendingDecision
	}
	p.answer <- d
	p.answer = nil
	return nil
}

package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

// Backend issues command requests
type Backend interface {
	Start(ctx context.Context, req types.StartRequest) (*types.CommandResponse, error)
	Control(ctx context.Context, fileID string, cmd types.Command) (*types.CommandResponse, error)
	UpdatePrompt(ctx context.Context, fileID, prompt string) (*types.CommandResponse, error)
}

// Store receives authoritative state
type Store interface {
	Replace(s *types.ProcessingSession)
}

// Selection tracks the selected file
type Selection interface {
	Get() (string, bool)
	Set(fileID string)
}

// Dispatcher issues control commands
type Dispatcher struct {
	backend   Backend
	store     Store
	selection Selection
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

// NewDispatcher creates a dispatcher
func NewDispatcher(backend Backend, store Store, selection Selection, logger *zap.Logger, metrics *monitoring.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		backend:   backend,
		store:     store,
		selection: selection,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start begins processing fileID. An empty prompt uses the default one. On
// success the file becomes the selected one.
func (d *Dispatcher) Start(ctx context.Context, fileID string, stepSize int, prompt string) (*types.CommandResponse, error) {
	if fileID == "" {
		return nil, ErrNoFileSelected
	}
	if stepSize < types.MinStepSize || stepSize > types.MaxStepSize {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidStepSize, stepSize, types.MinStepSize, types.MaxStepSize)
	}
	if prompt == "" {
		prompt = types.DefaultPrompt
	}

	timer := monitoring.NewTimer(d.metrics, string(types.CommandStart))
	resp, err := d.backend.Start(ctx, types.StartRequest{FileID: fileID, StepSize: stepSize, Prompt: prompt})
	if err == nil && resp.Success {
		d.selection.Set(fileID)
	}
	return d.settle(types.CommandStart, fileID, resp, err, timer)
}

// Control issues pause, continue, stop, retry_batch or trust_and_run for the selected file
func (d *Dispatcher) Control(ctx context.Context, cmd types.Command) (*types.CommandResponse, error) {
	if _, ok := types.ParseCommand(string(cmd)); !ok {
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
	fileID, ok := d.selection.Get()
	if !ok {
		return nil, ErrNoFileSelected
	}

	timer := monitoring.NewTimer(d.metrics, string(cmd))
	resp, err := d.backend.Control(ctx, fileID, cmd)
	return d.settle(cmd, fileID, resp, err, timer)
}

// Pause pauses the selected file after its current batch
func (d *Dispatcher) Pause(ctx context.Context) (*types.CommandResponse, error) {
	return d.Control(ctx, types.CommandPause)
}

// Continue resumes a paused file
func (d *Dispatcher) Continue(ctx context.Context) (*types.CommandResponse, error) {
	return d.Control(ctx, types.CommandContinue)
}

// Stop stops processing
func (d *Dispatcher) Stop(ctx context.Context) (*types.CommandResponse, error) {
	return d.Control(ctx, types.CommandStop)
}

// RetryBatch reprocesses the current batch
func (d *Dispatcher) RetryBatch(ctx context.Context) (*types.CommandResponse, error) {
	return d.Control(ctx, types.CommandRetryBatch)
}

// TrustAndRun resumes without pausing between the remaining batches
func (d *Dispatcher) TrustAndRun(ctx context.Context) (*types.CommandResponse, error) {
	return d.Control(ctx, types.CommandTrustAndRun)
}

// UpdatePrompt replaces the prompt for subsequent batches of the selected file
func (d *Dispatcher) UpdatePrompt(ctx context.Context, prompt string) (*types.CommandResponse, error) {
	fileID, ok := d.selection.Get()
	if !ok {
		return nil, ErrNoFileSelected
	}

	timer := monitoring.NewTimer(d.metrics, "prompt")
	resp, err := d.backend.UpdatePrompt(ctx, fileID, prompt)
	return d.settle("prompt", fileID, resp, err, timer)
}

// settle applies a command reply
func (d *Dispatcher) settle(cmd types.Command, fileID string, resp *types.CommandResponse, err error, timer *monitoring.Timer) (*types.CommandResponse, error) {
	log := d.logger.With(zap.String("command", string(cmd)), zap.String("file_id", fileID))

	if err != nil {
		timer.Stop("error")
		log.Warn("Command failed", zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", cmd, fileID, err)
	}
	if resp == nil {
		timer.Stop("error")
		return nil, fmt.Errorf("%s %s: empty response", cmd, fileID)
	}
	if !resp.Success {
		timer.Stop("rejected")
		log.Warn("Command rejected", zap.String("message", resp.Message))
		return resp, &Error{Command: cmd, Message: resp.Message}
	}
	timer.Stop("ok")

	if resp.State == nil {
		log.Debug("Command accepted without state")
		return resp, nil
	}

	selected, _ := d.selection.Get()
	if selected != fileID || resp.State.FileID != fileID {
		log.Info("Discarding command state for a file that is no longer selected",
			zap.String("selected", selected),
			zap.String("state_file_id", resp.State.FileID))
		return resp, nil
	}
	if verr := resp.State.Validate(); verr != nil {
		log.Warn("Backend state breaks session invariants", zap.Error(verr))
	}

	d.store.Replace(resp.State)
	log.Info("Session replaced from command response",
		zap.String("status", string(resp.State.Status)),
		zap.Int("completed_pages", len(resp.State.CompletedPages)))
	return resp, nil
}

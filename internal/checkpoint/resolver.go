package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

// Backend serves the queries the resolver needs
type Backend interface {
	ListFiles(ctx context.Context) (*types.FilesResponse, error)
	Status(ctx context.Context, fileID string) (*types.StatusResponse, error)
	DeleteFile(ctx context.Context, fileID string) (*types.DeleteResponse, error)
}

// Store receives the adopted session
type Store interface {
	Replace(s *types.ProcessingSession)
	Reset()
}

// Cache is rebuilt from completed pages
type Cache interface {
	Rehydrate(fileID string, pages []int)
	Clear()
}

// Selection tracks the selected file
type Selection interface {
	Set(fileID string)
	Clear()
}

// Outcome describes what a resolution did
type Outcome string

const (
	// OutcomeNothing means there was nothing to resume
	OutcomeNothing Outcome = "nothing"
	// OutcomeResumed means the server session was adopted after a resume decision
	OutcomeResumed Outcome = "resumed"
	// OutcomeRestarted means the server state was deleted and everything local cleared
	OutcomeRestarted Outcome = "restarted"
	// OutcomeAdopted means a non-resumable session was adopted for viewing
	OutcomeAdopted Outcome = "adopted"
	// OutcomeCleared means the switched-to file has no server state yet
	OutcomeCleared Outcome = "cleared"
)

// Result reports a resolution
type Result struct {
	Outcome Outcome
	FileID  string
	Session *types.ProcessingSession
}

// Options configures optional resolver behavior
type Options struct {
	// Policy picks the startup candidate; defaults to FirstResumable
	Policy  Policy
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Resolver runs checkpoint resolution
type Resolver struct {
	backend   Backend
	store     Store
	cache     Cache
	selection Selection
	decider   Decider
	policy    Policy
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

// NewResolver creates a resolver
func NewResolver(backend Backend, store Store, cache Cache, selection Selection, decider Decider, opts Options) *Resolver {
	if opts.Policy == nil {
		opts.Policy = FirstResumable
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Resolver{
		backend:   backend,
		store:     store,
		cache:     cache,
		selection: selection,
		decider:   decider,
		policy:    opts.Policy,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Resolve runs startup resolution
func (r *Resolver) Resolve(ctx context.Context) (Result, error) {
	files, err := r.backend.ListFiles(ctx)
	if err != nil || files == nil || !files.Success {
		r.logger.Info("Checkpoint listing unavailable, nothing to resume", zap.Error(err))
		return r.done(Result{Outcome: OutcomeNothing}), nil
	}

	candidate, ok := r.policy(files.Files)
	if !ok {
		r.logger.Debug("No resumable file listed", zap.Int("files", len(files.Files)))
		return r.done(Result{Outcome: OutcomeNothing}), nil
	}

	state, ok := r.fetch(ctx, candidate.FileID)
	if !ok || !state.Resumable() {
		return r.done(Result{Outcome: OutcomeNothing}), nil
	}
	return r.decide(ctx, state)
}

// Switch resolves an explicit switch to fileID
func (r *Resolver) Switch(ctx context.Context, fileID string) (Result, error) {
	state, ok := r.fetch(ctx, fileID)
	switch {
	case !ok:
		r.store.Reset()
		r.cache.Clear()
		r.selection.Set(fileID)
		return r.done(Result{Outcome: OutcomeCleared, FileID: fileID}), nil
	case state.Resumable():
		return r.decide(ctx, state)
	default:
		r.adopt(state)
		return r.done(Result{Outcome: OutcomeAdopted, FileID: fileID, Session: state}), nil
	}
}

// fetch returns the authoritative state of fileID, if the backend has one
func (r *Resolver) fetch(ctx context.Context, fileID string) (*types.ProcessingSession, bool) {
	status, err := r.backend.Status(ctx, fileID)
	if err != nil {
		r.logger.Info("Checkpoint status unavailable", zap.String("file_id", fileID), zap.Error(err))
		return nil, false
	}
	if status == nil || !status.Success || status.State == nil {
		return nil, false
	}
	return status.State, true
}

func (r *Resolver) decide(ctx context.Context, state *types.ProcessingSession) (Result, error) {
	log := r.logger.With(zap.String("file_id", state.FileID))
	log.Info("Resumable checkpoint found",
		zap.Int("completed_pages", len(state.CompletedPages)),
		zap.Int("total_pages", state.TotalPages),
		zap.String("status", string(state.Status)))

	decision, err := r.decider.Decide(ctx, newCandidate(state))
	if errors.Is(err, ErrDecisionPending) {
		log.Info("Another checkpoint decision is pending, selection unchanged")
		return r.done(Result{Outcome: OutcomeNothing}), fmt.Errorf("checkpoint %s: %w", state.FileID, err)
	}
	if err != nil {
		log.Info("Checkpoint decision unavailable, nothing resumed", zap.Error(err))
		return r.done(Result{Outcome: OutcomeNothing}), nil
	}

	switch decision {
	case DecisionResume:
		r.adopt(state)
		log.Info("Checkpoint resumed")
		return r.done(Result{Outcome: OutcomeResumed, FileID: state.FileID, Session: state}), nil

	case DecisionRestart:
		resp, err := r.backend.DeleteFile(ctx, state.FileID)
		if err != nil {
			return Result{Outcome: OutcomeNothing}, fmt.Errorf("restart %s: %w", state.FileID, err)
		}
		if resp == nil || !resp.Success {
			return Result{Outcome: OutcomeNothing}, fmt.Errorf("restart %s: backend refused deletion", state.FileID)
		}
		r.store.Reset()
		r.cache.Clear()
		r.selection.Clear()
		log.Info("Checkpoint discarded")
		return r.done(Result{Outcome: OutcomeRestarted, FileID: state.FileID}), nil

	default:
		log.Warn("Unknown checkpoint decision", zap.String("decision", string(decision)))
		return r.done(Result{Outcome: OutcomeNothing}), nil
	}
}

// adopt installs state as the mirrored session and rebuilds the cache
func (r *Resolver) adopt(state *types.ProcessingSession) {
	r.store.Replace(state)
	r.cache.Rehydrate(state.FileID, state.CompletedPages)
	r.selection.Set(state.FileID)
}

func (r *Resolver) done(res Result) Result {
	r.metrics.RecordCheckpoint(string(res.Outcome))
	return res
}

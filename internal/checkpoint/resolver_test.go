package checkpoint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/artifacts"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/session"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ListFiles(ctx context.Context) (*types.FilesResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*types.FilesResponse)
	return resp, args.Error(1)
}

func (m *mockBackend) Status(ctx context.Context, fileID string) (*types.StatusResponse, error) {
	args := m.Called(ctx, fileID)
	resp, _ := args.Get(0).(*types.StatusResponse)
	return resp, args.Error(1)
}

func (m *mockBackend) DeleteFile(ctx context.Context, fileID string) (*types.DeleteResponse, error) {
	args := m.Called(ctx, fileID)
	resp, _ := args.Get(0).(*types.DeleteResponse)
	return resp, args.Error(1)
}

// recordingDecider counts how often it was asked
type recordingDecider struct {
	answer Decision
	err    error
	asked  []Candidate
}

func (d *recordingDecider) Decide(_ context.Context, c Candidate) (Decision, error) {
	d.asked = append(d.asked, c)
	return d.answer, d.err
}

type fixture struct {
	backend   *mockBackend
	store     *session.Store
	cache     *artifacts.Cache
	selection *session.Selection
	decider   *recordingDecider
	resolver  *Resolver
}

func newFixture(t *testing.T, answer Decision) *fixture {
	t.Helper()
	f := &fixture{
		backend:   &mockBackend{},
		cache:     artifacts.NewCache(artifacts.NewLocator("http://backend")),
		selection: &session.Selection{},
		decider:   &recordingDecider{answer: answer},
	}
	f.store = session.NewStore(f.cache, nil, nil)
	f.resolver = NewResolver(f.backend, f.store, f.cache, f.selection, f.decider, Options{Metrics: monitoring.NewMetrics()})
	t.Cleanup(func() { f.backend.AssertExpectations(t) })
	return f
}

func pausedSeven() *types.ProcessingSession {
	s := types.NewSession("f1", "vol1.pdf", 20, 10, "")
	s.Status = types.StatusPaused
	s.CurrentBatch = 1
	s.CompletedPages = []int{1, 2, 3, 4, 5, 6, 7}
	s.Batches[0].CompletedPages = []int{1, 2, 3, 4, 5, 6, 7}
	s.Batches[0].Status = types.BatchProcessing
	return s
}

func listing(files ...types.FileSummary) *types.FilesResponse {
	return &types.FilesResponse{Success: true, Files: files}
}

func summary(id string, status types.Status, completed int) types.FileSummary {
	return types.FileSummary{FileID: id, Filename: id + ".pdf", TotalPages: 20, Status: status, CompletedPages: completed}
}

func TestResolveResumesPausedCheckpoint(t *testing.T) {
	f := newFixture(t, DecisionResume)
	f.backend.On("ListFiles", mock.Anything).Return(listing(summary("f1", types.StatusPaused, 7)), nil).Once()
	f.backend.On("Status", mock.Anything, "f1").Return(&types.StatusResponse{Success: true, State: pausedSeven()}, nil).Once()

	res, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)

	require.Len(t, f.decider.asked, 1)
	assert.Equal(t, 7, f.decider.asked[0].CompletedPages)
	assert.Equal(t, 35.0, f.decider.asked[0].Progress)

	assert.Equal(t, OutcomeResumed, res.Outcome)
	assert.Equal(t, pausedSeven(), f.store.Current())
	assert.Equal(t, 7, f.cache.Len())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, f.cache.Pages())
	loc, _ := f.cache.Get(7)
	assert.Equal(t, "http://backend/api/image/f1/7", loc)

	selected, ok := f.selection.Get()
	assert.True(t, ok)
	assert.Equal(t, "f1", selected)
}

func TestResolveNeverAutoResumes(t *testing.T) {
	f := newFixture(t, DecisionResume)
	f.decider.err = context.Canceled
	f.backend.On("ListFiles", mock.Anything).Return(listing(summary("f1", types.StatusPaused, 7)), nil).Once()
	f.backend.On("Status", mock.Anything, "f1").Return(&types.StatusResponse{Success: true, State: pausedSeven()}, nil).Once()

	res, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNothing, res.Outcome)
	assert.Nil(t, f.store.Current())
	assert.Zero(t, f.cache.Len())
}

func TestResolveRestart(t *testing.T) {
	f := newFixture(t, DecisionRestart)
	f.selection.Set("f1")
	f.cache.Rehydrate("f1", []int{1})
	f.backend.On("ListFiles", mock.Anything).Return(listing(summary("f1", types.StatusPaused, 7)), nil).Once()
	f.backend.On("Status", mock.Anything, "f1").Return(&types.StatusResponse{Success: true, State: pausedSeven()}, nil).Once()
	f.backend.On("DeleteFile", mock.Anything, "f1").Return(&types.DeleteResponse{Success: true, Message: "File f1 deleted successfully"}, nil).Once()

	res, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeRestarted, res.Outcome)
	assert.Nil(t, f.store.Current())
	assert.Zero(t, f.cache.Len())
	_, ok := f.selection.Get()
	assert.False(t, ok)
}

func TestResolveRestartDeleteFailure(t *testing.T) {
	f := newFixture(t, DecisionRestart)
	f.selection.Set("f1")
	f.backend.On("ListFiles", mock.Anything).Return(listing(summary("f1", types.StatusPaused, 7)), nil).Once()
	f.backend.On("Status", mock.Anything, "f1").Return(&types.StatusResponse{Success: true, State: pausedSeven()}, nil).Once()
	f.backend.On("DeleteFile", mock.Anything, "f1").Return(nil, errors.New("connection refused")).Once()

	_, err := f.resolver.Resolve(context.Background())
	assert.Error(t, err)
	selected, _ := f.selection.Get()
	assert.Equal(t, "f1", selected)
}

func TestResolveSoftFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *mockBackend)
	}{
		{
			name: "listing fails",
			setup: func(b *mockBackend) {
				b.On("ListFiles", mock.Anything).Return(nil, errors.New("connection refused")).Once()
			},
		},
		{
			name: "listing unsuccessful",
			setup: func(b *mockBackend) {
				b.On("ListFiles", mock.Anything).Return(&types.FilesResponse{Success: false}, nil).Once()
			},
		},
		{
			name: "nothing qualifies",
			setup: func(b *mockBackend) {
				b.On("ListFiles", mock.Anything).Return(listing(
					summary("f1", types.StatusCompleted, 20),
					summary("f2", types.StatusIdle, 0),
				), nil).Once()
			},
		},
		{
			name: "status fails",
			setup: func(b *mockBackend) {
				b.On("ListFiles", mock.Anything).Return(listing(summary("f1", types.StatusPaused, 7)), nil).Once()
				b.On("Status", mock.Anything, "f1").Return(nil, errors.New("timeout")).Once()
			},
		},
		{
			name: "status without state",
			setup: func(b *mockBackend) {
				b.On("ListFiles", mock.Anything).Return(listing(summary("f1", types.StatusPaused, 7)), nil).Once()
				b.On("Status", mock.Anything, "f1").Return(&types.StatusResponse{Success: false, Message: "No processing state found for this file"}, nil).Once()
			},
		},
		{
			name: "state completed meanwhile",
			setup: func(b *mockBackend) {
				done := pausedSeven()
				done.Status = types.StatusCompleted
				b.On("ListFiles", mock.Anything).Return(listing(summary("f1", types.StatusPaused, 7)), nil).Once()
				b.On("Status", mock.Anything, "f1").Return(&types.StatusResponse{Success: true, State: done}, nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DecisionResume)
			tt.setup(f.backend)

			res, err := f.resolver.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, OutcomeNothing, res.Outcome)
			assert.Empty(t, f.decider.asked)
			assert.Nil(t, f.store.Current())
		})
	}
}

func TestResolvePolicyIsReplaceable(t *testing.T) {
	f := newFixture(t, DecisionResume)
	f.resolver = NewResolver(f.backend, f.store, f.cache, f.selection, f.decider, Options{Policy: MostRecentlyUpdated})

	older := summary("f0", types.StatusPaused, 3)
	older.UpdatedAt = 10
	newer := summary("f1", types.StatusPaused, 7)
	newer.UpdatedAt = 20
	f.backend.On("ListFiles", mock.Anything).Return(listing(older, newer), nil).Once()
	f.backend.On("Status", mock.Anything, "f1").Return(&types.StatusResponse{Success: true, State: pausedSeven()}, nil).Once()

	res, err := f.resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "f1", res.FileID)
}

func TestFirstResumable(t *testing.T) {
	files := []types.FileSummary{
		summary("a", types.StatusCompleted, 20),
		summary("b", types.StatusIdle, 0),
		summary("c", types.StatusError, 4),
		summary("d", types.StatusPaused, 9),
	}
	got, ok := FirstResumable(files)
	require.True(t, ok)
	assert.Equal(t, "c", got.FileID)

	_, ok = FirstResumable(files[:2])
	assert.False(t, ok)
}

func TestSwitch(t *testing.T) {
	t.Run("resumable asks", func(t *testing.T) {
		f := newFixture(t, DecisionResume)
		f.backend.On("Status", mock.Anything, "f1").Return(&types.StatusResponse{Success: true, State: pausedSeven()}, nil).Once()

		res, err := f.resolver.Switch(context.Background(), "f1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeResumed, res.Outcome)
		assert.Len(t, f.decider.asked, 1)
	})

	t.Run("completed is adopted for viewing", func(t *testing.T) {
		f := newFixture(t, DecisionRestart)
		done := pausedSeven()
		done.Status = types.StatusCompleted
		f.backend.On("Status", mock.Anything, "f1").Return(&types.StatusResponse{Success: true, State: done}, nil).Once()

		res, err := f.resolver.Switch(context.Background(), "f1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAdopted, res.Outcome)
		assert.Empty(t, f.decider.asked)
		assert.Equal(t, 7, f.cache.Len())
		assert.Equal(t, types.StatusCompleted, f.store.Current().Status)
	})

	t.Run("no state clears and selects", func(t *testing.T) {
		f := newFixture(t, DecisionResume)
		f.store.Replace(pausedSeven())
		f.cache.Rehydrate("f1", []int{1, 2})
		f.backend.On("Status", mock.Anything, "f2").Return(&types.StatusResponse{Success: false}, nil).Once()

		res, err := f.resolver.Switch(context.Background(), "f2")
		require.NoError(t, err)
		assert.Equal(t, OutcomeCleared, res.Outcome)
		assert.Nil(t, f.store.Current())
		assert.Zero(t, f.cache.Len())
		selected, _ := f.selection.Get()
		assert.Equal(t, "f2", selected)
	})
}

func TestPromptDecider(t *testing.T) {
	p := NewPromptDecider()
	assert.ErrorIs(t, p.Answer(DecisionResume), ErrNoPendingDecision)

	result := make(chan Decision, 1)
	go func() {
		d, err := p.Decide(context.Background(), newCandidate(pausedSeven()))
		assert.NoError(t, err)
		result <- d
	}()

	require.Eventually(t, func() bool {
		_, ok := p.Pending()
		return ok
	}, time.Second, time.Millisecond)

	pending, _ := p.Pending()
	assert.Equal(t, "f1", pending.FileID)
	assert.Equal(t, 7, pending.CompletedPages)

	_, err := p.Decide(context.Background(), pending)
	assert.ErrorIs(t, err, ErrDecisionPending)

	assert.ErrorIs(t, p.Answer("maybe"), ErrInvalidDecision)
	require.NoError(t, p.Answer(DecisionRestart))
	assert.Equal(t, DecisionRestart, <-result)

	_, ok := p.Pending()
	assert.False(t, ok)
}

func TestSwitchWhileDecisionPending(t *testing.T) {
	f := newFixture(t, DecisionResume)
	prompt := NewPromptDecider()
	f.resolver = NewResolver(f.backend, f.store, f.cache, f.selection, prompt, Options{})

	other := pausedSeven()
	other.FileID = "f2"
	f.backend.On("Status", mock.Anything, "f1").Return(&types.StatusResponse{Success: true, State: pausedSeven()}, nil).Once()
	f.backend.On("Status", mock.Anything, "f2").Return(&types.StatusResponse{Success: true, State: other}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _, _ = f.resolver.Switch(ctx, "f1") }()
	require.Eventually(t, func() bool {
		_, ok := prompt.Pending()
		return ok
	}, time.Second, time.Millisecond)

	res, err := f.resolver.Switch(context.Background(), "f2")
	assert.ErrorIs(t, err, ErrDecisionPending)
	assert.Equal(t, OutcomeNothing, res.Outcome)
	_, selected := f.selection.Get()
	assert.False(t, selected)
	assert.Nil(t, f.store.Current())
}

func TestPromptDeciderCancel(t *testing.T) {
	p := NewPromptDecider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Decide(ctx, newCandidate(pausedSeven()))
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := p.Pending()
	assert.False(t, ok)
}

func TestStaticDecider(t *testing.T) {
	d, err := StaticDecider("resume").Decide(context.Background(), Candidate{})
	require.NoError(t, err)
	assert.Equal(t, DecisionResume, d)

	_, err = StaticDecider("ask").Decide(context.Background(), Candidate{})
	assert.ErrorIs(t, err, ErrInvalidDecision)
}

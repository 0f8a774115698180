package commands

import (
	"context"
	"errors"
	"testing"

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

func (m *mockBackend) Start(ctx context.Context, req types.StartRequest) (*types.CommandResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*types.CommandResponse)
	return resp, args.Error(1)
}

func (m *mockBackend) Control(ctx context.Context, fileID string, cmd types.Command) (*types.CommandResponse, error) {
	args := m.Called(ctx, fileID, cmd)
	resp, _ := args.Get(0).(*types.CommandResponse)
	return resp, args.Error(1)
}

func (m *mockBackend) UpdatePrompt(ctx context.Context, fileID, prompt string) (*types.CommandResponse, error) {
	args := m.Called(ctx, fileID, prompt)
	resp, _ := args.Get(0).(*types.CommandResponse)
	return resp, args.Error(1)
}

type fixture struct {
	backend   *mockBackend
	cache     *artifacts.Cache
	store     *session.Store
	selection *session.Selection
	dispatch  *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend:   &mockBackend{},
		cache:     artifacts.NewCache(artifacts.NewLocator("http://backend")),
		selection: &session.Selection{},
	}
	f.store = session.NewStore(f.cache, nil, nil)
	f.dispatch = NewDispatcher(f.backend, f.store, f.selection, nil, monitoring.NewMetrics())
	t.Cleanup(func() { f.backend.AssertExpectations(t) })
	return f
}

func serverState(status types.Status, pages ...int) *types.ProcessingSession {
	s := types.NewSession("f1", "vol1.pdf", 23, 10, "")
	s.Status = status
	s.CompletedPages = append([]int{}, pages...)
	return s
}

func TestCommandsRequireSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := []func(context.Context) (*types.CommandResponse, error){
		f.dispatch.Pause,
		f.dispatch.Continue,
		f.dispatch.Stop,
		f.dispatch.RetryBatch,
		f.dispatch.TrustAndRun,
		func(ctx context.Context) (*types.CommandResponse, error) { return f.dispatch.UpdatePrompt(ctx, "x") },
	}
	for _, call := range calls {
		_, err := call(ctx)
		assert.ErrorIs(t, err, ErrNoFileSelected)
	}
	f.backend.AssertNotCalled(t, "Control", mock.Anything, mock.Anything, mock.Anything)
	f.backend.AssertNotCalled(t, "UpdatePrompt", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.dispatch.Start(ctx, "", 10, "")
	assert.ErrorIs(t, err, ErrNoFileSelected)

	for _, step := range []int{0, -1, 51} {
		_, err := f.dispatch.Start(ctx, "f1", step, "")
		assert.ErrorIs(t, err, ErrInvalidStepSize)
	}
	f.backend.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestStartSelectsFileAndReplacesState(t *testing.T) {
	f := newFixture(t)
	state := serverState(types.StatusProcessing)
	state.CurrentBatch = 1

	f.backend.On("Start", mock.Anything, types.StartRequest{FileID: "f1", StepSize: 10, Prompt: types.DefaultPrompt}).
		Return(&types.CommandResponse{Success: true, Message: "Processing started with step size 10", State: state}, nil).
		Once()

	resp, err := f.dispatch.Start(context.Background(), "f1", 10, "")
	require.NoError(t, err)
	assert.True(t, resp.Success)

	selected, ok := f.selection.Get()
	assert.True(t, ok)
	assert.Equal(t, "f1", selected)
	assert.Equal(t, state, f.store.Current())
}

func TestResponseStateReplacesWholesale(t *testing.T) {
	f := newFixture(t)
	f.selection.Set("f1")

	local := serverState(types.StatusProcessing, 1, 2, 3, 4, 5, 6, 7, 8)
	msg := "stale"
	local.ErrorMessage = &msg
	f.store.Replace(local)

	server := serverState(types.StatusPaused, 1, 2)
	f.backend.On("Control", mock.Anything, "f1", types.CommandPause).
		Return(&types.CommandResponse{Success: true, Message: "Processing paused", State: server}, nil).
		Once()

	_, err := f.dispatch.Pause(context.Background())
	require.NoError(t, err)
	assert.Equal(t, server, f.store.Current())
}

func TestRetryBatchDropsStaleArtifacts(t *testing.T) {
	f := newFixture(t)
	f.selection.Set("f1")

	f.store.Replace(serverState(types.StatusPaused, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13))
	f.store.Apply(types.PageCompleteEvent{FileID: "f1", PageNumber: 14})
	require.Equal(t, 14, f.cache.Len())

	server := serverState(types.StatusProcessing, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	f.backend.On("Control", mock.Anything, "f1", types.CommandRetryBatch).
		Return(&types.CommandResponse{Success: true, Message: "Retrying batch 2", State: server}, nil).
		Once()

	_, err := f.dispatch.RetryBatch(context.Background())
	require.NoError(t, err)

	assert.Len(t, f.store.Current().CompletedPages, 10)
	assert.Equal(t, f.store.Current().CompletedPages, f.cache.Pages())
	_, ok := f.cache.Get(11)
	assert.False(t, ok)
}

func TestResponseWithoutStateLeavesStore(t *testing.T) {
	f := newFixture(t)
	f.selection.Set("f1")
	local := serverState(types.StatusPaused, 1, 2)
	f.store.Replace(local)
	version := f.store.Version()

	f.backend.On("Control", mock.Anything, "f1", types.CommandContinue).
		Return(&types.CommandResponse{Success: true, Message: "Processing continued"}, nil).
		Once()

	_, err := f.dispatch.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, version, f.store.Version())
	assert.Equal(t, local, f.store.Current())
}

func TestRejectedCommandLeavesStore(t *testing.T) {
	f := newFixture(t)
	f.selection.Set("f1")
	f.store.Replace(serverState(types.StatusPaused, 1))
	version := f.store.Version()

	f.backend.On("Control", mock.Anything, "f1", types.CommandRetryBatch).
		Return(&types.CommandResponse{Success: false, Message: "nothing to retry", State: serverState(types.StatusIdle)}, nil).
		Once()

	resp, err := f.dispatch.RetryBatch(context.Background())
	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, types.CommandRetryBatch, cmdErr.Command)
	assert.Equal(t, "nothing to retry", cmdErr.Message)
	assert.False(t, resp.Success)
	assert.Equal(t, version, f.store.Version())
}

func TestTransportFailureLeavesStore(t *testing.T) {
	f := newFixture(t)
	f.selection.Set("f1")
	f.store.Replace(serverState(types.StatusProcessing, 1))
	version := f.store.Version()

	boom := errors.New("connection refused")
	f.backend.On("Control", mock.Anything, "f1", types.CommandStop).Return(nil, boom).Once()

	_, err := f.dispatch.Stop(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, version, f.store.Version())
}

func TestStateForDeselectedFileIsDiscarded(t *testing.T) {
	f := newFixture(t)
	f.selection.Set("f1")
	f.store.Replace(serverState(types.StatusProcessing, 1))
	version := f.store.Version()

	f.backend.On("Control", mock.Anything, "f1", types.CommandTrustAndRun).
		Run(func(mock.Arguments) { f.selection.Set("f2") }).
		Return(&types.CommandResponse{Success: true, Message: "Trust mode enabled", State: serverState(types.StatusProcessing, 1, 2)}, nil).
		Once()

	resp, err := f.dispatch.TrustAndRun(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, version, f.store.Version())
}

func TestUpdatePrompt(t *testing.T) {
	f := newFixture(t)
	f.selection.Set("f1")

	state := serverState(types.StatusPaused, 1)
	state.CurrentPrompt = "sepia"
	f.backend.On("UpdatePrompt", mock.Anything, "f1", "sepia").
		Return(&types.CommandResponse{Success: true, Message: "Prompt updated successfully", State: state}, nil).
		Once()

	_, err := f.dispatch.UpdatePrompt(context.Background(), "sepia")
	require.NoError(t, err)
	assert.Equal(t, "sepia", f.store.Current().CurrentPrompt)
}

func TestControlRejectsUnknownCommand(t *testing.T) {
	f := newFixture(t)
	f.selection.Set("f1")

	_, err := f.dispatch.Control(context.Background(), types.CommandStart)
	assert.Error(t, err)
}

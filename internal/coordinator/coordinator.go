package coordinator

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/api"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/artifacts"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/checkpoint"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/commands"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/config"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/logging"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/session"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/id"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/paths"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/transport"
)

// Coordinator owns every session component
type Coordinator struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *monitoring.Metrics

	client     *api.Client
	cache      *artifacts.Cache
	store      *session.Store
	selection  *session.Selection
	channel    *transport.Channel
	dispatcher *commands.Dispatcher
	resolver   *checkpoint.Resolver
	prompt     *checkpoint.PromptDecider
}

// New builds a coordinator from configuration
func New(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics) (*Coordinator, error) {
	c := &Coordinator{
		cfg:       cfg,
		logger:    logger.Component("coordinator"),
		metrics:   metrics,
		selection: &session.Selection{},
	}

	var decider checkpoint.Decider
	switch cfg.Processing.Decision {
	case "", "ask":
		c.prompt = checkpoint.NewPromptDecider()
		decider = c.prompt
	default:
		d, err := checkpoint.ParseDecision(cfg.Processing.Decision)
		if err != nil {
			return nil, fmt.Errorf("checkpoint decision: %w", err)
		}
		decider = checkpoint.StaticDecider(d)
	}

	c.client = api.New(api.Options{
		BaseURL:           cfg.Backend.URL,
		Timeout:           cfg.Backend.Timeout.Duration,
		Retries:           cfg.Backend.Retries,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Logger:            logger.Component("api"),
	})
	c.cache = artifacts.NewCache(artifacts.NewLocator(cfg.Backend.URL))
	c.store = session.NewStore(c.cache, logger.Component("store"), metrics)

	header := http.Header{}
	header.Set("X-Client-ID", id.Client().String())
	c.channel = transport.New(c.store, transport.Options{
		BaseURL:           cfg.Backend.URL,
		KeepaliveInterval: cfg.Channel.KeepaliveInterval.Duration,
		ReconnectDelay:    cfg.Channel.ReconnectDelay.Duration,
		HandshakeTimeout:  cfg.Channel.HandshakeTimeout.Duration,
		Header:            header,
		Logger:            logger.Component("channel"),
		Metrics:           metrics,
	})

	c.dispatcher = commands.NewDispatcher(c.client, c.store, c.selection, logger.Component("commands"), metrics)
	c.resolver = checkpoint.NewResolver(c.client, c.store, c.cache, c.selection, decider, checkpoint.Options{
		Logger:  logger.Component("checkpoint"),
		Metrics: metrics,
	})
	return c, nil
}

// Run resolves the startup checkpoint, follows the selected file and blocks
// until ctx is done
func (c *Coordinator) Run(ctx context.Context) error {
	c.channel.Connect("")
	defer c.channel.Disconnect()

	res, err := c.resolver.Resolve(ctx)
	if err != nil {
		c.logger.Warn("Startup checkpoint resolution failed", zap.Error(err))
	} else {
		c.logger.Info("Startup checkpoint resolved",
			zap.String("outcome", string(res.Outcome)),
			zap.String("file_id", res.FileID))
	}
	c.follow()

	<-ctx.Done()
	return nil
}

// Upload sends a PDF and starts mirroring it as an idle session
func (c *Coordinator) Upload(ctx context.Context, path string) (*types.UploadAck, error) {
	path, err := paths.RegularFile(path)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	ack, err := c.client.Upload(ctx, path)
	if err != nil {
		return nil, err
	}
	if !ack.Success {
		return ack, fmt.Errorf("upload %s: %s", path, ack.Message)
	}

	c.store.Replace(types.NewSession(ack.FileID, ack.Filename, ack.TotalPages, c.cfg.Processing.StepSize, c.cfg.Processing.Prompt))
	c.cache.Clear()
	c.selection.Set(ack.FileID)
	c.follow()

	c.logger.Info("File uploaded",
		zap.String("file_id", ack.FileID),
		zap.String("filename", ack.Filename),
		zap.Int("total_pages", ack.TotalPages))
	return ack, nil
}

// SelectFile switches to fileID, running checkpoint resolution for it
func (c *Coordinator) SelectFile(ctx context.Context, fileID string) (checkpoint.Result, error) {
	res, err := c.resolver.Switch(ctx, fileID)
	c.follow()
	return res, err
}

// Start begins processing the selected file
func (c *Coordinator) Start(ctx context.Context, stepSize int, prompt string) (*types.CommandResponse, error) {
	fileID, _ := c.selection.Get()
	if stepSize == 0 {
		stepSize = c.cfg.Processing.StepSize
	}
	if prompt == "" {
		prompt = c.cfg.Processing.Prompt
	}
	resp, err := c.dispatcher.Start(ctx, fileID, stepSize, prompt)
	c.follow()
	return resp, err
}

// Control issues a control command for the selected file
func (c *Coordinator) Control(ctx context.Context, cmd types.Command) (*types.CommandResponse, error) {
	return c.dispatcher.Control(ctx, cmd)
}

// UpdatePrompt replaces the prompt for subsequent batches
func (c *Coordinator) UpdatePrompt(ctx context.Context, prompt string) (*types.CommandResponse, error) {
	return c.dispatcher.UpdatePrompt(ctx, prompt)
}

// ListFiles returns the backend file listing
func (c *Coordinator) ListFiles(ctx context.Context) ([]types.FileSummary, error) {
	resp, err := c.client.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// DeleteFile removes a file on the backend and clears it locally when selected
func (c *Coordinator) DeleteFile(ctx context.Context, fileID string) error {
	resp, err := c.client.DeleteFile(ctx, fileID)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("delete %s: %s", fileID, resp.Message)
	}
	if selected, _ := c.selection.Get(); selected == fileID {
		c.Reset()
	}
	return nil
}

// Reset clears the session, cache and selection
func (c *Coordinator) Reset() {
	c.store.Reset()
	c.cache.Clear()
	c.selection.Clear()
	c.follow()
}

// follow points the push channel at the selected file
func (c *Coordinator) follow() {
	fileID, _ := c.selection.Get()
	if c.channel.FileID() == fileID && c.channel.State() != transport.StateDisconnected {
		return
	}
	c.logger.Debug("Retargeting push channel", zap.String("file_id", fileID))
	c.channel.Connect(fileID)
}

// Store returns the session store
func (c *Coordinator) Store() *session.Store { return c.store }

// Cache returns the artifact cache
func (c *Coordinator) Cache() *artifacts.Cache { return c.cache }

// Selection returns the selected file
func (c *Coordinator) Selection() (string, bool) { return c.selection.Get() }

// ChannelState returns the push channel lifecycle state
func (c *Coordinator) ChannelState() transport.State { return c.channel.State() }

// Prompt returns the interactive decider, or nil when decisions are static
func (c *Coordinator) Prompt() *checkpoint.PromptDecider { return c.prompt }

// Locator returns the artifact locator
func (c *Coordinator) Locator() artifacts.Locator { return c.cache.Locator() }

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/id"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

const (
	headerRequestID = tracing.Header
	headerClientID  = "X-Client-ID"
)

// Options configures a Client
type Options struct {
	BaseURL string
	Timeout time.Duration
	// Retries applies to idempotent queries only
	Retries int
	// RequestsPerSecond throttles outgoing calls; zero means unlimited
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// Client talks to the processing backend
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	baseURL string
	logger  *zap.Logger
}

// New creates a backend client
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")

	// Pooled transport from retryablehttp; retries are driven by resty
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(baseURL+"/api").
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", "MangaColor-Coordinator/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTransport(retryClient.HTTPClient.Transport).
		AddRetryCondition(retryIdempotent)

	restyClient.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader(headerRequestID, tracing.RequestIDOrNew(r.Context()).String())
		r.SetHeader(headerClientID, id.Client().String())
		return nil
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(1, int(opts.RequestsPerSecond)))
	}

	breaker := resilience.New("backend", resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsFailure: countsAgainstBackend,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Backend circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		baseURL: baseURL,
		logger:  logger,
	}
}

// retryIdempotent retries queries on transport errors and 5xx replies
func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil {
		return false
	}
	switch resp.Request.Method {
	case http.MethodGet, http.MethodDelete:
		return err != nil || resp.StatusCode() >= http.StatusInternalServerError
	default:
		return false
	}
}

// BaseURL returns the backend base URL without the /api prefix
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BreakerState returns the backend circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Upload sends a PDF and returns the backend acknowledgment
func (c *Client) Upload(ctx context.Context, path string) (*types.UploadAck, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("upload: failed to read %s: %w", path, err)
	}
	if !mt.Is("application/pdf") {
		return nil, fmt.Errorf("upload %s (%s): %w", path, mt.String(), ErrNotPDF)
	}

	return call[types.UploadAck](ctx, c, "upload", func(r *resty.Request) (*resty.Response, error) {
		return r.SetFile("file", path).Post("/upload")
	})
}

// Start begins processing a file
func (c *Client) Start(ctx context.Context, req types.StartRequest) (*types.CommandResponse, error) {
	return call[types.CommandResponse](ctx, c, "start", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).Post(types.CommandStart.Path())
	})
}

// Control issues pause, continue, stop, retry_batch or trust_and_run
func (c *Client) Control(ctx context.Context, fileID string, cmd types.Command) (*types.CommandResponse, error) {
	return call[types.CommandResponse](ctx, c, string(cmd), func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(types.ControlRequest{FileID: fileID, Command: cmd}).Post(cmd.Path())
	})
}

// UpdatePrompt replaces the prompt used for subsequent batches
func (c *Client) UpdatePrompt(ctx context.Context, fileID, prompt string) (*types.CommandResponse, error) {
	return call[types.CommandResponse](ctx, c, "prompt", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(types.PromptUpdateRequest{FileID: fileID, Prompt: prompt}).Patch("/prompt")
	})
}

// Status fetches the authoritative state of a file
func (c *Client) Status(ctx context.Context, fileID string) (*types.StatusResponse, error) {
	return call[types.StatusResponse](ctx, c, "status", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("fileId", fileID).Get("/status/{fileId}")
	})
}

// ListFiles lists every file the backend knows about
func (c *Client) ListFiles(ctx context.Context) (*types.FilesResponse, error) {
	return call[types.FilesResponse](ctx, c, "list files", func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/files")
	})
}

// DeleteFile removes a file and its processing state
func (c *Client) DeleteFile(ctx context.Context, fileID string) (*types.DeleteResponse, error) {
	return call[types.DeleteResponse](ctx, c, "delete file", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("fileId", fileID).Delete("/file/{fileId}")
	})
}

// call runs one exchange through the limiter and the breaker and decodes the reply
func call[T any](ctx context.Context, c *Client, op string, send func(r *resty.Request) (*resty.Response, error)) (*T, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", op, err)
	}

	start := time.Now()
	out, err := resilience.Do(c.breaker, func() (*T, error) {
		var result T
		var failure errorBody

		r := c.resty.R().
			SetContext(ctx).
			SetResult(&result).
			SetError(&failure)

		resp, err := send(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if resp.IsError() {
			return nil, &Error{Op: op, Status: resp.StatusCode(), Detail: failure.text(resp.StatusCode())}
		}
		return &result, nil
	})

	if err != nil {
		c.logger.Debug("Backend call failed",
			zap.String("op", op),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	c.logger.Debug("Backend call completed",
		zap.String("op", op),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

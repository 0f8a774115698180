package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/artifacts"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/checkpoint"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/config"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/session"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/transport"
)

// Coordinator is what the observer API drives
type Coordinator interface {
	Upload(ctx context.Context, path string) (*types.UploadAck, error)
	SelectFile(ctx context.Context, fileID string) (checkpoint.Result, error)
	Start(ctx context.Context, stepSize int, prompt string) (*types.CommandResponse, error)
	Control(ctx context.Context, cmd types.Command) (*types.CommandResponse, error)
	UpdatePrompt(ctx context.Context, prompt string) (*types.CommandResponse, error)
	ListFiles(ctx context.Context) ([]types.FileSummary, error)
	DeleteFile(ctx context.Context, fileID string) error
	Reset()

	Store() *session.Store
	Cache() *artifacts.Cache
	Selection() (string, bool)
	ChannelState() transport.State
	Prompt() *checkpoint.PromptDecider
}

// Server wraps the observer HTTP server
type Server struct {
	router   *gin.Engine
	http     *http.Server
	coord    Coordinator
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	upgrader websocket.Upgrader
}

// New creates the observer API server
func New(cfg *config.Config, coord Coordinator, logger *zap.Logger, metrics *monitoring.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		coord:   coord,
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local observers only
			},
		},
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(logger))
	router.Use(monitoring.Middleware(metrics))

	corsCfg := DefaultCORSConfig()
	if len(cfg.Observer.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Observer.AllowOrigins
	}
	router.Use(CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limit := DefaultRateLimitConfig()
		limit.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limit.Burst = cfg.RateLimit.Burst
		router.Use(RateLimit(limit))
	}

	router.GET("/health", s.health)
	router.GET("/metrics", monitoring.Handler(metrics))
	router.GET("/ws", s.stream)

	api := router.Group("/api")
	{
		// Session
		api.GET("/session", s.getSession)
		api.GET("/artifacts", s.getArtifacts)
		api.POST("/reset", s.reset)

		// Files
		api.GET("/files", s.listFiles)
		api.POST("/upload", s.upload)
		api.POST("/select/:fileId", s.selectFile)
		api.DELETE("/files/:fileId", s.deleteFile)

		// Commands
		api.POST("/start", s.start)
		api.POST("/commands/:command", s.command)
		api.PATCH("/prompt", s.updatePrompt)

		// Checkpoint
		api.GET("/checkpoint", s.getCheckpoint)
		api.POST("/checkpoint", s.answerCheckpoint)
	}

	s.router = router
	s.http = &http.Server{
		Addr:              cfg.Observer.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Shutdown is called
func (s *Server) Run() error {
	s.logger.Info("Starting observer API", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down observer API...")
	return s.http.Shutdown(ctx)
}

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/api"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/checkpoint"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/commands"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/utils"
)

// UploadRequest names a local PDF to send to the backend
type UploadRequest struct {
	Path string `json:"path" binding:"required"`
}

// StartRequest starts the selected file
type StartRequest struct {
	StepSize int    `json:"stepSize"`
	Prompt   string `json:"prompt"`
}

// PromptRequest replaces the prompt
type PromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// DecisionRequest answers the pending checkpoint
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// SessionView is the observer view of the store
type SessionView struct {
	Session      *types.ProcessingSession `json:"session"`
	Version      uint64                   `json:"version"`
	Channel      string                   `json:"channel"`
	SelectedFile string                   `json:"selectedFile,omitempty"`
	Progress     float64                  `json:"progress"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"channel": s.coord.ChannelState().String(),
	})
}

func (s *Server) view() SessionView {
	snap := s.coord.Store().Snapshot()
	selected, _ := s.coord.Selection()
	v := SessionView{
		Session:      snap.Session,
		Version:      snap.Version,
		Channel:      s.coord.ChannelState().String(),
		SelectedFile: selected,
	}
	if snap.Session != nil {
		v.Progress = snap.Session.Progress()
	}
	return v
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.view())
}

func (s *Server) getArtifacts(c *gin.Context) {
	cache := s.coord.Cache()
	pages := make(map[string]string, cache.Len())
	for page, loc := range cache.Snapshot() {
		pages[strconv.Itoa(page)] = loc
	}
	c.JSON(http.StatusOK, gin.H{
		"fileId": cache.FileID(),
		"pages":  pages,
	})
}

func (s *Server) reset(c *gin.Context) {
	s.coord.Reset()
	c.JSON(http.StatusOK, s.view())
}

func (s *Server) listFiles(c *gin.Context) {
	files, err := s.coord.ListFiles(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) upload(c *gin.Context) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidatePath(req.Path); err != nil {
		s.fail(c, err)
		return
	}

	ack, err := s.coord.Upload(c.Request.Context(), req.Path)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

func (s *Server) selectFile(c *gin.Context) {
	fileID := c.Param("fileId")
	if err := utils.ValidateID(fileID, "fileId", true); err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.coord.SelectFile(c.Request.Context(), fileID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"outcome": res.Outcome,
		"fileId":  res.FileID,
		"state":   s.view(),
	})
}

func (s *Server) deleteFile(c *gin.Context) {
	fileID := c.Param("fileId")
	if err := utils.ValidateID(fileID, "fileId", true); err != nil {
		s.fail(c, err)
		return
	}

	if err := s.coord.DeleteFile(c.Request.Context(), fileID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidatePrompt(req.Prompt); err != nil {
		s.fail(c, err)
		return
	}

	resp, err := s.coord.Start(c.Request.Context(), req.StepSize, req.Prompt)
	s.reply(c, resp, err)
}

func (s *Server) command(c *gin.Context) {
	cmd, ok := types.ParseCommand(c.Param("command"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown command " + c.Param("command")})
		return
	}

	resp, err := s.coord.Control(c.Request.Context(), cmd)
	s.reply(c, resp, err)
}

func (s *Server) updatePrompt(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidatePrompt(req.Prompt); err != nil {
		s.fail(c, err)
		return
	}

	resp, err := s.coord.UpdatePrompt(c.Request.Context(), req.Prompt)
	s.reply(c, resp, err)
}

func (s *Server) getCheckpoint(c *gin.Context) {
	prompt := s.coord.Prompt()
	if prompt == nil {
		c.JSON(http.StatusOK, gin.H{"pending": false, "interactive": false})
		return
	}
	candidate, ok := prompt.Pending()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"pending": false, "interactive": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": true, "interactive": true, "candidate": candidate})
}

func (s *Server) answerCheckpoint(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prompt := s.coord.Prompt()
	if prompt == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "checkpoint decisions are not interactive"})
		return
	}

	if err := prompt.Answer(checkpoint.Decision(req.Decision)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"decision": req.Decision})
}

// reply writes a command outcome
func (s *Server) reply(c *gin.Context, resp *types.CommandResponse, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": resp.Success,
		"message": resp.Message,
		"state":   s.view(),
	})
}

// fail maps coordinator errors to HTTP statuses
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusBadGateway

	var apiErr *api.Error
	var cmdErr *commands.Error
	switch {
	case errors.Is(err, commands.ErrNoFileSelected),
		errors.Is(err, checkpoint.ErrNoPendingDecision),
		errors.Is(err, checkpoint.ErrDecisionPending):
		status = http.StatusConflict
	case errors.Is(err, commands.ErrInvalidStepSize),
		errors.Is(err, checkpoint.ErrInvalidDecision),
		errors.Is(err, api.ErrNotPDF),
		errors.Is(err, utils.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrTooManyRequests):
		status = http.StatusServiceUnavailable
	case errors.As(err, &cmdErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
	}

	s.logger.Debug("Observer request failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

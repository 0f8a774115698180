package server

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// snapshotMessage is pushed to observers after every store change
type snapshotMessage struct {
	Type string      `json:"type"`
	Data SessionView `json:"data"`
}

// stream upgrades to a websocket and pushes the latest session view after
// every store change
func (s *Server) stream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Observer websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.metrics.IncObserverClients()
	defer s.metrics.DecObserverClients()

	updates, cancel := s.coord.Store().Subscribe(1)
	defer cancel()

	// reader detects the client going away
	done := make(chan struct{})
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			data, err := sonic.Marshal(snapshotMessage{Type: "snapshot", Data: s.view()})
			if err != nil {
				s.logger.Error("Failed to encode snapshot", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

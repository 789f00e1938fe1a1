package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/physio-triage-server/internal/middleware"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 64 << 10
)

// handleAnalyzeStream upgrades to a websocket. Each text message is a screening JSON document and
// each reply is either the analysis or an APIError. A bad message does not close the connection.
func (s *Server) handleAnalyzeStream(c *gin.Context) {
	if s.limiter != nil && !s.limiter.Allow(c.ClientIP()) {
		c.AbortWithStatus(http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	correlationID := c.GetString(middleware.CorrelationIDKey)
	log := s.logger.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"client_ip":      c.ClientIP(),
	})
	log.Info("Analysis stream opened")

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx := c.Request.Context()
	done := make(chan struct{})
	defer close(done)

	// Writes from the ping loop and the reply loop must not interleave.
	writes := make(chan func() error)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case writes <- func() error {
					return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
				}:
				case <-done:
					return
				}
			}
		}
	}()

	messages := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			select {
			case messages <- data:
			case <-done:
				return
			}
		}
	}()

	served := 0
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("Analysis stream closed unexpectedly")
			}
			log.WithField("messages", served).Info("Analysis stream closed")
			return
		case write := <-writes:
			if err := write(); err != nil {
				log.WithError(err).Debug("Websocket ping failed")
				return
			}
		case data := <-messages:
			served++
			reply := s.streamReply(c, correlationID, data)
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(reply); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.WithError(err).Warn("Failed to write analysis reply")
				}
				return
			}
		}
	}
}

func (s *Server) streamReply(c *gin.Context, correlationID string, data []byte) any {
	input, err := s.parser.ParseJSON(data)
	if err != nil {
		_, body := apiError(err, correlationID)
		return body
	}
	analysis, err := s.analysis.Analyze(c.Request.Context(), input)
	if err != nil {
		status, body := apiError(err, correlationID)
		if status >= http.StatusInternalServerError {
			s.logger.WithError(err).WithField("correlation_id", correlationID).Error("Streamed analysis failed")
		}
		return body
	}
	return analysis
}

package server

import (
	"io"
	"net/http"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/view"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	streamEventSubmissions = "submissions"
	streamEventHeartbeat   = "heartbeat"
)

// handleSubmissionStream mounts one view for the lifetime of the connection
// and forwards its snapshots as Server-Sent Events.
func (h *httpHandler) handleSubmissionStream(c *gin.Context) {
	ctx := c.Request.Context()

	// Only the newest snapshot matters; older pending ones are replaced.
	latest := make(chan view.Snapshot, 1)
	submissionView, err := view.New(view.Config{
		Source:       h.source,
		Events:       h.events,
		Topic:        h.topic,
		PollInterval: h.pollInterval,
		Location:     h.location,
		Logger:       h.logger,
		OnRender: func(snapshot view.Snapshot) {
			select {
			case <-latest:
			default:
			}
			select {
			case latest <- snapshot:
			default:
			}
		},
	})
	if err != nil {
		h.logger.Error("failed to construct submission view", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stream_unavailable"})
		return
	}
	if err := submissionView.Mount(ctx); err != nil {
		h.logger.Error("failed to mount submission view", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stream_unavailable"})
		return
	}
	defer submissionView.Unmount()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	requestID := c.GetString(requestIDContextKey)
	h.logger.Info("submission stream opened", zap.String("request_id", requestID))
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snapshot := <-latest:
			c.SSEvent(streamEventSubmissions, snapshot)
			return true
		case now := <-heartbeat.C:
			c.SSEvent(streamEventHeartbeat, gin.H{"time": now.UTC().Format(time.RFC3339)})
			return true
		}
	})
	h.logger.Info("submission stream closed", zap.String("request_id", requestID))
}

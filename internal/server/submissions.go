package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/UsamaUmmsi/portfolio/backend/internal/intake"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	"github.com/UsamaUmmsi/portfolio/backend/internal/view"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type contactRequestPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type contactResponsePayload struct {
	ID            int64  `json:"id"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Message       string `json:"message"`
	DisplayMillis int64  `json:"display_ms"`
}

func (h *httpHandler) handleContact(c *gin.Context) {
	var request contactRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.intake.Submit(c.Request.Context(), intake.Draft{
		Name:    request.Name,
		Email:   request.Email,
		Message: request.Message,
	})
	if err != nil {
		if errors.Is(err, intake.ErrMissingField) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_field", "detail": err.Error()})
			return
		}
		h.respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contactResponsePayload{
		ID:            record.ID,
		Status:        record.Status,
		Timestamp:     record.Timestamp,
		Message:       intake.SuccessMessage,
		DisplayMillis: h.successDisplay.Milliseconds(),
	})
}

func (h *httpHandler) handleListSubmissions(c *gin.Context) {
	snapshot, err := view.Collect(c.Request.Context(), h.source, h.location)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *httpHandler) handleDeleteSubmission(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return
	}
	if err := h.source.Delete(c.Request.Context(), id); err != nil {
		h.respondStoreError(c, err)
		return
	}
	h.logger.Info("submission deleted",
		zap.Int64("submission_id", id),
		zap.String("request_id", c.GetString(requestIDContextKey)))
	c.Status(http.StatusNoContent)
}

// respondStoreError maps store failures onto status codes. The body carries
// the service error code when there is one.
func (h *httpHandler) respondStoreError(c *gin.Context, err error) {
	body := gin.H{}
	var serviceErr *submissions.ServiceError
	if errors.As(err, &serviceErr) {
		body["code"] = serviceErr.Code()
	}

	status := http.StatusInternalServerError
	switch {
	case submissions.IsStorageFull(err):
		status = http.StatusInsufficientStorage
		body["error"] = "storage_full"
	case submissions.IsStorageUnavailable(err):
		status = http.StatusServiceUnavailable
		body["error"] = "storage_unavailable"
	case errors.Is(err, submissions.ErrStoreClosed):
		status = http.StatusServiceUnavailable
		body["error"] = "store_closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client is gone; nothing useful can be written.
		c.Abort()
		return
	default:
		body["error"] = "internal_error"
	}

	h.logger.Error("submission request failed",
		zap.Int("status", status),
		zap.String("request_id", c.GetString(requestIDContextKey)),
		zap.Error(err))
	c.JSON(status, body)
}

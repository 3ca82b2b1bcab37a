package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/dto"
	"github.com/SscSPs/commerce_ledger/internal/middleware"
)

// outboxHandler exposes the event outbox for operators.
type outboxHandler struct {
	publisher  portssvc.EventPublisherSvcFacade
	batchSize  int
	maxRetries int
}

// registerOutboxRoutes registers the outbox stats and manual dispatch routes.
// batchSize and maxRetries are the defaults for a dispatch without a body.
func registerOutboxRoutes(rg *gin.RouterGroup, publisher portssvc.EventPublisherSvcFacade, batchSize, maxRetries int) {
	h := &outboxHandler{publisher: publisher, batchSize: batchSize, maxRetries: maxRetries}

	outbox := rg.Group("/outbox")
	{
		outbox.GET("/stats", h.getStats)
		outbox.POST("/publish", h.publishPending)
	}
}

// getStats godoc
// @Summary Get outbox statistics
// @Description Counts outbox events by status
// @Tags outbox
// @Produce  json
// @Success 200 {object} dto.OutboxStatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to count outbox events"
// @Security BearerAuth
// @Router /outbox/stats [get]
func (h *outboxHandler) getStats(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	counts, err := h.publisher.OutboxStats(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "retrieve outbox stats")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, dto.OutboxStatsResponse{Counts: counts, Total: total})
}

// publishPending godoc
// @Summary Publish pending outbox events
// @Description Runs one dispatch pass over pending and failed events
// @Tags outbox
// @Accept  json
// @Produce  json
// @Param   request body dto.PublishOutboxRequest false "Batch size and retry budget"
// @Success 200 {object} portssvc.PublishResult
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to publish events"
// @Security BearerAuth
// @Router /outbox/publish [post]
func (h *outboxHandler) publishPending(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	req := dto.PublishOutboxRequest{BatchSize: h.batchSize, MaxRetries: h.maxRetries}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, logger, err, "PublishOutbox")
			return
		}
		if req.BatchSize == 0 {
			req.BatchSize = h.batchSize
		}
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("user_id", userID), slog.Int("batch_size", req.BatchSize), slog.Int("max_retries", req.MaxRetries))
	result, err := h.publisher.PublishPendingEvents(c.Request.Context(), req.BatchSize, req.MaxRetries)
	if err != nil {
		respondError(c, logger, err, "publish outbox events")
		return
	}

	logger.Info("Outbox dispatched successfully",
		slog.Int("published", result.Published),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped))
	c.JSON(http.StatusOK, result)
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/dto"
	"github.com/SscSPs/commerce_ledger/internal/middleware"
)

// reportingHandler handles read-only balance reports.
type reportingHandler struct {
	reportingService portssvc.ReportingService
}

func newReportingHandler(rs portssvc.ReportingService) *reportingHandler {
	return &reportingHandler{reportingService: rs}
}

// registerReportingRoutes registers report routes under a period.
func registerReportingRoutes(rg *gin.RouterGroup, reportingService portssvc.ReportingService) {
	h := newReportingHandler(reportingService)

	reports := rg.Group("/fiscal-periods/:year/:month")
	{
		reports.GET("/trial-balance", h.getTrialBalance)
		reports.GET("/balances/:accountID", h.getAccountBalance)
	}
}

// getTrialBalance godoc
// @Summary Get the trial balance
// @Description Lists every account's balance for the period with debit and credit totals
// @Tags reports
// @Produce  json
// @Param   year path int true "Fiscal year"
// @Param   month path int true "Fiscal month (1-12)"
// @Success 200 {object} dto.TrialBalanceResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to build trial balance"
// @Security BearerAuth
// @Router /fiscal-periods/{year}/{month}/trial-balance [get]
func (h *reportingHandler) getTrialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ref, ok := bindPeriod(c, logger)
	if !ok {
		return
	}
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	logger = logger.With(slog.String("period", ref.String()))
	logger.Info("Received request for trial balance")

	report, err := h.reportingService.TrialBalance(c.Request.Context(), ref)
	if err != nil {
		respondError(c, logger, err, "generate trial balance")
		return
	}
	c.JSON(http.StatusOK, dto.ToTrialBalanceResponse(report))
}

// getAccountBalance godoc
// @Summary Get an account balance
// @Description Retrieves the materialized balance of one account for the period
// @Tags reports
// @Produce  json
// @Param   year path int true "Fiscal year"
// @Param   month path int true "Fiscal month (1-12)"
// @Param   accountID path string true "Account ID"
// @Success 200 {object} dto.AccountBalanceResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Balance not found"
// @Failure 500 {object} map[string]string "Failed to retrieve balance"
// @Security BearerAuth
// @Router /fiscal-periods/{year}/{month}/balances/{accountID} [get]
func (h *reportingHandler) getAccountBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ref, ok := bindPeriod(c, logger)
	if !ok {
		return
	}
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	accountID := c.Param("accountID")
	logger = logger.With(slog.String("period", ref.String()), slog.String("account_id", accountID))

	balance, err := h.reportingService.AccountBalance(c.Request.Context(), accountID, ref)
	if err != nil {
		respondError(c, logger, err, "retrieve account balance")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountBalanceResponse(balance))
}

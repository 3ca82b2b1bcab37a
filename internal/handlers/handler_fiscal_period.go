package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/dto"
	"github.com/SscSPs/commerce_ledger/internal/middleware"
)

// fiscalPeriodHandler handles the period lifecycle and balance runs.
type fiscalPeriodHandler struct {
	periodService  portssvc.FiscalPeriodSvcFacade
	balanceService portssvc.BalanceSvcFacade
}

func newFiscalPeriodHandler(ps portssvc.FiscalPeriodSvcFacade, bs portssvc.BalanceSvcFacade) *fiscalPeriodHandler {
	return &fiscalPeriodHandler{periodService: ps, balanceService: bs}
}

// registerFiscalPeriodRoutes registers routes related to fiscal periods.
// Periods are addressed by /:year/:month.
func registerFiscalPeriodRoutes(rg *gin.RouterGroup, periodService portssvc.FiscalPeriodSvcFacade, balanceService portssvc.BalanceSvcFacade) {
	h := newFiscalPeriodHandler(periodService, balanceService)

	rg.GET("/current-fiscal-period", h.getCurrentOpenPeriod)

	periods := rg.Group("/fiscal-periods")
	{
		periods.POST("", h.createFiscalPeriod)
		periods.GET("", h.listFiscalPeriods)
		periods.GET("/:year/:month", h.getFiscalPeriod)
		periods.POST("/:year/:month/close", h.closeFiscalPeriod)
		periods.POST("/:year/:month/reopen", h.reopenFiscalPeriod)
		periods.POST("/:year/:month/lock", h.lockFiscalPeriod)
		periods.POST("/:year/:month/balances", h.calculateBalances)
	}
}

// bindPeriod reads the period from the path, answering 400 when it is invalid.
func bindPeriod(c *gin.Context, logger *slog.Logger) (domain.PeriodRef, bool) {
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, logger, err, "period path")
		return domain.PeriodRef{}, false
	}
	return uri.Ref(), true
}

// createFiscalPeriod godoc
// @Summary Create a fiscal period
// @Description Opens a calendar-month fiscal period
// @Tags fiscal-periods
// @Accept  json
// @Produce  json
// @Param   period body dto.CreateFiscalPeriodRequest true "Fiscal year and month"
// @Success 201 {object} dto.FiscalPeriodResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Fiscal period already exists"
// @Failure 500 {object} map[string]string "Failed to create fiscal period"
// @Security BearerAuth
// @Router /fiscal-periods [post]
func (h *fiscalPeriodHandler) createFiscalPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateFiscalPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "CreateFiscalPeriod")
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	ref := domain.PeriodRef{Year: req.FiscalYear, Month: req.FiscalMonth}
	logger = logger.With(slog.String("period", ref.String()))
	period, err := h.periodService.CreateFiscalPeriod(c.Request.Context(), ref, userID)
	if err != nil {
		respondError(c, logger, err, "create fiscal period")
		return
	}

	logger.Info("Fiscal period created successfully", slog.String("fiscal_period_id", period.FiscalPeriodID))
	c.JSON(http.StatusCreated, dto.ToFiscalPeriodResponse(period))
}

// listFiscalPeriods godoc
// @Summary List fiscal periods
// @Description Lists fiscal periods newest first
// @Tags fiscal-periods
// @Produce  json
// @Success 200 {object} map[string][]dto.FiscalPeriodResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list fiscal periods"
// @Security BearerAuth
// @Router /fiscal-periods [get]
func (h *fiscalPeriodHandler) listFiscalPeriods(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	periods, err := h.periodService.ListFiscalPeriods(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "list fiscal periods")
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": dto.ToFiscalPeriodResponses(periods)})
}

// getFiscalPeriod godoc
// @Summary Get a fiscal period
// @Description Retrieves the fiscal period for a year and month
// @Tags fiscal-periods
// @Produce  json
// @Param   year path int true "Fiscal year"
// @Param   month path int true "Fiscal month (1-12)"
// @Success 200 {object} dto.FiscalPeriodResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fiscal period not found"
// @Failure 500 {object} map[string]string "Failed to retrieve fiscal period"
// @Security BearerAuth
// @Router /fiscal-periods/{year}/{month} [get]
func (h *fiscalPeriodHandler) getFiscalPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ref, ok := bindPeriod(c, logger)
	if !ok {
		return
	}
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	period, err := h.periodService.GetFiscalPeriod(c.Request.Context(), ref)
	if err != nil {
		respondError(c, logger.With(slog.String("period", ref.String())), err, "retrieve fiscal period")
		return
	}
	c.JSON(http.StatusOK, dto.ToFiscalPeriodResponse(period))
}

// getCurrentOpenPeriod godoc
// @Summary Get the current open fiscal period
// @Description Retrieves the earliest open fiscal period
// @Tags fiscal-periods
// @Produce  json
// @Success 200 {object} dto.FiscalPeriodResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Open fiscal period not found"
// @Failure 500 {object} map[string]string "Failed to retrieve fiscal period"
// @Security BearerAuth
// @Router /current-fiscal-period [get]
func (h *fiscalPeriodHandler) getCurrentOpenPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	period, err := h.periodService.GetCurrentOpenPeriod(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "retrieve current fiscal period")
		return
	}
	c.JSON(http.StatusOK, dto.ToFiscalPeriodResponse(period))
}

// closeFiscalPeriod godoc
// @Summary Close a fiscal period
// @Description Recalculates balances and closes the period when the trial balance balances
// @Tags fiscal-periods
// @Produce  json
// @Param   year path int true "Fiscal year"
// @Param   month path int true "Fiscal month (1-12)"
// @Success 200 {object} dto.ClosePeriodResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fiscal period not found"
// @Failure 422 {object} map[string]string "Period cannot be closed"
// @Failure 500 {object} map[string]string "Failed to close fiscal period"
// @Security BearerAuth
// @Router /fiscal-periods/{year}/{month}/close [post]
func (h *fiscalPeriodHandler) closeFiscalPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ref, ok := bindPeriod(c, logger)
	if !ok {
		return
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("period", ref.String()), slog.String("user_id", userID))
	logger.Info("Received request to close fiscal period")

	result, err := h.periodService.CloseFiscalPeriod(c.Request.Context(), ref, userID)
	if err != nil {
		respondError(c, logger, err, "close fiscal period")
		return
	}

	logger.Info("Fiscal period closed successfully", slog.Int("accounts_processed", result.Balances.AccountsProcessed))
	c.JSON(http.StatusOK, dto.ClosePeriodResponse{
		Period:   dto.ToFiscalPeriodResponse(result.Period),
		Balances: dto.ToBalanceCalculationResponse(result.Balances),
	})
}

// reopenFiscalPeriod godoc
// @Summary Reopen a fiscal period
// @Description Reopens a closed period. Locked periods stay locked
// @Tags fiscal-periods
// @Accept  json
// @Produce  json
// @Param   year path int true "Fiscal year"
// @Param   month path int true "Fiscal month (1-12)"
// @Param   reopen body dto.ReopenFiscalPeriodRequest true "Reopen reason"
// @Success 200 {object} dto.FiscalPeriodResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fiscal period not found"
// @Failure 422 {object} map[string]string "Period cannot be reopened"
// @Failure 500 {object} map[string]string "Failed to reopen fiscal period"
// @Security BearerAuth
// @Router /fiscal-periods/{year}/{month}/reopen [post]
func (h *fiscalPeriodHandler) reopenFiscalPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ref, ok := bindPeriod(c, logger)
	if !ok {
		return
	}
	var req dto.ReopenFiscalPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "ReopenFiscalPeriod")
		return
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("period", ref.String()), slog.String("user_id", userID))
	period, err := h.periodService.ReopenFiscalPeriod(c.Request.Context(), ref, userID, req.Reason)
	if err != nil {
		respondError(c, logger, err, "reopen fiscal period")
		return
	}

	logger.Info("Fiscal period reopened successfully")
	c.JSON(http.StatusOK, dto.ToFiscalPeriodResponse(period))
}

// lockFiscalPeriod godoc
// @Summary Lock a fiscal period
// @Description Permanently locks a closed period
// @Tags fiscal-periods
// @Produce  json
// @Param   year path int true "Fiscal year"
// @Param   month path int true "Fiscal month (1-12)"
// @Success 200 {object} dto.FiscalPeriodResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fiscal period not found"
// @Failure 422 {object} map[string]string "Period cannot be locked"
// @Failure 500 {object} map[string]string "Failed to lock fiscal period"
// @Security BearerAuth
// @Router /fiscal-periods/{year}/{month}/lock [post]
func (h *fiscalPeriodHandler) lockFiscalPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ref, ok := bindPeriod(c, logger)
	if !ok {
		return
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("period", ref.String()), slog.String("user_id", userID))
	period, err := h.periodService.LockFiscalPeriod(c.Request.Context(), ref, userID)
	if err != nil {
		respondError(c, logger, err, "lock fiscal period")
		return
	}

	logger.Info("Fiscal period locked successfully")
	c.JSON(http.StatusOK, dto.ToFiscalPeriodResponse(period))
}

// calculateBalances godoc
// @Summary Calculate period balances
// @Description Materializes account balances for the period from posted entries
// @Tags fiscal-periods
// @Accept  json
// @Produce  json
// @Param   year path int true "Fiscal year"
// @Param   month path int true "Fiscal month (1-12)"
// @Param   request body dto.CalculateBalancesRequest false "Recalculate from scratch"
// @Success 200 {object} dto.BalanceCalculationResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Fiscal period not found"
// @Failure 500 {object} map[string]string "Failed to calculate balances"
// @Security BearerAuth
// @Router /fiscal-periods/{year}/{month}/balances [post]
func (h *fiscalPeriodHandler) calculateBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ref, ok := bindPeriod(c, logger)
	if !ok {
		return
	}
	var req dto.CalculateBalancesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, logger, err, "CalculateBalances")
			return
		}
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("period", ref.String()), slog.Bool("recalculate", req.Recalculate))
	result, err := h.balanceService.CalculatePeriodBalances(c.Request.Context(), ref, req.Recalculate, userID)
	if err != nil {
		respondError(c, logger, err, "calculate balances")
		return
	}

	logger.Info("Balances calculated successfully", slog.Int("accounts_processed", result.AccountsProcessed), slog.Bool("is_balanced", result.IsBalanced))
	c.JSON(http.StatusOK, dto.ToBalanceCalculationResponse(result))
}

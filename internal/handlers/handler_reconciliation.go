package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/dto"
	"github.com/SscSPs/commerce_ledger/internal/middleware"
)

// reconciliationHandler handles bank reconciliations and their adjusting entries.
type reconciliationHandler struct {
	reconciliationService portssvc.ReconciliationSvcFacade
}

func newReconciliationHandler(rs portssvc.ReconciliationSvcFacade) *reconciliationHandler {
	return &reconciliationHandler{reconciliationService: rs}
}

// registerReconciliationRoutes registers routes related to reconciliations.
func registerReconciliationRoutes(rg *gin.RouterGroup, reconciliationService portssvc.ReconciliationSvcFacade) {
	h := newReconciliationHandler(reconciliationService)

	rg.POST("/bank-accounts/:id/reconciliations", h.startReconciliation)
	rg.GET("/bank-accounts/:id/reconciliations", h.listReconciliations)

	recs := rg.Group("/bank-reconciliations")
	{
		recs.GET("/:id", h.getReconciliation)
		recs.POST("/:id/items", h.addReconcilingItem)
		recs.POST("/:id/items/:itemID/clear", h.clearReconcilingItem)
		recs.POST("/:id/complete", h.completeReconciliation)
		recs.POST("/:id/approve", h.approveReconciliation)
		recs.POST("/:id/adjusting-entries/preview", h.previewAdjustingEntries)
		recs.POST("/:id/adjusting-entries", h.createAdjustingEntries)
	}
}

// startReconciliation godoc
// @Summary Start a bank reconciliation
// @Description Starts a draft reconciliation of a bank account for a fiscal period
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Bank account ID"
// @Param   reconciliation body dto.StartReconciliationRequest true "Period and ending balances"
// @Success 201 {object} dto.ReconciliationResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank account not found"
// @Failure 409 {object} map[string]string "Reconciliation already exists"
// @Failure 500 {object} map[string]string "Failed to start reconciliation"
// @Security BearerAuth
// @Router /bank-accounts/{id}/reconciliations [post]
func (h *reconciliationHandler) startReconciliation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("id")

	var req dto.StartReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "StartReconciliation")
		return
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	cmd := req.ToCommand(bankAccountID, userID)
	logger = logger.With(slog.String("bank_account_id", bankAccountID), slog.String("period", cmd.Period.String()))
	rec, err := h.reconciliationService.StartReconciliation(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, logger, err, "start reconciliation")
		return
	}

	logger.Info("Reconciliation started successfully", slog.String("bank_reconciliation_id", rec.BankReconciliationID))
	c.JSON(http.StatusCreated, dto.ToReconciliationResponse(rec))
}

// listReconciliations godoc
// @Summary List bank reconciliations
// @Description Lists the reconciliations of a bank account
// @Tags reconciliations
// @Produce  json
// @Param   id path string true "Bank account ID"
// @Success 200 {object} map[string][]dto.ReconciliationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list reconciliations"
// @Security BearerAuth
// @Router /bank-accounts/{id}/reconciliations [get]
func (h *reconciliationHandler) listReconciliations(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	recs, err := h.reconciliationService.ListReconciliations(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "list reconciliations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliations": dto.ToReconciliationResponses(recs)})
}

// getReconciliation godoc
// @Summary Get a bank reconciliation
// @Description Retrieves a reconciliation with its items
// @Tags reconciliations
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Reconciliation not found"
// @Failure 500 {object} map[string]string "Failed to retrieve reconciliation"
// @Security BearerAuth
// @Router /bank-reconciliations/{id} [get]
func (h *reconciliationHandler) getReconciliation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	rec, err := h.reconciliationService.GetReconciliation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "retrieve reconciliation")
		return
	}
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(rec))
}

// addReconcilingItem godoc
// @Summary Add a reconciling item
// @Description Adds an item to a draft or in-progress reconciliation
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   item body dto.AddReconcilingItemRequest true "Reconciling item"
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Reconciliation not found"
// @Failure 422 {object} map[string]string "Reconciliation is not editable"
// @Failure 500 {object} map[string]string "Failed to add reconciling item"
// @Security BearerAuth
// @Router /bank-reconciliations/{id}/items [post]
func (h *reconciliationHandler) addReconcilingItem(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	recID := c.Param("id")

	var req dto.AddReconcilingItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "AddReconcilingItem")
		return
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_reconciliation_id", recID), slog.String("item_type", string(req.ItemType)))
	rec, err := h.reconciliationService.AddReconcilingItem(c.Request.Context(), req.ToCommand(recID, userID))
	if err != nil {
		respondError(c, logger, err, "add reconciling item")
		return
	}

	logger.Info("Reconciling item added successfully")
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(rec))
}

// clearReconcilingItem godoc
// @Summary Clear a reconciling item
// @Description Marks a reconciling item as cleared
// @Tags reconciliations
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   itemID path string true "Reconciling item ID"
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Reconciling item not found"
// @Failure 422 {object} map[string]string "Item cannot be cleared"
// @Failure 500 {object} map[string]string "Failed to clear reconciling item"
// @Security BearerAuth
// @Router /bank-reconciliations/{id}/items/{itemID}/clear [post]
func (h *reconciliationHandler) clearReconcilingItem(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	recID, itemID := c.Param("id"), c.Param("itemID")
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_reconciliation_id", recID), slog.String("reconciling_item_id", itemID))
	rec, err := h.reconciliationService.ClearReconcilingItem(c.Request.Context(), recID, itemID, userID)
	if err != nil {
		respondError(c, logger, err, "clear reconciling item")
		return
	}

	logger.Info("Reconciling item cleared successfully")
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(rec))
}

// completeReconciliation godoc
// @Summary Complete a bank reconciliation
// @Description Completes a reconciliation whose adjusted balances agree
// @Tags reconciliations
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Reconciliation not found"
// @Failure 422 {object} map[string]string "Reconciliation is not balanced"
// @Failure 500 {object} map[string]string "Failed to complete reconciliation"
// @Security BearerAuth
// @Router /bank-reconciliations/{id}/complete [post]
func (h *reconciliationHandler) completeReconciliation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	recID := c.Param("id")
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_reconciliation_id", recID))
	rec, err := h.reconciliationService.CompleteReconciliation(c.Request.Context(), recID, userID)
	if err != nil {
		respondError(c, logger, err, "complete reconciliation")
		return
	}

	logger.Info("Reconciliation completed successfully")
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(rec))
}

// approveReconciliation godoc
// @Summary Approve a bank reconciliation
// @Description Approves a completed reconciliation
// @Tags reconciliations
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Reconciliation not found"
// @Failure 422 {object} map[string]string "Reconciliation is not completed"
// @Failure 500 {object} map[string]string "Failed to approve reconciliation"
// @Security BearerAuth
// @Router /bank-reconciliations/{id}/approve [post]
func (h *reconciliationHandler) approveReconciliation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	recID := c.Param("id")
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_reconciliation_id", recID))
	rec, err := h.reconciliationService.ApproveReconciliation(c.Request.Context(), recID, userID)
	if err != nil {
		respondError(c, logger, err, "approve reconciliation")
		return
	}

	logger.Info("Reconciliation approved successfully")
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(rec))
}

// previewAdjustingEntries godoc
// @Summary Preview adjusting entries
// @Description Drafts the adjusting entries the reconciliation needs without storing them
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   accounts body dto.AdjustingAccountsRequest true "Accounts for the adjusting lines"
// @Success 200 {object} map[string][]domain.AdjustingEntryDraft
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Reconciliation not found"
// @Failure 500 {object} map[string]string "Failed to draft adjusting entries"
// @Security BearerAuth
// @Router /bank-reconciliations/{id}/adjusting-entries/preview [post]
func (h *reconciliationHandler) previewAdjustingEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	recID := c.Param("id")

	var req dto.AdjustingAccountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "PreviewAdjustingEntries")
		return
	}
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	drafts, err := h.reconciliationService.GenerateAdjustingEntries(c.Request.Context(), recID, req.ToDomain())
	if err != nil {
		respondError(c, logger.With(slog.String("bank_reconciliation_id", recID)), err, "generate adjusting entries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

// createAdjustingEntries godoc
// @Summary Create adjusting entries
// @Description Creates and posts the adjusting entries and links them to their items
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   accounts body dto.AdjustingAccountsRequest true "Accounts for the adjusting lines"
// @Success 201 {object} map[string][]dto.JournalEntryResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Reconciliation not found"
// @Failure 422 {object} map[string]string "Adjusting entries cannot be posted"
// @Failure 500 {object} map[string]string "Failed to create adjusting entries"
// @Security BearerAuth
// @Router /bank-reconciliations/{id}/adjusting-entries [post]
func (h *reconciliationHandler) createAdjustingEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	recID := c.Param("id")

	var req dto.AdjustingAccountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "CreateAdjustingEntries")
		return
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_reconciliation_id", recID))
	entries, err := h.reconciliationService.CreateAdjustingEntries(c.Request.Context(), recID, req.ToDomain(), userID)
	if err != nil {
		respondError(c, logger, err, "create adjusting entries")
		return
	}

	logger.Info("Adjusting entries created successfully", slog.Int("entry_count", len(entries)))
	c.JSON(http.StatusCreated, gin.H{"entries": dto.ToJournalEntryResponses(entries)})
}

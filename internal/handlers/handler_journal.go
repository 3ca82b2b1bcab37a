package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/dto"
	"github.com/SscSPs/commerce_ledger/internal/middleware"
)

// journalHandler handles HTTP requests for the journal entry lifecycle.
type journalHandler struct {
	journalService portssvc.JournalSvcFacade
}

func newJournalHandler(js portssvc.JournalSvcFacade) *journalHandler {
	return &journalHandler{journalService: js}
}

// registerJournalRoutes registers routes related to journal entries.
func registerJournalRoutes(rg *gin.RouterGroup, journalService portssvc.JournalSvcFacade) {
	h := newJournalHandler(journalService)

	entries := rg.Group("/journal-entries")
	{
		entries.POST("", h.createJournalEntry)
		entries.GET("", h.listJournalEntries)
		entries.GET("/:id", h.getJournalEntry)
		entries.PUT("/:id", h.updateJournalEntry)
		entries.DELETE("/:id", h.deleteJournalEntry)
		entries.POST("/:id/post", h.postJournalEntry)
		entries.POST("/:id/void", h.voidJournalEntry)
	}
}

// createJournalEntry godoc
// @Summary Create a draft journal entry
// @Description Creates a balanced draft entry. A repeated source reference returns the existing entry
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   entry body dto.CreateJournalEntryRequest true "Journal entry with its lines"
// @Success 201 {object} dto.JournalEntryResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 422 {object} map[string]string "Entry is unbalanced or references an unusable account"
// @Failure 500 {object} map[string]string "Failed to create journal entry"
// @Security BearerAuth
// @Router /journal-entries [post]
func (h *journalHandler) createJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "CreateJournalEntry")
		return
	}

	creatorUserID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("creator_user_id", creatorUserID))
	logger.Info("Received request to create journal entry", slog.Int("line_count", len(req.Lines)))

	entry, err := h.journalService.CreateJournalEntry(c.Request.Context(), req.ToCommand(creatorUserID))
	if err != nil {
		respondError(c, logger, err, "create journal entry")
		return
	}

	logger.Info("Journal entry created successfully", slog.String("journal_entry_id", entry.JournalEntryID))
	c.JSON(http.StatusCreated, dto.ToJournalEntryResponse(entry))
}

// getJournalEntry godoc
// @Summary Get a journal entry
// @Description Retrieves a journal entry with its lines
// @Tags journal-entries
// @Produce  json
// @Param   id path string true "Journal entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 500 {object} map[string]string "Failed to retrieve journal entry"
// @Security BearerAuth
// @Router /journal-entries/{id} [get]
func (h *journalHandler) getJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID := c.Param("id")

	if _, ok := requireUser(c, logger); !ok {
		return
	}

	logger = logger.With(slog.String("journal_entry_id", entryID))
	entry, err := h.journalService.GetJournalEntry(c.Request.Context(), entryID)
	if err != nil {
		respondError(c, logger, err, "retrieve journal entry")
		return
	}

	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// listJournalEntries godoc
// @Summary List journal entries
// @Description Lists entries newest first with token pagination, or looks one up by source reference
// @Tags journal-entries
// @Produce  json
// @Param   fiscalYear query int false "Fiscal year filter"
// @Param   fiscalMonth query int false "Fiscal month filter"
// @Param   status query string false "DRAFT, POSTED or VOIDED"
// @Param   limit query int false "Limit number of results" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Param   sourceService query string false "Originating service"
// @Param   sourceReferenceID query string false "Reference within the originating service"
// @Success 200 {object} dto.ListJournalEntriesResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list journal entries"
// @Security BearerAuth
// @Router /journal-entries [get]
func (h *journalHandler) listJournalEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListJournalEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, logger, err, "ListJournalEntries")
		return
	}

	if _, ok := requireUser(c, logger); !ok {
		return
	}

	if params.SourceService != "" {
		logger = logger.With(slog.String("source_service", params.SourceService), slog.String("source_reference_id", params.SourceReferenceID))
		entry, err := h.journalService.FindBySourceReference(c.Request.Context(), params.SourceService, params.SourceReferenceID)
		if err != nil {
			respondError(c, logger, err, "find journal entry by source reference")
			return
		}
		c.JSON(http.StatusOK, dto.ListJournalEntriesResponse{Entries: []dto.JournalEntryResponse{dto.ToJournalEntryResponse(entry)}})
		return
	}

	page, err := h.journalService.ListJournalEntries(c.Request.Context(), params.ToQuery())
	if err != nil {
		respondError(c, logger, err, "list journal entries")
		return
	}

	c.JSON(http.StatusOK, dto.ListJournalEntriesResponse{
		Entries:   dto.ToJournalEntryResponses(page.Entries),
		NextToken: page.NextToken,
	})
}

// updateJournalEntry godoc
// @Summary Update a draft journal entry
// @Description Replaces the date, description or lines of a draft entry
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   id path string true "Journal entry ID"
// @Param   entry body dto.UpdateJournalEntryRequest true "Fields to update"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 422 {object} map[string]string "Entry is not a draft"
// @Failure 500 {object} map[string]string "Failed to update journal entry"
// @Security BearerAuth
// @Router /journal-entries/{id} [put]
func (h *journalHandler) updateJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID := c.Param("id")

	var req dto.UpdateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "UpdateJournalEntry")
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("journal_entry_id", entryID))
	entry, err := h.journalService.UpdateJournalEntry(c.Request.Context(), req.ToCommand(entryID, userID))
	if err != nil {
		respondError(c, logger, err, "update journal entry")
		return
	}

	logger.Info("Journal entry updated successfully")
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// deleteJournalEntry godoc
// @Summary Delete a draft journal entry
// @Description Deletes an entry that was never posted
// @Tags journal-entries
// @Param   id path string true "Journal entry ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 422 {object} map[string]string "Entry is not a draft"
// @Failure 500 {object} map[string]string "Failed to delete journal entry"
// @Security BearerAuth
// @Router /journal-entries/{id} [delete]
func (h *journalHandler) deleteJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID := c.Param("id")

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("journal_entry_id", entryID))
	if err := h.journalService.DeleteJournalEntry(c.Request.Context(), entryID, userID); err != nil {
		respondError(c, logger, err, "delete journal entry")
		return
	}

	logger.Info("Journal entry deleted successfully")
	c.Status(http.StatusNoContent)
}

// postJournalEntry godoc
// @Summary Post a journal entry
// @Description Assigns an entry number and posts the entry into an open fiscal period
// @Tags journal-entries
// @Produce  json
// @Param   id path string true "Journal entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 422 {object} map[string]string "Entry cannot be posted"
// @Failure 500 {object} map[string]string "Failed to post journal entry"
// @Security BearerAuth
// @Router /journal-entries/{id}/post [post]
func (h *journalHandler) postJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID := c.Param("id")

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("journal_entry_id", entryID))
	entry, err := h.journalService.PostJournalEntry(c.Request.Context(), entryID, userID)
	if err != nil {
		respondError(c, logger, err, "post journal entry")
		return
	}

	logger.Info("Journal entry posted successfully", slog.String("entry_number", entry.EntryNumber))
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// voidJournalEntry godoc
// @Summary Void a posted journal entry
// @Description Voids a posted entry in an open fiscal period
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   id path string true "Journal entry ID"
// @Param   void body dto.VoidJournalEntryRequest true "Void reason"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 422 {object} map[string]string "Entry cannot be voided"
// @Failure 500 {object} map[string]string "Failed to void journal entry"
// @Security BearerAuth
// @Router /journal-entries/{id}/void [post]
func (h *journalHandler) voidJournalEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID := c.Param("id")

	var req dto.VoidJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "VoidJournalEntry")
		return
	}

	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("journal_entry_id", entryID))
	entry, err := h.journalService.VoidJournalEntry(c.Request.Context(), entryID, userID, req.Reason)
	if err != nil {
		respondError(c, logger, err, "void journal entry")
		return
	}

	logger.Info("Journal entry voided successfully")
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

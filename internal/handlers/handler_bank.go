package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/dto"
	"github.com/SscSPs/commerce_ledger/internal/middleware"
)

// bankHandler handles bank accounts, statement imports and transaction matching.
type bankHandler struct {
	bankService portssvc.BankStatementSvcFacade
}

func newBankHandler(bs portssvc.BankStatementSvcFacade) *bankHandler {
	return &bankHandler{bankService: bs}
}

// registerBankRoutes registers routes related to banking.
func registerBankRoutes(rg *gin.RouterGroup, bankService portssvc.BankStatementSvcFacade) {
	h := newBankHandler(bankService)

	accounts := rg.Group("/bank-accounts")
	{
		accounts.POST("", h.createBankAccount)
		accounts.GET("", h.listBankAccounts)
		accounts.GET("/:id", h.getBankAccount)
		accounts.POST("/:id/statements", h.importBankStatement)
	}

	statements := rg.Group("/bank-statements")
	{
		statements.GET("/:id", h.getBankStatement)
		statements.DELETE("/:id", h.deleteBankStatement)
		statements.GET("/:id/transactions", h.listStatementTransactions)
		statements.POST("/:id/auto-match", h.autoMatchStatement)
	}

	transactions := rg.Group("/bank-transactions")
	{
		transactions.POST("/:id/match", h.matchTransaction)
		transactions.POST("/:id/unmatch", h.unmatchTransaction)
		transactions.POST("/:id/exclude", h.excludeTransaction)
		transactions.POST("/:id/include", h.includeTransaction)
	}
}

// createBankAccount godoc
// @Summary Create a bank account
// @Description Registers a bank account backed by a GL cash account
// @Tags bank
// @Accept  json
// @Produce  json
// @Param   account body dto.CreateBankAccountRequest true "Bank account details"
// @Success 201 {object} domain.BankAccount
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 422 {object} map[string]string "GL account is not usable"
// @Failure 500 {object} map[string]string "Failed to create bank account"
// @Security BearerAuth
// @Router /bank-accounts [post]
func (h *bankHandler) createBankAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "CreateBankAccount")
		return
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("gl_account_id", req.GLAccountID))
	account, err := h.bankService.CreateBankAccount(c.Request.Context(), req.ToCommand(userID))
	if err != nil {
		respondError(c, logger, err, "create bank account")
		return
	}

	logger.Info("Bank account created successfully", slog.String("bank_account_id", account.BankAccountID))
	c.JSON(http.StatusCreated, account)
}

// listBankAccounts godoc
// @Summary List bank accounts
// @Description Lists all bank accounts
// @Tags bank
// @Produce  json
// @Success 200 {object} map[string][]domain.BankAccount
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list bank accounts"
// @Security BearerAuth
// @Router /bank-accounts [get]
func (h *bankHandler) listBankAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	accounts, err := h.bankService.ListBankAccounts(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "list bank accounts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bankAccounts": accounts})
}

// getBankAccount godoc
// @Summary Get a bank account
// @Description Retrieves a bank account
// @Tags bank
// @Produce  json
// @Param   id path string true "Bank account ID"
// @Success 200 {object} domain.BankAccount
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank account not found"
// @Failure 500 {object} map[string]string "Failed to retrieve bank account"
// @Security BearerAuth
// @Router /bank-accounts/{id} [get]
func (h *bankHandler) getBankAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	account, err := h.bankService.GetBankAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "retrieve bank account")
		return
	}
	c.JSON(http.StatusOK, account)
}

// importBankStatement godoc
// @Summary Import a bank statement
// @Description Stores a statement and its lines, skipping lines already imported for the account
// @Tags bank
// @Accept  json
// @Produce  json
// @Param   id path string true "Bank account ID"
// @Param   statement body dto.ImportBankStatementRequest true "Statement header and lines"
// @Success 201 {object} portssvc.ImportBankStatementResult
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank account not found"
// @Failure 500 {object} map[string]string "Failed to import bank statement"
// @Security BearerAuth
// @Router /bank-accounts/{id}/statements [post]
func (h *bankHandler) importBankStatement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("id")

	var req dto.ImportBankStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "ImportBankStatement")
		return
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_account_id", bankAccountID), slog.String("file_name", req.FileName))
	logger.Info("Received bank statement import", slog.Int("line_count", len(req.Lines)))

	result, err := h.bankService.ImportBankStatement(c.Request.Context(), req.ToCommand(bankAccountID, userID))
	if err != nil {
		respondError(c, logger, err, "import bank statement")
		return
	}

	logger.Info("Bank statement imported successfully",
		slog.String("bank_statement_id", result.BankStatementID),
		slog.Int("imported", result.TransactionsImported),
		slog.Int("duplicates_skipped", result.DuplicatesSkipped))
	c.JSON(http.StatusCreated, result)
}

// getBankStatement godoc
// @Summary Get a bank statement
// @Description Retrieves a bank statement header
// @Tags bank
// @Produce  json
// @Param   id path string true "Bank statement ID"
// @Success 200 {object} domain.BankStatement
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank statement not found"
// @Failure 500 {object} map[string]string "Failed to retrieve bank statement"
// @Security BearerAuth
// @Router /bank-statements/{id} [get]
func (h *bankHandler) getBankStatement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	statement, err := h.bankService.GetBankStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "retrieve bank statement")
		return
	}
	c.JSON(http.StatusOK, statement)
}

// deleteBankStatement godoc
// @Summary Delete a bank statement
// @Description Deletes a statement whose lines are all unmatched
// @Tags bank
// @Param   id path string true "Bank statement ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank statement not found"
// @Failure 422 {object} map[string]string "Statement has matched lines"
// @Failure 500 {object} map[string]string "Failed to delete bank statement"
// @Security BearerAuth
// @Router /bank-statements/{id} [delete]
func (h *bankHandler) deleteBankStatement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	statementID := c.Param("id")
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_statement_id", statementID))
	if err := h.bankService.DeleteBankStatement(c.Request.Context(), statementID, userID); err != nil {
		respondError(c, logger, err, "delete bank statement")
		return
	}

	logger.Info("Bank statement deleted successfully")
	c.Status(http.StatusNoContent)
}

// listStatementTransactions godoc
// @Summary List statement transactions
// @Description Lists the lines of a bank statement
// @Tags bank
// @Produce  json
// @Param   id path string true "Bank statement ID"
// @Success 200 {object} map[string][]dto.BankTransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank statement not found"
// @Failure 500 {object} map[string]string "Failed to list transactions"
// @Security BearerAuth
// @Router /bank-statements/{id}/transactions [get]
func (h *bankHandler) listStatementTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUser(c, logger); !ok {
		return
	}

	txs, err := h.bankService.ListStatementTransactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "list bank transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": dto.ToBankTransactionResponses(txs)})
}

// autoMatchStatement godoc
// @Summary Auto-match a bank statement
// @Description Matches unmatched lines against posted journal lines on the bank's GL account
// @Tags bank
// @Accept  json
// @Produce  json
// @Param   id path string true "Bank statement ID"
// @Param   request body dto.AutoMatchRequest false "Date tolerance"
// @Success 200 {object} domain.AutoMatchResult
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank statement not found"
// @Failure 500 {object} map[string]string "Failed to auto-match statement"
// @Security BearerAuth
// @Router /bank-statements/{id}/auto-match [post]
func (h *bankHandler) autoMatchStatement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	statementID := c.Param("id")

	var req dto.AutoMatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, logger, err, "AutoMatchStatement")
			return
		}
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_statement_id", statementID), slog.Int("date_tolerance_days", req.DateToleranceDays))
	result, err := h.bankService.AutoMatchStatement(c.Request.Context(), portssvc.AutoMatchCommand{
		BankStatementID:   statementID,
		DateToleranceDays: req.DateToleranceDays,
		MatchedBy:         userID,
	})
	if err != nil {
		respondError(c, logger, err, "auto-match statement")
		return
	}

	logger.Info("Statement auto-matched successfully", slog.Int("matched", result.Matched), slog.Int("unmatched", result.Unmatched))
	c.JSON(http.StatusOK, result)
}

// matchTransaction godoc
// @Summary Match a bank transaction
// @Description Matches a bank transaction to a posted journal line when the match rules allow it
// @Tags bank
// @Accept  json
// @Produce  json
// @Param   id path string true "Bank transaction ID"
// @Param   match body dto.MatchTransactionRequest true "Journal line to match"
// @Success 200 {object} dto.MatchTransactionResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank transaction not found"
// @Failure 422 {object} map[string]string "Transaction cannot be matched"
// @Failure 500 {object} map[string]string "Failed to match transaction"
// @Security BearerAuth
// @Router /bank-transactions/{id}/match [post]
func (h *bankHandler) matchTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	txID := c.Param("id")

	var req dto.MatchTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err, "MatchTransaction")
		return
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_transaction_id", txID), slog.String("journal_line_id", req.JournalLineID))
	res, err := h.bankService.MatchTransaction(c.Request.Context(), portssvc.MatchTransactionCommand{
		BankTransactionID: txID,
		JournalLineID:     req.JournalLineID,
		DateToleranceDays: req.DateToleranceDays,
		MatchedBy:         userID,
	})
	if err != nil {
		respondError(c, logger, err, "match bank transaction")
		return
	}

	if res.Result.Matched {
		logger.Info("Bank transaction matched successfully")
	} else {
		logger.Info("Bank transaction not matched", slog.String("reason", res.Result.Reason))
	}
	c.JSON(http.StatusOK, dto.MatchTransactionResponse{
		Matched:     res.Result.Matched,
		Reason:      res.Result.Reason,
		Transaction: dto.ToBankTransactionResponse(res.Transaction),
	})
}

// unmatchTransaction godoc
// @Summary Unmatch a bank transaction
// @Description Clears the match on a bank transaction
// @Tags bank
// @Produce  json
// @Param   id path string true "Bank transaction ID"
// @Success 200 {object} dto.BankTransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank transaction not found"
// @Failure 422 {object} map[string]string "Transaction is not matched"
// @Failure 500 {object} map[string]string "Failed to unmatch transaction"
// @Security BearerAuth
// @Router /bank-transactions/{id}/unmatch [post]
func (h *bankHandler) unmatchTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	txID := c.Param("id")
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_transaction_id", txID))
	tx, err := h.bankService.UnmatchTransaction(c.Request.Context(), txID, userID)
	if err != nil {
		respondError(c, logger, err, "unmatch bank transaction")
		return
	}

	logger.Info("Bank transaction unmatched successfully")
	c.JSON(http.StatusOK, dto.ToBankTransactionResponse(tx))
}

// excludeTransaction godoc
// @Summary Exclude a bank transaction
// @Description Excludes a bank transaction from matching
// @Tags bank
// @Accept  json
// @Produce  json
// @Param   id path string true "Bank transaction ID"
// @Param   request body dto.ExcludeTransactionRequest false "Exclusion reason"
// @Success 200 {object} dto.BankTransactionResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank transaction not found"
// @Failure 422 {object} map[string]string "Transaction cannot be excluded"
// @Failure 500 {object} map[string]string "Failed to exclude transaction"
// @Security BearerAuth
// @Router /bank-transactions/{id}/exclude [post]
func (h *bankHandler) excludeTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	txID := c.Param("id")

	var req dto.ExcludeTransactionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, logger, err, "ExcludeTransaction")
			return
		}
	}
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_transaction_id", txID))
	tx, err := h.bankService.ExcludeTransaction(c.Request.Context(), txID, req.Reason, userID)
	if err != nil {
		respondError(c, logger, err, "exclude bank transaction")
		return
	}

	logger.Info("Bank transaction excluded successfully")
	c.JSON(http.StatusOK, dto.ToBankTransactionResponse(tx))
}

// includeTransaction godoc
// @Summary Include a bank transaction
// @Description Returns an excluded bank transaction to the unmatched pool
// @Tags bank
// @Produce  json
// @Param   id path string true "Bank transaction ID"
// @Success 200 {object} dto.BankTransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Bank transaction not found"
// @Failure 422 {object} map[string]string "Transaction is not excluded"
// @Failure 500 {object} map[string]string "Failed to include transaction"
// @Security BearerAuth
// @Router /bank-transactions/{id}/include [post]
func (h *bankHandler) includeTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	txID := c.Param("id")
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("bank_transaction_id", txID))
	tx, err := h.bankService.IncludeTransaction(c.Request.Context(), txID, userID)
	if err != nil {
		respondError(c, logger, err, "include bank transaction")
		return
	}

	logger.Info("Bank transaction included successfully")
	c.JSON(http.StatusOK, dto.ToBankTransactionResponse(tx))
}

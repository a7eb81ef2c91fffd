package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/api/middleware"
	"github.com/dvloznov/zerobalance/internal/assistant"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/jobs"
	"github.com/dvloznov/zerobalance/internal/ledger"
	"github.com/rs/zerolog"
)

// maxReviewMonths bounds the analysis period of a subscription review.
const maxReviewMonths = 24

// writeServiceError maps ledger errors onto HTTP statuses. Unexpected
// errors are logged and reported with the generic message.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, message string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInUse):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg(message)
		middleware.WriteError(w, http.StatusInternalServerError, message)
	}
}

// parseDateParam reads an optional YYYY-MM-DD query parameter. A missing
// parameter yields the zero (invalid) date.
func parseDateParam(r *http.Request, key string) (civil.Date, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return civil.Date{}, fmt.Errorf("Invalid %s format", key)
	}
	return d, nil
}

// parseWindow reads the optional month (1-12) and year query parameters.
// A missing parameter or "all" leaves that part of the window open.
func parseWindow(r *http.Request) (domain.Window, error) {
	var w domain.Window
	query := r.URL.Query()

	if v := query.Get("month"); v != "" && v != "all" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return w, fmt.Errorf("Invalid month %q", v)
		}
		w.Month = time.Month(m)
	}
	if v := query.Get("year"); v != "" && v != "all" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return w, fmt.Errorf("Invalid year %q", v)
		}
		w.Year = y
	}
	return w, nil
}

// ChatHandler handles the conversational endpoint.
type ChatHandler struct {
	svc *ledger.Service
	log zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *ledger.Service, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

type chatResponse struct {
	Action      json.RawMessage     `json:"action"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message     string `json:"message"`
		CurrentDate string `json:"currentDate"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var today civil.Date
	if req.CurrentDate != "" {
		d, err := civil.ParseDate(req.CurrentDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid currentDate format")
			return
		}
		today = d
	}

	result, err := h.svc.Chat(r.Context(), req.Message, today)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to process chat message")
		return
	}

	wire, err := domain.MarshalAction(result.Action)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode action")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to encode action")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, chatResponse{
		Action:      wire,
		Transaction: result.Transaction,
	})
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	svc *ledger.Service
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *ledger.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{svc: svc, log: log}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, err := parseDateParam(r, "start_date")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(r, "end_date")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := ledger.TransactionFilter{
		From:       from,
		To:         to,
		UserID:     query.Get("user_id"),
		CategoryID: query.Get("category_id"),
		Type:       domain.TransactionType(query.Get("type")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}

	transactions, err := h.svc.Transactions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		domain.AddTransaction
		Notes string `json:"notes"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.Record(r.Context(), req.AddTransaction, req.Notes)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to record transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request, id string) {
	tx, err := h.svc.Transaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// UpdateTransaction handles PUT /api/transactions/{id}. The body has the
// same shape as for POST and replaces every field.
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		domain.AddTransaction
		Notes string `json:"notes"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.UpdateTransaction(r.Context(), id, req.AddTransaction, req.Notes)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.DeleteTransaction(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SummaryHandler handles the dashboard summary endpoint.
type SummaryHandler struct {
	svc *ledger.Service
	log zerolog.Logger
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(svc *ledger.Service, log zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{svc: svc, log: log}
}

// GetSummary handles GET /api/summary. The range defaults to the current
// month up to today.
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "start_date")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(r, "end_date")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	today := h.svc.Today()
	if !to.IsValid() {
		to = today
	}
	if !from.IsValid() {
		from = civil.Date{Year: to.Year, Month: to.Month, Day: 1}
	}

	summary, err := h.svc.Summary(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build summary")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, summary)
}

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	svc *ledger.Service
	log zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(svc *ledger.Service, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{svc: svc, log: log}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list categories")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// UsersHandler handles roommate endpoints.
type UsersHandler struct {
	svc *ledger.Service
	log zerolog.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(svc *ledger.Service, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{svc: svc, log: log}
}

// ListUsers handles GET /api/users
func (h *UsersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list users")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// CreateUser handles POST /api/users
func (h *UsersHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.svc.AddUser(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create user")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, user)
}

// UpdateUser handles PUT /api/users/{id}
func (h *UsersHandler) UpdateUser(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.svc.RenameUser(r.Context(), id, req.Name)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update user")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/users/{id}. Roommates with transactions
// or budgets are kept and the request fails with 409.
func (h *UsersHandler) DeleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BudgetsHandler handles budget endpoints.
type BudgetsHandler struct {
	svc *ledger.Service
	log zerolog.Logger
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(svc *ledger.Service, log zerolog.Logger) *BudgetsHandler {
	return &BudgetsHandler{svc: svc, log: log}
}

// ListBudgets handles GET /api/budgets?month=&year=
func (h *BudgetsHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	budgets, err := h.svc.Budgets(r.Context(), window)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list budgets")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": budgets,
		"count":   len(budgets),
	})
}

// CreateBudget handles POST /api/budgets
func (h *BudgetsHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req ledger.BudgetInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	budget, err := h.svc.AddBudget(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create budget")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, budget)
}

// UpdateBudget handles PUT /api/budgets/{id}
func (h *BudgetsHandler) UpdateBudget(w http.ResponseWriter, r *http.Request, id string) {
	var req ledger.BudgetInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	budget, err := h.svc.UpdateBudget(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update budget")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, budget)
}

// DeleteBudget handles DELETE /api/budgets/{id}
func (h *BudgetsHandler) DeleteBudget(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.DeleteBudget(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete budget")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Spent handles GET /api/budgets/spent?user_id=&month=&year=
func (h *BudgetsHandler) Spent(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := r.URL.Query().Get("user_id")

	spent, err := h.svc.BudgetSpent(r.Context(), userID, window)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to compute spending")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"userId": userID,
		"month":  int(window.Month),
		"year":   window.Year,
		"spent":  spent,
	})
}

// CategorySuggester suggests a category for a description.
// This interface enables mocking and testing of the model call.
type CategorySuggester interface {
	Suggest(ctx context.Context, description string, categories []domain.ReferenceEntity) (assistant.CategorySuggestion, error)
}

// CategorizeHandler handles the category suggestion endpoint.
type CategorizeHandler struct {
	svc       *ledger.Service
	suggester CategorySuggester
	log       zerolog.Logger
}

// NewCategorizeHandler creates a new categorize handler. suggester may be
// nil when no model is configured.
func NewCategorizeHandler(svc *ledger.Service, suggester CategorySuggester, log zerolog.Logger) *CategorizeHandler {
	return &CategorizeHandler{svc: svc, suggester: suggester, log: log}
}

// Categorize handles POST /api/categorize
func (h *CategorizeHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	if h.suggester == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, assistant.NoBackendMessage)
		return
	}

	var req struct {
		Description string `json:"description"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}

	ctx := r.Context()
	_, categories, err := h.svc.ReferenceData(ctx)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load categories")
		return
	}

	suggestion, err := h.suggester.Suggest(ctx, req.Description, categories)
	if err != nil {
		h.log.Error().Err(err).Msg("Category suggestion failed")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to suggest a category")
		return
	}

	categoryID, matched := assistant.MatchSuggestion(suggestion, categories)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"category":   suggestion.Category,
		"confidence": suggestion.Confidence,
		"categoryId": categoryID,
		"matched":    matched,
	})
}

// SubscriptionsHandler enqueues subscription reviews.
type SubscriptionsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewSubscriptionsHandler creates a new subscriptions handler.
func NewSubscriptionsHandler(publisher jobs.Publisher, log zerolog.Logger) *SubscriptionsHandler {
	return &SubscriptionsHandler{publisher: publisher, log: log}
}

// EnqueueReview handles POST /api/subscriptions/review
func (h *SubscriptionsHandler) EnqueueReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Months int `json:"months"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Months < 1 || req.Months > maxReviewMonths {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("months must be between 1 and %d", maxReviewMonths))
		return
	}

	job := &jobs.ReviewSubscriptionsJob{Months: req.Months}

	if err := h.publisher.PublishReviewSubscriptions(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue review job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue review job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Int("months", job.Months).Msg("Review job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		var notFound *jobs.ErrJobNotFound
		if errors.As(err, &notFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

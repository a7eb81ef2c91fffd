// Package api wires the HTTP handlers into a router.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/zerobalance/internal/api/handlers"
	"github.com/dvloznov/zerobalance/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups every endpoint handler served by the API.
type Handlers struct {
	Chat          *handlers.ChatHandler
	Transactions  *handlers.TransactionsHandler
	Summary       *handlers.SummaryHandler
	Categories    *handlers.CategoriesHandler
	Users         *handlers.UsersHandler
	Budgets       *handlers.BudgetsHandler
	Categorize    *handlers.CategorizeHandler
	Subscriptions *handlers.SubscriptionsHandler
	Jobs          *handlers.JobsHandler
}

// NewRouter registers all routes and applies the middleware chain.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Chat endpoint
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Chat.Chat(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Transactions.ListTransactions(w, r)
		case http.MethodPost:
			h.Transactions.CreateTransaction(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		// Extract transaction ID from path
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.Transactions.GetTransaction(w, r, id)
		case http.MethodPut:
			h.Transactions.UpdateTransaction(w, r, id)
		case http.MethodDelete:
			h.Transactions.DeleteTransaction(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Summary.GetSummary(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Categories.ListCategories(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Users.ListUsers(w, r)
		case http.MethodPost:
			h.Users.CreateUser(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/users/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/users/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "User ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			h.Users.UpdateUser(w, r, id)
		case http.MethodDelete:
			h.Users.DeleteUser(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	// Budgets endpoints
	mux.HandleFunc("/api/budgets", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Budgets.ListBudgets(w, r)
		case http.MethodPost:
			h.Budgets.CreateBudget(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/budgets/spent", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Budgets.Spent(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/budgets/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/budgets/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Budget ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			h.Budgets.UpdateBudget(w, r, id)
		case http.MethodDelete:
			h.Budgets.DeleteBudget(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/categorize", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Categorize.Categorize(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/subscriptions/review", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Subscriptions.EnqueueReview(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Jobs.ListJobs(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			h.Jobs.GetJob(w, r, jobID)
		} else {
			methodNotAllowed(w)
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Chain(log, mux)
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

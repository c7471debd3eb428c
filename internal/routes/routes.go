package routes

import (
	"net/http"

	"github.com/questlog/questlog/internal/app"
	"github.com/questlog/questlog/internal/handler"
	"github.com/questlog/questlog/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService)
	connect := handler.NewConnectHandler(app.ConnectionService, app.Reconciler)
	goal := handler.NewGoalHandler(app.GoalService, app.AggregateService, app.InsightService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Auth
	mux.HandleFunc("POST /auth/register", auth.Register)
	mux.HandleFunc("POST /auth/login", auth.Login)

	// OAuth callback carries identity in the signed state, not a session.
	mux.HandleFunc("GET /connect/{platform}/callback", connect.Callback)

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	// Connections
	mux.HandleFunc("GET /connect/{platform}", middleware.RequireAuth(connect.Initiate))
	mux.HandleFunc("POST /connect/{platform}/manual", middleware.RequireAuth(connect.Manual))
	mux.HandleFunc("DELETE /connect/{platform}", middleware.RequireAuth(connect.Disconnect))
	mux.HandleFunc("GET /connect/{platform}/status", middleware.RequireAuth(connect.Status))

	// Sync
	mux.HandleFunc("POST /sync/now", middleware.RequireAuth(connect.SyncNow))

	// Goals
	mux.HandleFunc("GET /goals", middleware.RequireAuth(goal.List))
	mux.HandleFunc("POST /goals", middleware.RequireAuth(goal.Create))
	mux.HandleFunc("GET /goals/{id}", middleware.RequireAuth(goal.Get))
	mux.HandleFunc("PUT /goals/{id}", middleware.RequireAuth(goal.Update))
	mux.HandleFunc("POST /goals/{id}/progress", middleware.RequireAuth(goal.AddProgress))
	mux.HandleFunc("POST /goals/{id}/pause", middleware.RequireAuth(goal.Pause))
	mux.HandleFunc("POST /goals/{id}/resume", middleware.RequireAuth(goal.Resume))
	mux.HandleFunc("DELETE /goals/{id}", middleware.RequireAuth(goal.Delete))

	// Summaries
	mux.HandleFunc("GET /summary/daily", middleware.RequireAuth(goal.DailySummary))
	mux.HandleFunc("GET /summary/weekly", middleware.RequireAuth(goal.WeeklySummary))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.Identity(app.AuthService),
	)
}

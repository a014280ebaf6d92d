package ui

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"schoolinfra/internal"
	"schoolinfra/internal/errors"
	"schoolinfra/ports"
)

// Reloader is a Loader whose state can be dropped and loaded again
type Reloader interface {
	Loader
	Reset()
}

// App is the admin server: profiling, health, reloads and result run history
type App struct {
	router  *chi.Mux
	loader  Reloader
	runs    ports.ResultRepository
	started time.Time
}

// AppConfig holds admin server configuration
type AppConfig struct {
	Port string
}

// NewApp creates the admin application; runs may be nil when no database is configured
func NewApp(loader Reloader, runs ports.ResultRepository) *App {
	app := &App{
		router:  chi.NewRouter(),
		loader:  loader,
		runs:    runs,
		started: time.Now(),
	}

	app.setupMiddleware()
	app.setupRoutes()
	return app
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the admin routes
func (a *App) setupRoutes() {
	a.router.Mount("/debug", middleware.Profiler())
	a.router.Get("/healthz", a.handleHealth)
	a.router.Get("/api/runs", a.handleListRuns)
	a.router.Post("/api/reload", a.handleReload)
}

// Handler returns the HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}

// HTTPServer builds an http.Server for the admin app
func (a *App) HTTPServer(cfg AppConfig) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"data_loaded": a.loader.Loaded(),
		"uptime":      time.Since(a.started).Round(time.Second).String(),
		"database":    a.runs != nil,
	})
}

// handleReload drops the loaded results and artifacts, then loads them again
func (a *App) handleReload(w http.ResponseWriter, r *http.Request) {
	a.loader.Reset()

	data, err := a.loader.Data(r.Context())
	if err != nil {
		internal.LogError("reload failed", err, zap.String("request_id", middleware.GetReqID(r.Context())))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "Internal server error",
			"success": false,
		})
		return
	}

	zap.L().Info("server data reloaded", zap.String("model_id", data.Model.ID.String()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"model_id":  data.Model.ID.String(),
		"rows":      len(data.Results.Records),
		"loaded_at": data.LoadedAt,
		"success":   true,
	})
}

func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":   "result database is not configured",
			"success": false,
		})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":   "limit must be a positive integer",
				"success": false,
			})
			return
		}
		limit = n
	}

	runs, err := a.runs.ListRuns(r.Context(), limit)
	if err != nil {
		internal.LogError("failed to list result runs", err, zap.String("request_id", middleware.GetReqID(r.Context())))
		writeJSON(w, errors.HTTPStatus(err), map[string]interface{}{
			"error":   "Internal server error",
			"success": false,
		})
		return
	}
	if runs == nil {
		runs = []ports.ResultRun{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs, "success": true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schoolinfra/domain/infra"
	"schoolinfra/internal/container"
	"schoolinfra/ui/middleware"
	"schoolinfra/ui/services"
)

//go:embed templates/*.html static/css/* static/js/*
var embeddedFiles embed.FS

// Loader provides the lazily loaded results, model and binarizer
type Loader interface {
	Data(ctx context.Context) (*container.Data, error)
	Lookup(ctx context.Context, location, category string) (infra.Record, bool, error)
	Loaded() bool
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port       string
	GinMode    string
	ReportPath string
}

// Server represents the public web server
type Server struct {
	router    *gin.Engine
	loader    Loader
	config    ServerConfig
	templates *template.Template
	render    *services.RenderService
}

// NewServer creates a new web server instance with all routes registered
func NewServer(cfg ServerConfig, loader Loader) (*Server, error) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	templates, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router:    gin.New(),
		loader:    loader,
		config:    cfg,
		templates: templates,
		render:    services.NewRenderService(),
	}
	s.router.SetHTMLTemplate(templates)

	if err := s.setupMiddleware(); err != nil {
		return nil, err
	}
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures Gin middleware and static assets
func (s *Server) setupMiddleware() error {
	s.router.Use(middleware.ZapLogger(zap.L()))
	s.router.Use(middleware.ZapRecovery(zap.L()))

	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to create static filesystem: %w", err)
	}
	s.router.StaticFS("/static", http.FS(staticFS))
	return nil
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	h := NewRecommendationHandler(s.loader, s.render)
	a := NewAnalyticsHandler(s.loader, s.render, s.config.ReportPath)

	// Main page and form endpoint
	s.router.GET("/", h.HandleIndex())
	s.router.POST("/get_recommendations", h.HandleGetRecommendations())
	s.router.GET("/health", h.HandleHealth())

	// JSON API
	api := s.router.Group("/api")
	api.GET("/options", a.HandleOptions())
	api.POST("/predict", a.HandlePredict())
	api.GET("/facilities/gaps", a.HandleFacilityGaps())
	api.GET("/states/:state/analysis", a.HandleStateAnalysis())
	api.GET("/priorities", a.HandlePriorities())
	api.GET("/scores/profile", a.HandleScoreProfile())

	s.router.GET("/report", a.HandleReport())
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer builds an http.Server listening on the configured port
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

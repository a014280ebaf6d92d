package ui

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"schoolinfra/domain/core"
	"schoolinfra/internal"
	"schoolinfra/internal/errors"
	"schoolinfra/ui/services"
)

// loadErrorText is returned by the index page when data cannot be loaded
const loadErrorText = "Error: Unable to load required data. Please check the server logs."

// RecommendationHandler serves the form page and its lookup endpoint
type RecommendationHandler struct {
	loader Loader
	render *services.RenderService
}

func NewRecommendationHandler(loader Loader, render *services.RenderService) *RecommendationHandler {
	return &RecommendationHandler{loader: loader, render: render}
}

// HandleIndex renders the form with the available states and categories
func (h *RecommendationHandler) HandleIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := h.loader.Data(c.Request.Context())
		if err != nil {
			internal.LogError("failed to load data for index", err)
			c.String(http.StatusInternalServerError, loadErrorText)
			return
		}

		c.HTML(http.StatusOK, "index.html", gin.H{
			"States":     data.Results.Locations(),
			"Categories": data.Results.Categories(),
		})
	}
}

// HandleGetRecommendations looks up the stored analysis for a state and category
func (h *RecommendationHandler) HandleGetRecommendations() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := strings.TrimSpace(c.PostForm("state"))
		if state == "" {
			respondError(c, errors.InvalidInput("state is required"))
			return
		}

		category := strings.TrimSpace(c.PostForm("category"))
		if category == "" {
			c.JSON(http.StatusOK, gin.H{"success": true, "waiting_for_category": true})
			return
		}

		rec, ok, err := h.loader.Lookup(c.Request.Context(), state, category)
		if err != nil {
			respondLoadError(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"success": true, "no_data": true})
			return
		}
		c.JSON(http.StatusOK, h.render.Recommendation(rec, category))
	}
}

// HandleHealth reports liveness and whether data has been loaded
func (h *RecommendationHandler) HandleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"data_loaded": h.loader.Loaded(),
		})
	}
}

// respondLoadError reports a failure to load server state; it is always a logged 500
func respondLoadError(c *gin.Context, err error) {
	internal.LogError("failed to load data", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "success": false})
}

// respondError writes the JSON error envelope; server errors are logged with their stack
// and reported generically
func respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if core.IsNotFoundError(err) {
		status = http.StatusNotFound
	}
	if status >= http.StatusInternalServerError {
		internal.LogError("request failed", err)
		c.JSON(status, gin.H{"error": "Internal server error", "success": false})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "success": false})
}

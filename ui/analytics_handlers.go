package ui

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schoolinfra/domain/infra"
	"schoolinfra/internal/analysis"
	"schoolinfra/internal/errors"
	"schoolinfra/internal/profiling"
	"schoolinfra/ui/services"
)

// AnalyticsHandler serves the JSON API and the training report
type AnalyticsHandler struct {
	loader     Loader
	render     *services.RenderService
	reportPath string
}

func NewAnalyticsHandler(loader Loader, render *services.RenderService, reportPath string) *AnalyticsHandler {
	return &AnalyticsHandler{loader: loader, render: render, reportPath: reportPath}
}

// PredictRequest carries raw facility counts keyed by column name
type PredictRequest struct {
	Counts map[string]float64 `json:"counts"`
}

// PredictResponse is the live model output for one set of counts
type PredictResponse struct {
	Recommendations []string             `json:"recommendations"`
	Joined          string               `json:"ml_recommendations"`
	Probabilities   map[string]float64   `json:"probabilities"`
	Scores          []services.ScoreView `json:"scores"`
	TotalScore      string               `json:"total_score"`
	ModelID         string               `json:"model_id"`
	Success         bool                 `json:"success"`
}

// HandleOptions lists the states, categories and facilities the form and API accept
func (h *AnalyticsHandler) HandleOptions() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := h.loader.Data(c.Request.Context())
		if err != nil {
			respondLoadError(c, err)
			return
		}

		facilities := make([]gin.H, 0, len(infra.Facilities))
		for _, f := range infra.Facilities {
			facilities = append(facilities, gin.H{"key": f.Key, "label": f.Label})
		}
		c.JSON(http.StatusOK, gin.H{
			"states":     data.Results.Locations(),
			"categories": data.Results.Categories(),
			"facilities": facilities,
			"features":   infra.FeatureNames(),
			"success":    true,
		})
	}
}

// HandlePredict runs the loaded model against counts posted as JSON
func (h *AnalyticsHandler) HandlePredict() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PredictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
			return
		}
		rec, err := recordFromCounts(req.Counts)
		if err != nil {
			respondError(c, err)
			return
		}

		data, err := h.loader.Data(c.Request.Context())
		if err != nil {
			respondLoadError(c, err)
			return
		}

		features := rec.Features()
		pred, err := data.Model.PredictRow(features)
		if err != nil {
			respondError(c, errors.WithCode(errors.CodeModelError, errors.Wrap(err, "prediction failed")))
			return
		}
		proba, err := data.Model.ProbaRow(features)
		if err != nil {
			respondError(c, errors.WithCode(errors.CodeModelError, errors.Wrap(err, "probability estimate failed")))
			return
		}

		labels := data.Binarizer.InverseTransform([][]int{pred})[0]
		probabilities := make(map[string]float64, len(proba))
		for i, p := range proba {
			probabilities[data.Binarizer.Classes[i]] = p
		}

		res := infra.NewAnalysisResult(rec, analysis.FormatPrediction(labels))
		zap.L().Debug("live prediction",
			zap.Int("labels", len(labels)),
			zap.Float64("total_schools", rec.Total()))

		c.JSON(http.StatusOK, PredictResponse{
			Recommendations: labels,
			Joined:          res.MLRecommendations,
			Probabilities:   probabilities,
			Scores:          h.render.ScoreList(res.Scores),
			TotalScore:      strconv.FormatFloat(res.Scores.Total, 'f', 1, 64) + "%",
			ModelID:         data.Model.ID.String(),
			Success:         true,
		})
	}
}

// HandleFacilityGaps ranks locations by schools lacking a facility
func (h *AnalyticsHandler) HandleFacilityGaps() gin.HandlerFunc {
	return func(c *gin.Context) {
		facility := c.DefaultQuery("facility", "library")
		limit := analysis.DefaultGapLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				respondError(c, errors.InvalidInput("limit must be a positive integer"))
				return
			}
			limit = n
		}

		data, err := h.loader.Data(c.Request.Context())
		if err != nil {
			respondLoadError(c, err)
			return
		}

		report, err := analysis.FacilityGaps(data.Results.Records, facility, c.Query("state"), c.Query("order"), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// HandleStateAnalysis aggregates facility coverage for one state
func (h *AnalyticsHandler) HandleStateAnalysis() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := h.loader.Data(c.Request.Context())
		if err != nil {
			respondLoadError(c, err)
			return
		}

		report, err := analysis.StateAnalysis(data.Results.Records, c.Param("state"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// HandlePriorities groups facility needs into urgent, important and long-term
func (h *AnalyticsHandler) HandlePriorities() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := h.loader.Data(c.Request.Context())
		if err != nil {
			respondLoadError(c, err)
			return
		}

		state := c.DefaultQuery("state", "all")
		groups := analysis.Priorities(data.Results.Records, state)
		if groups == nil {
			groups = []analysis.PriorityGroup{}
		}
		c.JSON(http.StatusOK, gin.H{"state": state, "priorities": groups})
	}
}

// HandleScoreProfile summarises facility score distributions across all rows
func (h *AnalyticsHandler) HandleScoreProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := h.loader.Data(c.Request.Context())
		if err != nil {
			respondLoadError(c, err)
			return
		}

		profiles, err := profiling.ProfileScores(data.Results.Records)
		if err != nil {
			respondError(c, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "no rows with schools to profile")))
			return
		}
		c.JSON(http.StatusOK, gin.H{"profiles": profiles, "success": true})
	}
}

// HandleReport renders the training report as HTML
func (h *AnalyticsHandler) HandleReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		md, err := os.ReadFile(h.reportPath)
		if err != nil {
			if os.IsNotExist(err) {
				c.String(http.StatusNotFound, "Training report not found. Run the train command first.")
				return
			}
			respondError(c, errors.Wrap(err, "failed to read training report"))
			return
		}

		c.HTML(http.StatusOK, "report.html", gin.H{
			"Body": h.render.MarkdownHTML(md),
		})
	}
}

// recordFromCounts builds a record from posted counts, rejecting unknown columns
func recordFromCounts(counts map[string]float64) (infra.Record, error) {
	if len(counts) == 0 {
		return infra.Record{}, errors.InvalidInput("counts are required")
	}
	raw := make(map[string]string, len(counts))
	for col, v := range counts {
		if _, ok := infra.LookupMetric(col); !ok {
			return infra.Record{}, errors.InvalidInput("unknown column: " + col)
		}
		if v < 0 {
			return infra.Record{}, errors.InvalidInput("counts must not be negative: " + col)
		}
		raw[col] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	rec := infra.NewRecord(raw)
	if rec.Total() <= 0 {
		return infra.Record{}, errors.InvalidInput(infra.ColTotalSchools + " must be greater than zero")
	}
	return rec, nil
}

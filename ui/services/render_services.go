package services

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"schoolinfra/domain/infra"
)

// NoRecommendationsText replaces an empty ML_Recommendations cell in responses
const NoRecommendationsText = "No recommendations available"

// SchoolInfo describes the matched row
type SchoolInfo struct {
	Category     string `json:"category"`
	TotalSchools int    `json:"total_schools"`
}

// RecommendationResponse is the body returned for a matched state and category
type RecommendationResponse struct {
	Recommendations string            `json:"recommendations"`
	Metrics         map[string]string `json:"metrics"`
	TotalScore      string            `json:"total_score"`
	SchoolInfo      SchoolInfo        `json:"school_info"`
	Success         bool              `json:"success"`
}

// ScoreView is a formatted facility score
type ScoreView struct {
	Column string `json:"column"`
	Label  string `json:"label"`
	Score  int    `json:"score"`
}

type RenderService struct{}

func NewRenderService() *RenderService {
	return &RenderService{}
}

// Recommendation builds the response for a stored analysis row
func (s *RenderService) Recommendation(rec infra.Record, category string) RecommendationResponse {
	res := infra.ResultFromRecord(rec)

	recommendations := res.MLRecommendations
	if recommendations == "" {
		recommendations = NoRecommendationsText
	}

	return RecommendationResponse{
		Recommendations: recommendations,
		Metrics:         s.Metrics(res.Scores),
		TotalScore:      fmt.Sprintf("%.1f%%", res.Scores.Total),
		SchoolInfo: SchoolInfo{
			Category:     category,
			TotalSchools: int(rec.Total()),
		},
		Success: true,
	}
}

// Metrics formats scores by display label
func (s *RenderService) Metrics(scores infra.Scores) map[string]string {
	out := make(map[string]string, len(infra.ScoredMetrics))
	for _, m := range infra.ScoredMetrics {
		out[m.Label] = fmt.Sprintf("%d%%", scores.ByColumn[m.Column])
	}
	return out
}

// ScoreList returns the scores in display order
func (s *RenderService) ScoreList(scores infra.Scores) []ScoreView {
	out := make([]ScoreView, 0, len(infra.ScoredMetrics))
	for _, m := range infra.ScoredMetrics {
		out = append(out, ScoreView{Column: m.Column, Label: m.Label, Score: scores.ByColumn[m.Column]})
	}
	return out
}

// MarkdownHTML renders a markdown document for embedding in a template
func (s *RenderService) MarkdownHTML(md []byte) template.HTML {
	return template.HTML(s.Markdown(md))
}

// Markdown renders a markdown document to HTML
func (s *RenderService) Markdown(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	return markdown.ToHTML(bytes.TrimSpace(md), p, renderer)
}

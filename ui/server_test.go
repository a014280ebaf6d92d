package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"schoolinfra/adapters/excel"
	"schoolinfra/domain/infra"
	"schoolinfra/internal/analysis"
	"schoolinfra/internal/config"
	"schoolinfra/internal/container"
	"schoolinfra/internal/errors"
	"schoolinfra/internal/testkit"
	"schoolinfra/ports"
	"schoolinfra/ui/services"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Data(ctx context.Context) (*container.Data, error) {
	args := m.Called(ctx)
	d, _ := args.Get(0).(*container.Data)
	return d, args.Error(1)
}

func (m *mockLoader) Lookup(ctx context.Context, location, category string) (infra.Record, bool, error) {
	args := m.Called(ctx, location, category)
	return args.Get(0).(infra.Record), args.Bool(1), args.Error(2)
}

func (m *mockLoader) Loaded() bool {
	return m.Called().Bool(0)
}

func (m *mockLoader) Reset() {
	m.Called()
}

func setupServer(t *testing.T) (*Server, *testkit.TestKit) {
	t.Helper()
	kit, err := testkit.NewTestKit(context.Background(), t.TempDir(), testkit.DefaultInfraConfig())
	require.NoError(t, err)

	c, err := container.New(kit.Config)
	require.NoError(t, err)

	srv, err := NewServer(ServerConfig{GinMode: "test", ReportPath: kit.Config.Paths.ReportPath}, c)
	require.NoError(t, err)
	return srv, kit
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/get_recommendations", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestIndexListsStatesAndCategories(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<option value="Kerala">Kerala</option>`)
	assert.Contains(t, w.Body.String(), `<option value="Secondary Only">Secondary Only</option>`)
}

func TestGetRecommendationsKnownPair(t *testing.T) {
	srv, kit := setupServer(t)

	w := postForm(t, srv.Handler(), url.Values{"state": {"Kerala"}, "category": {"Primary"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp services.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	rec, ok := kit.Results.Find("Kerala", "Primary")
	require.True(t, ok)
	want := infra.ResultFromRecord(rec)

	assert.Equal(t, want.MLRecommendations, resp.Recommendations)
	assert.Len(t, resp.Metrics, len(infra.ScoredMetrics))
	for _, m := range infra.ScoredMetrics {
		assert.Regexp(t, `^\d+%$`, resp.Metrics[m.Label])
	}
	assert.Regexp(t, `^\d+\.\d%$`, resp.TotalScore)
	assert.Equal(t, "Primary", resp.SchoolInfo.Category)
	assert.Equal(t, int(rec.Total()), resp.SchoolInfo.TotalSchools)
}

func TestGetRecommendationsUnknownPair(t *testing.T) {
	srv, _ := setupServer(t)

	w := postForm(t, srv.Handler(), url.Values{"state": {"Atlantis"}, "category": {"Primary"}})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["no_data"])
}

func TestGetRecommendationsWaitingForCategory(t *testing.T) {
	loader := new(mockLoader)
	srv, err := NewServer(ServerConfig{GinMode: "test"}, loader)
	require.NoError(t, err)

	w := postForm(t, srv.Handler(), url.Values{"state": {"Kerala"}})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["waiting_for_category"])
	loader.AssertNotCalled(t, "Data", mock.Anything)
}

func TestGetRecommendationsMissingState(t *testing.T) {
	loader := new(mockLoader)
	srv, err := NewServer(ServerConfig{GinMode: "test"}, loader)
	require.NoError(t, err)

	w := postForm(t, srv.Handler(), url.Values{"category": {"Primary"}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestLoadFailure(t *testing.T) {
	loader := new(mockLoader)
	loader.On("Data", mock.Anything).Return(nil, errors.ArtifactMissing("train_model.json"))
	loader.On("Lookup", mock.Anything, "Kerala", "Primary").Return(infra.Record{}, false, errors.ArtifactMissing("train_model.json"))

	srv, err := NewServer(ServerConfig{GinMode: "test"}, loader)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, loadErrorText, w.Body.String())

	w = postForm(t, srv.Handler(), url.Values{"state": {"Kerala"}, "category": {"Primary"}})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Internal server error", body["error"])

	loader.AssertNumberOfCalls(t, "Data", 1)
	loader.AssertNumberOfCalls(t, "Lookup", 1)
}

func dbConfig(cfg *config.Config) *config.Config {
	out := *cfg
	out.Server.ResultsSource = config.ResultsSourceDB
	out.Database = config.DatabaseConfig{Driver: "sqlite", URL: ":memory:"}
	return &out
}

func TestLoadFailureWithEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	kit, err := testkit.NewTestKit(ctx, t.TempDir(), testkit.DefaultInfraConfig())
	require.NoError(t, err)

	c, err := container.New(dbConfig(kit.Config))
	require.NoError(t, err)
	require.NoError(t, c.InitWithDatabase(ctx))
	defer c.Shutdown(ctx) //nolint:errcheck

	srv, err := NewServer(ServerConfig{GinMode: "test"}, c)
	require.NoError(t, err)

	w := postForm(t, srv.Handler(), url.Values{"state": {"Kerala"}, "category": {"Primary"}})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]interface{}{"error": "Internal server error", "success": false}, decode(t, w))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/states/Kerala/analysis", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["error"])

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, loadErrorText, w.Body.String())
}

func TestGetRecommendationsFromDatabase(t *testing.T) {
	ctx := context.Background()
	kit, err := testkit.NewTestKit(ctx, t.TempDir(), testkit.DefaultInfraConfig())
	require.NoError(t, err)

	c, err := container.New(dbConfig(kit.Config))
	require.NoError(t, err)
	require.NoError(t, c.InitWithDatabase(ctx))
	defer c.Shutdown(ctx) //nolint:errcheck

	results, out, err := analysis.Analyze(ctx, kit.Input, kit.Training.Model, kit.Training.Binarizer)
	require.NoError(t, err)
	run := ports.NewResultRun(kit.Training.Model.ID, "data.csv", len(results))
	require.NoError(t, c.ResultRepo.SaveRun(ctx, run, out.Headers, results))

	srv, err := NewServer(ServerConfig{GinMode: "test"}, c)
	require.NoError(t, err)

	w := postForm(t, srv.Handler(), url.Values{"state": {"Punjab"}, "category": {"Secondary Only"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp services.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	want, ok := out.Find("Punjab", "Secondary Only")
	require.True(t, ok)
	res := infra.ResultFromRecord(want)
	assert.Equal(t, res.MLRecommendations, resp.Recommendations)
	assert.Equal(t, fmt.Sprintf("%.1f%%", res.Scores.Total), resp.TotalScore)
	assert.Equal(t, int(want.Total()), resp.SchoolInfo.TotalSchools)

	w = postForm(t, srv.Handler(), url.Values{"state": {"Punjab"}, "category": {"Kindergarten"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["no_data"])
}

func TestGetRecommendationsFallbacks(t *testing.T) {
	ctx := context.Background()
	kit, err := testkit.NewTestKit(ctx, t.TempDir(), testkit.DefaultInfraConfig())
	require.NoError(t, err)

	// Blank the prediction of the first Kerala primary row and drop the internet score column
	dropped := infra.ColInternet + " Score"
	table := &infra.Table{}
	for _, h := range kit.Results.Headers {
		if h != dropped {
			table.Headers = append(table.Headers, h)
		}
	}
	table.Records = append(table.Records, kit.Results.Records...)
	for i, rec := range table.Records {
		if rec.Location == "Kerala" && rec.Category == "Primary" {
			table.Records[i].Raw = map[string]string{}
			for k, v := range rec.Raw {
				table.Records[i].Raw[k] = v
			}
			table.Records[i].Set(infra.ColMLRecommendations, "")
			table.Records[i].Set(infra.ColGirlsToilet+" Score", "17")
			table.Records[i].Set(infra.ColTotalScore, "42.5")
			break
		}
	}
	writer := excel.NewDataWriter(excel.DefaultConfig())
	require.NoError(t, writer.WriteTable(ctx, kit.Config.Paths.ResultsCSV, table))

	c, err := container.New(kit.Config)
	require.NoError(t, err)
	srv, err := NewServer(ServerConfig{GinMode: "test"}, c)
	require.NoError(t, err)

	w := postForm(t, srv.Handler(), url.Values{"state": {"Kerala"}, "category": {"Primary"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp services.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, services.NoRecommendationsText, resp.Recommendations)
	assert.Equal(t, "No recommendations available", resp.Recommendations)
	assert.Equal(t, "0%", resp.Metrics["Internet"])
	assert.Equal(t, "17%", resp.Metrics["Girls' Toilets"])
	assert.Equal(t, "42.5%", resp.TotalScore)
	assert.True(t, resp.Success)
}

func TestHealth(t *testing.T) {
	loader := new(mockLoader)
	loader.On("Loaded").Return(false)

	srv, err := NewServer(ServerConfig{GinMode: "test"}, loader)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["data_loaded"])
}

func TestStaticAssets(t *testing.T) {
	srv, err := NewServer(ServerConfig{GinMode: "test"}, new(mockLoader))
	require.NoError(t, err)

	for _, path := range []string{"/static/css/style.css", "/static/js/recommendations.js"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestOptions(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/options", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Len(t, body["states"], 7) // six states and the Total row
	assert.Len(t, body["categories"], 3)
	assert.Len(t, body["facilities"], len(infra.Facilities))
}

func TestPredict(t *testing.T) {
	srv, kit := setupServer(t)

	payload := `{"counts": {"Total No. of Schools": 100, "Functional Girl's Toilet": 20, "Internet": 10,
		"Handwash": 30, "Playground": 40, "Library or Reading Corner or Book Bank": 25,
		"Incinerator": 5, "Functional Drinking Water": 35}}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, kit.Training.Model.ID.String(), resp.ModelID)
	assert.Len(t, resp.Probabilities, kit.Training.Binarizer.NumClasses())
	for _, p := range resp.Probabilities {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
	assert.NotEmpty(t, resp.Joined)
	assert.Equal(t, "23.6%", resp.TotalScore)
	require.Len(t, resp.Scores, len(infra.ScoredMetrics))
	assert.Equal(t, 20, resp.Scores[0].Score)
}

func TestPredictRejectsBadInput(t *testing.T) {
	srv, _ := setupServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"counts": `},
		{"empty counts", `{"counts": {}}`},
		{"unknown column", `{"counts": {"Total No. of Schools": 10, "Swimming Pool": 1}}`},
		{"zero total", `{"counts": {"Total No. of Schools": 0, "Internet": 1}}`},
		{"negative", `{"counts": {"Total No. of Schools": 10, "Internet": -1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestFacilityGapsEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/facilities/gaps?facility=internet&limit=3", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "internet", body["facility"])
	assert.Equal(t, "desc", body["order"])
	assert.LessOrEqual(t, len(body["gaps"].([]interface{})), 3)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/facilities/gaps?facility=pool", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/facilities/gaps?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStateAnalysisEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/states/Goa/analysis", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Goa", body["state"])
	assert.Len(t, body["facilities"], 5)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/states/Atlantis/analysis", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPrioritiesEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/priorities?state=Atlantis", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Atlantis", body["state"])
	assert.Empty(t, body["priorities"])
}

func TestReport(t *testing.T) {
	srv, kit := setupServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/report", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1")
	assert.Contains(t, w.Body.String(), "<table>")

	require.NoError(t, os.Remove(kit.Config.Paths.ReportPath))
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScoreProfileEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/scores/profile", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Len(t, body["profiles"], len(infra.ScoredMetrics)+1)
}

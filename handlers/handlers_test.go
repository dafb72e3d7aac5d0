package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrorain/advisory"
	"agrorain/climate"
	"agrorain/config"
	"agrorain/types"
)

type fakeProvider struct {
	series types.HistoricalSeries
	err    error
}

func (f *fakeProvider) FetchSeries(_ context.Context, region string, _, _ time.Time) (types.HistoricalSeries, error) {
	if region != "Córdoba" {
		return nil, fmt.Errorf("%w: %q", types.ErrRegionNotRecognized, region)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

func monthlySeries(n int, value float64) types.HistoricalSeries {
	series := make(types.HistoricalSeries, 0, n)
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		series = append(series, types.Observation{
			Date:          start.AddDate(0, i, 0),
			Precipitation: value + float64(i%4),
		})
	}
	return series
}

func testRouter(provider *fakeProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		HorizonMonths:        24,
		Confidence:           0.80,
		DroughtThresholdMM:   500,
		FloodThresholdMM:     1500,
		VariabilityThreshold: 0.50,
	}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	svc := climate.NewService(provider, cfg, clock, nil)
	orch := advisory.NewOrchestrator(nil, nil, 0, time.Second, nil)

	r := gin.New()
	r.GET("/regions", RegionsHandler)
	r.POST("/analyze", func(c *gin.Context) { AnalyzeHandler(c, svc) })
	r.POST("/advise", func(c *gin.Context) { AdviseHandler(c, svc, orch) })
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeOK(t *testing.T) {
	r := testRouter(&fakeProvider{series: monthlySeries(36, 25)})

	w := doJSON(t, r, http.MethodPost, "/analyze", `{"region": "Córdoba"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var rep types.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, "Córdoba", rep.Region)
	assert.Equal(t, "1981-01", rep.PeriodStart)
	assert.Equal(t, "2026-08", rep.PeriodEnd)
	assert.NotEmpty(t, rep.Text)
}

func TestAnalyzeExplicitPeriod(t *testing.T) {
	r := testRouter(&fakeProvider{series: monthlySeries(36, 80)})

	w := doJSON(t, r, http.MethodPost, "/analyze",
		`{"region": "Córdoba", "start": "2000-01", "end": "2022-12"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var rep types.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, "2000-01", rep.PeriodStart)
	assert.Equal(t, "2022-12", rep.PeriodEnd)
}

func TestAnalyzeValidation(t *testing.T) {
	r := testRouter(&fakeProvider{series: monthlySeries(36, 80)})

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing region", `{}`, http.StatusBadRequest},
		{"bad start", `{"region": "Córdoba", "start": "enero"}`, http.StatusBadRequest},
		{"bad end", `{"region": "Córdoba", "end": "2020-13"}`, http.StatusBadRequest},
		{"end before start", `{"region": "Córdoba", "start": "2020-01", "end": "2019-01"}`, http.StatusBadRequest},
		{"unknown region", `{"region": "Atlántida"}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		w := doJSON(t, r, http.MethodPost, "/analyze", tc.body)
		assert.Equal(t, tc.want, w.Code, tc.name)
	}
}

func TestAnalyzeErrorMapping(t *testing.T) {
	short := testRouter(&fakeProvider{series: monthlySeries(12, 80)})
	w := doJSON(t, short, http.MethodPost, "/analyze", `{"region": "Córdoba"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	down := testRouter(&fakeProvider{err: fmt.Errorf("%w: timeout", types.ErrProviderUnavailable)})
	w = doJSON(t, down, http.MethodPost, "/analyze", `{"region": "Córdoba"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAdviseAlwaysAnswers(t *testing.T) {
	// No network backends configured: the static template answers.
	r := testRouter(&fakeProvider{series: monthlySeries(36, 25)})

	w := doJSON(t, r, http.MethodPost, "/advise",
		`{"region": "Córdoba", "question": "¿Conviene regar?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Advisory string        `json:"advisory"`
		Report   *types.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Advisory)
	assert.Contains(t, resp.Advisory, "•")
	require.NotNil(t, resp.Report)
	assert.Equal(t, "Córdoba", resp.Report.Region)
}

func TestRegionsEndpoint(t *testing.T) {
	r := testRouter(&fakeProvider{})

	w := doJSON(t, r, http.MethodGet, "/regions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Buenos Aires")
	assert.Contains(t, w.Body.String(), "Mendoza")
}

package nasapower

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrorain/types"
)

const stubResponse = `{
  "properties": {
    "parameter": {
      "PRECTOTCORR": {"202001": 2.0, "202002": -999, "202013": 99.0},
      "T2M": {"202001": 24.5},
      "T2M_MAX": {"202001": 33.0},
      "T2M_MIN": {"202001": 15.0},
      "RH2M": {"202001": 68.0}
    }
  }
}`

func stubServer(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ag", r.URL.Query().Get("community"))
		assert.NotEmpty(t, r.URL.Query().Get("latitude-min"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClientWithBase(srv.URL, srv.Client())
}

func TestFetchSeries(t *testing.T) {
	c := stubServer(t, http.StatusOK, stubResponse)

	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

	series, err := c.FetchSeries(context.Background(), "Córdoba", start, end)
	require.NoError(t, err)
	require.Len(t, series, 3)

	// January: 2.0 mm/day over 31 days.
	jan := series[0]
	assert.False(t, jan.Missing)
	assert.InDelta(t, 62.0, jan.Precipitation, 1e-9)
	assert.Equal(t, 24.5, jan.TempAvg)
	assert.Equal(t, 33.0, jan.TempMax)
	assert.Equal(t, 15.0, jan.TempMin)
	assert.Equal(t, 68.0, jan.Humidity)

	// February carries the fill value, March is absent: both stay in the
	// series flagged missing.
	assert.True(t, series[1].Missing)
	assert.True(t, series[2].Missing)
}

func TestFetchSeriesUnknownRegion(t *testing.T) {
	c := stubServer(t, http.StatusOK, stubResponse)

	_, err := c.FetchSeries(context.Background(), "Atlántida",
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrRegionNotRecognized))
}

func TestFetchSeriesInvalidPeriod(t *testing.T) {
	c := stubServer(t, http.StatusOK, stubResponse)

	_, err := c.FetchSeries(context.Background(), "Córdoba",
		time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidPeriod))
}

func TestFetchSeriesServerError(t *testing.T) {
	c := stubServer(t, http.StatusInternalServerError, "boom")

	_, err := c.FetchSeries(context.Background(), "Córdoba",
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrProviderUnavailable))
}

func TestFetchSeriesEmptyPayload(t *testing.T) {
	c := stubServer(t, http.StatusOK, `{"properties": {"parameter": {}}}`)

	_, err := c.FetchSeries(context.Background(), "Córdoba",
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrProviderUnavailable))
}

func TestRegions(t *testing.T) {
	regions := Regions()
	require.Len(t, regions, 6)
	assert.Equal(t, "Buenos Aires", regions[0])
	assert.Contains(t, regions, "Mendoza")
	assert.Contains(t, regions, "Misiones")
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, daysInMonth(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 29, daysInMonth(time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28, daysInMonth(time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)))
}

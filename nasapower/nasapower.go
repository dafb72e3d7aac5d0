// Package nasapower fetches monthly regional climate series from the NASA
// POWER API (agroclimatology community).
package nasapower

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"agrorain/types"
)

const (
	defaultBaseURL = "https://power.larc.nasa.gov/api/temporal/monthly/regional"

	// NASA POWER reports missing months with this fill value.
	fillValue = -999.0
)

// Monthly parameters requested from the API.
const (
	paramPrecip  = "PRECTOTCORR"
	paramTempAvg = "T2M"
	paramTempMax = "T2M_MAX"
	paramTempMin = "T2M_MIN"
	paramHumid   = "RH2M"
)

// BoundingBox delimits a region in decimal degrees.
type BoundingBox struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// RegionCoords maps each supported region to its bounding box.
var RegionCoords = map[string]BoundingBox{
	"Buenos Aires": {-39.0, -33.0, -65.0, -57.0},
	"Córdoba":      {-33.5, -31.0, -65.5, -63.0},
	"Santa Fe":     {-33.5, -28.0, -63.5, -59.0},
	"Mendoza":      {-36.0, -32.0, -69.5, -67.0},
	"Salta":        {-25.5, -22.0, -66.5, -63.0},
	"Misiones":     {-28.5, -25.5, -56.5, -53.5},
}

// Regions returns the supported region names, sorted.
func Regions() []string {
	names := make([]string, 0, len(RegionCoords))
	for name := range RegionCoords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Client is the HTTP client for the POWER monthly regional endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBase is used by tests to point the client at a stub server.
func NewClientWithBase(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: base, httpClient: httpClient}
}

type powerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

// FetchSeries returns the ordered monthly series for a region between start
// and end (inclusive, month precision). Months the provider reports with its
// fill value, or omits entirely, are kept in the series flagged as missing.
func (c *Client) FetchSeries(ctx context.Context, region string, start, end time.Time) (types.HistoricalSeries, error) {
	box, ok := RegionCoords[region]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrRegionNotRecognized, region)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", types.ErrInvalidPeriod,
			end.Format("2006-01"), start.Format("2006-01"))
	}

	q := url.Values{}
	q.Set("start", fmt.Sprintf("%d", start.Year()))
	q.Set("end", fmt.Sprintf("%d", end.Year()))
	q.Set("latitude-min", fmt.Sprintf("%.1f", box.LatMin))
	q.Set("latitude-max", fmt.Sprintf("%.1f", box.LatMax))
	q.Set("longitude-min", fmt.Sprintf("%.1f", box.LonMin))
	q.Set("longitude-max", fmt.Sprintf("%.1f", box.LonMax))
	q.Set("community", "ag")
	q.Set("parameters", paramPrecip+","+paramTempAvg+","+paramTempMax+","+paramTempMin+","+paramHumid)
	q.Set("format", "json")
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProviderUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: POWER API returned status %s", types.ErrProviderUnavailable, resp.Status)
	}

	var body powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", types.ErrProviderUnavailable, err)
	}

	precip := body.Properties.Parameter[paramPrecip]
	if len(precip) == 0 {
		return nil, fmt.Errorf("%w: response carries no %s series", types.ErrProviderUnavailable, paramPrecip)
	}

	return buildSeries(body.Properties.Parameter, start, end), nil
}

// buildSeries walks the requested months in order and assembles observations.
// POWER keys series by YYYYMM; month 13 is the annual mean and is skipped.
func buildSeries(params map[string]map[string]float64, start, end time.Time) types.HistoricalSeries {
	var series types.HistoricalSeries

	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)

	for !cur.After(last) {
		key := fmt.Sprintf("%04d%02d", cur.Year(), int(cur.Month()))

		obs := types.Observation{Date: cur}
		rate, ok := params[paramPrecip][key]
		if !ok || rate == fillValue {
			obs.Missing = true
		} else {
			// POWER reports precipitation as mm/day; scale by month length.
			obs.Precipitation = rate * float64(daysInMonth(cur))
			obs.TempAvg = valueOrZero(params[paramTempAvg], key)
			obs.TempMax = valueOrZero(params[paramTempMax], key)
			obs.TempMin = valueOrZero(params[paramTempMin], key)
			obs.Humidity = valueOrZero(params[paramHumid], key)
		}

		series = append(series, obs)
		cur = cur.AddDate(0, 1, 0)
	}

	return series
}

func valueOrZero(m map[string]float64, key string) float64 {
	v, ok := m[key]
	if !ok || v == fillValue {
		return 0
	}
	return v
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}

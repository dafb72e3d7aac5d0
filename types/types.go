package types

import (
	"errors"
	"time"
)

// Fatal conditions surfaced to the caller. Everything downstream of data
// acquisition degrades instead of failing.
var (
	ErrInsufficientData    = errors.New("historical series too short for seasonal decomposition")
	ErrProviderUnavailable = errors.New("time series provider unavailable")
	ErrRegionNotRecognized = errors.New("region not recognized")
	ErrInvalidPeriod       = errors.New("invalid analysis period")
)

// Observation is one calendar month of regional climate data, immutable once
// fetched. Missing marks a month the provider reported with its fill value;
// gaps are kept in the series, never dropped.
type Observation struct {
	Date          time.Time `json:"date"` // first day of the month, UTC
	Precipitation float64   `json:"precipitation_mm"`
	TempAvg       float64   `json:"temp_avg_c"`
	TempMax       float64   `json:"temp_max_c"`
	TempMin       float64   `json:"temp_min_c"`
	Humidity      float64   `json:"humidity_pct"`
	Missing       bool      `json:"missing,omitempty"`
}

// HistoricalSeries is an ordered monthly series for one region, monotonically
// increasing dates, one entry per calendar month.
type HistoricalSeries []Observation

// Valid returns the observations that carry real data.
func (s HistoricalSeries) Valid() []Observation {
	out := make([]Observation, 0, len(s))
	for _, o := range s {
		if !o.Missing {
			out = append(out, o)
		}
	}
	return out
}

// ForecastPoint is one projected month. Bounds form the configured confidence
// interval and always satisfy Lower <= Estimate <= Upper.
type ForecastPoint struct {
	Date     time.Time `json:"date"`
	Estimate float64   `json:"estimate_mm"`
	Lower    float64   `json:"lower_mm"`
	Upper    float64   `json:"upper_mm"`
}

// Forecast covers a fixed horizon immediately following the last historical
// month. Degraded is set when fitting fell back to the flat-mean trajectory.
type Forecast struct {
	Points     []ForecastPoint `json:"points"`
	Confidence float64         `json:"confidence"`
	Degraded   bool            `json:"degraded,omitempty"`
}

// AnnualMean is the mean projected (or historical) precipitation scaled to a
// full year, the figure the alert thresholds are compared against.
func (f Forecast) AnnualMean() float64 {
	if len(f.Points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range f.Points {
		sum += p.Estimate
	}
	return sum / float64(len(f.Points)) * 12
}

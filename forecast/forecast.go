// Package forecast fits an additive trend + yearly-seasonal model to a monthly
// precipitation series and projects it forward with uncertainty bounds.
package forecast

import (
	"fmt"
	"log"
	"math"
	"time"

	"agrorain/types"
)

const (
	// Minimum monthly points required for a seasonal decomposition.
	MinHistoryMonths = 24

	seasonLength = 12
)

// FitAndForecast decomposes the historical precipitation series into trend,
// yearly-seasonal and residual components, then extrapolates the trend,
// repeats the seasonal component and widens the interval with forecast
// distance. Pure over its inputs and computationally the heaviest step of an
// analysis, so callers memoize per (region, horizon).
//
// A numerically degenerate series does not fail: fitting degrades to a
// flat-mean trajectory with a wide fixed-width interval, flagged on the
// returned Forecast.
func FitAndForecast(series types.HistoricalSeries, horizon int, confidence float64) (types.Forecast, error) {
	valid := series.Valid()
	if len(valid) < MinHistoryMonths {
		return types.Forecast{}, fmt.Errorf("%w: %d valid months, need %d",
			types.ErrInsufficientData, len(valid), MinHistoryMonths)
	}
	if horizon <= 0 {
		return types.Forecast{}, fmt.Errorf("forecast horizon must be positive, got %d", horizon)
	}
	if confidence <= 0 || confidence >= 1 {
		return types.Forecast{}, fmt.Errorf("confidence must be in (0, 1), got %g", confidence)
	}

	lastDate := series[len(series)-1].Date

	fit, ok := decompose(valid)
	if !ok {
		log.Printf("Warning: degenerate precipitation series, using flat-trend fallback forecast")
		return flatFallback(valid, lastDate, horizon, confidence), nil
	}

	z := normalQuantile((1 + confidence) / 2)
	n := float64(len(valid))

	points := make([]types.ForecastPoint, 0, horizon)
	for h := 1; h <= horizon; h++ {
		date := lastDate.AddDate(0, h, 0)

		estimate := fit.intercept + fit.slope*(n-1+float64(h)) + fit.seasonal[int(date.Month())-1]
		if estimate < 0 {
			estimate = 0 // negative precipitation is physically invalid
		}

		// Uncertainty compounds with distance from the last observation.
		half := z * fit.residStd * math.Sqrt(1+float64(h)/seasonLength)

		points = append(points, types.ForecastPoint{
			Date:     date,
			Estimate: estimate,
			Lower:    estimate - half,
			Upper:    estimate + half,
		})
	}

	return types.Forecast{Points: points, Confidence: confidence}, nil
}

type decomposition struct {
	slope     float64
	intercept float64
	seasonal  [seasonLength]float64
	residStd  float64
}

// decompose fits the least-squares trend, averages the detrended values per
// calendar month into the seasonal component, and measures the residual
// spread. Reports !ok when the fit is numerically unusable.
func decompose(obs []types.Observation) (decomposition, bool) {
	n := float64(len(obs))

	var sumX, sumY, sumXY, sumXX float64
	for i, o := range obs {
		x := float64(i)
		sumX += x
		sumY += o.Precipitation
		sumXY += x * o.Precipitation
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return decomposition{}, false
	}

	var d decomposition
	d.slope = (n*sumXY - sumX*sumY) / denom
	d.intercept = (sumY - d.slope*sumX) / n

	var seasonalSum [seasonLength]float64
	var seasonalCount [seasonLength]int
	for i, o := range obs {
		m := int(o.Date.Month()) - 1
		seasonalSum[m] += o.Precipitation - (d.intercept + d.slope*float64(i))
		seasonalCount[m]++
	}
	for m := range d.seasonal {
		if seasonalCount[m] > 0 {
			d.seasonal[m] = seasonalSum[m] / float64(seasonalCount[m])
		}
	}

	var ss float64
	for i, o := range obs {
		resid := o.Precipitation - (d.intercept + d.slope*float64(i)) - d.seasonal[int(o.Date.Month())-1]
		ss += resid * resid
	}
	d.residStd = math.Sqrt(ss / n)

	if math.IsNaN(d.residStd) || math.IsInf(d.residStd, 0) || d.residStd == 0 {
		return decomposition{}, false
	}
	return d, true
}

// flatFallback projects the historical mean with a wide fixed-width interval.
// Users still need a trajectory when the fit collapses.
func flatFallback(obs []types.Observation, lastDate time.Time, horizon int, confidence float64) types.Forecast {
	var mean float64
	for _, o := range obs {
		mean += o.Precipitation
	}
	mean /= float64(len(obs))

	half := mean * 0.5
	if half < 10 {
		half = 10
	}

	points := make([]types.ForecastPoint, 0, horizon)
	for h := 1; h <= horizon; h++ {
		points = append(points, types.ForecastPoint{
			Date:     lastDate.AddDate(0, h, 0),
			Estimate: mean,
			Lower:    mean - half,
			Upper:    mean + half,
		})
	}

	return types.Forecast{Points: points, Confidence: confidence, Degraded: true}
}

// normalQuantile approximates the standard normal inverse CDF (Acklam's
// rational approximation, relative error below 1.15e-9).
func normalQuantile(p float64) float64 {
	a := [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const low, high = 0.02425, 1 - 0.02425

	switch {
	case p < low:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p > high:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}
}

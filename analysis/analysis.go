// Package analysis derives summary statistics from a historical series and its
// forecast, and classifies climate-risk alerts against configured thresholds.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"agrorain/types"
)

// Severity steps within each alert kind.
const (
	droughtHighMM     = 350.0
	droughtCriticalMM = 200.0
	floodHighMM       = 2000.0
	floodCriticalMM   = 2500.0
	cvHigh            = 0.75

	flatSlopeEpsilon = 1e-6
)

// Analyzer classifies alerts with strict-inequality thresholds: a value
// landing exactly on a threshold does not trigger.
type Analyzer struct {
	DroughtMM float64 // annual precipitation below this is drought risk
	FloodMM   float64 // annual precipitation above this is flood risk
	CVLimit   float64 // coefficient of variation above this is high variability
}

func New(droughtMM, floodMM, cvLimit float64) *Analyzer {
	return &Analyzer{DroughtMM: droughtMM, FloodMM: floodMM, CVLimit: cvLimit}
}

// Analyze computes the summary statistics over the full historical window and
// the alert set for the historical + projected picture. Alerts are unique per
// kind and recomputed from scratch every run.
func (a *Analyzer) Analyze(historical types.HistoricalSeries, fc types.Forecast) (types.SummaryStats, []types.ClimateAlert) {
	stats := summarize(historical)
	alerts := a.classify(stats, fc)
	return stats, alerts
}

func summarize(historical types.HistoricalSeries) types.SummaryStats {
	obs := historical.Valid()
	stats := types.SummaryStats{
		Months:       len(obs),
		AnnualTotals: make(map[int]float64),
	}
	if len(obs) == 0 {
		return stats
	}

	precip := make([]float64, len(obs))
	var sum float64
	tmax := math.Inf(-1)
	tmin := math.Inf(1)
	for i, o := range obs {
		precip[i] = o.Precipitation
		sum += o.Precipitation
		if o.TempMax > tmax {
			tmax = o.TempMax
		}
		if o.TempMin < tmin {
			tmin = o.TempMin
		}
		stats.AnnualTotals[o.Date.Year()] += o.Precipitation
	}

	stats.MonthlyMean = sum / float64(len(obs))
	stats.MonthlyMedian = median(precip)
	stats.AnnualMean = stats.MonthlyMean * 12
	stats.ThermalAmplitude = tmax - tmin

	if stats.MonthlyMean != 0 {
		stats.CV = stddev(precip, stats.MonthlyMean) / stats.MonthlyMean
	}

	stats.TrendSlope, stats.TrendDescription = precipitationTrend(obs)
	stats.Seasons = seasonBreakdown(obs)

	return stats
}

// classify applies the threshold rules. The comparison value is the worse of
// the historical and projected annual precipitation for each direction.
func (a *Analyzer) classify(stats types.SummaryStats, fc types.Forecast) []types.ClimateAlert {
	var alerts []types.ClimateAlert

	annual := stats.AnnualMean
	projected := fc.AnnualMean()

	if low := math.Min(annual, projected); low < a.DroughtMM {
		alerts = append(alerts, types.ClimateAlert{
			Kind:     types.DroughtRisk,
			Severity: droughtSeverity(low),
			Evidence: fmt.Sprintf("Precipitación anual de %.1f mm, por debajo del umbral de sequía de %.0f mm.", low, a.DroughtMM),
		})
	}

	if stats.CV > a.CVLimit {
		sev := types.Medium
		if stats.CV > cvHigh {
			sev = types.High
		}
		alerts = append(alerts, types.ClimateAlert{
			Kind:     types.HighVariability,
			Severity: sev,
			Evidence: fmt.Sprintf("Coeficiente de variación de %.2f, por encima del límite de %.2f.", stats.CV, a.CVLimit),
		})
	}

	if high := math.Max(annual, projected); high > a.FloodMM {
		alerts = append(alerts, types.ClimateAlert{
			Kind:     types.FloodRisk,
			Severity: floodSeverity(high),
			Evidence: fmt.Sprintf("Precipitación anual de %.1f mm, por encima del umbral de inundación de %.0f mm.", high, a.FloodMM),
		})
	}

	return alerts
}

func droughtSeverity(annual float64) types.Severity {
	switch {
	case annual < droughtCriticalMM:
		return types.Critical
	case annual < droughtHighMM:
		return types.High
	default:
		return types.Medium
	}
}

func floodSeverity(annual float64) types.Severity {
	switch {
	case annual > floodCriticalMM:
		return types.Critical
	case annual > floodHighMM:
		return types.High
	default:
		return types.Medium
	}
}

// precipitationTrend fits a simple least-squares line over the month index and
// labels the slope.
func precipitationTrend(obs []types.Observation) (float64, string) {
	if len(obs) < 2 {
		return 0, "Lateral"
	}

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
		return 0, "Lateral"
	}
	slope := (n*sumXY - sumX*sumY) / denom

	switch {
	case math.Abs(slope) < flatSlopeEpsilon:
		return slope, "Lateral"
	case slope > 0:
		return slope, "Alcista"
	default:
		return slope, "Bajista"
	}
}

var seasons = []struct {
	name   string
	months [3]time.Month
}{
	{"Verano (Dic-Feb)", [3]time.Month{time.December, time.January, time.February}},
	{"Otoño (Mar-May)", [3]time.Month{time.March, time.April, time.May}},
	{"Invierno (Jun-Ago)", [3]time.Month{time.June, time.July, time.August}},
	{"Primavera (Sep-Nov)", [3]time.Month{time.September, time.October, time.November}},
}

// seasonBreakdown averages precipitation and temperature per fixed 3-month
// bucket (southern hemisphere).
func seasonBreakdown(obs []types.Observation) []types.SeasonStats {
	out := make([]types.SeasonStats, 0, len(seasons))
	for _, season := range seasons {
		var precipSum, tempSum float64
		var count int
		for _, o := range obs {
			for _, m := range season.months {
				if o.Date.Month() == m {
					precipSum += o.Precipitation
					tempSum += o.TempAvg
					count++
					break
				}
			}
		}
		ss := types.SeasonStats{Name: season.name}
		if count > 0 {
			ss.MeanPrecip = precipSum / float64(count)
			ss.MeanTemp = tempSum / float64(count)
		}
		out = append(out, ss)
	}
	return out
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func stddev(values []float64, mean float64) float64 {
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

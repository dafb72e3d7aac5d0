// Package report assembles the structured climate report consumed by the UI
// and the advisory stage. Pure formatting: identical inputs yield an identical
// report, byte for byte.
package report

import (
	"fmt"
	"sort"
	"strings"

	"agrorain/types"
)

// Alerts render in this fixed order regardless of how the analyzer emitted
// them.
var kindOrder = map[types.AlertKind]int{
	types.DroughtRisk:     0,
	types.HighVariability: 1,
	types.FloodRisk:       2,
}

const excerptMonths = 12

// Build assembles the report for one analysis run. The returned report is
// never mutated afterwards.
func Build(region, periodStart, periodEnd string, stats types.SummaryStats, alerts []types.ClimateAlert, fc types.Forecast) *types.Report {
	sorted := append([]types.ClimateAlert(nil), alerts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return kindOrder[sorted[i].Kind] < kindOrder[sorted[j].Kind]
	})

	excerpt := fc.Points
	if len(excerpt) > excerptMonths {
		excerpt = excerpt[:excerptMonths]
	}

	r := &types.Report{
		Region:           region,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		Stats:            stats,
		Alerts:           sorted,
		ForecastExcerpt:  append([]types.ForecastPoint(nil), excerpt...),
		ForecastAnnual:   fc.AnnualMean(),
		ForecastDegraded: fc.Degraded,
	}
	r.Text = render(r, len(fc.Points))
	return r
}

func render(r *types.Report, horizon int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "REPORTE CLIMÁTICO DETALLADO - %s\n\n", strings.ToUpper(r.Region))

	sb.WriteString("PERÍODO ANALIZADO:\n")
	fmt.Fprintf(&sb, "- Rango: %s a %s\n", r.PeriodStart, r.PeriodEnd)
	fmt.Fprintf(&sb, "- Total de registros: %d meses\n\n", r.Stats.Months)

	sb.WriteString("ESTADÍSTICAS DE PRECIPITACIÓN:\n")
	fmt.Fprintf(&sb, "- Promedio mensual: %.1f mm\n", r.Stats.MonthlyMean)
	fmt.Fprintf(&sb, "- Mediana mensual: %.1f mm\n", r.Stats.MonthlyMedian)
	fmt.Fprintf(&sb, "- Promedio anual: %.1f mm\n", r.Stats.AnnualMean)
	fmt.Fprintf(&sb, "- Coeficiente de variación: %.2f\n", r.Stats.CV)
	fmt.Fprintf(&sb, "- Tendencia: %s (pendiente %.4f mm/mes)\n", r.Stats.TrendDescription, r.Stats.TrendSlope)
	fmt.Fprintf(&sb, "- Amplitud térmica: %.1f °C\n\n", r.Stats.ThermalAmplitude)

	if len(r.Stats.Seasons) > 0 {
		sb.WriteString("ESTACIONES:\n")
		for _, s := range r.Stats.Seasons {
			fmt.Fprintf(&sb, "- %s: %.1f mm/mes, %.1f °C\n", s.Name, s.MeanPrecip, s.MeanTemp)
		}
		sb.WriteString("\n")
	}

	if len(r.Stats.AnnualTotals) > 0 {
		years := make([]int, 0, len(r.Stats.AnnualTotals))
		for y := range r.Stats.AnnualTotals {
			years = append(years, y)
		}
		sort.Ints(years)
		if len(years) > 5 {
			years = years[len(years)-5:]
		}
		sb.WriteString("ACUMULADOS ANUALES RECIENTES:\n")
		for _, y := range years {
			fmt.Fprintf(&sb, "- %d: %.1f mm\n", y, r.Stats.AnnualTotals[y])
		}
		sb.WriteString("\n")
	}

	if len(r.ForecastExcerpt) > 0 {
		min, max := r.ForecastExcerpt[0], r.ForecastExcerpt[0]
		var sum float64
		for _, p := range r.ForecastExcerpt {
			sum += p.Estimate
			if p.Estimate < min.Estimate {
				min = p
			}
			if p.Estimate > max.Estimate {
				max = p
			}
		}
		fmt.Fprintf(&sb, "PREDICCIÓN FUTURA (próximos %d de %d meses):\n", len(r.ForecastExcerpt), horizon)
		fmt.Fprintf(&sb, "- Promedio predicho: %.1f mm/mes\n", sum/float64(len(r.ForecastExcerpt)))
		fmt.Fprintf(&sb, "- Máximo predicho: %.1f mm (%s)\n", max.Estimate, max.Date.Format("2006-01"))
		fmt.Fprintf(&sb, "- Mínimo predicho: %.1f mm (%s)\n", min.Estimate, min.Date.Format("2006-01"))
		fmt.Fprintf(&sb, "- Promedio anual proyectado: %.1f mm\n", r.ForecastAnnual)
		if r.ForecastDegraded {
			sb.WriteString("- Nota: el ajuste estacional no fue posible; proyección plana sobre el promedio histórico.\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("ALERTAS:\n")
	if len(r.Alerts) == 0 {
		sb.WriteString("- Sin alertas activas.\n")
	}
	for _, a := range r.Alerts {
		fmt.Fprintf(&sb, "- [%s] (%s) %s\n", a.Kind, a.Severity, a.Evidence)
	}

	return sb.String()
}

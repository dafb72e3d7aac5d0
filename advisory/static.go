package advisory

import (
	"context"
	"fmt"
	"strings"

	"agrorain/types"
)

// StaticBackend composes a deterministic bullet answer from the report alone.
// It is the terminal link of the fallback chain: always available, never
// fails, no network dependency.
type StaticBackend struct {
	report *types.Report
}

func NewStaticBackend(report *types.Report) *StaticBackend {
	return &StaticBackend{report: report}
}

func (b *StaticBackend) Name() string { return "static" }

func (b *StaticBackend) Available() bool { return true }

func (b *StaticBackend) Generate(_ context.Context, _ string) (string, error) {
	r := b.report
	var bullets []string

	if r.Stats.TrendDescription != "" {
		bullets = append(bullets, fmt.Sprintf(
			"• Tendencia prevista: %s; planificar el riego asumiendo esa evolución para no sobredimensionar ni quedarse corto.",
			strings.ToLower(r.Stats.TrendDescription)))
	}

	if len(r.ForecastExcerpt) > 0 {
		min, max := r.ForecastExcerpt[0].Estimate, r.ForecastExcerpt[0].Estimate
		var sum float64
		for _, p := range r.ForecastExcerpt {
			sum += p.Estimate
			if p.Estimate < min {
				min = p.Estimate
			}
			if p.Estimate > max {
				max = p.Estimate
			}
		}
		mean := sum / float64(len(r.ForecastExcerpt))
		bullets = append(bullets,
			fmt.Sprintf("• Promedio esperado: ~%.1f mm/mes; dimensionar las láminas de riego contra ese valor y revisar si el cultivo demanda más.", mean),
			fmt.Sprintf("• Rango proyectado: %.1f-%.1f mm/mes; el extremo bajo marca el riesgo de déficit a cubrir con riego de complemento.", min, max))
	}

	if len(r.Alerts) > 0 {
		bullets = append(bullets, fmt.Sprintf("• Recomendación clave: %s Atender esta alerta antes de ajustar el resto del plan.", r.Alerts[0].Evidence))
	} else {
		bullets = append(bullets, "• Sin alertas activas: mantener el plan de riego actual y revisarlo con cada actualización mensual de datos.")
	}

	bullets = append(bullets, "• Riego: ajustar láminas según el déficit contra el promedio esperado y monitorear la humedad de suelo semanalmente; el riesgo es regar a ciegas entre lluvias.")

	if r.ForecastDegraded {
		bullets = append(bullets, "• Limitación: la proyección es plana sobre el promedio histórico; validar las decisiones de mayor costo con pronósticos de corto plazo.")
	}

	return strings.Join(bullets, "\n"), nil
}

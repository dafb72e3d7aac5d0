package types

type Severity string

const (
	Low      Severity = "low"
	Medium   Severity = "medium"
	High     Severity = "high"
	Critical Severity = "critical"
)

type AlertKind string

const (
	DroughtRisk     AlertKind = "DROUGHT_RISK"
	HighVariability AlertKind = "HIGH_VARIABILITY"
	FloodRisk       AlertKind = "FLOOD_RISK"
)

// ClimateAlert is derived from one analysis run and never mutated afterwards.
// At most one alert per kind per run.
type ClimateAlert struct {
	Kind     AlertKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Evidence string    `json:"evidence"`
}

// SeasonStats is one fixed 3-month bucket (southern-hemisphere seasons).
type SeasonStats struct {
	Name       string  `json:"name"`
	MeanPrecip float64 `json:"mean_precip_mm"`
	MeanTemp   float64 `json:"mean_temp_c"`
}

// SummaryStats are the derived figures over the full historical window.
type SummaryStats struct {
	Months           int             `json:"months"`
	MonthlyMean      float64         `json:"monthly_mean_mm"`
	MonthlyMedian    float64         `json:"monthly_median_mm"`
	AnnualMean       float64         `json:"annual_mean_mm"`
	CV               float64         `json:"coefficient_of_variation"`
	ThermalAmplitude float64         `json:"thermal_amplitude_c"`
	TrendSlope       float64         `json:"trend_slope_mm_per_month"`
	TrendDescription string          `json:"trend_description"`
	Seasons          []SeasonStats   `json:"seasons"`
	AnnualTotals     map[int]float64 `json:"annual_totals_mm"`
}

// Report is the structured analysis output, owned by the request that created
// it and read-only once built. Serializable to JSON for export consumers.
type Report struct {
	Region           string          `json:"region"`
	PeriodStart      string          `json:"period_start"` // YYYY-MM
	PeriodEnd        string          `json:"period_end"`
	Stats            SummaryStats    `json:"summary_stats"`
	Alerts           []ClimateAlert  `json:"alerts"`
	ForecastExcerpt  []ForecastPoint `json:"forecast_excerpt"`
	ForecastAnnual   float64         `json:"forecast_annual_mm"`
	ForecastDegraded bool            `json:"forecast_degraded,omitempty"`
	Text             string          `json:"text"`
}

// Snippet is one retrieved context item, transient to a single advisory call.
type Snippet struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every recognized option, populated once from the environment at
// process start and passed by reference. Credentials act purely as capability
// toggles: an unset key removes a backend from the fallback chain, it never
// aborts startup.
type Config struct {
	HTTPAddr string

	// Forecasting
	HorizonMonths int
	Confidence    float64

	// Alert thresholds
	DroughtThresholdMM   float64 // annual, strict less-than
	FloodThresholdMM     float64 // annual, strict greater-than
	VariabilityThreshold float64

	// Advisory
	OpenAIKey      string
	OpenAIModel    string
	HFToken        string
	HFModel        string
	BackendTimeout time.Duration
	RetrievalLimit int

	// Knowledge base (optional Firestore source, base64 service account JSON)
	FirebaseCredentials string
	KBCollection        string

	// Scheduled refresh
	RefreshSpec string
}

// Load reads configuration from environment variables, applying defaults where
// unset.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr: envOrDefault("HTTP_ADDR", ":8080"),

		HorizonMonths: 24,
		Confidence:    0.80,

		DroughtThresholdMM:   500,
		FloodThresholdMM:     1500,
		VariabilityThreshold: 0.50,

		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		HFToken:        os.Getenv("HF_TOKEN"),
		HFModel:        envOrDefault("HF_MODEL", "google/flan-t5-base"),
		BackendTimeout: 20 * time.Second,
		RetrievalLimit: 3,

		FirebaseCredentials: os.Getenv("FIREBASE_CREDENTIALS"),
		KBCollection:        envOrDefault("KB_COLLECTION", "knowledge_base"),

		RefreshSpec: envOrDefault("REFRESH_CRON", "30 5 * * *"),
	}

	var err error
	if cfg.HorizonMonths, err = envInt("FORECAST_HORIZON_MONTHS", cfg.HorizonMonths); err != nil {
		return nil, err
	}
	if cfg.Confidence, err = envFloat("FORECAST_CONFIDENCE", cfg.Confidence); err != nil {
		return nil, err
	}
	if cfg.DroughtThresholdMM, err = envFloat("DROUGHT_THRESHOLD_MM", cfg.DroughtThresholdMM); err != nil {
		return nil, err
	}
	if cfg.FloodThresholdMM, err = envFloat("FLOOD_THRESHOLD_MM", cfg.FloodThresholdMM); err != nil {
		return nil, err
	}
	if cfg.VariabilityThreshold, err = envFloat("VARIABILITY_THRESHOLD", cfg.VariabilityThreshold); err != nil {
		return nil, err
	}
	if cfg.RetrievalLimit, err = envInt("RETRIEVAL_LIMIT", cfg.RetrievalLimit); err != nil {
		return nil, err
	}
	if s := os.Getenv("BACKEND_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid BACKEND_TIMEOUT %q", s)
		}
		cfg.BackendTimeout = d
	}

	if cfg.HorizonMonths <= 0 {
		return nil, fmt.Errorf("FORECAST_HORIZON_MONTHS must be positive")
	}
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		return nil, fmt.Errorf("FORECAST_CONFIDENCE must be in (0, 1)")
	}
	if cfg.RetrievalLimit < 0 {
		return nil, fmt.Errorf("RETRIEVAL_LIMIT must not be negative")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return f, nil
}

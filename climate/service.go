// Package climate composes provider, forecast engine, analyzer and report
// builder into the per-request analysis pipeline.
package climate

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"agrorain/analysis"
	"agrorain/config"
	"agrorain/forecast"
	"agrorain/metrics"
	"agrorain/report"
	"agrorain/types"
)

// TimeSeriesProvider supplies the ordered monthly series for a region and
// period. Provider failures are fatal for the analysis request.
type TimeSeriesProvider interface {
	FetchSeries(ctx context.Context, region string, start, end time.Time) (types.HistoricalSeries, error)
}

// Historical coverage of the data source; the default analysis window starts
// here.
const defaultStartYear = 1981

// Service runs the analysis pipeline. All pipeline entities are request
// scoped; the only shared state is the forecast cache, keyed per
// (region, period, horizon, day) and guarded so at most one fit per key is in
// flight.
type Service struct {
	provider  TimeSeriesProvider
	analyzer  *analysis.Analyzer
	cfg       *config.Config
	clock     clockwork.Clock
	collector *metrics.Collector

	mu    sync.Mutex
	cache map[cacheKey]*cacheEntry
}

type cacheKey struct {
	region  string
	start   string
	end     string
	horizon int
	day     string
}

type cacheEntry struct {
	done chan struct{}
	fc   types.Forecast
	err  error
}

func NewService(provider TimeSeriesProvider, cfg *config.Config, clock clockwork.Clock, collector *metrics.Collector) *Service {
	return &Service{
		provider:  provider,
		analyzer:  analysis.New(cfg.DroughtThresholdMM, cfg.FloodThresholdMM, cfg.VariabilityThreshold),
		cfg:       cfg,
		clock:     clock,
		collector: collector,
		cache:     make(map[cacheKey]*cacheEntry),
	}
}

// DefaultPeriod returns the analysis window used when the request omits
// dates: the start of the data source's coverage through the current month.
func (s *Service) DefaultPeriod() (time.Time, time.Time) {
	now := s.clock.Now().UTC()
	start := time.Date(defaultStartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, end
}

// Analyze runs the full pipeline for one region and period. Data acquisition
// and insufficient-data errors propagate; everything downstream degrades
// inside the report instead of failing.
func (s *Service) Analyze(ctx context.Context, region string, start, end time.Time) (*types.Report, error) {
	began := s.clock.Now()

	series, err := s.provider.FetchSeries(ctx, region, start, end)
	if err != nil {
		return nil, err
	}

	fc, err := s.forecastFor(region, start, end, series)
	if err != nil {
		return nil, err
	}
	if fc.Degraded && s.collector != nil {
		s.collector.ForecastDegraded.Inc()
	}

	stats, alerts := s.analyzer.Analyze(series, fc)
	rep := report.Build(region, start.Format("2006-01"), end.Format("2006-01"), stats, alerts, fc)

	if s.collector != nil {
		s.collector.AnalysesTotal.Inc()
		s.collector.AnalysisDuration.Observe(s.clock.Since(began).Seconds())
	}
	return rep, nil
}

// forecastFor memoizes the expensive fit per (region, period, horizon, day).
// The first caller for a key computes; concurrent callers for the same key
// wait on the same entry, so a hit can never observe a partial write.
func (s *Service) forecastFor(region string, start, end time.Time, series types.HistoricalSeries) (types.Forecast, error) {
	key := cacheKey{
		region:  region,
		start:   start.Format("2006-01"),
		end:     end.Format("2006-01"),
		horizon: s.cfg.HorizonMonths,
		day:     s.clock.Now().UTC().Format("2006-01-02"),
	}

	s.mu.Lock()
	entry, ok := s.cache[key]
	if ok {
		s.mu.Unlock()
		<-entry.done
		if s.collector != nil {
			s.collector.ForecastCacheHits.Inc()
		}
		return entry.fc, entry.err
	}

	// Entries from prior days can never be hit again; drop them so the cache
	// stays bounded by the set of keys seen today.
	for k := range s.cache {
		if k.day != key.day {
			delete(s.cache, k)
		}
	}

	entry = &cacheEntry{done: make(chan struct{})}
	s.cache[key] = entry
	s.mu.Unlock()

	entry.fc, entry.err = forecast.FitAndForecast(series, s.cfg.HorizonMonths, s.cfg.Confidence)
	close(entry.done)

	if entry.err != nil {
		// Do not cache failures: a later request with better data should
		// recompute.
		s.mu.Lock()
		delete(s.cache, key)
		s.mu.Unlock()
	} else if entry.fc.Degraded {
		log.Printf("Forecast for %s degraded to flat-trend fallback", region)
	}

	return entry.fc, entry.err
}

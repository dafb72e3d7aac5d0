package cronjobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"agrorain/climate"
	"agrorain/nasapower"
)

const refreshTimeout = 5 * time.Minute

// InitCronJobs schedules the daily forecast refresh: warming the per-day
// forecast cache for every covered region so interactive requests hit a
// precomputed fit.
func InitCronJobs(svc *climate.Service, spec string) (*cron.Cron, error) {
	log.Println("Starting Cron Jobs -------------------------------------------------------")
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		log.Println("CronJob: forecast refresh running")
		refreshAll(svc)
	})
	if err != nil {
		log.Println("Error scheduling forecast refresh:", err)
		return nil, err
	}

	c.Start()
	return c, nil
}

func refreshAll(svc *climate.Service) {
	start, end := svc.DefaultPeriod()

	for _, region := range nasapower.Regions() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		rep, err := svc.Analyze(ctx, region, start, end)
		cancel()

		if err != nil {
			log.Printf("CronJob: refresh for %s failed: %v", region, err)
			continue
		}
		log.Printf("CronJob: refreshed %s, %d alerts", region, len(rep.Alerts))
	}
}

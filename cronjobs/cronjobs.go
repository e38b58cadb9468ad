package cronjobs

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Refresher is what the background job pokes; the view state coordinator
// implements it.
type Refresher interface {
	Refresh(events, prediction bool)
}

// InitCronJobs schedules the periodic background refresh of events and the
// prediction. An empty schedule disables it and returns a nil cron.
func InitCronJobs(schedule string, r Refresher, log *slog.Logger) (*cron.Cron, error) {
	if schedule == "" {
		log.Info("background refresh disabled")
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		log.Debug("cronjob: background refresh")
		r.Refresh(true, true)
	})
	if err != nil {
		return nil, err
	}

	log.Info("starting cron jobs", "refresh", schedule)
	c.Start()
	return c, nil
}

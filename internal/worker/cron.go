package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher rebuilds the stock report view.
type Refresher interface {
	RefreshMaterializedView(ctx context.Context) error
}

// StartCronJobs registers the stock report refresh on the given schedule
// and starts the scheduler. An invalid schedule is returned as an error
// so that main() can fail fast with a clear message.
//
// The returned *cron.Cron must be stopped on shutdown:
//
//	c, err := StartCronJobs(db, cfg.StockReportSchedule)
//	defer c.Stop()  // waits for any running job to finish before returning
func StartCronJobs(r Refresher, schedule string) (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc(schedule, func() { refresh(r) }); err != nil {
		return nil, err
	}

	c.Start()
	slog.Info("cron scheduler started", "component", "cron", "schedule", schedule)
	return c, nil
}

func refresh(r Refresher) {
	slog.Info("mv refresh started", "component", "cron")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := r.RefreshMaterializedView(ctx); err != nil {
		slog.Error("mv refresh failed", "component", "cron", "error", err)
		return
	}
	slog.Info("mv refresh done", "component", "cron")
}

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/user/mayday"
	"github.com/user/mayday/internal/config"
	"github.com/user/mayday/internal/storage"
	"github.com/user/mayday/pkg/submitter"
)

// Janitor purges reports older than the retention window on a cron schedule.
type Janitor struct {
	storage storage.Storage
	days    int
	spec    string
	logger  mayday.Logger
	cron    *cron.Cron
}

func NewJanitor(store storage.Storage, cfg config.RetentionConfig, logger mayday.Logger) *Janitor {
	if logger == nil {
		logger = submitter.NewDefaultLogger()
	}
	return &Janitor{
		storage: store,
		days:    cfg.Days,
		spec:    cfg.Schedule,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules the purge. A non-positive retention disables it.
func (j *Janitor) Start() error {
	if j.days <= 0 {
		return nil
	}
	_, err := j.cron.AddFunc(j.spec, func() {
		if _, err := j.Purge(context.Background()); err != nil {
			j.logger.Error("retention purge failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention purge: %w", err)
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	j.cron.Stop()
}

// Purge deletes all reports received before the retention cutoff.
func (j *Janitor) Purge(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.days)
	removed, err := j.storage.DeleteReportsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired reports: %w", err)
	}
	if removed > 0 {
		reportsPurged.Add(float64(removed))
	}
	j.logger.Info("retention purge complete", "removed", removed, "cutoff", cutoff)

	if err := j.storage.SaveSetting(ctx, "last_purge", time.Now().UTC().Format(time.RFC3339)); err != nil {
		j.logger.Warn("failed to record purge time", "error", err)
	}
	return removed, nil
}

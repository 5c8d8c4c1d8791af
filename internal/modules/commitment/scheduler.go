package commitment

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler runs ReconcileAll on a fixed interval.
type Scheduler struct {
	service  *Service
	interval time.Duration
	repair   bool
	log      logrus.FieldLogger
}

func NewScheduler(service *Service, interval time.Duration, repair bool, log logrus.FieldLogger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{service: service, interval: interval, repair: repair, log: log.WithField("component", "reconcile_scheduler")}
}

func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithFields(logrus.Fields{"interval": s.interval.String(), "repair": s.repair}).Info("reconciliation scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("reconciliation scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func summarize(results []ReconcileResult) (checked, drifts int) {
	for _, r := range results {
		checked += r.Checked
		drifts += len(r.Drifts)
	}
	return checked, drifts
}

// RunOnce reconciles every project and logs a summary.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	results, err := s.service.ReconcileAll(ctx, s.repair)
	if err != nil {
		s.log.WithError(err).Warn("scheduled reconciliation failed")
		return
	}
	checked, drifts := summarize(results)
	s.log.WithFields(logrus.Fields{
		"projects": len(results),
		"checked":  checked,
		"drifts":   drifts,
		"duration": time.Since(start).String(),
	}).Info("scheduled reconciliation completed")
}

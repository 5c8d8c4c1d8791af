package recalc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"buildledger/internal/domain"
	"buildledger/internal/pkg/utils"
)

const (
	defaultBatchSize  = 50
	maxBackoff        = 10 * time.Minute
	defaultMaxAttempt = 8
)

type WorkerConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	BatchSize    int
}

// Worker drains the recalculation outbox until every task succeeds or runs out of
// attempts.
type Worker struct {
	cascade *Cascade
	cfg     WorkerConfig
	log     logrus.FieldLogger
}

func NewWorker(cascade *Cascade, cfg WorkerConfig, log logrus.FieldLogger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempt
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Worker{cascade: cascade, cfg: cfg, log: log.WithField("component", "recalc_worker")}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.log.WithField("interval", w.cfg.PollInterval.String()).Info("recalculation worker started")
	for {
		if _, err := w.DrainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.WithError(err).Warn("draining recalculation outbox failed")
		}
		select {
		case <-ctx.Done():
			w.log.Info("recalculation worker stopped")
			return
		case <-ticker.C:
		}
	}
}

type DrainStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	GaveUp    int `json:"gave_up"`
}

// DrainOnce processes one batch of due tasks.
func (w *Worker) DrainOnce(ctx context.Context) (DrainStats, error) {
	var stats DrainStats
	tasks, err := w.cascade.tasks.ListDue(ctx, w.cascade.now(), w.cfg.BatchSize)
	if err != nil {
		return stats, err
	}

	for i := range tasks {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		task := tasks[i]
		// an earlier task of the same project may have covered this one
		current, err := w.cascade.tasks.GetByID(ctx, task.ID)
		if err != nil || current.Status != domain.RecalcTaskPending {
			continue
		}

		stats.Processed++
		warnings, ok := w.cascade.run(ctx, Event{
			ProjectID:     task.ProjectID,
			PhaseIDs:      utils.StringToIDs(task.PhaseIDs),
			Reason:        task.Reason,
			CorrelationID: task.CorrelationID,
		})
		if ok {
			stats.Succeeded++
			if err := w.cascade.tasks.MarkDone(ctx, task.ID); err != nil {
				w.log.WithError(err).WithField("task_id", task.ID).Warn("marking task done failed")
			}
			continue
		}

		stats.Failed++
		task.Attempts++
		task.LastError = strings.Join(warnings, "; ")
		task.NextAttemptAt = w.cascade.now().Add(Backoff(w.cfg.PollInterval, task.Attempts))
		if task.Attempts >= w.cfg.MaxAttempts {
			task.Status = domain.RecalcTaskFailed
			stats.GaveUp++
			w.log.WithFields(logrus.Fields{
				"task_id":    task.ID,
				"project_id": task.ProjectID,
				"attempts":   task.Attempts,
			}).Error("recalculation task exhausted its attempts")
		}
		if err := w.cascade.tasks.RecordFailure(ctx, &task); err != nil {
			w.log.WithError(err).WithField("task_id", task.ID).Warn("recording task failure failed")
		}
	}
	return stats, nil
}

// Backoff doubles the base delay per attempt, capped at ten minutes.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// Pending counts tasks still waiting for a successful run.
func (w *Worker) Pending(ctx context.Context) (int64, error) {
	return w.cascade.tasks.CountPending(ctx)
}

package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"strata-violations/internal/metrics"
	"strata-violations/internal/model"
	"strata-violations/internal/repository"
)

const (
	baseBackoff = 30 * time.Second
	maxBackoff  = time.Hour
)

type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Worker drains the notification outbox. Delivery is at-least-once: a job is
// marked sent only after the mailer returns.
type Worker struct {
	outbox   *repository.OutboxRepository
	mailer   Mailer
	renderer *Renderer
	metrics  *metrics.Metrics
	log      zerolog.Logger
	cfg      WorkerConfig
	now      func() time.Time
}

func NewWorker(
	outbox *repository.OutboxRepository,
	mailer Mailer,
	renderer *Renderer,
	m *metrics.Metrics,
	log zerolog.Logger,
	cfg WorkerConfig,
) *Worker {
	return &Worker{
		outbox:   outbox,
		mailer:   mailer,
		renderer: renderer,
		metrics:  m,
		log:      log.With().Str("component", "notification_worker").Logger(),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.cfg.PollInterval).Msg("notification worker started")
	for {
		if _, err := w.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("process notification batch")
		}
		select {
		case <-ctx.Done():
			w.log.Info().Msg("notification worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch delivers up to BatchSize due jobs and returns how many were sent.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	jobs, err := w.outbox.Due(ctx, w.now(), w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if w.deliver(ctx, job) {
			sent++
		}
	}
	return sent, nil
}

func (w *Worker) deliver(ctx context.Context, job model.NotificationJob) bool {
	attempts := job.Attempts + 1
	logger := w.log.With().
		Int64("job_id", job.ID).
		Str("template", string(job.Template)).
		Int("attempt", attempts).
		Logger()

	msg, err := w.renderer.Render(job.Template, job.Payload)
	if err != nil {
		// A job that cannot be rendered never will be.
		w.fail(ctx, logger, job, attempts, err)
		return false
	}

	if err := w.mailer.Send(ctx, job.Recipient, msg); err != nil {
		if attempts >= w.cfg.MaxAttempts {
			w.fail(ctx, logger, job, attempts, err)
			return false
		}
		next := w.now().Add(backoff(attempts))
		if markErr := w.outbox.MarkRetry(ctx, job.ID, attempts, err.Error(), next); markErr != nil {
			logger.Error().Err(markErr).Msg("record notification retry")
		}
		w.metrics.NotificationsRetried.WithLabelValues(string(job.Template)).Inc()
		logger.Warn().Err(err).Time("next_attempt_at", next).Msg("notification delivery failed, will retry")
		return false
	}

	if err := w.outbox.MarkSent(ctx, job.ID, attempts, w.now()); err != nil {
		logger.Error().Err(err).Msg("mark notification sent")
	}
	w.metrics.NotificationsSent.WithLabelValues(string(job.Template)).Inc()
	logger.Debug().Msg("notification delivered")
	return true
}

func (w *Worker) fail(ctx context.Context, logger zerolog.Logger, job model.NotificationJob, attempts int, cause error) {
	if err := w.outbox.MarkFailed(ctx, job.ID, attempts, cause.Error(), w.now()); err != nil {
		logger.Error().Err(err).Msg("mark notification failed")
	}
	w.metrics.NotificationsFailed.WithLabelValues(string(job.Template)).Inc()
	logger.Error().Err(cause).Msg("notification abandoned")
}

func backoff(attempts int) time.Duration {
	d := baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

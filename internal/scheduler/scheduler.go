// Package scheduler runs the periodic delivery loop: scan the store for due
// reminders, hand each to the Notifier, and apply the outcome.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"remindbot/internal/metrics"
	"remindbot/internal/models"
	"remindbot/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Notifier delivers one rendered reminder and classifies the result. The
// store record is only touched after a terminal outcome, so attempts are
// idempotent from the store's perspective.
type Notifier interface {
	Deliver(ctx context.Context, r models.Reminder) models.DeliveryResult
}

type reminderStore interface {
	Due(asOf time.Time) []models.Reminder
	Remove(id int64) (bool, error)
}

// attachmentStager releases staged media once the scheduler no longer owns
// it. On transient failures the file is retained for the retry.
type attachmentStager interface {
	Discard(path string)
}

// Scheduler is the tick-driven delivery loop.
type Scheduler struct {
	store       reminderStore
	notifier    Notifier
	stager      attachmentStager
	interval    time.Duration
	sendTimeout time.Duration
	logger      *logrus.Logger

	// backoffUntil pauses all sends after a destination-reported rate
	// limit. Only touched from the loop goroutine (and direct tick calls
	// in tests).
	backoffUntil time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a delivery scheduler. Zero or negative config values fall back
// to the given defaults so a partially filled config still runs.
func New(store reminderStore, notifier Notifier, stager attachmentStager, interval, sendTimeout time.Duration, logger *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &Scheduler{
		store:       store,
		notifier:    notifier,
		stager:      stager,
		interval:    interval,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Start launches the background loop. The first tick runs after one full
// interval; a reminder becoming due between ticks waits for the next one.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("delivery scheduler is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(loopCtx)

	s.logger.WithField("interval", s.interval).Info("Delivery scheduler started")
	return nil
}

// Stop signals the loop and waits for an in-progress tick to finish its
// current batch. No new tick starts after the signal is observed.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.running = false
	s.logger.Info("Delivery scheduler stopped")
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick processes every record due at the moment the tick starts. Outcomes
// are applied per record, so one failing reminder never blocks the rest of
// the batch; only a destination-reported backoff does, because it covers the
// shared send budget.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	if now.Before(s.backoffUntil) {
		s.logger.WithField("until", s.backoffUntil).Debug("Skipping tick, honoring rate-limit backoff")
		return
	}

	due := s.store.Due(now)
	if len(due) == 0 {
		return
	}

	tickCtx, span := tracing.StartSpan(ctx, "scheduler.tick",
		attribute.Int("reminders.due", len(due)),
	)
	defer span.End()

	s.logger.WithField("due", len(due)).Info("Processing due reminders")

	for _, r := range due {
		if !s.deliver(tickCtx, r) {
			return
		}
	}
}

// deliver sends one reminder and applies its outcome. It returns false when
// the rest of the batch must be abandoned for a rate-limit backoff.
func (s *Scheduler) deliver(ctx context.Context, r models.Reminder) bool {
	// The send is bounded by its own timeout and deliberately detached
	// from the loop context: a batch already in progress is allowed to
	// finish during shutdown, and its outcomes are still persisted.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sendTimeout)
	defer cancel()

	result := s.notifier.Deliver(sendCtx, r)
	metrics.IncrementCounter("reminders_delivery_total",
		map[string]string{"status": result.Status.String()},
		"Delivery attempts by outcome")

	log := s.logger.WithFields(logrus.Fields{
		"id":     r.ID,
		"dueAt":  r.DueAt,
		"status": result.Status,
	})

	switch result.Status {
	case models.DeliveryOK:
		log.Info("Reminder delivered")
		s.finish(r)
	case models.DeliveryPermanentFailure:
		log.WithField("reason", result.Reason).Warn("Dropping reminder after permanent delivery failure")
		s.finish(r)
	case models.DeliveryTransientFailure:
		// Record untouched: it survives restarts and is retried every
		// tick until it succeeds, permanently fails, or is deleted.
		log.WithField("reason", result.Reason).Warn("Transient delivery failure, will retry next tick")
		if result.RetryAfter > 0 {
			s.backoffUntil = time.Now().Add(result.RetryAfter)
			s.logger.WithField("retryAfter", result.RetryAfter).Warn("Destination rate limited, pausing all sends")
			return false
		}
	}
	return true
}

// finish removes a terminally processed record and releases its staged
// attachment, which the scheduler owned since the record became due.
func (s *Scheduler) finish(r models.Reminder) {
	if _, err := s.store.Remove(r.ID); err != nil {
		// The in-memory removal took effect; only the snapshot write
		// failed and the previous on-disk copy is still valid.
		s.logger.WithError(err).WithField("id", r.ID).Error("Failed to persist reminder removal")
	}
	if r.AttachmentPath != "" && s.stager != nil {
		s.stager.Discard(r.AttachmentPath)
	}
}

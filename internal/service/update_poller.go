package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"remindbot/internal/models"
	"remindbot/internal/retry"
	"remindbot/pkg/telegram"

	"github.com/sirupsen/logrus"
)

// UpdatePoller long-polls getUpdates and feeds each update to the command
// handler. Offset bookkeeping guarantees every update is confirmed exactly
// once to the API.
type UpdatePoller struct {
	tg          telegram.Client
	handler     *CommandHandler
	config      models.TelegramConfig
	retryConfig models.RetryConfig
	logger      *logrus.Logger

	offset int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewUpdatePoller creates the update polling service.
func NewUpdatePoller(tg telegram.Client, handler *CommandHandler, cfg models.TelegramConfig, retryCfg models.RetryConfig, logger *logrus.Logger) *UpdatePoller {
	return &UpdatePoller{
		tg:          tg,
		handler:     handler,
		config:      cfg,
		retryConfig: retryCfg,
		logger:      logger,
	}
}

// Start verifies the bot credentials and launches the polling loop.
func (p *UpdatePoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("update poller is already running")
	}

	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(p.retryConfig.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(p.retryConfig.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  p.retryConfig.MaxAttempts,
		Jitter:       true,
	})
	err := backoff.Retry(ctx, func() error {
		me, err := p.tg.GetMe(ctx)
		if err != nil {
			p.logger.WithError(err).Warn("Bot credential probe failed")
			return err
		}
		p.logger.WithField("username", me.Username).Info("Connected to Telegram")
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to verify bot credentials: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go p.loop(loopCtx)

	p.logger.WithFields(logrus.Fields{
		"interval": p.config.PollIntervalSec,
		"timeout":  p.config.PollTimeoutSec,
	}).Info("Update poller started")
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (p *UpdatePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.cancel()
	p.wg.Wait()
	p.running = false
	p.logger.Info("Update poller stopped")
}

// IsRunning reports whether the loop is active.
func (p *UpdatePoller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *UpdatePoller) loop(ctx context.Context) {
	defer p.wg.Done()

	interval := time.Duration(p.config.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := p.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.WithError(err).Warn("Update poll failed")
			// Wait a full interval before hitting the API again; the
			// long poll normally provides its own pacing.
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}
}

func (p *UpdatePoller) pollOnce(ctx context.Context) error {
	updates, err := p.tg.GetUpdates(ctx, p.offset, p.config.PollTimeoutSec)
	if err != nil {
		return err
	}

	for _, update := range updates {
		if update.UpdateID >= p.offset {
			p.offset = update.UpdateID + 1
		}
		p.handler.HandleUpdate(ctx, update)
	}
	return nil
}

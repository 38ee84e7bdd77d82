package payment

import (
	"context"
	"log/slog"
	"time"
)

const DefaultSweepInterval = time.Minute

type Expirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// Sweeper periodically marks lapsed intents as expired. Matching checks
// expires_at on its own, so the sweep only keeps statuses tidy.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(expirer Expirer, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("intent expiry sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("intent expiry sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.expirer.ExpireStale(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("failed to expire payment intents", "error", err)
	}
}

package otp

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartSweeper runs Sweep every SweepInterval until Stop is called. Calling it twice is a no-op.
func (s *Service) StartSweeper() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopChan != nil {
		return
	}

	interval := s.config.SweepInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})

	go s.sweepLoop(interval, s.stopChan, s.doneChan)

	if s.logger != nil {
		s.logger.Info("started otp sweep worker", zap.Duration("interval", interval))
	}
}

func (s *Service) sweepLoop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			removed, err := s.Sweep(ctx)
			cancel()

			if s.logger == nil {
				continue
			}
			if err != nil {
				s.logger.Error("otp sweep failed", zap.Error(err))
			} else if removed > 0 {
				s.logger.Info("swept expired otp entries", zap.Int("removed", removed))
			}
		}
	}
}

func (s *Service) StopSweeper(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stopChan, s.doneChan
	s.stopChan, s.doneChan = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}

	close(stop)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

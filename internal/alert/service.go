package alert

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"trade-alerts/internal/types"
)

// Service runs reconciliation passes on an interval and notifies the owners
// of triggered alerts.
type Service struct {
	repo       Repository
	reconciler *Reconciler
	config     types.TableConfig
	notifier   Notifier
	recorder   Recorder

	Interval    time.Duration
	PassTimeout time.Duration

	// only one pass runs at a time
	passMutex sync.Mutex
}

func NewService(repo Repository, reconciler *Reconciler, config types.TableConfig, notifier Notifier, recorder Recorder, interval time.Duration) *Service {
	return &Service{
		repo:       repo,
		reconciler: reconciler,
		config:     config,
		notifier:   notifier,
		recorder:   recorder,
		Interval:   interval,
	}
}

// Run checks alerts right away and then every Interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	log.Infof("🚀 Alert service started, checking every %s", s.Interval)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Errorf("❌ Alert check failed: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Info("Alert service stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single pass: check, delete, notify. It returns the
// alerts that were deleted.
func (s *Service) RunOnce(ctx context.Context) ([]types.Alert, error) {
	s.passMutex.Lock()
	defer s.passMutex.Unlock()

	if s.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.PassTimeout)
		defer cancel()
	}

	log.Debug("🔄 Checking alerts...")

	res, err := s.reconciler.Check(ctx, s.repo, s.config)
	if err != nil {
		s.passFailed()
		return nil, errors.Wrap(err, "check alerts")
	}

	if err := s.reconciler.DeleteTriggeredAlertsByHashes(ctx, s.repo, s.config, res.Triggered); err != nil {
		// the alerts stay stored and are found again next pass
		s.passFailed()
		return nil, err
	}

	triggered := res.TriggeredAlerts()
	for _, a := range triggered {
		s.notify(ctx, a, res.Prices[a.Symbol])
	}

	if s.recorder != nil {
		s.recorder.PassCompleted(triggered)
	}

	log.WithFields(log.Fields{
		"alerts":    len(res.Alerts),
		"symbols":   len(res.Prices),
		"triggered": len(triggered),
	}).Debug("✅ Alert check completed")

	return triggered, nil
}

func (s *Service) notify(ctx context.Context, a types.Alert, price float64) {
	logger := log.WithFields(log.Fields{"hash": a.Hash, "user_id": a.UserID, "symbol": a.Symbol})
	logger.Infof("🔔 Alert triggered: %s at %v (level %v, %s)", a.Symbol, price, a.PriceLevel, s.reconciler.Evaluator.Direction(a))

	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyTriggered(ctx, a, price); err != nil {
		logger.Errorf("❌ Failed to send alert notification: %v", err)
		if s.recorder != nil {
			s.recorder.NotificationFailed()
		}
	}
}

func (s *Service) passFailed() {
	if s.recorder != nil {
		s.recorder.PassFailed()
	}
}

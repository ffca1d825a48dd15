package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	domrepo "CryptoEdge/internal/domain/repository"
	domsvc "CryptoEdge/internal/domain/service"
	"CryptoEdge/pkg/logger"

	"github.com/google/uuid"
)

const (
	TopicSignals = "signals"

	msgSignals            = "signals"
	msgSignalsUnavailable = "signals_unavailable"
	unavailableNotice     = "Signal generation temporarily unavailable"
)

// Broadcast is the websocket/Kafka envelope of one cycle's outcome.
type Broadcast struct {
	Type    string                    `json:"type"`
	Data    map[string]*models.Signal `json:"data,omitempty"`
	Message string                    `json:"message,omitempty"`
}

// Generator is the per-pair pipeline the scheduler drives.
type Generator interface {
	GenerateSignal(ctx context.Context, pair string) (*models.Signal, error)
}

// Scheduler runs generation cycles over the configured pairs. At most one
// cycle (or single-pair generation) is in flight at any time.
type Scheduler struct {
	gen       Generator
	reasoner  domsvc.Reasoner
	publisher domrepo.Publisher
	metrics   domrepo.Metrics
	log       *logger.Logger

	pairs        []string
	interval     time.Duration
	cycleTimeout time.Duration

	mu      sync.Mutex
	running bool
}

func NewScheduler(
	gen Generator,
	reasoner domsvc.Reasoner,
	publisher domrepo.Publisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
	pairs []string,
	interval, cycleTimeout time.Duration,
) *Scheduler {
	if cycleTimeout <= 0 {
		cycleTimeout = 60 * time.Second
	}
	return &Scheduler{
		gen:          gen,
		reasoner:     reasoner,
		publisher:    publisher,
		metrics:      metrics,
		log:          log.With(logger.Category("SCHEDULER")),
		pairs:        pairs,
		interval:     interval,
		cycleTimeout: cycleTimeout,
	}
}

// Start runs one cycle immediately and then every interval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("scheduler started",
		logger.Strings("pairs", s.pairs),
		logger.Duration("interval", s.interval))

	s.tick(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.RefreshNow(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrGenerationInProgress):
		s.log.Info("previous cycle still running, skipping")
		s.metrics.RecordCycle("skipped")
	case errors.Is(err, domain.ErrReasoningUnavailable):
		s.log.Warn("reasoning unavailable, skipping cycle")
		s.metrics.RecordCycle("unavailable")
	default:
		s.log.Warn("cycle produced no signals", logger.Error(err))
	}
}

// Running reports whether a cycle is in flight.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// RefreshNow runs one cycle over every pair and returns the signals produced.
// It fails fast with ErrGenerationInProgress when a cycle is already running,
// ErrReasoningUnavailable when the model cannot be consulted and ErrNoSignals
// when every pair failed.
func (s *Scheduler) RefreshNow(ctx context.Context) ([]*models.Signal, error) {
	if !s.reasoner.Available() {
		return nil, domain.ErrReasoningUnavailable
	}
	if !s.acquire() {
		return nil, domain.ErrGenerationInProgress
	}
	defer s.release()

	return s.cycle(ctx)
}

// GenerateOne runs the pipeline for a single pair under the cycle guard.
func (s *Scheduler) GenerateOne(ctx context.Context, pair string) (*models.Signal, error) {
	if !s.reasoner.Available() {
		return nil, domain.ErrReasoningUnavailable
	}
	if !s.acquire() {
		return nil, domain.ErrGenerationInProgress
	}
	defer s.release()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout)
	defer cancel()
	return s.gen.GenerateSignal(ctx, pair)
}

func (s *Scheduler) cycle(ctx context.Context) ([]*models.Signal, error) {
	cycleID := uuid.NewString()
	start := time.Now()
	log := s.log.With(logger.String("cycle_id", cycleID))

	// a caller hanging up does not abort the cycle; only the deadline does
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout)
	defer cancel()

	results := make(map[string]*models.Signal, len(s.pairs))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, pair := range s.pairs {
		wg.Add(1)
		go func(pair string) {
			defer wg.Done()
			sig, err := s.gen.GenerateSignal(ctx, pair)
			if err != nil {
				sig = nil
			}
			mu.Lock()
			results[pair] = sig
			mu.Unlock()
		}(pair)
	}
	wg.Wait()

	signals := make([]*models.Signal, 0, len(s.pairs))
	for _, pair := range s.pairs {
		if sig := results[pair]; sig != nil {
			signals = append(signals, sig)
		}
	}

	// publishing must outlive the cycle deadline
	pubCtx := context.WithoutCancel(ctx)
	if len(signals) == 0 {
		s.metrics.RecordCycle("failed")
		s.publish(pubCtx, &Broadcast{Type: msgSignalsUnavailable, Message: unavailableNotice})
		log.Warn("cycle failed for every pair", logger.Duration("took", time.Since(start)))
		return nil, domain.ErrNoSignals
	}

	s.metrics.RecordCycle("ok")
	s.publish(pubCtx, &Broadcast{Type: msgSignals, Data: results})
	log.Info("cycle complete",
		logger.Int("succeeded", len(signals)),
		logger.Int("pairs", len(s.pairs)),
		logger.Duration("took", time.Since(start)))
	return signals, nil
}

func (s *Scheduler) publish(ctx context.Context, msg *Broadcast) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, TopicSignals, msg); err != nil {
		s.log.Warn("broadcast failed", logger.Error(err))
	}
}

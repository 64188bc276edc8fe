package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

// Schedule - задача и ее период
type Schedule struct {
	Job      domain.PipelineJob
	Interval time.Duration
}

// TickerScheduler запускает задачи конвейера по собственным тикерам.
// Задача не стартует, пока не закончился ее предыдущий запуск.
type TickerScheduler struct {
	runner    usecases_port.RunPipelineJobPort
	schedules []Schedule
	logger    port.LoggerPort

	stop chan struct{}
	wg   sync.WaitGroup
	mu   sync.Mutex
}

var _ port.EventListenerPort = (*TickerScheduler)(nil)

func NewTickerScheduler(runner usecases_port.RunPipelineJobPort, logger port.LoggerPort, schedules ...Schedule) (*TickerScheduler, error) {
	for _, s := range schedules {
		if s.Interval <= 0 {
			return nil, fmt.Errorf("scheduler: interval for job %q must be positive", s.Job)
		}
		if _, err := domain.ParsePipelineJob(string(s.Job)); err != nil {
			return nil, fmt.Errorf("scheduler: %w: %q", err, s.Job)
		}
	}
	return &TickerScheduler{
		runner:    runner,
		schedules: schedules,
		logger:    logger.WithFields(port.Fields{"component": "TickerScheduler"}),
	}, nil
}

// Start не блокирует: тикеры работают в фоне до Close или отмены ctx
func (s *TickerScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}
	s.stop = make(chan struct{})

	for _, sch := range s.schedules {
		s.wg.Add(1)
		go s.loop(ctx, sch, s.stop)
	}
	s.logger.Info("Scheduler started", port.Fields{"jobs": len(s.schedules)})
	return nil
}

func (s *TickerScheduler) loop(ctx context.Context, sch Schedule, stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(sch.Interval)
	defer ticker.Stop()

	var running atomic.Bool
	for {
		select {
		case <-ticker.C:
			if !running.CompareAndSwap(false, true) {
				s.logger.Warn("Previous run is still in progress, skipping tick", port.Fields{"job": sch.Job})
				continue
			}
			s.run(ctx, sch.Job)
			running.Store(false)
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

func (s *TickerScheduler) run(ctx context.Context, job domain.PipelineJob) {
	jobCtx := contextkeys.NewTracedContext(ctx, s.logger, "")
	jobLogger := contextkeys.LoggerFromContext(jobCtx)

	started := time.Now()
	result, err := s.runner.Execute(jobCtx, job)
	if err != nil {
		jobLogger.Error("Scheduled job failed", err, port.Fields{"job": job})
		return
	}
	jobLogger.Info("Scheduled job finished", port.Fields{
		"job":         job,
		"duration_ms": time.Since(started).Milliseconds(),
		"result":      result,
	})
}

// Close останавливает тикеры и ждет текущие запуски
func (s *TickerScheduler) Close() error {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

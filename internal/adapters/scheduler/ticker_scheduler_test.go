package scheduler

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	logger_adapter "github.com/sarbdeol/bi-market-intelligence/internal/adapters/logger"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

type countingRunner struct {
	mu       sync.Mutex
	calls    map[domain.PipelineJob]int
	traceIDs []string
}

func (r *countingRunner) Execute(ctx context.Context, job domain.PipelineJob) (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[domain.PipelineJob]int)
	}
	r.calls[job]++
	r.traceIDs = append(r.traceIDs, contextkeys.TraceIDFromContext(ctx))
	return nil, nil
}

func (r *countingRunner) count(job domain.PipelineJob) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[job]
}

func testLogger() *logger_adapter.SlogAdapter {
	return logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{Writer: io.Discard})
}

func TestTickerSchedulerRunsJobs(t *testing.T) {
	runner := &countingRunner{}
	s, err := NewTickerScheduler(runner, testLogger(),
		Schedule{Job: domain.JobAggregate, Interval: 10 * time.Millisecond},
		Schedule{Job: domain.JobSweep, Interval: 10 * time.Millisecond},
	)
	if err != nil {
		t.Fatalf("NewTickerScheduler: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runner.count(domain.JobAggregate) >= 2 && runner.count(domain.JobSweep) >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	_ = s.Close()

	if runner.count(domain.JobAggregate) < 2 || runner.count(domain.JobSweep) < 2 {
		t.Fatalf("jobs did not tick: aggregate=%d sweep=%d", runner.count(domain.JobAggregate), runner.count(domain.JobSweep))
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	for _, id := range runner.traceIDs {
		if id == "" {
			t.Fatal("scheduled run must carry a trace id")
		}
	}
}

func TestTickerSchedulerStopsOnClose(t *testing.T) {
	runner := &countingRunner{}
	s, _ := NewTickerScheduler(runner, testLogger(), Schedule{Job: domain.JobCollect, Interval: 5 * time.Millisecond})
	_ = s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	_ = s.Close()

	after := runner.count(domain.JobCollect)
	time.Sleep(30 * time.Millisecond)
	if runner.count(domain.JobCollect) != after {
		t.Error("jobs kept running after Close")
	}
}

func TestNewTickerSchedulerValidates(t *testing.T) {
	if _, err := NewTickerScheduler(&countingRunner{}, testLogger(), Schedule{Job: domain.JobCollect}); err == nil {
		t.Error("zero interval must be rejected")
	}
	if _, err := NewTickerScheduler(&countingRunner{}, testLogger(), Schedule{Job: "rebuild", Interval: time.Second}); err == nil {
		t.Error("unknown job must be rejected")
	}
}

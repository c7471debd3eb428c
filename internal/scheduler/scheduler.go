// Package scheduler drives the periodic sync cycles, one independent timer
// per platform. Jobs report structured outcomes instead of only log lines,
// and a cycle still running when its next tick fires is skipped rather than
// stacked.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// CycleResult is the structured outcome of one sync cycle.
type CycleResult struct {
	Platform  string        `json:"platform"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Cycler runs one full sync pass over every connected user of a platform.
type Cycler interface {
	RunSyncCycle(ctx context.Context, platform string) CycleResult
}

// Handle exposes one scheduled job for introspection and stopping.
type Handle struct {
	platform string
	interval time.Duration
	stop     context.CancelFunc

	running atomic.Bool
	mu      sync.Mutex
	last    *CycleResult
	skipped int
}

func (h *Handle) Describe() string {
	return fmt.Sprintf("sync %s every %s", h.platform, h.interval)
}

// LastResult returns the most recent cycle outcome, if any cycle ran yet.
func (h *Handle) LastResult() (CycleResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return CycleResult{}, false
	}
	return *h.last, true
}

// Skipped reports how many ticks were dropped by the overlap guard.
func (h *Handle) Skipped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.skipped
}

// Stop cancels this job only. The scheduler context stops everything.
func (h *Handle) Stop() {
	if h.stop != nil {
		h.stop()
	}
}

type job struct {
	handle *Handle
	cycler Cycler
}

type Scheduler struct {
	jobs []*job
}

func New() *Scheduler {
	return &Scheduler{}
}

// Add registers a platform cycle at a fixed interval and returns its handle.
func (s *Scheduler) Add(platform string, interval time.Duration, cycler Cycler) *Handle {
	handle := &Handle{platform: platform, interval: interval}
	s.jobs = append(s.jobs, &job{handle: handle, cycler: cycler})
	return handle
}

// Start launches one goroutine per job. Each runs its first cycle
// immediately, then on every tick until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		jobCtx, cancel := context.WithCancel(ctx)
		j.handle.stop = cancel
		go run(jobCtx, j)
	}
}

func run(ctx context.Context, j *job) {
	h := j.handle
	slog.Info("sync job started", "platform", h.platform, "interval", h.interval)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	// Cycles run off the timer goroutine so a slow cycle never delays the
	// next tick; the overlap guard in runOnce decides whether that tick
	// proceeds or is dropped.
	go runOnce(ctx, j)

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync job stopped", "platform", h.platform)
			return
		case <-ticker.C:
			go runOnce(ctx, j)
		}
	}
}

// runOnce executes one cycle behind the overlap guard: if the previous cycle
// is still in flight, this tick is dropped.
func runOnce(ctx context.Context, j *job) {
	h := j.handle
	if !h.running.CompareAndSwap(false, true) {
		h.mu.Lock()
		h.skipped++
		h.mu.Unlock()
		slog.Warn("sync cycle still running, skipping tick", "platform", h.platform)
		return
	}
	defer h.running.Store(false)

	result := j.cycler.RunSyncCycle(ctx, h.platform)

	h.mu.Lock()
	h.last = &result
	h.mu.Unlock()

	slog.Info("sync cycle completed",
		"platform", result.Platform,
		"total", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"duration", result.Duration,
	)
}

package dashboard

import (
	"context"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"cryptotracker/logger"
)

// resourceSnapshot is one sample of host and process usage.
type resourceSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUPercent  float64   `json:"cpu_percent"`
	MemoryUsed  uint64    `json:"memory_used"`
	MemoryTotal uint64    `json:"memory_total"`
	MemoryPct   float64   `json:"memory_percent"`
	ProcessRSS  uint64    `json:"process_rss"`
	Goroutines  int       `json:"goroutines"`
}

type resourceSampler struct {
	mu       sync.RWMutex
	items    []resourceSnapshot
	limit    int
	interval time.Duration

	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup
	log     *logger.Log
}

var (
	cpuPercentFn = func(ctx context.Context, interval time.Duration) ([]float64, error) {
		return cpu.PercentWithContext(ctx, interval, false)
	}
	memoryStatsFn = mem.VirtualMemoryWithContext
	processRSSFn  = func(ctx context.Context) (uint64, error) {
		p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
		if err != nil {
			return 0, err
		}
		info, err := p.MemoryInfoWithContext(ctx)
		if err != nil {
			return 0, err
		}
		return info.RSS, nil
	}
)

func newResourceSampler(limit int, interval time.Duration, log *logger.Log) *resourceSampler {
	if limit <= 0 {
		limit = defaultHistory
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &resourceSampler{limit: limit, interval: interval, log: log}
}

func (s *resourceSampler) start(ctx context.Context) {
	if s == nil || s.running.Swap(true) {
		return
	}
	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(childCtx)
	}()
}

func (s *resourceSampler) stop() {
	if s == nil {
		return
	}
	if cancel := s.cancel; cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.running.Store(false)
}

func (s *resourceSampler) snapshot(limit int) []resourceSnapshot {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]resourceSnapshot, len(s.items))
	copy(out, s.items)
	return tail(out, limit)
}

func (s *resourceSampler) append(snapshot resourceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, snapshot)
	if len(s.items) > s.limit {
		s.items = append([]resourceSnapshot(nil), s.items[len(s.items)-s.limit:]...)
	}
}

// run samples until ctx is done. The CPU measurement blocks for one interval
// and paces the loop.
func (s *resourceSampler) run(ctx context.Context) {
	defer s.running.Store(false)
	log := s.log.WithComponent("resource_sampler")

	for ctx.Err() == nil {
		cpuSamples, err := cpuPercentFn(ctx, s.interval)
		if err != nil {
			log.WithError(err).Debug("failed to sample cpu usage")
			if !sleepCtx(ctx, s.interval) {
				return
			}
			continue
		}

		snap := resourceSnapshot{
			Timestamp:  time.Now(),
			Goroutines: runtime.NumGoroutine(),
		}
		if len(cpuSamples) > 0 {
			snap.CPUPercent = cpuSamples[0]
		}

		if vm, err := memoryStatsFn(ctx); err == nil {
			snap.MemoryUsed, snap.MemoryTotal, snap.MemoryPct = vm.Used, vm.Total, vm.UsedPercent
		} else {
			log.WithError(err).Debug("failed to sample memory usage")
		}

		if rss, err := processRSSFn(ctx); err == nil {
			snap.ProcessRSS = rss
		} else {
			log.WithError(err).Debug("failed to sample process memory")
		}

		s.append(snap)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

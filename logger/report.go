package logger

import (
	"context"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
)

var (
	errorsFetch    int64
	errorsHTTP     int64
	warnsFetch     int64
	warnsHTTP      int64
	tickerFetches  int64
	tickerFailures int64
	chartFetches   int64
	chartFailures  int64
	tickerBytes    int64
)

// Report is one sample of process activity and host usage.
type Report struct {
	Time           time.Time
	ErrorsFetch    int64
	ErrorsHTTP     int64
	WarnsFetch     int64
	WarnsHTTP      int64
	TickerFetches  int64
	TickerFailures int64
	ChartFetches   int64
	ChartFailures  int64
	TickerBytes    int64
	Goroutines     int
	CPUPercent     float64
	MemoryMB       float64
	DiskMB         float64
	NetBytesSent   uint64
	NetBytesRecv   uint64
}

// ReportSink receives every report produced by StartReport.
type ReportSink func(context.Context, Report)

func recordWarn(component string) {
	switch {
	case isFetchComponent(component):
		atomic.AddInt64(&warnsFetch, 1)
	case strings.Contains(component, "http"):
		atomic.AddInt64(&warnsHTTP, 1)
	}
}

func recordError(component string) {
	switch {
	case isFetchComponent(component):
		atomic.AddInt64(&errorsFetch, 1)
	case strings.Contains(component, "http"):
		atomic.AddInt64(&errorsHTTP, 1)
	}
}

func isFetchComponent(component string) bool {
	return strings.Contains(component, "reader") || strings.Contains(component, "refresher")
}

// IncrementTickerFetch counts a ticker list request and its body size.
func IncrementTickerFetch(size int, err error) {
	atomic.AddInt64(&tickerFetches, 1)
	atomic.AddInt64(&tickerBytes, int64(size))
	if err != nil {
		atomic.AddInt64(&tickerFailures, 1)
	}
}

// IncrementChartFetch counts a chart request.
func IncrementChartFetch(err error) {
	atomic.AddInt64(&chartFetches, 1)
	if err != nil {
		atomic.AddInt64(&chartFailures, 1)
	}
}

// StartReport begins periodic logging of process and host statistics. Each
// report is also handed to the given sinks.
func StartReport(ctx context.Context, log *Log, interval time.Duration, sinks ...ReportSink) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r := CollectReport()
				logReport(log, r)
				for _, sink := range sinks {
					sink(ctx, r)
				}
			}
		}
	}()
}

// CollectReport samples the counters and the host.
func CollectReport() Report {
	r := Report{
		Time:           time.Now().UTC(),
		ErrorsFetch:    atomic.LoadInt64(&errorsFetch),
		ErrorsHTTP:     atomic.LoadInt64(&errorsHTTP),
		WarnsFetch:     atomic.LoadInt64(&warnsFetch),
		WarnsHTTP:      atomic.LoadInt64(&warnsHTTP),
		TickerFetches:  atomic.LoadInt64(&tickerFetches),
		TickerFailures: atomic.LoadInt64(&tickerFailures),
		ChartFetches:   atomic.LoadInt64(&chartFetches),
		ChartFailures:  atomic.LoadInt64(&chartFailures),
		TickerBytes:    atomic.LoadInt64(&tickerBytes),
		Goroutines:     runtime.NumGoroutine(),
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		r.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.MemoryMB = float64(vm.Used) / 1024 / 1024
	}
	if du, err := disk.Usage("/"); err == nil {
		r.DiskMB = float64(du.Used) / 1024 / 1024
	}
	if counters, err := gnet.IOCounters(false); err == nil && len(counters) > 0 {
		r.NetBytesSent = counters[0].BytesSent
		r.NetBytesRecv = counters[0].BytesRecv
	}
	return r
}

func logReport(log *Log, r Report) {
	log.WithComponent("report").WithFields(Fields{
		"errors_fetch":    r.ErrorsFetch,
		"errors_http":     r.ErrorsHTTP,
		"warns_fetch":     r.WarnsFetch,
		"warns_http":      r.WarnsHTTP,
		"ticker_fetches":  r.TickerFetches,
		"ticker_failures": r.TickerFailures,
		"ticker_bytes":    r.TickerBytes,
		"chart_fetches":   r.ChartFetches,
		"chart_failures":  r.ChartFailures,
		"goroutines":      r.Goroutines,
		"cpu_percent":     r.CPUPercent,
		"memory_mb":       int64(r.MemoryMB),
		"disk_mb":         int64(r.DiskMB),
		"net_bytes_sent":  int64(r.NetBytesSent),
		"net_bytes_recv":  int64(r.NetBytesRecv),
	}).Info("runtime report")
}

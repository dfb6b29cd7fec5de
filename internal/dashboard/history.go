package dashboard

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"cryptotracker/internal/metrics"
)

const defaultHistory = 200

// historyFilter narrows a history snapshot. Zero values match everything.
type historyFilter struct {
	Component string
	Name      string
	Level     logrus.Level
	Limit     int
}

// metricStore keeps the most recent metric events for the diagnostics API.
type metricStore struct {
	mu    sync.RWMutex
	items []metrics.Metric
	limit int
}

func newMetricStore(limit int) *metricStore {
	if limit <= 0 {
		limit = defaultHistory
	}
	return &metricStore{limit: limit}
}

func (s *metricStore) handle(metric metrics.Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, metric)
	if len(s.items) > s.limit {
		s.items = append([]metrics.Metric(nil), s.items[len(s.items)-s.limit:]...)
	}
}

// snapshot returns matching events oldest first, keeping only the newest
// f.Limit when set.
func (s *metricStore) snapshot(f historyFilter) []metrics.Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]metrics.Metric, 0, len(s.items))
	for _, m := range s.items {
		if f.Component != "" && m.Component != f.Component {
			continue
		}
		if f.Name != "" && m.Name != f.Name {
			continue
		}
		out = append(out, m)
	}
	return tail(out, f.Limit)
}

type logRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`

	level logrus.Level
}

// logStore is a logrus hook retaining the most recent entries of the
// application logger.
type logStore struct {
	mu      sync.RWMutex
	items   []logRecord
	limit   int
	enabled atomic.Bool
}

func newLogStore(limit int) *logStore {
	if limit <= 0 {
		limit = defaultHistory
	}
	ls := &logStore{limit: limit}
	ls.enabled.Store(true)
	return ls
}

func (s *logStore) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (s *logStore) Fire(entry *logrus.Entry) error {
	if !s.enabled.Load() {
		return nil
	}

	record := logRecord{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
		level:     entry.Level,
	}

	for k, v := range entry.Data {
		if k == "component" {
			record.Component, _ = v.(string)
			continue
		}
		if record.Fields == nil {
			record.Fields = make(map[string]interface{}, len(entry.Data))
		}
		switch val := v.(type) {
		case error:
			record.Fields[k] = val.Error()
		case fmt.Stringer:
			record.Fields[k] = val.String()
		default:
			record.Fields[k] = val
		}
	}

	s.mu.Lock()
	s.items = append(s.items, record)
	if len(s.items) > s.limit {
		s.items = append([]logRecord(nil), s.items[len(s.items)-s.limit:]...)
	}
	s.mu.Unlock()
	return nil
}

// snapshot returns entries at or above f.Level (a zero level matches all).
func (s *logStore) snapshot(f historyFilter) []logRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]logRecord, 0, len(s.items))
	for _, r := range s.items {
		if f.Component != "" && r.Component != f.Component {
			continue
		}
		if f.Level != 0 && r.level > f.Level {
			continue
		}
		out = append(out, r)
	}
	return tail(out, f.Limit)
}

func (s *logStore) close() {
	s.enabled.Store(false)
}

func tail[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[len(items)-limit:]
	}
	return items
}

// parseLevel maps a query value to a logrus level; unknown values match all.
func parseLevel(s string) logrus.Level {
	if s == "" {
		return 0
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(s))
	if err != nil {
		return 0
	}
	return lvl
}

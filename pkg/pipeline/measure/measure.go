package measure

import (
	"sort"
	"sync"
	"time"
)

// DefaultMeasure keeps metrics in memory.
type DefaultMeasure struct {
	mu    sync.RWMutex
	steps map[string]Metric
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		steps: make(map[string]Metric),
	}
}

// AddMetric registers a step. Adding the same step twice keeps the first metric.
func (m *DefaultMeasure) AddMetric(name string, concurrent int) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mt, ok := m.steps[name]; ok {
		return mt
	}
	if concurrent < 1 {
		concurrent = 1
	}
	mt := &DefaultMetric{
		allTransports: make(map[string]*TransportInfo),
		concurrent:    concurrent,
	}
	m.steps[name] = mt

	return mt
}

func (m *DefaultMeasure) GetMetric(name string) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.steps[name]
}

func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make(map[string]Metric, len(m.steps))
	for name, mt := range m.steps {
		res[name] = mt
	}

	return res
}

// StepSummary is a flattened view of a step metric.
type StepSummary struct {
	Name       string
	Count      int64
	Concurrent int
	Average    time.Duration
	Total      time.Duration
}

// Summary returns the steps that processed at least one entry, slowest first.
func Summary(msr Measure) []StepSummary {
	res := []StepSummary{}
	for name, mt := range msr.AllMetrics() {
		if mt.Count() == 0 {
			continue
		}
		res = append(res, StepSummary{
			Name:       name,
			Count:      mt.Count(),
			Concurrent: mt.Concurrent(),
			Average:    mt.AVGDuration(),
			Total:      mt.GetTotalDuration(),
		})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Average == res[j].Average {
			return res[i].Name < res[j].Name
		}

		return res[i].Average > res[j].Average
	})

	return res
}

var _ Measure = (*DefaultMeasure)(nil)

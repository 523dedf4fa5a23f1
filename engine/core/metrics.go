package core

import "time"

const AVG_COUNT uint8 = 30

// Metrics keeps a rolling average of grouping pass durations and counters
// for the allocations issued by the dispatcher.
type Metrics struct {
	passAVGCounter uint8
	passTimes      [AVG_COUNT]time.Duration
	passSamples    uint8
	lastPass       time.Duration

	GroupingPasses     uint64
	AllocationsIssued  uint64
	AllocationFailures uint64
	BytesAllocated     uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordGroupingPass stores the duration of one GroupAllBufferData call.
func (m *Metrics) RecordGroupingPass(elapsed time.Duration) {
	m.passTimes[m.passAVGCounter] = elapsed
	m.passAVGCounter++
	m.passAVGCounter %= AVG_COUNT
	if m.passSamples < AVG_COUNT {
		m.passSamples++
	}
	m.lastPass = elapsed
	m.GroupingPasses++
}

// RecordAllocation counts one native allocation request and its outcome.
func (m *Metrics) RecordAllocation(size uint64, failed bool) {
	m.AllocationsIssued++
	if failed {
		m.AllocationFailures++
		return
	}
	m.BytesAllocated += size
}

// GroupingPassAverage is the mean over the last AVG_COUNT passes.
func (m *Metrics) GroupingPassAverage() time.Duration {
	if m.passSamples == 0 {
		return 0
	}
	var total time.Duration
	for i := uint8(0); i < m.passSamples; i++ {
		total += m.passTimes[i]
	}
	return total / time.Duration(m.passSamples)
}

func (m *Metrics) LastGroupingPass() time.Duration {
	return m.lastPass
}

package core

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDRegistry(t *testing.T) {
	r := NewIDRegistry("buffer", 2)
	a, err := r.Acquire()
	require.NoError(t, err)
	b, err := r.Acquire()
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1}, []uint64{a, b})

	id, err := r.Acquire()
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, InvalidID, id)
	assert.Equal(t, uint64(2), r.Count())
	assert.True(t, r.Contains(1))
	assert.False(t, r.Contains(2))

	r.Reset()
	assert.Zero(t, r.Count())
	assert.False(t, r.Contains(0))
	id, err = r.Acquire()
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	var got []string
	first, second := "first", "second"
	handler := func(name string, handled bool) FnOnEvent {
		return func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool {
			got = append(got, name+":"+data.Data.C[0])
			return handled
		}
	}

	require.True(t, bus.Register(EVENT_CODE_DATA_CLEARED, &first, handler("a", false)))
	require.True(t, bus.Register(EVENT_CODE_DATA_CLEARED, &second, handler("b", true)))
	assert.False(t, bus.Register(EVENT_CODE_DATA_CLEARED, &first, handler("a", false)))
	assert.False(t, bus.Register(MAX_MESSAGE_CODES, &first, handler("a", false)))
	assert.False(t, bus.Register(EVENT_CODE_DATA_CLEARED, &first, nil))

	ctx := EventContext{}
	ctx.Data.C[0] = "x"
	assert.True(t, bus.Fire(EVENT_CODE_DATA_CLEARED, nil, ctx))
	assert.Equal(t, []string{"a:x", "b:x"}, got)
	assert.False(t, bus.Fire(EVENT_CODE_CONFIG_RELOADED, nil, ctx))

	assert.True(t, bus.Unregister(EVENT_CODE_DATA_CLEARED, &second))
	assert.False(t, bus.Unregister(EVENT_CODE_DATA_CLEARED, &second))
	assert.False(t, bus.Fire(EVENT_CODE_DATA_CLEARED, nil, ctx))

	bus.Shutdown()
	got = nil
	bus.Fire(EVENT_CODE_DATA_CLEARED, nil, ctx)
	assert.Empty(t, got)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	assert.Zero(t, m.GroupingPassAverage())

	m.RecordGroupingPass(2 * time.Millisecond)
	m.RecordGroupingPass(4 * time.Millisecond)
	assert.Equal(t, 3*time.Millisecond, m.GroupingPassAverage())
	assert.Equal(t, 4*time.Millisecond, m.LastGroupingPass())
	assert.Equal(t, uint64(2), m.GroupingPasses)

	// the average only covers the last AVG_COUNT passes
	for i := 0; i < int(AVG_COUNT); i++ {
		m.RecordGroupingPass(time.Millisecond)
	}
	assert.Equal(t, time.Millisecond, m.GroupingPassAverage())

	m.RecordAllocation(64, false)
	m.RecordAllocation(32, true)
	assert.Equal(t, uint64(2), m.AllocationsIssued)
	assert.Equal(t, uint64(1), m.AllocationFailures)
	assert.Equal(t, uint64(64), m.BytesAllocated)
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"":        LogLevelInfo,
		"DEBUG":   LogLevelDebug,
		" warn ":  LogLevelWarn,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"fatal":   LogLevelFatal,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLogLevel("chatty")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLogOutput(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogLevel(LogLevelWarn)
	t.Cleanup(func() {
		SetLogOutput(os.Stderr)
		SetLogLevel(LogLevelInfo)
	})

	LogInfo("hidden %d", 1)
	LogWarn("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed())

	c.Start()
	time.Sleep(time.Millisecond)
	c.Stop()
	elapsed := c.Elapsed()
	assert.GreaterOrEqual(t, elapsed, time.Millisecond)

	c.Update()
	assert.Equal(t, elapsed, c.Elapsed())
}

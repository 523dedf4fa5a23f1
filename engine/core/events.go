package core

import "sync"

type EventContext struct {
	Data struct {
		U64 [2]uint64
		I64 [2]int64
		C   [2]string
	}
	Err error
}

// Resource subsystem event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// A grouping pass finished.
	/* Context usage:
	 * u64 groups = data.U64[0];
	 * u64 ungrouped = data.U64[1];
	 * string pass_id = data.C[0];
	 */
	EVENT_CODE_GROUPING_COMPLETE SystemEventCode = 0x01

	// The native allocator refused a request.
	/* Context usage:
	 * u64 size = data.U64[0];
	 * string name = data.C[0];
	 * error = Err;
	 */
	EVENT_CODE_ALLOCATION_FAILED SystemEventCode = 0x02

	// All collected data was cleared.
	EVENT_CODE_DATA_CLEARED SystemEventCode = 0x03

	// The configuration file changed on disk and was applied.
	/* Context usage:
	 * string path = data.C[0];
	 */
	EVENT_CODE_CONFIG_RELOADED SystemEventCode = 0x04

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

// EventBus dispatches events to registered listeners. Each engine owns its
// own bus. Callbacks run on the goroutine that fires the event.
type EventBus struct {
	mutex      sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listeners will not be registered again and will cause this to return false.
 */
func (b *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if code < 0 || code >= MAX_MESSAGE_CODES || onEvent == nil {
		return false
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, e := range b.registered[code] {
		if e.listener == listener {
			LogWarn("event %d: listener already registered", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister removes the listener for the given code. Returns false if it was not registered.
func (b *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 */
func (b *EventBus) Fire(code SystemEventCode, sender interface{}, context EventContext) bool {
	b.mutex.RLock()
	events := b.registered[code]
	b.mutex.RUnlock()
	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (b *EventBus) Shutdown() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.registered = make(map[SystemEventCode][]*registeredEvent)
}

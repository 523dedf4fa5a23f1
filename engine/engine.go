package engine

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/spaghettifunk/anima-resources/engine/config"
	"github.com/spaghettifunk/anima-resources/engine/containers"
	"github.com/spaghettifunk/anima-resources/engine/core"
	"github.com/spaghettifunk/anima-resources/engine/renderer/hostmem"
	"github.com/spaghettifunk/anima-resources/engine/resources"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently running its init stages
	EngineStageInitializing
	// Engine initialization is complete and accepts data
	EngineStageInitialized
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owns
	EngineStageShutdown
)

// only one engine may be alive at a time
var engineCreated atomic.Bool

// PassHistorySize is how many grouping passes PassHistory remembers.
const PassHistorySize = 16

type Options struct {
	// Config used as is. When nil, ConfigPath is loaded, or the defaults are used.
	Config *config.Config
	// ConfigPath is the TOML file to load when Config is nil.
	ConfigPath string
	// Watch reloads ConfigPath whenever it is written.
	Watch bool
	// Allocator backs the dispatcher. A host memory allocator sized from the
	// config is created when nil.
	Allocator resources.NativeAllocator
	// Capabilities overrides the [capabilities] section, e.g. with the limits
	// of a real device.
	Capabilities *resources.DeviceCapabilities
}

// Engine owns one collector and everything needed to group and dispatch
// what it collects. Its methods are safe for concurrent use. Event handlers
// run while the engine is busy and must not call back into it.
type Engine struct {
	id      uuid.UUID
	stage   Stage
	options Options

	mutex        sync.Mutex
	config       *config.Config
	capabilities resources.DeviceCapabilities
	configGroups []config.GroupConfig

	collector *resources.Collector
	allocator resources.NativeAllocator
	host      *hostmem.Allocator
	dispatch  *resources.Dispatcher
	metrics   *core.Metrics
	events    *core.EventBus
	watcher   *config.Watcher
	history   *containers.RingQueue[resources.GroupingPass]
}

// New builds the engine by running the init stages in order. A second engine
// cannot be created until the first one is shut down.
func New(options Options) (*Engine, error) {
	if !engineCreated.CompareAndSwap(false, true) {
		return nil, errors.WithStack(core.ErrEngineAlreadyCreated)
	}

	e := &Engine{
		id:      uuid.New(),
		stage:   EngineStageUninitialized,
		options: options,
		history: containers.NewRingQueue[resources.GroupingPass](PassHistorySize),
	}
	if err := e.initialize(); err != nil {
		e.teardown()
		engineCreated.Store(false)
		return nil, err
	}
	core.LogInfo("Engine %s initialized.", e.id)
	return e, nil
}

func (e *Engine) ID() uuid.UUID {
	return e.id
}

func (e *Engine) Stage() Stage {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.stage
}

// Config returns a copy of the configuration currently in effect.
func (e *Engine) Config() *config.Config {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.config.Clone()
}

func (e *Engine) Capabilities() resources.DeviceCapabilities {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.capabilities
}

func (e *Engine) Metrics() core.Metrics {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return *e.metrics
}

// PassHistory lists the last PassHistorySize grouping passes, oldest first.
func (e *Engine) PassHistory() []resources.GroupingPass {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.history.Items()
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

// HostAllocator is the allocator created by the engine, nil when one was supplied.
func (e *Engine) HostAllocator() *hostmem.Allocator {
	return e.host
}

// Collector gives direct access to the collector. Callers must not use it
// concurrently with the engine methods.
func (e *Engine) Collector() *resources.Collector {
	return e.collector
}

func (e *Engine) CollectBufferData(desc resources.DataDescriptor, data resources.RawData) (resources.ResourceID, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if err := e.ready(); err != nil {
		return resources.InvalidResourceID, err
	}
	return e.collector.CollectBufferData(desc, data)
}

func (e *Engine) CollectImageData(desc resources.DataDescriptor, data resources.RawData) (resources.ResourceID, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if err := e.ready(); err != nil {
		return resources.InvalidResourceID, err
	}
	return e.collector.CollectImageData(desc, data)
}

// Group runs a buffer and an image grouping pass with the current capabilities.
func (e *Engine) Group() (resources.GroupingPass, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if err := e.ready(); err != nil {
		return resources.GroupingPass{}, err
	}

	if err := e.collector.GroupAllBufferData(e.capabilities); err != nil {
		return resources.GroupingPass{}, err
	}
	if err := e.collector.GroupAllImageData(e.capabilities); err != nil {
		return resources.GroupingPass{}, err
	}
	pass, _ := e.collector.LastPass()
	e.metrics.RecordGroupingPass(pass.Elapsed)
	e.history.Push(pass)

	context := core.EventContext{}
	context.Data.U64[0] = uint64(len(e.collector.GetAllGroupNames()))
	context.Data.U64[1] = uint64(len(e.collector.UngroupedBufferIDs()))
	context.Data.C[0] = pass.ID.String()
	e.events.Fire(core.EVENT_CODE_GROUPING_COMPLETE, e, context)
	return pass, nil
}

func (e *Engine) GenerateAllBuffers() (*resources.BufferSet, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.dispatch.GenerateAllBuffers(e.collector), nil
}

func (e *Engine) GenerateAllImages() (*resources.ImageSet, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.dispatch.GenerateAllImages(e.collector), nil
}

// ClearAllCollectedData drops every collected resource and grouping result.
// Sets already dispatched stay valid.
func (e *Engine) ClearAllCollectedData() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.ready() != nil {
		return
	}
	e.collector.ClearAllCollectedData()
	e.events.Fire(core.EVENT_CODE_DATA_CLEARED, e, core.EventContext{})
}

// Reload applies a new configuration: log level, capabilities and the
// configured groups. Collector capacities and the allocator are fixed for
// the lifetime of the engine.
func (e *Engine) Reload(cfg *config.Config) error {
	if cfg == nil {
		return errors.Wrap(core.ErrInvalidConfig, "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if cfg.CollectorConfig() != e.config.CollectorConfig() {
		core.LogWarn("Collector settings changed, they apply to the next engine only.")
	}

	previous := e.config
	e.config = cfg
	if err := registerConfigGroups(e); err != nil {
		// restore what was registered before
		e.config = previous
		if restoreErr := registerConfigGroups(e); restoreErr != nil {
			core.LogError("restoring groups failed: %s", restoreErr.Error())
		}
		return err
	}
	_ = applyLogging(e)
	_ = applyCapabilities(e)

	context := core.EventContext{}
	if e.watcher != nil {
		context.Data.C[0] = e.watcher.Path()
	}
	e.events.Fire(core.EVENT_CODE_CONFIG_RELOADED, e, context)
	return nil
}

// Shutdown stops the config watcher and drops every event registration.
// Dispatched sets are owned by the caller and must be released separately.
// Calling it twice is a no-op.
func (e *Engine) Shutdown() error {
	e.mutex.Lock()
	if e.stage != EngineStageInitialized {
		e.mutex.Unlock()
		return nil
	}
	e.stage = EngineStageShuttingDown
	watcher := e.watcher
	e.watcher = nil
	e.mutex.Unlock()

	// outside the lock, the watcher callback takes it
	var err error
	if watcher != nil {
		err = watcher.Close()
	}

	e.mutex.Lock()
	e.teardown()
	e.mutex.Unlock()
	engineCreated.Store(false)
	core.LogInfo("Engine %s shut down.", e.id)
	return err
}

func (e *Engine) ready() error {
	if e.stage != EngineStageInitialized {
		return errors.Newf("engine %s is not running", e.id)
	}
	return nil
}

func (e *Engine) teardown() {
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			core.LogError(err.Error())
		}
		e.watcher = nil
	}
	if e.collector != nil {
		e.collector.ClearAllCollectedData()
	}
	if e.events != nil {
		e.events.Shutdown()
	}
	e.stage = EngineStageShutdown
}

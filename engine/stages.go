package engine

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/anima-resources/engine/config"
	"github.com/spaghettifunk/anima-resources/engine/core"
	"github.com/spaghettifunk/anima-resources/engine/renderer/hostmem"
	"github.com/spaghettifunk/anima-resources/engine/resources"
)

type initStage struct {
	name string
	fn   func(e *Engine) error
}

// Run in order, the first failure aborts the construction.
var initStages = []initStage{
	{"config", loadConfig},
	{"logging", applyLogging},
	{"events", createEvents},
	{"collector", createCollector},
	{"groups", registerConfigGroups},
	{"capabilities", applyCapabilities},
	{"allocator", createAllocator},
	{"dispatcher", createDispatcher},
	{"watcher", startWatcher},
}

func (e *Engine) initialize() error {
	e.stage = EngineStageInitializing
	for _, s := range initStages {
		if err := s.fn(e); err != nil {
			core.LogError("Engine stage '%s' failed: %s", s.name, err.Error())
			return errors.Wrapf(err, "engine stage %s", s.name)
		}
		core.LogDebug("Engine stage '%s' complete.", s.name)
	}
	e.stage = EngineStageInitialized
	return nil
}

func loadConfig(e *Engine) error {
	switch {
	case e.options.Config != nil:
		if err := e.options.Config.Validate(); err != nil {
			return err
		}
		e.config = e.options.Config
	case e.options.ConfigPath != "":
		cfg, err := config.Load(e.options.ConfigPath)
		if err != nil {
			return err
		}
		e.config = cfg
	default:
		e.config = config.Default()
	}
	return nil
}

func applyLogging(e *Engine) error {
	core.SetLogLevel(e.config.Level())
	return nil
}

func createEvents(e *Engine) error {
	e.events = core.NewEventBus()
	e.metrics = core.NewMetrics()
	return nil
}

func createCollector(e *Engine) error {
	collector, err := resources.NewCollector(e.config.CollectorConfig())
	if err != nil {
		return err
	}
	e.collector = collector
	return nil
}

// registerConfigGroups replaces the groups registered from the previous
// configuration with the ones of the current one. Groups appended by the
// caller through Collector are left alone.
func registerConfigGroups(e *Engine) error {
	for _, g := range e.configGroups {
		if g.Images {
			e.collector.UnregisterImageGroup(g.Name)
		} else {
			e.collector.UnregisterBufferGroup(g.Name)
		}
	}
	e.configGroups = nil

	for _, g := range e.config.Groups {
		predicate, err := g.Predicate()
		if err != nil {
			return err
		}
		if g.Images {
			err = e.collector.RegisterImageGroup(g.Name, predicate)
		} else {
			err = e.collector.RegisterBufferGroup(g.Name, predicate, nil)
		}
		if err != nil {
			return err
		}
		e.configGroups = append(e.configGroups, g)
	}
	return nil
}

func applyCapabilities(e *Engine) error {
	if e.options.Capabilities != nil {
		e.capabilities = *e.options.Capabilities
		return nil
	}
	e.capabilities = e.config.DeviceCapabilities()
	return nil
}

func createAllocator(e *Engine) error {
	if e.options.Allocator != nil {
		e.allocator = e.options.Allocator
		return nil
	}
	host, err := hostmem.NewAllocator(e.config.HostMemConfig())
	if err != nil {
		return err
	}
	e.host = host
	e.allocator = host
	return nil
}

func createDispatcher(e *Engine) error {
	e.dispatch = resources.NewDispatcher(e.allocator, e.metrics, e.events)
	return nil
}

func startWatcher(e *Engine) error {
	if !e.options.Watch {
		return nil
	}
	if e.options.ConfigPath == "" {
		return errors.Wrap(core.ErrInvalidConfig, "watching needs a config path")
	}
	watcher, err := config.NewWatcher(e.options.ConfigPath, func(cfg *config.Config) {
		if err := e.Reload(cfg); err != nil {
			core.LogError("Applying reloaded config failed: %s", err.Error())
		}
	})
	if err != nil {
		return err
	}
	e.watcher = watcher
	return nil
}

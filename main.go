/*
Headless run of the resource engine: collects the testbed scene, groups it,
dispatches it on host memory and logs the layout.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-resources/engine"
	"github.com/spaghettifunk/anima-resources/engine/core"
	"github.com/spaghettifunk/anima-resources/testbed"
)

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	watch := flag.Bool("watch", false, "keep running and re-run the testbed whenever the config changes")
	flag.Parse()

	e, err := engine.New(engine.Options{ConfigPath: *configPath, Watch: *watch})
	if err != nil {
		core.LogFatal("Engine creation failed: %+v", err)
	}

	if err := testbed.Run(e); err != nil {
		core.LogError("Testbed failed: %+v", err)
	}
	if !*watch {
		_ = e.Shutdown()
		return
	}

	reloads := make(chan struct{}, 1)
	e.Events().Register(core.EVENT_CODE_CONFIG_RELOADED, e, func(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
		select {
		case reloads <- struct{}{}:
		default:
		}
		return false
	})

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	for {
		select {
		case <-reloads:
			e.ClearAllCollectedData()
			if err := testbed.Run(e); err != nil {
				core.LogError("Testbed failed: %+v", err)
			}
		case <-sigCh:
			_ = e.Shutdown()
			return
		}
	}
}

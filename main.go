/*
Prism viewer. Opens the testbed scene in a window, or renders it
offscreen with -headless and optionally writes a screenshot.
*/
package main

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/testbed"
)

func main() {
	configPath := flag.String("config", "prism.toml", "application config file (TOML)")
	headless := flag.Bool("headless", false, "render offscreen without a window")
	screenshot := flag.String("screenshot", "", "write a screenshot after a headless run")
	rendererName := flag.String("renderer", "", "renderer backend: wgpu or null")
	flag.Parse()

	config, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
		config = engine.DefaultApplicationConfig()
	}
	if *headless {
		config.Headless = true
	}
	if *screenshot != "" {
		config.ScreenshotPath = *screenshot
	}
	if *rendererName != "" {
		config.Renderer = *rendererName
	}

	tg := testbed.NewTestGame(config)

	e, err := engine.New(tg.Game, nil)
	if err != nil {
		panic(err)
	}

	if err := e.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// stop the loop; Shutdown runs once Run returns
	go func() {
		<-sigCh
		e.Stop()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		panic(runErr)
	}
}

// Command tappadd reads one touchpad's multitouch events, runs them
// through the tap-to-click state machine, and posts synthetic
// press/release events to a virtual pointer device. It generalizes the
// teacher driver's flat "find device, grab, create virtual mouse, loop
// dev.Read()" shape across the FSM's richer configuration surface.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"touchpad/internal/clock"
	"touchpad/internal/device"
	"touchpad/internal/frame"
	"touchpad/internal/tapconfig"
	"touchpad/internal/tapfsm"
	"touchpad/internal/timer"
)

const (
	deviceNameKeyword     = "Touchpad"
	deviceNameMustContain = ""
	virtualDeviceName     = "tappad Virtual Pointer"
)

func main() {
	devicePath := flag.String("device", "", "touch device node (skips auto-detection)")
	listDevices := flag.Bool("list-devices", false, "print the auto-detected touchpad device path and exit")
	configPath := flag.String("config", "", "path to a tap-config TOML file")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *listDevices {
		if err := runListDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*devicePath, *configPath, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runListDevices() error {
	path, err := device.Find(deviceNameKeyword, deviceNameMustContain)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func run(devicePath, configPath string, log *logrus.Logger) error {
	if devicePath == "" {
		found, err := device.Find(deviceNameKeyword, deviceNameMustContain)
		if err != nil {
			return err
		}
		devicePath = found
	}
	fmt.Printf("Found touchpad at %s\n", devicePath)

	touchDev, err := device.Open(devicePath)
	if err != nil {
		return err
	}
	defer touchDev.Close()

	pointer, err := device.NewPointer(virtualDeviceName)
	if err != nil {
		return err
	}
	defer pointer.Close()

	tmr := timer.New()
	fsm := tapfsm.New(pointer, tmr, log, touchDev.HasLeftButton())
	driver := frame.New(fsm, touchDev)
	clk := clock.System{}

	var watcher *tapconfig.Watcher
	reloads := make(chan tapconfig.File, 1)
	if configPath != "" {
		if cfg, err := tapconfig.Load(configPath); err != nil {
			log.WithError(err).Warn("tappadd: initial config load failed, using defaults")
		} else {
			cfg.Apply(fsm, clk.Now())
		}
		// onReload runs on the watcher's own goroutine; it must only ever
		// hand the loaded File to the main loop over a channel, never call
		// cfg.Apply itself, since the FSM has no internal locking and every
		// other access to it happens from the select loop below.
		watcher, err = tapconfig.NewWatcher(configPath, func(cfg tapconfig.File) {
			reloads <- cfg
		}, log)
		if err != nil {
			log.WithError(err).Warn("tappadd: config watch disabled")
		}
	}
	if watcher != nil {
		defer watcher.Close()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	frames := make(chan struct{})
	go func() {
		for {
			if _, err := touchDev.ReadFrame(); err != nil {
				close(frames)
				return
			}
			frames <- struct{}{}
		}
	}()

	fmt.Println("tappadd started. Press Ctrl+C to stop.")
	for {
		select {
		case <-sig:
			fmt.Println("\nStopping...")
			return nil
		case _, ok := <-frames:
			if !ok {
				return fmt.Errorf("touch device closed")
			}
			driver.HandleState(clk.Now())
			fsm.PostProcessState()
		case deadline := <-tmr.C():
			_ = deadline
			fsm.Step(tapfsm.EventTimeout, -1, clk.Now())
			fsm.PostProcessState()
		case cfg := <-reloads:
			cfg.Apply(fsm, clk.Now())
		}
	}
}

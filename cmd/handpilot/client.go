package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ayusman/handpilot/internal/client"
	"github.com/ayusman/handpilot/internal/control"
	"github.com/ayusman/handpilot/internal/plugin"
	"github.com/ayusman/handpilot/internal/tui"
	"github.com/ayusman/handpilot/internal/vehicle"
)

type ClientCommand struct {
	Server    string `short:"s" long:"server" description:"Relay host:port; skips discovery"`
	Dashboard bool   `short:"d" long:"dashboard" description:"Show the terminal dashboard"`
	Servo     string `long:"servo" description:"Serial port of the Feetech steering servo bus"`
	Serial    string `long:"serial" description:"Serial port of the vehicle microcontroller"`
}

func (c *ClientCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if c.Server != "" {
		cfg.Client.Server = c.Server
	}
	if c.Servo != "" {
		cfg.Vehicle.ServoPort = c.Servo
	}
	if c.Serial != "" {
		cfg.Vehicle.SerialPort = c.Serial
	}

	ctx, stop := signalContext()
	defer stop()

	var sinks client.MultiSink

	if cfg.Vehicle.ServoPort != "" {
		steer, err := vehicle.OpenSteering(ctx, cfg.Vehicle.ServoPort, cfg.Vehicle.ServoID,
			vehicle.ServoRange{Min: cfg.Vehicle.ServoMin, Max: cfg.Vehicle.ServoMax})
		if err != nil {
			return fmt.Errorf("open steering: %w", err)
		}
		defer steer.Close(context.Background())
		sinks = append(sinks, steer)
	}

	if cfg.Vehicle.SerialPort != "" {
		link, err := vehicle.OpenSerialLink(cfg.Vehicle.SerialPort, cfg.Vehicle.SerialBaud)
		if err != nil {
			return err
		}
		defer link.Close()
		sinks = append(sinks, link)
	}

	plugins := plugin.NewManager(cfg.Client.PluginDir)
	if err := plugins.Discover(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}
	if n := len(plugins.List()); n > 0 {
		log.Printf("Loaded %d plugins from %s", n, plugins.PluginDir())
		hook := plugin.NewHook(plugins, plugin.NewExecutor(plugin.DefaultTimeout))
		defer hook.Wait()
		sinks = append(sinks, hook)
	}

	clientCfg := client.Config{
		Server:        cfg.Client.Server,
		DiscoveryPort: cfg.Client.DiscoveryPort,
		RetryInterval: cfg.Client.RetryInterval,
	}

	if !c.Dashboard {
		sinks = append(sinks, client.NewPrintSink(os.Stdout))
		clientCfg.Sink = sinks
		return client.New(clientCfg).Run(ctx)
	}

	records := make(client.ChanSink, 64)
	logs := make(chan string, 64)

	// the dashboard owns the terminal, so log lines go to its log box
	log.SetOutput(chanWriter(logs))
	log.SetFlags(log.Ltime)
	defer log.SetOutput(os.Stderr)

	clientCfg.Sink = append(sinks, records)
	clientCfg.OnStatus = func(s client.Status, detail string) {
		select {
		case logs <- fmt.Sprintf("%s %s", s, detail):
		default:
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- client.New(clientCfg).Run(ctx) }()

	err = tui.Run(ctx, tui.New((<-chan control.Record)(records), logs))
	cancel()
	<-done
	return err
}

// chanWriter sends each log line to a channel, dropping lines the reader has
// not caught up with.
type chanWriter chan<- string

func (w chanWriter) Write(p []byte) (int, error) {
	select {
	case w <- strings.TrimRight(string(p), "\n"):
	default:
	}
	return len(p), nil
}

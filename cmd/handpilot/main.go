package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/ayusman/handpilot/internal/config"
)

type Options struct {
	Config string `short:"c" long:"config" env:"HANDPILOT_CONFIG" description:"Path to a TOML config file"`

	Track  TrackCommand  `command:"track" description:"Track hands on the camera and print control records to stdout"`
	Relay  RelayCommand  `command:"relay" alias:"server" description:"Run the tracker and share its records with vehicles on the network"`
	Client ClientCommand `command:"client" description:"Connect to a relay and drive the vehicle"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Handpilot - steer and drive an RC car with hand gestures"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the config selected by --config.
func loadConfig() (config.Config, error) {
	return config.LoadFrom(opts.Config)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

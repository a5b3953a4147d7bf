package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/handpilot/internal/relay"
	"github.com/ayusman/handpilot/internal/server"
	"github.com/ayusman/handpilot/internal/store"
)

type RelayCommand struct {
	Port          int    `short:"p" long:"port" description:"TCP port for the control stream"`
	DiscoveryPort int    `long:"discovery-port" description:"UDP port for announcements"`
	HTTP          string `long:"http" description:"Monitor listen address"`
	NoHTTP        bool   `long:"no-http" description:"Disable the HTTP monitor"`
	NoRecord      bool   `long:"no-record" description:"Do not save sessions to the database"`

	Args struct {
		Command []string `positional-arg-name:"command" description:"Tracker command (default: this binary's track command)"`
	} `positional-args:"yes"`
}

func (c *RelayCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if c.Port > 0 {
		cfg.Relay.TCPPort = c.Port
	}
	if c.DiscoveryPort > 0 {
		cfg.Relay.DiscoveryPort = c.DiscoveryPort
	}
	if c.HTTP != "" {
		cfg.Relay.HTTPAddr = c.HTTP
	}
	if c.NoHTTP {
		cfg.Relay.HTTPAddr = ""
	}

	command := c.Args.Command
	if len(command) == 0 {
		command = cfg.Relay.SourceCommand
	}
	if len(command) == 0 {
		command, err = selfTrackCommand()
		if err != nil {
			return err
		}
	}

	fmt.Println("Handpilot relay")

	var st *store.Store
	if !c.NoRecord {
		if err := os.MkdirAll(filepath.Dir(cfg.Relay.Database), 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		st, err = store.New(cfg.Relay.Database)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	hub := relay.NewHub()
	r, err := relay.New(relay.Config{
		TCPPort:        cfg.Relay.TCPPort,
		DiscoveryPort:  cfg.Relay.DiscoveryPort,
		BeaconInterval: cfg.Relay.BeaconInterval,
		Source:         relay.NewSource(command),
		Store:          st,
		Hub:            hub,
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	if cfg.Relay.HTTPAddr != "" {
		srv := server.New(server.Config{Store: st, Hub: hub})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Relay.HTTPAddr); err != nil {
				log.Printf("Monitor failed: %v", err)
			}
		}()
	}

	return r.Run(ctx)
}

// selfTrackCommand runs this executable's track command with the same config.
func selfTrackCommand() ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}

	command := []string{exe}
	if opts.Config != "" {
		command = append(command, "--config", opts.Config)
	}
	return append(command, "track"), nil
}

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ayusman/handpilot/internal/app"
	"github.com/ayusman/handpilot/internal/capture"
	"github.com/ayusman/handpilot/internal/detector"
	"github.com/ayusman/handpilot/internal/display"
)

type TrackCommand struct {
	Source   string `long:"source" description:"Camera index, video file or stream URL"`
	Headless bool   `long:"headless" description:"Run without the preview window"`
	NoMirror bool   `long:"no-mirror" description:"Do not flip frames horizontally"`
	MaxHands int    `long:"max-hands" description:"Maximum number of hands to detect"`
}

func (c *TrackCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if c.Source != "" {
		cfg.Camera.Source = c.Source
	}
	if c.Headless {
		cfg.Display.Enabled = false
	}
	if c.NoMirror {
		cfg.Camera.Mirror = false
	}
	if c.MaxHands > 0 {
		cfg.Detector.MaxHands = c.MaxHands
	}

	// stdout carries the control stream
	log.SetOutput(os.Stderr)
	log.Println("Handpilot tracker starting")

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinDetectionConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		Script:          cfg.Detector.Script,
		Python:          cfg.Detector.Python,
	})
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}

	appCfg := app.Config{
		Camera: capture.NewCamera(capture.Config{
			Source: cfg.Camera.Source,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
		}),
		Detector: det,
		Output:   os.Stdout,
		Mirror:   cfg.Camera.Mirror,
	}
	if cfg.Display.Enabled {
		appCfg.Display = display.NewWindow(cfg.Display.Title)
	}

	a := app.New(appCfg)
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	if err := a.Run(ctx); err != nil {
		return err
	}

	frames, emitted := a.Stats()
	log.Printf("Processed %d frames, emitted %d records", frames, emitted)
	return nil
}

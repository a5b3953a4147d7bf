// Package main provides a lights plugin for handpilot vehicles.
// It switches a GPIO line through sysfs: high while driving, low when stopped.
package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event    string          `json:"event"`
	State    string          `json:"state"`
	Previous string          `json:"previous,omitempty"`
	Angle    int             `json:"angle"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config selects the GPIO value file, e.g. /sys/class/gpio/gpio17/value.
type Config struct {
	ValuePath string `json:"value_path"`
}

const defaultValuePath = "/sys/class/gpio/gpio17/value"

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	cfg := Config{ValuePath: defaultValuePath}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}
	if v := os.Getenv("HANDPILOT_LIGHTS_GPIO"); v != "" {
		cfg.ValuePath = v
	}

	level := "0"
	if req.State == "GO" {
		level = "1"
	}

	if err := os.WriteFile(cfg.ValuePath, []byte(level), 0644); err != nil {
		writeErrorResponse(fmt.Sprintf("set %s: %v", cfg.ValuePath, err))
		return
	}

	data, _ := json.Marshal(map[string]string{"level": level})
	writeResponse(Response{Success: true, Data: data})
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	writeResponse(Response{Success: false, Error: errMsg})
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

// Package plugin runs external accessory programs, such as lights or a horn,
// when the vehicle's drive state changes.
package plugin

import (
	"encoding/json"
	"slices"
)

// Event names a plugin can subscribe to.
const (
	// EventStateChanged fires when the drive state flips between STOP and GO.
	EventStateChanged = "state_changed"
	// EventConnected fires on the first record after the client starts.
	EventConnected = "connected"
)

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Events       []string        `json:"events"`
	ConfigSchema json.RawMessage `json:"config_schema,omitempty"`
}

// Handles reports whether the plugin subscribed to event.
func (m Manifest) Handles(event string) bool {
	return slices.Contains(m.Events, event)
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Event    string          `json:"event"`
	State    string          `json:"state"`
	Previous string          `json:"previous,omitempty"`
	Angle    int             `json:"angle"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin. Config holds the contents of its optional
// config.json and is sent with every request.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
	Config     json.RawMessage
}

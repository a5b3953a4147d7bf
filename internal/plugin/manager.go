package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

const (
	manifestFile = "plugin.json"
	configFile   = "config.json"
)

// Manager holds the plugins found in one directory, keyed by manifest name.
type Manager struct {
	dir     string
	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager creates a Manager for dir. Nothing is read until Discover.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, plugins: make(map[string]*Plugin)}
}

// Discover rescans the plugin directory. Each subdirectory holding a
// plugin.json is a plugin; broken ones are logged and skipped. A missing
// directory leaves the manager empty.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		entries = nil
	case err != nil:
		return fmt.Errorf("read plugin dir: %w", err)
	}

	found := make(map[string]*Plugin)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := loadPlugin(filepath.Join(m.dir, entry.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Printf("Skipping plugin %s: %v", entry.Name(), err)
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()
	return nil
}

// loadPlugin reads the manifest in dir and the optional config next to it.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", manifestFile, err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}

	p := &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}

	cfg, err := os.ReadFile(filepath.Join(dir, configFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", configFile, err)
	case !json.Valid(cfg):
		return nil, fmt.Errorf("%s is not valid JSON", configFile)
	default:
		p.Config = json.RawMessage(cfg)
	}
	return p, nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.plugins[name]; ok {
		return p, nil
	}
	return nil, ErrPluginNotFound
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	m.mu.RUnlock()

	slices.SortFunc(plugins, func(a, b *Plugin) int {
		return strings.Compare(a.Manifest.Name, b.Manifest.Name)
	})
	return plugins
}

// Subscribers returns the plugins that handle event, sorted by name.
func (m *Manager) Subscribers(event string) []*Plugin {
	var out []*Plugin
	for _, p := range m.List() {
		if p.Manifest.Handles(event) {
			out = append(out, p)
		}
	}
	return out
}

// PluginDir returns the directory Discover scans.
func (m *Manager) PluginDir() string {
	return m.dir
}

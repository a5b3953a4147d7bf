// Package config loads handpilot settings from defaults, an optional TOML file
// and HANDPILOT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. HANDPILOT_RELAY_TCP_PORT.
const EnvPrefix = "HANDPILOT"

// Config holds application configuration.
type Config struct {
	Camera   CameraConfig   `mapstructure:"camera"`
	Detector DetectorConfig `mapstructure:"detector"`
	Display  DisplayConfig  `mapstructure:"display"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Client   ClientConfig   `mapstructure:"client"`
	Vehicle  VehicleConfig  `mapstructure:"vehicle"`
}

// CameraConfig selects the capture source.
type CameraConfig struct {
	Source string `mapstructure:"source"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	FPS    int    `mapstructure:"fps"`
	Mirror bool   `mapstructure:"mirror"`
}

// DetectorConfig holds the MediaPipe thresholds and service location.
type DetectorConfig struct {
	MaxHands               int     `mapstructure:"max_hands"`
	MinDetectionConfidence float64 `mapstructure:"min_detection_confidence"`
	MinTrackingConfidence  float64 `mapstructure:"min_tracking_confidence"`
	Script                 string  `mapstructure:"script"`
	Python                 string  `mapstructure:"python"`
}

// DisplayConfig controls the preview window.
type DisplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Title   string `mapstructure:"title"`
}

// RelayConfig holds relay ports, the tracking command and the session database.
type RelayConfig struct {
	DiscoveryPort  int           `mapstructure:"discovery_port"`
	TCPPort        int           `mapstructure:"tcp_port"`
	HTTPAddr       string        `mapstructure:"http_addr"`
	BeaconInterval time.Duration `mapstructure:"beacon_interval"`
	// SourceCommand runs the tracker; empty means this binary's track command.
	SourceCommand []string `mapstructure:"source_command"`
	Database      string   `mapstructure:"database"`
}

// ClientConfig holds how a client finds and reaches the relay.
type ClientConfig struct {
	DiscoveryPort int `mapstructure:"discovery_port"`
	// Server skips discovery when set, e.g. "192.168.1.10:7878".
	Server        string        `mapstructure:"server"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	// PluginDir holds accessory plugins fired on drive state changes.
	PluginDir string `mapstructure:"plugin_dir"`
}

// VehicleConfig holds actuator settings.
type VehicleConfig struct {
	ServoPort  string `mapstructure:"servo_port"`
	ServoID    int    `mapstructure:"servo_id"`
	ServoMin   int    `mapstructure:"servo_min"`
	ServoMax   int    `mapstructure:"servo_max"`
	SerialPort string `mapstructure:"serial_port"`
	SerialBaud int    `mapstructure:"serial_baud"`
}

// DataDir returns ~/.handpilot.
func DataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".handpilot")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("camera.source", "0")
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.fps", 30)
	v.SetDefault("camera.mirror", true)

	v.SetDefault("detector.max_hands", 1)
	v.SetDefault("detector.min_detection_confidence", 0.7)
	v.SetDefault("detector.min_tracking_confidence", 0.5)
	v.SetDefault("detector.script", "")
	v.SetDefault("detector.python", "")

	v.SetDefault("display.enabled", true)
	v.SetDefault("display.title", "Finger Angle Tracker")

	v.SetDefault("relay.discovery_port", 8888)
	v.SetDefault("relay.tcp_port", 7878)
	v.SetDefault("relay.http_addr", ":8080")
	v.SetDefault("relay.beacon_interval", 2*time.Second)
	v.SetDefault("relay.source_command", []string{})
	v.SetDefault("relay.database", filepath.Join(DataDir(), "handpilot.db"))

	v.SetDefault("client.discovery_port", 8888)
	v.SetDefault("client.server", "")
	v.SetDefault("client.retry_interval", time.Second)
	v.SetDefault("client.plugin_dir", filepath.Join(DataDir(), "plugins"))

	v.SetDefault("vehicle.servo_port", "")
	v.SetDefault("vehicle.servo_id", 1)
	v.SetDefault("vehicle.servo_min", 1024)
	v.SetDefault("vehicle.servo_max", 3072)
	v.SetDefault("vehicle.serial_port", "")
	v.SetDefault("vehicle.serial_baud", 115200)
}

// Load reads configuration from file and env. The file is
// $HANDPILOT_CONFIG if set, else ~/.config/handpilot/config.toml when present.
func Load() (Config, error) {
	return LoadFrom(os.Getenv(EnvPrefix + "_CONFIG"))
}

// LoadFrom is Load with an explicit config file path. An empty path falls
// back to the optional default location.
func LoadFrom(cfgPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "handpilot"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit path must exist; the default location is optional
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Detector.MaxHands < 1 {
		return fmt.Errorf("detector.max_hands must be at least 1, got %d", c.Detector.MaxHands)
	}
	for name, v := range map[string]float64{
		"detector.min_detection_confidence": c.Detector.MinDetectionConfidence,
		"detector.min_tracking_confidence":  c.Detector.MinTrackingConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	for name, p := range map[string]int{
		"relay.discovery_port":  c.Relay.DiscoveryPort,
		"relay.tcp_port":        c.Relay.TCPPort,
		"client.discovery_port": c.Client.DiscoveryPort,
	} {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("%s out of range: %d", name, p)
		}
	}
	if c.Vehicle.ServoMin >= c.Vehicle.ServoMax {
		return fmt.Errorf("vehicle.servo_min (%d) must be below vehicle.servo_max (%d)", c.Vehicle.ServoMin, c.Vehicle.ServoMax)
	}
	return nil
}

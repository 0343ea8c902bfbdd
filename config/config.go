package config

import (
	"fmt"
	"os"
	"strconv"

	"voice-satellite/log"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete satellite configuration
type Config struct {
	Name            string          `yaml:"name"`             // display name shown by the hub
	MAC             string          `yaml:"mac"`              // MAC address, empty to detect
	API             APIConfig       `yaml:"api"`              // native API server
	Audio           AudioConfig     `yaml:"audio"`            // microphone input
	WakeWord        WakeWordConfig  `yaml:"wake_word"`        // wake and stop word models
	Sounds          SoundsConfig    `yaml:"sounds"`           // cue sounds
	Player          PlayerConfig    `yaml:"player"`           // audio output
	PreferencesFile string          `yaml:"preferences_file"` // persisted user preferences
	Discovery       DiscoveryConfig `yaml:"discovery"`        // mDNS advertisement
	Metrics         MetricsConfig   `yaml:"metrics"`          // Prometheus endpoint
	MQTT            MQTTConfig      `yaml:"mqtt"`             // event publisher
	Log             log.LogConfig   `yaml:"log"`              // logging
	ConfigPath      string          `yaml:"-"`                // path the config was loaded from
}

// APIConfig configures the TCP server the hub connects to
type APIConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	MaxFrameSize int    `yaml:"max_frame_size"` // largest accepted frame payload in bytes
}

// AudioConfig configures where microphone chunks come from
type AudioConfig struct {
	Source    string          `yaml:"source"`     // "arecord" or "websocket"
	Device    string          `yaml:"device"`     // ALSA capture device
	BlockSize int             `yaml:"block_size"` // samples per chunk
	QueueSize int             `yaml:"queue_size"` // engine queue length in chunks
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// WebSocketConfig configures the remote microphone endpoint
type WebSocketConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // "pcm" or "opus"
}

// WakeWordConfig configures model discovery and activation gating
type WakeWordConfig struct {
	Dirs              []string        `yaml:"dirs"`
	DefaultModel      string          `yaml:"default_model"`
	StopModel         string          `yaml:"stop_model"`
	RefractorySeconds float64         `yaml:"refractory_seconds"`
	MaxActive         int             `yaml:"max_active"`
	Inference         InferenceConfig `yaml:"inference"`
}

// InferenceConfig points at the classifier service
type InferenceConfig struct {
	URL       string `yaml:"url"`
	Timeout   int    `yaml:"timeout"`    // request timeout in seconds
	WaitReady bool   `yaml:"wait_ready"` // block startup until /health answers
}

// SoundsConfig holds cue sound paths or URLs
type SoundsConfig struct {
	Wakeup        string `yaml:"wakeup"`
	TimerFinished string `yaml:"timer_finished"`
	Processing    string `yaml:"processing"`
}

// PlayerConfig configures the mpv players
type PlayerConfig struct {
	Binary    string  `yaml:"binary"`
	Device    string  `yaml:"device"`
	DuckRatio float64 `yaml:"duck_ratio"` // volume multiplier while ducked
}

// DiscoveryConfig toggles mDNS advertisement
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// MQTTConfig configures the event publisher
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// LoadConfig loads configuration from a YAML file
// Params:
//   - configPath: path of the YAML file
//
// Returns:
//   - *Config: the loaded configuration with defaults applied
//   - error: when the file cannot be read or parsed
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = configPath

	// a missing .env is normal
	_ = godotenv.Load()
	applyEnv(cfg)

	return cfg, nil
}

// Parse decodes YAML config data and fills in defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.setDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default set
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (cfg *Config) setDefaults() {
	if cfg.Name == "" {
		cfg.Name = "Linux Voice Assistant"
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 6053
	}
	if cfg.API.MaxFrameSize <= 0 {
		cfg.API.MaxFrameSize = 1 << 20
	}

	if cfg.Audio.Source == "" {
		cfg.Audio.Source = "arecord"
	}
	if cfg.Audio.Device == "" {
		cfg.Audio.Device = "default"
	}
	if cfg.Audio.BlockSize <= 0 {
		cfg.Audio.BlockSize = 1024
	}
	if cfg.Audio.QueueSize <= 0 {
		cfg.Audio.QueueSize = 64
	}
	if cfg.Audio.WebSocket.Listen == "" {
		cfg.Audio.WebSocket.Listen = ":6055"
	}
	if cfg.Audio.WebSocket.Path == "" {
		cfg.Audio.WebSocket.Path = "/audio"
	}
	if cfg.Audio.WebSocket.Format == "" {
		cfg.Audio.WebSocket.Format = "pcm"
	}

	if len(cfg.WakeWord.Dirs) == 0 {
		cfg.WakeWord.Dirs = []string{"wakewords"}
	}
	if cfg.WakeWord.DefaultModel == "" {
		cfg.WakeWord.DefaultModel = "okay_nabu"
	}
	if cfg.WakeWord.StopModel == "" {
		cfg.WakeWord.StopModel = "stop"
	}
	if cfg.WakeWord.RefractorySeconds <= 0 {
		cfg.WakeWord.RefractorySeconds = 2.0
	}
	if cfg.WakeWord.MaxActive <= 0 {
		cfg.WakeWord.MaxActive = 2
	}
	if cfg.WakeWord.Inference.URL == "" {
		cfg.WakeWord.Inference.URL = "http://127.0.0.1:8002"
	}
	if cfg.WakeWord.Inference.Timeout <= 0 {
		cfg.WakeWord.Inference.Timeout = 5
	}

	if cfg.Sounds.Wakeup == "" {
		cfg.Sounds.Wakeup = "sounds/wake_word_triggered.flac"
	}
	if cfg.Sounds.TimerFinished == "" {
		cfg.Sounds.TimerFinished = "sounds/timer_finished.flac"
	}
	if cfg.Sounds.Processing == "" {
		cfg.Sounds.Processing = "sounds/processing.wav"
	}

	if cfg.Player.Binary == "" {
		cfg.Player.Binary = "mpv"
	}
	if cfg.Player.DuckRatio <= 0 || cfg.Player.DuckRatio > 1 {
		cfg.Player.DuckRatio = 0.5
	}

	if cfg.PreferencesFile == "" {
		cfg.PreferencesFile = "preferences.json"
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9105"
	}

	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://127.0.0.1:1883"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "voice-satellite"
	}

	defaults := log.DefaultConfig()
	if cfg.Log.LogLevel == "" {
		cfg.Log.LogLevel = defaults.LogLevel
	}
	if cfg.Log.LogFile == "" {
		cfg.Log.LogFile = defaults.LogFile
	}
	if !cfg.Log.EnableConsole {
		cfg.Log.EnableConsole = defaults.EnableConsole
	}
}

// applyEnv overrides selected fields from the environment
func applyEnv(cfg *Config) {
	if v := os.Getenv("SATELLITE_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("SATELLITE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.API.Port = port
		} else {
			log.Warnf("ignoring invalid SATELLITE_PORT %q", v)
		}
	}
	if v := os.Getenv("SATELLITE_LOG_LEVEL"); v != "" {
		cfg.Log.LogLevel = v
	}
	if v := os.Getenv("SATELLITE_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
}

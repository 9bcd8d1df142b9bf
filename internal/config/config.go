// Package config provides configuration types and defaults for autoaccept.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/autoaccept/internal/log"
)

// Editor profiles.
const (
	EditorCursor      = "cursor"
	EditorAntigravity = "antigravity"
)

// Tracing exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config holds all configuration options for autoaccept.
type Config struct {
	Enabled        bool              `mapstructure:"enabled" yaml:"enabled"`
	Editor         string            `mapstructure:"editor" yaml:"editor"`
	NativeRunner   []string          `mapstructure:"native_runner" yaml:"native_runner,omitempty"`
	Poll           PollConfig        `mapstructure:"poll" yaml:"poll"`
	CDP            CDPConfig         `mapstructure:"cdp" yaml:"cdp"`
	Classifier     ClassifierConfig  `mapstructure:"classifier" yaml:"classifier"`
	Recovery       RecoveryConfig    `mapstructure:"recovery" yaml:"recovery"`
	Entitlement    EntitlementConfig `mapstructure:"entitlement" yaml:"entitlement"`
	Prompt         PromptConfig      `mapstructure:"prompt" yaml:"prompt"`
	Launch         LaunchConfig      `mapstructure:"launch" yaml:"launch"`
	BannedCommands []string          `mapstructure:"banned_commands" yaml:"banned_commands"`
	Log            log.Config        `mapstructure:"log" yaml:"log"`
	Tracing        TracingConfig     `mapstructure:"tracing" yaml:"tracing"`
	State          StateConfig       `mapstructure:"state" yaml:"state"`
}

// PollConfig controls the polling loop cadence.
type PollConfig struct {
	// Interval is used when entitled.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	// FreeInterval is the fixed cadence for non-entitled sessions.
	FreeInterval time.Duration `mapstructure:"free_interval" yaml:"free_interval"`
	// NativeInterval is the cadence of editor-native accept commands.
	NativeInterval time.Duration `mapstructure:"native_interval" yaml:"native_interval"`
}

// CDPConfig controls discovery and the debugging channel.
type CDPConfig struct {
	Host                string        `mapstructure:"host" yaml:"host"`
	PortStart           int           `mapstructure:"port_start" yaml:"port_start"`
	PortEnd             int           `mapstructure:"port_end" yaml:"port_end"`
	DiscoveryTimeout    time.Duration `mapstructure:"discovery_timeout" yaml:"discovery_timeout"`
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	CommandTimeout      time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	RediscoveryInterval time.Duration `mapstructure:"rediscovery_interval" yaml:"rediscovery_interval"`
	BackgroundMode      bool          `mapstructure:"background_mode" yaml:"background_mode"`
}

// ButtonsConfig toggles individual inclusion phrases.
type ButtonsConfig struct {
	AcceptAll  bool `mapstructure:"accept_all" yaml:"accept_all"`
	Accept     bool `mapstructure:"accept" yaml:"accept"`
	RunCommand bool `mapstructure:"run_command" yaml:"run_command"`
	Run        bool `mapstructure:"run" yaml:"run"`
	Apply      bool `mapstructure:"apply" yaml:"apply"`
	Execute    bool `mapstructure:"execute" yaml:"execute"`
	Resume     bool `mapstructure:"resume" yaml:"resume"`
	TryAgain   bool `mapstructure:"try_again" yaml:"try_again"`
}

// ClassifierConfig holds thresholds passed into the in-page script.
type ClassifierConfig struct {
	Buttons             ButtonsConfig `mapstructure:"buttons" yaml:"buttons"`
	StuckThreshold      time.Duration `mapstructure:"stuck_threshold" yaml:"stuck_threshold"`
	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold" yaml:"inactivity_threshold"`
	ButtonDecay         time.Duration `mapstructure:"button_decay" yaml:"button_decay"`
}

// RecoveryConfig bounds recovery attempts per stall episode.
type RecoveryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// EntitlementConfig controls how the entitlement flag is resolved at startup.
type EntitlementConfig struct {
	// Endpoint is the base URL of the verification API. Empty disables verification.
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	// Entitled forces the entitled configuration without verification.
	Entitled bool `mapstructure:"entitled" yaml:"entitled"`
	// UpgradePollInterval and UpgradePollAttempts bound the re-verification
	// that runs after the upgrade notice is shown.
	UpgradePollInterval time.Duration `mapstructure:"upgrade_poll_interval" yaml:"upgrade_poll_interval"`
	UpgradePollAttempts int           `mapstructure:"upgrade_poll_attempts" yaml:"upgrade_poll_attempts"`
}

// PromptConfig controls the upgrade prompt shown to non-entitled sessions.
type PromptConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
}

// LaunchConfig describes how to relaunch the editor with a debugging port.
type LaunchConfig struct {
	Executable string        `mapstructure:"executable" yaml:"executable"`
	Args       []string      `mapstructure:"args" yaml:"args"`
	Port       int           `mapstructure:"port" yaml:"port"`
	Wait       time.Duration `mapstructure:"wait" yaml:"wait"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Exporter string `mapstructure:"exporter" yaml:"exporter"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// StateConfig locates the persisted state database.
type StateConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DefaultButtons enables every inclusion phrase.
func DefaultButtons() ButtonsConfig {
	return ButtonsConfig{
		AcceptAll:  true,
		Accept:     true,
		RunCommand: true,
		Run:        true,
		Apply:      true,
		Execute:    true,
		Resume:     true,
		TryAgain:   true,
	}
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Enabled: true,
		Editor:  EditorCursor,
		Poll: PollConfig{
			Interval:       1 * time.Second,
			FreeInterval:   300 * time.Millisecond,
			NativeInterval: 500 * time.Millisecond,
		},
		CDP: CDPConfig{
			Host:                "127.0.0.1",
			PortStart:           9222,
			PortEnd:             9232,
			DiscoveryTimeout:    1 * time.Second,
			ConnectTimeout:      5 * time.Second,
			CommandTimeout:      5 * time.Second,
			RediscoveryInterval: 10 * time.Second,
		},
		Classifier: ClassifierConfig{
			Buttons:             DefaultButtons(),
			StuckThreshold:      3 * time.Second,
			InactivityThreshold: 10 * time.Second,
			ButtonDecay:         30 * time.Second,
		},
		Recovery: RecoveryConfig{
			MaxAttempts: 3,
		},
		Entitlement: EntitlementConfig{
			CacheTTL:            10 * time.Minute,
			UpgradePollInterval: 5 * time.Second,
			UpgradePollAttempts: 60,
		},
		Prompt: PromptConfig{
			Cooldown: 24 * time.Hour,
		},
		Launch: LaunchConfig{
			Port: 9222,
			Wait: 15 * time.Second,
		},
		Log: log.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Exporter: ExporterNone,
		},
	}
}

// SetDefaults registers every default on v so that partially specified
// config files and environment variables merge over them.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("enabled", d.Enabled)
	v.SetDefault("editor", d.Editor)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.free_interval", d.Poll.FreeInterval)
	v.SetDefault("poll.native_interval", d.Poll.NativeInterval)
	v.SetDefault("cdp.host", d.CDP.Host)
	v.SetDefault("cdp.port_start", d.CDP.PortStart)
	v.SetDefault("cdp.port_end", d.CDP.PortEnd)
	v.SetDefault("cdp.discovery_timeout", d.CDP.DiscoveryTimeout)
	v.SetDefault("cdp.connect_timeout", d.CDP.ConnectTimeout)
	v.SetDefault("cdp.command_timeout", d.CDP.CommandTimeout)
	v.SetDefault("cdp.rediscovery_interval", d.CDP.RediscoveryInterval)
	v.SetDefault("cdp.background_mode", d.CDP.BackgroundMode)
	v.SetDefault("classifier.buttons.accept_all", true)
	v.SetDefault("classifier.buttons.accept", true)
	v.SetDefault("classifier.buttons.run_command", true)
	v.SetDefault("classifier.buttons.run", true)
	v.SetDefault("classifier.buttons.apply", true)
	v.SetDefault("classifier.buttons.execute", true)
	v.SetDefault("classifier.buttons.resume", true)
	v.SetDefault("classifier.buttons.try_again", true)
	v.SetDefault("classifier.stuck_threshold", d.Classifier.StuckThreshold)
	v.SetDefault("classifier.inactivity_threshold", d.Classifier.InactivityThreshold)
	v.SetDefault("classifier.button_decay", d.Classifier.ButtonDecay)
	v.SetDefault("recovery.max_attempts", d.Recovery.MaxAttempts)
	v.SetDefault("entitlement.endpoint", d.Entitlement.Endpoint)
	v.SetDefault("entitlement.cache_ttl", d.Entitlement.CacheTTL)
	v.SetDefault("entitlement.entitled", d.Entitlement.Entitled)
	v.SetDefault("entitlement.upgrade_poll_interval", d.Entitlement.UpgradePollInterval)
	v.SetDefault("entitlement.upgrade_poll_attempts", d.Entitlement.UpgradePollAttempts)
	v.SetDefault("prompt.cooldown", d.Prompt.Cooldown)
	v.SetDefault("launch.port", d.Launch.Port)
	v.SetDefault("launch.wait", d.Launch.Wait)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
}

// Load reads the config file at path (if it exists) merged over defaults and
// AUTOACCEPT_* environment variables.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("AUTOACCEPT")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
			log.Debug(log.CatConfig, "No config file, using defaults", "path", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch c.Editor {
	case EditorCursor, EditorAntigravity:
	default:
		return fmt.Errorf("editor: unknown profile %q (want %s or %s)", c.Editor, EditorCursor, EditorAntigravity)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.FreeInterval <= 0 {
		return fmt.Errorf("poll.free_interval must be positive, got %s", c.Poll.FreeInterval)
	}
	if err := validatePort("cdp.port_start", c.CDP.PortStart); err != nil {
		return err
	}
	if err := validatePort("cdp.port_end", c.CDP.PortEnd); err != nil {
		return err
	}
	if c.CDP.PortStart > c.CDP.PortEnd {
		return fmt.Errorf("cdp.port_start (%d) must not exceed cdp.port_end (%d)", c.CDP.PortStart, c.CDP.PortEnd)
	}
	if c.CDP.CommandTimeout <= 0 {
		return fmt.Errorf("cdp.command_timeout must be positive, got %s", c.CDP.CommandTimeout)
	}
	if c.Entitlement.UpgradePollAttempts < 0 {
		return fmt.Errorf("entitlement.upgrade_poll_attempts must be non-negative, got %d", c.Entitlement.UpgradePollAttempts)
	}
	if c.Recovery.MaxAttempts < 0 {
		return fmt.Errorf("recovery.max_attempts must be non-negative, got %d", c.Recovery.MaxAttempts)
	}
	switch c.Tracing.Exporter {
	case "", ExporterNone, ExporterStdout, ExporterOTLP:
	default:
		return fmt.Errorf("tracing.exporter: unknown exporter %q", c.Tracing.Exporter)
	}
	return nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s: port %d out of range", name, port)
	}
	return nil
}

// Ports returns the inclusive CDP port range as a slice.
func (c CDPConfig) Ports() []int {
	ports := make([]int, 0, c.PortEnd-c.PortStart+1)
	for p := c.PortStart; p <= c.PortEnd; p++ {
		ports = append(ports, p)
	}
	return ports
}

// Dump renders the effective configuration as YAML.
func (c Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return string(out), nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# autoaccept configuration

# Start with auto-accept enabled (toggle at runtime with 'autoaccept toggle')
enabled: true

# Editor profile: cursor (remote-debugging clicks) or antigravity (native commands)
editor: cursor

# Command used to invoke editor-native accept commands (antigravity profile).
# "{command}" is replaced with the command identifier.
# native_runner: ["/path/to/editor-bridge", "exec", "{command}"]

poll:
  interval: 1s          # Cadence when entitled
  free_interval: 300ms  # Fixed cadence otherwise
  native_interval: 500ms

cdp:
  host: 127.0.0.1
  port_start: 9222
  port_end: 9232
  discovery_timeout: 1s
  connect_timeout: 5s
  command_timeout: 5s
  rediscovery_interval: 10s
  background_mode: false  # Relaxed visibility checks and keyboard fallback

classifier:
  buttons:
    accept_all: true
    accept: true
    run_command: true
    run: true
    apply: true
    execute: true
    resume: true
    try_again: true
  stuck_threshold: 3s
  inactivity_threshold: 10s
  button_decay: 30s

recovery:
  max_attempts: 3

entitlement:
  # endpoint: https://license.example.com
  cache_ttl: 10m
  entitled: false
  # After the upgrade notice, re-check every interval this many times.
  upgrade_poll_interval: 5s
  upgrade_poll_attempts: 60

prompt:
  cooldown: 24h

launch:
  # executable: /Applications/Cursor.app/Contents/MacOS/Cursor
  port: 9222
  wait: 15s  # How long to wait for the debugging port after launch

# Commands that must never be accepted automatically.
# Plain text matches case-insensitively; /pattern/flags is a regular expression.
# Leave unset to use the built-in list (see 'autoaccept banned list').
# banned_commands:
#   - "rm -rf /"
#   - "/sudo\\s+rm/i"

log:
  level: info     # debug, info, warn, error
  format: console # console, json
  output: stderr  # stdout, stderr, or a file path

tracing:
  exporter: none  # none, stdout, otlp
  # endpoint: localhost:4317

# state:
#   path: ~/.local/state/autoaccept/state.db
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, EditorCursor, cfg.Editor)
	assert.Equal(t, 300*time.Millisecond, cfg.Poll.FreeInterval)
	assert.Equal(t, 1*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 9222, cfg.CDP.PortStart)
	assert.Equal(t, 9232, cfg.CDP.PortEnd)
	assert.Equal(t, 5*time.Second, cfg.CDP.CommandTimeout)
	assert.Equal(t, 10*time.Second, cfg.CDP.RediscoveryInterval)
	assert.Equal(t, 3, cfg.Recovery.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Prompt.Cooldown)
	assert.Equal(t, 5*time.Second, cfg.Entitlement.UpgradePollInterval)
	assert.Equal(t, 60, cfg.Entitlement.UpgradePollAttempts)
	assert.Equal(t, DefaultButtons(), cfg.Classifier.Buttons)
}

func TestDefaultConfigTemplate_MatchesDefaults(t *testing.T) {
	cfg := loadConfigFromYAML(t, DefaultConfigTemplate())

	want := Defaults()
	assert.Equal(t, want.Poll, cfg.Poll)
	assert.Equal(t, want.CDP, cfg.CDP)
	assert.Equal(t, want.Classifier, cfg.Classifier)
	assert.Equal(t, want.Recovery, cfg.Recovery)
	assert.Equal(t, want.Prompt, cfg.Prompt)
	assert.Equal(t, want.Entitlement, cfg.Entitlement)
	assert.Equal(t, want.Log, cfg.Log)
	assert.Nil(t, cfg.BannedCommands)
}

func TestLoad_PartialFileMergesDefaults(t *testing.T) {
	cfg := loadConfigFromYAML(t, `
editor: antigravity
poll:
  interval: 2s
classifier:
  buttons:
    run: false
banned_commands:
  - "git push --force"
  - "/curl .*\\| *sh/"
`)

	assert.Equal(t, EditorAntigravity, cfg.Editor)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 300*time.Millisecond, cfg.Poll.FreeInterval)
	assert.False(t, cfg.Classifier.Buttons.Run)
	assert.True(t, cfg.Classifier.Buttons.Accept)
	assert.Equal(t, []string{"git push --force", `/curl .*\| *sh/`}, cfg.BannedCommands)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, Defaults().CDP, cfg.CDP)
}

func TestLoad_InvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cdp:\n  port_start: 9300\n  port_end: 9200\n"), 0644))

	_, err := Load(viper.New(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not exceed")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown editor", func(c *Config) { c.Editor = "vim" }, "unknown profile"},
		{"zero interval", func(c *Config) { c.Poll.Interval = 0 }, "poll.interval"},
		{"zero free interval", func(c *Config) { c.Poll.FreeInterval = 0 }, "poll.free_interval"},
		{"port out of range", func(c *Config) { c.CDP.PortEnd = 70000 }, "out of range"},
		{"negative recovery", func(c *Config) { c.Recovery.MaxAttempts = -1 }, "max_attempts"},
		{"unknown exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }, "unknown exporter"},
		{"negative upgrade polls", func(c *Config) { c.Entitlement.UpgradePollAttempts = -1 }, "upgrade_poll_attempts"},
		{"zero command timeout", func(c *Config) { c.CDP.CommandTimeout = 0 }, "command_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCDPConfig_Ports(t *testing.T) {
	ports := CDPConfig{PortStart: 9222, PortEnd: 9225}.Ports()
	require.Equal(t, []int{9222, 9223, 9224, 9225}, ports)

	single := CDPConfig{PortStart: 9000, PortEnd: 9000}.Ports()
	require.Equal(t, []int{9000}, single)
}

func TestDump_RendersYAML(t *testing.T) {
	cfg := Defaults()
	cfg.BannedCommands = []string{"shutdown"}
	out, err := cfg.Dump()
	require.NoError(t, err)
	require.Contains(t, out, "editor: cursor")
	require.Contains(t, out, "- shutdown")
}

func TestWriteDefaultConfig_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))
}

func loadConfigFromYAML(t *testing.T, yaml string) Config {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(yaml), 0644)
	require.NoError(t, err)

	cfg, err := Load(viper.New(), configPath)
	require.NoError(t, err)
	return cfg
}

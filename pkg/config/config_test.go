package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvbtx/hidesd/pkg/dvbt"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary directory for test files
	tempDir, err := os.MkdirTemp("", "hidesd-config-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("Valid Config", func(t *testing.T) {
		configYAML := `
device:
  index: 1
  mock: true

channel:
  frequency: 474000000
  bandwidth: "8-MHz"
  constellation: "64-QAM"
  code_rate: "2/3"
  guard_interval: "1/4"
  transmission_mode: "8K"

input:
  file: "/srv/streams/mux.ts"
  loop: true

web:
  port: 9090
  bind_address: "127.0.0.1"

api:
  unix_socket: "/run/hidesd.sock"

storage:
  database_path: "/var/lib/hidesd/sessions.db"
  max_sessions: 250

logging:
  level: "debug"
  file: "/var/log/hidesd/hidesd.log"
`
		configPath := filepath.Join(tempDir, "valid.yaml")
		if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}

		if cfg.Device.Index != 1 {
			t.Errorf("Expected device index 1, got %d", cfg.Device.Index)
		}
		if !cfg.Device.Mock {
			t.Error("Expected mock device to be enabled")
		}
		if cfg.Channel.Frequency != 474000000 {
			t.Errorf("Expected frequency 474000000, got %d", cfg.Channel.Frequency)
		}
		if cfg.Input.File != "/srv/streams/mux.ts" {
			t.Errorf("Expected input file /srv/streams/mux.ts, got %s", cfg.Input.File)
		}
		if !cfg.Input.Loop {
			t.Error("Expected input loop to be enabled")
		}
		if cfg.Web.Port != 9090 {
			t.Errorf("Expected web port 9090, got %d", cfg.Web.Port)
		}
		if cfg.API.UnixSocket != "/run/hidesd.sock" {
			t.Errorf("Expected unix socket /run/hidesd.sock, got %s", cfg.API.UnixSocket)
		}
		if cfg.Storage.MaxSessions != 250 {
			t.Errorf("Expected max sessions 250, got %d", cfg.Storage.MaxSessions)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
		}
	})

	t.Run("Config With Defaults", func(t *testing.T) {
		configYAML := `
channel:
  frequency: 474000000
`
		configPath := filepath.Join(tempDir, "minimal.yaml")
		if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}

		if cfg.Channel.Bandwidth != "8-MHz" {
			t.Errorf("Expected default bandwidth 8-MHz, got %s", cfg.Channel.Bandwidth)
		}
		if cfg.Channel.Constellation != "64-QAM" {
			t.Errorf("Expected default constellation 64-QAM, got %s", cfg.Channel.Constellation)
		}
		if cfg.Channel.CodeRate != "2/3" {
			t.Errorf("Expected default code rate 2/3, got %s", cfg.Channel.CodeRate)
		}
		if cfg.Channel.GuardInterval != "1/4" {
			t.Errorf("Expected default guard interval 1/4, got %s", cfg.Channel.GuardInterval)
		}
		if cfg.Channel.TransmissionMode != "8K" {
			t.Errorf("Expected default transmission mode 8K, got %s", cfg.Channel.TransmissionMode)
		}
		if cfg.Channel.SpectralInversion != "auto" {
			t.Errorf("Expected default spectral inversion auto, got %s", cfg.Channel.SpectralInversion)
		}
		if cfg.Web.Port != 8080 {
			t.Errorf("Expected default web port 8080, got %d", cfg.Web.Port)
		}
		if cfg.Web.BindAddress != "0.0.0.0" {
			t.Errorf("Expected default bind address 0.0.0.0, got %s", cfg.Web.BindAddress)
		}
		if cfg.API.UnixSocket != "/tmp/hidesd.sock" {
			t.Errorf("Expected default unix socket /tmp/hidesd.sock, got %s", cfg.API.UnixSocket)
		}
		if cfg.Storage.DatabasePath != "hidesd.db" {
			t.Errorf("Expected default database path hidesd.db, got %s", cfg.Storage.DatabasePath)
		}
		if cfg.Storage.MaxSessions != 1000 {
			t.Errorf("Expected default max sessions 1000, got %d", cfg.Storage.MaxSessions)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("Expected default log level info, got %s", cfg.Logging.Level)
		}
		if cfg.Logging.MaxSize != 100 {
			t.Errorf("Expected default log max size 100, got %d", cfg.Logging.MaxSize)
		}
		if cfg.Logging.MaxBackups != 5 {
			t.Errorf("Expected default log max backups 5, got %d", cfg.Logging.MaxBackups)
		}
		if cfg.Logging.MaxAge != 30 {
			t.Errorf("Expected default log max age 30, got %d", cfg.Logging.MaxAge)
		}
	})

	t.Run("File Not Found", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(tempDir, "nonexistent.yaml"))
		if err == nil {
			t.Error("Expected error for nonexistent file")
		}
		if !strings.Contains(err.Error(), "failed to read config file") {
			t.Errorf("Expected 'failed to read config file' error, got: %v", err)
		}
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		_, err := LoadConfig(configPath)
		if err == nil {
			t.Error("Expected error for invalid YAML")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected 'failed to parse config file' error, got: %v", err)
		}
	})

	t.Run("Empty File", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "empty.yaml")
		if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig failed on empty file: %v", err)
		}
		if cfg.Web.Port != 8080 {
			t.Errorf("Expected defaults on empty file, got port %d", cfg.Web.Port)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Device: DeviceConfig{Index: 0},
			Channel: ChannelConfig{
				Frequency:         474000000,
				Bandwidth:         "8-MHz",
				Constellation:     "64-QAM",
				CodeRate:          "2/3",
				GuardInterval:     "1/4",
				TransmissionMode:  "8K",
				SpectralInversion: "auto",
			},
			Web: WebConfig{Port: 8080, BindAddress: "0.0.0.0"},
		}
	}

	t.Run("Valid Config", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Expected valid config to pass, got: %v", err)
		}
	})

	t.Run("Negative Device Index", func(t *testing.T) {
		cfg := valid()
		cfg.Device.Index = -1
		err := cfg.Validate()
		if err == nil {
			t.Error("Expected error for negative device index")
		}
		if !strings.Contains(err.Error(), "device index") {
			t.Errorf("Expected device index error, got: %v", err)
		}
	})

	t.Run("Missing Frequency", func(t *testing.T) {
		cfg := valid()
		cfg.Channel.Frequency = 0
		err := cfg.Validate()
		if err == nil {
			t.Error("Expected error for missing frequency")
		}
		if !strings.Contains(err.Error(), "frequency") {
			t.Errorf("Expected frequency error, got: %v", err)
		}
	})

	t.Run("Unknown Constellation", func(t *testing.T) {
		cfg := valid()
		cfg.Channel.Constellation = "1024-QAM"
		err := cfg.Validate()
		if err == nil {
			t.Error("Expected error for unknown constellation")
		}
		if !strings.Contains(err.Error(), "constellation") {
			t.Errorf("Expected constellation error, got: %v", err)
		}
	})

	t.Run("Unknown Code Rate", func(t *testing.T) {
		cfg := valid()
		cfg.Channel.CodeRate = "9/10"
		if err := cfg.Validate(); err == nil {
			t.Error("Expected error for unknown code rate")
		}
	})

	t.Run("Web Port Out Of Range", func(t *testing.T) {
		cfg := valid()
		cfg.Web.Port = 70000
		err := cfg.Validate()
		if err == nil {
			t.Error("Expected error for out of range port")
		}
		if !strings.Contains(err.Error(), "port") {
			t.Errorf("Expected port error, got: %v", err)
		}
	})
}

func TestTuneParameters(t *testing.T) {
	cfg := &Config{
		Channel: ChannelConfig{
			Frequency:         474000000,
			Bandwidth:         "8-MHz",
			Constellation:     "64-QAM",
			CodeRate:          "2/3",
			GuardInterval:     "1/4",
			TransmissionMode:  "8K",
			SpectralInversion: "on",
		},
	}

	params, err := cfg.TuneParameters()
	if err != nil {
		t.Fatalf("TuneParameters failed: %v", err)
	}

	if params.Frequency != 474000000 {
		t.Errorf("Expected frequency 474000000, got %d", params.Frequency)
	}
	if params.Bandwidth != dvbt.Bandwidth8MHz {
		t.Errorf("Expected 8 MHz bandwidth, got %v", params.Bandwidth)
	}
	if params.Constellation != dvbt.QAM64 {
		t.Errorf("Expected 64-QAM, got %v", params.Constellation)
	}
	if params.CodeRate != dvbt.Rate2_3 {
		t.Errorf("Expected code rate 2/3, got %v", params.CodeRate)
	}
	if params.Guard != dvbt.Guard1_4 {
		t.Errorf("Expected guard interval 1/4, got %v", params.Guard)
	}
	if params.Mode != dvbt.Mode8K {
		t.Errorf("Expected 8K mode, got %v", params.Mode)
	}
	if params.Inversion != dvbt.InversionOn {
		t.Errorf("Expected spectral inversion on, got %v", params.Inversion)
	}

	if params.TheoreticalBitrate() != 19905882 {
		t.Errorf("Expected bitrate 19905882, got %d", params.TheoreticalBitrate())
	}
}

func TestDeviceLabel(t *testing.T) {
	tests := []struct {
		name     string
		device   DeviceConfig
		expected string
	}{
		{"Mock", DeviceConfig{Mock: true, Path: "/dev/usb-it9507x0"}, "mock device"},
		{"Explicit Path", DeviceConfig{Path: "/dev/usb-it9507x0"}, "/dev/usb-it9507x0"},
		{"Index", DeviceConfig{Index: 2}, "device 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Device: tt.device}
			if got := cfg.DeviceLabel(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

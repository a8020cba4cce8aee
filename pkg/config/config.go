package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/dvbtx/hidesd/pkg/dvbt"
)

// DeviceConfig selects the modulator the daemon drives.
type DeviceConfig struct {
	Index int    `yaml:"index"` // position in the enumerated node list
	Path  string `yaml:"path"`  // explicit device node, overrides index
	Mock  bool   `yaml:"mock"`  // run against the in-memory mock backend
}

// ChannelConfig is the DVB-T channel in configuration file form. Values
// are parsed into dvbt types by TuneParameters.
type ChannelConfig struct {
	Frequency         uint64 `yaml:"frequency"` // Hz
	Bandwidth         string `yaml:"bandwidth"`
	Constellation     string `yaml:"constellation"`
	CodeRate          string `yaml:"code_rate"`
	GuardInterval     string `yaml:"guard_interval"`
	TransmissionMode  string `yaml:"transmission_mode"`
	SpectralInversion string `yaml:"spectral_inversion"`
	Gain              *int   `yaml:"gain"` // dB adjust applied after tune, nil leaves hardware default
}

// InputConfig names the default transport stream source.
type InputConfig struct {
	File string `yaml:"file"`
	Loop bool   `yaml:"loop"`
}

// WebConfig configures the HTTP status interface.
type WebConfig struct {
	Port        int    `yaml:"port"`
	BindAddress string `yaml:"bind_address"`
}

// APIConfig configures the control socket.
type APIConfig struct {
	UnixSocket string `yaml:"unix_socket"`
}

// StorageConfig configures the session log database.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	MaxSessions  int    `yaml:"max_sessions"`
}

// LoggingConfig configures the daemon log output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"` // rotated files kept
	MaxAge     int    `yaml:"max_age"`     // days
	Compress   bool   `yaml:"compress"`
	Console    bool   `yaml:"console"`
	Structured bool   `yaml:"structured"`
}

// Config represents the hidesd configuration
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Channel ChannelConfig `yaml:"channel"`
	Input   InputConfig   `yaml:"input"`
	Web     WebConfig     `yaml:"web"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if config.Channel.Bandwidth == "" {
		config.Channel.Bandwidth = "8-MHz"
	}
	if config.Channel.Constellation == "" {
		config.Channel.Constellation = "64-QAM"
	}
	if config.Channel.CodeRate == "" {
		config.Channel.CodeRate = "2/3"
	}
	if config.Channel.GuardInterval == "" {
		config.Channel.GuardInterval = "1/4"
	}
	if config.Channel.TransmissionMode == "" {
		config.Channel.TransmissionMode = "8K"
	}
	if config.Channel.SpectralInversion == "" {
		config.Channel.SpectralInversion = "auto"
	}
	if config.Web.Port == 0 {
		config.Web.Port = 8080
	}
	if config.Web.BindAddress == "" {
		config.Web.BindAddress = "0.0.0.0"
	}
	if config.API.UnixSocket == "" {
		config.API.UnixSocket = "/tmp/hidesd.sock"
	}
	if config.Storage.DatabasePath == "" {
		config.Storage.DatabasePath = "hidesd.db"
	}
	if config.Storage.MaxSessions == 0 {
		config.Storage.MaxSessions = 1000
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = 100
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = 5
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = 30
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Device.Index < 0 {
		return fmt.Errorf("device index must not be negative")
	}
	if c.Channel.Frequency == 0 {
		return fmt.Errorf("channel frequency is required")
	}
	if _, err := c.TuneParameters(); err != nil {
		return err
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port %d out of range", c.Web.Port)
	}
	return nil
}

// TuneParameters parses the channel section into the device layer's
// parameter type.
func (c *Config) TuneParameters() (dvbt.TuneParameters, error) {
	var params dvbt.TuneParameters
	var err error

	params.Frequency = c.Channel.Frequency
	if params.Bandwidth, err = dvbt.ParseBandwidth(c.Channel.Bandwidth); err != nil {
		return params, fmt.Errorf("channel bandwidth: %w", err)
	}
	if params.Constellation, err = dvbt.ParseConstellation(c.Channel.Constellation); err != nil {
		return params, fmt.Errorf("channel constellation: %w", err)
	}
	if params.CodeRate, err = dvbt.ParseCodeRate(c.Channel.CodeRate); err != nil {
		return params, fmt.Errorf("channel code rate: %w", err)
	}
	if params.Guard, err = dvbt.ParseGuardInterval(c.Channel.GuardInterval); err != nil {
		return params, fmt.Errorf("channel guard interval: %w", err)
	}
	if params.Mode, err = dvbt.ParseTransmissionMode(c.Channel.TransmissionMode); err != nil {
		return params, fmt.Errorf("channel transmission mode: %w", err)
	}
	if params.Inversion, err = dvbt.ParseSpectralInversion(c.Channel.SpectralInversion); err != nil {
		return params, fmt.Errorf("channel spectral inversion: %w", err)
	}
	return params, nil
}

// DeviceLabel returns a human-readable name for the configured device.
func (c *Config) DeviceLabel() string {
	switch {
	case c.Device.Mock:
		return "mock device"
	case c.Device.Path != "":
		return c.Device.Path
	default:
		return fmt.Sprintf("device %d", c.Device.Index)
	}
}

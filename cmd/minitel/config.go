package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moodclient/videotex"
)

// Config is the session configuration, read from a YAML file. Fields left out keep
// the defaults from DefaultConfig.
type Config struct {
	Port string `yaml:"port"`
	// Baud is the rate to run the session at once the terminal has been found
	Baud int `yaml:"baud"`
	// SearchRounds bounds how many times every rate is tried while looking for the
	// terminal
	SearchRounds int `yaml:"search_rounds"`

	SpeedTimeout    time.Duration `yaml:"speed_timeout"`
	StandardTimeout time.Duration `yaml:"standard_timeout"`
	StatusTimeout   time.Duration `yaml:"status_timeout"`
	IdentifyTimeout time.Duration `yaml:"identify_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`

	ExtendedKeyboard bool `yaml:"extended_keyboard"`
	Lowercase        bool `yaml:"lowercase"`
	LocalEcho        bool `yaml:"local_echo"`
	MaxLineLength    int  `yaml:"max_line_length"`

	// Exec is a host program to run on a pseudo terminal. Its output goes to the
	// terminal's screen and lines typed on the terminal go to its input. Without it
	// the screen shows what is typed on the console.
	Exec []string `yaml:"exec"`

	Welcome  string `yaml:"welcome"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

func DefaultConfig() Config {
	return Config{
		Port:            "/dev/ttyUSB0",
		Baud:            videotex.Baud4800,
		SearchRounds:    3,
		SpeedTimeout:    time.Second,
		StandardTimeout: 100 * time.Millisecond,
		StatusTimeout:   2 * time.Second,
		IdentifyTimeout: 2 * time.Second,
		PollInterval:    5 * time.Millisecond,
		Lowercase:       true,
		LocalEcho:       true,
		MaxLineLength:   40,
		LogLevel:        "info",
	}
}

var errBadConfig = errors.New("invalid configuration")

// LoadConfig reads the file at path over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, config.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}

	return config, config.Validate()
}

func (c Config) Validate() error {
	switch c.Baud {
	case videotex.Baud300, videotex.Baud1200, videotex.Baud4800, videotex.Baud9600:
	default:
		return fmt.Errorf("%w: unsupported baud rate %d", errBadConfig, c.Baud)
	}

	if c.Port == "" {
		return fmt.Errorf("%w: no port", errBadConfig)
	}

	if c.SearchRounds < 1 {
		return fmt.Errorf("%w: search_rounds must be at least 1", errBadConfig)
	}

	if c.MaxLineLength < 0 {
		return fmt.Errorf("%w: negative max_line_length", errBadConfig)
	}

	_, err := c.Level()
	return err
}

// Level parses LogLevel
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return level, fmt.Errorf("%w: log_level: %w", errBadConfig, err)
	}

	return level, nil
}

func (c Config) TerminalConfig() videotex.TerminalConfig {
	return videotex.TerminalConfig{
		SpeedTimeout:    c.SpeedTimeout,
		StandardTimeout: c.StandardTimeout,
		StatusTimeout:   c.StatusTimeout,
		IdentifyTimeout: c.IdentifyTimeout,
		PollInterval:    c.PollInterval,
	}
}

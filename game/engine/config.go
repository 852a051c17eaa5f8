package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// NoTimeLimit is the time_limit value for untimed games
	NoTimeLimit = "No time limit"

	// MaxTimeLimit bounds the per-player budget
	MaxTimeLimit = 99*time.Minute + 59*time.Second

	DefaultPreviewDelay = 1250 * time.Millisecond
)

// Default display names for the two seats
var DefaultPlayerNames = []string{"Player 1", "Player 2"}

// GameConfig holds the settings a game is created with. Settings are fixed
// for the lifetime of an engine.
type GameConfig struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	TimeLimit    string   `json:"time_limit" yaml:"time_limit"`
	StackPreview bool     `json:"stack_preview" yaml:"stack_preview"`
	Players      []string `json:"players,omitempty" yaml:"players,omitempty"`
}

// DefaultConfig returns the built-in untimed preset
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Name:         "classic",
		Description:  "Untimed game with stack preview",
		TimeLimit:    NoTimeLimit,
		StackPreview: true,
	}
}

// TimeLimitDuration returns the parsed per-player budget, zero when untimed
func (c *GameConfig) TimeLimitDuration() time.Duration {
	d, err := ParseTimeLimit(c.TimeLimit)
	if err != nil {
		return 0
	}
	return d
}

// Timed reports whether players play on a clock
func (c *GameConfig) Timed() bool {
	return c.TimeLimitDuration() > 0
}

// PlayerNames returns the configured names, trimmed, or the defaults
func (c *GameConfig) PlayerNames() [2]string {
	names := [2]string{DefaultPlayerNames[0], DefaultPlayerNames[1]}
	if len(c.Players) == 2 {
		names[0], names[1] = strings.TrimSpace(c.Players[0]), strings.TrimSpace(c.Players[1])
	}
	return names
}

// ParseTimeLimit parses a time limit. Accepted forms are "", "No time limit",
// "M:SS" and Go durations such as "90s". Zero means untimed.
func ParseTimeLimit(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NoTimeLimit) {
		return 0, nil
	}

	if minutes, seconds, ok := strings.Cut(s, ":"); ok {
		m, err := strconv.Atoi(minutes)
		if err != nil || m < 0 {
			return 0, fmt.Errorf("invalid time limit %q", s)
		}
		sec, err := strconv.Atoi(seconds)
		if err != nil || sec < 0 || sec > 59 || len(seconds) != 2 {
			return 0, fmt.Errorf("invalid time limit %q", s)
		}
		return time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid time limit %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid time limit %q: negative duration", s)
	}
	return d, nil
}

// FormatTimeLimit renders a budget the way presets spell it
func FormatTimeLimit(d time.Duration) string {
	if d <= 0 {
		return NoTimeLimit
	}
	return fmt.Sprintf("%d:%02d", int(d/time.Minute), int((d%time.Minute)/time.Second))
}

// ValidateGameConfig validates a game configuration
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	d, err := ParseTimeLimit(config.TimeLimit)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if d > MaxTimeLimit {
		return fmt.Errorf("%w: time_limit must be at most %s, got %s",
			ErrInvalidConfig, FormatTimeLimit(MaxTimeLimit), FormatTimeLimit(d))
	}
	if d > 0 && d < TickUnit {
		return fmt.Errorf("%w: time_limit must be at least one second", ErrInvalidConfig)
	}
	if d%TickUnit != 0 {
		return fmt.Errorf("%w: time_limit must be a whole number of seconds, got %s", ErrInvalidConfig, d)
	}

	if len(config.Players) != 0 {
		if len(config.Players) != 2 {
			return fmt.Errorf("%w: players must list exactly 2 names, got %d", ErrInvalidConfig, len(config.Players))
		}
		a, b := strings.TrimSpace(config.Players[0]), strings.TrimSpace(config.Players[1])
		if a == "" || b == "" {
			return fmt.Errorf("%w: player names must not be empty", ErrInvalidConfig)
		}
		if strings.EqualFold(a, b) {
			return fmt.Errorf("%w: player names must be distinct", ErrInvalidConfig)
		}
	}

	return nil
}

// LoadGameConfig loads a preset from a .json, .yaml or .yml file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeGameConfig(filepath.Ext(filename), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", filename, err)
	}

	return config, nil
}

// DecodeGameConfig decodes data according to the file extension ext
func DecodeGameConfig(ext string, data []byte) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	case ".json", "":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return &config, nil
}

// EncodeGameConfig encodes config according to the file extension ext
func EncodeGameConfig(ext string, config *GameConfig) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Marshal(config)
	case ".json", "":
		return json.MarshalIndent(config, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
}

// IsConfigFile reports whether name has a preset file extension
func IsConfigFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

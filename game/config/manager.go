package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wricardo/gobblets/game/engine"
	"github.com/wricardo/gobblets/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = engine.ErrInvalidConfig
)

// DefaultConfigID names the preset used when a session asks for none
const DefaultConfigID = "classic"

// extensions are tried in order when a name carries none
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles game configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
	}

	// Load default config
	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a configuration by name. The name may carry a .json,
// .yaml or .yml extension; without one each is tried in that order.
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	id := configID(name)

	m.mu.RLock()
	// Check cache first
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	// Load from file
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.loadLocked(name)
}

func (m *Manager) loadLocked(name string) (*engine.GameConfig, error) {
	id := configID(name)

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	if strings.ContainsAny(id, "/\\") || id == "" || id == "." || id == ".." {
		return nil, fmt.Errorf("%w: invalid name %q", ErrConfigNotFound, name)
	}

	configPath, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse config
	config, err := engine.DecodeGameConfig(filepath.Ext(configPath), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(configPath), err)
	}

	// Validate config
	if err := engine.ValidateGameConfig(config); err != nil {
		return nil, err
	}

	// Cache the config
	m.configs[id] = config
	return config, nil
}

// resolve finds the file backing name
func (m *Manager) resolve(name string) (string, error) {
	candidates := []string{name}
	if !engine.IsConfigFile(name) {
		candidates = candidates[:0]
		for _, ext := range extensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, candidate := range candidates {
		path := filepath.Join(m.configDir, candidate)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrConfigNotFound, name)
}

// ListConfigs returns information about all available configurations
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !engine.IsConfigFile(entry.Name()) {
			continue
		}

		// Remove extension for config name
		name := configID(entry.Name())
		if seen[name] {
			continue
		}

		// Try to load the config to get details
		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			// Skip invalid configs
			continue
		}
		seen[name] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:     entry.Name(),
			ConfigID:     name, // This is the identifier to use for session creation
			Name:         config.Name,
			Description:  config.Description,
			TimeLimit:    engine.FormatTimeLimit(config.TimeLimitDuration()),
			Timed:        config.Timed(),
			StackPreview: config.StackPreview,
		})
	}

	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache reloads all cached configurations from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Clear cache
	m.configs = make(map[string]*engine.GameConfig)

	// Reload default config
	return m.loadDefaultConfigLocked()
}

func (m *Manager) loadDefaultConfig() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadDefaultConfigLocked()
}

// loadDefaultConfigLocked loads the default configuration, falling back to
// the first valid preset and then to the built-in classic game
func (m *Manager) loadDefaultConfigLocked() error {
	config, err := m.loadLocked(DefaultConfigID)
	if err == nil {
		m.defaultConfig = config
		return nil
	}

	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return fmt.Errorf("failed to read config directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !engine.IsConfigFile(entry.Name()) {
			continue
		}
		if config, err := m.loadLocked(entry.Name()); err == nil {
			m.defaultConfig = config
			return nil
		}
	}

	// Fall back to the built-in configuration
	m.defaultConfig = engine.DefaultConfig()
	return nil
}

// SaveConfig saves a configuration to disk. The file format follows the
// extension of name and defaults to JSON.
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	// Validate config before saving
	if err := engine.ValidateGameConfig(config); err != nil {
		return err
	}

	id := configID(name)
	if strings.ContainsAny(id, "/\\") || id == "" || id == "." || id == ".." {
		return fmt.Errorf("invalid config name %q", name)
	}

	filename := name
	if !engine.IsConfigFile(filename) {
		filename = name + ".json"
	}

	data, err := engine.EncodeGameConfig(filepath.Ext(filename), config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, filename)

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Update cache
	stored := *config
	stored.Players = append([]string(nil), config.Players...)
	m.mu.Lock()
	m.configs[id] = &stored
	m.mu.Unlock()

	return nil
}

// configID strips a known config extension from name
func configID(name string) string {
	if engine.IsConfigFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

package ical

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigCache loads and caches the per-calendar configuration files from
// the calendars directory. Entries that fail validation are ignored; a bad
// calendar never prevents the others from loading.
type ConfigCache struct {
	calendarsDir string
	cache        map[string]*Config
	mu           sync.RWMutex
}

func NewConfigCache(calendarsDir string) *ConfigCache {
	return &ConfigCache{
		calendarsDir: calendarsDir,
		cache:        make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.calendarsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.calendarsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		// Derive calendar name from filename (remove .yml extension)
		fileName := filepath.Base(file)
		calendarName := fileName[:len(fileName)-4]

		config, err := cc.LoadConfig(calendarName)
		if err != nil {
			slog.Warn("Ignoring invalid calendar configuration", "calendar", calendarName, "error", err)
			continue
		}

		slog.Debug("Configuration loaded", "calendar", calendarName, "enabled", config.Settings.Enabled)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(calendarName string) (*Config, error) {
	configFile := cc.getConfigFilePath(calendarName)
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Name = calendarName

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Name] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(calendarName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[calendarName]
	if !ok {
		return nil, fmt.Errorf("calendar config with name '%s' not found", calendarName)
	}
	return config, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("calendar name is required")
	}
	if strings.TrimSpace(config.URL) == "" {
		return fmt.Errorf("calendar URL is required")
	}
	if !strings.HasPrefix(config.URL, "http://") && !strings.HasPrefix(config.URL, "https://") {
		return fmt.Errorf("calendar URL must be http or https: %s", config.URL)
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(calendarName string) string {
	return filepath.Join(cc.calendarsDir, calendarName+".yml")
}

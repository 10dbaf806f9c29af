package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ConfigCache holds the effective configuration of every known source.
// Built-in defaults are always present; a <name>.yml file in the sources
// directory overrides the fields it sets.
type ConfigCache struct {
	sourcesDir string
	validate   *validator.Validate
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	cc := &ConfigCache{
		sourcesDir: sourcesDir,
		validate:   validator.New(),
		cache:      make(map[string]*Config),
	}
	for _, name := range KnownSources {
		def, _ := DefaultConfig(name)
		cc.cache[name] = def
	}
	return cc
}

func (cc *ConfigCache) Run() error {
	if cc.sourcesDir == "" {
		return nil
	}
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		sourceName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "source", sourceName, "refresh_interval", config.Settings.RefreshInterval, "max_items", config.Settings.MaxItems)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	sourceConfig, ok := DefaultConfig(sourceName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, sourceName)
	}

	configFile := cc.getConfigFilePath(sourceName)
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Decode onto the defaults so absent keys keep their built-in values
	if err := yaml.Unmarshal(data, sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	sourceConfig.Name = sourceName

	if err := cc.validateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceName] = sourceConfig

	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, sourceName)
	}
	return sourceConfig, nil
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

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

// Watch reloads overrides when files in the sources directory change.
// It blocks until ctx is done.
func (cc *ConfigCache) Watch(ctx context.Context) error {
	if cc.sourcesDir == "" {
		return nil
	}
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		slog.Debug("Sources directory missing, config watch disabled", "dir", cc.sourcesDir)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cc.sourcesDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cc.sourcesDir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			cc.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", "error", err)
		}
	}
}

func (cc *ConfigCache) handleEvent(event fsnotify.Event) {
	if filepath.Ext(event.Name) != ".yml" {
		return
	}
	sourceName := strings.TrimSuffix(filepath.Base(event.Name), ".yml")
	if !IsKnownSource(sourceName) {
		slog.Warn("Ignoring config for unknown source", "file", event.Name)
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		def, _ := DefaultConfig(sourceName)
		cc.mu.Lock()
		cc.cache[sourceName] = def
		cc.mu.Unlock()
		slog.Info("Configuration reset to defaults", "source", sourceName)
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if _, err := cc.LoadConfig(sourceName); err != nil {
			slog.Error("Failed to reload configuration", "source", sourceName, "error", err)
			return
		}
		slog.Info("Configuration reloaded", "source", sourceName)
	}
}

func (cc *ConfigCache) validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}

	if err := cc.validate.Struct(sourceConfig); err != nil {
		return err
	}

	for i, filter := range sourceConfig.Filters {
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(sourceName string) string {
	return filepath.Join(cc.sourcesDir, sourceName+".yml")
}

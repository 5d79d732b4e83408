package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/virtuoso-ci"
	projectConfigDir = ".virtuoso-ci"
	configFileName   = "config.yaml"
)

// ErrUnknownEnvironment is returned by Resolve for names missing from the table.
var ErrUnknownEnvironment = errors.New("unknown environment")

// LoadConfig loads the configuration by layering default, user and project
// settings, followed by explicitPath when it is not empty.
func LoadConfig(explicitPath string) (Config, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. User-specific configuration
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		if config, err = mergeFileIfExists(config, userConfigPath); err != nil {
			return Config{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
		}
	}

	// 3. Project-specific configuration
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		// Project config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		if config, err = mergeFileIfExists(config, projectConfigPath); err != nil {
			return Config{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
		}
	}

	// 4. Explicit file, which must exist
	if explicitPath != "" {
		explicitConfig, err := loadConfigFromFile(explicitPath)
		if err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
		config = mergeConfigs(config, explicitConfig)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func mergeFileIfExists(base Config, path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return Config{}, err
	}
	return mergeConfigs(base, overlay), nil
}

// loadConfigFromFile loads a Config from a YAML file.
func loadConfigFromFile(filePath string) (Config, error) {
	var config Config
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Config{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config.
// Zero values in the overlay leave the base untouched.
func mergeConfigs(base, overlay Config) Config {
	merged := base

	// Environments merge per name and per field
	merged.Environments = make(map[string]Environment, len(base.Environments)+len(overlay.Environments))
	for name, env := range base.Environments {
		merged.Environments[name] = env
	}
	for name, env := range overlay.Environments {
		current := merged.Environments[name]
		if env.API != "" {
			current.API = env.API
		}
		if env.UI != "" {
			current.UI = env.UI
		}
		merged.Environments[name] = current
	}

	if overlay.Polling.JobInterval != 0 {
		merged.Polling.JobInterval = overlay.Polling.JobInterval
	}
	if overlay.Polling.PlanJobInterval != 0 {
		merged.Polling.PlanJobInterval = overlay.Polling.PlanJobInterval
	}
	if overlay.Polling.Timeout != 0 {
		merged.Polling.Timeout = overlay.Polling.Timeout
	}
	if overlay.Polling.MaxPolls != 0 {
		merged.Polling.MaxPolls = overlay.Polling.MaxPolls
	}
	if overlay.Polling.Concurrency != 0 {
		merged.Polling.Concurrency = overlay.Polling.Concurrency
	}

	if overlay.Retry.MaxAttempts != 0 {
		merged.Retry.MaxAttempts = overlay.Retry.MaxAttempts
	}
	if overlay.Retry.BackoffFactor != 0 {
		merged.Retry.BackoffFactor = overlay.Retry.BackoffFactor
	}
	if overlay.Retry.BackoffMax != 0 {
		merged.Retry.BackoffMax = overlay.Retry.BackoffMax
	}

	return merged
}

// Validate reports the first inconsistency in the configuration.
func (c Config) Validate() error {
	if len(c.Environments) == 0 {
		return fmt.Errorf("no environments configured")
	}
	for _, name := range c.EnvironmentNames() {
		if c.Environments[name].API == "" {
			return fmt.Errorf("environment %q has no api url", name)
		}
	}
	if c.Polling.JobInterval < 0 || c.Polling.PlanJobInterval < 0 {
		return fmt.Errorf("polling intervals must not be negative")
	}
	if c.Polling.Timeout < 0 {
		return fmt.Errorf("polling timeout must not be negative, got %v", c.Polling.Timeout)
	}
	if c.Polling.MaxPolls < 0 {
		return fmt.Errorf("polling maxPolls must not be negative, got %d", c.Polling.MaxPolls)
	}
	if c.Polling.Concurrency < 1 {
		return fmt.Errorf("polling concurrency must be at least 1, got %d", c.Polling.Concurrency)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry maxAttempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BackoffFactor < 0 || c.Retry.BackoffMax < 0 {
		return fmt.Errorf("retry backoff must not be negative")
	}
	return nil
}

// EnvironmentNames returns the configured environment names in sorted order.
func (c Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up an environment by name.
func (c Config) Resolve(name string) (Environment, error) {
	env, ok := c.Environments[name]
	if !ok {
		return Environment{}, fmt.Errorf("%w %q, must be one of: %s", ErrUnknownEnvironment, name, strings.Join(c.EnvironmentNames(), ", "))
	}
	return env, nil
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

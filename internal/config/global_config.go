package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/a11ysuite/aiscan/internal/common"
	"gopkg.in/yaml.v3"
)

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	BatchConfig   BatchConfig   `json:"batch_config,omitempty" yaml:"batch_config,omitempty"`
	WorkerConfig  WorkerConfig  `json:"worker_config,omitempty" yaml:"worker_config,omitempty"`
	RetryConfig   RetryConfig   `json:"retry_config,omitempty" yaml:"retry_config,omitempty"`
	LogConfig     LogConfig     `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	HistoryConfig HistoryConfig `json:"history_config,omitempty" yaml:"history_config,omitempty"`
	CollabConfig  CollabConfig  `json:"collab_config,omitempty" yaml:"collab_config,omitempty"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		BatchConfig:   NewDefaultBatchConfig(),
		WorkerConfig:  NewDefaultWorkerConfig(),
		RetryConfig:   NewDefaultRetryConfig(),
		LogConfig:     NewDefaultLogConfig(),
		HistoryConfig: NewDefaultHistoryConfig(),
		CollabConfig:  NewDefaultCollabConfig(),
	}
}

// GetConfigPath determines the configuration file path.
// Priority: explicit flag value, AISCAN_CONFIG_PATH env var, then
// config.yaml / config.json in the current working directory.
func GetConfigPath(configFilePathFlag string) string {
	if configFilePathFlag != "" {
		if _, err := os.Stat(configFilePathFlag); err == nil {
			return configFilePathFlag
		}
	}

	envPath := os.Getenv(ConfigPathEnvVar)
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, file := range []string{"config.yaml", "config.json"} {
		path := filepath.Join(cwd, file)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// Supports both JSON and YAML formats, selected by file extension.
// When no config file is found, defaults are returned.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		if providedPath != "" {
			return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
		}
		return cfg, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to read config file: "+filePath)
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.WrapErrorf(err, "failed to unmarshal YAML from '%s'", filePath)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.WrapErrorf(err, "failed to unmarshal JSON from '%s'", filePath)
	}
	return nil
}

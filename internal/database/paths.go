package database

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const (
	AppDirName        = ".cluster-tour-router"
	CacheDBFileName   = "cache.db"
	NetworkFileName   = "network.json"
	ConfigFileName    = "config.json"
	CacheDisabledPath = "off"
)

// GetAppDir returns ~/.cluster-tour-router, creating it if needed
func GetAppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, AppDirName)
	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}

	return appDir, nil
}

// GetDefaultCacheDBPath returns ~/.cluster-tour-router/cache.db
func GetDefaultCacheDBPath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, CacheDBFileName), nil
}

// GetConfigFilePath returns ~/.cluster-tour-router/config.json
func GetConfigFilePath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, ConfigFileName), nil
}

// AppConfig stores file-based defaults that environment variables override
type AppConfig struct {
	CacheDBPath string `json:"cache_db_path"`
	NetworkFile string `json:"network_file"`
}

// LoadConfig loads the application config from path, returning defaults if
// the file does not exist. An empty path means the default config file.
func LoadConfig(path string) (*AppConfig, error) {
	if path == "" {
		var err error
		if path, err = GetConfigFilePath(); err != nil {
			return nil, err
		}
	}

	config := &AppConfig{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if config.CacheDBPath == "" {
		if config.CacheDBPath, err = GetDefaultCacheDBPath(); err != nil {
			return nil, err
		}
	}

	log.Printf("Config loaded: cache_db_path=%s network_file=%s", config.CacheDBPath, config.NetworkFile)
	return config, nil
}

// SaveConfig writes the application config to path atomically
func SaveConfig(path string, config *AppConfig) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename config file: %w", err)
	}

	log.Printf("Config saved: cache_db_path=%s", config.CacheDBPath)
	return nil
}

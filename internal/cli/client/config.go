package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	envAPIKey = "RAGCHAT_API_KEY"
	envAPIURL = "RAGCHAT_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

// GlobalConfig is the saved connection settings in config.json
type GlobalConfig struct {
	APIKey string `json:"api_key,omitempty"`
	APIURL string `json:"api_url"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "ragchat"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads config.json. A missing file yields a nil config and no error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes config.json with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// CredentialSource is where the connection settings came from
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceDefault      CredentialSource = "default"
)

// ResolveCredentials applies the cascade flag -> env -> global config -> default
// to the server URL. The API key follows the URL's source, since a key is only
// meaningful for the server it was issued by.
func ResolveCredentials(flagAPIKey, flagAPIURL string) (CredentialSource, string, string, error) {
	if flagAPIURL != "" {
		key := flagAPIKey
		if key == "" {
			key = os.Getenv(envAPIKey)
		}
		return SourceFlag, key, flagAPIURL, nil
	}

	if url := os.Getenv(envAPIURL); url != "" {
		key := flagAPIKey
		if key == "" {
			key = os.Getenv(envAPIKey)
		}
		return SourceEnv, key, url, nil
	}

	config, err := LoadGlobalConfig()
	if err != nil {
		return SourceDefault, "", "", err
	}
	if config != nil && config.APIURL != "" {
		key := flagAPIKey
		if key == "" {
			key = config.APIKey
		}
		return SourceGlobalConfig, key, config.APIURL, nil
	}

	key := flagAPIKey
	if key == "" {
		key = os.Getenv(envAPIKey)
	}
	return SourceDefault, key, defaultAPIURL, nil
}

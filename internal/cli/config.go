package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultTokenEnv is the environment variable consulted for the API token
// when the config file does not name one.
const DefaultTokenEnv = "CONFLUENCE_API_TOKEN"

// Config holds the Confluence connection settings for the sync command.
// The API token itself never lives in the file; the file names the
// environment variable that carries it.
type Config struct {
	BaseURL  string `yaml:"baseUrl"`
	Email    string `yaml:"email"`
	TokenEnv string `yaml:"tokenEnv"`
}

// LoadConfig reads a YAML config file and resolves the API token from the
// environment. A .env file in the working directory is loaded first if
// present, so local development does not need exported variables.
func LoadConfig(path string) (*Config, string, error) {
	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, "", fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, "", fmt.Errorf("config: %w", err)
	}

	token := os.Getenv(cfg.TokenEnv)
	if token == "" {
		return nil, "", fmt.Errorf("config: environment variable %s is not set", cfg.TokenEnv)
	}
	return &cfg, token, nil
}

func (c *Config) applyDefaults() {
	if c.TokenEnv == "" {
		c.TokenEnv = DefaultTokenEnv
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("baseUrl is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("email is required")
	}
	return nil
}

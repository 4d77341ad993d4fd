package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Email struct {
		Enabled        bool   `yaml:"enabled"`
		IMAPHost       string `yaml:"imap_host"`
		IMAPPort       int    `yaml:"imap_port"`
		Username       string `yaml:"username"`
		Mailbox        string `yaml:"mailbox"`
		KeyringAccount string `yaml:"keyring_account"` // defaults to username
	} `yaml:"email"`

	Scan struct {
		LookbackDays int `yaml:"lookback_days"`
		MaxResults   int `yaml:"max_results"`
	} `yaml:"scan"`

	Feeds struct {
		Enabled      bool     `yaml:"enabled"`
		URLs         []string `yaml:"urls"`
		LookbackDays int      `yaml:"lookback_days"`
	} `yaml:"feeds"`

	AI struct {
		Enabled   bool   `yaml:"enabled"`
		Provider  string `yaml:"provider"` // "gemini" or "openai"
		Model     string `yaml:"model"`
		BaseURL   string `yaml:"base_url"`    // openai-compatible endpoints only
		APIKeyEnv string `yaml:"api_key_env"` // env var holding the key
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"ai"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

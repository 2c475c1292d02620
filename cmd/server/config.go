package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hazyhaar/formsync/pkg/forms"
	"github.com/hazyhaar/formsync/pkg/importer"
	"github.com/hazyhaar/formsync/pkg/store"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type config struct {
	Addr    string `yaml:"addr"`
	MCPAddr string `yaml:"mcp_addr"`
	// SecureAddr serves HTTPS, HTTP/3 and MCP on one port when set.
	SecureAddr string       `yaml:"secure_addr"`
	TLSCert    string       `yaml:"tls_cert"`
	TLSKey     string       `yaml:"tls_key"`
	DBPath     string       `yaml:"db_path"`
	Forms      formsConfig  `yaml:"forms"`
	Import     importConfig `yaml:"import"`
}

type formsConfig struct {
	BaseURL  string `yaml:"base_url"`
	Token    string `yaml:"token"`
	PageSize int    `yaml:"page_size"`
}

type importConfig struct {
	Mode          string   `yaml:"mode"`
	BatchSize     int      `yaml:"batch_size"`
	FormLimit     int      `yaml:"form_limit"`
	ResponseLimit int      `yaml:"response_limit"`
	Forms         []string `yaml:"forms"`
	// Schedule re-runs the import inside serve, as a cron expression.
	Schedule string `yaml:"schedule"`
}

// tokenEnv overrides forms.token.
const tokenEnv = "FORMS_TOKEN"

func defaultConfig() config {
	return config{
		Addr:   ":8421",
		DBPath: "formsync.db",
		Forms: formsConfig{
			BaseURL:  forms.DefaultBaseURL,
			PageSize: forms.DefaultPageSize,
		},
		Import: importConfig{
			Mode:      string(store.ModeBatched),
			BatchSize: importer.DefaultBatchSize,
		},
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
// A .env file in the working directory may provide the token.
func loadConfig(path string) (config, bool, error) {
	_ = godotenv.Load()
	cfg := defaultConfig()
	found := true
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		found = false
	case err != nil:
		return cfg, false, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, true, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if tok := strings.TrimSpace(os.Getenv(tokenEnv)); tok != "" {
		cfg.Forms.Token = tok
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, found, errors.New("db_path is empty")
	}
	if _, err := store.ParseMode(cfg.Import.Mode); err != nil {
		return cfg, found, err
	}
	return cfg, found, nil
}

// importOptions turns the import section into pipeline options.
func (c config) importOptions() importer.Options {
	mode, _ := store.ParseMode(c.Import.Mode)
	return importer.Options{
		Mode:          mode,
		BatchSize:     c.Import.BatchSize,
		FormLimit:     c.Import.FormLimit,
		ResponseLimit: c.Import.ResponseLimit,
		Forms:         c.Import.Forms,
	}
}

func (c config) formsClient() (*forms.Client, error) {
	return forms.NewClient(forms.Config{
		BaseURL:  c.Forms.BaseURL,
		Token:    c.Forms.Token,
		PageSize: c.Forms.PageSize,
	})
}

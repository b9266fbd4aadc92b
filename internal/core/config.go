// Package core contains the business logic for the mail triage system:
// configuration, the reasoning-engine client, the classification pipeline,
// the notification digest formatter, and the workflow orchestrator.
package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// ConfigurationManager defines the interface for loading and validating the
// triage configuration from the .triagerc file and environment variables.
type ConfigurationManager interface {
	Load() (*models.Config, error)
}

// viperConfigManager implements ConfigurationManager using Viper. Values are
// resolved in order: environment variable, .triagerc key, built-in default.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// envBindings maps .triagerc keys to their environment-variable overrides.
var envBindings = map[string]string{
	"service_name":    "SERVICE_NAME",
	"imap.host":       "IMAP_HOST",
	"imap.port":       "IMAP_PORT",
	"imap.user":       "EMAIL_USER",
	"imap.pass":       "EMAIL_PASS",
	"imap.mailbox":    "IMAP_MAILBOX",
	"smtp.host":       "SMTP_HOST",
	"smtp.port":       "SMTP_PORT",
	"smtp.user":       "EMAIL_USER",
	"smtp.pass":       "EMAIL_PASS",
	"gateway.port":    "GATEWAY_PORT",
	"gateway.token":   "GATEWAY_TOKEN",
	"gateway.url":     "GATEWAY_URL",
	"webhook_url":     "WEBHOOK_URL",
	"references_file": "REFERENCES_FILE",
}

// Load reads .env, then .triagerc, applies environment overrides, and
// validates that every required connection parameter is present. The returned
// error names every missing key so the operator can fix them in one pass; the
// resolved config is returned even then, so commands that only read local
// state can still run.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	// Best effort; a missing .env file is not an error.
	_ = godotenv.Load(filepath.Join(cm.basePath, ".env"))

	v := viper.New()
	v.SetConfigName(".triagerc")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("service_name", "Support Service")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("gateway.port", "18789")
	v.SetDefault("references_file", filepath.Join(cm.basePath, "data", "reference-responses.json"))

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading .triagerc: %w", err)
		}
		// No config file; environment and defaults still apply.
	}

	cfg := &models.Config{
		ServiceName: v.GetString("service_name"),
		IMAP: models.IMAPConfig{
			Host:     v.GetString("imap.host"),
			Port:     v.GetInt("imap.port"),
			User:     v.GetString("imap.user"),
			Password: v.GetString("imap.pass"),
			Mailbox:  v.GetString("imap.mailbox"),
		},
		SMTP: models.SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			User:     v.GetString("smtp.user"),
			Password: v.GetString("smtp.pass"),
		},
		Gateway: models.GatewayConfig{
			URL:   v.GetString("gateway.url"),
			Port:  v.GetString("gateway.port"),
			Token: v.GetString("gateway.token"),
		},
		WebhookURL:     v.GetString("webhook_url"),
		ReferencesFile: v.GetString("references_file"),
	}

	return cfg, validateConfig(cfg)
}

// validateConfig checks the presence of every required connection parameter.
func validateConfig(cfg *models.Config) error {
	var missing []string
	if cfg.IMAP.Host == "" {
		missing = append(missing, "IMAP_HOST")
	}
	if cfg.IMAP.User == "" {
		missing = append(missing, "EMAIL_USER")
	}
	if cfg.IMAP.Password == "" {
		missing = append(missing, "EMAIL_PASS")
	}
	if cfg.SMTP.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

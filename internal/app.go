// Package internal provides the App struct that wires all components of the
// mail triage system together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/valter-silva-au/mail-triage/internal/cli"
	"github.com/valter-silva-au/mail-triage/internal/core"
	"github.com/valter-silva-au/mail-triage/internal/integration"
	"github.com/valter-silva-au/mail-triage/internal/storage"
	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// App holds all service dependencies for the mail triage system.
type App struct {
	BasePath string
	Config   *models.Config
	Logger   *zap.Logger

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	Store      storage.WorkflowStore
	References storage.ReferenceStore

	// Core services
	Engine       core.Engine
	Classifier   *core.Classifier
	Orchestrator *core.Orchestrator

	// Integration services
	Fetcher  *integration.IMAPFetcher
	Sender   *integration.SMTPSender
	Notifier core.Notifier
}

// NewApp creates and wires all components of the mail triage system.
// basePath is the root directory where all data is stored (typically the
// directory containing .triagerc, or TRIAGE_HOME).
//
// An incomplete configuration is not fatal here: the workflow store and the
// reference store only need the filesystem, so commands that inspect or
// decide on local state keep working. Services whose connection settings are
// missing are simply left nil and their commands report the configuration
// error instead.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}
	app.Logger = newLogger()

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, cfgErr := app.ConfigMgr.Load()
	if cfg == nil {
		return nil, fmt.Errorf("loading configuration: %w", cfgErr)
	}
	app.Config = cfg

	// --- Storage layer ---
	store, err := storage.NewWorkflowStore(basePath)
	if err != nil {
		return nil, fmt.Errorf("initializing workflow store: %w", err)
	}
	app.Store = store

	// --- Reasoning engine ---
	engine, engineErr := core.NewGatewayEngine(cfg.Gateway)
	if engineErr == nil {
		app.Engine = engine
		app.Classifier = core.NewClassifier(engine, app.Logger)
	}

	app.References = storage.NewReferenceStore(cfg.ReferencesFile, app.Engine)

	// --- Integration services ---
	if cfg.IMAP.Host != "" && cfg.IMAP.User != "" {
		app.Fetcher = integration.NewIMAPFetcher(cfg.IMAP, app.Logger)
	}
	if cfg.SMTP.Host != "" {
		app.Sender = integration.NewSMTPSender(cfg.SMTP, cfg.ServiceName, app.Logger)
	}
	if cfg.WebhookURL != "" {
		app.Notifier = integration.NewWebhookNotifier(cfg.WebhookURL, app.Logger)
	} else {
		fileNotifier, err := integration.NewFileNotifier(basePath, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("initializing outbox notifier: %w", err)
		}
		app.Notifier = fileNotifier
	}

	// A nil *IMAPFetcher stored in the interface would not compare equal to
	// nil inside the orchestrator, so assign only when configured.
	var fetcher core.Fetcher
	if app.Fetcher != nil {
		fetcher = app.Fetcher
	}
	var sender core.ReplySender
	if app.Sender != nil {
		sender = app.Sender
	}

	// --- Orchestrator ---
	app.Orchestrator = core.NewOrchestrator(
		app.Store,
		app.References,
		app.Classifier,
		fetcher,
		sender,
		app.Notifier,
		app.Logger,
	)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Cfg = cfg
	cli.Logger = app.Logger
	cli.Store = app.Store
	cli.References = app.References
	cli.Orchestrator = app.Orchestrator
	cli.Fetcher = app.Fetcher
	cli.Sender = app.Sender

	cli.EngineErr = engineErr
	cli.ConfigErr = cfgErr

	return app, nil
}

// Close flushes the buffered logger.
func (a *App) Close() error {
	if a.Logger != nil {
		// Sync on stderr returns a spurious error on some platforms.
		_ = a.Logger.Sync()
	}
	return nil
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ResolveBasePath determines the base path for the triage data directory.
// It checks the TRIAGE_HOME env var, then walks up from the current directory
// looking for a .triagerc file, and falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("TRIAGE_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".triagerc")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

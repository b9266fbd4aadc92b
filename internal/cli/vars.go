package cli

import (
	"go.uber.org/zap"

	"github.com/valter-silva-au/mail-triage/internal/core"
	"github.com/valter-silva-au/mail-triage/internal/integration"
	"github.com/valter-silva-au/mail-triage/internal/storage"
	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath     string
	Cfg          *models.Config
	Logger       *zap.Logger
	Store        storage.WorkflowStore
	References   storage.ReferenceStore
	Orchestrator *core.Orchestrator
	Fetcher      *integration.IMAPFetcher
	Sender       *integration.SMTPSender

	// EngineErr holds the reasoning-engine configuration error, if any.
	// Commands that need the engine fail fast with it; review-only commands
	// keep working without a token.
	EngineErr error

	// ConfigErr holds the connection-settings validation error, if any.
	// Commands that only read local state ignore it.
	ConfigErr error
)

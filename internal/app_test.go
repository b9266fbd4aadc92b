package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/valter-silva-au/mail-triage/internal/cli"
)

func clearTriageEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"TRIAGE_HOME", "SERVICE_NAME", "IMAP_HOST", "IMAP_PORT", "EMAIL_USER",
		"EMAIL_PASS", "IMAP_MAILBOX", "SMTP_HOST", "SMTP_PORT", "GATEWAY_PORT",
		"GATEWAY_TOKEN", "GATEWAY_URL", "WEBHOOK_URL", "REFERENCES_FILE",
	} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestResolveBasePath_TriageHomeSet(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TRIAGE_HOME", tmpDir)

	if got := ResolveBasePath(); got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
	}
}

func TestResolveBasePath_FindsTriagerc(t *testing.T) {
	clearTriageEnv(t)
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "sub", "nested")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".triagerc"), []byte("service_name: Acme\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	defer func() { _ = os.Chdir(origDir) }()
	if err := os.Chdir(subDir); err != nil {
		t.Fatal(err)
	}

	if got := ResolveBasePath(); got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q (should find .triagerc in parent)", got, tmpDir)
	}
}

func TestResolveBasePath_FallbackToCwd(t *testing.T) {
	clearTriageEnv(t)
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	defer func() { _ = os.Chdir(origDir) }()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	if got := ResolveBasePath(); got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q (should fall back to cwd)", got, tmpDir)
	}
}

func TestNewApp_FullyConfigured(t *testing.T) {
	clearTriageEnv(t)
	t.Setenv("IMAP_HOST", "imap.example.com")
	t.Setenv("EMAIL_USER", "support@example.com")
	t.Setenv("EMAIL_PASS", "secret")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("GATEWAY_TOKEN", "tok-123")

	tmpDir := t.TempDir()
	app, err := NewApp(tmpDir)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Close()

	if app.Store == nil || app.References == nil || app.Orchestrator == nil {
		t.Error("storage or orchestrator not wired")
	}
	if app.Engine == nil || app.Classifier == nil {
		t.Error("engine not wired despite a configured token")
	}
	if app.Fetcher == nil || app.Sender == nil {
		t.Error("mailbox services not wired despite full configuration")
	}
	if app.Notifier == nil {
		t.Error("notifier not wired")
	}

	// CLI package vars mirror the app.
	if cli.Store != app.Store || cli.Orchestrator != app.Orchestrator {
		t.Error("CLI vars not wired")
	}
	if cli.EngineErr != nil {
		t.Errorf("unexpected engine error: %v", cli.EngineErr)
	}
	if cli.ConfigErr != nil {
		t.Errorf("unexpected config error: %v", cli.ConfigErr)
	}

	// The data directory exists for the workflow records.
	if _, err := os.Stat(filepath.Join(tmpDir, "data")); err != nil {
		t.Errorf("data directory missing: %v", err)
	}
}

func TestNewApp_DegradedWithoutConfiguration(t *testing.T) {
	clearTriageEnv(t)

	tmpDir := t.TempDir()
	app, err := NewApp(tmpDir)
	if err != nil {
		t.Fatalf("NewApp() must succeed without connection settings, got %v", err)
	}
	defer app.Close()

	// Local state is still available for review-only commands.
	if app.Store == nil || app.References == nil || app.Orchestrator == nil {
		t.Error("local services must be wired without configuration")
	}

	// Connected services are absent and their errors surfaced.
	if app.Fetcher != nil || app.Sender != nil {
		t.Error("mailbox services must not be wired without settings")
	}
	if app.Engine != nil {
		t.Error("engine must not be wired without a token")
	}
	if cli.EngineErr == nil {
		t.Error("engine error not surfaced")
	}
	if cli.ConfigErr == nil {
		t.Error("config error not surfaced")
	}
}

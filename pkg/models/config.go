package models

// IMAPConfig holds the connection settings for the inbound mailbox.
type IMAPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Mailbox  string
}

// SMTPConfig holds the connection settings for sending approved replies.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// GatewayConfig holds the settings for the local reasoning-engine gateway.
type GatewayConfig struct {
	// URL overrides the gateway endpoint entirely; used in tests. When empty
	// the endpoint is derived from Port on the loopback interface.
	URL   string
	Port  string
	Token string
}

// Config is the merged runtime configuration for the triage system, read from
// .triagerc and environment variables.
type Config struct {
	ServiceName    string
	IMAP           IMAPConfig
	SMTP           SMTPConfig
	Gateway        GatewayConfig
	WebhookURL     string
	ReferencesFile string
}

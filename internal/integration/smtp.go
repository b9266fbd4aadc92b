package integration

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// SMTPSender sends approved drafted replies. It implements core.ReplySender.
type SMTPSender struct {
	cfg      models.SMTPConfig
	fromName string
	logger   *zap.Logger
}

// NewSMTPSender creates an SMTPSender. fromName becomes the display name on
// outgoing replies (typically the configured service name).
func NewSMTPSender(cfg models.SMTPConfig, fromName string, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fromName == "" {
		fromName = "Support"
	}
	return &SMTPSender{cfg: cfg, fromName: fromName, logger: logger}
}

// SendReply sends the drafted reply as plain text, threading it onto the
// original message via In-Reply-To and References when the message id is
// known.
func (s *SMTPSender) SendReply(ctx context.Context, draft models.Draft) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to := draft.ReplyAddress()
	if to == "" {
		return fmt.Errorf("draft %d has no reply address", draft.UID)
	}

	subject := draft.ReplySubject
	if subject == "" {
		subject = "Re: " + draft.Subject
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("%q <%s>", s.fromName, s.cfg.User)
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(draft.ReplyBody)

	if draft.OriginalMessageID != "" {
		e.Headers.Set("In-Reply-To", draft.OriginalMessageID)
		e.Headers.Set("References", draft.OriginalMessageID)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	tlsCfg := &tls.Config{ServerName: s.cfg.Host}

	var err error
	if s.cfg.Port == 465 {
		// Implicit TLS.
		err = e.SendWithTLS(addr, auth, tlsCfg)
	} else {
		err = e.SendWithStartTLS(addr, auth, tlsCfg)
	}
	if err != nil {
		return fmt.Errorf("sending reply to %s: %w", to, err)
	}

	s.logger.Info("sent email", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// Verify checks that the SMTP endpoint is reachable. It does not authenticate.
func (s *SMTPSender) Verify() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	return conn.Close()
}

package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

func TestSMTPSender_RejectsDraftWithoutAddress(t *testing.T) {
	s := NewSMTPSender(models.SMTPConfig{Host: "smtp.example.com", Port: 465}, "Support", nil)

	err := s.SendReply(context.Background(), models.Draft{UID: 7})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no reply address") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	s := NewSMTPSender(models.SMTPConfig{Host: "smtp.example.com", Port: 465}, "Support", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.SendReply(ctx, models.Draft{UID: 7, From: "a@example.com"}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestSMTPSender_VerifyUnreachable(t *testing.T) {
	s := NewSMTPSender(models.SMTPConfig{Host: "127.0.0.1", Port: 1}, "Support", nil)
	if err := s.Verify(); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}

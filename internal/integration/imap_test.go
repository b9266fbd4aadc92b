package integration

import (
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"
)

const multipartMessage = "From: Anna Schmidt <anna@example.com>\r\n" +
	"To: support@example.com\r\n" +
	"Reply-To: anna.alt@example.com\r\n" +
	"Subject: Frage zur Rechnung\r\n" +
	"Date: Fri, 14 Mar 2025 09:26:53 +0000\r\n" +
	"Message-ID: <m42@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=b1\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Ich habe eine Frage zu meiner Rechnung.\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Ich habe eine <b>Frage</b> zu meiner Rechnung.</p>\r\n" +
	"--b1\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"rechnung.pdf\"\r\n" +
	"\r\n" +
	"%PDF-1.4\r\n" +
	"--b1--\r\n"

func newMailReader(t *testing.T, raw string) *mail.Reader {
	t.Helper()
	mr, err := mail.CreateReader(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return mr
}

func TestReadParts_Multipart(t *testing.T) {
	mr := newMailReader(t, multipartMessage)

	text, html, hasAttachments := readParts(mr)
	if !strings.Contains(text, "Frage zu meiner Rechnung") {
		t.Errorf("unexpected plain text: %q", text)
	}
	if !strings.Contains(html, "<b>Frage</b>") {
		t.Errorf("unexpected html: %q", html)
	}
	if !hasAttachments {
		t.Error("attachment not detected")
	}
}

func TestReadParts_PlainOnly(t *testing.T) {
	raw := "From: bob@example.com\r\n" +
		"Subject: Hi\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Just a plain message.\r\n"

	mr := newMailReader(t, raw)
	text, html, hasAttachments := readParts(mr)
	if !strings.Contains(text, "Just a plain message.") {
		t.Errorf("unexpected text: %q", text)
	}
	if html != "" || hasAttachments {
		t.Errorf("unexpected html/attachments: %q, %v", html, hasAttachments)
	}
}

func TestHeaderAddress(t *testing.T) {
	mr := newMailReader(t, multipartMessage)

	if got := headerAddress(mr.Header, "From"); got != `"Anna Schmidt" <anna@example.com>` {
		t.Errorf("unexpected From: %q", got)
	}
	if got := headerAddress(mr.Header, "Reply-To"); got != "anna.alt@example.com" {
		t.Errorf("unexpected Reply-To: %q", got)
	}
	if got := headerAddress(mr.Header, "Cc"); got != "" {
		t.Errorf("expected empty for absent header, got %q", got)
	}
}

func TestMailHeaders(t *testing.T) {
	mr := newMailReader(t, multipartMessage)

	subject, err := mr.Header.Subject()
	if err != nil || subject != "Frage zur Rechnung" {
		t.Errorf("unexpected subject: %q (%v)", subject, err)
	}
	id, err := mr.Header.MessageID()
	if err != nil || id != "m42@example.com" {
		t.Errorf("unexpected message id: %q (%v)", id, err)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 10); got != "short" {
		t.Errorf("unexpected: %q", got)
	}
	long := strings.Repeat("ü", 20)
	got := truncateRunes(long, 5)
	if got != strings.Repeat("ü", 5) {
		t.Errorf("rune-unsafe truncation: %q", got)
	}
}

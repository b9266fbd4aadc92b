// Package integration contains the external collaborators of the triage
// core: the IMAP fetcher, the SMTP reply sender, and the notification
// channels. None of them carry workflow invariants; they are thin transports
// the orchestrator drives.
package integration

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/k3a/html2text"
	"go.uber.org/zap"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// maxBodyChars caps the email body text carried through the workflow.
const maxBodyChars = 3000

// IMAPFetcher fetches new emails from an IMAP mailbox by UID. It implements
// core.Fetcher.
type IMAPFetcher struct {
	cfg    models.IMAPConfig
	logger *zap.Logger
}

// NewIMAPFetcher creates an IMAPFetcher for the given mailbox settings.
func NewIMAPFetcher(cfg models.IMAPConfig, logger *zap.Logger) *IMAPFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &IMAPFetcher{cfg: cfg, logger: logger}
}

func (f *IMAPFetcher) connect() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", f.cfg.Host, f.cfg.Port)
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	c.Timeout = 30 * time.Second

	if err := c.Login(f.cfg.User, f.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("authenticating %s: %w", f.cfg.User, err)
	}
	return c, nil
}

// TestConnection verifies the IMAP credentials and returns the message count
// of the configured mailbox.
func (f *IMAPFetcher) TestConnection() (uint32, error) {
	c, err := f.connect()
	if err != nil {
		return 0, err
	}
	defer func() { _ = c.Logout() }()

	mbox, err := c.Select(f.cfg.Mailbox, true)
	if err != nil {
		return 0, fmt.Errorf("selecting %s: %w", f.cfg.Mailbox, err)
	}
	return mbox.Messages, nil
}

// FetchNew returns the emails with UIDs strictly greater than lastUID, plus
// the new fetch high-water mark. When lastUID is 0 it only establishes a
// baseline at the mailbox's current highest UID, returning no emails, so a
// first run never drains an entire historical mailbox.
func (f *IMAPFetcher) FetchNew(ctx context.Context, lastUID uint32) ([]models.Email, uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, lastUID, err
	}

	c, err := f.connect()
	if err != nil {
		return nil, lastUID, err
	}
	defer func() { _ = c.Logout() }()

	mbox, err := c.Select(f.cfg.Mailbox, true)
	if err != nil {
		return nil, lastUID, fmt.Errorf("selecting %s: %w", f.cfg.Mailbox, err)
	}

	if lastUID == 0 {
		baseline := uint32(0)
		if mbox.UidNext > 0 {
			baseline = mbox.UidNext - 1
		}
		f.logger.Info("established mailbox baseline", zap.Uint32("uid", baseline))
		return nil, baseline, nil
	}

	// UID range N:* can echo back the highest existing UID even when it is
	// below N, so the results are strictly filtered afterwards.
	searchSet := new(imap.SeqSet)
	searchSet.AddRange(lastUID+1, 0)
	criteria := imap.NewSearchCriteria()
	criteria.Uid = searchSet

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, lastUID, fmt.Errorf("searching for new messages: %w", err)
	}

	var newUIDs []uint32
	for _, uid := range uids {
		if uid > lastUID {
			newUIDs = append(newUIDs, uid)
		}
	}
	if len(newUIDs) == 0 {
		return nil, lastUID, nil
	}

	fetchSet := new(imap.SeqSet)
	fetchSet.AddNum(newUIDs...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(fetchSet, items, messages)
	}()

	var emails []models.Email
	maxUID := lastUID
	for msg := range messages {
		if msg.Uid <= lastUID {
			continue
		}
		email, err := f.buildEmail(msg, section)
		if err != nil {
			f.logger.Warn("skipping unparsable message",
				zap.Uint32("uid", msg.Uid),
				zap.Error(err),
			)
			continue
		}
		emails = append(emails, *email)
		if msg.Uid > maxUID {
			maxUID = msg.Uid
		}
	}

	if err := <-done; err != nil {
		return nil, lastUID, fmt.Errorf("fetching messages: %w", err)
	}
	return emails, maxUID, nil
}

// buildEmail converts a fetched IMAP message into the domain Email, preferring
// parsed MIME headers over the envelope and falling back where parsing fails.
func (f *IMAPFetcher) buildEmail(msg *imap.Message, section *imap.BodySectionName) (*models.Email, error) {
	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message has no body section")
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}

	email := &models.Email{
		UID:     msg.Uid,
		From:    headerAddress(mr.Header, "From"),
		To:      headerAddress(mr.Header, "To"),
		ReplyTo: headerAddress(mr.Header, "Reply-To"),
	}

	if subject, err := mr.Header.Subject(); err == nil && subject != "" {
		email.Subject = subject
	} else if msg.Envelope != nil {
		email.Subject = msg.Envelope.Subject
	}
	if email.Subject == "" {
		email.Subject = "(no subject)"
	}

	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		email.Date = date.UTC().Format(time.RFC3339)
	} else if msg.Envelope != nil && !msg.Envelope.Date.IsZero() {
		email.Date = msg.Envelope.Date.UTC().Format(time.RFC3339)
	} else {
		email.Date = time.Now().UTC().Format(time.RFC3339)
	}

	if id, err := mr.Header.MessageID(); err == nil && id != "" {
		email.MessageID = "<" + id + ">"
	} else if msg.Envelope != nil {
		email.MessageID = msg.Envelope.MessageId
	}

	if email.From == "" && msg.Envelope != nil && len(msg.Envelope.From) > 0 {
		email.From = msg.Envelope.From[0].Address()
	}
	if email.From == "" {
		email.From = "unknown"
	}

	text, html, hasAttachments := readParts(mr)
	if text == "" && html != "" {
		text = html2text.HTML2Text(html)
	}
	email.Text = truncateRunes(text, maxBodyChars)
	email.HasAttachments = hasAttachments

	return email, nil
}

// readParts walks the MIME parts collecting the first plain-text and HTML
// bodies and whether any attachment is present.
func readParts(mr *mail.Reader) (text, html string, hasAttachments bool) {
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, err := h.ContentType()
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(ct, "text/plain") && text == "":
				if data, err := io.ReadAll(p.Body); err == nil {
					text = string(data)
				}
			case strings.HasPrefix(ct, "text/html") && html == "":
				if data, err := io.ReadAll(p.Body); err == nil {
					html = string(data)
				}
			}
		case *mail.AttachmentHeader:
			hasAttachments = true
		}
	}
	return text, html, hasAttachments
}

// headerAddress renders the first address of a header field, keeping the
// display name when present.
func headerAddress(h mail.Header, field string) string {
	addrs, err := h.AddressList(field)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	if addrs[0].Name == "" {
		return addrs[0].Address
	}
	return addrs[0].String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

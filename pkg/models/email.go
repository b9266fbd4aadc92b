// Package models defines the shared domain types for the mail triage system:
// fetched emails, classification drafts, reference knowledge-base entries, and
// the workflow status enum.
package models

// Email is a single support email as fetched from the mailbox. It is immutable
// once fetched; identity is the IMAP UID, which increases monotonically within
// a mailbox.
type Email struct {
	UID            uint32 `json:"uid"`
	From           string `json:"from"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	Date           string `json:"date"`
	Text           string `json:"text"`
	HasAttachments bool   `json:"hasAttachments"`
	MessageID      string `json:"messageId"`
	ReplyTo        string `json:"replyTo,omitempty"`
}

package models

// Action is the classifier's verdict on what to do with an email.
type Action string

const (
	// ActionReply marks a real support request with a drafted answer.
	ActionReply Action = "reply"
	// ActionIgnore marks spam, automated notifications, and anything that is
	// not an actual support request.
	ActionIgnore Action = "ignore"
)

// Draft is a proposed classification-plus-reply for one email, awaiting human
// approval. Drafts are created only by the classification pipeline and are
// correlated to their source email by UID. The original_* fields are a
// denormalized snapshot of the source email for display and reply threading.
type Draft struct {
	UID          uint32  `json:"uid"`
	From         string  `json:"from"`
	Subject      string  `json:"subject"`
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	Language     string  `json:"language"`
	Action       Action  `json:"action"`
	ReplySubject string  `json:"reply_subject"`
	ReplyBody    string  `json:"reply_body"`
	Summary      string  `json:"summary"`

	OriginalText      string `json:"original_text,omitempty"`
	OriginalFrom      string `json:"original_from,omitempty"`
	OriginalReplyTo   string `json:"original_replyTo,omitempty"`
	OriginalDate      string `json:"original_date,omitempty"`
	OriginalMessageID string `json:"original_messageId,omitempty"`
}

// ReplyAddress returns the address an approved reply should be sent to,
// preferring the Reply-To header over the envelope sender.
func (d Draft) ReplyAddress() string {
	if d.OriginalReplyTo != "" {
		return d.OriginalReplyTo
	}
	if d.OriginalFrom != "" {
		return d.OriginalFrom
	}
	return d.From
}

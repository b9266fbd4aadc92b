package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// originalTextLimit caps how much of the original message body appears in a
// digest before truncation with an ellipsis.
const originalTextLimit = 500

// digestSeparator visibly divides drafts in a digest.
const digestSeparator = "\n\n---\n\n"

// commandsTrailer lists the reviewer commands recognized by the approval
// surface. The approve+ref variant also promotes the draft into the
// reference knowledge base.
const commandsTrailer = "**Commands:** `approve` · `approve <uid>` · `edit <uid> <text>` · `approve+ref <uid>` · `reject` · `reject <uid>`"

// FormatPreview renders a batch of drafts as a human-readable digest. It is a
// pure function of its input.
func FormatPreview(drafts []models.Draft) string {
	if len(drafts) == 0 {
		return "No drafts."
	}

	blocks := make([]string, 0, len(drafts))
	for _, d := range drafts {
		blocks = append(blocks, formatDraft(d))
	}
	return strings.Join(blocks, digestSeparator)
}

func formatDraft(d models.Draft) string {
	icon := "✉️"
	if d.Action == models.ActionIgnore {
		icon = "🚫"
	}
	conf := int(math.Round(d.Confidence * 100))

	from := d.OriginalFrom
	if from == "" {
		from = d.From
	}

	parts := []string{
		fmt.Sprintf("%s **UID %d** | %s", icon, d.UID, from),
		fmt.Sprintf("**%s** → %s (%d%%)", d.Subject, d.Category, conf),
		d.Summary,
	}

	if d.OriginalText != "" {
		parts = append(parts,
			"\n📩 **Original:**",
			blockQuote(truncate(d.OriginalText, originalTextLimit)),
		)
	}

	if d.Action == models.ActionReply && d.ReplyBody != "" {
		parts = append(parts,
			"\n✏️ **Draft reply:**",
			blockQuote(d.ReplyBody),
		)
	}

	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// BuildDigest returns the notification digest for a batch and whether it is
// worth emitting at all. A batch with drafts but no reply-action draft is
// suppressed: an all-ignore batch is not worth a human's attention.
func BuildDigest(drafts []models.Draft) (string, bool) {
	replies := CountReplies(drafts)
	if replies == 0 {
		return "", false
	}

	msg := fmt.Sprintf("📬 **%d support email(s) — draft(s) ready:**\n\n%s\n\n%s",
		replies, FormatPreview(drafts), commandsTrailer)
	return msg, true
}

// CountReplies returns how many drafts in the batch carry the reply action.
func CountReplies(drafts []models.Draft) int {
	count := 0
	for _, d := range drafts {
		if d.Action == models.ActionReply {
			count++
		}
	}
	return count
}

func blockQuote(text string) string {
	return "> " + strings.ReplaceAll(text, "\n", "\n> ")
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

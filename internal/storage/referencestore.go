package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// EntryGenerator is the slice of the reasoning engine the reference store
// needs: one structured completion to derive entry metadata from an approved
// question/answer pair.
type EntryGenerator interface {
	CompleteJSON(ctx context.Context, prompt string, input any, schema map[string]any) (json.RawMessage, error)
}

// ReferenceStore defines the interface for the knowledge base of categorized
// question/response templates that grounds drafted replies.
type ReferenceStore interface {
	// Load returns the full reference set, or an empty set if the backing
	// file is absent or unparsable.
	Load() []models.ReferenceEntry
	// Save writes the complete set back, fully overwriting the backing file.
	// Serialization is deterministic; saving unchanged data reproduces the
	// file byte for byte.
	Save(entries []models.ReferenceEntry) error
	// AddFromDraft derives a new entry from an approved draft by asking the
	// engine for metadata, appends it to the set, and saves.
	AddFromDraft(ctx context.Context, draft models.Draft) (*models.ReferenceEntry, error)
}

type fileReferenceStore struct {
	filePath string
	engine   EntryGenerator
}

// NewReferenceStore creates a ReferenceStore backed by a single JSON file.
// The engine is only used by AddFromDraft and may be nil for read-only use.
func NewReferenceStore(filePath string, engine EntryGenerator) ReferenceStore {
	return &fileReferenceStore{filePath: filePath, engine: engine}
}

func (s *fileReferenceStore) Load() []models.ReferenceEntry {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil
	}
	var entries []models.ReferenceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt knowledge base degrades to "no knowledge base".
		return nil
	}
	return entries
}

func (s *fileReferenceStore) Save(entries []models.ReferenceEntry) error {
	data, err := formatReferences(entries)
	if err != nil {
		return fmt.Errorf("formatting references: %w", err)
	}
	if err := writeFileAtomic(s.filePath, data); err != nil {
		return fmt.Errorf("writing references: %w", err)
	}
	return nil
}

const entryPrompt = `You are generating a reference response entry for the support knowledge base.

Given this support email exchange, generate the metadata for a new reference entry.

Existing reference IDs (avoid duplicates): %s

The email was in language: %s
Original question summary: %s
Category assigned: %s

Generate:
- id: a kebab-case identifier (unique, descriptive, not in existing IDs)
- category: the category this belongs to (reuse existing: payment, account, technical, pricing, general, feature, incident)
- keywords: array of relevant keywords in all applicable languages
- languages: array of 2-letter language codes this reference covers
- question_summary: a clear 1-line summary of the customer's question`

// entryMetadataSchema is the output schema for the entry-generation call.
var entryMetadataSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":               map[string]any{"type": "string"},
		"category":         map[string]any{"type": "string"},
		"keywords":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"languages":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"question_summary": map[string]any{"type": "string"},
	},
	"required": []string{"id", "category", "keywords", "languages", "question_summary"},
}

type entryMetadata struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	Keywords        []string `json:"keywords"`
	Languages       []string `json:"languages"`
	QuestionSummary string   `json:"question_summary"`
}

func (s *fileReferenceStore) AddFromDraft(ctx context.Context, draft models.Draft) (*models.ReferenceEntry, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("adding reference from draft: no entry generator configured")
	}

	entries := s.Load()
	existingIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		existingIDs = append(existingIDs, entry.ID)
	}
	idsJSON, err := json.Marshal(existingIDs)
	if err != nil {
		return nil, fmt.Errorf("marshaling existing IDs: %w", err)
	}

	lang := draft.Language
	if lang == "" {
		lang = "en"
	}

	prompt := fmt.Sprintf(entryPrompt, idsJSON, lang, draft.Summary, categoryOrUnknown(draft.Category))
	input := map[string]any{
		"original_email": firstNonEmpty(draft.OriginalText, draft.Summary),
		"response":       draft.ReplyBody,
		"subject":        draft.Subject,
		"from":           draft.From,
		"language":       lang,
	}

	raw, err := s.engine.CompleteJSON(ctx, prompt, input, entryMetadataSchema)
	if err != nil {
		return nil, fmt.Errorf("generating reference metadata: %w", err)
	}

	var meta entryMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decoding reference metadata: %w", err)
	}
	if meta.ID == "" {
		return nil, fmt.Errorf("decoding reference metadata: empty id")
	}

	entry := models.ReferenceEntry{
		ID:              uniqueID(meta.ID, existingIDs),
		Category:        meta.Category,
		Keywords:        meta.Keywords,
		Languages:       meta.Languages,
		QuestionSummary: meta.QuestionSummary,
		Responses:       map[string]string{lang: draft.ReplyBody},
	}

	entries = append(entries, entry)
	if err := s.Save(entries); err != nil {
		return nil, fmt.Errorf("saving references: %w", err)
	}
	return &entry, nil
}

// uniqueID guards against the engine ignoring the collision-avoid list: if the
// proposed id already exists, a numeric suffix is appended until it is unique.
func uniqueID(proposed string, existing []string) string {
	taken := make(map[string]bool, len(existing))
	for _, id := range existing {
		taken[id] = true
	}
	if !taken[proposed] {
		return proposed
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", proposed, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// simpleArrayPattern matches an indented JSON array whose every element is a
// string literal.
var (
	simpleArrayPattern = regexp.MustCompile(`\[\n\s+("(?:[^"\\]|\\.)*"(?:,\n\s+"(?:[^"\\]|\\.)*")*)\n\s+\]`)
	arrayItemSplit     = regexp.MustCompile(`,\n\s+`)
)

// formatReferences renders the reference set as two-space-indented JSON with
// a trailing newline, collapsing arrays of plain strings onto a single line
// so keyword and language lists stay readable in diffs.
func formatReferences(entries []models.ReferenceEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.ReferenceEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}

	formatted := simpleArrayPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		inner := simpleArrayPattern.FindStringSubmatch(match)[1]
		items := arrayItemSplit.Split(inner, -1)
		return "[" + strings.Join(items, ", ") + "]"
	})

	return []byte(formatted + "\n"), nil
}

func categoryOrUnknown(category string) string {
	if category == "" {
		return "unknown"
	}
	return category
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

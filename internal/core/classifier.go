package core

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// Classifier turns a batch of raw emails plus the current reference set into
// one draft per email via a single reasoning-engine call. Batching the whole
// fetch cycle into one call amortizes latency and cost.
type Classifier struct {
	engine Engine
	logger *zap.Logger
}

// NewClassifier creates a Classifier backed by the given engine.
func NewClassifier(engine Engine, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{engine: engine, logger: logger}
}

// referenceDigest is the compact per-entry view handed to the engine; the
// full template texts travel separately in the response bank.
type referenceDigest struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	QuestionSummary string   `json:"question_summary"`
	Keywords        []string `json:"keywords"`
	Languages       []string `json:"languages"`
	HasResponses    []string `json:"has_responses"`
}

const classifyInstructions = `You are a support email classifier.

Your job:
1. Classify each email against the reference categories below.
2. Draft a reply in the SAME language as the sender's email.
3. Use the reference responses as templates — adapt them to the specific question but keep the same tone and information.
4. Sign all replies as "The Support Team" (localized if needed).
5. If the email is spam, automated notification, or not a real support request: action = "ignore".

Reference categories:
%s

Reference responses by category and language:
%s

Respond with JSON:
{
  "drafts": [
    {
      "uid": <number>,
      "from": "<sender email>",
      "subject": "<original subject>",
      "category": "<matched category id or 'unknown'>",
      "confidence": <0.0-1.0>,
      "language": "<detected 2-letter language code>",
      "action": "reply" | "ignore",
      "reply_subject": "Re: <original subject>",
      "reply_body": "<drafted reply text>",
      "summary": "<1-line summary of what the email is about>"
    }
  ]
}`

// draftSchema is the output schema for the batch classification call.
var draftSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"drafts": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"uid":           map[string]any{"type": "number"},
					"from":          map[string]any{"type": "string"},
					"subject":       map[string]any{"type": "string"},
					"category":      map[string]any{"type": "string"},
					"confidence":    map[string]any{"type": "number"},
					"language":      map[string]any{"type": "string"},
					"action":        map[string]any{"type": "string"},
					"reply_subject": map[string]any{"type": "string"},
					"reply_body":    map[string]any{"type": "string"},
					"summary":       map[string]any{"type": "string"},
				},
				"required": []string{"uid", "from", "subject", "category", "action", "summary"},
			},
		},
	},
	"required": []string{"drafts"},
}

// requiredDraftKeys must all be present on a returned item; an item missing
// any of them is dropped rather than propagated with fabricated defaults.
var requiredDraftKeys = []string{"uid", "from", "subject", "category", "action", "summary"}

// Classify produces one draft per input email, correlated by UID. The output
// order follows the engine's response, not the input. An empty batch returns
// an empty slice without calling the engine. Any engine failure is fatal to
// the whole batch.
func (c *Classifier) Classify(ctx context.Context, emails []models.Email, references []models.ReferenceEntry) ([]models.Draft, error) {
	if len(emails) == 0 {
		return []models.Draft{}, nil
	}

	digest := make([]referenceDigest, 0, len(references))
	responses := make(map[string]map[string]string, len(references))
	for _, ref := range references {
		keywords := ref.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		languages := ref.Languages
		if languages == nil {
			languages = []string{}
		}
		digest = append(digest, referenceDigest{
			ID:              ref.ID,
			Category:        ref.Category,
			QuestionSummary: ref.QuestionSummary,
			Keywords:        keywords,
			Languages:       languages,
			HasResponses:    ref.ResponseLanguages(),
		})
		bank := make(map[string]string, len(ref.Responses))
		for lang, text := range ref.Responses {
			bank[lang] = text
		}
		responses[ref.ID] = bank
	}

	digestJSON, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling reference digest: %w", err)
	}
	responsesJSON, err := json.MarshalIndent(responses, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling response bank: %w", err)
	}

	prompt := fmt.Sprintf(classifyInstructions, digestJSON, responsesJSON)
	input := map[string]any{"emails": emails}

	raw, err := c.engine.CompleteJSON(ctx, prompt, input, draftSchema)
	if err != nil {
		return nil, fmt.Errorf("classifying batch: %w", err)
	}

	var result struct {
		Drafts []json.RawMessage `json:"drafts"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding classification result: %w", err)
	}

	byUID := make(map[uint32]models.Email, len(emails))
	for _, email := range emails {
		byUID[email.UID] = email
	}

	drafts := make([]models.Draft, 0, len(result.Drafts))
	for _, item := range result.Drafts {
		draft, err := decodeDraft(item)
		if err != nil {
			// Drop the malformed item; the rest of the batch proceeds.
			c.logger.Warn("dropping malformed draft from engine response",
				zap.Error(err),
				zap.ByteString("item", item),
			)
			continue
		}

		if orig, ok := byUID[draft.UID]; ok {
			draft.OriginalText = orig.Text
			draft.OriginalFrom = orig.From
			draft.OriginalReplyTo = orig.ReplyTo
			draft.OriginalDate = orig.Date
			draft.OriginalMessageID = orig.MessageID
			if draft.From == "" {
				draft.From = orig.From
			}
		}
		drafts = append(drafts, draft)
	}

	return drafts, nil
}

// decodeDraft validates that every required key is present before decoding,
// so a missing category or action is rejected instead of defaulting.
func decodeDraft(item json.RawMessage) (models.Draft, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(item, &keys); err != nil {
		return models.Draft{}, fmt.Errorf("item is not an object: %w", err)
	}
	for _, key := range requiredDraftKeys {
		if _, ok := keys[key]; !ok {
			return models.Draft{}, fmt.Errorf("missing required field %q", key)
		}
	}

	var draft models.Draft
	if err := json.Unmarshal(item, &draft); err != nil {
		return models.Draft{}, fmt.Errorf("decoding item: %w", err)
	}
	return draft, nil
}

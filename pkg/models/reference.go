package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// ResponseKeyPrefix prefixes the per-language template response keys in the
// serialized form of a ReferenceEntry (e.g. "reference_response_en").
const ResponseKeyPrefix = "reference_response_"

// ReferenceEntry is a reusable category/template pair in the support knowledge
// base. The set of template responses is open-ended, keyed by 2-letter
// language code; on the wire each response appears as its own
// reference_response_<lang> key rather than a nested object.
type ReferenceEntry struct {
	ID              string
	Category        string
	Keywords        []string
	Languages       []string
	QuestionSummary string
	Responses       map[string]string
}

// ResponseLanguages returns the language codes for which a template response
// exists, sorted for deterministic output.
func (e ReferenceEntry) ResponseLanguages() []string {
	langs := make([]string, 0, len(e.Responses))
	for lang := range e.Responses {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// MarshalJSON serializes the entry with a fixed key order (id, category,
// keywords, languages, question_summary, then the response keys sorted by
// language) so that repeated saves of unchanged data are byte-identical.
func (e ReferenceEntry) MarshalJSON() ([]byte, error) {
	type field struct {
		key string
		val any
	}

	keywords := e.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	languages := e.Languages
	if languages == nil {
		languages = []string{}
	}

	fields := []field{
		{"id", e.ID},
		{"category", e.Category},
		{"keywords", keywords},
		{"languages", languages},
		{"question_summary", e.QuestionSummary},
	}
	for _, lang := range e.ResponseLanguages() {
		fields = append(fields, field{ResponseKeyPrefix + lang, e.Responses[lang]})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.val)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the fixed fields and collects every
// reference_response_<lang> key into the Responses map.
func (e *ReferenceEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	stringField := func(key string, dst *string) error {
		if v, ok := raw[key]; ok {
			return json.Unmarshal(v, dst)
		}
		return nil
	}
	if err := stringField("id", &e.ID); err != nil {
		return err
	}
	if err := stringField("category", &e.Category); err != nil {
		return err
	}
	if err := stringField("question_summary", &e.QuestionSummary); err != nil {
		return err
	}
	if v, ok := raw["keywords"]; ok {
		if err := json.Unmarshal(v, &e.Keywords); err != nil {
			return err
		}
	}
	if v, ok := raw["languages"]; ok {
		if err := json.Unmarshal(v, &e.Languages); err != nil {
			return err
		}
	}

	e.Responses = nil
	for key, v := range raw {
		if !strings.HasPrefix(key, ResponseKeyPrefix) {
			continue
		}
		var text string
		if err := json.Unmarshal(v, &text); err != nil {
			return err
		}
		if e.Responses == nil {
			e.Responses = make(map[string]string)
		}
		e.Responses[strings.TrimPrefix(key, ResponseKeyPrefix)] = text
	}
	return nil
}

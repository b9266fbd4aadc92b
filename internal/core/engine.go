package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// ErrNoToken is returned when the gateway bearer credential is absent. It is
// raised at construction time, before any call is attempted.
var ErrNoToken = errors.New("gateway token not configured")

// Engine is the external reasoning engine, treated as a black box: a prompt,
// structured input, and an output schema go in; structured JSON conforming to
// the schema comes out. The pipeline's ordering and enrichment logic is
// testable against a stub implementation.
type Engine interface {
	CompleteJSON(ctx context.Context, prompt string, input any, schema map[string]any) (json.RawMessage, error)
}

// gatewayEngine calls the llm-task tool exposed by the local gateway over
// HTTP with bearer authentication.
type gatewayEngine struct {
	url    string
	token  string
	client *http.Client
}

// NewGatewayEngine creates an Engine backed by the local gateway. It fails
// with ErrNoToken if the bearer credential is missing.
func NewGatewayEngine(cfg models.GatewayConfig) (Engine, error) {
	if cfg.Token == "" {
		return nil, ErrNoToken
	}
	url := cfg.URL
	if url == "" {
		port := cfg.Port
		if port == "" {
			port = "18789"
		}
		url = fmt.Sprintf("http://127.0.0.1:%s/tools/invoke", port)
	}
	return &gatewayEngine{
		url:   url,
		token: cfg.Token,
		client: &http.Client{
			// Reasoning calls over a whole batch can be slow; there is no
			// cancellation beyond this transport timeout.
			Timeout: 5 * time.Minute,
		},
	}, nil
}

type invokeRequest struct {
	Tool   string     `json:"tool"`
	Action string     `json:"action"`
	Args   invokeArgs `json:"args"`
}

type invokeArgs struct {
	Prompt string         `json:"prompt"`
	Input  any            `json:"input"`
	Schema map[string]any `json:"schema"`
}

// invokeResponse covers the result shapes the gateway is known to return:
// result.json, a top-level json field, or result.content[0].text holding a
// JSON document.
type invokeResponse struct {
	JSON   json.RawMessage `json:"json"`
	Result *struct {
		JSON    json.RawMessage `json:"json"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
}

func (e *gatewayEngine) CompleteJSON(ctx context.Context, prompt string, input any, schema map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(invokeRequest{
		Tool:   "llm-task",
		Action: "json",
		Args:   invokeArgs{Prompt: prompt, Input: input, Schema: schema},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling llm-task request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building llm-task request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling llm-task: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("llm-task API error %d: %s", resp.StatusCode, errBody)
	}

	var decoded invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding llm-task response: %w", err)
	}

	switch {
	case decoded.Result != nil && len(decoded.Result.JSON) > 0:
		return decoded.Result.JSON, nil
	case len(decoded.JSON) > 0:
		return decoded.JSON, nil
	case decoded.Result != nil && len(decoded.Result.Content) > 0:
		text := decoded.Result.Content[0].Text
		if json.Valid([]byte(text)) {
			return json.RawMessage(text), nil
		}
	}
	return nil, fmt.Errorf("unexpected llm-task response format")
}

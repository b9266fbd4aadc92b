package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

func newTestEngine(t *testing.T, handler http.HandlerFunc) Engine {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	engine, err := NewGatewayEngine(models.GatewayConfig{URL: server.URL, Token: "test-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return engine
}

func TestGatewayEngine_RequiresToken(t *testing.T) {
	_, err := NewGatewayEngine(models.GatewayConfig{})
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestGatewayEngine_SendsInvokeRequest(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]any

	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"result": {"json": {"ok": true}}}`))
	})

	raw, err := engine.CompleteJSON(context.Background(), "classify this", map[string]any{"emails": []int{1}}, map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"ok": true}` {
		t.Errorf("unexpected payload: %s", raw)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("unexpected content type: %q", gotContentType)
	}
	if gotBody["tool"] != "llm-task" || gotBody["action"] != "json" {
		t.Errorf("unexpected invoke envelope: %v", gotBody)
	}
	args, ok := gotBody["args"].(map[string]any)
	if !ok || args["prompt"] != "classify this" {
		t.Errorf("unexpected args: %v", gotBody["args"])
	}
}

func TestGatewayEngine_ResponseVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"result_json", `{"result": {"json": {"a": 1}}}`, `{"a": 1}`},
		{"top_level_json", `{"json": {"b": 2}}`, `{"b": 2}`},
		{"content_text", `{"result": {"content": [{"text": "{\"c\": 3}"}]}}`, `{"c": 3}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})
			raw, err := engine.CompleteJSON(context.Background(), "p", nil, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(raw) != tc.want {
				t.Errorf("got %s, want %s", raw, tc.want)
			}
		})
	}
}

func TestGatewayEngine_UnrecognizedResponse(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {"content": [{"text": "not json"}]}}`))
	})
	if _, err := engine.CompleteJSON(context.Background(), "p", nil, nil); err == nil {
		t.Fatal("expected error for non-JSON content text")
	}
}

func TestGatewayEngine_HTTPError(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	_, err := engine.CompleteJSON(context.Background(), "p", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "llm-task API error 401") {
		t.Errorf("error missing status code: %v", err)
	}
}

func TestGatewayEngine_ContextCancellation(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.CompleteJSON(ctx, "p", nil, nil); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

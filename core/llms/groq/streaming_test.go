package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/koscakluka/ema-voice/core/llms"
)

func TestStreamYieldsContentAndUsage(t *testing.T) {
	var received requestBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Namaste\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\", visitor.\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}],\"x_groq\":{\"usage\":{\"prompt_tokens\":12,\"completion_tokens\":4,\"total_tokens\":16}}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewClient("test-key", WithURL(server.URL), WithHTTPClient(server.Client()))
	prompt := "hello"
	stream := client.PromptWithStream(context.Background(), &prompt,
		llms.WithSystemPrompt("be brief"),
		llms.WithHistory(
			llms.Message{Role: llms.RoleUser, Content: "earlier"},
			llms.Message{Role: llms.RoleAssistant, Content: "reply"},
		),
	)

	var content strings.Builder
	var usage *llms.Usage
	for chunk, err := range stream.Chunks(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		switch typed := chunk.(type) {
		case llms.StreamContentChunk:
			content.WriteString(typed.Content())
		case llms.StreamUsageChunk:
			u := typed.Usage()
			usage = &u
		}
	}

	if got := content.String(); got != "Namaste, visitor." {
		t.Fatalf("expected streamed content, got %q", got)
	}
	if usage == nil || usage.TotalTokens != 16 {
		t.Fatalf("expected usage with 16 total tokens, got %+v", usage)
	}

	if len(received.Messages) != 4 {
		t.Fatalf("expected system, two history and prompt messages, got %+v", received.Messages)
	}
	if received.Messages[0].Role != messageRoleSystem || received.Messages[2].Role != messageRoleAssistant || received.Messages[3].Content != "hello" {
		t.Fatalf("unexpected request messages: %+v", received.Messages)
	}
	if !received.Stream {
		t.Fatalf("expected streaming request")
	}
}

func TestStreamReportsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", WithURL(server.URL), WithHTTPClient(server.Client()))
	stream := client.PromptWithStream(context.Background(), nil)

	var streamErr error
	for _, err := range stream.Chunks(context.Background()) {
		if err != nil {
			streamErr = err
		}
	}
	if streamErr == nil || !strings.Contains(streamErr.Error(), "429") {
		t.Fatalf("expected non-OK status error, got %v", streamErr)
	}
}

func TestToMessagesSkipsEmptyHistory(t *testing.T) {
	messages := toMessages("", []llms.Message{
		{Role: llms.RoleUser, Content: "question"},
		{Role: llms.RoleAssistant, Content: ""},
	})

	if len(messages) != 1 || messages[0].Role != messageRoleUser {
		t.Fatalf("expected only non-empty user message, got %+v", messages)
	}
}

package delegation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/medidesk/internal/logging"
)

// anthropicStub serves /v1/messages with a canned body and records the request.
func anthropicStub(t *testing.T, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func anthropicClient(srv *httptest.Server) *Client {
	return NewClient(Options{
		Model:   DefaultAnthropicModel,
		Connect: AnthropicConnector(option.WithBaseURL(srv.URL), option.WithMaxRetries(0)),
	})
}

func TestAnthropic_ToolUseBecomesDelegation(t *testing.T) {
	srv, captured := anthropicStub(t, http.StatusOK, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude",
		"content": [{"type": "tool_use", "id": "toolu_1", "name": "call-billing",
			"input": {"permintaan_pengguna": "Berapa tagihan terakhir saya?"}}],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)

	got := anthropicClient(srv).Classify(context.Background(), "test-key", "Berapa tagihan terakhir saya?")
	assert.Equal(t, Delegated(FnBilling, map[string]any{ParamUserRequest: "Berapa tagihan terakhir saya?"}), got)

	req := *captured
	assert.Equal(t, DefaultAnthropicModel, req["model"])
	assert.Equal(t, map[string]any{"type": "any", "disable_parallel_tool_use": true}, req["tool_choice"])

	tools, ok := req["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 4)
	first := tools[0].(map[string]any)
	assert.Equal(t, FnMedicalRecords, first["name"])
	schema := first["input_schema"].(map[string]any)
	assert.Equal(t, []any{ParamUserRequest}, schema["required"])

	system := req["system"].([]any)
	require.Len(t, system, 1)
	assert.Contains(t, system[0].(map[string]any)["text"], "KOORDINATOR PUSAT")

	messages := req["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestAnthropic_TextReplyIsNotADelegation(t *testing.T) {
	srv, _ := anthropicStub(t, http.StatusOK, `{
		"id": "msg_2", "type": "message", "role": "assistant", "model": "claude",
		"content": [{"type": "text", "text": "Saya tidak bisa membantu."}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)

	got := anthropicClient(srv).Classify(context.Background(), "test-key", "halo")
	assert.Equal(t, Failed(MsgNoFunctionCall), got)
}

func TestAnthropic_EmptyContentMeansNoCandidates(t *testing.T) {
	srv, _ := anthropicStub(t, http.StatusOK, `{
		"id": "msg_3", "type": "message", "role": "assistant", "model": "claude",
		"content": [], "stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 0}
	}`)

	got := anthropicClient(srv).Classify(context.Background(), "test-key", "halo")
	assert.Equal(t, Failed(MsgNoCandidates), got)
}

func TestAnthropic_APIErrorBecomesErrorResult(t *testing.T) {
	srv, _ := anthropicStub(t, http.StatusUnauthorized, `{
		"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}
	}`)

	got := anthropicClient(srv).Classify(context.Background(), "test-key", "halo")
	assert.Equal(t, KindError, got.Kind)
	assert.Contains(t, got.Message, "anthropic API call failed")
}

func TestAnthropic_MalformedToolInputIsLogged(t *testing.T) {
	var out bytes.Buffer
	t.Cleanup(logging.SetOutput(&out, &out))
	require.NoError(t, logging.Initialize("debug"))
	t.Cleanup(func() { _ = logging.Initialize("info") })

	srv, _ := anthropicStub(t, http.StatusOK, `{
		"id": "msg_4", "type": "message", "role": "assistant", "model": "claude",
		"content": [{"type": "tool_use", "id": "toolu_2", "name": "call-billing", "input": "not-an-object"}],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)

	got := anthropicClient(srv).Classify(context.Background(), "test-key", "Berapa tagihan terakhir saya?")
	assert.Equal(t, KindDelegation, got.Kind)
	assert.Equal(t, FnBilling, got.FunctionName)
	assert.Empty(t, got.Args)
	assert.Contains(t, out.String(), "Ignoring malformed tool_use input")
	assert.Contains(t, out.String(), "tool=call-billing")
}

package aiopenai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/realtor/pkg/ai/llm"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const toolCallCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "logprobs": null,
    "message": {
      "role": "assistant",
      "content": null,
      "refusal": null,
      "tool_calls": [{
        "id": "call_abc",
        "type": "function",
        "function": {"name": "property_details", "arguments": "{\"address\":\"1 Main St\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 50, "completion_tokens": 10, "total_tokens": 60}
}`

func newTestProvider(t *testing.T, body string, captured *[]byte) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*captured = b
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return NewOpenAIProvider("test-key",
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
}

func TestChat_ToolCallResponse(t *testing.T) {
	var req []byte
	p := newTestProvider(t, toolCallCompletion, &req)

	tool := llm.NewFunctionTool("property_details", "details", map[string]any{
		"type":       "object",
		"properties": map[string]any{"address": map[string]any{"type": "string"}},
	})

	resp, err := p.Chat(context.Background(),
		[]llm.Message{llm.NewSystemMessage("You are Rick."), llm.NewUserMessage("price?")},
		llm.WithTools([]llm.Tool{tool}),
		llm.WithToolChoice("none"),
		llm.WithTemperature(0),
	)
	require.NoError(t, err)

	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "call_abc", resp.Message.ToolCalls[0].ID)
	assert.Equal(t, "property_details", resp.Message.ToolCalls[0].Function.Name)
	assert.Equal(t, 60, resp.Usage.TotalTokens)

	sent := gjson.ParseBytes(req)
	assert.Equal(t, DefaultModel, sent.Get("model").String())
	assert.Equal(t, "none", sent.Get("tool_choice").String())
	assert.True(t, sent.Get("temperature").Exists())
	assert.Equal(t, 0.0, sent.Get("temperature").Float())
	assert.Equal(t, "system", sent.Get("messages.0.role").String())
	assert.Equal(t, "property_details", sent.Get("tools.0.function.name").String())
}

func TestChat_NoToolsOmitsToolChoice(t *testing.T) {
	var req []byte
	body := `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o-mini",
	  "choices":[{"index":0,"finish_reason":"stop","logprobs":null,
	  "message":{"role":"assistant","content":"Hello!","refusal":null}}],
	  "usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`
	p := newTestProvider(t, body, &req)

	resp, err := p.Chat(context.Background(), []llm.Message{llm.NewUserMessage("hi")},
		llm.WithModel("gpt-4o-mini"), llm.WithToolChoice("auto"))
	require.NoError(t, err)

	assert.Equal(t, "Hello!", resp.Message.Content)
	assert.Equal(t, llm.RoleAssistant, resp.Message.Role)

	sent := gjson.ParseBytes(req)
	assert.Equal(t, "gpt-4o-mini", sent.Get("model").String())
	assert.False(t, sent.Get("tool_choice").Exists())
	assert.False(t, sent.Get("temperature").Exists())
}

func TestConvertToOpenAIMessage_ToolRoundTrip(t *testing.T) {
	assistant := llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID: "c1", Type: "function",
			Function: llm.FunctionCall{Name: "google_places", Arguments: `{"query":"schools"}`},
		}},
	}
	m, err := convertToOpenAIMessage(assistant)
	require.NoError(t, err)
	require.NotNil(t, m.OfAssistant)
	assert.Len(t, m.OfAssistant.ToolCalls, 1)

	m, err = convertToOpenAIMessage(llm.NewToolMessage("c1", "[]"))
	require.NoError(t, err)
	require.NotNil(t, m.OfTool)
	assert.Equal(t, "c1", m.OfTool.ToolCallID)

	_, err = convertToOpenAIMessage(llm.Message{Role: "function"})
	assert.Error(t, err)
}

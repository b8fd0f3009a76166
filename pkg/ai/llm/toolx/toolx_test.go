package toolx

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/realtor/pkg/ai/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addressArgs struct {
	Address string `json:"address"`
}

func echoTool() Toolx {
	return NewFuncTool("echo", "echo the address", StringParams("address", "street address"),
		func(_ context.Context, a addressArgs) (any, error) {
			return map[string]string{"address": a.Address}, nil
		})
}

func failingTool() Toolx {
	return NewFuncTool("broken", "always fails", StringParams("address", "street address"),
		func(context.Context, addressArgs) (any, error) {
			return nil, errors.New("upstream down")
		})
}

func call(name, args string) llm.ToolCall {
	return llm.ToolCall{ID: "call_1", Type: "function", Function: llm.FunctionCall{Name: name, Arguments: args}}
}

func TestToolxClient_Call(t *testing.T) {
	client := FromToolx(echoTool(), failingTool())

	tests := []struct {
		name string
		tc   llm.ToolCall
		want string
	}{
		{"json result", call("echo", `{"address":"1 Main St"}`), `{"address":"1 Main St"}`},
		{"unknown tool", call("nope", `{}`), UnknownToolMessage},
		{"tool error", call("broken", `{"address":"x"}`), ToolErrorPrefix + "upstream down"},
		{"bad arguments", call("echo", `{"address":`), ToolErrorPrefix + "invalid arguments for echo: unexpected end of JSON input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := client.Call(context.Background(), tt.tc)
			assert.Equal(t, llm.RoleTool, msg.Role)
			assert.Equal(t, "call_1", msg.ToolCallID)
			assert.Equal(t, tt.want, msg.Content)
		})
	}
}

func TestToolxClient_GetToolsSorted(t *testing.T) {
	client := FromToolx(echoTool(), failingTool())
	require.Equal(t, 2, client.Len())

	tools := client.GetTools()
	require.Len(t, tools, 2)
	assert.Equal(t, "broken", tools[0].Function.Name)
	assert.Equal(t, "echo", tools[1].Function.Name)
	assert.Equal(t, "function", tools[1].Type)
}

type stringer struct{}

func (stringer) String() string { return "stringer" }

func TestFormat(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{[]byte("raw"), "raw"},
		{42, "42"},
		{1.5, "1.5"},
		{true, "true"},
		{stringer{}, "stringer"},
		{[]int{1, 2}, "[1,2]"},
	}
	for _, tt := range tests {
		got, err := Format(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

// Package toolx holds the tools an agent may call and turns their results
// into tool messages.
package toolx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/Abraxas-365/realtor/pkg/ai/llm"
	"github.com/Abraxas-365/realtor/pkg/logx"
)

// Toolx is a tool the model can call with JSON arguments
type Toolx interface {
	Call(ctx context.Context, inputs string) (any, error)
	GetTool() llm.Tool
	Name() string
}

// Messages sent back to the model when a call cannot produce a result
const (
	UnknownToolMessage = "This tool does not exist"
	ToolErrorPrefix    = "Error calling tool: "
)

// ToolxClient dispatches tool calls by name
type ToolxClient struct {
	tools map[string]Toolx
}

func FromToolx(tools ...Toolx) *ToolxClient {
	toolMap := make(map[string]Toolx, len(tools))
	for _, tool := range tools {
		toolMap[tool.Name()] = tool
	}
	return &ToolxClient{tools: toolMap}
}

// Len is the number of registered tools
func (t *ToolxClient) Len() int {
	return len(t.tools)
}

// GetTools returns the tool definitions sorted by name
func (t *ToolxClient) GetTools() []llm.Tool {
	names := make([]string, 0, len(t.tools))
	for name := range t.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]llm.Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, t.tools[name].GetTool())
	}
	return tools
}

// Call runs the requested tool. Unknown tools and tool failures are
// reported to the model as the tool message content, never as an error.
func (t *ToolxClient) Call(ctx context.Context, tc llm.ToolCall) llm.Message {
	tool, ok := t.tools[tc.Function.Name]
	if !ok {
		logx.WithField("tool", tc.Function.Name).Warn("model requested unknown tool")
		return llm.NewToolMessage(tc.ID, UnknownToolMessage)
	}

	result, err := tool.Call(ctx, tc.Function.Arguments)
	if err != nil {
		logx.WithFields(logx.Fields{
			"tool":  tc.Function.Name,
			"error": err.Error(),
		}).Warn("tool call failed")
		return llm.NewToolMessage(tc.ID, ToolErrorPrefix+err.Error())
	}

	content, err := Format(result)
	if err != nil {
		return llm.NewToolMessage(tc.ID, "Error converting result to string: "+err.Error())
	}
	return llm.NewToolMessage(tc.ID, content)
}

// Format renders a tool result as message content
func Format(result any) (string, error) {
	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.RawMessage:
		return string(v), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		b, err := json.Marshal(result)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

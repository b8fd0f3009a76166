package toolx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Abraxas-365/realtor/pkg/ai/llm"
)

// FuncTool adapts a typed function to Toolx. Arguments are decoded into A.
type FuncTool[A any] struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args A) (any, error)
}

// NewFuncTool builds a tool from a JSON schema and a handler
func NewFuncTool[A any](name, description string, parameters map[string]any, fn func(ctx context.Context, args A) (any, error)) *FuncTool[A] {
	return &FuncTool[A]{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

func (f *FuncTool[A]) Name() string { return f.name }

func (f *FuncTool[A]) GetTool() llm.Tool {
	return llm.NewFunctionTool(f.name, f.description, f.parameters)
}

func (f *FuncTool[A]) Call(ctx context.Context, inputs string) (any, error) {
	var args A
	if inputs != "" {
		if err := json.Unmarshal([]byte(inputs), &args); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", f.name, err)
		}
	}
	return f.fn(ctx, args)
}

// StringParams is the JSON schema for a tool taking one required string
func StringParams(name, description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			name: map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{name},
	}
}

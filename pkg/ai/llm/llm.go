package llm

import (
	"context"
)

// LLM is a chat completion backend
type LLM interface {
	// Chat generates the next assistant message for the conversation
	Chat(ctx context.Context, messages []Message, opts ...Option) (Response, error)
}

// Response contains the model's message and token usage
type Response struct {
	Message Message
	Usage   Usage
}

// Client wraps an LLM with default options applied to every call
type Client struct {
	llm      LLM
	defaults []Option
}

// NewClient creates a new LLM client
func NewClient(llm LLM, defaults ...Option) *Client {
	return &Client{llm: llm, defaults: defaults}
}

// Chat sends messages with the client defaults followed by opts
func (c *Client) Chat(ctx context.Context, messages []Message, opts ...Option) (Response, error) {
	all := make([]Option, 0, len(c.defaults)+len(opts))
	all = append(all, c.defaults...)
	all = append(all, opts...)
	return c.llm.Chat(ctx, messages, all...)
}

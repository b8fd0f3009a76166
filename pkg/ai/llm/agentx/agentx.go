// Package agentx runs a tool-calling conversation against an LLM on top of a
// session's conversation memory.
package agentx

import (
	"context"
	"net/http"

	"github.com/Abraxas-365/realtor/pkg/ai/llm"
	"github.com/Abraxas-365/realtor/pkg/ai/llm/memoryx"
	"github.com/Abraxas-365/realtor/pkg/ai/llm/toolx"
	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/logx"
)

var ErrRegistry = errx.NewRegistry("LLM")

var (
	CodeChatFailed    = ErrRegistry.Register("CHAT_FAILED", errx.TypeExternal, http.StatusBadGateway, "Language model request failed")
	CodeMaxIterations = ErrRegistry.Register("MAX_ITERATIONS", errx.TypeInternal, http.StatusInternalServerError, "Agent exceeded its iteration limit")
	CodeMemoryFailed  = ErrRegistry.Register("MEMORY_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Conversation memory unavailable")
)

// Step types
const (
	StepInitial       = "initial"
	StepToolExecution = "tool_execution"
	StepResponse      = "response"
)

// Agent calls the model, executes requested tools and feeds their results
// back until the model answers in plain text.
type Agent struct {
	client             *llm.Client
	tools              *toolx.ToolxClient
	options            []llm.Option
	maxAutoIterations  int // tool rounds with "auto" tool choice before forcing "none"
	maxTotalIterations int // hard limit on tool rounds
}

// AgentOption configures an Agent
type AgentOption func(*Agent)

// WithOptions adds LLM options to every call the agent makes
func WithOptions(options ...llm.Option) AgentOption {
	return func(a *Agent) {
		a.options = append(a.options, options...)
	}
}

func WithTools(tools *toolx.ToolxClient) AgentOption {
	return func(a *Agent) {
		a.tools = tools
	}
}

// WithMaxAutoIterations sets how many tool rounds may run before the model
// is told to answer
func WithMaxAutoIterations(max int) AgentOption {
	return func(a *Agent) {
		if max > 0 {
			a.maxAutoIterations = max
		}
	}
}

func WithMaxTotalIterations(max int) AgentOption {
	return func(a *Agent) {
		if max > 0 {
			a.maxTotalIterations = max
		}
	}
}

// New creates a new agent
func New(client *llm.Client, opts ...AgentOption) *Agent {
	agent := &Agent{
		client:             client,
		maxAutoIterations:  5,
		maxTotalIterations: 10,
	}

	for _, opt := range opts {
		opt(agent)
	}

	if agent.maxTotalIterations <= agent.maxAutoIterations {
		agent.maxTotalIterations = agent.maxAutoIterations + 1
	}

	return agent
}

// Run answers input given the system prompt and the history held in memory.
// On success the exchange (input, answer) is recorded in memory.
func (a *Agent) Run(ctx context.Context, system string, memory memoryx.Memory, input string) (*AgentEvaluation, error) {
	history, err := memory.Messages()
	if err != nil {
		return nil, ErrRegistry.New(CodeMemoryFailed).WithCause(err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	if system != "" {
		messages = append(messages, llm.NewSystemMessage(system))
	}
	messages = append(messages, history...)
	messages = append(messages, llm.NewUserMessage(input))

	eval := &AgentEvaluation{UserInput: input}

	response, err := a.client.Chat(ctx, messages, a.chatOptions(-1)...)
	if err != nil {
		return nil, ErrRegistry.New(CodeChatFailed).WithCause(err)
	}
	eval.addStep(AgentStep{
		StepType:      StepInitial,
		OutputMessage: response.Message,
		TokenUsage:    response.Usage,
	})

	for iteration := 0; a.wantsTools(response.Message); iteration++ {
		if iteration >= a.maxTotalIterations {
			return nil, ErrRegistry.New(CodeMaxIterations).WithDetail("iterations", iteration)
		}

		messages = append(messages, response.Message)

		toolStep := AgentStep{StepType: StepToolExecution, ToolCalls: response.Message.ToolCalls}
		for _, tc := range response.Message.ToolCalls {
			reply := a.tools.Call(ctx, tc)
			toolStep.ToolResponses = append(toolStep.ToolResponses, reply)
			messages = append(messages, reply)
		}
		eval.addStep(toolStep)

		response, err = a.client.Chat(ctx, messages, a.chatOptions(iteration)...)
		if err != nil {
			return nil, ErrRegistry.New(CodeChatFailed).WithCause(err)
		}
		eval.addStep(AgentStep{
			StepType:      StepResponse,
			OutputMessage: response.Message,
			TokenUsage:    response.Usage,
		})
	}

	eval.FinalResponse = response.Message.Content

	if err := memory.AddExchange(input, eval.FinalResponse); err != nil {
		return nil, ErrRegistry.New(CodeMemoryFailed).WithCause(err)
	}

	logx.WithFields(logx.Fields{
		"steps":  len(eval.Steps),
		"tokens": eval.Usage.TotalTokens,
	}).Debug("agent run finished")

	return eval, nil
}

func (a *Agent) wantsTools(m llm.Message) bool {
	return len(m.ToolCalls) > 0 && a.tools != nil
}

// chatOptions returns the options for the call following tool round
// iteration; -1 is the first call.
func (a *Agent) chatOptions(iteration int) []llm.Option {
	options := append([]llm.Option(nil), a.options...)
	if a.tools == nil || a.tools.Len() == 0 {
		return options
	}

	options = append(options, llm.WithTools(a.tools.GetTools()))
	if iteration+1 < a.maxAutoIterations {
		options = append(options, llm.WithToolChoice("auto"))
	} else {
		options = append(options, llm.WithToolChoice("none"))
	}
	return options
}

// AgentEvaluation is the answer and every step taken to reach it
type AgentEvaluation struct {
	UserInput     string      `json:"user_input"`
	Steps         []AgentStep `json:"steps"`
	FinalResponse string      `json:"final_response"`
	Usage         llm.Usage   `json:"usage"`
}

func (e *AgentEvaluation) addStep(s AgentStep) {
	e.Steps = append(e.Steps, s)
	e.Usage = e.Usage.Add(s.TokenUsage)
}

// ToolOutputs returns every tool call made during the run paired with its reply
func (e *AgentEvaluation) ToolOutputs() []ToolOutput {
	var out []ToolOutput
	for _, s := range e.Steps {
		if s.StepType != StepToolExecution {
			continue
		}
		for i, tc := range s.ToolCalls {
			if i >= len(s.ToolResponses) {
				break
			}
			out = append(out, ToolOutput{Call: tc, Reply: s.ToolResponses[i].Content})
		}
	}
	return out
}

type AgentStep struct {
	StepType      string         `json:"step_type"`
	OutputMessage llm.Message    `json:"output_message"`
	ToolCalls     []llm.ToolCall `json:"tool_calls,omitempty"`
	ToolResponses []llm.Message  `json:"tool_responses,omitempty"`
	TokenUsage    llm.Usage      `json:"token_usage"`
}

// ToolOutput is one tool call and the content returned to the model
type ToolOutput struct {
	Call  llm.ToolCall
	Reply string
}

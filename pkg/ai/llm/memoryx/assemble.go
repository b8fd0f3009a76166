package memoryx

import "github.com/Abraxas-365/realtor/pkg/ai/llm"

// Assemble orders the retained exchanges for a model call: each pair as a
// user then an assistant message, oldest first, with input as the last user
// message.
func Assemble(pairs []Pair, input string) []llm.Message {
	msgs := make([]llm.Message, 0, len(pairs)*2+1)
	for _, p := range pairs {
		msgs = append(msgs, llm.NewUserMessage(p.User), llm.NewAssistantMessage(p.Agent))
	}
	return append(msgs, llm.NewUserMessage(input))
}

// AssembleWithSystem is Assemble preceded by a system message
func AssembleWithSystem(system string, pairs []Pair, input string) []llm.Message {
	msgs := make([]llm.Message, 0, len(pairs)*2+2)
	msgs = append(msgs, llm.NewSystemMessage(system))
	return append(msgs, Assemble(pairs, input)...)
}

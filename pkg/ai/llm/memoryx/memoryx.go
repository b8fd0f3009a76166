// Package memoryx keeps the bounded conversation memory for a lead session:
// it parses the transcript the CRM re-sends on every message, retains the
// most recent exchanges, and holds the retained turns under a character
// budget by evicting the oldest user/agent pair first.
package memoryx

import (
	"net/http"
	"unicode/utf8"

	"github.com/Abraxas-365/realtor/pkg/ai/llm"
	"github.com/Abraxas-365/realtor/pkg/errx"
)

// Memory is the conversation memory an agent reads its history from
type Memory interface {
	// Messages returns the retained turns as chat messages, oldest first
	Messages() ([]llm.Message, error)

	// AddExchange records one user message and the agent's reply to it
	AddExchange(user, agent string) error

	// Clear drops every retained turn
	Clear() error
}

const (
	// DefaultMaxLength is the character budget for a session log
	DefaultMaxLength = 16_000

	// DefaultRecentPairs is how many of the newest transcript exchanges are kept per request
	DefaultRecentPairs = 2
)

// Role is the speaker of a turn
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one message attributed to the user or the agent. Immutable.
type Turn struct {
	role Role
	text string
	size int
}

func NewTurn(role Role, text string) Turn {
	return Turn{role: role, text: text, size: utf8.RuneCountInString(text)}
}

func (t Turn) Role() Role   { return t.role }
func (t Turn) Text() string { return t.text }

// Size is the character length of the text
func (t Turn) Size() int { return t.size }

// Message converts the turn to a chat message
func (t Turn) Message() llm.Message {
	if t.role == RoleAgent {
		return llm.NewAssistantMessage(t.text)
	}
	return llm.NewUserMessage(t.text)
}

// Pair is a user message and the agent reply to it
type Pair struct {
	User  string `json:"user"`
	Agent string `json:"agent"`
}

// Labels are the literal speaker markers used in a transcript
type Labels struct {
	User  string
	Agent string
}

// DefaultLabels match the CRM conversation export ("You: ... AI: ...")
var DefaultLabels = Labels{User: "You:", Agent: "AI:"}

var ErrRegistry = errx.NewRegistry("MEMORY")

var (
	CodeEmptySessionKey = ErrRegistry.Register("EMPTY_SESSION_KEY", errx.TypeValidation, http.StatusBadRequest, "A session key is required")
	CodeStoreFailed     = ErrRegistry.Register("STORE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Conversation store unavailable")
)

func ErrEmptySessionKey() *errx.Error {
	return ErrRegistry.New(CodeEmptySessionKey)
}

func ErrStoreFailed(err error) *errx.Error {
	return ErrRegistry.New(CodeStoreFailed).WithCause(err)
}

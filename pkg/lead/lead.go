package lead

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/realtor/pkg/ai/llm/memoryx"
	"github.com/Abraxas-365/realtor/pkg/errx"
)

// ============================================================================
// Errors
// ============================================================================

var ErrRegistry = errx.NewRegistry("LEAD")

var (
	CodeMissingSessionKey = ErrRegistry.Register("MISSING_SESSION_KEY", errx.TypeValidation, http.StatusBadRequest, "contact_id, email or phone is required")
	CodeMissingMessage    = ErrRegistry.Register("MISSING_MESSAGE", errx.TypeValidation, http.StatusBadRequest, "customData.message is required")
	CodeInvalidPayload    = ErrRegistry.Register("INVALID_PAYLOAD", errx.TypeValidation, http.StatusBadRequest, "Request body is not valid JSON")
	CodeSessionNotFound   = ErrRegistry.Register("SESSION_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "No conversation is stored for this session")
	CodeUnauthorized      = ErrRegistry.Register("UNAUTHORIZED", errx.TypeAuthorization, http.StatusUnauthorized, "Missing or invalid bearer token")
	CodeReplyFailed       = ErrRegistry.Register("REPLY_FAILED", errx.TypeExternal, http.StatusBadGateway, "Could not produce a reply")
	CodeNotConfigured     = ErrRegistry.Register("NOT_CONFIGURED", errx.TypeBusiness, http.StatusNotImplemented, "Feature is not configured")
)

func ErrMissingSessionKey() *errx.Error {
	return ErrRegistry.New(CodeMissingSessionKey)
}

func ErrMissingMessage() *errx.Error {
	return ErrRegistry.New(CodeMissingMessage)
}

func ErrInvalidPayload(err error) *errx.Error {
	return ErrRegistry.New(CodeInvalidPayload).WithCause(err)
}

func ErrSessionNotFound(key string) *errx.Error {
	return ErrRegistry.New(CodeSessionNotFound).WithDetail("session", key)
}

func ErrUnauthorized() *errx.Error {
	return ErrRegistry.New(CodeUnauthorized)
}

// ============================================================================
// Webhook payloads
// ============================================================================

// CustomData carries the fields a CRM workflow maps into the webhook
type CustomData struct {
	Message        string `json:"message"`
	Address        string `json:"address"`
	MessageHistory string `json:"message_history"`
	OpenAIPrompt   string `json:"openai_prompt"`
}

// WebhookRequest is the body the CRM posts for a contact
type WebhookRequest struct {
	ContactID  string     `json:"contact_id"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	CustomData CustomData `json:"customData"`
}

// SessionKey identifies the conversation: the CRM contact id when present,
// else the email, else the phone number
func (r WebhookRequest) SessionKey() (string, error) {
	for _, k := range []string{r.ContactID, r.Email, r.Phone} {
		if k = strings.TrimSpace(k); k != "" {
			return k, nil
		}
	}
	return "", ErrMissingSessionKey()
}

// Query is the agent input: the lead's message tagged with the property
// they enquired about
func (r WebhookRequest) Query() string {
	msg := strings.TrimSpace(r.CustomData.Message)
	addr := strings.TrimSpace(r.CustomData.Address)
	if addr == "" {
		return msg
	}
	return msg + " +  I am interested in " + addr
}

type MessageResponse struct {
	BotResponse string   `json:"bot_response"`
	Photos      []string `json:"photos"`
	Distances   []string `json:"distances"`
	SessionID   string   `json:"session_id"`
}

type ClipResponse struct {
	MessageHistory string `json:"message_history"`
}

// ============================================================================
// Session views
// ============================================================================

type TurnView struct {
	Role memoryx.Role `json:"role"`
	Text string       `json:"text"`
}

// SessionView is the retained conversation of one session
type SessionView struct {
	Key       string     `json:"key"`
	Turns     []TurnView `json:"turns"`
	Length    int        `json:"length"`
	MaxLength int        `json:"max_length"`
}

func NewSessionView(key string, log *memoryx.Log) SessionView {
	turns := log.Turns()
	view := SessionView{
		Key:       key,
		Turns:     make([]TurnView, 0, len(turns)),
		Length:    log.Length(),
		MaxLength: log.MaxLength(),
	}
	for _, t := range turns {
		view.Turns = append(view.Turns, TurnView{Role: t.Role(), Text: t.Text()})
	}
	return view
}

// ============================================================================
// Interactions
// ============================================================================

// Interaction is one answered webhook message
type Interaction struct {
	ID         string    `db:"id" json:"id"`
	SessionKey string    `db:"session_key" json:"session_key"`
	Email      string    `db:"email" json:"email,omitempty"`
	Phone      string    `db:"phone" json:"phone,omitempty"`
	Message    string    `db:"message" json:"message"`
	Reply      string    `db:"reply" json:"reply"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type InteractionRepository interface {
	Save(ctx context.Context, i *Interaction) error
	FindBySession(ctx context.Context, sessionKey string, limit int) ([]Interaction, error)
}

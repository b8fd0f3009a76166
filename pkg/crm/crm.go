// Package crm talks to the lead CRM: LeadConnector inbound webhooks for
// replies and the GoHighLevel contacts API.
package crm

import (
	"context"
	"net/http"
	"time"

	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/httpx"
	"github.com/Abraxas-365/realtor/pkg/logx"
	"github.com/Abraxas-365/realtor/pkg/retryx"
)

var ErrRegistry = errx.NewRegistry("CRM")

var (
	CodeDeliveryFailed  = ErrRegistry.Register("DELIVERY_FAILED", errx.TypeExternal, http.StatusBadGateway, "Webhook delivery failed")
	CodeMissingContact  = ErrRegistry.Register("MISSING_CONTACT", errx.TypeValidation, http.StatusBadRequest, "An email or phone number is required")
	CodeContactNotFound = ErrRegistry.Register("CONTACT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "No CRM contact matched")
	CodeNoAPIKeys       = ErrRegistry.Register("NO_API_KEYS", errx.TypeInternal, http.StatusServiceUnavailable, "No CRM API keys configured")
)

// ReplyPayload is posted to the reply webhook after every answered message
type ReplyPayload struct {
	BotResponse string `json:"bot_response"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

// ClipPayload is posted to the clip webhook with the shortened history
type ClipPayload struct {
	MessageHistory string `json:"message_history"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
}

// RetryConfig builds a retry policy that only repeats transient failures
func RetryConfig(attempts int, delay time.Duration) retryx.Config {
	return retryx.Config{
		MaxAttempts:  attempts,
		InitialDelay: delay,
		MaxDelay:     10 * delay,
		ShouldRetry:  httpx.IsRetryable,
	}
}

// Notifier posts JSON payloads to CRM webhooks
type Notifier struct {
	http  *httpx.Client
	retry retryx.Config
}

func NewNotifier(client *httpx.Client, retry retryx.Config) *Notifier {
	return &Notifier{http: client, retry: retry}
}

// Deliver posts payload to url. An empty url is a no-op so deployments
// without a workflow configured still answer over HTTP.
func (n *Notifier) Deliver(ctx context.Context, url string, payload any) error {
	if url == "" {
		logx.Debug("webhook url not configured, skipping delivery")
		return nil
	}

	err := retryx.Do(ctx, n.retry, func() error {
		_, err := n.http.PostJSON(ctx, url, nil, payload)
		return err
	})
	if err != nil {
		return ErrRegistry.New(CodeDeliveryFailed).WithCause(err).WithDetail("url", url)
	}
	return nil
}

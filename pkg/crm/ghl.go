package crm

import (
	"context"
	"net/url"
	"strings"

	"github.com/Abraxas-365/realtor/pkg/httpx"
	"github.com/Abraxas-365/realtor/pkg/logx"
	"github.com/Abraxas-365/realtor/pkg/retryx"
	"github.com/tidwall/gjson"
)

const DefaultGHLBaseURL = "https://rest.gohighlevel.com/v1"

// GHLClient looks up contacts in GoHighLevel. Agencies run several
// sub-accounts, so each configured key is tried in turn.
type GHLClient struct {
	http    *httpx.Client
	keys    []string
	baseURL string
	retry   retryx.Config
}

func NewGHLClient(client *httpx.Client, keys []string, baseURL string, retry retryx.Config) *GHLClient {
	if baseURL == "" {
		baseURL = DefaultGHLBaseURL
	}
	var clean []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	return &GHLClient{
		http:    client,
		keys:    clean,
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   retry,
	}
}

// LocationID returns the location (sub-account) of the contact with the
// given email or phone. Email is tried before phone for every key.
func (c *GHLClient) LocationID(ctx context.Context, email, phone string) (string, error) {
	if email == "" && phone == "" {
		return "", ErrRegistry.New(CodeMissingContact)
	}
	if len(c.keys) == 0 {
		return "", ErrRegistry.New(CodeNoAPIKeys)
	}

	for i, key := range c.keys {
		if email != "" {
			if id, ok := c.lookup(ctx, key, url.Values{"email": {email}}); ok {
				logx.WithField("key_index", i+1).Info("found CRM location by email")
				return id, nil
			}
		}
		if phone != "" {
			if id, ok := c.lookup(ctx, key, url.Values{"phone": {NormalizePhone(phone)}}); ok {
				logx.WithField("key_index", i+1).Info("found CRM location by phone")
				return id, nil
			}
		}
	}

	return "", ErrRegistry.New(CodeContactNotFound)
}

func (c *GHLClient) lookup(ctx context.Context, key string, query url.Values) (string, bool) {
	headers := map[string]string{"Authorization": "Bearer " + key}

	var body []byte
	err := retryx.Do(ctx, c.retry, func() error {
		var err error
		body, err = c.http.Get(ctx, c.baseURL+"/contacts/lookup", query, headers)
		return err
	})
	if err != nil {
		logx.WithFields(logx.Fields{
			"query": query.Encode(),
			"error": err.Error(),
		}).Debug("CRM contact lookup failed")
		return "", false
	}

	id := gjson.GetBytes(body, "contacts.0.locationId").String()
	return id, id != ""
}

// NormalizePhone converts a North American number to E.164. Other
// numbers are returned as their digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	default:
		return digits
	}
}

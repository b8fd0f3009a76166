package config

// AuthConfig guards the webhook routes. An empty secret leaves them open,
// which is how the CRM workflow calls them by default.
type AuthConfig struct {
	WebhookSecret string
	Issuer        string
}

func (a AuthConfig) Enabled() bool {
	return a.WebhookSecret != ""
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		WebhookSecret: getEnv("WEBHOOK_JWT_SECRET", ""),
		Issuer:        getEnv("WEBHOOK_JWT_ISSUER", ""),
	}
}

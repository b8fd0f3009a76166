package config

import "time"

type CRMConfig struct {
	ReplyWebhookURL string
	ClipWebhookURL  string
	GHLAPIKeys      []string
	GHLBaseURL      string
	Timeout         time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
}

func loadCRMConfig() CRMConfig {
	return CRMConfig{
		ReplyWebhookURL: getEnv("CRM_REPLY_WEBHOOK_URL", ""),
		ClipWebhookURL:  getEnv("CRM_CLIP_WEBHOOK_URL", ""),
		GHLAPIKeys:      getEnvStringSlice("GHL_API_KEYS", nonEmpty(getEnv("GHL_API_KEY", ""), getEnv("GHL_API_Key", ""))),
		GHLBaseURL:      getEnv("GHL_BASE_URL", "https://rest.gohighlevel.com/v1"),
		Timeout:         getEnvDuration("CRM_TIMEOUT", 10*time.Second),
		RetryAttempts:   getEnvInt("CRM_RETRY_ATTEMPTS", 3),
		RetryDelay:      getEnvDuration("CRM_RETRY_DELAY", 500*time.Millisecond),
	}
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

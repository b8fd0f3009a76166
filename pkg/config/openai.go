package config

type OpenAIConfig struct {
	APIKey  string
	BaseURL string

	// agent that answers with tools
	AgentModel       string
	AgentTemperature float32
	AgentMaxTokens   int
	MaxIterations    int

	// second pass that rewrites the answer in the assistant's voice
	RefineModel       string
	RefineTemperature float32
	RefineMaxTokens   int
}

func loadOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		APIKey:            getEnv("OPENAI_API_KEY", ""),
		BaseURL:           getEnv("OPENAI_BASE_URL", ""),
		AgentModel:        getEnv("OPENAI_AGENT_MODEL", "gpt-4o-mini"),
		AgentTemperature:  float32(getEnvFloat("OPENAI_AGENT_TEMPERATURE", 0)),
		AgentMaxTokens:    getEnvInt("OPENAI_AGENT_MAX_TOKENS", 512),
		MaxIterations:     getEnvInt("OPENAI_AGENT_MAX_ITERATIONS", 5),
		RefineModel:       getEnv("OPENAI_REFINE_MODEL", "gpt-4o-mini"),
		RefineTemperature: float32(getEnvFloat("OPENAI_REFINE_TEMPERATURE", 0)),
		RefineMaxTokens:   getEnvInt("OPENAI_REFINE_MAX_TOKENS", 1200),
	}
}

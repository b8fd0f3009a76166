package config

type ServerConfig struct {
	Port        int
	Environment string
	LogLevel    string
	LogJSON     bool
	BaseURL     string
	CORSOrigins []string
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:        getEnvInt("SERVER_PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogJSON:     getEnvBool("LOG_JSON", false),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		CORSOrigins: getEnvStringSlice("CORS_ORIGINS", []string{"*"}),
	}
}

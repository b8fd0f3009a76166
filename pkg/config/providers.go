package config

import "time"

type ProvidersConfig struct {
	RapidAPIKey     string
	ZillowHost      string
	RealtorHost     string
	GooglePlacesKey string
	GoogleMapsURL   string
	Timeout         time.Duration
}

func loadProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		RapidAPIKey:     getEnv("RAPIDAPI_KEY", getEnv("X-RapidAPI-Key", "")),
		ZillowHost:      getEnv("ZILLOW_RAPIDAPI_HOST", "zillow-com1.p.rapidapi.com"),
		RealtorHost:     getEnv("REALTOR_RAPIDAPI_HOST", "realtor-com4.p.rapidapi.com"),
		GooglePlacesKey: getEnv("GPLACES_API_KEY", ""),
		GoogleMapsURL:   getEnv("GOOGLE_MAPS_BASE_URL", "https://maps.googleapis.com/maps/api"),
		Timeout:         getEnvDuration("PROVIDER_TIMEOUT", 20*time.Second),
	}
}

package config

import "time"

const (
	MemoryStoreInMemory = "memory"
	MemoryStoreRedis    = "redis"
)

type MemoryConfig struct {
	MaxLength       int
	RecentPairs     int
	UserLabel       string
	AgentLabel      string
	Store           string
	SessionTTL      time.Duration
	LockTTL         time.Duration // redis store only
	SweepInterval   time.Duration
	ClipHistorySize int // budget for /clip_message_history
}

func loadMemoryConfig() MemoryConfig {
	return MemoryConfig{
		MaxLength:       getEnvInt("MEMORY_MAX_LENGTH", 16_000),
		RecentPairs:     getEnvInt("MEMORY_RECENT_PAIRS", 2),
		UserLabel:       getEnv("MEMORY_USER_LABEL", "You:"),
		AgentLabel:      getEnv("MEMORY_AGENT_LABEL", "AI:"),
		Store:           getEnv("MEMORY_STORE", MemoryStoreInMemory),
		SessionTTL:      getEnvDuration("MEMORY_SESSION_TTL", 24*time.Hour),
		LockTTL:         getEnvDuration("MEMORY_LOCK_TTL", 2*time.Minute),
		SweepInterval:   getEnvDuration("MEMORY_SWEEP_INTERVAL", 10*time.Minute),
		ClipHistorySize: getEnvInt("CLIP_HISTORY_MAX_LENGTH", 8000),
	}
}

// container.go
package main

import (
	"context"

	"github.com/Abraxas-365/realtor/pkg/ai/llm"
	"github.com/Abraxas-365/realtor/pkg/ai/llm/memoryx"
	"github.com/Abraxas-365/realtor/pkg/ai/llm/memoryx/memoryxinfra"
	aiopenai "github.com/Abraxas-365/realtor/pkg/ai/providers/openai"
	"github.com/Abraxas-365/realtor/pkg/config"
	"github.com/Abraxas-365/realtor/pkg/crm"
	"github.com/Abraxas-365/realtor/pkg/httpx"
	"github.com/Abraxas-365/realtor/pkg/lead"
	"github.com/Abraxas-365/realtor/pkg/lead/leadapi"
	"github.com/Abraxas-365/realtor/pkg/lead/leadinfra"
	"github.com/Abraxas-365/realtor/pkg/lead/leadsrv"
	"github.com/Abraxas-365/realtor/pkg/listing"
	"github.com/Abraxas-365/realtor/pkg/logx"
	"github.com/Abraxas-365/realtor/pkg/places"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/openai/openai-go/v3/option"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies
type Container struct {
	// Config
	Config *config.Config

	// Infrastructure
	DB          *sqlx.DB
	Redis       *redis.Client
	MemoryStore *memoryx.InMemoryStore // nil when sessions live in Redis
	Sessions    *memoryx.Sessions

	// Clients
	AgentLLM  *llm.Client
	RefineLLM *llm.Client
	Zillow    *listing.Zillow
	Realtor   *listing.Realtor
	Places    *places.Client
	Notifier  *crm.Notifier
	GHL       *crm.GHLClient

	// Services
	LeadService *leadsrv.LeadService

	// API Handlers
	LeadHandlers *leadapi.LeadHandlers

	// Middleware
	WebhookGuard fiber.Handler
}

// NewContainer initializes the dependency injection container
func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing dependency container...")

	c := &Container{
		Config: cfg,
	}

	c.initInfrastructure()
	c.initClients()
	c.initServices()

	logx.Info("✅ Container initialized successfully")
	return c
}

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database Connection (interaction log)
	if c.Config.Database.Enabled {
		db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
		if err != nil {
			logx.Fatalf("Failed to connect to database: %v", err)
		}
		db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
		db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
		db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
		c.DB = db
		logx.Info("✅ Database connected")
	} else {
		logx.Warn("⚠️  Database disabled, interactions will not be recorded")
	}

	// 2. Redis Connection
	if c.Config.Redis.Enabled {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Address(),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}
		logx.Info("✅ Redis connected")
	}

	// 3. Session store
	var store memoryx.SessionStore
	if c.Config.Memory.Store == config.MemoryStoreRedis {
		store = memoryxinfra.NewRedisStore(c.Redis, c.Config.Memory.SessionTTL,
			memoryxinfra.WithLockTTL(c.Config.Memory.LockTTL),
		)
		logx.Info("✅ Using Redis session store")
	} else {
		c.MemoryStore = memoryx.NewInMemoryStore(c.Config.Memory.SessionTTL)
		store = c.MemoryStore
		logx.Warn("⚠️  Using in-memory session store (sessions are lost on restart)")
	}
	c.Sessions = memoryx.NewSessions(store, c.Config.Memory.MaxLength)

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initClients() {
	logx.Info("🔌 Initializing external clients...")

	// --- Language model ---
	var requestOpts []option.RequestOption
	if c.Config.OpenAI.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(c.Config.OpenAI.BaseURL))
	}
	provider := aiopenai.NewOpenAIProvider(c.Config.OpenAI.APIKey, requestOpts...)

	c.AgentLLM = llm.NewClient(provider,
		llm.WithModel(c.Config.OpenAI.AgentModel),
		llm.WithTemperature(c.Config.OpenAI.AgentTemperature),
		llm.WithMaxTokens(c.Config.OpenAI.AgentMaxTokens),
	)
	c.RefineLLM = llm.NewClient(provider,
		llm.WithModel(c.Config.OpenAI.RefineModel),
		llm.WithTemperature(c.Config.OpenAI.RefineTemperature),
		llm.WithMaxTokens(c.Config.OpenAI.RefineMaxTokens),
	)

	// --- Listing and places providers ---
	providers := httpx.NewClient(c.Config.Providers.Timeout)
	if c.Config.Providers.RapidAPIKey != "" {
		c.Zillow = listing.NewZillow(providers, listing.Config{
			APIKey: c.Config.Providers.RapidAPIKey,
			Host:   c.Config.Providers.ZillowHost,
		})
		c.Realtor = listing.NewRealtor(providers, listing.Config{
			APIKey: c.Config.Providers.RapidAPIKey,
			Host:   c.Config.Providers.RealtorHost,
		})
		logx.Info("✅ Zillow and Realtor listing tools enabled")
	} else {
		logx.Warn("⚠️  RAPIDAPI_KEY not set, listing tools disabled")
	}

	if c.Config.Providers.GooglePlacesKey != "" {
		c.Places = places.NewClient(providers, places.Config{
			APIKey:  c.Config.Providers.GooglePlacesKey,
			BaseURL: c.Config.Providers.GoogleMapsURL,
		})
		logx.Info("✅ Google Places tools enabled")
	} else {
		logx.Warn("⚠️  GPLACES_API_KEY not set, places tools disabled")
	}

	// --- CRM ---
	crmHTTP := httpx.NewClient(c.Config.CRM.Timeout)
	retry := crm.RetryConfig(c.Config.CRM.RetryAttempts, c.Config.CRM.RetryDelay)
	c.Notifier = crm.NewNotifier(crmHTTP, retry)
	if len(c.Config.CRM.GHLAPIKeys) > 0 {
		c.GHL = crm.NewGHLClient(crmHTTP, c.Config.CRM.GHLAPIKeys, c.Config.CRM.GHLBaseURL, retry)
		logx.Infof("✅ GoHighLevel lookup enabled (%d keys)", len(c.Config.CRM.GHLAPIKeys))
	}

	logx.Info("✅ External clients initialized")
}

func (c *Container) initServices() {
	logx.Info("🗄️  Initializing services and handlers...")

	// A typed nil must not reach an interface parameter.
	tools := lead.Toolset{}
	var photos leadsrv.PhotoSource
	if c.Zillow != nil {
		tools.Zillow = c.Zillow
	}
	if c.Realtor != nil {
		tools.Realtor = c.Realtor
		photos = c.Realtor
	}
	if c.Places != nil {
		tools.Places = c.Places
	}

	var locator leadsrv.Locator
	if c.GHL != nil {
		locator = c.GHL
	}

	var interactions lead.InteractionRepository
	if c.DB != nil {
		repo := leadinfra.NewPostgresInteractionRepository(c.DB)
		if err := repo.Migrate(context.Background()); err != nil {
			logx.Fatalf("Failed to migrate interactions table: %v", err)
		}
		interactions = repo
	}

	mem := c.Config.Memory
	c.LeadService = leadsrv.NewLeadService(
		c.Sessions,
		c.AgentLLM,
		c.RefineLLM,
		tools,
		photos,
		c.Notifier,
		locator,
		interactions,
		leadsrv.Options{
			Labels:          memoryx.Labels{User: mem.UserLabel, Agent: mem.AgentLabel},
			RecentPairs:     mem.RecentPairs,
			MaxIterations:   c.Config.OpenAI.MaxIterations,
			ClipBudget:      mem.ClipHistorySize,
			ReplyWebhookURL: c.Config.CRM.ReplyWebhookURL,
			ClipWebhookURL:  c.Config.CRM.ClipWebhookURL,
		},
	)

	// --- API Handlers ---
	c.LeadHandlers = leadapi.NewLeadHandlers(c.LeadService)

	// --- Middleware ---
	c.WebhookGuard = leadapi.WebhookGuard(c.Config.Auth.WebhookSecret, c.Config.Auth.Issuer)
	if !c.Config.Auth.Enabled() {
		logx.Warn("⚠️  WEBHOOK_JWT_SECRET not set, lead routes are unauthenticated")
	}

	logx.Info("✅ All services and handlers initialized")
}

// StartBackgroundServices starts background workers
func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")

	if c.MemoryStore != nil {
		go c.MemoryStore.Start(ctx, c.Config.Memory.SweepInterval)
		logx.Info("✅ Session sweeper started")
	}
}

// Cleanup closes all connections and stops workers
func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	// Close database connection
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("✅ Database connection closed")
		}
	}

	// Close Redis connection
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup completed")
}

package bootstrap

import (
	"context"
	"fmt"
	"log"

	"agent-catalog-be/internal/config"
	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/controller"
	"agent-catalog-be/internal/handler"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/pkg/serverutils"
	"agent-catalog-be/internal/repository/memory"
	"agent-catalog-be/internal/repository/unitofwork"
	"agent-catalog-be/internal/service"
	"agent-catalog-be/internal/websocket"
	"agent-catalog-be/pkg/conversation"
	"agent-catalog-be/pkg/database"
	"agent-catalog-be/pkg/events"
	"agent-catalog-be/pkg/ledger"
	"agent-catalog-be/pkg/llm/factory"
	pktNats "agent-catalog-be/pkg/nats"
	"agent-catalog-be/pkg/prompt"
	"agent-catalog-be/pkg/quota"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatController    controller.IChatController
	SessionController controller.ISessionController
	UsageController   controller.IUsageController
	JwtMiddleware     fiber.Handler

	// WebSockets
	ChatSocketHandler *handler.ChatSocketHandler
	WebSocketHub      *websocket.Hub

	// Background Services (Exposed for main.go to run)
	ReconcileService service.IReconcileService
	UsageService     service.IUsageService

	Logger logger.ILogger

	cfg         *config.Config
	subscriber  *pktNats.Subscriber
	invalidator *service.TemplateInvalidator
	closers     []func()
}

// NewRepositoryFactory picks the storage driver named in the config.
func NewRepositoryFactory(cfg *config.Config) (unitofwork.RepositoryFactory, error) {
	switch cfg.App.StorageDriver {
	case config.StorageDriverMemory:
		log.Println("[WARN] Using in-memory storage, data is lost on restart")
		return memory.NewRepositoryFactory(memory.NewStore()), nil
	case config.StorageDriverPostgres:
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return unitofwork.NewRepositoryFactory(db), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.App.StorageDriver)
	}
}

// NewRedisClient returns nil when no URL is configured or redis is unreachable.
func NewRedisClient(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb.Close()
		return nil
	}
	return rdb
}

func NewContainer(uowFactory unitofwork.RepositoryFactory, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	c := &Container{Logger: sysLogger, cfg: cfg}

	// 2. Infrastructure (optional in development)
	rdb := NewRedisClient(cfg.App.RedisURL)
	if rdb != nil {
		c.closers = append(c.closers, func() { rdb.Close() })
	}

	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = pub
			c.closers = append(c.closers, pub.Close)
		}
		sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			c.subscriber = sub
			c.closers = append(c.closers, sub.Close)
		}
	}

	// 3. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { pubSub.Close() })

	wsHub := websocket.NewHub(rdb, logger.NewIsolatedLogger("logs/websocket.log"))
	c.WebSocketHub = wsHub

	var bus service.EventBus = wsHub
	if natsPub != nil {
		bus = service.FanOut(natsPub, wsHub)
	}
	publisher := service.NewChatEventPublisher(bus, sysLogger)

	// 4. Model backend
	baseURL := cfg.Ai.OpenAIBaseURL
	if cfg.Ai.LLMProvider == config.LLMProviderOllama {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider:       cfg.Ai.LLMProvider,
		Model:          cfg.Ai.LLMModel,
		BaseURL:        baseURL,
		APIKey:         cfg.Ai.OpenAIAPIKey,
		Temperature:    cfg.Ai.Temperature,
		MaxTokens:      cfg.Ai.MaxTokens,
		ConnectTimeout: cfg.Ai.ConnectTimeout,
		ReadTimeout:    cfg.Ai.ReadTimeout,
	}, llmLogger)
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 5. Prompt templates: process cache, then redis, then storage
	templateCache := memory.NewTemplateCache(cfg.Cache.TemplateTTL)
	var templates prompt.TemplateSource = prompt.NewRepositorySource(uowFactory)
	if rdb != nil {
		templates = prompt.NewRedisTemplateSource(rdb, templates, cfg.Cache.TemplateTTL, sysLogger)
	}
	templates = prompt.NewCachedSource(templateCache, templates)
	c.invalidator = service.NewTemplateInvalidator(templateCache, rdb, sysLogger)

	// 6. Services
	guard := quota.NewGuard()
	conversationStore := conversation.NewStore(uowFactory)
	usageLedger := ledger.NewLedger(uowFactory, cfg.Billing.CostPerTokenCents)

	reconcileService := service.NewReconcileService(
		pubSub,
		cfg.Billing.ReconcileTopic,
		conversationStore,
		usageLedger,
		cfg.Billing.ReconcileAttempts,
		cfg.Billing.ReconcileBackoff,
		sysLogger,
	)
	chatService := service.NewChatStreamService(
		uowFactory,
		prompt.NewComposer(templates, sysLogger),
		guard,
		llmProvider,
		conversationStore,
		usageLedger,
		reconcileService,
		publisher,
		sysLogger,
	)
	sessionService := service.NewSessionService(uowFactory, sysLogger)
	usageService := service.NewUsageService(uowFactory, guard, sysLogger)

	// 7. Controllers
	c.ChatController = controller.NewChatController(chatService)
	c.SessionController = controller.NewSessionController(sessionService)
	c.UsageController = controller.NewUsageController(usageService)
	c.JwtMiddleware = serverutils.NewJwtMiddleware(cfg.App.JWTSecret)
	c.ChatSocketHandler = handler.NewChatSocketHandler(chatService, wsHub, cfg.App.JWTSecret, sysLogger)

	c.ReconcileService = reconcileService
	c.UsageService = usageService

	return c, nil
}

// Start launches the background workers. They stop when ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ReconcileService.Consume(ctx); err != nil {
		return fmt.Errorf("start reconcile consumer: %w", err)
	}

	go service.RunUsageResetWorker(ctx, c.UsageService, c.cfg.Billing.UsageResetInterval)

	if c.subscriber != nil {
		// Every instance keeps its own cache, so every instance needs its own consumer.
		subject := events.Subject(constant.EventPromptTemplateActivated)
		if err := c.subscriber.Subscribe(ctx, subject, "", c.invalidator.Handle); err != nil {
			c.Logger.Warn("BOOTSTRAP", "Template invalidation disabled", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

// Close releases broker and cache connections in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

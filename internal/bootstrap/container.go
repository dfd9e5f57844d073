package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"ai-docfill-be/internal/config"
	"ai-docfill-be/internal/controller"
	"ai-docfill-be/internal/pkg/logger"
	"ai-docfill-be/internal/repository/contract"
	"ai-docfill-be/internal/repository/implementation"
	"ai-docfill-be/internal/repository/memory"
	"ai-docfill-be/internal/service"
	"ai-docfill-be/pkg/llm"
	"ai-docfill-be/pkg/llm/factory"
	"ai-docfill-be/pkg/prompt"
	"ai-docfill-be/pkg/render"

	pktNats "ai-docfill-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	JanitorService  service.IJanitorService

	Logger logger.ILogger

	closers []func() error
}

// Overrides replaces infrastructure the container would otherwise build
// from config. Tests use it to run the full app without a network.
type Overrides struct {
	LLM    llm.LLMProvider
	Logger logger.ILogger
	Audit  logger.ILogger
}

func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	return NewContainerWith(ctx, cfg, Overrides{})
}

func NewContainerWith(ctx context.Context, cfg *config.Config, o Overrides) (*Container, error) {
	c := &Container{}

	// 1. Core Facades
	sysLogger := o.Logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	}
	auditLogger := o.Audit
	if auditLogger == nil {
		auditLogger = logger.NewIsolatedLogger(cfg.App.EventLogFilePath)
	}
	c.Logger = sysLogger

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, pubSub.Close)

	var forwarder service.EventForwarder
	if cfg.Events.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.Events.NatsURL,
			pktNats.WithMaxAge(cfg.Events.StreamMaxAge),
			pktNats.WithStreamErrorHandler(func(err error) {
				sysLogger.Warn("BOOTSTRAP", "NATS stream not ensured", map[string]interface{}{
					"error": err.Error(),
				})
			}),
		)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS, events stay local", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	publisherService := service.NewPublisherService(cfg.Events.Topic, pubSub, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Events.Topic, auditLogger, forwarder, sysLogger)

	// 3. Repositories
	artifactRepo, err := implementation.NewArtifactRepository(cfg.Storage.UploadDir)
	if err != nil {
		c.Close()
		return nil, err
	}

	var (
		sessionRepo contract.SessionRepository
		memoryRepo  *memory.SessionRepository
	)
	switch cfg.Session.Store {
	case "redis":
		opt, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using it as an address", map[string]interface{}{
				"error": err.Error(),
			})
			opt = &redis.Options{
				Addr: cfg.Session.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{
				"error": err.Error(),
			})
		}
		c.closers = append(c.closers, rdb.Close)
		sessionRepo = implementation.NewRedisSessionRepository(rdb, cfg.Session.TTL)
	case "memory", "":
		memoryRepo = memory.NewSessionRepository(cfg.Session.TTL, cfg.Session.CleanupInterval, nil)
		sessionRepo = memoryRepo
	default:
		c.Close()
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}

	// Sweeps artifacts whose session is gone: redis expiries and files left
	// by an earlier run of the memory store.
	c.JanitorService = service.NewJanitorService(artifactRepo, sessionRepo, cfg.Session.TTL, cfg.Session.CleanupInterval, sysLogger)

	// 4. Services
	llmProvider := o.LLM
	if llmProvider == nil {
		llmProvider, err = factory.NewLLMProvider(ctx, factory.Settings{
			Provider: cfg.Ai.LLMProvider,
			Model:    cfg.Ai.LLMModel,
			BaseURL:  cfg.Ai.BaseURL(),
			APIKey:   cfg.Ai.APIKey(),
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("initialize LLM provider: %w", err)
		}
	}
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	registry := prompt.NewRegistry(cfg.Storage.PromptsDir)

	documentService := service.NewDocumentService(
		artifactRepo,
		sessionRepo,
		registry,
		render.NewRenderer(),
		publisherService,
		sysLogger,
	)
	if memoryRepo != nil {
		memoryRepo.SetEvictionHook(documentService.Expire)
	}

	chatService := service.NewChatService(
		sessionRepo,
		registry,
		llmProvider,
		publisherService,
		sysLogger,
		service.ChatSettings{
			Temperature: cfg.Ai.Temperature,
			Timeout:     cfg.Ai.Timeout,
		},
	)

	// 5. Controllers
	c.DocumentController = controller.NewDocumentController(documentService)
	c.ChatController = controller.NewChatController(chatService)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
	return errors.Join(errs...)
}

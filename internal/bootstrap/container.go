package bootstrap

import (
	"log"
	"net"
	"strconv"

	"ragchat-be/internal/config"
	"ragchat-be/internal/controller"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/internal/repository/unitofwork"
	"ragchat-be/internal/service"
	"ragchat-be/pkg/embedding"
	"ragchat-be/pkg/github"
	"ragchat-be/pkg/jobs"
	"ragchat-be/pkg/llm"
	"ragchat-be/pkg/llm/factory"
	"ragchat-be/pkg/loader"
	"ragchat-be/pkg/queue"
	"ragchat-be/pkg/quota"
	"ragchat-be/pkg/vectorstore"

	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController      controller.IAuthController
	ChatController      controller.IChatController
	IngestionController controller.IIngestionController
	UsageController     controller.IUsageController

	// Background components (exposed for main.go to run)
	Worker   *jobs.Worker
	Enqueuer *jobs.Enqueuer
	Queue    queue.Queue

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Quota ledger
	ledger := quota.NewLedger(uowFactory, quota.Defaults{
		DailyLimit:   cfg.Quota.DailyLimit,
		MonthlyLimit: cfg.Quota.MonthlyLimit,
	})

	// 3. AI providers
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.OllamaBaseURL,
		embedModelFor(cfg),
		cfg.Ai.OpenAIAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize embedding provider: %v", err)
	}
	log.Printf("[INFO] Using embedding provider: %s", cfg.Ai.EmbeddingProvider)

	registry := llm.NewRegistry()
	registerChatModels(registry, cfg)

	// 4. Vector store
	var store vectorstore.Store
	if cfg.Vector.Backend == "qdrant" {
		host, port := splitHostPort(cfg.Vector.QdrantAddr)
		store, err = vectorstore.NewQdrantStore(host, port)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to Qdrant: %v", err)
		}
		log.Printf("[INFO] Using vector store: QDRANT (%s)", cfg.Vector.QdrantAddr)
	} else {
		store = vectorstore.NewPgvectorStore(uowFactory)
		log.Printf("[INFO] Using vector store: PGVECTOR")
	}

	// 5. Job queue
	var jobQueue queue.Queue
	if cfg.Queue.Backend == "nats" {
		jobQueue, err = queue.NewNatsQueue(cfg.Queue.NatsURL, sysLogger)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to NATS: %v", err)
		}
		log.Printf("[INFO] Using job queue: NATS (%s)", cfg.Queue.NatsURL)
	} else {
		jobQueue = queue.NewChannelQueue()
		log.Printf("[INFO] Using job queue: in-process channel")
	}

	// 6. Loaders and GitHub client
	maxFileBytes := int64(cfg.Upload.MaxFileBytes)
	fileLoader := loader.NewFileLoader(maxFileBytes)
	repoLoader := loader.NewRepoLoader(cfg.Upload.TempRepoDir, maxFileBytes)
	githubClient := github.NewClient(cfg.Upload.GithubToken)

	// 7. Ingestion pipeline
	enqueuer := jobs.NewEnqueuer(uowFactory, jobQueue, cfg.Queue.IngestSubject, sysLogger)
	worker := jobs.NewWorker(
		uowFactory,
		jobQueue,
		cfg.Queue.IngestSubject,
		store,
		embeddingProvider,
		fileLoader,
		repoLoader,
		sysLogger,
	)
	statusSvc := jobs.NewStatusService(uowFactory)

	// 8. Services
	authService := service.NewAuthService(uowFactory, cfg.Auth.JwtSecret)
	chatService := service.NewChatService(uowFactory, store, embeddingProvider, registry, ledger, sysLogger)
	ingestionService := service.NewIngestionService(
		uowFactory,
		ledger,
		enqueuer,
		statusSvc,
		fileLoader,
		githubClient,
		cfg.Upload.Dir,
		maxFileBytes,
		defaultChatModel(cfg),
		sysLogger,
	)
	usageService := service.NewUsageService(ledger)

	// 9. Controllers
	return &Container{
		AuthController:      controller.NewAuthController(authService),
		ChatController:      controller.NewChatController(chatService),
		IngestionController: controller.NewIngestionController(ingestionService),
		UsageController:     controller.NewUsageController(usageService),

		Worker:   worker,
		Enqueuer: enqueuer,
		Queue:    jobQueue,
		Logger:   sysLogger,
	}
}

func registerChatModels(registry *llm.Registry, cfg *config.Config) {
	if cfg.Ai.ChatProvider == "ollama" {
		provider, err := factory.NewProvider("ollama", cfg.Ai.OllamaChatModel, cfg.Ai.OllamaBaseURL, "")
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize chat provider: %v", err)
		}
		registry.Register(llm.ModelSpec{Name: cfg.Ai.OllamaChatModel, Provider: provider})
		log.Printf("[INFO] Using chat provider: OLLAMA (%s)", cfg.Ai.OllamaChatModel)
		return
	}

	provider, err := factory.NewProvider("openai", cfg.Ai.DefaultChatModel, "", cfg.Ai.OpenAIAPIKey)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize chat provider: %v", err)
	}
	registry.Register(llm.ModelSpec{Name: cfg.Ai.DefaultChatModel, Provider: provider})
	log.Printf("[INFO] Using chat provider: OPENAI (%s)", cfg.Ai.DefaultChatModel)
}

func embedModelFor(cfg *config.Config) string {
	if cfg.Ai.EmbeddingProvider == "ollama" {
		return cfg.Ai.OllamaEmbedModel
	}
	return cfg.Ai.OpenAIEmbedModel
}

func defaultChatModel(cfg *config.Config) string {
	if cfg.Ai.ChatProvider == "ollama" {
		return cfg.Ai.OllamaChatModel
	}
	return cfg.Ai.DefaultChatModel
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6334
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6334
	}
	return host, port
}

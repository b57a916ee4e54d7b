package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"sulestate/internal/adapter/api"
	"sulestate/internal/adapter/api/handler"
	"sulestate/internal/adapter/api/middleware"
	"sulestate/internal/adapter/api/router"
	"sulestate/internal/adapter/repository"
	domainrepo "sulestate/internal/domain/repository"
	"sulestate/internal/domain/service"
	"sulestate/internal/infrastructure/completion"
	"sulestate/internal/infrastructure/firebase"
	"sulestate/internal/infrastructure/ratelimit"
	"sulestate/internal/infrastructure/storage"
	ws "sulestate/internal/infrastructure/websocket"
	"sulestate/internal/usecase"
	"sulestate/pkg/config"
	"sulestate/pkg/logger"
	"sulestate/pkg/response"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
	StorageGCS     = "gcs"
	StorageMinio   = "minio"
)

// Infrastructure holds the external collaborators. Storage and Completer may
// be nil; the endpoints that need them then report NOT_CONFIGURED.
type Infrastructure struct {
	Conversations domainrepo.ConversationRepository
	Presence      domainrepo.PresenceRepository
	Settings      domainrepo.SettingsRepository
	Uploads       domainrepo.FileMetadataRepository
	Storage       service.ObjectStorage
	Completer     service.TextCompleter
	Verifier      middleware.TokenVerifier
	Limiter       ratelimit.Limiter
	Now           func() time.Time

	closers []func() error
}

// Connect builds the collaborators selected by cfg.
func Connect(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	infra := &Infrastructure{Now: time.Now}
	opts := firebase.ClientOptions(cfg)

	switch strings.ToLower(cfg.StoreDriver) {
	case StoreMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		store := repository.NewMemoryStore(nil)
		infra.Conversations = store.Conversations()
		infra.Presence = store.Presence()
		infra.Settings = store.Settings()
		infra.Uploads = store.Uploads()
	case "", StoreFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			return nil, fmt.Errorf("create firestore client: %w", err)
		}
		infra.closers = append(infra.closers, client.Close)
		infra.Conversations = repository.NewFirestoreConversationRepository(client)
		infra.Presence = repository.NewFirestorePresenceRepository(client)
		infra.Settings = repository.NewFirestoreSettingsRepository(client)
		infra.Uploads = repository.NewFirestoreFileMetadataRepository(client)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	objectStorage, err := connectStorage(ctx, cfg, opts)
	if err != nil {
		infra.Close()
		return nil, err
	}
	if objectStorage != nil {
		infra.Storage = objectStorage
		infra.closers = append(infra.closers, objectStorage.Close)
	}

	infra.Completer, err = completion.New(cfg)
	if err != nil {
		infra.Close()
		return nil, err
	}
	if infra.Completer == nil {
		logger.Warn("AI_API_KEY is not set; /chat will answer NOT_CONFIGURED")
	}

	if cfg.AuthDisabled {
		logger.Warn("AUTH_DISABLED=true: every bearer token is accepted as admin")
		infra.Verifier = firebase.DevTokenVerifier{}
	} else {
		firebaseApp, err := firebase.NewApp(ctx, cfg, opts...)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("initialize firebase: %w", err)
		}
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("initialize firebase auth: %w", err)
		}
		infra.Verifier = firebase.NewFirebaseAuthClient(authClient, cfg.AdminUIDs)
	}

	quotas := ratelimit.DefaultQuotas(cfg.ChatRateLimit)
	if cfg.RedisAddr != "" {
		limiter, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, "sulestate:ratelimit", quotas)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Limiter = limiter
		infra.closers = append(infra.closers, limiter.Close)
	} else {
		infra.Limiter = ratelimit.NewRateLimiter(quotas, nil)
	}

	return infra, nil
}

func connectStorage(ctx context.Context, cfg *config.Config, opts []option.ClientOption) (service.ObjectStorage, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case StorageMinio:
		if cfg.MinioEndpoint == "" {
			logger.Warn("MINIO_ENDPOINT is not set; avatar uploads are disabled")
			return nil, nil
		}
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.StorageBucket, cfg.MinioPublicURL, cfg.MinioUseSSL)
	case "", StorageGCS:
		if cfg.StorageBucket == "" {
			logger.Warn("STORAGE_BUCKET is not set; avatar uploads are disabled")
			return nil, nil
		}
		return storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// NewMemoryInfrastructure wires in-memory collaborators for tests and local
// runs without cloud credentials.
func NewMemoryInfrastructure(now func() time.Time, completer service.TextCompleter, objectStorage service.ObjectStorage) *Infrastructure {
	if now == nil {
		now = time.Now
	}
	store := repository.NewMemoryStore(now)
	return &Infrastructure{
		Conversations: store.Conversations(),
		Presence:      store.Presence(),
		Settings:      store.Settings(),
		Uploads:       store.Uploads(),
		Storage:       objectStorage,
		Completer:     completer,
		Verifier:      firebase.DevTokenVerifier{},
		Limiter:       ratelimit.NewRateLimiter(ratelimit.DefaultQuotas(1000), now),
		Now:           now,
	}
}

func (i *Infrastructure) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			logger.Warn("Failed to close resource: %v", err)
		}
	}
	i.closers = nil
}

// devTokens reports whether /_dev/token/admin may be mounted: only in
// development, and only when the verifier accepts the tokens it issues.
func devTokens(cfg *config.Config, verifier middleware.TokenVerifier) bool {
	_, dev := verifier.(firebase.DevTokenVerifier)
	return dev && cfg.IsDevelopment()
}

// Container is the wired application.
type Container struct {
	Echo          *echo.Echo
	WSManager     *ws.Manager
	Conversations *usecase.ConversationUseCase
	Presence      *usecase.PresenceUseCase
	Assistant     *usecase.AssistantUseCase
	Settings      *usecase.SettingsUseCase
	Files         *usecase.FileUseCase
}

// NewContainer wires use cases, handlers and routes. Background loops stop
// when ctx is done.
func NewContainer(ctx context.Context, cfg *config.Config, infra *Infrastructure) *Container {
	now := infra.Now
	if now == nil {
		now = time.Now
	}

	wsManager := ws.NewManager()
	wsManager.Start(ctx)

	if limiter, ok := infra.Limiter.(*ratelimit.RateLimiter); ok {
		limiter.StartCleanupRoutine(ctx)
	}

	sessions := usecase.NewSessionManager(cfg.JWTSecret, cfg.SessionTTL, now)
	presenceUseCase := usecase.NewPresenceUseCase(infra.Presence, now)
	conversationUseCase := usecase.NewConversationUseCase(infra.Conversations, sessions, wsManager)
	assistantUseCase := usecase.NewAssistantUseCase(infra.Completer, conversationUseCase, presenceUseCase, cfg.ContactEmail)
	settingsUseCase := usecase.NewSettingsUseCase(infra.Settings)
	fileUseCase := usecase.NewFileUseCase(infra.Storage, infra.Uploads)

	authMiddleware := middleware.NewAuthMiddleware(infra.Verifier)

	handlers := handler.Setup(handler.Dependencies{
		Conversations:  conversationUseCase,
		Assistant:      assistantUseCase,
		Presence:       presenceUseCase,
		Settings:       settingsUseCase,
		Files:          fileUseCase,
		WSManager:      wsManager,
		AuthMiddleware: authMiddleware,
		AllowedOrigins: cfg.CORSOrigins,
		Environment:    cfg.Environment,
		DevTokens:      devTokens(cfg, infra.Verifier),
	})

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Validator = api.NewValidator()

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{echo.GET, echo.POST, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	router.Setup(e, handlers, authMiddleware, infra.Limiter)

	return &Container{
		Echo:          e,
		WSManager:     wsManager,
		Conversations: conversationUseCase,
		Presence:      presenceUseCase,
		Assistant:     assistantUseCase,
		Settings:      settingsUseCase,
		Files:         fileUseCase,
	}
}

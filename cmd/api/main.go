package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"pasarchat/internal/adapter/api"
	"pasarchat/internal/adapter/api/handler"
	apimiddleware "pasarchat/internal/adapter/api/middleware"
	"pasarchat/internal/adapter/api/router"
	"pasarchat/internal/adapter/repository"
	domainrepo "pasarchat/internal/domain/repository"
	"pasarchat/internal/domain/service"
	"pasarchat/internal/infrastructure/devtoken"
	"pasarchat/internal/infrastructure/firebase"
	"pasarchat/internal/infrastructure/ratelimit"
	"pasarchat/internal/infrastructure/telemetry"
	"pasarchat/internal/infrastructure/websocket"
	"pasarchat/internal/usecase"
	"pasarchat/pkg/config"
	"pasarchat/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		logger.L().Error("Server exited", logger.Err(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger.Setup(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Tracing shutdown: %v", err)
		}
	}()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	verifier, issuer, err := newAuth(ctx, cfg)
	if err != nil {
		return err
	}

	sanitizer, err := newSanitizer(cfg)
	if err != nil {
		return err
	}

	sendLimiter := ratelimit.NewSlidingWindow(st.messages, cfg.Chat.RateLimitWindow, cfg.Chat.RateLimitMax)
	logger.Info("Message rate limit: %d per %v", sendLimiter.Limit(), sendLimiter.Window())

	wsManager := websocket.NewManager()
	chatUseCase := usecase.NewChatUseCase(
		st.chats,
		st.messages,
		st.uow,
		st.listings,
		sanitizer,
		sendLimiter,
		usecase.WithPublisher(wsManager),
	)

	wsLimiter := ratelimit.NewRateLimiter()
	wsLimiter.StartCleanupRoutine(ctx, 5*time.Minute, 10*time.Minute)
	gateway := websocket.NewGateway(wsManager, chatUseCase, apimiddleware.UserIDFromContext, wsLimiter)

	ipLimiter := apimiddleware.NewIPRateLimiter(cfg.APIRateLimitPerMinute)
	ipLimiter.StartCleanup(ctx, 5*time.Minute, 10*time.Minute)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(ipLimiter.Middleware())
	e.Validator = api.NewValidator()

	deps := handler.Deps{
		ChatUseCase:    chatUseCase,
		Gateway:        gateway,
		AllowedOrigins: cfg.WSAllowedOrigins,
		StorageDriver:  cfg.StorageDriver,
		Store:          st.ping,
	}
	if cfg.IsDevelopment() {
		if issuer != nil {
			deps.TokenIssuer = issuer
		}
		if st.seeder != nil {
			deps.ListingSeeder = st.seeder
		}
	}
	router.Setup(e, handler.Setup(deps), apimiddleware.NewAuthMiddleware(verifier), cfg.Environment)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server on port %s (storage=%s, auth=%s)", cfg.ServerPort, cfg.StorageDriver, cfg.AuthProvider)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// stores is one storage driver's set of repositories. seeder is set only for
// stores without a listing catalog of their own.
type stores struct {
	chats    domainrepo.ChatRepository
	messages domainrepo.MessageRepository
	uow      domainrepo.UnitOfWork
	listings domainrepo.ListingRepository
	ping     handler.Pinger
	seeder   handler.ListingSeeder
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StorageDriver {
	case "firestore":
		client, err := firebase.NewFirestoreClient(ctx, firebaseCredentials(cfg))
		if err != nil {
			return nil, err
		}
		return &stores{
			chats:    repository.NewFirestoreChatRepository(client),
			messages: repository.NewFirestoreMessageRepository(client),
			uow:      repository.NewFirestoreUnitOfWork(client),
			listings: repository.NewFirestoreListingRepository(client),
			ping: handler.PingFunc(func(ctx context.Context) error {
				return firebase.PingFirestore(ctx, client)
			}),
			close: func() { client.Close() },
		}, nil

	case "postgres":
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &stores{
			chats:    repository.NewPostgresChatRepository(db),
			messages: repository.NewPostgresMessageRepository(db),
			uow:      repository.NewPostgresUnitOfWork(db),
			listings: repository.NewPostgresListingRepository(db),
			ping:     handler.PingFunc(db.PingContext),
			close:    func() { db.Close() },
		}, nil

	default:
		logger.Warn("Using in-memory storage; data is lost on restart")
		store := repository.NewMemoryStore()
		return &stores{
			chats:    store,
			messages: store,
			uow:      store,
			listings: store,
			seeder:   store,
			close:    func() {},
		}, nil
	}
}

// newAuth returns the token verifier and, for the jwt provider, the issuer
// backing the development token endpoint.
func newAuth(ctx context.Context, cfg *config.Config) (apimiddleware.TokenVerifier, *devtoken.Service, error) {
	if cfg.AuthProvider == "firebase" {
		app, err := firebase.NewApp(ctx, firebaseCredentials(cfg))
		if err != nil {
			return nil, nil, err
		}
		verifier, err := firebase.NewAuthVerifier(ctx, app)
		if err != nil {
			return nil, nil, err
		}
		return verifier, nil, nil
	}

	tokens := devtoken.New(cfg.JWTSecret, cfg.JWTExpiry)
	return tokens, tokens, nil
}

func newSanitizer(cfg *config.Config) (service.Sanitizer, error) {
	var extra []service.WordList
	if path := cfg.Chat.ProfanityWordlistPath; path != "" {
		wl, err := service.LoadWordListFile(path)
		if err != nil {
			return nil, fmt.Errorf("load profanity word list: %w", err)
		}
		extra = append(extra, wl)
	}

	sanitizer, err := service.NewMessageSanitizer(extra...)
	if err != nil {
		return nil, fmt.Errorf("build message sanitizer: %w", err)
	}
	return sanitizer, nil
}

func firebaseCredentials(cfg *config.Config) firebase.Credentials {
	return firebase.Credentials{
		ProjectID: cfg.FirebaseProject,
		JSON:      cfg.FirebaseCredentialsJSON,
		File:      cfg.FirebaseCredentialsFile,
	}
}

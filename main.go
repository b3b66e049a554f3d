package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/talksphere/server/internal/assistant/auth"
	"github.com/talksphere/server/internal/assistant/chat"
	"github.com/talksphere/server/internal/assistant/gateway"
	"github.com/talksphere/server/internal/assistant/model"
	"github.com/talksphere/server/internal/assistant/profile"
	"github.com/talksphere/server/internal/assistant/repo"
	"github.com/talksphere/server/internal/assistant/tools"
	"github.com/talksphere/server/internal/core"
	"github.com/talksphere/server/internal/server"
	logx "github.com/talksphere/server/pkg/logger"
	pkgmongo "github.com/talksphere/server/pkg/mongo"
	pkgredis "github.com/talksphere/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the server,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Server model.ServerConfig
	Mongo  pkgmongo.Config
	Redis  pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Assistant configs
	Gateway      model.GatewayConfig
	Auth         model.AuthConfig
	Conversation model.ConversationConfig
	Profile      model.ProfileConfig
	Tools        model.ToolsConfig
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, env); err != nil {
		logx.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg AppConfig, env core.Environment) error {
	// ================ Storage ================
	mongoClient, db, err := cfg.Mongo.New(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logx.Warn().Err(err).Msg("mongodb disconnect failed")
		}
	}()
	logx.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	users := repo.NewMongoUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure user indexes: %w", err)
	}

	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()
	logx.Info().Msg("connected to Redis")

	conversations := repo.NewRedisConversationRepository(rdb, cfg.Conversation.TTL)
	denylist := repo.NewRedisTokenDenylist(rdb)

	// ================ AI gateway ================
	client, err := gateway.NewGeminiClient(ctx, gateway.ClientConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	if err != nil {
		return err
	}
	chatModel, err := gateway.NewChatModel(ctx, client, cfg.Gateway)
	if err != nil {
		return err
	}

	registry, err := tools.NewRegistry(cfg.Tools.Timezone)
	if err != nil {
		return err
	}
	gw, err := gateway.New(ctx, gateway.Config{
		ChatModel:  chatModel,
		ImageModel: gateway.NewGeminiImageModel(client, cfg.Gateway),
		Tools:      registry.Specs(),
		Gateway:    cfg.Gateway,
	})
	if err != nil {
		return err
	}
	dispatcher := tools.NewDispatcher(registry, cfg.Tools, fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port))

	// ================ HTTP ================
	srv := server.New(server.Config{
		Environment: env,
		Server:      cfg.Server,
		Auth:        cfg.Auth,
	}, server.Deps{
		Auth:    auth.NewService(users, denylist, cfg.Auth),
		Profile: profile.NewService(users, conversations, cfg.Profile),
		Chat:    chat.NewService(gw, dispatcher, users, conversations, cfg.Conversation),
		Tools:   registry,
	})
	httpServer := srv.HTTPServer(fmt.Sprintf(":%d", cfg.Server.Port))

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Int("port", cfg.Server.Port).Str("environment", env.String()).Str("model", cfg.Gateway.Model).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

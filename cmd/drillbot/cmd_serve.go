package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/dsa-drill/internal/api"
	"github.com/ashureev/dsa-drill/internal/audit"
	"github.com/ashureev/dsa-drill/internal/bot"
	"github.com/ashureev/dsa-drill/internal/config"
	"github.com/ashureev/dsa-drill/internal/drill"
	"github.com/ashureev/dsa-drill/internal/llm"
	"github.com/ashureev/dsa-drill/internal/session"
	"github.com/ashureev/dsa-drill/internal/store"
)

const shutdownTimeout = 10 * time.Second

// serveCmd runs the bot, the liveness server and the optional gRPC health service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	Long: `Start long polling Telegram, the HTTP liveness server on PORT and,
when GRPC_HEALTH_PORT is set, the gRPC health service.

Stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting drillbot", "port", cfg.Port, "model", cfg.GeminiModel, "db_path", cfg.DBPath)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Error("Failed to close repository", "error", closeErr)
		}
	}()
	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	logger.Info("Database connected")

	provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
		APIKey:  cfg.GeminiKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.ProviderTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize provider: %w", err)
	}

	convLog, err := audit.NewConversationLogger(audit.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize conversation log: %w", err)
	}
	defer func() {
		if closeErr := convLog.Close(); closeErr != nil {
			logger.Error("Failed to close conversation log", "error", closeErr)
		}
	}()

	limiter := session.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Stop()

	if err := tgbotapi.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)); err != nil {
		logger.Warn("Failed to route Telegram client logs", "error", err)
	}
	client, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("connect to Telegram: %w", err)
	}
	client.Debug = cfg.BotDebug
	logger.Info("Authorized on Telegram", "username", client.Self.UserName)

	ctrl, err := session.NewController(session.Deps{
		Repo:            repo,
		Generator:       drill.NewGenerator(provider, logger),
		Grader:          drill.NewGrader(provider, logger),
		Messenger:       bot.NewMessenger(client, logger),
		Limiter:         limiter,
		ConversationLog: convLog,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	b := bot.New(client, ctrl, bot.Config{
		MaxConcurrent: cfg.MaxConcurrentUpdates,
		HandleTimeout: handleTimeout(cfg),
	}, logger)

	srv := api.NewServer(cfg.Port, api.NewRouter(api.NewHealthHandler(repo, 0, logger), logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("liveness server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	if cfg.GRPCHealthPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("listen for gRPC health: %w", err)
		}
		health := api.NewGRPCHealth(repo, 0, logger)
		g.Go(func() error {
			return health.Serve(gctx, lis)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Shutdown with error", "error", err)
		return err
	}
	logger.Info("Server stopped successfully")
	return nil
}

// handleTimeout bounds one update: a generation or a grading call plus
// store and Telegram round trips.
func handleTimeout(cfg *config.Config) time.Duration {
	if cfg.ProviderTimeout == 0 {
		return 0
	}
	return cfg.ProviderTimeout + 30*time.Second
}

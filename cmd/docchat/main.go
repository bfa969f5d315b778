package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cozee/docchat/internal/ai"
	"github.com/cozee/docchat/internal/config"
	"github.com/cozee/docchat/internal/filestore"
	"github.com/cozee/docchat/internal/handler"
	"github.com/cozee/docchat/internal/ingest"
	"github.com/cozee/docchat/internal/job"
	"github.com/cozee/docchat/internal/middleware"
	"github.com/cozee/docchat/internal/pkg/logutil"
	"github.com/cozee/docchat/internal/repo"
	"github.com/cozee/docchat/internal/schedule"
	"github.com/cozee/docchat/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docchat",
		Short: "docchat backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docchat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logutil.Init(cfg.LogConfig)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	userRepo := repo.NewUserRepo(db)
	resourceRepo := repo.NewResourceRepo(db)
	vectorRepo := repo.NewVectorRepo(db)
	chatRepo := repo.NewChatRepo(db)
	messageRepo := repo.NewMessageRepo(db)
	shareRepo := repo.NewShareRepo(db)
	ingestStatusRepo := repo.NewIngestStatusRepo(db)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embedder := ai.NewEmbedder(aiProvider, cfg.AI.EmbedModel)
	completer := ai.NewCompleter(aiProvider, cfg.AI.ChatModel)

	pipeline := ingest.NewPipeline(embedder, vectorRepo, ingestStatusRepo, store, cfg.Ingest.ChunkSize)
	queue := ingest.NewQueue(pipeline, cfg.Ingest.Workers, cfg.Ingest.Backlog)

	jwtTTL := time.Hour * time.Duration(cfg.JWTTTLHours)
	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), jwtTTL)
	resourceService := service.NewResourceService(resourceRepo, store, queue, ingestStatusRepo)
	chatService := service.NewChatService(chatRepo, messageRepo, vectorRepo, resourceRepo, shareRepo, embedder, completer, cfg.TopK)
	shareService := service.NewShareService(shareRepo, resourceRepo)

	deps := handler.RouterDeps{
		Auth:            handler.NewAuthHandler(authService),
		Resources:       handler.NewResourceHandler(resourceService),
		Chats:           handler.NewChatHandler(chatService),
		Shares:          handler.NewShareHandler(shareService),
		JWTSecret:       []byte(cfg.JWTSecret),
		RateLimitWindow: time.Duration(cfg.RateLimitWindowMilli) * time.Millisecond,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.CORS(cfg.CORSAllowlist),
		gzip.Gzip(gzip.DefaultCompression),
	)
	handler.RegisterRoutes(engine.Group("/api/v1"), deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewIngestStatusCleanupJob(ingestStatusRepo, cfg.Jobs.IngestStatusKeepDays), cfg.Jobs.IngestStatusCleanupSpec); err != nil {
		return err
	}
	failedKeep := time.Duration(cfg.Jobs.FailedVectorKeepHours) * time.Hour
	if err := scheduler.AddJob(job.NewFailedVectorCleanupJob(resourceRepo, vectorRepo, failedKeep), cfg.Jobs.FailedVectorCleanupSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: engine}
	go func() {
		logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logutil.GetLogger(context.Background()).Warn("server shutdown", zap.Error(err))
	}
	scheduler.Stop()
	queue.Stop()
	return nil
}

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
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/strata-kb/strata/internal/ai"
	"github.com/strata-kb/strata/internal/config"
	"github.com/strata-kb/strata/internal/handler"
	"github.com/strata-kb/strata/internal/job"
	"github.com/strata-kb/strata/internal/middleware"
	"github.com/strata-kb/strata/internal/pkg/jwt"
	"github.com/strata-kb/strata/internal/repo"
	"github.com/strata-kb/strata/internal/schedule"
	"github.com/strata-kb/strata/internal/service"
	"github.com/strata-kb/strata/internal/source"
)

func main() {
	var configPath string
	var migrationsDir string

	rootCmd := &cobra.Command{
		Use:   "strata",
		Short: "strata knowledge base server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run strata server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db, migrationsDir); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	runCmd.Flags().StringVar(&migrationsDir, "migrations", "migrations", "path to sql migrations")
	rootCmd.AddCommand(runCmd)

	var tokenUser, tokenOrg, tokenRole string
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			if tokenUser == "" || tokenOrg == "" {
				return fmt.Errorf("--user and --org are required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ttl := time.Hour * time.Duration(cfg.JWTTTLHours)
			token, err := jwt.GenerateToken(tokenUser, tokenOrg, tokenRole, []byte(cfg.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id")
	tokenCmd.Flags().StringVar(&tokenOrg, "org", "", "organization id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "role claim (e.g. manager)")
	rootCmd.AddCommand(tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildAI(cfg *config.Config) (ai.IChatModel, ai.IEmbedder, error) {
	chats := make([]ai.ChatModelEntry, 0, len(cfg.AI))
	embedders := make([]ai.EmbedderEntry, 0, len(cfg.AI))
	for i, entry := range cfg.AI {
		provider, err := ai.NewProvider(entry.Provider, entry.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init ai provider %d (%s): %w", i, entry.Provider, err)
		}
		chats = append(chats, ai.ChatModelEntry{
			Name:  entry.Provider + "/" + entry.ChatModel,
			Model: ai.NewChatModel(provider, entry.ChatModel),
		})
		embedders = append(embedders, ai.EmbedderEntry{
			Name:     entry.Provider + "/" + entry.EmbedModel,
			Embedder: ai.NewEmbedder(provider, entry.EmbedModel),
		})
	}
	retryOpts := ai.DefaultRetryOptions()
	chat := ai.NewRetryChatModel(ai.NewGroupChatModel(chats), retryOpts)
	embedder := ai.NewRetryEmbedder(ai.NewGroupEmbedder(embedders), retryOpts)
	return chat, embedder, nil
}

func buildFetchers(cfg *config.Config) (map[string]source.Fetcher, error) {
	fetchers := make(map[string]source.Fetcher, len(cfg.Sources))
	for _, src := range cfg.Sources {
		fetcher, err := source.New(src.Kind, src.Name, src.Data)
		if err != nil {
			return nil, fmt.Errorf("init source %s: %w", src.Name, err)
		}
		fetchers[src.Name] = fetcher
	}
	return fetchers, nil
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.Int("ai_providers", len(cfg.AI)),
		zap.Int("sources", len(cfg.Sources)),
	)

	draftRepo := repo.NewDraftRepo(db)
	docRepo := repo.NewDocumentRepo(db)
	versionRepo := repo.NewVersionRepo(db)
	chunkRepo := repo.NewChunkRepo(db)
	jobRepo := repo.NewIngestJobRepo(db)
	itemRepo := repo.NewIngestItemRepo(db)
	categoryRepo := repo.NewCategoryRepo(db)
	answerLogRepo := repo.NewAnswerLogRepo(db)
	reviewStore := repo.NewReviewStore(db)

	chat, embedder, err := buildAI(cfg)
	if err != nil {
		return err
	}
	fetchers, err := buildFetchers(cfg)
	if err != nil {
		return err
	}

	modelTimeout := time.Duration(cfg.AI[0].TimeoutSeconds) * time.Second
	structuring := service.NewStructuringService(chat, service.NewPassthroughRedactor(), modelTimeout)
	ingestService := service.NewIngestService(jobRepo, itemRepo, draftRepo, structuring, fetchers)
	categoryService := service.NewCategoryService(categoryRepo, chat, nil, modelTimeout)
	reviewService := service.NewReviewService(draftRepo, docRepo, reviewStore, categoryService)
	documentService := service.NewDocumentService(docRepo, versionRepo)
	indexerService := service.NewIndexerService(docRepo, chunkRepo, embedder, modelTimeout)
	answerService := service.NewAnswerService(chunkRepo, answerLogRepo, chat, embedder, modelTimeout)

	deps := handler.RouterDeps{
		Ingest:     handler.NewIngestHandler(ingestService),
		Drafts:     handler.NewDraftHandler(reviewService),
		Documents:  handler.NewDocumentHandler(documentService),
		Ask:        handler.NewAskHandler(answerService),
		Categories: handler.NewCategoryHandler(categoryService),
		JWTSecret:  []byte(cfg.JWTSecret),
		AskWindow:  time.Duration(cfg.API.AskWindowSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.API.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingIndexJob(indexerService, cfg.Schedule.EmbeddingIndexBatch), cfg.Schedule.EmbeddingIndexSpec); err != nil {
		return fmt.Errorf("schedule embedding index: %w", err)
	}
	maxAge := time.Duration(cfg.Schedule.IngestMaxAgeMinutes) * time.Minute
	if err := scheduler.AddJob(job.NewIngestCleanupJob(jobRepo, maxAge), cfg.Schedule.IngestCleanupSpec); err != nil {
		return fmt.Errorf("schedule ingest cleanup: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

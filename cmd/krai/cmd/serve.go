package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/qdrant/go-client/qdrant"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/krai/engine/internal/blobstore"
	"github.com/krai/engine/internal/config"
	"github.com/krai/engine/internal/database"
	"github.com/krai/engine/internal/database/migrations"
	internalhttp "github.com/krai/engine/internal/http"
	"github.com/krai/engine/internal/observability"
	"github.com/krai/engine/internal/patterns"
	"github.com/krai/engine/internal/pipeline"
	"github.com/krai/engine/internal/repository"
	"github.com/krai/engine/internal/stagerunner"
	"github.com/krai/engine/internal/startup"
	"github.com/krai/engine/internal/storage"
	"github.com/krai/engine/internal/vectorindex"
	"github.com/krai/engine/internal/version"
	"github.com/krai/engine/pkg/httpclient"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the krai server",
	Long: `Start the krai HTTP server and background stage runner.

The HTTP server applies request-ID, logging, recovery, CORS and
compression middleware; no API operations or health-check routes are
registered on it. A pool of stage-runner workers drains the processing
queue in the same process.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database", "krai.db", "Database DSN or file path")
	serveCmd.Flags().String("data-dir", "./data", "Base directory for blob storage")
	serveCmd.Flags().Int("workers", 4, "Number of stage-runner workers")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
	mustBindPFlag("storage.base_dir", serveCmd.Flags().Lookup("data-dir"))
	mustBindPFlag("queue.worker_count", serveCmd.Flags().Lookup("workers"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("database") {
		cfg.Database.DSN, _ = flags.GetString("database")
	}
	if flags.Changed("data-dir") {
		cfg.Storage.BaseDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("workers") {
		cfg.Queue.WorkerCount, _ = flags.GetInt("workers")
	}

	logger := observability.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	orphansRemoved, err := startup.CleanupSystemTempDirs(logger)
	if err != nil {
		logger.Warn("failed to clean orphaned temp directories", slog.String("error", err.Error()))
	} else if orphansRemoved > 0 {
		logger.Info("cleaned orphaned temp directories on startup", slog.Int("removed_count", orphansRemoved))
	}

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := runMigrations(db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	sandbox, err := storage.NewSandbox(cfg.Storage.BaseDir)
	if err != nil {
		return fmt.Errorf("initializing storage sandbox: %w", err)
	}
	blobStore := blobstore.New(sandbox)

	patternRegistry := patterns.NewRegistry(filepath.Join(cfg.Storage.BaseDir, "patterns"))
	if err := patternRegistry.Load(); err != nil {
		logger.Warn("failed to load manufacturer pattern registry", slog.String("error", err.Error()))
	}

	vectorIndex, err := newVectorIndex(cfg.VectorIdx)
	if err != nil {
		return fmt.Errorf("initializing vector index: %w", err)
	}

	documentRepo := repository.NewDocumentRepository(db.DB)

	if recovered, err := startup.RecoverStaleDocumentStatuses(context.Background(), logger, documentRepo); err != nil {
		logger.Warn("failed to recover stale document statuses", slog.String("error", err.Error()))
	} else if recovered > 0 {
		logger.Info("recovered documents stuck mid-pipeline from a previous run", slog.Int("recovered_count", recovered))
	}

	manufacturerRepo := repository.NewManufacturerRepository(db.DB)
	productRepo := repository.NewProductRepository(db.DB)
	chunkRepo := repository.NewChunkRepository(db.DB)
	embeddingRepo := repository.NewEmbeddingRepository(db.DB, vectorIndex)
	errorCodeRepo := repository.NewErrorCodeRepository(db.DB)
	imageRepo := repository.NewImageRepository(db.DB)
	linkRepo := repository.NewLinkRepository(db.DB)
	videoRepo := repository.NewVideoRepository(db.DB)
	queueRepo := repository.NewQueueRepository(db.DB, cfg.Database.Driver)
	stageStatusRepo := repository.NewStageStatusRepository(db.DB)
	pipelineErrorRepo := repository.NewPipelineErrorRepository(db.DB)

	breakerManager := httpclient.NewCircuitBreakerManager(nil).WithLogger(logger)

	factory, err := pipeline.NewDefaultFactory(
		documentRepo,
		manufacturerRepo,
		productRepo,
		chunkRepo,
		embeddingRepo,
		errorCodeRepo,
		imageRepo,
		linkRepo,
		videoRepo,
		blobStore,
		patternRegistry,
		breakerManager,
		logger,
	)
	if err != nil {
		return fmt.Errorf("building pipeline factory: %w", err)
	}

	executor := stagerunner.NewExecutor(
		factory,
		documentRepo,
		chunkRepo,
		errorCodeRepo,
		embeddingRepo,
		imageRepo,
		linkRepo,
		videoRepo,
		stageStatusRepo,
		pipelineErrorRepo,
		logger,
	)

	runner := stagerunner.NewRunner(queueRepo, executor).
		WithLogger(logger).
		WithConfig(stagerunner.RunnerConfig{
			WorkerCount:     cfg.Queue.WorkerCount,
			PollInterval:    cfg.Queue.PollInterval,
			LeaseFor:        cfg.Queue.LeaseFor,
			RecoverInterval: cfg.Queue.RecoverInterval,
			Stages:          cfg.Queue.Stages,
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("starting stage runner: %w", err)
	}
	defer runner.Stop()

	serverConfig := internalhttp.ServerConfig{
		Host:            viper.GetString("server.host"),
		Port:            viper.GetInt("server.port"),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting krai server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
		slog.Int("workers", cfg.Queue.WorkerCount),
	)

	return server.ListenAndServe(ctx)
}

// newVectorIndex builds the vector-search backend selected by
// cfg.Backend. The cosine backend needs no external service; the qdrant
// backend dials the configured collection.
func newVectorIndex(cfg config.VectorIndexConfig) (vectorindex.Index, error) {
	switch cfg.Backend {
	case "qdrant":
		client, err := qdrant.NewClient(&qdrant.Config{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			UseTLS: cfg.Qdrant.UseTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("creating qdrant client: %w", err)
		}
		return vectorindex.NewQdrantIndex(context.Background(), vectorindex.QdrantConfig{
			Client:           client,
			CollectionName:   cfg.Qdrant.Collection,
			InitializeSchema: true,
		})
	default:
		return vectorindex.NewCosineIndex(), nil
	}
}

func runMigrations(db *database.DB, logger *slog.Logger) error {
	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	return migrator.Up(context.Background())
}

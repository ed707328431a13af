package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vocablink/vocablink/pkg/backup"
	"github.com/vocablink/vocablink/pkg/cache"
	"github.com/vocablink/vocablink/pkg/config"
	"github.com/vocablink/vocablink/pkg/graph"
	"github.com/vocablink/vocablink/pkg/notes"
	"github.com/vocablink/vocablink/pkg/search"
	"github.com/vocablink/vocablink/pkg/server"
	"github.com/vocablink/vocablink/pkg/storage"
)

func main() {
	// Setup logger
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger().
		Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	// Load configuration: defaults, then optional file, then env
	_ = godotenv.Load()
	cfg := config.Default()
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "vocablink.yaml"
	}
	if err := config.LoadFromFile(configFile, cfg); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config file")
	}
	config.LoadFromEnv(cfg)

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	printBanner(cfg)

	// Initialize storage
	store, err := storage.NewSQLiteStore(cfg.DBPath, storage.DefaultSQLiteConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.Close()

	version, err := store.SchemaVersion(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to read schema version")
	}
	logger.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", version).
		Msg("Storage initialized")

	// Initialize graph repository and reference data
	repo := graph.New(store, logger)
	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repo.Init(initCtx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize graph repository")
	}
	logger.Info().Msg("Graph repository ready")

	noteRepo := notes.New(store, logger)
	backupSvc := backup.New(store, repo, logger)

	// Build the search index and subscribe it to store mutations
	searchIndex := search.New(repo, logger)
	if err := searchIndex.Start(initCtx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to build search index")
	}
	logger.Info().Msg("Search index built")

	// Initialize cache
	var cacheInstance cache.Cache
	if cfg.CacheType == "redis" {
		redisCache, err := cache.NewRedisCache(
			cfg.RedisHost,
			cfg.RedisPort,
			time.Duration(cfg.CacheTTL)*time.Second,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Redis, falling back to memory cache")
			cacheInstance = cache.NewMemoryCache(cfg.CacheSize, time.Duration(cfg.CacheTTL)*time.Second)
		} else {
			cacheInstance = redisCache
			logger.Info().Msg("Using Redis cache")
		}
	} else {
		cacheInstance = cache.NewMemoryCache(cfg.CacheSize, time.Duration(cfg.CacheTTL)*time.Second)
		logger.Info().Msg("Using in-memory cache")
	}
	defer cacheInstance.Close()

	srv := server.New(cfg, repo, noteRepo, backupSvc, searchIndex, cacheInstance, logger)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info().Msg("Shutting down gracefully...")
		cacheInstance.Close()
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
		os.Exit(0)
	}()

	logger.Info().Msg("Server ready to accept requests")
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func printBanner(cfg *config.Config) {
	fmt.Println("/////////////////// vocablink " + config.Version + " ///////////////////")
	fmt.Println("------------------------------------------------------")
	fmt.Println("Server Configuration:")
	fmt.Printf("  Host: %s\n", cfg.Host)
	fmt.Printf("  Port: %d\n", cfg.Port)
	fmt.Printf("  Database: %s\n", cfg.DBPath)
	fmt.Println()
	fmt.Println("Cache Configuration:")
	fmt.Printf("  Type: %s\n", cfg.CacheType)
	fmt.Printf("  TTL: %d seconds\n", cfg.CacheTTL)
	if cfg.CacheType == "redis" {
		fmt.Printf("  Redis: %s:%d\n", cfg.RedisHost, cfg.RedisPort)
	}
	fmt.Println()
	fmt.Println("Search Configuration:")
	fmt.Printf("  Result limit: %d\n", cfg.SearchLimit)
	fmt.Println("------------------------------------------------------")
	fmt.Println()
}

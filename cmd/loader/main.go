package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pricewatch/price-scraper/internal/config"
	"github.com/pricewatch/price-scraper/internal/database"
	"github.com/pricewatch/price-scraper/internal/etl"
	"github.com/pricewatch/price-scraper/pkg/logger"
)

func main() {
	dir := flag.String("dir", "", "Directory of raw capture files (overrides LOADER_DATA_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	dataDir := cfg.Loader.DataDir
	if *dir != "" {
		dataDir = *dir
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		MaxConns: 10,
		MinConns: 2,
	})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	loader := etl.NewLoader(database.NewStore(db), etl.NewNormalizer(logger), logger)

	loaded, err := loader.ProcessDirectory(ctx, dataDir)
	if err != nil {
		logger.Error("Batch load aborted", "dir", dataDir, "loaded", loaded, "error", err)
		os.Exit(1)
	}

	logger.Info("Batch load finished", "dir", dataDir, "loaded", loaded)
}

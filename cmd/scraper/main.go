package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pricewatch/price-scraper/internal/config"
	"github.com/pricewatch/price-scraper/internal/database"
	"github.com/pricewatch/price-scraper/internal/fetcher"
	"github.com/pricewatch/price-scraper/internal/parser"
	"github.com/pricewatch/price-scraper/internal/queue"
	"github.com/pricewatch/price-scraper/internal/scraper"
	"github.com/pricewatch/price-scraper/pkg/logger"
)

func main() {
	var (
		urls      = flag.String("urls", "", "Comma-separated list of product URLs to scrape")
		inputFile = flag.String("file", "", "File containing product URLs (one per line)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting price scraper")

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

	f, err := fetcher.New(fetcher.Config{
		Timeout:     cfg.Fetcher.Timeout,
		Delay:       cfg.Fetcher.Delay,
		RandomDelay: cfg.Fetcher.RandomDelay,
		CacheTTL:    cfg.Fetcher.CacheTTL,
		UserAgents:  cfg.Fetcher.UserAgents,
		Proxies:     cfg.Fetcher.Proxies,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize fetcher", "error", err)
		os.Exit(1)
	}

	if cfg.Scraper.DataDir != "" {
		if err := os.MkdirAll(cfg.Scraper.DataDir, 0o755); err != nil {
			logger.Error("Failed to create capture directory", "dir", cfg.Scraper.DataDir, "error", err)
			os.Exit(1)
		}
	}

	svc := scraper.New(f, database.NewStore(db), cfg.Scraper.DataDir, logger)

	taskQueue := queue.NewInMemoryQueue()
	defer taskQueue.Close()

	if err := loadTasks(taskQueue, *urls, *inputFile); err != nil {
		logger.Error("Failed to load tasks", "error", err)
		os.Exit(1)
	}

	if taskQueue.Size() == 0 {
		fmt.Println("No tasks to process. Use -urls or -file to specify product pages to scrape.")
		flag.Usage()
		os.Exit(1)
	}

	logger.Info("Starting scraping", "tasks", taskQueue.Size())

	processed, failed := 0, 0
	for taskQueue.Size() > 0 {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, exiting")
			return
		default:
		}

		task, err := taskQueue.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueEmpty) || errors.Is(err, queue.ErrQueueClosed) {
				break
			}
			logger.Error("Failed to get task from queue", "error", err)
			continue
		}

		logger.Info("Processing task", "url", task.URL, "retailer", task.Retailer)

		if err := svc.ProcessURL(ctx, task.URL); err != nil {
			logger.Error("Failed to scrape product", "url", task.URL, "error", err)

			if !errors.Is(err, scraper.ErrUnknownRetailer) && task.Retries < cfg.Scraper.MaxRetries {
				task.Retries++
				taskQueue.Push(task)
				logger.Info("Retrying task", "url", task.URL, "retry", task.Retries)
				continue
			}
			failed++
			continue
		}
		processed++
	}

	logger.Info("Scraping completed", "processed", processed, "failed", failed)
}

func loadTasks(q queue.Queue, urls, inputFile string) error {
	var taskList []string

	if urls != "" {
		taskList = append(taskList, strings.Split(urls, ",")...)
	}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				taskList = append(taskList, line)
			}
		}
	}

	for i, item := range taskList {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		retailer := ""
		if rules, ok := parser.ForURL(item); ok {
			retailer = rules.Retailer
		}

		q.Push(&queue.Task{
			ID:        fmt.Sprintf("task-%d", i),
			URL:       item,
			Retailer:  retailer,
			Priority:  1,
			CreatedAt: time.Now(),
		})
	}

	return nil
}

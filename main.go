package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"boardlink/api"
	"boardlink/config"
	"boardlink/kafka"
	"boardlink/service"
	"boardlink/transport"
)

// setupLogging creates a log file in the log directory with timestamp
// Returns the log file handle (caller should defer Close())
func setupLogging(logDir string) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Create log file with timestamp: log/2025-12-08_21-52-35.log
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, timestamp+".log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Write to both console and file
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	log.Printf("📝 Logging to: %s", logPath)
	return logFile, nil
}

func main() {
	configPath := pflag.StringP("config", "c", "", "path to YAML config file")
	logDir := pflag.String("log-dir", "log", "directory for log files")
	pflag.Parse()

	logFile, err := setupLogging(*logDir)
	if err != nil {
		log.Printf("Warning: Failed to setup file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting board link...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	journal := service.NewJournal(db, cfg.Database.Retention)

	wsHub := api.NewWebSocketHub()
	go wsHub.Run()

	sinks := []service.EventSink{journal, wsHub}
	if cfg.KafkaEnabled() {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Fatalf("Failed to create Kafka producer: %v", err)
		}
		defer producer.Close()
		sinks = append(sinks, producer)
		log.Printf("Forwarding board events to Kafka topic %s", cfg.Kafka.Topic)
	}

	registry := service.NewRegistry(service.RegistryOptions{
		Directory:  cfg.DirectoryConfig(),
		HTTPClient: &http.Client{Timeout: cfg.Directory.Timeout},
		Transports: transport.Factory(),
		Connection: cfg.ConnectionOptions(),
		AutoOpen:   cfg.Boards.AutoOpen,
	})
	defer registry.Close()
	registry.AddListener(service.NewEventListener(nil, sinks...))

	for _, rec := range cfg.Boards.Static {
		registry.AddBoardRecord(rec)
	}
	registry.PrintBoards()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := service.NewPoller(registry, cfg.PollerOptions())
	go poller.Run(ctx)

	router := gin.Default()
	api.SetupRoutes(router, registry, journal, cfg.Credentials(), wsHub)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/robe-lope/bookbuddy-swapper/internal/api"
	"github.com/robe-lope/bookbuddy-swapper/internal/cache"
	"github.com/robe-lope/bookbuddy-swapper/internal/config"
	"github.com/robe-lope/bookbuddy-swapper/internal/db"
	"github.com/robe-lope/bookbuddy-swapper/internal/email"
	"github.com/robe-lope/bookbuddy-swapper/internal/notify"
	"github.com/robe-lope/bookbuddy-swapper/internal/services"
	"github.com/robe-lope/bookbuddy-swapper/internal/store"
	"github.com/robe-lope/bookbuddy-swapper/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	matchStore := store.NewMongoStore(mongoDb)
	ctxIdx, cancelIdx := context.WithTimeout(context.Background(), 30*time.Second)
	if err := matchStore.EnsureIndexes(ctxIdx); err != nil {
		cancelIdx()
		log.Fatalf("Failed to ensure store indexes: %v", err)
	}
	cancelIdx()

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Initialize Email Sender
	var primaryEmailSender email.Sender
	var redisEmailSender *email.RedisSender
	if cfg.MockServices {
		log.Println("MOCK_SERVICES enabled: Using Redis email sender.")
		redisEmailSender = email.NewRedisSender(redisClient, cfg.SmtpFromAddress)
		primaryEmailSender = redisEmailSender
	} else {
		log.Println("MOCK_SERVICES disabled or not set: Using SMTP/Logging email sender.")
		primaryEmailSender = email.NewSMTPSender(cfg)
	}

	// The composite sender will always include the primary sender.
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)
	if cfg.LogEmails {
		log.Printf("LOG_EMAILS set, enabling file email logger at '%s'.", cfg.EmailLogFile)
		fileSender, err := email.NewFileEmailSender(cfg.EmailLogFile)
		if err != nil {
			log.Printf("WARNING: Failed to initialize file email sender (%s): %v. Proceeding without file logging.", cfg.EmailLogFile, err)
		} else {
			compositeSender.AddSender(fileSender)
		}
	}

	// Initialize Task Client
	taskClient := tasks.NewClient(cfg)
	defer func() {
		if err := taskClient.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}()

	// Notifications land in the Redis inbox and are queued for email delivery.
	inboxNotifier := notify.NewRedisNotifier(redisClient, cfg.NotificationInboxSize, cfg.NotificationInboxTTL)
	notifier := notify.NewCompositeNotifier(inboxNotifier, notify.NewTaskNotifier(taskClient))

	// Initialize Services
	userService := services.NewUserService(mongoDb)
	catalogService := services.NewCatalogService(mongoDb)
	emailTemplateService := services.NewEmailTemplateService(mongoDb)
	matchService := services.NewMatchService(matchStore, catalogService, userService, notifier)
	ledgerService := services.NewLedgerService(matchStore, notifier, cfg.MessageMaxLength)

	taskProcessor := tasks.NewTaskProcessor(cfg, compositeSender, matchService, userService, emailTemplateService)

	// WaitGroup for managing goroutines
	var wg sync.WaitGroup

	// Channel to signal shutdown from Service API
	shutdownChan := make(chan struct{}, 1)
	stopBackground := make(chan struct{})

	// Start Service API (always runs)
	deps := api.ServiceDeps{
		MatchService: matchService,
		TaskClient:   taskClient,
	}
	if cfg.MockServices {
		deps.Inbox = inboxNotifier
		deps.Outbox = redisEmailSender
	}
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, deps, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("Service API listening on :%s\n", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		fmt.Println("Service API server stopped.")
	}()

	// --- Mode-specific servers ---
	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		fmt.Println("Starting main API server...")
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: api.SetupRouter(cfg, matchService, ledgerService, userService, stopBackground),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Main API listening on :%s\n", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			fmt.Println("Main API server stopped.")
		}()
	}

	bgMode := func() {
		fmt.Println("Starting background worker...")
		srv, mux := tasks.SetupServer(cfg, taskProcessor)
		if err := srv.Start(mux); err != nil {
			log.Fatalf("Background task server error: %v", err)
		}
		backgroundTaskSrv = srv
		fmt.Println("Background task server started.")

		// Catch up on catalog changes made while no worker was running.
		if _, err := tasks.EnqueueRecompute(context.Background(), taskClient, "worker startup", cfg.MatchRecomputeDelay); err != nil {
			log.Printf("WARNING: failed to queue startup match recompute: %v", err)
		}
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode specified in config: %s.", cfg.RunMode)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)
	case <-shutdownChan:
		fmt.Println("\nShutdown requested via Service API. Shutting down gracefully...")
	}
	close(stopBackground)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	fmt.Println("Shutting down Service API server...")
	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}

	if mainApiSrv != nil {
		fmt.Println("Shutting down Main API server...")
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}

	if backgroundTaskSrv != nil {
		fmt.Println("Shutting down Background Task server...")
		backgroundTaskSrv.Shutdown()
	}

	fmt.Println("Waiting for servers to stop...")
	wg.Wait()

	fmt.Println("Server gracefully stopped")
}

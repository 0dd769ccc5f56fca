package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"cardex/application"
	"cardex/config"
	"cardex/database"
	"cardex/domain/interfaces"
	"cardex/infrastructure"
	"cardex/infrastructure/observability"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting cardex service...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize NATS event publishing. The service keeps running without
	// NATS; events are dropped until the broker comes back
	log.Printf("Connecting to NATS at %s...", cfg.NATSServers)
	var eventPublisher interfaces.EventPublisher
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		log.Printf("Failed to connect to NATS, events will not be published: %v", err)
		eventPublisher = infrastructure.NewNoopEventPublisher()
	} else {
		defer natsClient.Close()
		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
		if err := natsPublisher.EnsureDomainEventStream(); err != nil {
			return fmt.Errorf("failed to ensure domain event stream: %w", err)
		}
		eventPublisher = natsPublisher
		log.Println("NATS connection established successfully")
	}

	// Initialize unit of work factory
	log.Println("Initializing unit of work factory...")
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)

	// Initialize exchange application
	app := application.NewExchangeApp(
		uowFactory,
		cfg.StartingBalance,
		time.Duration(cfg.ExchangeExpirationHours)*time.Hour,
	)

	// Start expiration worker
	worker := application.NewExpirationWorker(
		app,
		time.Duration(cfg.ExpirationCheckIntervalSeconds)*time.Second,
		observability.GetMetrics(),
	)
	stopWorker := worker.Start(ctx)

	// Wait for context cancellation
	log.Printf("Service is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down service...")
	stopWorker()

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics: %v", err)
	}

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}

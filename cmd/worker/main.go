package main

import (
	"context"
	"log"
	"os"

	"github.com/cx-tal-miterani/booking-assistant/internal/activities"
	"github.com/cx-tal-miterani/booking-assistant/internal/config"
	"github.com/cx-tal-miterani/booking-assistant/internal/repository"
	"github.com/cx-tal-miterani/booking-assistant/internal/workflows"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	log.Println("Connecting to database...")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	repo := repository.NewRepository(pool)
	if err := repo.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Connect to Temporal
	log.Printf("Connecting to Temporal at %s...", cfg.TemporalHost)
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHost,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Temporal: %v", err)
	}
	defer c.Close()
	log.Println("Connected to Temporal")

	w := worker.New(c, cfg.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.ConversationWorkflow)
	// Method names double as activity names
	w.RegisterActivity(activities.NewActivities(repo))

	log.Println("Starting Temporal worker...")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/otafleet/otafleet/internal/otafleetd/api"
	"github.com/otafleet/otafleet/internal/otafleetd/auth"
	"github.com/otafleet/otafleet/internal/otafleetd/config"
	"github.com/otafleet/otafleet/internal/otafleetd/db"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
	"github.com/otafleet/otafleet/internal/otafleetd/storage"
	"github.com/otafleet/otafleet/internal/otafleetd/store"
	"github.com/otafleet/otafleet/internal/otafleetd/tasks"
)

func main() {
	configPath := flag.String("config", "/etc/otafleet/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	log.Printf("Database initialized at %s", cfg.Database.Path)

	backend, err := newBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	if err := seedAdmin(cfg, database); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := tasks.NewRunner(
		store.NewTaskStore(database.DB),
		store.NewDeviceStore(database.DB),
		store.NewGroupStore(database.DB),
		cfg.Tasks.PollInterval,
	)
	go runner.Start(ctx)
	log.Printf("Task runner started (poll interval: %s)", cfg.Tasks.PollInterval)

	server, err := api.NewServer(cfg, database.DB, backend)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	log.Printf("Starting OTA Fleet API v%s on port %d", api.Version, cfg.Server.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func newBackend(cfg *config.Config) (storage.Backend, error) {
	if cfg.Storage.Type == "s3" {
		return storage.NewS3(context.Background(), storage.S3Options{
			Bucket:    cfg.Storage.S3Bucket,
			Region:    cfg.Storage.S3Region,
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.Storage.S3KeyID,
			SecretKey: cfg.Storage.S3KeySecret,
		})
	}
	return storage.NewLocal(cfg.Storage.Dir)
}

// seedAdmin creates the initial admin account on an empty install
func seedAdmin(cfg *config.Config, database *db.DB) error {
	users := store.NewUserStore(database.DB)

	n, err := users.Count()
	if err != nil || n > 0 {
		return err
	}

	password := cfg.Auth.InitialAdminPass
	if password == "" {
		password = "admin123"
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin, err := users.Create(&models.CreateUserRequest{
		Name:  "Administrator",
		Email: "admin@otafleet.local",
		Role:  models.RoleAdmin,
		// Password validation happens at the API layer; the seed path
		// hands the store a hash directly.
		Password: password,
	}, hash)
	if err != nil {
		return err
	}

	log.Printf("Seeded initial admin user %s", admin.Email)
	return nil
}

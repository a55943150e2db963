package main

import (
	"fmt"
	"log"
	"os"

	"github.com/zfogg/hypechain/backend/internal/config"
	"github.com/zfogg/hypechain/backend/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp(cfg)
	default:
		fmt.Println("Usage: migrate [up]")
		fmt.Println("  up     - Create or update tables and indexes")
		os.Exit(1)
	}
}

func runMigrationsUp(cfg *config.Config) {
	log.Printf("Connecting to %s database...", cfg.DBDriver)

	if err := database.Initialize(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("Running migrations...")
	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("All migrations completed successfully")
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/zfogg/hypechain/backend/internal/config"
	"github.com/zfogg/hypechain/backend/internal/kernel"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	var run func(context.Context, *seed.Seeder) error
	switch command {
	case "dev":
		run = seedWith(seed.DevOptions())
	case "test":
		run = seedWith(seed.TestOptions())
	case "clean":
		run = func(ctx context.Context, s *seed.Seeder) error { return s.Clean(ctx) }
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic chains")
		fmt.Println("  test  - Seed test database with minimal data")
		fmt.Println("  clean - Remove all attribution data (use with caution)")
		os.Exit(1)
	}

	k, err := kernel.Bootstrap(cfg, kernel.BootstrapOptions{Migrate: true})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	ctx := context.Background()
	defer func() { _ = k.Cleanup(ctx) }()

	if err := run(ctx, seed.NewSeeder(k.DB(), k.Engine(), 0)); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("seed %s finished", command)
}

func seedWith(opts seed.Options) func(context.Context, *seed.Seeder) error {
	return func(ctx context.Context, s *seed.Seeder) error {
		summary, err := s.Seed(ctx, opts)
		if err != nil {
			return err
		}
		log.Printf("created %d contents, %d shares, %d engagements, %d distributions (%d lamports)",
			summary.Contents, summary.Shares, summary.Engagements, summary.Distributions, summary.Lamports)
		return nil
	}
}

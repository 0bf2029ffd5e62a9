package main

import (
	"flag"
	"os"

	"github.com/oggyb/matcha/internal/config"
	"github.com/oggyb/matcha/internal/db"
	"github.com/oggyb/matcha/internal/logger"
)

func main() {
	minimal := flag.Bool("minimal", false, "seed the three-user fixture instead of the demo set")
	flag.Parse()

	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)

	database, err := db.NewDB(cfg)
	if err != nil {
		logger.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	seed := db.SeedTestData
	if *minimal {
		seed = db.SeedMinimalTestData
	}
	if err := seed(database); err != nil {
		logger.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	logger.Info("seeding completed", "password", db.SeedPassword)
}

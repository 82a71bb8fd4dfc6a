// migrate runs the embedded SQL migrations; use go run ./cmd/migrate [-direction down].
// MIGRATE_ON_START=true makes cmd/server apply pending "up" migrations itself.
package main

import (
	"flag"
	"os"

	"saas-control-plane/backend/internal/config"
	"saas-control-plane/backend/internal/db/migrate"
	"saas-control-plane/backend/internal/logger"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	log := logger.SetupDefault(os.Stderr, "info")
	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}
	log = logger.SetupDefault(os.Stderr, cfg.LogLevel)

	// Run treats "already at target version" as success.
	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Error("migrate", "direction", *direction, "error", err)
		os.Exit(1)
	}
	log.Info("migrations complete", "direction", *direction)
}

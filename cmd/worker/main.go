package main

import (
	"flag"
	stdlog "log"
	"time"

	"github.com/rs/zerolog/log"

	"deployd/internal/pkg/logger"
	"deployd/internal/platform/config"
	"deployd/internal/platform/database"
	"deployd/internal/platform/repositories"
)

// worker prunes deploy history past the configured retention. It runs
// alongside the server as its own process so a slow sweep never holds
// up a deploy.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	interval := flag.Duration("interval", time.Hour, "How often to sweep old deploy runs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging, "")

	db, err := database.Open(cfg.History)
	if err != nil {
		stdlog.Fatalf("Failed to open history database: %v", err)
	}
	defer db.Close()

	repo := repositories.NewDeployRunRepository(db)

	log.Info().Dur("interval", *interval).Dur("retention", cfg.History.Retention).Msg("history pruner starting")

	prune(repo, cfg.History.Retention)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for range ticker.C {
		prune(repo, cfg.History.Retention)
	}
}

func prune(repo *repositories.DeployRunRepository, retention time.Duration) {
	cutoff := time.Now().Add(-retention).Unix()
	pruned, err := repo.DeleteOlderThan(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune deploy history")
		return
	}
	if pruned > 0 {
		log.Info().Int64("pruned", pruned).Msg("pruned old deploy runs")
	}
}

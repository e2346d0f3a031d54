package main

import (
	"context"
	"flag"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/votechain/internal/config"
	"github.com/vncsmyrnk/votechain/internal/core/services"
)

// electionscheduler is meant to run from cron. Each run starts and ends the
// elections whose scheduled instants have passed; overlapping or repeated runs
// are harmless because the transitions are idempotent.
func main() {
	cfg := config.Load(logrus.StandardLogger())

	flag.StringVar(&cfg.Postgres.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&cfg.Postgres.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&cfg.Postgres.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&cfg.Postgres.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&cfg.Postgres.DBName, "db-name", cfg.Postgres.DBName, "Database name")
	timeout := flag.Duration("timeout", time.Minute, "Upper bound for one run")
	flag.Parse()

	log := config.NewLogger(cfg.LogLevel)

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Postgres.ConnString())
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	opts := services.Options{MaxRetries: cfg.MaxRetries, Logger: log}
	elections := postgres.NewElectionRepository(db, cfg.LockTimeout)
	lifecycle := services.NewLifecycleService(elections, opts)
	scheduler := services.NewSchedulerService(elections, lifecycle, services.SystemClock, opts)

	log.Info("Starting election scheduler run...")

	if err := scheduler.RunDue(ctx); err != nil {
		log.WithError(err).Fatal("scheduler run failed")
	}

	log.Info("Election scheduler run completed successfully.")
}

package main

import (
	"context"
	"flag"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/votechain/internal/config"
	"github.com/vncsmyrnk/votechain/internal/core/services"
)

// chainaudit replays every election's vote chain. Elections with a broken
// chain are halted and the process exits with status 2.
func main() {
	cfg := config.Load(logrus.StandardLogger())

	flag.StringVar(&cfg.Postgres.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&cfg.Postgres.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&cfg.Postgres.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&cfg.Postgres.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&cfg.Postgres.DBName, "db-name", cfg.Postgres.DBName, "Database name")
	timeout := flag.Duration("timeout", 5*time.Minute, "Upper bound for the audit")
	flag.Parse()

	log := config.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Postgres.ConnString())
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	opts := services.Options{MaxRetries: cfg.MaxRetries, Logger: log}
	elections := postgres.NewElectionRepository(db, cfg.LockTimeout)
	votes := postgres.NewVoteRepository(db)
	voting := services.NewVotingService(postgres.NewBallotStore(db, cfg.LockTimeout), votes, elections, services.SystemClock, opts)
	audit := services.NewAuditService(elections, voting, opts)

	log.Info("Starting chain audit...")

	reports, err := audit.AuditAll(ctx)
	if err != nil {
		log.WithError(err).Fatal("chain audit failed")
	}

	broken := 0
	for _, r := range reports {
		entry := log.WithFields(logrus.Fields{"election_id": r.ElectionID, "length": r.Length, "head": r.HeadHash})
		if r.Valid {
			entry.Info("chain intact")
			continue
		}
		broken++
		entry.WithFields(logrus.Fields{"first_broken_index": r.FirstBrokenIndex, "reason": r.Reason}).Error("chain broken")
	}

	if broken > 0 {
		db.Close()
		os.Exit(2)
	}
	log.Info("Chain audit completed successfully.")
}

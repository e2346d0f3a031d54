package main

import (
	"context"
	"errors"
	"flag"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/adapters/handler/http"
	"github.com/vncsmyrnk/votechain/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/votechain/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/votechain/internal/config"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
	"github.com/vncsmyrnk/votechain/internal/core/services"
)

type repositories struct {
	elections ports.ElectionRepository
	tokens    ports.TokenRepository
	ballots   ports.BallotStore
	votes     ports.VoteRepository
	close     func()
}

func main() {
	cfg := config.Load(logrus.StandardLogger())

	var addr, store string
	flag.StringVar(&addr, "addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&store, "store", "postgres", "Storage backend: postgres or memory")
	flag.Parse()

	log := config.NewLogger(cfg.LogLevel)
	if cfg.JWTSecret == "" {
		if store != "memory" {
			log.Fatal("JWT_SECRET must be set")
		}
		log.Warn("JWT_SECRET not set, authenticated routes will reject every request")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, store, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	defer repos.close()

	opts := services.Options{TokenTTL: cfg.TokenTTL, MaxRetries: cfg.MaxRetries, Logger: log}
	clock := services.SystemClock

	electionSvc := services.NewElectionService(repos.elections, clock, opts)
	lifecycleSvc := services.NewLifecycleService(repos.elections, opts)
	tokenSvc := services.NewTokenService(repos.elections, repos.tokens, clock, opts)
	votingSvc := services.NewVotingService(repos.ballots, repos.votes, repos.elections, clock, opts)
	tallySvc := services.NewTallyService(repos.elections, repos.votes)

	handler := http.NewHandler(
		http.NewElectionHandler(electionSvc, lifecycleSvc),
		http.NewTokenHandler(tokenSvc),
		http.NewVoteHandler(votingSvc, tallySvc),
		http.VoterAuth([]byte(cfg.JWTSecret)),
	)
	server := &stdhttp.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "store": store}).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("shutdown failed")
	}
}

func openRepositories(ctx context.Context, store string, cfg config.Config) (*repositories, error) {
	switch store {
	case "memory":
		s := memory.NewStore(memory.WithLockTimeout(cfg.LockTimeout))
		return &repositories{
			elections: s.Elections(),
			tokens:    s.Tokens(),
			ballots:   s.Ballots(),
			votes:     s.Votes(),
			close:     func() {},
		}, nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Postgres.ConnString())
		if err != nil {
			return nil, err
		}
		return &repositories{
			elections: postgres.NewElectionRepository(db, cfg.LockTimeout),
			tokens:    postgres.NewTokenRepository(db),
			ballots:   postgres.NewBallotStore(db, cfg.LockTimeout),
			votes:     postgres.NewVoteRepository(db),
			close:     func() { db.Close() },
		}, nil
	default:
		return nil, errors.New("unknown store " + store)
	}
}

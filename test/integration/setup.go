package integration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	handler "github.com/vncsmyrnk/votechain/internal/adapters/handler/http"
	repo "github.com/vncsmyrnk/votechain/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
	"github.com/vncsmyrnk/votechain/internal/core/services"
)

const jwtSecret = "test-secret"

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "../../internal/adapters/repository/postgres/migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		fullPath := filepath.Join(dirPath, entry.Name())
		content, err := os.ReadFile(fullPath)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		_, err = db.Exec(string(content))
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	DBContainer testcontainers.Container

	Elections ports.ElectionRepository
	Tokens    ports.TokenRepository
	Votes     ports.VoteRepository

	ElectionSvc  ports.ElectionService
	LifecycleSvc ports.LifecycleService
	TokenSvc     ports.TokenService
	VotingSvc    ports.VotingService
	TallySvc     ports.TallyService
	SchedulerSvc ports.SchedulerService
	AuditSvc     ports.AuditService
}

type appConfig struct {
	lockTimeout time.Duration
	maxRetries  uint64
}

func setupTestApp(t *testing.T) *TestApp {
	return setupTestAppWith(t, appConfig{maxRetries: 5})
}

func setupTestAppWith(t *testing.T, cfg appConfig) *TestApp {
	t.Helper()

	ctx := context.Background()
	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := repo.Open(ctx, dbURL)
	require.NoError(t, err)

	err = applyMigrations(db)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	opts := services.Options{MaxRetries: cfg.maxRetries, Logger: log}
	clock := services.SystemClock

	elections := repo.NewElectionRepository(db, cfg.lockTimeout)
	tokens := repo.NewTokenRepository(db)
	votes := repo.NewVoteRepository(db)
	ballots := repo.NewBallotStore(db, cfg.lockTimeout)

	electionSvc := services.NewElectionService(elections, clock, opts)
	lifecycleSvc := services.NewLifecycleService(elections, opts)
	tokenSvc := services.NewTokenService(elections, tokens, clock, opts)
	votingSvc := services.NewVotingService(ballots, votes, elections, clock, opts)
	tallySvc := services.NewTallyService(elections, votes)

	router := handler.NewHandler(
		handler.NewElectionHandler(electionSvc, lifecycleSvc),
		handler.NewTokenHandler(tokenSvc),
		handler.NewVoteHandler(votingSvc, tallySvc),
		handler.VoterAuth([]byte(jwtSecret)),
	)

	app := &TestApp{
		DB:           db,
		Server:       httptest.NewServer(router),
		DBContainer:  dbContainer,
		Elections:    elections,
		Tokens:       tokens,
		Votes:        votes,
		ElectionSvc:  electionSvc,
		LifecycleSvc: lifecycleSvc,
		TokenSvc:     tokenSvc,
		VotingSvc:    votingSvc,
		TallySvc:     tallySvc,
		SchedulerSvc: services.NewSchedulerService(elections, lifecycleSvc, clock, opts),
		AuditSvc:     services.NewAuditService(elections, votingSvc, opts),
	}
	t.Cleanup(func() { app.Teardown(t) })
	return app
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

func (app *TestApp) activeElection(t *testing.T, names ...string) *domain.Election {
	t.Helper()

	ctx := context.Background()
	input := ports.CreateElectionInput{Title: "Integration election", OwnerID: uuid.New()}
	for _, n := range names {
		input.Candidates = append(input.Candidates, ports.CandidateInput{Name: n})
	}
	election, err := app.ElectionSvc.Create(ctx, input)
	require.NoError(t, err)

	_, err = app.LifecycleSvc.StartElection(ctx, election.ID)
	require.NoError(t, err)
	return election
}

func (app *TestApp) issue(t *testing.T, voterID, electionID uuid.UUID) *domain.IssueResult {
	t.Helper()

	res, err := app.TokenSvc.IssueToken(context.Background(), voterID, electionID)
	require.NoError(t, err)
	return res
}

func createAccessToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(15 * time.Minute).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signedToken
}

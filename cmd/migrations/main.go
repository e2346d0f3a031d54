package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/votechain/internal/config"
)

// Usage: migrations [-down] <migration name>
func main() {
	cfg := config.Load(logrus.StandardLogger())
	log := config.NewLogger(cfg.LogLevel)

	down := flag.Bool("down", false, "Apply the down migration instead of the up one")
	dir := flag.String("dir", filepath.Join(".", "internal", "adapters", "repository", "postgres", "migrations"), "Migrations directory")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("a migration name is required.")
	}
	migrationName := flag.Arg(0)

	direction := "up"
	if *down {
		direction = "down"
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Postgres.ConnString())
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	fileContent, err := migrationFileContent(*dir, migrationName, direction)
	if err != nil {
		log.WithError(err).Fatal("failed to read migration")
	}

	if _, err := db.ExecContext(ctx, string(fileContent)); err != nil {
		log.WithError(err).Fatal("Failed to execute SQL file")
	}

	log.WithFields(logrus.Fields{"migration": migrationName, "direction": direction}).Info("Migration file executed successfully.")
}

func migrationFileContent(basePath, migrationName, direction string) ([]byte, error) {
	filePath, err := migrationFilePath(basePath, migrationName, direction)
	if err != nil {
		return nil, err
	}

	return os.ReadFile(filepath.Join(basePath, filePath))
}

func migrationFilePath(basePath, migrationName, direction string) (string, error) {
	patternStr := fmt.Sprintf(`^.*%s\.%s\.sql$`, regexp.QuoteMeta(migrationName), direction)

	regex, err := regexp.Compile(patternStr)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	files, err := os.ReadDir(basePath)
	if err != nil {
		return "", fmt.Errorf("failed to read migrations directory: %w", err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}

		if regex.MatchString(f.Name()) {
			return f.Name(), nil
		}
	}

	return "", fmt.Errorf("migration file not found")
}

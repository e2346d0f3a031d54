package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

const auditConcurrency = 8

type auditService struct {
	elections ports.ElectionRepository
	voting    ports.VotingService
	log       logrus.FieldLogger
}

func NewAuditService(elections ports.ElectionRepository, voting ports.VotingService, opts Options) ports.AuditService {
	opts = opts.withDefaults()
	return &auditService{
		elections: elections,
		voting:    voting,
		log:       opts.Logger,
	}
}

// AuditAll verifies every election's chain. Broken chains are reported, not
// returned as errors; the error covers failures to read the ledger.
func (s *auditService) AuditAll(ctx context.Context) ([]domain.ChainReport, error) {
	ids, err := s.elections.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch elections: %w", err)
	}

	var (
		mu      sync.Mutex
		reports = make([]domain.ChainReport, 0, len(ids))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(auditConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			report, err := s.voting.VerifyChain(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to verify election %s: %w", id, err)
			}
			mu.Lock()
			reports = append(reports, *report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}

	broken := 0
	for _, r := range reports {
		if !r.Valid {
			broken++
		}
	}
	s.log.WithFields(logrus.Fields{"elections": len(reports), "broken": broken}).Info("chain audit finished")

	return reports, nil
}


package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

type lifecycleService struct {
	repo       ports.ElectionRepository
	maxRetries uint64
	log        logrus.FieldLogger
}

func NewLifecycleService(repo ports.ElectionRepository, opts Options) ports.LifecycleService {
	opts = opts.withDefaults()
	return &lifecycleService{
		repo:       repo,
		maxRetries: opts.MaxRetries,
		log:        opts.Logger,
	}
}

func (s *lifecycleService) StartElection(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	return s.transition(ctx, id, domain.StatusActive)
}

func (s *lifecycleService) EndElection(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	return s.transition(ctx, id, domain.StatusCompleted)
}

func (s *lifecycleService) transition(ctx context.Context, id uuid.UUID, target domain.ElectionStatus) (*domain.Election, error) {
	log := s.log.WithFields(logrus.Fields{"election_id": id, "target": target})

	var (
		election *domain.Election
		changed  bool
	)
	err := retryConflicts(ctx, s.maxRetries, log, func() error {
		var err error
		election, changed, err = s.repo.Transition(ctx, id, target)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrElectionNotFound) {
			log.Error("lifecycle trigger for unknown election")
		} else {
			log.WithError(err).Error("lifecycle transition failed")
		}
		return nil, err
	}

	if changed {
		log.Info("election status changed")
	} else {
		log.WithField("status", election.Status).Debug("lifecycle trigger was a no-op")
	}
	return election, nil
}

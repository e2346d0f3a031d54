package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

type schedulerService struct {
	elections ports.ElectionRepository
	lifecycle ports.LifecycleService
	clock     ports.Clock
	log       logrus.FieldLogger
}

func NewSchedulerService(elections ports.ElectionRepository, lifecycle ports.LifecycleService, clock ports.Clock, opts Options) ports.SchedulerService {
	opts = opts.withDefaults()
	return &schedulerService{
		elections: elections,
		lifecycle: lifecycle,
		clock:     clock,
		log:       opts.Logger,
	}
}

// RunDue fires every start and end trigger whose instant has passed. Starts run
// before ends so an election whose whole window elapsed between runs still
// finishes as completed.
func (s *schedulerService) RunDue(ctx context.Context) error {
	now := s.clock.Now()

	startIDs, err := s.elections.ListStartDue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to fetch elections due to start: %w", err)
	}
	startErr := s.fire(ctx, startIDs, "start", s.lifecycle.StartElection)

	endIDs, err := s.elections.ListEndDue(ctx, now)
	if err != nil {
		return errors.Join(startErr, fmt.Errorf("failed to fetch elections due to end: %w", err))
	}
	endErr := s.fire(ctx, endIDs, "end", s.lifecycle.EndElection)

	s.log.WithFields(logrus.Fields{"started": len(startIDs), "ended": len(endIDs)}).Info("scheduler run finished")
	return errors.Join(startErr, endErr)
}

func (s *schedulerService) fire(ctx context.Context, ids []uuid.UUID, action string, trigger func(context.Context, uuid.UUID) (*domain.Election, error)) error {
	var wg sync.WaitGroup
	errChan := make(chan error, len(ids))

	for _, id := range ids {
		wg.Add(1)
		go func(electionID uuid.UUID) {
			defer wg.Done()
			if _, err := trigger(ctx, electionID); err != nil {
				errChan <- fmt.Errorf("failed to %s election %s: %w", action, electionID, err)
			}
		}(id)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

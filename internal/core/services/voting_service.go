package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

type votingService struct {
	store      ports.BallotStore
	votes      ports.VoteRepository
	elections  ports.ElectionRepository
	clock      ports.Clock
	maxRetries uint64
	log        logrus.FieldLogger
}

func NewVotingService(store ports.BallotStore, votes ports.VoteRepository, elections ports.ElectionRepository, clock ports.Clock, opts Options) ports.VotingService {
	opts = opts.withDefaults()
	return &votingService{
		store:      store,
		votes:      votes,
		elections:  elections,
		clock:      clock,
		maxRetries: opts.MaxRetries,
		log:        opts.Logger,
	}
}

type redeemFunc func(ctx context.Context, tx ports.BallotTx, now time.Time) (*domain.EligibilityToken, error)

func (s *votingService) CastVote(ctx context.Context, input ports.CastVoteInput) (*domain.VoteReceipt, error) {
	return s.cast(ctx, input.ElectionID, input.CandidateID, func(ctx context.Context, tx ports.BallotTx, now time.Time) (*domain.EligibilityToken, error) {
		return tx.RedeemByVoter(ctx, input.VoterID, now)
	})
}

// CastVoteWithSecret locates the token by the hash of the presented secret, so
// the cast itself never names the voter.
func (s *votingService) CastVoteWithSecret(ctx context.Context, input ports.SecretVoteInput) (*domain.VoteReceipt, error) {
	if input.Secret == "" {
		return nil, domain.ErrTokenNotFound
	}
	tokenHash := domain.HashSecret(input.Secret)
	return s.cast(ctx, input.ElectionID, input.CandidateID, func(ctx context.Context, tx ports.BallotTx, now time.Time) (*domain.EligibilityToken, error) {
		return tx.RedeemBySecretHash(ctx, tokenHash, now)
	})
}

func (s *votingService) cast(ctx context.Context, electionID, candidateID uuid.UUID, redeem redeemFunc) (*domain.VoteReceipt, error) {
	log := s.log.WithFields(logrus.Fields{"election_id": electionID, "candidate_id": candidateID})

	var record *domain.VoteRecord
	err := retryConflicts(ctx, s.maxRetries, log, func() error {
		record = nil
		return s.store.WithinElection(ctx, electionID, func(ctx context.Context, tx ports.BallotTx) error {
			election := tx.Election()
			if err := election.AcceptsVotes(); err != nil {
				return err
			}
			if !election.HasCandidate(candidateID) {
				return domain.ErrCandidateNotFound
			}

			now := s.clock.Now()
			if _, err := redeem(ctx, tx, now); err != nil {
				return err
			}

			prevHash, err := tx.Tail(ctx)
			if err != nil {
				return err
			}

			rec := domain.NewVoteRecord(electionID, candidateID, prevHash, now)
			if err := tx.Append(ctx, rec); err != nil {
				return err
			}
			record = rec
			return nil
		})
	})
	if err != nil {
		if isRejection(err) {
			log.WithError(err).Debug("vote rejected")
		} else {
			log.WithError(err).Error("vote casting failed")
		}
		return nil, err
	}

	log.WithField("vote_hash", record.VoteHash).Info("vote recorded")
	receipt := record.Receipt()
	return &receipt, nil
}

// VerifyChain replays the election's ledger. A broken chain halts the election.
func (s *votingService) VerifyChain(ctx context.Context, electionID uuid.UUID) (*domain.ChainReport, error) {
	if _, err := s.elections.GetByID(ctx, electionID); err != nil {
		return nil, err
	}

	records, err := s.votes.ListByElection(ctx, electionID)
	if err != nil {
		return nil, err
	}

	report := domain.VerifyChain(electionID, records)
	if report.Valid {
		return &report, nil
	}

	s.log.WithFields(logrus.Fields{
		"election_id":        electionID,
		"first_broken_index": report.FirstBrokenIndex,
		"reason":             report.Reason,
	}).Error("vote chain integrity violation, halting election")

	if err := s.elections.Halt(ctx, electionID, report.Reason); err != nil {
		return &report, err
	}
	return &report, nil
}

func (s *votingService) GetReceipt(ctx context.Context, electionID uuid.UUID, voteHash string) (*domain.ReceiptStatus, error) {
	return s.votes.FindReceipt(ctx, electionID, voteHash)
}

// isRejection reports the expected outcomes that are returned but not logged
// as failures.
func isRejection(err error) bool {
	for _, target := range []error{
		domain.ErrElectionNotFound,
		domain.ErrElectionNotActive,
		domain.ErrCandidateNotFound,
		domain.ErrTokenNotFound,
		domain.ErrTokenAlreadyUsed,
		domain.ErrTokenExpired,
		context.Canceled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

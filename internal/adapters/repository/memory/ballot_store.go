package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

var (
	_ ports.BallotStore = (*BallotStore)(nil)
	_ ports.BallotTx    = (*ballotTx)(nil)
)

type BallotStore struct {
	s *Store
}

// ballotTx stages its writes; nothing reaches the store until commit.
type ballotTx struct {
	s        *Store
	election *domain.Election
	burned   []tokenKey
	appended []domain.VoteRecord
}

func (b *BallotStore) WithinElection(ctx context.Context, electionID uuid.UUID, fn func(ctx context.Context, tx ports.BallotTx) error) error {
	release, err := b.s.lockElection(ctx, electionID)
	if err != nil {
		return err
	}
	defer release()

	b.s.mu.RLock()
	e, ok := b.s.elections[electionID]
	var election *domain.Election
	if ok {
		election = copyElection(e)
	}
	b.s.mu.RUnlock()
	if !ok {
		return domain.ErrElectionNotFound
	}

	tx := &ballotTx{s: b.s, election: election}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

func (tx *ballotTx) commit() error {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	for _, key := range tx.burned {
		t, ok := tx.s.tokens[key]
		if !ok {
			return domain.ErrTokenNotFound
		}
		if t.Used {
			return domain.ErrTokenAlreadyUsed
		}
	}
	for _, v := range tx.appended {
		if _, dup := tx.s.voteHashes[v.VoteHash]; dup {
			return fmt.Errorf("%w: duplicate vote hash", domain.ErrPersistence)
		}
	}

	for _, key := range tx.burned {
		tx.s.tokens[key].Used = true
	}
	for _, v := range tx.appended {
		tx.s.seq++
		v.Seq = tx.s.seq
		tx.s.votes[v.ElectionID] = append(tx.s.votes[v.ElectionID], v)
		tx.s.voteHashes[v.VoteHash] = struct{}{}
	}
	return nil
}

func (tx *ballotTx) Election() *domain.Election {
	return tx.election
}

func (tx *ballotTx) RedeemByVoter(ctx context.Context, voterID uuid.UUID, now time.Time) (*domain.EligibilityToken, error) {
	return tx.redeem(tokenKey{voterID: voterID, electionID: tx.election.ID}, now)
}

func (tx *ballotTx) RedeemBySecretHash(ctx context.Context, tokenHash string, now time.Time) (*domain.EligibilityToken, error) {
	tx.s.mu.RLock()
	key, ok := tx.s.tokenHashes[tokenHash]
	tx.s.mu.RUnlock()
	if !ok || key.electionID != tx.election.ID {
		return nil, domain.ErrTokenNotFound
	}
	return tx.redeem(key, now)
}

func (tx *ballotTx) redeem(key tokenKey, now time.Time) (*domain.EligibilityToken, error) {
	for _, k := range tx.burned {
		if k == key {
			return nil, domain.ErrTokenAlreadyUsed
		}
	}

	tx.s.mu.RLock()
	t, ok := tx.s.tokens[key]
	var token domain.EligibilityToken
	if ok {
		token = *t
	}
	tx.s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	if err := token.Redeemable(now); err != nil {
		return nil, err
	}

	tx.burned = append(tx.burned, key)
	token.Used = true
	return &token, nil
}

func (tx *ballotTx) Tail(ctx context.Context) (string, error) {
	if n := len(tx.appended); n > 0 {
		return tx.appended[n-1].VoteHash, nil
	}

	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()

	records := tx.s.votes[tx.election.ID]
	if len(records) == 0 {
		return domain.GenesisHash, nil
	}
	return records[len(records)-1].VoteHash, nil
}

func (tx *ballotTx) Append(ctx context.Context, record *domain.VoteRecord) error {
	if record.ElectionID != tx.election.ID {
		return fmt.Errorf("%w: record for election %s appended under election %s", domain.ErrInvalidInput, record.ElectionID, tx.election.ID)
	}
	tx.appended = append(tx.appended, *record)
	return nil
}

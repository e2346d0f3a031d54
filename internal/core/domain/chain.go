package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type ChainReport struct {
	ElectionID       uuid.UUID `json:"election_id"`
	Valid            bool      `json:"valid"`
	Length           int       `json:"length"`
	HeadHash         string    `json:"head_hash"`
	FirstBrokenIndex int       `json:"first_broken_index"`
	Reason           string    `json:"reason,omitempty"`
}

// VerifyChain replays records in insertion order. FirstBrokenIndex is -1 for a
// valid chain.
func VerifyChain(electionID uuid.UUID, records []VoteRecord) ChainReport {
	report := ChainReport{
		ElectionID:       electionID,
		Valid:            true,
		Length:           len(records),
		HeadHash:         GenesisHash,
		FirstBrokenIndex: -1,
	}

	prev := GenesisHash
	for i, r := range records {
		var reason string
		switch {
		case r.ElectionID != electionID:
			reason = fmt.Sprintf("record %d belongs to election %s", i, r.ElectionID)
		case r.PrevHash != prev:
			reason = fmt.Sprintf("record %d prev_hash %q does not match predecessor %q", i, r.PrevHash, prev)
		case ComputeVoteHash(r.PrevHash, r.CandidateID, r.ElectionID, r.CreatedAt) != r.VoteHash:
			reason = fmt.Sprintf("record %d vote_hash does not match its contents", i)
		}
		if reason != "" {
			report.Valid = false
			report.FirstBrokenIndex = i
			report.Reason = reason
			return report
		}
		prev = r.VoteHash
	}

	report.HeadHash = prev
	return report
}

func (r ChainReport) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: election %s: %s", ErrChainIntegrityViolation, r.ElectionID, r.Reason)
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the prev_hash of the first record of every election.
const GenesisHash = "GENESIS"

// VoteRecord is one link of an election's ledger. It carries no voter reference.
type VoteRecord struct {
	ID          uuid.UUID `json:"id"`
	Seq         int64     `json:"seq"`
	VoteHash    string    `json:"vote_hash"`
	PrevHash    string    `json:"prev_hash"`
	ElectionID  uuid.UUID `json:"election_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type VoteReceipt struct {
	VoteHash  string    `json:"vote_hash"`
	Timestamp time.Time `json:"timestamp"`
}

// ReceiptStatus is returned when a voter looks up their receipt.
type ReceiptStatus struct {
	VoteHash  string    `json:"vote_hash"`
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
}

// LedgerTime normalizes an instant to what the store can round-trip
// (UTC, microsecond precision) so the hash stays reproducible.
func LedgerTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func ComputeVoteHash(prevHash string, candidateID, electionID uuid.UUID, at time.Time) string {
	data := strings.Join([]string{
		prevHash,
		candidateID.String(),
		electionID.String(),
		LedgerTime(at).Format(time.RFC3339Nano),
	}, "|")
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// NewVoteRecord links a vote for candidateID onto prevHash.
func NewVoteRecord(electionID, candidateID uuid.UUID, prevHash string, at time.Time) *VoteRecord {
	at = LedgerTime(at)
	return &VoteRecord{
		ID:          uuid.New(),
		PrevHash:    prevHash,
		ElectionID:  electionID,
		CandidateID: candidateID,
		CreatedAt:   at,
		VoteHash:    ComputeVoteHash(prevHash, candidateID, electionID, at),
	}
}

func (v *VoteRecord) Receipt() VoteReceipt {
	return VoteReceipt{VoteHash: v.VoteHash, Timestamp: v.CreatedAt}
}

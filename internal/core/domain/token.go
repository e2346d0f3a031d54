package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"time"

	"github.com/google/uuid"
)

// SecretBytes is the entropy behind every raw token secret.
const SecretBytes = 32

type EligibilityToken struct {
	ID         uuid.UUID `json:"id"`
	TokenHash  string    `json:"-"`
	VoterID    uuid.UUID `json:"voter_id"`
	ElectionID uuid.UUID `json:"election_id"`
	Used       bool      `json:"used"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (t *EligibilityToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Redeemable checks a token without changing it.
func (t *EligibilityToken) Redeemable(now time.Time) error {
	if t.Used {
		return ErrTokenAlreadyUsed
	}
	if t.Expired(now) {
		return ErrTokenExpired
	}
	return nil
}

// NewSecret reads SecretBytes from r (crypto/rand when nil) and returns them URL-safe encoded.
func NewSecret(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, SecretBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func HashSecret(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(hash[:])
}

// IssueResult is what the voter gets back from issuance. Secret is empty when
// AlreadyIssued is set.
type IssueResult struct {
	VoterID       uuid.UUID `json:"voter_id"`
	ElectionID    uuid.UUID `json:"election_id"`
	Secret        string    `json:"voting_token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	AlreadyIssued bool      `json:"already_issued"`
}

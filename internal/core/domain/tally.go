package domain

import (
	"sort"

	"github.com/google/uuid"
)

type CandidateTally struct {
	CandidateID uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Count       int64     `json:"vote_count"`
	Position    int       `json:"-"`
}

type ElectionResult struct {
	ElectionID uuid.UUID        `json:"id"`
	Title      string           `json:"title"`
	Status     ElectionStatus   `json:"status"`
	TotalVotes int64            `json:"total_votes"`
	Results    []CandidateTally `json:"results"`
}

// SortTally orders by count descending, ties by candidate insertion order.
func SortTally(t []CandidateTally) {
	sort.SliceStable(t, func(i, j int) bool {
		if t[i].Count != t[j].Count {
			return t[i].Count > t[j].Count
		}
		return t[i].Position < t[j].Position
	})
}

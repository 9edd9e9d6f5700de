// Package domain contains arbitrage candidate types and sizing math.
package domain

import (
	"fmt"
	"strings"
	"time"

	marketDomain "github.com/apexarb/flasharb/business/market/domain"
)

// Candidate is an ordered cycle of pool snapshots starting and ending
// at the borrow token. Two legs for a simple candidate, three for a
// triangular one. Snapshots are immutable once captured.
type Candidate struct {
	Legs       []*marketDomain.Pool
	DetectedAt time.Time
}

// NewCandidate builds a candidate and checks that consecutive legs
// connect: each leg's output token is the next leg's input token, and
// the cycle closes.
func NewCandidate(legs ...*marketDomain.Pool) (*Candidate, error) {
	if len(legs) < 2 || len(legs) > 3 {
		return nil, fmt.Errorf("candidate needs 2 or 3 legs, got %d", len(legs))
	}
	for i, leg := range legs {
		next := legs[(i+1)%len(legs)]
		if leg.ID.TokenOut != next.ID.TokenIn {
			return nil, fmt.Errorf("leg %d output does not feed leg %d input", i, (i+1)%len(legs))
		}
	}
	return &Candidate{Legs: legs, DetectedAt: time.Now()}, nil
}

// Triangular reports whether the candidate has three legs.
func (c *Candidate) Triangular() bool {
	return len(c.Legs) == 3
}

// String renders the route for logs, e.g. "quickswap:A->B | sushi:B->A".
func (c *Candidate) String() string {
	parts := make([]string, 0, len(c.Legs))
	for _, leg := range c.Legs {
		parts = append(parts, leg.ID.String())
	}
	return strings.Join(parts, " | ")
}

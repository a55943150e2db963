// Package revenue splits an injected amount across a content's shares using
// exponential depth decay. Weights are 2^(maxDepth - depth) and every payout
// is floor(amount * weight / totalWeight); the rounding leftover goes to the
// first share so payouts always sum to the amount.
package revenue

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/zfogg/hypechain/backend/internal/models"
)

// MaxLamports is the largest amount accepted in one distribution (2^53 - 1),
// the ceiling JSON clients can represent exactly.
const MaxLamports int64 = 1<<53 - 1

var (
	ErrNoShares       = errors.New("no shares to distribute to")
	ErrInvalidAmount  = errors.New("amount must be a positive integer")
	ErrAmountTooLarge = fmt.Errorf("amount exceeds %d lamports", MaxLamports)
	ErrOverflow       = errors.New("distribution would overflow stored totals")
	ErrNegativeDepth  = errors.New("share depth cannot be negative")
)

// Payout is one share's cut of a distribution
type Payout struct {
	ShareID       string `json:"share_id"`
	WalletAddress string `json:"wallet_address"`
	ShareDepth    int    `json:"share_depth"`
	// WeightExponent is maxDepth - depth; the share's weight is 2^WeightExponent
	WeightExponent int   `json:"weight_exponent"`
	Amount         int64 `json:"amount"`
	NewTotal       int64 `json:"new_total"`
	// Prior is the earnings value the payout was computed against
	Prior int64 `json:"-"`
}

// Allocation is the full result of splitting one amount
type Allocation struct {
	Payouts     []Payout `json:"distributions"`
	Amount      int64    `json:"amount_distributed"`
	Remainder   int64    `json:"remainder_given_to_creator"`
	MaxDepth    int      `json:"max_depth"`
	TotalWeight *big.Int `json:"-"`
}

// Split allocates amount across shares in the order given. Callers pass
// shares sorted by depth, then creation, so the remainder lands on the
// creator. Deleted shares are weighted and paid like any other.
func Split(shares []*models.Share, amount int64) (*Allocation, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return nil, ErrNoShares
	}

	maxDepth := 0
	for _, s := range shares {
		if s.ShareDepth < 0 {
			return nil, fmt.Errorf("%w: share %s", ErrNegativeDepth, s.ID)
		}
		if s.ShareDepth > maxDepth {
			maxDepth = s.ShareDepth
		}
	}

	weights := make([]*big.Int, len(shares))
	totalWeight := new(big.Int)
	for i, s := range shares {
		weights[i] = Weight(maxDepth, s.ShareDepth)
		totalWeight.Add(totalWeight, weights[i])
	}

	alloc := &Allocation{
		Payouts:     make([]Payout, len(shares)),
		Amount:      amount,
		MaxDepth:    maxDepth,
		TotalWeight: totalWeight,
	}

	pool := big.NewInt(amount)
	assigned := int64(0)
	numerator := new(big.Int)
	quotient := new(big.Int)
	for i, s := range shares {
		numerator.Mul(pool, weights[i])
		quotient.Quo(numerator, totalWeight)
		raw := quotient.Int64() // never above amount
		assigned += raw
		alloc.Payouts[i] = Payout{
			ShareID:        s.ID,
			WalletAddress:  s.WalletAddress,
			ShareDepth:     s.ShareDepth,
			WeightExponent: maxDepth - s.ShareDepth,
			Amount:         raw,
			Prior:          s.EarningsLamports,
		}
	}

	alloc.Remainder = amount - assigned
	alloc.Payouts[0].Amount += alloc.Remainder

	for i := range alloc.Payouts {
		p := &alloc.Payouts[i]
		if p.Prior > math.MaxInt64-p.Amount {
			return nil, fmt.Errorf("%w: share %s", ErrOverflow, p.ShareID)
		}
		p.NewTotal = p.Prior + p.Amount
	}

	return alloc, nil
}

// Weight returns 2^(maxDepth - depth)
func Weight(maxDepth, depth int) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(maxDepth-depth))
}

// Sum adds up the payouts of an allocation
func (a *Allocation) Sum() int64 {
	var total int64
	for _, p := range a.Payouts {
		total += p.Amount
	}
	return total
}

// ValidateAmount rejects amounts outside [1, MaxLamports]
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxLamports {
		return ErrAmountTooLarge
	}
	return nil
}

// ParseAmount reads a decimal lamport amount. Fractions, exponents and
// anything outside [1, MaxLamports] are rejected.
func ParseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidAmount
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
			return 0, ErrAmountTooLarge
		}
		return 0, ErrInvalidAmount
	}
	if err := ValidateAmount(amount); err != nil {
		return 0, err
	}
	return amount, nil
}

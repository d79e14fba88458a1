package lottery

import (
	"fmt"

	"custodial-lottery/internal/models"
)

// OwnerFeeBasisPoints is the admin's cut of the balance per collection.
const OwnerFeeBasisPoints = 2

// CalculatePrizes applies the payout table to balance with truncating
// division.
func CalculatePrizes(balance models.Amount, payout models.PayoutStructure) (models.Prizes, error) {
	minor, ok := balance.MulDiv(payout.Minor, models.BasisPointsDenominator)
	if !ok {
		return models.Prizes{}, fmt.Errorf("%w: minor prize of %s", ErrInvariant, balance)
	}
	grand, ok := balance.MulDiv(payout.Grand, models.BasisPointsDenominator)
	if !ok {
		return models.Prizes{}, fmt.Errorf("%w: grand prize of %s", ErrInvariant, balance)
	}
	return models.Prizes{Minor: minor, Grand: grand}, nil
}

// OwnerFee is 2/10000 of balance, truncated.
func OwnerFee(balance models.Amount) (models.Amount, error) {
	fee, ok := balance.MulDiv(OwnerFeeBasisPoints, models.BasisPointsDenominator)
	if !ok {
		return fee, fmt.Errorf("%w: owner fee of %s", ErrInvariant, balance)
	}
	return fee, nil
}

// SplitEvenly returns the per-winner share of pool among n winners; the
// remainder stays in the pool.
func SplitEvenly(pool models.Amount, n uint64) models.Amount {
	if n == 0 {
		return models.Amount{}
	}
	share, _, _ := pool.DivMod(models.NewAmount(n))
	return share
}

package billing

import "fmt"

// AllocateProportional returns numerator/denominator of total in integer
// cents, rounded down. A zero denominator yields 0 so that zero-subtotal
// bills never divide by zero.
func AllocateProportional(totalCents, numeratorCents, denominatorCents int64) int64 {
	if denominatorCents == 0 {
		return 0
	}
	return totalCents * numeratorCents / denominatorCents
}

// SplitEven divides an amount across seats, rounding down. The remainder
// is not collected from anyone; with realistic bill sizes the loss is at
// most seats-1 cents.
func SplitEven(amountCents int64, seats int) (int64, error) {
	if seats <= 0 {
		return 0, fmt.Errorf("%w: seats must be at least 1", ErrInvalidArgument)
	}
	return amountCents / int64(seats), nil
}

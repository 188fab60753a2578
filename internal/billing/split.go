package billing

import "fmt"

type SplitMode int

const (
	ModeFull SplitMode = iota
	ModeSplitEven
	ModeMineOnly
)

func ParseSplitMode(s string) (SplitMode, error) {
	switch s {
	case "full":
		return ModeFull, nil
	case "split_even":
		return ModeSplitEven, nil
	case "mine_only":
		return ModeMineOnly, nil
	default:
		return 0, fmt.Errorf("%w: unknown payment mode %q", ErrInvalidArgument, s)
	}
}

func (m SplitMode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeSplitEven:
		return "split_even"
	case ModeMineOnly:
		return "mine_only"
	default:
		return "unknown"
	}
}

// BillSnapshot is the immutable view of a bill that a single payment
// attempt is priced against.
type BillSnapshot struct {
	SubtotalCents    int64
	TaxCents         int64
	ServiceFeeCents  int64
	SessionSubtotals map[string]int64
}

// SplitRequest carries the mode and its parameters for one attempt.
type SplitRequest struct {
	Mode      SplitMode
	Seats     int
	TipCents  int64
	SessionID string
}

// ResolveAmount computes the amount owed for one payment attempt. The tip
// is added in full to this attempt; it is never divided across seats or
// sessions.
func ResolveAmount(snap BillSnapshot, req SplitRequest) (int64, error) {
	if req.TipCents < 0 {
		return 0, fmt.Errorf("%w: tip must not be negative", ErrInvalidArgument)
	}

	base := snap.SubtotalCents + snap.TaxCents + snap.ServiceFeeCents

	switch req.Mode {
	case ModeFull:
		return base + req.TipCents, nil

	case ModeSplitEven:
		perSeat, err := SplitEven(base, req.Seats)
		if err != nil {
			return 0, err
		}
		return perSeat + req.TipCents, nil

	case ModeMineOnly:
		if req.SessionID == "" {
			return 0, fmt.Errorf("%w: session_id required for mine_only", ErrInvalidArgument)
		}
		mySubtotal := snap.SessionSubtotals[req.SessionID]
		if mySubtotal == 0 {
			return 0, fmt.Errorf("%w: nothing to charge for this session", ErrInvalidArgument)
		}
		myTax := AllocateProportional(snap.TaxCents, mySubtotal, snap.SubtotalCents)
		myFee := AllocateProportional(snap.ServiceFeeCents, mySubtotal, snap.SubtotalCents)
		return mySubtotal + myTax + myFee + req.TipCents, nil

	default:
		return 0, fmt.Errorf("%w: unknown payment mode", ErrInvalidArgument)
	}
}

package swap

import (
	"fmt"
	"math"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/AdonisPhusis/PNA-SWAP/internal/lp"
)

// amountTolerance is the relative deviation between the quoted and the
// locked delivery amount above which the lock is flagged.
const amountTolerance = 0.01

// Verification is the result of checking the counterparty's locks
// before the user secret may be disclosed. Any warning holds disclosure
// until the user explicitly confirms.
type Verification struct {
	DeliveryAmount float64
	Hashlocks      lp.Hashlocks
	LockTxRef      string
	Warnings       []string
}

// OK reports whether disclosure can proceed without user confirmation.
func (v *Verification) OK() bool {
	return len(v.Warnings) == 0
}

// VerifyLocks inspects the LP's reported lock state against what was
// agreed at init. Flags: delivery amount off by more than 1%, any of
// the three hash commitments missing, or no on-chain lock reference.
func VerifyLocks(s *Swap, status *lp.SwapStatus) *Verification {
	v := &Verification{}

	// Delivery amount: the LP's locked amount must match the quote.
	locked := status.EVMAmount
	if locked == 0 {
		locked = s.DeliveryAmount
	}
	v.DeliveryAmount = locked
	expected := s.ToAmount
	if expected > 0 && locked > 0 {
		if diff := math.Abs(locked-expected) / expected; diff > amountTolerance {
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("delivery amount mismatch: expected %g, locked %g", expected, locked))
		}
	}

	// Hash commitments: the LP's view may restate them; fall back to
	// the values agreed at init.
	hl := lp.Hashlocks{HUser: s.HUser, HLP1: s.HLP1, HLP2: s.HLP2}
	if status.Hashlocks != nil {
		if status.Hashlocks.HUser != "" {
			hl.HUser = status.Hashlocks.HUser
		}
		if status.Hashlocks.HLP1 != "" {
			hl.HLP1 = status.Hashlocks.HLP1
		}
		if status.Hashlocks.HLP2 != "" {
			hl.HLP2 = status.Hashlocks.HLP2
		}
	}
	v.Hashlocks = hl
	if !validCommitment(hl.HUser) || !validCommitment(hl.HLP1) || !validCommitment(hl.HLP2) {
		v.Warnings = append(v.Warnings,
			"missing or malformed hash commitment, counterparty may not have locked correctly")
	}

	// On-chain lock reference: a lock tx hash or a live contract id.
	if status.EVM != nil {
		if status.EVM.LockTxHash != "" {
			v.LockTxRef = status.EVM.LockTxHash
		} else if status.EVM.HTLCID != "" {
			v.LockTxRef = status.EVM.HTLCID
		}
	}
	if v.LockTxRef == "" && s.EscrowHTLCID != "" {
		v.LockTxRef = s.EscrowHTLCID
	}
	if v.LockTxRef == "" {
		v.Warnings = append(v.Warnings,
			"no on-chain lock reference, counterparty collateral not confirmed")
	}

	return v
}

// validCommitment checks that a hash commitment is 32 bytes of hex,
// with or without the 0x prefix some LPs attach.
func validCommitment(h string) bool {
	if h == "" {
		return false
	}
	if !strings.HasPrefix(h, "0x") {
		h = "0x" + h
	}
	b, err := hexutil.Decode(h)
	return err == nil && len(b) == ethcommon.HashLength
}

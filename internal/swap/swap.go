// Package swap coordinates one atomic cross-chain swap from the user's
// side: a three-secret hashlock protocol where the user's secret is
// disclosed only after the counterparty's on-chain locks are verified.
package swap

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// State is the coordinator's canonical swap state. LP wire states map
// onto this set; see MapWireState.
type State string

const (
	StateAwaitingDeposit    State = "awaiting_deposit"
	StateDepositDetected    State = "deposit_detected"
	StateCounterpartyLocked State = "counterparty_locked"
	StatePrimaryClaimed     State = "primary_claimed"
	StateCompleting         State = "completing"
	StateCompleted          State = "completed"
	StateFailed             State = "failed"
	StateExpired            State = "expired"
	StateRefunded           State = "refunded"
)

// Direction of the swap relative to the base chain.
type Direction string

const (
	DirectionForward Direction = "forward" // base-chain asset in, EVM asset out
	DirectionReverse Direction = "reverse" // EVM asset in, base-chain asset out
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnknownWireState  = errors.New("unknown wire state")
)

// validTransitions encodes the state machine. States are monotonic:
// deposit_detected is the only state that may be re-entered, carrying
// an updated confirmation-stability countdown. expired is reachable
// only while no counterparty collateral is committed; failed and
// refunded are reachable from any non-terminal state.
var validTransitions = map[State][]State{
	StateAwaitingDeposit: {
		StateDepositDetected,
		StateFailed,
		StateExpired,
		StateRefunded,
	},
	StateDepositDetected: {
		StateDepositDetected, // stability countdown refresh
		StateCounterpartyLocked,
		StateFailed,
		StateExpired,
		StateRefunded,
	},
	StateCounterpartyLocked: {
		StatePrimaryClaimed,
		StateCompleting,
		StateFailed,
		StateRefunded,
	},
	StatePrimaryClaimed: {
		StateCompleting,
		StateCompleted,
		StateFailed,
		StateRefunded,
	},
	StateCompleting: {
		StateCompleted,
		StateFailed,
		StateRefunded,
	},
	StateCompleted: {},
	StateFailed:    {},
	StateExpired:   {},
	StateRefunded:  {},
}

// IsTerminal reports whether a state ends the swap.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateExpired, StateRefunded:
		return true
	}
	return false
}

// Swap is one coordinated swap. On a per-leg route SwapIDOut and the
// output-LP fields are set and the relay guard flags track the
// exactly-once coordination steps.
type Swap struct {
	SwapID    string    `json:"swap_id"`
	SwapIDOut string    `json:"swap_id_out,omitempty"`
	PerLeg    bool      `json:"per_leg"`
	Direction Direction `json:"direction"`
	State     State     `json:"state"`

	FromAsset   string  `json:"from_asset"`
	ToAsset     string  `json:"to_asset"`
	FromAmount  float64 `json:"from_amount"`
	ToAmount    float64 `json:"to_amount"`
	DestAddress string  `json:"dest_address"`

	// LPInEndpoint serves the deposit-side leg (and the whole swap on a
	// full route); LPOutEndpoint serves the delivery-side leg.
	LPInEndpoint  string `json:"lp_in_endpoint"`
	LPOutEndpoint string `json:"lp_out_endpoint,omitempty"`
	LPInName      string `json:"lp_in_name,omitempty"`
	LPOutName     string `json:"lp_out_name,omitempty"`

	// Hash commitments of the three protocol secrets.
	HUser string `json:"H_user"`
	HLP1  string `json:"H_lp1"`
	HLP2  string `json:"H_lp2"`

	DepositAddress    string  `json:"deposit_address,omitempty"`
	DepositAmountSats int64   `json:"deposit_amount_sats,omitempty"`
	EscrowHTLCID      string  `json:"escrow_htlc_id,omitempty"`
	DeliveryAmount    float64 `json:"delivery_amount,omitempty"`

	// PlanExpiresAt is the unix time past which an unfunded plan lapses.
	// On a per-leg route it is the earlier of the two legs' expiries.
	PlanExpiresAt int64 `json:"plan_expires_at,omitempty"`

	// RouteDowngraded marks a swap that was priced per-leg but executed
	// on a single LP because per-leg coordination is unavailable for
	// its direction.
	RouteDowngraded bool `json:"route_downgraded,omitempty"`

	// Exactly-once guards for the per-leg relay steps.
	RailLockedNotified   bool `json:"rail_locked_notified,omitempty"`
	SecretDelivered      bool `json:"secret_delivered,omitempty"`
	PrimaryClaimNotified bool `json:"primary_claim_notified,omitempty"`

	Error string `json:"error,omitempty"`
}

// TransitionTo moves the swap to newState, enforcing the transition
// table. Transitioning a terminal swap or skipping backwards fails.
func (s *Swap) TransitionTo(newState State) error {
	allowed, ok := validTransitions[s.State]
	if !ok {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, s.State)
	}
	for _, next := range allowed {
		if next == newState {
			s.State = newState
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, newState)
}

// stateOrder ranks the progress states for Advance.
var stateOrder = map[State]int{
	StateAwaitingDeposit:    0,
	StateDepositDetected:    1,
	StateCounterpartyLocked: 2,
	StatePrimaryClaimed:     3,
	StateCompleting:         4,
	StateCompleted:          5,
}

// Advance moves the swap toward target, stepping through intermediate
// states when an update was missed (push delivery can skip over a poll
// interval). A target at or behind the current state is a duplicate or
// stale update and is ignored, except the deposit_detected re-entry
// which reports changed so the caller can refresh the stability
// countdown. Returns whether the state changed.
func (s *Swap) Advance(target State) (bool, error) {
	if target == s.State {
		if target == StateDepositDetected {
			return true, nil
		}
		return false, nil
	}
	if s.State.IsTerminal() {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, target)
	}

	switch target {
	case StateFailed, StateExpired, StateRefunded:
		if err := s.TransitionTo(target); err != nil {
			return false, err
		}
		return true, nil
	}

	ot, ok := stateOrder[target]
	if !ok {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, target)
	}
	oc := stateOrder[s.State]
	if ot < oc {
		return false, nil
	}
	for _, next := range []State{
		StateDepositDetected,
		StateCounterpartyLocked,
		StatePrimaryClaimed,
		StateCompleting,
		StateCompleted,
	} {
		o := stateOrder[next]
		if o <= oc || o > ot {
			continue
		}
		if err := s.TransitionTo(next); err != nil {
			return false, err
		}
	}
	return true, nil
}

// GenerateSecret creates the user secret: 32 random bytes hex-encoded,
// with its SHA-256 commitment over the raw bytes.
func GenerateSecret() (secret, commitment string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate secret: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(raw), hex.EncodeToString(sum[:]), nil
}

// wireStates maps every LP wire state onto the canonical state machine.
// The rail-locked wire state stays in deposit_detected: the input LP
// has locked, but the counterparty lock the user waits on is the output
// side's, which the relay triggers next.
var wireStates = map[string]State{
	"awaiting_btc":  StateAwaitingDeposit,
	"awaiting_usdc": StateAwaitingDeposit,
	"btc_funded":    StateDepositDetected,
	"usdc_funded":   StateDepositDetected,
	"m1_locked":     StateDepositDetected,
	"lp_locked":     StateCounterpartyLocked,
	"btc_claimed":   StatePrimaryClaimed,
	"completing":    StateCompleting,
	"completed":     StateCompleted,
	"failed":        StateFailed,
	"expired":       StateExpired,
	"refunded":      StateRefunded,
}

// MapWireState translates an LP wire state to the canonical state.
func MapWireState(wire string) (State, error) {
	s, ok := wireStates[wire]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownWireState, wire)
	}
	return s, nil
}

// WireRailLocked is the wire state that triggers the per-leg relay.
const WireRailLocked = "m1_locked"

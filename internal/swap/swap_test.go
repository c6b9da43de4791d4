package swap

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/AdonisPhusis/PNA-SWAP/internal/lp"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		{"deposit detected", StateAwaitingDeposit, StateDepositDetected, false},
		{"stability refresh", StateDepositDetected, StateDepositDetected, false},
		{"counterparty lock", StateDepositDetected, StateCounterpartyLocked, false},
		{"claim", StateCounterpartyLocked, StatePrimaryClaimed, false},
		{"settle", StatePrimaryClaimed, StateCompleting, false},
		{"complete", StateCompleting, StateCompleted, false},
		{"expire before deposit", StateAwaitingDeposit, StateExpired, false},
		{"expire during stability", StateDepositDetected, StateExpired, false},
		{"no expiry after lock", StateCounterpartyLocked, StateExpired, true},
		{"no expiry after claim", StatePrimaryClaimed, StateExpired, true},
		{"refund after lock", StateCounterpartyLocked, StateRefunded, false},
		{"refund before deposit", StateAwaitingDeposit, StateRefunded, false},
		{"no skipping backwards", StateCounterpartyLocked, StateDepositDetected, true},
		{"completed is terminal", StateCompleted, StateFailed, true},
		{"failed is terminal", StateFailed, StateCompleted, true},
		{"expired is terminal", StateExpired, StateDepositDetected, true},
		{"refunded is terminal", StateRefunded, StateCompleted, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Swap{State: tt.from}
			err := s.TransitionTo(tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TransitionTo(%s -> %s) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("error = %v, want ErrInvalidTransition", err)
			}
			if err == nil && s.State != tt.to {
				t.Errorf("state = %s, want %s", s.State, tt.to)
			}
		})
	}
}

func TestAdvanceSkipsMissedStates(t *testing.T) {
	s := &Swap{State: StateAwaitingDeposit}
	changed, err := s.Advance(StatePrimaryClaimed)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if !changed || s.State != StatePrimaryClaimed {
		t.Errorf("state = %s, changed = %v, want primary_claimed, true", s.State, changed)
	}
}

func TestAdvanceIgnoresStaleUpdates(t *testing.T) {
	s := &Swap{State: StateCounterpartyLocked}
	changed, err := s.Advance(StateDepositDetected)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if changed || s.State != StateCounterpartyLocked {
		t.Errorf("stale update changed state: %s, changed = %v", s.State, changed)
	}
}

func TestAdvanceDepositReentry(t *testing.T) {
	s := &Swap{State: StateDepositDetected}
	changed, err := s.Advance(StateDepositDetected)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if !changed {
		t.Error("deposit re-entry should report changed for the countdown refresh")
	}
}

func TestAdvanceDuplicateIgnored(t *testing.T) {
	for _, state := range []State{StateAwaitingDeposit, StateCounterpartyLocked, StateCompleting} {
		s := &Swap{State: state}
		changed, err := s.Advance(state)
		if err != nil {
			t.Fatalf("Advance(%s) error = %v", state, err)
		}
		if changed {
			t.Errorf("duplicate %s update reported changed", state)
		}
	}
}

func TestAdvanceTerminalRejected(t *testing.T) {
	s := &Swap{State: StateCompleted}
	if _, err := s.Advance(StateFailed); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Advance() on terminal swap error = %v, want ErrInvalidTransition", err)
	}
}

func TestAdvanceFailureFromAnywhere(t *testing.T) {
	for _, target := range []State{StateFailed, StateRefunded} {
		for _, state := range []State{StateAwaitingDeposit, StateDepositDetected, StateCounterpartyLocked, StateCompleting} {
			s := &Swap{State: state}
			changed, err := s.Advance(target)
			if err != nil || !changed {
				t.Errorf("Advance(%s) from %s: changed = %v, err = %v", target, state, changed, err)
			}
		}
	}
}

func TestGenerateSecret(t *testing.T) {
	secret, commitment, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	if len(secret) != 64 {
		t.Errorf("secret length = %d, want 64 hex chars", len(secret))
	}
	raw, err := hex.DecodeString(secret)
	if err != nil {
		t.Fatalf("secret is not hex: %v", err)
	}
	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != commitment {
		t.Errorf("commitment = %s, want sha256 over the raw bytes %s", commitment, got)
	}

	other, _, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	if other == secret {
		t.Error("two secrets came out identical")
	}
}

func TestMapWireState(t *testing.T) {
	tests := []struct {
		wire string
		want State
	}{
		{"awaiting_btc", StateAwaitingDeposit},
		{"awaiting_usdc", StateAwaitingDeposit},
		{"btc_funded", StateDepositDetected},
		{"usdc_funded", StateDepositDetected},
		{"m1_locked", StateDepositDetected},
		{"lp_locked", StateCounterpartyLocked},
		{"btc_claimed", StatePrimaryClaimed},
		{"completing", StateCompleting},
		{"completed", StateCompleted},
		{"failed", StateFailed},
		{"expired", StateExpired},
		{"refunded", StateRefunded},
	}
	for _, tt := range tests {
		got, err := MapWireState(tt.wire)
		if err != nil {
			t.Errorf("MapWireState(%q) error = %v", tt.wire, err)
			continue
		}
		if got != tt.want {
			t.Errorf("MapWireState(%q) = %s, want %s", tt.wire, got, tt.want)
		}
	}

	if _, err := MapWireState("banana"); !errors.Is(err, ErrUnknownWireState) {
		t.Errorf("MapWireState(banana) error = %v, want ErrUnknownWireState", err)
	}
}

func TestVerifyLocks(t *testing.T) {
	var (
		hUser = strings.Repeat("a", 64)
		hLP1  = strings.Repeat("b", 64)
		hLP2  = strings.Repeat("c", 64)
	)
	base := func() *Swap {
		return &Swap{
			State:    StateDepositDetected,
			ToAmount: 100,
			HUser:    hUser, HLP1: hLP1, HLP2: hLP2,
		}
	}
	cleanStatus := func() *lp.SwapStatus {
		return &lp.SwapStatus{
			State:     "lp_locked",
			EVMAmount: 100,
			Hashlocks: &lp.Hashlocks{HUser: hUser, HLP1: hLP1, HLP2: hLP2},
			EVM:       &lp.EVMDetail{LockTxHash: "0xlock"},
		}
	}

	t.Run("clean lock passes", func(t *testing.T) {
		v := VerifyLocks(base(), cleanStatus())
		if !v.OK() {
			t.Errorf("warnings = %v, want none", v.Warnings)
		}
		if v.LockTxRef != "0xlock" {
			t.Errorf("LockTxRef = %q, want 0xlock", v.LockTxRef)
		}
	})

	t.Run("small deviation tolerated", func(t *testing.T) {
		status := cleanStatus()
		status.EVMAmount = 99.5
		if v := VerifyLocks(base(), status); !v.OK() {
			t.Errorf("0.5%% deviation flagged: %v", v.Warnings)
		}
	})

	t.Run("large deviation flagged", func(t *testing.T) {
		status := cleanStatus()
		status.EVMAmount = 95
		v := VerifyLocks(base(), status)
		if v.OK() {
			t.Fatal("5% deviation not flagged")
		}
		if !strings.Contains(v.Warnings[0], "delivery amount mismatch") {
			t.Errorf("warning = %q", v.Warnings[0])
		}
	})

	t.Run("missing hashlock flagged", func(t *testing.T) {
		s := base()
		s.HLP2 = ""
		status := cleanStatus()
		status.Hashlocks.HLP2 = ""
		v := VerifyLocks(s, status)
		if v.OK() {
			t.Fatal("missing commitment not flagged")
		}
	})

	t.Run("malformed hashlock flagged", func(t *testing.T) {
		status := cleanStatus()
		status.Hashlocks.HLP1 = "not-hex"
		v := VerifyLocks(base(), status)
		if v.OK() {
			t.Fatal("malformed commitment not flagged")
		}
	})

	t.Run("prefixed hashlock accepted", func(t *testing.T) {
		status := cleanStatus()
		status.Hashlocks.HUser = "0x" + hUser
		if v := VerifyLocks(base(), status); !v.OK() {
			t.Errorf("0x-prefixed commitment flagged: %v", v.Warnings)
		}
	})

	t.Run("missing lock reference flagged", func(t *testing.T) {
		status := cleanStatus()
		status.EVM = nil
		v := VerifyLocks(base(), status)
		if v.OK() {
			t.Fatal("absent lock reference not flagged")
		}
	})

	t.Run("escrow id stands in for lock tx", func(t *testing.T) {
		s := base()
		s.EscrowHTLCID = "0xhtlc"
		status := cleanStatus()
		status.EVM = nil
		v := VerifyLocks(s, status)
		if !v.OK() {
			t.Errorf("warnings = %v, want none", v.Warnings)
		}
		if v.LockTxRef != "0xhtlc" {
			t.Errorf("LockTxRef = %q, want 0xhtlc", v.LockTxRef)
		}
	})
}

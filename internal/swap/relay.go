package swap

import (
	"context"
	"fmt"

	"github.com/AdonisPhusis/PNA-SWAP/internal/lp"
)

// The per-leg relay. Two independent LPs each run half the swap; the
// coordinator is the only party that can see both and must ferry three
// things between them: the input LP's rail lock to the output LP, the
// output LP's revealed secret back to the input LP, and the final
// base-chain claim proof forward again. Each step runs exactly once,
// guarded by a persisted flag, so a crash-resume never re-sends.

// runRailRelay handles the input LP locking on the rail chain: the
// output LP is told where the lock sits, reveals its secret in return,
// and that secret is delivered to the input LP so it can lock the
// counterparty collateral the user waits on.
func (c *Coordinator) runRailRelay(ctx context.Context, status *lp.SwapStatus) {
	c.mu.Lock()
	sw, out, in := c.current, c.lpOut, c.lpIn
	if sw == nil || (sw.RailLockedNotified && sw.SecretDelivered) {
		c.mu.Unlock()
		return
	}
	notified := sw.RailLockedNotified
	delivered := sw.SecretDelivered
	c.mu.Unlock()

	var ack *lp.RailLockAck
	if !notified {
		lockRef := status.RailLockRef()
		if lockRef == "" {
			c.log.Debug("rail lock reported without an outpoint, waiting for the next update")
			return
		}
		err := c.notifyPolicy.Do(ctx, func(ctx context.Context) error {
			var err error
			ack, err = out.NotifyRailLocked(ctx, sw.SwapIDOut, lockRef, sw.HLP1)
			return err
		})
		if err != nil {
			c.failSwap(fmt.Sprintf("output LP unreachable after rail lock (%s): %v", FundsSafeNote, err))
			return
		}

		c.mu.Lock()
		sw.RailLockedNotified = true
		if ack.EVMHTLCID != "" {
			sw.EscrowHTLCID = ack.EVMHTLCID
		}
		c.mu.Unlock()
		c.log.Info("output LP acknowledged rail lock", "swap_id_out", sw.SwapIDOut)
		c.persist()
	}

	if delivered {
		return
	}
	if ack == nil || ack.SLP2 == "" {
		// Crash-resumed past the notify step; the secret was consumed
		// with the ack and cannot be refetched. The input LP's own
		// timeout path takes over.
		c.failSwap(fmt.Sprintf("output LP secret unavailable for relay (%s)", FundsSafeNote))
		return
	}

	err := c.notifyPolicy.Do(ctx, func(ctx context.Context) error {
		return in.DeliverSecret(ctx, sw.SwapID, ack.SLP2)
	})
	if err != nil {
		c.failSwap(fmt.Sprintf("could not deliver the relay secret to the input LP (%s): %v", FundsSafeNote, err))
		return
	}

	c.mu.Lock()
	sw.SecretDelivered = true
	c.mu.Unlock()
	c.log.Info("relay secret delivered to input LP", "swap_id", sw.SwapID)
	c.persist()
}

// relayPrimaryClaim forwards the input LP's base-chain claim proof to
// the output LP: the claim transaction id plus the two secrets it
// revealed, which let the output LP release the delivery escrow.
func (c *Coordinator) relayPrimaryClaim(ctx context.Context, resp *lp.PresignResponse) {
	c.mu.Lock()
	sw, out, secret := c.current, c.lpOut, c.sUser
	if sw == nil || sw.PrimaryClaimNotified {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	err := c.notifyPolicy.Do(ctx, func(ctx context.Context) error {
		return out.NotifyPrimaryClaimed(ctx, sw.SwapIDOut, resp.BaseClaimTx, secret, resp.SLP1)
	})
	if err != nil {
		c.failSwap(fmt.Sprintf("output LP unreachable after the base-chain claim (%s): %v", FundsSafeNote, err))
		return
	}

	c.mu.Lock()
	sw.PrimaryClaimNotified = true
	c.mu.Unlock()
	c.log.Info("claim proof relayed to output LP", "swap_id_out", sw.SwapIDOut)
	c.persist()
}

// trackDelivery polls the output LP once the primary claim is relayed:
// user-facing completion on a per-leg route is the output leg paying
// out, not the input leg finishing.
func (c *Coordinator) trackDelivery(ctx context.Context) {
	c.mu.Lock()
	sw, out := c.current, c.lpOut
	c.mu.Unlock()
	if sw == nil || out == nil || sw.State.IsTerminal() {
		return
	}

	status, err := out.Status(ctx, sw.SwapIDOut)
	if err != nil {
		c.log.Debug("delivery status fetch failed", "swap_id_out", sw.SwapIDOut, "error", err)
		return
	}

	canonical, err := MapWireState(status.State)
	if err != nil {
		return
	}
	if canonical != StateCompleted && !canonical.IsTerminal() {
		return
	}

	c.mu.Lock()
	changed, err := sw.Advance(canonical)
	if status.Error != "" {
		sw.Error = status.Error
	}
	c.mu.Unlock()
	if err != nil || !changed {
		return
	}
	c.log.Info("delivery leg settled", "swap_id_out", sw.SwapIDOut, "state", canonical)
	c.persist()
	c.notifyUpdate()
	c.finalize()
}

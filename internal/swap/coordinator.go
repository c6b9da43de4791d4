package swap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AdonisPhusis/PNA-SWAP/internal/asset"
	"github.com/AdonisPhusis/PNA-SWAP/internal/lp"
	"github.com/AdonisPhusis/PNA-SWAP/internal/quote"
	"github.com/AdonisPhusis/PNA-SWAP/internal/retry"
	"github.com/AdonisPhusis/PNA-SWAP/internal/session"
	"github.com/AdonisPhusis/PNA-SWAP/internal/storage"
	"github.com/AdonisPhusis/PNA-SWAP/pkg/logging"
)

var (
	ErrSwapActive      = errors.New("a swap is already in flight")
	ErrNoActiveSwap    = errors.New("no active swap")
	ErrNothingPending  = errors.New("no verification pending")
	ErrDisclosureHeld  = errors.New("secret disclosure held pending verification")
	ErrSecretDisclosed = errors.New("secret already disclosed")
)

// FundsSafeNote is appended to commit-path failures so the user always
// knows where their collateral stands.
const FundsSafeNote = "your collateral remains safe and will refund after the timelock"

// notifyBackoffUnit spaces commit-path notification retries.
const notifyBackoffUnit = 3 * time.Second

// Config wires a Coordinator.
type Config struct {
	Sessions *session.Store   // required
	History  *storage.Storage // optional swap history
	Engine   *quote.Engine    // required for StartSwap

	LPTimeout      time.Duration // per LP request, default 4s
	PollInterval   time.Duration // status poll cadence, default 5s
	NotifyAttempts int           // commit-path notification bound, default 3

	// Gate decides whether to disclose the user secret after the
	// counterparty locks. Nil means auto-approve only when verification
	// raised no warnings; a flagged lock then waits for Confirm or
	// Decline.
	Gate func(*Verification) bool

	// PushConnected reports whether a realtime channel covers the
	// endpoint; polling is skipped while it does.
	PushConnected func(endpoint string) bool

	// OnUpdate receives a snapshot after every observable change.
	OnUpdate func(Swap)
}

// Coordinator drives one swap at a time through the state machine:
// route execution, lock verification, secret disclosure and the
// per-leg relay.
type Coordinator struct {
	cfg Config
	log *logging.Logger

	notifyPolicy retry.Policy

	mu         sync.Mutex
	current    *Swap
	sUser      string
	lpIn       *lp.Client
	lpOut      *lp.Client
	pending    *Verification
	disclosed  bool
	finalized  bool
	pollCancel context.CancelFunc
	done       chan struct{}
}

// NewCoordinator creates a coordinator from cfg, filling defaults.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.LPTimeout <= 0 {
		cfg.LPTimeout = 4 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.NotifyAttempts <= 0 {
		cfg.NotifyAttempts = 3
	}
	return &Coordinator{
		cfg: cfg,
		log: logging.Component("swap"),
		notifyPolicy: retry.Policy{
			MaxAttempts: cfg.NotifyAttempts,
			Backoff:     retry.LinearBackoff(notifyBackoffUnit),
			Retryable:   lp.IsRetryable,
		},
	}
}

// Active returns a snapshot of the in-flight swap, or nil.
func (c *Coordinator) Active() *Swap {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	snapshot := *c.current
	return &snapshot
}

// Done is closed when the active swap reaches a terminal state.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// StartSwap selects the best route for the pair and opens the swap on
// the chosen LP(s). Only one swap may be in flight; per-leg routes in
// the reverse direction are executed on a single LP instead, with the
// forfeited price advantage logged and marked on the swap.
func (c *Coordinator) StartSwap(ctx context.Context, from, to string, amount float64, dest string) (*Swap, error) {
	if err := asset.ValidatePair(from, to); err != nil {
		return nil, err
	}
	if err := asset.ValidateAddress(to, dest); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.current != nil && !c.current.State.IsTerminal() {
		c.mu.Unlock()
		return nil, ErrSwapActive
	}
	c.mu.Unlock()

	direction := DirectionForward
	if a, ok := asset.Get(from); ok && a.Kind == asset.KindEVM {
		direction = DirectionReverse
	}

	route, err := c.cfg.Engine.BestRoute(ctx, from, to, amount)
	if err != nil {
		return nil, err
	}

	downgraded := false
	if route.Type == quote.RoutePerLeg && direction == DirectionReverse {
		c.log.Warn("per-leg execution is unavailable for reverse swaps, falling back to a single LP",
			"forfeited_output", route.Quote.ToAmount)
		route, err = c.cfg.Engine.DirectRoute(ctx, from, to, amount)
		if err != nil {
			return nil, fmt.Errorf("single-LP fallback failed: %w", err)
		}
		downgraded = true
	}

	secret, commitment, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	var sw *Swap
	if route.Type == quote.RoutePerLeg {
		sw, err = c.initPerLeg(ctx, route, commitment, dest, amount)
	} else {
		sw, err = c.initFull(ctx, route, direction, commitment, dest, amount)
	}
	if err != nil {
		return nil, err
	}
	sw.RouteDowngraded = downgraded

	c.mu.Lock()
	c.current = sw
	c.sUser = secret
	c.pending = nil
	c.disclosed = false
	c.finalized = false
	c.lpIn = lp.New(sw.LPInEndpoint, c.cfg.LPTimeout)
	c.lpOut = nil
	if sw.PerLeg {
		c.lpOut = lp.New(sw.LPOutEndpoint, c.cfg.LPTimeout)
	}
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.log.Info("swap opened",
		"swap_id", sw.SwapID, "route", route.Type, "direction", direction,
		"from", from, "to", to, "amount", amount)

	c.persist()
	c.startPolling()
	snapshot := *sw
	return &snapshot, nil
}

// initFull opens a single-LP swap plan.
func (c *Coordinator) initFull(ctx context.Context, route *quote.Route, direction Direction, commitment, dest string, amount float64) (*Swap, error) {
	req := &lp.InitRequest{
		FromAsset: route.Quote.FromAsset,
		ToAsset:   route.Quote.ToAsset,
		Amount:    amount,
		HUser:     commitment,
	}
	if direction == DirectionForward {
		req.UserEVMAddress = dest
	} else {
		req.UserBaseClaimAddress = dest
	}

	client := lp.New(route.Quote.Endpoint, c.cfg.LPTimeout)
	resp, err := client.InitSwap(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("swap init rejected: %w", err)
	}

	sw := &Swap{
		SwapID:        resp.SwapID,
		Direction:     direction,
		State:         StateAwaitingDeposit,
		FromAsset:     route.Quote.FromAsset,
		ToAsset:       route.Quote.ToAsset,
		FromAmount:    amount,
		ToAmount:      route.Quote.ToAmount,
		DestAddress:   dest,
		LPInEndpoint:  route.Quote.Endpoint,
		LPInName:      route.Quote.LPName,
		HUser:         commitment,
		HLP1:          resp.Hashlocks.HLP1,
		HLP2:          resp.Hashlocks.HLP2,
		PlanExpiresAt: resp.PlanExpiresAt,
	}
	if resp.Deposit != nil {
		sw.DepositAddress = resp.Deposit.Address
		sw.DepositAmountSats = resp.Deposit.AmountSats
	}
	switch {
	case direction == DirectionForward && resp.EVMOutput != nil:
		sw.DeliveryAmount = resp.EVMOutput.Amount
	case direction == DirectionReverse && resp.BaseOutput != nil:
		sw.DeliveryAmount = resp.BaseOutput.AmountBTC
	default:
		sw.DeliveryAmount = route.Quote.ToAmount
	}
	return sw, nil
}

// initPerLeg opens both legs of a per-leg plan. The output leg goes
// first: its hash commitment and rail address are part of the input
// leg's plan, and opening it second would let the input LP lock against
// a commitment that does not exist yet.
func (c *Coordinator) initPerLeg(ctx context.Context, route *quote.Route, commitment, dest string, amount float64) (*Swap, error) {
	leg1, leg2 := route.Leg1, route.Leg2

	out := lp.New(leg2.Endpoint, c.cfg.LPTimeout)
	legAmount := leg2.FromAmount
	if legAmount == 0 {
		legAmount = leg1.ToAmount
	}
	outResp, err := out.InitLeg(ctx, &lp.InitLegRequest{
		Leg:            leg2.FromAsset + "/" + leg2.ToAsset,
		FromAsset:      leg2.FromAsset,
		ToAsset:        leg2.ToAsset,
		Amount:         legAmount,
		HUser:          commitment,
		UserEVMAddress: dest,
	})
	if err != nil {
		return nil, fmt.Errorf("output leg init rejected: %w", err)
	}

	in := lp.New(leg1.Endpoint, c.cfg.LPTimeout)
	inResp, err := in.InitLeg(ctx, &lp.InitLegRequest{
		Leg:           leg1.FromAsset + "/" + leg1.ToAsset,
		FromAsset:     leg1.FromAsset,
		ToAsset:       leg1.ToAsset,
		Amount:        amount,
		HUser:         commitment,
		HLPOther:      outResp.HLP2,
		LPOutRailAddr: outResp.RailAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("input leg init rejected: %w", err)
	}

	sw := &Swap{
		SwapID:        inResp.SwapID,
		SwapIDOut:     outResp.SwapID,
		PerLeg:        true,
		Direction:     DirectionForward,
		State:         StateAwaitingDeposit,
		FromAsset:     leg1.FromAsset,
		ToAsset:       leg2.ToAsset,
		FromAmount:    amount,
		ToAmount:      route.Quote.ToAmount,
		DestAddress:   dest,
		LPInEndpoint:  leg1.Endpoint,
		LPOutEndpoint: leg2.Endpoint,
		LPInName:      leg1.LPName,
		LPOutName:     leg2.LPName,
		HUser:         commitment,
		HLP1:          inResp.HLP1,
		HLP2:          outResp.HLP2,
		PlanExpiresAt: minExpiry(inResp.PlanExpiresAt, outResp.PlanExpiresAt),
	}
	if inResp.Deposit != nil {
		sw.DepositAddress = inResp.Deposit.Address
		sw.DepositAmountSats = inResp.Deposit.AmountSats
	}
	if outResp.EVMOutput != nil {
		sw.DeliveryAmount = outResp.EVMOutput.Amount
	} else {
		sw.DeliveryAmount = route.Quote.ToAmount
	}
	return sw, nil
}

// minExpiry returns the earlier of two plan expiries, ignoring zeros.
func minExpiry(a, b int64) int64 {
	if a == 0 {
		return b
	}
	if b == 0 || a < b {
		return a
	}
	return b
}

// Resume restores an interrupted swap from the session store and picks
// coordination back up without re-initializing anything on the LP.
// Returns false when there is nothing to resume.
func (c *Coordinator) Resume(ctx context.Context) (bool, error) {
	var sw Swap
	rec, err := c.cfg.Sessions.Load(&sw)
	if errors.Is(err, session.ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if sw.SwapID == "" || rec.Secret == "" {
		return false, nil
	}

	c.mu.Lock()
	if c.current != nil && !c.current.State.IsTerminal() {
		c.mu.Unlock()
		return false, ErrSwapActive
	}
	c.current = &sw
	c.sUser = rec.Secret
	c.pending = nil
	c.disclosed = sw.State == StatePrimaryClaimed || stateOrder[sw.State] > stateOrder[StatePrimaryClaimed]
	c.finalized = false
	c.lpIn = lp.New(sw.LPInEndpoint, c.cfg.LPTimeout)
	c.lpOut = nil
	if sw.PerLeg {
		c.lpOut = lp.New(sw.LPOutEndpoint, c.cfg.LPTimeout)
	}
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.log.Info("resuming swap from session", "swap_id", sw.SwapID, "state", sw.State)

	// Best-effort immediate refresh; the poll loop covers failures.
	if status, err := c.lpIn.Status(ctx, sw.SwapID); err == nil {
		c.HandleStatus(ctx, status)
	} else {
		c.log.Warn("swap recovery status fetch failed, polling", "error", err)
	}

	c.startPolling()
	return true, nil
}

// NotifyDeposited tells the LP to check for the user's deposit now.
func (c *Coordinator) NotifyDeposited(ctx context.Context) error {
	c.mu.Lock()
	sw, client := c.current, c.lpIn
	c.mu.Unlock()
	if sw == nil || sw.State.IsTerminal() {
		return ErrNoActiveSwap
	}

	ack, err := client.NotifyDeposit(ctx, sw.SwapID)
	if err != nil {
		return err
	}
	c.log.Info("deposit confirmed by LP", "confirmations", ack.Confirmations)
	c.applyWireState(ctx, ack.State, nil)
	return nil
}

// ConfirmEscrowFunded reports the user's own on-chain escrow to the LP
// (reverse direction). The notification is on the commit path, so it is
// retried against transient failures; exhaustion surfaces with the
// funds-safety note.
func (c *Coordinator) ConfirmEscrowFunded(ctx context.Context, htlcID string) error {
	c.mu.Lock()
	sw, client := c.current, c.lpIn
	if sw != nil {
		sw.EscrowHTLCID = htlcID
	}
	c.mu.Unlock()
	if sw == nil || sw.State.IsTerminal() {
		return ErrNoActiveSwap
	}

	err := c.notifyPolicy.Do(ctx, func(ctx context.Context) error {
		return client.NotifyEscrowFunded(ctx, sw.SwapID, htlcID)
	})
	if err != nil {
		return fmt.Errorf("LP could not verify the escrow (%s): %w", FundsSafeNote, err)
	}
	c.persist()
	return nil
}

// Confirm approves a held disclosure after the user reviewed the
// flagged lock details.
func (c *Coordinator) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return ErrNothingPending
	}
	c.pending = nil
	c.mu.Unlock()
	return c.disclose(ctx)
}

// Decline refuses a held disclosure. The secret is never sent; the swap
// stays in its current state and the deposit refunds via its timelock.
func (c *Coordinator) Decline() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return ErrNothingPending
	}
	c.pending = nil
	c.log.Warn("disclosure declined by user, secret not sent; deposit refunds after the timelock")
	return nil
}

// Pending returns the verification holding disclosure, or nil.
func (c *Coordinator) Pending() *Verification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Close stops coordination. A swap that never saw its deposit is
// abandoned and its secret forgotten; anything further along keeps its
// session so a restart can resume.
func (c *Coordinator) Close() {
	c.mu.Lock()
	cancel := c.pollCancel
	c.pollCancel = nil
	forget := c.current != nil && c.current.State == StateAwaitingDeposit
	c.sUser = ""
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if forget {
		if err := c.cfg.Sessions.Clear(); err != nil {
			c.log.Warn("failed to clear session", "error", err)
		}
	}
}

// startPolling launches the HTTP status fallback loop.
func (c *Coordinator) startPolling() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.pollCancel != nil {
		c.pollCancel()
	}
	c.pollCancel = cancel
	c.mu.Unlock()
	go c.pollLoop(ctx)
}

// pollLoop fetches swap status on a fixed cadence, standing down while
// a realtime channel delivers pushes for the same LP.
func (c *Coordinator) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		sw, client := c.current, c.lpIn
		c.mu.Unlock()
		if sw == nil || sw.State.IsTerminal() {
			return
		}

		// Lapse an unfunded plan locally; no collateral is committed
		// on either side before the counterparty lock.
		if c.expireIfLapsed() {
			return
		}
		if c.cfg.PushConnected != nil && c.cfg.PushConnected(sw.LPInEndpoint) {
			continue
		}

		status, err := client.Status(ctx, sw.SwapID)
		if err != nil {
			c.log.Debug("status poll failed", "swap_id", sw.SwapID, "error", err)
			continue
		}
		c.HandleStatus(ctx, status)
	}
}

// HandleStatus applies one observed LP status, from polling or from a
// realtime push. Duplicate and stale updates are ignored; the
// deposit_detected re-entry refreshes the stability countdown.
func (c *Coordinator) HandleStatus(ctx context.Context, status *lp.SwapStatus) {
	c.mu.Lock()
	sw := c.current
	if sw == nil || sw.State.IsTerminal() || (status.SwapID != "" && status.SwapID != sw.SwapID) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// The per-leg relay triggers on the raw wire state, before the
	// canonical advance: the input LP's rail lock is not yet the
	// counterparty lock the user waits on.
	if sw.PerLeg && status.State == WireRailLocked {
		c.runRailRelay(ctx, status)
	}

	c.applyWireState(ctx, status.State, status)
}

// applyWireState advances the state machine and dispatches the
// side effects of the new state.
func (c *Coordinator) applyWireState(ctx context.Context, wire string, status *lp.SwapStatus) {
	canonical, err := MapWireState(wire)
	if err != nil {
		c.log.Debug("ignoring unknown wire state", "state", wire)
		return
	}

	c.mu.Lock()
	sw := c.current
	if sw == nil {
		c.mu.Unlock()
		return
	}

	// Per-leg: the input LP finishing its side is not user-facing
	// completion; that is tracked on the output LP.
	if sw.PerLeg && canonical == StateCompleted {
		canonical = StateCompleting
	}

	changed, err := sw.Advance(canonical)
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("ignoring invalid state update", "from", sw.State, "to", canonical, "error", err)
		return
	}
	if status != nil {
		if status.Error != "" {
			sw.Error = status.Error
		}
		if status.EVM != nil && status.EVM.HTLCID != "" && sw.EscrowHTLCID == "" {
			sw.EscrowHTLCID = status.EVM.HTLCID
		}
	}
	state := sw.State
	perLeg := sw.PerLeg
	claimed := sw.PrimaryClaimNotified
	c.mu.Unlock()

	if changed {
		c.log.Info("swap state", "swap_id", sw.SwapID, "state", state)
		if state == StateDepositDetected && status != nil && status.StabilityCheckUntil > 0 {
			if remaining := time.Until(time.Unix(status.StabilityCheckUntil, 0)); remaining > 0 {
				c.log.Info("verifying deposit stability", "remaining", remaining.Truncate(time.Second))
			}
		}
		c.persist()
		c.notifyUpdate()
	}

	switch {
	case state == StateCounterpartyLocked && changed:
		c.maybeDisclose(ctx, status)
	case state.IsTerminal():
		c.finalize()
	case perLeg && claimed && stateOrder[state] >= stateOrder[StateCompleting]:
		c.trackDelivery(ctx)
	}
}

// maybeDisclose runs the verification gate and, if it passes, sends the
// user secret. A flagged lock holds disclosure until Confirm or
// Decline.
func (c *Coordinator) maybeDisclose(ctx context.Context, status *lp.SwapStatus) {
	c.mu.Lock()
	sw := c.current
	if sw == nil || c.disclosed {
		c.mu.Unlock()
		return
	}
	v := VerifyLocks(sw, status)
	approved := v.OK()
	if c.cfg.Gate != nil {
		approved = c.cfg.Gate(v)
	}
	if !approved {
		c.pending = v
		c.mu.Unlock()
		c.log.Warn("secret disclosure held", "warnings", v.Warnings)
		return
	}
	c.mu.Unlock()

	if err := c.disclose(ctx); err != nil {
		c.log.Error("secret disclosure failed", "error", err)
	}
}

// disclose sends the user secret to the input LP, exactly once. On a
// per-leg route the LP's response carries the claim proof and its own
// revealed secret, which are relayed to the output LP.
func (c *Coordinator) disclose(ctx context.Context) error {
	c.mu.Lock()
	sw, client, secret := c.current, c.lpIn, c.sUser
	if sw == nil {
		c.mu.Unlock()
		return ErrNoActiveSwap
	}
	if c.disclosed {
		c.mu.Unlock()
		return ErrSecretDisclosed
	}
	if sw.State != StateCounterpartyLocked {
		c.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrDisclosureHeld, sw.State)
	}
	c.disclosed = true
	c.mu.Unlock()

	var resp *lp.PresignResponse
	err := c.notifyPolicy.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = client.Presign(ctx, sw.SwapID, secret)
		return err
	})
	if err != nil {
		// The LP never accepted the secret, so nothing was committed.
		c.mu.Lock()
		c.disclosed = false
		c.mu.Unlock()
		return fmt.Errorf("presign rejected: %w", err)
	}

	c.log.Info("secret disclosed, settlement in progress", "swap_id", sw.SwapID)
	c.persist()

	if sw.PerLeg && resp.BaseClaimTx != "" && resp.SLP1 != "" {
		c.relayPrimaryClaim(ctx, resp)
	}
	if resp.State != "" {
		c.applyWireState(ctx, resp.State, nil)
	}
	return nil
}

// expireIfLapsed moves a pre-lock swap to expired once its plan expiry
// has passed. Post-lock expiry is the LP's call, not the client's.
func (c *Coordinator) expireIfLapsed() bool {
	c.mu.Lock()
	sw := c.current
	if sw == nil || sw.PlanExpiresAt == 0 || time.Now().Unix() < sw.PlanExpiresAt {
		c.mu.Unlock()
		return false
	}
	if stateOrder[sw.State] >= stateOrder[StateCounterpartyLocked] {
		c.mu.Unlock()
		return false
	}
	changed, err := sw.Advance(StateExpired)
	c.mu.Unlock()
	if err != nil || !changed {
		return false
	}
	c.log.Warn("swap plan expired before any collateral was locked", "swap_id", sw.SwapID)
	c.notifyUpdate()
	c.finalize()
	return true
}

// failSwap force-fails the active swap with a reason, after a
// coordination breakdown the protocol cannot recover from.
func (c *Coordinator) failSwap(reason string) {
	c.mu.Lock()
	sw := c.current
	if sw == nil || sw.State.IsTerminal() {
		c.mu.Unlock()
		return
	}
	sw.Error = reason
	if _, err := sw.Advance(StateFailed); err != nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.log.Error("swap failed", "swap_id", sw.SwapID, "reason", reason)
	c.notifyUpdate()
	c.finalize()
}

// finalize runs once when the swap goes terminal: polling stops, the
// session is cleared, the final state lands in history.
func (c *Coordinator) finalize() {
	c.mu.Lock()
	sw := c.current
	if sw == nil || c.finalized {
		c.mu.Unlock()
		return
	}
	c.finalized = true
	cancel := c.pollCancel
	c.pollCancel = nil
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := c.cfg.Sessions.Clear(); err != nil {
		c.log.Warn("failed to clear session", "error", err)
	}
	c.saveHistory()
	c.notifyUpdate()

	c.log.Info("swap finished", "swap_id", sw.SwapID, "state", sw.State, "error", sw.Error)
	if done != nil {
		close(done)
	}
}

// persist snapshots the swap to the session file and history.
func (c *Coordinator) persist() {
	c.mu.Lock()
	sw := c.current
	secret := c.sUser
	c.mu.Unlock()
	if sw == nil {
		return
	}
	if !sw.State.IsTerminal() {
		if err := c.cfg.Sessions.Save(secret, sw, sw.LPInEndpoint); err != nil {
			c.log.Warn("failed to save session", "error", err)
		}
	}
	c.saveHistory()
}

func (c *Coordinator) saveHistory() {
	if c.cfg.History == nil {
		return
	}
	c.mu.Lock()
	sw := c.current
	c.mu.Unlock()
	if sw == nil {
		return
	}

	routeType := "full"
	if sw.PerLeg {
		routeType = "perleg"
	}
	rec := &storage.SwapRecord{
		SwapID:     sw.SwapID,
		SwapIDOut:  sw.SwapIDOut,
		RouteType:  routeType,
		Direction:  string(sw.Direction),
		FromAsset:  sw.FromAsset,
		ToAsset:    sw.ToAsset,
		FromAmount: sw.FromAmount,
		ToAmount:   sw.ToAmount,
		State:      string(sw.State),
		LPEndpoint: sw.LPInEndpoint,
		Error:      sw.Error,
	}
	if err := c.cfg.History.SaveSwap(rec); err != nil {
		c.log.Warn("failed to record swap history", "error", err)
	}
}

func (c *Coordinator) notifyUpdate() {
	if c.cfg.OnUpdate == nil {
		return
	}
	c.mu.Lock()
	sw := c.current
	c.mu.Unlock()
	if sw != nil {
		c.cfg.OnUpdate(*sw)
	}
}

package lp

// Wire schemas for the LP HTTP API. Field names follow the LP protocol
// exactly; validate tags reject structurally broken responses at the
// boundary so the rest of the client never sees half-filled data.

// Info is the LP identity document served at /api/lp/info.
type Info struct {
	LPID      string             `json:"lp_id" validate:"required"`
	Name      string             `json:"name"`
	Pairs     []string           `json:"pairs"`
	Inventory map[string]float64 `json:"inventory"`

	// Endpoint is filled in by the caller, not the wire.
	Endpoint string `json:"-"`
}

// Quote is a priced offer for a pair, served at /api/quote and
// /api/quote/leg. A quote is immutable once received; refresh means
// fetching a new one.
type Quote struct {
	LPID       string  `json:"lp_id" validate:"required"`
	LPName     string  `json:"lp_name"`
	FromAsset  string  `json:"from_asset"`
	ToAsset    string  `json:"to_asset"`
	FromAmount float64 `json:"from_amount"`
	ToAmount   float64 `json:"to_amount" validate:"gte=0"`
	Rate       float64 `json:"rate"`
	RateMarket float64 `json:"rate_market"`
	Route      string  `json:"route"`
	SpreadPct  float64 `json:"spread_percent"`

	SettlementSeconds int            `json:"settlement_time_seconds"`
	SettlementHuman   string         `json:"settlement_time_human"`
	ConfsRequired     int            `json:"confirmations_required"`
	ConfsBreakdown    map[string]int `json:"confirmations_breakdown"`

	// InventoryOk is a tri-state: only an explicit false means the LP
	// cannot fill the order. Absent counts as fillable.
	InventoryOk *bool `json:"inventory_ok"`

	MinAmount float64 `json:"min_amount"`
	MaxAmount float64 `json:"max_amount"`

	Endpoint string `json:"-"`
}

// Fillable reports whether the LP claims enough inventory for this quote.
func (q *Quote) Fillable() bool {
	return q.InventoryOk == nil || *q.InventoryOk
}

// Hashlocks are the three hash commitments of a swap plan.
type Hashlocks struct {
	HUser string `json:"H_user"`
	HLP1  string `json:"H_lp1"`
	HLP2  string `json:"H_lp2"`
}

// DepositTerms describes where and how much the user must deposit on the
// base chain.
type DepositTerms struct {
	Address           string  `json:"address" validate:"required"`
	AmountSats        int64   `json:"amount_sats"`
	AmountBTC         float64 `json:"amount_btc"`
	InstantMinFeeRate int     `json:"instant_min_feerate"`
}

// EscrowTerms describes the EVM-side contract deposit the user must
// create for a reverse swap.
type EscrowTerms struct {
	Amount          float64 `json:"amount"`
	Recipient       string  `json:"recipient"`
	TimelockSeconds int64   `json:"timelock_seconds"`
	ContractAddress string  `json:"contract_address"`
}

// Payout is the amount the LP will deliver on the output side.
type Payout struct {
	Amount     float64 `json:"amount"`
	AmountBTC  float64 `json:"amount_btc"`
	AmountSats int64   `json:"amount_sats"`
}

// InitRequest opens a full-route swap at /api/flowswap/init.
type InitRequest struct {
	FromAsset string  `json:"from_asset" validate:"required"`
	ToAsset   string  `json:"to_asset" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	HUser     string  `json:"H_user" validate:"required,len=64,hexadecimal"`

	// Exactly one of these is set, depending on direction.
	UserEVMAddress       string `json:"user_usdc_address,omitempty"`
	UserBaseClaimAddress string `json:"user_btc_claim_address,omitempty"`
}

// InitResponse is the swap plan returned by /api/flowswap/init.
type InitResponse struct {
	SwapID        string        `json:"swap_id" validate:"required"`
	State         string        `json:"state" validate:"required"`
	Deposit       *DepositTerms `json:"btc_deposit"`
	Escrow        *EscrowTerms  `json:"usdc_deposit"`
	EVMOutput     *Payout       `json:"usdc_output"`
	BaseOutput    *Payout       `json:"btc_output"`
	Hashlocks     Hashlocks     `json:"hashlocks"`
	PlanExpiresAt int64         `json:"plan_expires_at"`
}

// InitLegRequest opens one leg of a per-leg route at /api/flowswap/init-leg.
type InitLegRequest struct {
	Leg       string  `json:"leg" validate:"required"`
	FromAsset string  `json:"from_asset" validate:"required"`
	ToAsset   string  `json:"to_asset" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	HUser     string  `json:"H_user" validate:"required,len=64,hexadecimal"`

	// Output-leg only.
	UserEVMAddress string `json:"user_usdc_address,omitempty"`

	// Input-leg only: the output LP's commitment and rail address.
	HLPOther      string `json:"H_lp_other,omitempty"`
	LPOutRailAddr string `json:"lp_out_m1_address,omitempty"`
}

// InitLegResponse is the per-leg plan returned by /api/flowswap/init-leg.
type InitLegResponse struct {
	SwapID string `json:"swap_id" validate:"required"`
	State  string `json:"state"`

	// Output leg returns its own commitment and rail deposit address.
	HLP2        string `json:"H_lp2,omitempty"`
	RailAddress string `json:"lp_m1_address,omitempty"`

	// Input leg returns its commitment and the deposit terms.
	HLP1    string        `json:"H_lp1,omitempty"`
	Deposit *DepositTerms `json:"btc_deposit,omitempty"`

	EVMOutput     *Payout `json:"usdc_output,omitempty"`
	PlanExpiresAt int64   `json:"plan_expires_at"`
}

// BaseChainDetail carries base-chain tx references on a status response.
type BaseChainDetail struct {
	FundTxID      string `json:"fund_txid"`
	ClaimTxID     string `json:"claim_txid"`
	ClaimConfs    int    `json:"claim_confs"`
	RefundTxID    string `json:"refund_txid"`
	RefundAddress string `json:"refund_address"`
}

// EVMDetail carries EVM-chain contract references on a status response.
type EVMDetail struct {
	HTLCID          string `json:"htlc_id"`
	LockTxHash      string `json:"lock_txhash"`
	ClaimTxHash     string `json:"claim_txhash"`
	ContractAddress string `json:"contract_address"`
}

// RailDetail carries the rail-chain lock reference on a status response.
type RailDetail struct {
	HTLCOutpoint string `json:"htlc_outpoint"`
}

// SwapStatus is the LP's view of a swap, served at /api/flowswap/{id}.
type SwapStatus struct {
	SwapID string `json:"swap_id"`
	State  string `json:"state" validate:"required"`
	Error  string `json:"error"`

	// StabilityCheckUntil is a unix timestamp; while in the future the
	// deposit is still inside its confirmation-stability window.
	StabilityCheckUntil int64 `json:"stability_check_until"`

	EVMAmount float64    `json:"usdc_amount"`
	Hashlocks *Hashlocks `json:"hashlocks"`

	Base *BaseChainDetail `json:"btc"`
	EVM  *EVMDetail       `json:"evm"`
	Rail *RailDetail      `json:"m1"`

	// Some LPs flatten the rail outpoint instead of nesting it.
	RailOutpoint string `json:"m1_htlc_outpoint"`
}

// RailLockRef returns the rail HTLC outpoint regardless of which wire
// shape the LP used.
func (s *SwapStatus) RailLockRef() string {
	if s.Rail != nil && s.Rail.HTLCOutpoint != "" {
		return s.Rail.HTLCOutpoint
	}
	return s.RailOutpoint
}

// DepositAck is the response to a deposit notification
// (/api/flowswap/{id}/btc-funded).
type DepositAck struct {
	State         string `json:"state" validate:"required"`
	Confirmations int    `json:"confirmations"`
	FundTxID      string `json:"btc_fund_txid"`
}

// escrowFundedRequest notifies the LP of the user's EVM escrow
// (/api/flowswap/{id}/usdc-funded).
type escrowFundedRequest struct {
	HTLCID string `json:"htlc_id"`
}

// presignRequest discloses the user secret (/api/flowswap/{id}/presign).
type presignRequest struct {
	SUser string `json:"S_user"`
}

// PresignResponse acknowledges secret disclosure. On a per-leg input leg
// it also reveals the claim proof and the input LP's secret, which the
// client relays onward.
type PresignResponse struct {
	State       string `json:"state"`
	BaseClaimTx string `json:"btc_claim_txid"`
	SLP1        string `json:"S_lp1"`
}

// railLockedRequest tells the output LP that the input LP's rail lock is
// on chain (/api/flowswap/{id}/m1-locked).
type railLockedRequest struct {
	RailOutpoint string `json:"m1_htlc_outpoint"`
	HLP1         string `json:"H_lp1"`
}

// RailLockAck is the output LP's response to a rail-locked notification:
// it locks its own side and reveals its secret for delivery to the
// input LP.
type RailLockAck struct {
	SLP2      string `json:"S_lp2" validate:"required"`
	EVMHTLCID string `json:"evm_htlc_id"`
}

// deliverSecretRequest hands the output LP's secret to the input LP
// (/api/flowswap/{id}/deliver-secret).
type deliverSecretRequest struct {
	SLP2 string `json:"S_lp2"`
}

// claimForwardRequest relays the input-leg claim proof and revealed
// secrets to the output LP (/api/flowswap/{id}/btc-claimed).
type claimForwardRequest struct {
	BaseClaimTx string `json:"btc_claim_txid"`
	SUser       string `json:"S_user"`
	SLP1        string `json:"S_lp1"`
}

// SwapSummary is one row of an LP's public recent-swap list
// (/api/swaps).
type SwapSummary struct {
	SwapID      string  `json:"swap_id" validate:"required"`
	Status      string  `json:"status"`
	FromAsset   string  `json:"from_asset"`
	ToAsset     string  `json:"to_asset"`
	FromAmount  float64 `json:"from_amount"`
	ToAmount    float64 `json:"to_amount"`
	FromDisplay string  `json:"from_display"`
	ToDisplay   string  `json:"to_display"`
	RateDisplay string  `json:"rate_display"`
	CreatedAt   int64   `json:"created_at"`
	DurationSec int64   `json:"duration_seconds"`

	BaseFundTxID  string `json:"btc_fund_txid"`
	BaseClaimTxID string `json:"btc_claim_txid"`
	EVMClaimTx    string `json:"evm_claim_txhash"`
}

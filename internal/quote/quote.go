// Package quote implements route selection: fan out quote requests to
// every routable LP, filter by claimed inventory, and pick the route
// that maximizes the user's output. A route is either direct through a
// single LP or composed of two legs through the rail asset, possibly on
// different LPs.
package quote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/AdonisPhusis/PNA-SWAP/internal/asset"
	"github.com/AdonisPhusis/PNA-SWAP/internal/lp"
	"github.com/AdonisPhusis/PNA-SWAP/pkg/logging"
)

var (
	// ErrNoAmount means the requested amount was zero or negative. No
	// network calls are made in that case.
	ErrNoAmount = errors.New("amount must be positive")

	// ErrNoRoute means no LP produced a usable quote and no rejection
	// carried an explanation.
	ErrNoRoute = errors.New("no route available")
)

// sameLPBias is the relative output difference below which both legs of
// a per-leg route are kept on one LP. A single LP runs one atomic swap
// instead of two coordinated legs.
const sameLPBias = 0.001

// RouteType distinguishes direct from per-leg routes.
type RouteType string

const (
	RouteFull   RouteType = "full"
	RoutePerLeg RouteType = "perleg"
)

// Route is the selected way to swap: the composed quote the user sees,
// plus the underlying legs when the route is per-leg.
type Route struct {
	Type  RouteType
	Quote *lp.Quote

	// Per-leg only: leg1 is deposit asset to rail, leg2 rail to
	// destination asset.
	Leg1 *lp.Quote
	Leg2 *lp.Quote
}

// Engine selects routes across the currently routable LPs.
type Engine struct {
	endpoints func() []string
	timeout   time.Duration
	log       *logging.Logger
}

// NewEngine creates an engine. endpoints is consulted on every request
// so registry updates take effect immediately; timeout bounds each
// individual LP call.
func NewEngine(endpoints func() []string, timeout time.Duration) *Engine {
	return &Engine{
		endpoints: endpoints,
		timeout:   timeout,
		log:       logging.Component("quote"),
	}
}

// BestRoute finds the route with the highest output for the pair and
// amount. Direct and per-leg candidates are priced in parallel; the
// per-leg route wins only when its output is strictly greater, so ties
// go to the simpler direct route. Pairs touching the rail asset are
// always direct.
func (e *Engine) BestRoute(ctx context.Context, from, to string, amount float64) (*Route, error) {
	if amount <= 0 {
		return nil, ErrNoAmount
	}

	if from == asset.Rail || to == asset.Rail {
		q, err := e.direct(ctx, from, to, amount)
		if err != nil {
			return nil, err
		}
		return &Route{Type: RouteFull, Quote: q}, nil
	}

	var (
		wg        sync.WaitGroup
		directQ   *lp.Quote
		directErr error
		perLeg    *Route
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		directQ, directErr = e.direct(ctx, from, to, amount)
	}()
	go func() {
		defer wg.Done()
		perLeg = e.perLeg(ctx, from, to, amount)
	}()
	wg.Wait()

	if directQ == nil && perLeg == nil {
		if directErr != nil {
			return nil, directErr
		}
		return nil, ErrNoRoute
	}
	if perLeg == nil {
		return &Route{Type: RouteFull, Quote: directQ}, nil
	}
	if directQ == nil {
		return perLeg, nil
	}

	if perLeg.Quote.ToAmount > directQ.ToAmount {
		e.log.Debug("per-leg route wins",
			"perleg", perLeg.Quote.ToAmount, "direct", directQ.ToAmount)
		return perLeg, nil
	}
	e.log.Debug("direct route wins",
		"direct", directQ.ToAmount, "perleg", perLeg.Quote.ToAmount)
	return &Route{Type: RouteFull, Quote: directQ}, nil
}

// ReferenceRate prices a small probe amount for rate display. The probe
// size is per-asset so the quote stays inside every LP's limits.
func (e *Engine) ReferenceRate(ctx context.Context, from, to string) (*Route, error) {
	probe := 1.0
	if a, ok := asset.Get(from); ok && a.ProbeAmount > 0 {
		probe = a.ProbeAmount
	}
	return e.BestRoute(ctx, from, to, probe)
}

// WatchRate re-prices the pair's reference rate on a fixed interval,
// invoking fn with each fresh route; the first pricing happens
// immediately. A failed refresh is logged and skipped so a transient
// LP outage does not end the watch. Blocks until ctx is done.
func (e *Engine) WatchRate(ctx context.Context, from, to string, interval time.Duration, fn func(*Route)) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		route, err := e.ReferenceRate(ctx, from, to)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.log.Debug("reference rate refresh failed", "from", from, "to", to, "error", err)
		} else {
			fn(route)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DirectRoute prices only the single-LP route, skipping per-leg
// composition. Used when per-leg execution is unavailable for a swap
// direction and the selection must be downgraded.
func (e *Engine) DirectRoute(ctx context.Context, from, to string, amount float64) (*Route, error) {
	if amount <= 0 {
		return nil, ErrNoAmount
	}
	q, err := e.direct(ctx, from, to, amount)
	if err != nil {
		return nil, err
	}
	return &Route{Type: RouteFull, Quote: q}, nil
}

// direct fans the quote request out to every routable LP and picks the
// best fillable offer. When every LP rejects, the first rejection is
// returned so the caller can surface its reason; when LPs respond but
// none can fill, the rejection names the best available maximum.
func (e *Engine) direct(ctx context.Context, from, to string, amount float64) (*lp.Quote, error) {
	quotes, firstRej := e.fanOut(ctx, from, to, amount, false)

	if len(quotes) == 0 {
		if firstRej != nil {
			return nil, firstRej
		}
		return nil, ErrNoRoute
	}

	fillable := filterFillable(quotes)
	if len(fillable) == 0 {
		bestMax := 0.0
		for _, q := range quotes {
			bestMax = math.Max(bestMax, q.MaxAmount)
		}
		return nil, &lp.RejectionError{
			Detail: fmt.Sprintf("insufficient inventory, best available maximum: %g %s", bestMax, from),
			Reason: lp.ReasonAboveMaximum,
			Limit:  bestMax,
		}
	}

	best := fillable[0]
	for _, q := range fillable[1:] {
		if q.ToAmount > best.ToAmount {
			best = q
		}
	}
	return best, nil
}

// perLeg composes a two-leg route through the rail asset: price the
// input leg, feed its output into the output leg, then apply the
// same-LP bias. Any failure disqualifies the per-leg candidate without
// failing the overall selection.
func (e *Engine) perLeg(ctx context.Context, from, to string, amount float64) *Route {
	leg1Quotes, _ := e.fanOut(ctx, from, asset.Rail, amount, true)
	best1 := selectBestLeg(leg1Quotes)
	if best1 == nil {
		return nil
	}

	leg2Quotes, _ := e.fanOut(ctx, asset.Rail, to, best1.ToAmount, true)
	best2 := selectBestLeg(leg2Quotes)
	if best2 == nil {
		return nil
	}

	// Same-LP bias: when a second-leg quote from the first leg's LP is
	// within 0.1% of the best, keep both legs on one LP.
	if best1.LPID != best2.LPID {
		for _, q := range leg2Quotes {
			if q.LPID != best1.LPID || !q.Fillable() {
				continue
			}
			diff := math.Abs(best2.ToAmount - q.ToAmount)
			if diff <= best2.ToAmount*sameLPBias {
				e.log.Debug("same-LP bias applied", "lp", best1.LPName, "diff", diff)
				best2 = q
			}
			break
		}
	}

	return &Route{
		Type:  RoutePerLeg,
		Quote: composeQuote(from, to, amount, best1, best2),
		Leg1:  best1,
		Leg2:  best2,
	}
}

// fanOut queries every routable LP in parallel. Transport errors are
// dropped; the first business rejection is kept for error reporting.
func (e *Engine) fanOut(ctx context.Context, from, to string, amount float64, leg bool) ([]*lp.Quote, *lp.RejectionError) {
	endpoints := e.endpoints()
	if len(endpoints) == 0 {
		return nil, nil
	}

	type result struct {
		quote *lp.Quote
		rej   *lp.RejectionError
	}
	results := make([]result, len(endpoints))

	var wg sync.WaitGroup
	for i, endpoint := range endpoints {
		wg.Add(1)
		go func(i int, endpoint string) {
			defer wg.Done()
			client := lp.New(endpoint, e.timeout)
			var q *lp.Quote
			var err error
			if leg {
				q, err = client.LegQuote(ctx, from, to, amount)
			} else {
				q, err = client.Quote(ctx, from, to, amount)
			}
			if err != nil {
				var rej *lp.RejectionError
				if errors.As(err, &rej) {
					results[i].rej = rej
				} else {
					e.log.Debug("quote fetch failed", "endpoint", endpoint, "error", err)
				}
				return
			}
			results[i].quote = q
		}(i, endpoint)
	}
	wg.Wait()

	var quotes []*lp.Quote
	var firstRej *lp.RejectionError
	for _, r := range results {
		if r.quote != nil {
			quotes = append(quotes, r.quote)
		}
		if r.rej != nil && firstRej == nil {
			firstRej = r.rej
		}
	}
	return quotes, firstRej
}

// selectBestLeg picks the fillable leg quote with the highest output.
func selectBestLeg(quotes []*lp.Quote) *lp.Quote {
	fillable := filterFillable(quotes)
	if len(fillable) == 0 {
		return nil
	}
	best := fillable[0]
	for _, q := range fillable[1:] {
		if q.ToAmount > best.ToAmount {
			best = q
		}
	}
	return best
}

func filterFillable(quotes []*lp.Quote) []*lp.Quote {
	var out []*lp.Quote
	for _, q := range quotes {
		if q.Fillable() {
			out = append(out, q)
		}
	}
	return out
}

// composeQuote synthesizes the user-facing quote for a per-leg route.
// The market rate is backed out of the combined spread.
func composeQuote(from, to string, amount float64, leg1, leg2 *lp.Quote) *lp.Quote {
	effectiveRate := leg2.ToAmount / amount
	totalSpread := leg1.SpreadPct + leg2.SpreadPct
	marketRate := effectiveRate
	if frac := totalSpread / 100; frac < 1 {
		marketRate = effectiveRate / (1 - frac)
	}

	fillable := true
	settlement := leg1.SettlementSeconds + leg2.SettlementSeconds
	return &lp.Quote{
		LPID:       leg1.LPID + "+" + leg2.LPID,
		LPName:     leg1.LPName + " + " + leg2.LPName,
		FromAsset:  from,
		ToAsset:    to,
		FromAmount: amount,
		ToAmount:   leg2.ToAmount,
		Rate:       effectiveRate,
		RateMarket: marketRate,
		Route: fmt.Sprintf("%s → %s (%s) → %s (%s)",
			from, asset.Rail, leg1.LPName, to, leg2.LPName),
		SpreadPct:         totalSpread,
		SettlementSeconds: settlement,
		SettlementHuman:   fmt.Sprintf("~%d min", (settlement+59)/60),
		ConfsRequired:     leg1.ConfsRequired,
		ConfsBreakdown:    leg1.ConfsBreakdown,
		InventoryOk:       &fillable,
		MinAmount:         leg1.MinAmount,
		MaxAmount:         leg1.MaxAmount,
	}
}

package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeLP serves /api/quote and /api/quote/leg from static rate tables.
type fakeLP struct {
	id   string
	name string
	// direct output per "from>to" pair
	direct map[string]float64
	// leg output per "from>to" pair; legs echo a proportional output
	legRate map[string]float64
	// pairs the LP reports as out of inventory
	noInventory map[string]bool
	// pairs the LP rejects outright, value is the detail message
	reject map[string]string

	requests int64
}

func (f *fakeLP) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(w http.ResponseWriter, r *http.Request, table map[string]float64, leg bool) {
		atomic.AddInt64(&f.requests, 1)
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		var amount float64
		fmt.Sscanf(r.URL.Query().Get("amount"), "%g", &amount)
		pair := from + ">" + to

		if detail, ok := f.reject[pair]; ok {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": detail})
			return
		}
		rate, ok := table[pair]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "pair not supported"})
			return
		}

		out := map[string]interface{}{
			"lp_id":       f.id,
			"lp_name":     f.name,
			"from_asset":  from,
			"to_asset":    to,
			"from_amount": amount,
			"to_amount":   amount * rate,
			"rate":        rate,
			"min_amount":  0.0001,
			"max_amount":  1.0,
		}
		if f.noInventory[pair] {
			out["inventory_ok"] = false
		}
		json.NewEncoder(w).Encode(out)
	}
	mux.HandleFunc("/api/quote", func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, f.direct, false)
	})
	mux.HandleFunc("/api/quote/leg", func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, f.legRate, true)
	})
	return mux
}

func startLPs(t *testing.T, lps ...*fakeLP) func() []string {
	t.Helper()
	var urls []string
	for _, f := range lps {
		srv := httptest.NewServer(f.handler(t))
		t.Cleanup(srv.Close)
		urls = append(urls, srv.URL)
	}
	return func() []string { return urls }
}

func newEngine(endpoints func() []string) *Engine {
	return NewEngine(endpoints, 2*time.Second)
}

func TestBestRouteZeroAmountShortCircuits(t *testing.T) {
	calls := 0
	e := newEngine(func() []string {
		calls++
		return nil
	})
	if _, err := e.BestRoute(context.Background(), "BTC", "USDC", 0); !errors.Is(err, ErrNoAmount) {
		t.Fatalf("error = %v, want ErrNoAmount", err)
	}
	if calls != 0 {
		t.Error("zero amount must not touch the network")
	}
}

func TestBestRoutePicksHighestFillableOutput(t *testing.T) {
	alpha := &fakeLP{id: "lp-a", name: "Alpha",
		direct: map[string]float64{"BTC>USDC": 64000}}
	beta := &fakeLP{id: "lp-b", name: "Beta",
		direct: map[string]float64{"BTC>USDC": 64100}}
	// Gamma quotes the best price but has no inventory.
	gamma := &fakeLP{id: "lp-c", name: "Gamma",
		direct:      map[string]float64{"BTC>USDC": 65000},
		noInventory: map[string]bool{"BTC>USDC": true}}

	e := newEngine(startLPs(t, alpha, beta, gamma))
	route, err := e.BestRoute(context.Background(), "BTC", "USDC", 0.1)
	if err != nil {
		t.Fatalf("BestRoute() error = %v", err)
	}
	if route.Type != RouteFull {
		t.Errorf("Type = %v, want full", route.Type)
	}
	if route.Quote.LPID != "lp-b" {
		t.Errorf("selected %s, want lp-b (best fillable)", route.Quote.LPID)
	}
}

func TestBestRouteSurfacesRejectionReason(t *testing.T) {
	alpha := &fakeLP{id: "lp-a", name: "Alpha",
		reject: map[string]string{"BTC>USDC": "amount below minimum: 0.0001 BTC"}}

	e := newEngine(startLPs(t, alpha))
	_, err := e.BestRoute(context.Background(), "BTC", "USDC", 0.00001)
	if err == nil {
		t.Fatal("BestRoute() should fail when every LP rejects")
	}
	if want := "below minimum"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should carry the LP's reason %q", err, want)
	}
}

func TestBestRoutePerLegWinsOnStrictlyBetterOutput(t *testing.T) {
	// Direct: 0.1 BTC -> 6400 USDC. Per-leg through Beta+Gamma:
	// 0.1 BTC -> 150 M1 -> 6450 USDC.
	alpha := &fakeLP{id: "lp-a", name: "Alpha",
		direct:  map[string]float64{"BTC>USDC": 64000},
		legRate: map[string]float64{}}
	beta := &fakeLP{id: "lp-b", name: "Beta",
		legRate: map[string]float64{"BTC>M1": 1500}}
	gamma := &fakeLP{id: "lp-c", name: "Gamma",
		legRate: map[string]float64{"M1>USDC": 43}}

	e := newEngine(startLPs(t, alpha, beta, gamma))
	route, err := e.BestRoute(context.Background(), "BTC", "USDC", 0.1)
	if err != nil {
		t.Fatalf("BestRoute() error = %v", err)
	}
	if route.Type != RoutePerLeg {
		t.Fatalf("Type = %v, want perleg (6450 > 6400)", route.Type)
	}
	if route.Leg1.LPID != "lp-b" || route.Leg2.LPID != "lp-c" {
		t.Errorf("legs = %s,%s, want lp-b,lp-c", route.Leg1.LPID, route.Leg2.LPID)
	}
	if route.Quote.ToAmount != 6450 {
		t.Errorf("ToAmount = %v, want 6450", route.Quote.ToAmount)
	}
	if route.Quote.LPID != "lp-b+lp-c" {
		t.Errorf("composed LPID = %q", route.Quote.LPID)
	}
}

func TestBestRouteTieGoesToDirect(t *testing.T) {
	// Both routes produce exactly 6400 USDC for 0.1 BTC.
	alpha := &fakeLP{id: "lp-a", name: "Alpha",
		direct:  map[string]float64{"BTC>USDC": 64000},
		legRate: map[string]float64{"BTC>M1": 1600, "M1>USDC": 40}}

	e := newEngine(startLPs(t, alpha))
	route, err := e.BestRoute(context.Background(), "BTC", "USDC", 0.1)
	if err != nil {
		t.Fatalf("BestRoute() error = %v", err)
	}
	if route.Type != RouteFull {
		t.Errorf("Type = %v, want full on equal output", route.Type)
	}
}

func TestPerLegSameLPBias(t *testing.T) {
	// Beta quotes both legs. Gamma's second leg is better by under 0.1%,
	// so both legs stay on Beta.
	beta := &fakeLP{id: "lp-b", name: "Beta",
		legRate: map[string]float64{"BTC>M1": 1500, "M1>USDC": 43.0}}
	gamma := &fakeLP{id: "lp-c", name: "Gamma",
		legRate: map[string]float64{"M1>USDC": 43.02}}

	e := newEngine(startLPs(t, beta, gamma))
	route := e.perLeg(context.Background(), "BTC", "USDC", 0.1)
	if route == nil {
		t.Fatal("perLeg() = nil")
	}
	if route.Leg2.LPID != "lp-b" {
		t.Errorf("Leg2 on %s, want lp-b (same-LP bias within 0.1%%)", route.Leg2.LPID)
	}
}

func TestPerLegSameLPBiasNotAppliedBeyondThreshold(t *testing.T) {
	// Gamma's second leg beats Beta's by well over 0.1%: keep Gamma.
	beta := &fakeLP{id: "lp-b", name: "Beta",
		legRate: map[string]float64{"BTC>M1": 1500, "M1>USDC": 42.0}}
	gamma := &fakeLP{id: "lp-c", name: "Gamma",
		legRate: map[string]float64{"M1>USDC": 43.0}}

	e := newEngine(startLPs(t, beta, gamma))
	route := e.perLeg(context.Background(), "BTC", "USDC", 0.1)
	if route == nil {
		t.Fatal("perLeg() = nil")
	}
	if route.Leg2.LPID != "lp-c" {
		t.Errorf("Leg2 on %s, want lp-c (bias threshold exceeded)", route.Leg2.LPID)
	}
}

func TestBestRouteRailPairSkipsPerLeg(t *testing.T) {
	alpha := &fakeLP{id: "lp-a", name: "Alpha",
		direct: map[string]float64{"BTC>M1": 1500}}

	e := newEngine(startLPs(t, alpha))
	route, err := e.BestRoute(context.Background(), "BTC", "M1", 0.1)
	if err != nil {
		t.Fatalf("BestRoute() error = %v", err)
	}
	if route.Type != RouteFull {
		t.Errorf("Type = %v, want full for a rail pair", route.Type)
	}
	// A rail pair needs exactly one round of direct quotes.
	if got := atomic.LoadInt64(&alpha.requests); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestWatchRateRepricesOnInterval(t *testing.T) {
	alpha := &fakeLP{id: "lp-a", name: "Alpha",
		direct: map[string]float64{"BTC>USDC": 60000}}

	e := newEngine(startLPs(t, alpha))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.WatchRate(ctx, "BTC", "USDC", 5*time.Millisecond, func(route *Route) {
			if route.Quote.Rate != 60000 {
				t.Errorf("Rate = %g, want 60000", route.Quote.Rate)
			}
			updates++
			if updates == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("WatchRate did not deliver three updates in time")
	}
	if updates < 3 {
		t.Errorf("updates = %d, want at least 3", updates)
	}
}

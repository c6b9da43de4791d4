package lp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, 2*time.Second), srv
}

func TestQuoteSuccess(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"lp_id":"lp-alpha","lp_name":"Alpha","from_asset":"BTC","to_asset":"USDC","from_amount":0.1,"to_amount":6400.5,"rate":64005,"spread_percent":0.5,"min_amount":0.0001,"max_amount":1.0}`))
	}))
	defer srv.Close()

	q, err := client.Quote(context.Background(), "BTC", "USDC", 0.1)
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if q.LPID != "lp-alpha" {
		t.Errorf("LPID = %q, want lp-alpha", q.LPID)
	}
	if q.ToAmount != 6400.5 {
		t.Errorf("ToAmount = %v, want 6400.5", q.ToAmount)
	}
	if !q.Fillable() {
		t.Error("quote with absent inventory_ok should be fillable")
	}
	if q.Endpoint != srv.URL {
		t.Errorf("Endpoint = %q, want %q", q.Endpoint, srv.URL)
	}
}

func TestQuoteInventoryNotOk(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"lp_id":"lp-alpha","to_amount":100,"inventory_ok":false,"max_amount":0.05}`))
	}))
	defer srv.Close()

	q, err := client.Quote(context.Background(), "BTC", "USDC", 0.1)
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if q.Fillable() {
		t.Error("quote with inventory_ok=false should not be fillable")
	}
}

func TestQuoteBusinessRejection(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason RejectReason
		wantLimit  float64
	}{
		{
			name:       "below minimum",
			status:     400,
			body:       `{"detail":"amount below minimum: 0.0001 BTC"}`,
			wantReason: ReasonBelowMinimum,
			wantLimit:  0.0001,
		},
		{
			name:       "above maximum",
			status:     400,
			body:       `{"detail":"amount above maximum: 1.0 BTC"}`,
			wantReason: ReasonAboveMaximum,
			wantLimit:  1.0,
		},
		{
			name:       "insufficient inventory",
			status:     400,
			body:       `{"detail":"insufficient inventory for pair"}`,
			wantReason: ReasonNoInventory,
		},
		{
			name:       "unclassified",
			status:     422,
			body:       `{"detail":"pair disabled"}`,
			wantReason: ReasonOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := client.Quote(context.Background(), "BTC", "USDC", 0.1)
			var rej *RejectionError
			if !errors.As(err, &rej) {
				t.Fatalf("Quote() error = %v, want RejectionError", err)
			}
			if rej.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", rej.Reason, tt.wantReason)
			}
			if rej.Limit != tt.wantLimit {
				t.Errorf("Limit = %v, want %v", rej.Limit, tt.wantLimit)
			}
			if IsRetryable(err) {
				t.Error("business rejection must not be retryable")
			}
		})
	}
}

func TestStatusNotFound(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := client.Status(context.Background(), "missing")
	if !errors.Is(err, ErrSwapNotFound) {
		t.Errorf("Status() error = %v, want ErrSwapNotFound", err)
	}
}

func TestUnavailableIsRetryable(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"chain RPC unavailable"}`))
	}))
	defer srv.Close()

	err := client.NotifyEscrowFunded(context.Background(), "swap-1", "htlc-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if !IsRetryable(err) {
		t.Error("503 must be retryable")
	}
}

func TestTransportErrorIsRetryable(t *testing.T) {
	client := New("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := client.Info(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if !IsRetryable(err) {
		t.Error("connection failure must be retryable")
	}
}

func TestInitSwapValidatesRequest(t *testing.T) {
	client := New("http://unused", time.Second)
	_, err := client.InitSwap(context.Background(), &InitRequest{
		FromAsset: "BTC",
		ToAsset:   "USDC",
		Amount:    0.1,
		HUser:     "not-hex",
	})
	if err == nil {
		t.Fatal("InitSwap() with malformed commitment should fail before any network call")
	}
}

func TestNotifyRailLockedCarriesIdempotencyKey(t *testing.T) {
	var key string
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("X-Idempotency-Key")
		w.Write([]byte(`{"S_lp2":"aa","evm_htlc_id":"0x1"}`))
	}))
	defer srv.Close()

	ack, err := client.NotifyRailLocked(context.Background(), "swap-out", "txid:0", "bb")
	if err != nil {
		t.Fatalf("NotifyRailLocked() error = %v", err)
	}
	if ack.SLP2 != "aa" {
		t.Errorf("SLP2 = %q, want aa", ack.SLP2)
	}
	if key == "" {
		t.Error("notification should carry an idempotency key")
	}
}

func TestRecentSwaps(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "4" {
			t.Errorf("limit = %q, want 4", got)
		}
		w.Write([]byte(`{"swaps":[{"swap_id":"s1","status":"completed","created_at":200},{"swap_id":"s2","status":"pending","created_at":100}]}`))
	}))
	defer srv.Close()

	swaps, err := client.RecentSwaps(context.Background(), 4)
	if err != nil {
		t.Fatalf("RecentSwaps() error = %v", err)
	}
	if len(swaps) != 2 {
		t.Fatalf("got %d swaps, want 2", len(swaps))
	}
	if swaps[0].SwapID != "s1" {
		t.Errorf("first swap = %q, want s1", swaps[0].SwapID)
	}
}

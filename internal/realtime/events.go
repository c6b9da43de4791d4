package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/AdonisPhusis/PNA-SWAP/internal/lp"
	"github.com/AdonisPhusis/PNA-SWAP/internal/registry"
)

// Event is a push message from an LP or the registry. The set of
// variants is closed; unknown message types are dropped at decode.
type Event interface {
	eventType() string
}

// Handler receives every decoded event from one connection.
type Handler func(Event)

// IdentityEvent announces the LP's identity and trading surface.
type IdentityEvent struct {
	Info lp.Info
}

// InventoryEvent carries a live inventory snapshot.
type InventoryEvent struct {
	Inventory map[string]float64
}

// QuoteEvent is a pushed quote refresh for a subscribed pair.
type QuoteEvent struct {
	Quote lp.Quote
}

// SwapUpdateEvent is a state change push for a subscribed swap.
type SwapUpdateEvent struct {
	Status lp.SwapStatus
}

// RegistrySnapshotEvent is the registry's full LP list.
type RegistrySnapshotEvent struct {
	LPs []registry.Entry
}

// RegistryUpdateEvent is an incremental change to a single LP.
type RegistryUpdateEvent struct {
	Entry registry.Entry
}

// RemoteErrorEvent surfaces an error message sent by the peer.
type RemoteErrorEvent struct {
	Message string
}

// PongEvent answers a keepalive ping.
type PongEvent struct{}

func (IdentityEvent) eventType() string         { return "lp_info" }
func (InventoryEvent) eventType() string        { return "inventory" }
func (QuoteEvent) eventType() string            { return "quote" }
func (SwapUpdateEvent) eventType() string       { return "swap_update" }
func (RegistrySnapshotEvent) eventType() string { return "lps" }
func (RegistryUpdateEvent) eventType() string   { return "lp_update" }
func (RemoteErrorEvent) eventType() string      { return "error" }
func (PongEvent) eventType() string             { return "pong" }

// envelope is the wire frame: a type tag plus an opaque payload.
type envelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// decodeEvent turns a wire frame into a typed event. Payloads that fail
// to decode are errors; type tags outside the closed set return
// (nil, nil) and are skipped by the caller.
func decodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	payload := env.Data
	if payload == nil {
		// Some peers flatten the payload into the frame itself.
		payload = raw
	}

	switch env.Type {
	case "lp_info":
		var ev IdentityEvent
		if err := json.Unmarshal(payload, &ev.Info); err != nil {
			return nil, fmt.Errorf("decode lp_info: %w", err)
		}
		return ev, nil

	case "inventory":
		var ev InventoryEvent
		if err := json.Unmarshal(payload, &ev.Inventory); err != nil {
			return nil, fmt.Errorf("decode inventory: %w", err)
		}
		return ev, nil

	case "quote":
		var ev QuoteEvent
		if err := json.Unmarshal(payload, &ev.Quote); err != nil {
			return nil, fmt.Errorf("decode quote: %w", err)
		}
		return ev, nil

	case "swap_update":
		var ev SwapUpdateEvent
		if err := json.Unmarshal(payload, &ev.Status); err != nil {
			return nil, fmt.Errorf("decode swap_update: %w", err)
		}
		return ev, nil

	case "lps":
		var body struct {
			LPs []registry.Entry `json:"lps"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, fmt.Errorf("decode lps: %w", err)
		}
		return RegistrySnapshotEvent{LPs: body.LPs}, nil

	case "lp_update":
		var ev RegistryUpdateEvent
		if err := json.Unmarshal(payload, &ev.Entry); err != nil {
			return nil, fmt.Errorf("decode lp_update: %w", err)
		}
		return ev, nil

	case "error":
		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, fmt.Errorf("decode error frame: %w", err)
		}
		return RemoteErrorEvent{Message: body.Message}, nil

	case "pong":
		return PongEvent{}, nil
	}

	return nil, nil
}

// Package realtime maintains a self-healing websocket connection to an
// LP or the registry. The connection reconnects with doubling backoff,
// replays subscriptions after every reconnect, and sends keepalive
// pings. Transport errors are logged at debug level and never surfaced;
// HTTP polling covers the gaps.
package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AdonisPhusis/PNA-SWAP/pkg/logging"
)

const (
	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
	pingInterval          = 25 * time.Second
	writeTimeout          = 10 * time.Second
)

// Conn is a reconnecting websocket connection delivering typed events to
// a single handler.
type Conn struct {
	url     string
	handler Handler
	log     *logging.Logger

	mu        sync.Mutex
	wmu       sync.Mutex
	ws        *websocket.Conn
	connected bool
	closed    bool
	subs      map[string]interface{}
	delay     time.Duration
	done      chan struct{}
}

// Dial creates a connection to a ws:// or wss:// URL and starts the
// connect loop. Events arrive on handler from a single goroutine.
func Dial(url string, handler Handler) *Conn {
	c := &Conn{
		url:     url,
		handler: handler,
		log:     logging.Component("realtime"),
		subs:    make(map[string]interface{}),
		delay:   initialReconnectDelay,
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// EndpointURL converts an LP HTTP endpoint into its websocket URL.
func EndpointURL(httpEndpoint string) string {
	url := strings.TrimSuffix(httpEndpoint, "/")
	if strings.HasPrefix(url, "https") {
		url = "wss" + strings.TrimPrefix(url, "https")
	} else {
		url = "ws" + strings.TrimPrefix(url, "http")
	}
	return url + "/ws"
}

// Connected reports whether the websocket is currently established.
// Callers use this to decide between push delivery and HTTP polling.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Subscribe registers interest in a channel. The subscription is sent
// now if connected and replayed after every reconnect. Re-subscribing
// to the same channel replaces its parameters.
func (c *Conn) Subscribe(channel string, params interface{}) {
	c.mu.Lock()
	c.subs[channel] = params
	ws, connected := c.ws, c.connected
	c.mu.Unlock()

	if connected {
		c.send(ws, map[string]interface{}{"type": "subscribe", "channel": channel, "data": params})
	}
}

// Unsubscribe drops a channel subscription.
func (c *Conn) Unsubscribe(channel string) {
	c.mu.Lock()
	delete(c.subs, channel)
	ws, connected := c.ws, c.connected
	c.mu.Unlock()

	if connected {
		c.send(ws, map[string]interface{}{"type": "unsubscribe", "channel": channel})
	}
}

// Close shuts the connection down permanently.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	ws := c.ws
	c.mu.Unlock()

	close(c.done)
	if ws != nil {
		ws.Close()
	}
}

// run is the connect loop: dial, serve until the connection drops, back
// off, repeat. The backoff doubles up to 30s and resets on a successful
// connect.
func (c *Conn) run() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		ws, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			c.log.Debug("dial failed", "url", c.url, "error", err)
			if !c.sleep() {
				return
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			ws.Close()
			return
		}
		c.ws = ws
		c.connected = true
		c.delay = initialReconnectDelay
		subs := make(map[string]interface{}, len(c.subs))
		for ch, params := range c.subs {
			subs[ch] = params
		}
		c.mu.Unlock()

		c.log.Debug("connected", "url", c.url)
		for ch, params := range subs {
			c.send(ws, map[string]interface{}{"type": "subscribe", "channel": ch, "data": params})
		}

		stopPing := make(chan struct{})
		go c.pingLoop(ws, stopPing)

		c.readLoop(ws)

		close(stopPing)
		ws.Close()

		c.mu.Lock()
		c.connected = false
		c.ws = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		if !c.sleep() {
			return
		}
	}
}

// readLoop delivers frames until the connection errors.
func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			c.log.Debug("read failed", "url", c.url, "error", err)
			return
		}

		event, err := decodeEvent(raw)
		if err != nil {
			c.log.Debug("bad frame", "url", c.url, "error", err)
			continue
		}
		if event == nil {
			continue
		}
		c.handler(event)
	}
}

// pingLoop sends a keepalive frame every 25s while the connection lives.
func (c *Conn) pingLoop(ws *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.send(ws, map[string]interface{}{"type": "ping"})
		case <-stop:
			return
		case <-c.done:
			return
		}
	}
}

// send writes a JSON frame, swallowing errors; a failed write surfaces
// through the read loop as a dropped connection. The write mutex keeps
// the ping loop and subscription sends from interleaving frames.
func (c *Conn) send(ws *websocket.Conn, frame interface{}) {
	if ws == nil {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Debug("write failed", "url", c.url, "error", err)
	}
}

// nextDelay doubles a reconnect delay, capped at maxReconnectDelay.
func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > maxReconnectDelay {
		d = maxReconnectDelay
	}
	return d
}

// sleep waits out the current backoff, doubling it for next time.
// Returns false if the connection was closed while waiting.
func (c *Conn) sleep() bool {
	c.mu.Lock()
	d := c.delay
	c.delay = nextDelay(c.delay)
	c.mu.Unlock()

	select {
	case <-time.After(d):
		return true
	case <-c.done:
		return false
	}
}

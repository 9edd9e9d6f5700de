// Package wsconn provides a WebSocket client with automatic reconnection.
package wsconn

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0,
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// OnConnectFunc runs after each successful (re)connect, before reads start.
// Subscription messages belong here so they are replayed on reconnect.
type OnConnectFunc func(ctx context.Context, send func([]byte) error) error

// Client maintains a WebSocket connection, transparently reconnecting with
// exponential backoff and surfacing inbound frames on a channel.
type Client struct {
	config    Config
	onConnect OnConnectFunc

	stateMu sync.RWMutex
	state   State

	connMu sync.Mutex
	conn   *websocket.Conn

	messages   chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	reconnects int
}

// New creates a Client. onConnect may be nil.
func New(config Config, onConnect OnConnectFunc) *Client {
	return &Client{
		config:    config,
		onConnect: onConnect,
		state:     StateDisconnected,
		messages:  make(chan []byte, 100),
		done:      make(chan struct{}),
	}
}

// Run connects and pumps messages until the context is cancelled or the
// reconnect budget is exhausted. It blocks; run it in its own goroutine.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.config.InitialBackoff

	for {
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return ctx.Err()
		case <-c.done:
			c.setState(StateDisconnected)
			return nil
		default:
		}

		if c.reconnects == 0 {
			c.setState(StateConnecting)
		} else {
			c.setState(StateReconnecting)
		}

		err := c.connectAndRead(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			c.setState(StateDisconnected)
			return err
		}

		c.reconnects++
		if c.config.MaxReconnects > 0 && c.reconnects >= c.config.MaxReconnects {
			c.setState(StateDisconnected)
			return err
		}

		// Jittered exponential backoff to avoid reconnect stampedes.
		sleep := backoff + time.Duration(rand.Int63n(int64(backoff)/2+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-time.After(sleep):
		}
		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

func (c *Client) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 22)

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	defer func() {
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	if c.onConnect != nil {
		send := func(msg []byte) error {
			wctx, cancel := context.WithTimeout(ctx, c.config.WriteTimeout)
			defer cancel()
			return conn.Write(wctx, websocket.MessageText, msg)
		}
		if err := c.onConnect(ctx, send); err != nil {
			return err
		}
	}

	c.setState(StateConnected)

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go c.pingLoop(pingCtx, conn)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		select {
		case c.messages <- data:
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	if c.config.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, c.config.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Send writes a text message on the current connection.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	if conn == nil {
		return errors.New("wsconn: not connected")
	}
	wctx, cancel := context.WithTimeout(ctx, c.config.WriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, msg)
}

// Messages returns the channel of inbound frames.
func (c *Client) Messages() <-chan []byte {
	return c.messages
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Reconnects returns how many reconnect attempts have occurred.
func (c *Client) Reconnects() int {
	return c.reconnects
}

// Close stops the client and terminates Run.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Client) setState(state State) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()
}

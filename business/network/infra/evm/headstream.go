package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/apexarb/flasharb/internal/logger"
	"github.com/apexarb/flasharb/internal/wsconn"
)

// HeadStream subscribes to newHeads over a websocket endpoint and emits
// block heights. The underlying connection reconnects with backoff and
// replays the subscription.
type HeadStream struct {
	conn   *wsconn.Client
	logger logger.LoggerInterface
	heads  chan uint64
}

type rpcNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Number string `json:"number"`
		} `json:"result"`
	} `json:"params"`
}

// NewHeadStream creates a HeadStream for the given ws:// endpoint.
func NewHeadStream(wsURL string, log logger.LoggerInterface) *HeadStream {
	s := &HeadStream{
		logger: log,
		heads:  make(chan uint64, 16),
	}
	s.conn = wsconn.New(wsconn.DefaultConfig(wsURL), func(ctx context.Context, send func([]byte) error) error {
		sub := `{"jsonrpc":"2.0","id":1,"method":"eth_subscribe","params":["newHeads"]}`
		return send([]byte(sub))
	})
	return s
}

// Run pumps the connection until ctx is done.
func (s *HeadStream) Run(ctx context.Context) error {
	go s.readLoop(ctx)
	return s.conn.Run(ctx)
}

// Heads implements app.HeadSource.
func (s *HeadStream) Heads() <-chan uint64 {
	return s.heads
}

func (s *HeadStream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-s.conn.Messages():
			if !ok {
				return
			}
			block, err := parseHead(raw)
			if err != nil {
				s.logger.Debug(ctx, "unparseable head notification", "error", err)
				continue
			}
			if block == 0 {
				continue // subscription ack, not a head
			}
			select {
			case s.heads <- block:
			default:
				// monitor is behind; drop the height, a newer one follows
			}
		}
	}
}

// Close shuts the connection down.
func (s *HeadStream) Close() error {
	return s.conn.Close()
}

func parseHead(raw []byte) (uint64, error) {
	var note rpcNotification
	if err := json.Unmarshal(raw, &note); err != nil {
		return 0, err
	}
	if note.Method != "eth_subscription" {
		return 0, nil
	}
	hex := strings.TrimPrefix(note.Params.Result.Number, "0x")
	if hex == "" {
		return 0, fmt.Errorf("head notification without number")
	}
	block, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse block number %q: %w", note.Params.Result.Number, err)
	}
	return block, nil
}

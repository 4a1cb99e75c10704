package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfirmer waits for signature confirmation over a WebSocket subscription.
// It is a one-shot client: dial, signatureSubscribe, wait, close. Polling via
// GetSignatureStatuses remains the fallback when the endpoint has no WS side.
type WSConfirmer struct {
	endpoint         string
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
}

// NewWSConfirmer creates a confirmer for a ws:// or wss:// endpoint.
func NewWSConfirmer(endpoint string) *WSConfirmer {
	return &WSConfirmer{
		endpoint:         endpoint,
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     10 * time.Second,
	}
}

// wsRequest is a JSON-RPC 2.0 request over the socket.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsMessage covers both subscription confirmations and notifications.
type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *struct {
		Result struct {
			Value struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// WaitForSignature blocks until the signature is confirmed, fails on chain,
// or ctx expires. A confirmed-with-error transaction returns (false, nil).
func (w *WSConfirmer) WaitForSignature(ctx context.Context, signature string) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: w.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": "confirmed"},
		},
	}
	conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return false, fmt.Errorf("write subscribe: %w", err)
	}

	type outcome struct {
		confirmed bool
		err       error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				resultCh <- outcome{err: fmt.Errorf("read notification: %w", err)}
				return
			}
			if msg.Method != "signatureNotification" || msg.Params == nil {
				continue // subscription ack or unrelated frame
			}
			if msg.Params.Result.Value.Err != nil {
				resultCh <- outcome{confirmed: false}
				return
			}
			resultCh <- outcome{confirmed: true}
			return
		}
	}()

	select {
	case out := <-resultCh:
		return out.confirmed, out.err
	case <-ctx.Done():
		// Unblock the reader goroutine.
		conn.SetReadDeadline(time.Now())
		return false, ctx.Err()
	}
}

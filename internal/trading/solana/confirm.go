package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

var (
	ErrConfirmTimeout = errors.New("transaction not confirmed in time")
	ErrTxFailed       = errors.New("transaction failed on chain")
)

// Confirmer waits until a signature reaches the confirmed commitment.
type Confirmer interface {
	Confirm(ctx context.Context, signature string) error
}

// PollConfirmer polls getSignatureStatuses until the transaction lands.
type PollConfirmer struct {
	chain    Chain
	interval time.Duration
	timeout  time.Duration
}

func NewPollConfirmer(chain Chain) *PollConfirmer {
	return &PollConfirmer{chain: chain, interval: DefaultPollInterval, timeout: DefaultConfirmTimeout}
}

func (p *PollConfirmer) WithTiming(interval, timeout time.Duration) *PollConfirmer {
	p.interval = interval
	p.timeout = timeout
	return p
}

func (p *PollConfirmer) Confirm(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		st, err := p.chain.SignatureStatus(ctx, signature)
		if err == nil {
			switch st.State {
			case SignatureConfirmed:
				return nil
			case SignatureFailed:
				return fmt.Errorf("%w: %s", ErrTxFailed, st.Err)
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrConfirmTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsMessage struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Method string `json:"method"`
	Params *struct {
		Result struct {
			Value struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
		Subscription int64 `json:"subscription"`
	} `json:"params"`
}

// WSConfirmer subscribes to signatureNotification and falls back to polling when the
// WebSocket endpoint cannot be used.
type WSConfirmer struct {
	endpoint string
	fallback *PollConfirmer
	timeout  time.Duration
	logger   *slog.Logger
}

func NewWSConfirmer(endpoint string, chain Chain, logger *slog.Logger) *WSConfirmer {
	return &WSConfirmer{
		endpoint: endpoint,
		fallback: NewPollConfirmer(chain),
		timeout:  DefaultConfirmTimeout,
		logger:   logger,
	}
}

func (w *WSConfirmer) WithTiming(pollInterval, timeout time.Duration) *WSConfirmer {
	w.fallback.WithTiming(pollInterval, timeout)
	w.timeout = timeout
	return w
}

func (w *WSConfirmer) Confirm(ctx context.Context, signature string) error {
	if w.endpoint == "" {
		return w.fallback.Confirm(ctx, signature)
	}

	err := w.subscribe(ctx, signature)
	var unavailable *wsUnavailableError
	if errors.As(err, &unavailable) {
		w.logger.Warn("websocket confirmation unavailable, polling", "error", unavailable.err)
		return w.fallback.Confirm(ctx, signature)
	}
	return err
}

type wsUnavailableError struct{ err error }

func (e *wsUnavailableError) Error() string { return "websocket unavailable: " + e.err.Error() }

func (w *WSConfirmer) subscribe(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return &wsUnavailableError{err: err}
	}
	defer conn.Close()

	// 读循环在 ctx 结束时通过关闭连接退出
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": "confirmed"},
		},
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(req); err != nil {
		return &wsUnavailableError{err: err}
	}

	subscribed := false
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ErrConfirmTimeout
				}
				return ctx.Err()
			}
			if !subscribed {
				return &wsUnavailableError{err: err}
			}
			return fmt.Errorf("websocket read: %w", err)
		}

		switch {
		case msg.ID != nil && *msg.ID == req.ID:
			if msg.Error != nil {
				return &wsUnavailableError{err: fmt.Errorf("subscribe rejected: %s", msg.Error.Message)}
			}
			subscribed = true
		case msg.Method == "signatureNotification" && msg.Params != nil:
			if e := msg.Params.Result.Value.Err; e != nil {
				return fmt.Errorf("%w: %v", ErrTxFailed, e)
			}
			return nil
		}
	}
}

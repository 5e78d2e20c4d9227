package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JusticeK18/ArbitrageGuard/internal/domain"
)

// Proposal is one trade proposal received from the prediction source,
// tagged with the source's message id and the logical clock it was
// observed at.
type Proposal struct {
	ID       uuid.UUID
	Operator domain.Identity
	Block    uint64
	Trade    domain.TradeProposal
}

// wireProposal is the feed's JSON message format.
type wireProposal struct {
	ID              uuid.UUID `json:"id"`
	Block           uint64    `json:"block"`
	Amount          uint64    `json:"amount"`
	PredictedProfit uint64    `json:"predicted_profit"`
	Confidence      uint64    `json:"confidence"`
	Source          string    `json:"source"`
	Target          string    `json:"target"`
}

// ProposalFeed maintains the WebSocket connection to the prediction source.
// It handles reconnection with exponential backoff, read timeouts and an
// intake throttle, and delivers decoded proposals on Out(). Proposals are
// submitted under the configured operator identity; the engine's own
// authorization check remains the gate.
type ProposalFeed struct {
	url      string
	operator domain.Identity
	throttle *Throttle

	out    chan Proposal
	mu     sync.RWMutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ReadTimeout  time.Duration
	PingInterval time.Duration
}

// NewProposalFeed creates a feed worker for the given source URL.
func NewProposalFeed(url string, operator domain.Identity, throttle *Throttle) *ProposalFeed {
	return &ProposalFeed{
		url:          url,
		operator:     operator,
		throttle:     throttle,
		out:          make(chan Proposal, 256),
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// Out returns the channel of decoded proposals.
func (f *ProposalFeed) Out() <-chan Proposal {
	return f.out
}

// Start initiates the connection loop.
func (f *ProposalFeed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.runLoop(ctx)
}

// Stop terminates the worker.
func (f *ProposalFeed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.close()
	f.wg.Wait()
}

func (f *ProposalFeed) runLoop(ctx context.Context) {
	defer f.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := f.connect(ctx); err != nil {
			slog.Warn("Feed connection failed", "url", f.url, "err", err, "retry", retry)
			delay := backoffDelay(retry)
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0 // Reset on successful connect
		f.process(ctx)
	}
}

func (f *ProposalFeed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	if f.PingInterval > 0 {
		f.wg.Add(1)
		go f.pingLoop(ctx)
	}

	slog.Info("Feed connected", "url", f.url)
	return nil
}

func (f *ProposalFeed) process(ctx context.Context) {
	for {
		f.mu.RLock()
		c := f.conn
		f.mu.RUnlock()
		if c == nil {
			return
		}

		if err := c.SetReadDeadline(time.Now().Add(f.ReadTimeout)); err != nil {
			slog.Warn("Feed read deadline failed", "err", err)
			f.close()
			return
		}
		_, msg, err := c.ReadMessage()
		if err != nil {
			slog.Warn("Feed read error", "err", err)
			f.close()
			return
		}

		f.handleMessage(ctx, msg)
	}
}

func (f *ProposalFeed) handleMessage(ctx context.Context, msg []byte) {
	if f.throttle != nil && !f.throttle.TryAcquire() {
		slog.Warn("Feed proposal dropped by intake throttle")
		return
	}

	var wire wireProposal
	if err := json.Unmarshal(msg, &wire); err != nil {
		slog.Warn("Feed message rejected", "err", err)
		return
	}

	p := Proposal{
		ID:       wire.ID,
		Operator: f.operator,
		Block:    wire.Block,
		Trade: domain.TradeProposal{
			Amount:          wire.Amount,
			PredictedProfit: wire.PredictedProfit,
			Confidence:      wire.Confidence,
			Source:          wire.Source,
			Target:          wire.Target,
		},
	}

	select {
	case f.out <- p:
	case <-ctx.Done():
	}
}

func (f *ProposalFeed) pingLoop(ctx context.Context) {
	defer f.wg.Done()
	ticker := time.NewTicker(f.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.RLock()
			c := f.conn
			f.mu.RUnlock()
			if c == nil {
				return
			}
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				slog.Warn("Feed ping failed", "err", err)
				return
			}
		}
	}
}

func (f *ProposalFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
}

const (
	feedBaseDelay = 1 * time.Second
	feedMaxDelay  = 60 * time.Second
)

// backoffDelay returns the exponential reconnect delay for a retry count,
// capped at feedMaxDelay.
func backoffDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		return feedBaseDelay
	}
	if retryCount > 30 {
		return feedMaxDelay
	}

	delay := feedBaseDelay * time.Duration(1<<retryCount)
	if delay > feedMaxDelay {
		return feedMaxDelay
	}
	return delay
}

// Package realtime pushes notifications to connected websocket clients.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sports-playlist/internal/domain"
	"github.com/sports-playlist/internal/metrics"
)

// MessageTypeNotification is the envelope type clients subscribe to.
const MessageTypeNotification = "ReceiveNotification"

const outboundBuffer = 256

// ErrDeliveryDropped is returned when the hub's outbound queue is full or the hub
// is not accepting messages.
var ErrDeliveryDropped = fmt.Errorf("notification dropped: %w", domain.ErrDelivery)

// Message is the wire envelope written to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type outbound struct {
	userID string // empty for every client
	msg    Message
}

// Hub owns the set of connected clients. A single goroutine (Run) mutates the
// set; mu guards reads from other goroutines.
type Hub struct {
	logger     *slog.Logger
	clients    map[*Client]struct{}
	outbound   chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger.With("component", "websocket-hub"),
		clients:    make(map[*Client]struct{}),
		outbound:   make(chan outbound, outboundBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Name identifies the hub as a notification channel.
func (h *Hub) Name() string { return "websocket" }

// SendToAll queues n for every connected client. It never blocks.
func (h *Hub) SendToAll(ctx context.Context, n domain.Notification) error {
	return h.enqueue(ctx, outbound{msg: Message{Type: MessageTypeNotification, Data: n}})
}

// SendToUser queues n for every connection of userID. It never blocks.
func (h *Hub) SendToUser(ctx context.Context, userID string, n domain.Notification) error {
	if userID == "" {
		return fmt.Errorf("send to user: empty user id: %w", domain.ErrDelivery)
	}
	return h.enqueue(ctx, outbound{userID: userID, msg: Message{Type: MessageTypeNotification, Data: n}})
}

func (h *Hub) enqueue(ctx context.Context, o outbound) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryDropped, err)
	}
	select {
	case <-h.done:
		return ErrDeliveryDropped
	default:
	}
	select {
	case h.outbound <- o:
		return nil
	default:
		return ErrDeliveryDropped
	}
}

// Run processes registrations and outbound messages until ctx is cancelled,
// then closes every client and returns ctx.Err().
func (h *Hub) Run(ctx context.Context) error {
	for {
		// Shutdown first, then lifecycle events, then messages.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case o := <-h.outbound:
			h.deliver(o)
		}
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error { return h.Run(ctx) }

func (h *Hub) String() string { return "websocket-hub" }

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register hands c to the running hub. It fails if ctx ends first.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrDeliveryDropped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// detach is called by a client's read pump when its connection ends.
func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(n))
	h.logger.Info("client connected", "user_id", c.userID, "total_clients", n)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}
	metrics.WebSocketClients.Set(float64(n))
	h.logger.Info("client disconnected", "user_id", c.userID, "total_clients", n)
}

// deliver fans a message out. Clients whose buffer is full are disconnected.
func (h *Hub) deliver(o outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for c := range h.clients {
		if o.userID != "" && c.userID != o.userID {
			continue
		}
		select {
		case c.send <- o.msg:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		close(c.send)
		delete(h.clients, c)
		h.logger.Warn("disconnected slow client", "user_id", c.userID)
	}
	if len(slow) > 0 {
		metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.stopOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	metrics.WebSocketClients.Set(0)

	reason := "context_canceled"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = "context_deadline"
	}
	h.logger.Info("websocket hub stopped", "reason", reason, "clients_closed", n)
}

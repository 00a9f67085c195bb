package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
)

// Event types pushed to dashboards
const (
	EventApplicationSubmitted = "application.submitted"
	EventApplicationAdmitted  = "application.admitted"
	EventApplicationRejected  = "application.rejected"
	EventPaymentConfirmed     = "payment.confirmed"
	EventVoucherSold          = "voucher.sold"
	EventInvoicePaid          = "invoice.paid"
)

// Event is a server-pushed notification
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// AccountRoom is the room every connection of an account joins
func AccountRoom(accountID int64) string {
	return fmt.Sprintf("account:%d", accountID)
}

// RoleRoom is the room every connection of a role joins
func RoleRoom(role models.Role) string {
	return "role:" + string(role)
}

type delivery struct {
	rooms []string
	data  []byte
}

// Hub maintains the set of active clients grouped by room
type Hub struct {
	// Registered clients organized by room
	clients map[string]map[*Client]bool

	broadcast  chan *delivery
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan *delivery, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// Run handles registrations and deliveries until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range client.rooms {
		if _, ok := h.clients[room]; !ok {
			h.clients[room] = make(map[*Client]bool)
		}
		h.clients[room][client] = true
	}

	h.logger.Info().
		Int64("accountID", client.accountID).
		Str("role", string(client.role)).
		Str("addr", client.addr).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops client from every room and closes its send channel once
func (h *Hub) removeLocked(client *Client) {
	removed := false
	for _, room := range client.rooms {
		members, ok := h.clients[room]
		if !ok || !members[client] {
			continue
		}
		delete(members, client)
		removed = true
		if len(members) == 0 {
			delete(h.clients, room)
		}
	}
	if removed {
		close(client.send)
		h.logger.Info().
			Int64("accountID", client.accountID).
			Str("addr", client.addr).
			Msg("Client unregistered")
	}
}

func (h *Hub) deliver(d *delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[*Client]bool)
	var slow []*Client
	for _, room := range d.rooms {
		for client := range h.clients[room] {
			if seen[client] {
				continue
			}
			seen[client] = true
			select {
			case client.send <- d.data:
			default:
				slow = append(slow, client)
			}
		}
	}
	// Clients with a full buffer are dropped; their write pump closes the socket
	for _, client := range slow {
		h.logger.Warn().Int64("accountID", client.accountID).Msg("Dropping slow websocket client")
		h.removeLocked(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, members := range h.clients {
		for client := range members {
			h.removeLocked(client)
		}
	}
}

// Publish queues an event for every client in the given rooms. It never blocks
// on slow clients and drops the event when the hub queue is full.
func (h *Hub) Publish(event Event, rooms ...string) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	select {
	case h.broadcast <- &delivery{rooms: rooms, data: data}:
		return nil
	default:
		h.logger.Warn().Str("type", event.Type).Msg("Websocket hub queue full, event dropped")
		return fmt.Errorf("websocket hub queue full")
	}
}

// SendToAccount pushes an event to all connections of one account
func (h *Hub) SendToAccount(accountID int64, event Event) error {
	return h.Publish(event, AccountRoom(accountID))
}

// SendToRoles pushes an event to every connection of the given roles
func (h *Hub) SendToRoles(event Event, roles ...models.Role) error {
	rooms := make([]string, 0, len(roles))
	for _, r := range roles {
		rooms = append(rooms, RoleRoom(r))
	}
	return h.Publish(event, rooms...)
}

// ClientsCount returns the number of connections in a room
func (h *Hub) ClientsCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[room])
}

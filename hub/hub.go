// Package hub fans fresh snapshots out to websocket clients (kitchen
// displays, floor plans, the cash register).
package hub

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/aruizmx/comandero/kitchen"
	"github.com/aruizmx/comandero/store"
	"github.com/aruizmx/comandero/utils"
)

// Event types
const (
	EventTables       = "tables_update"
	EventZones        = "zones_update"
	EventSessions     = "sessions_update"
	EventOrders       = "orders_update"
	EventOrderItems   = "order_items_update"
	EventProducts     = "products_update"
	EventCategories   = "categories_update"
	EventShifts       = "shifts_update"
	EventTransactions = "transactions_update"
	EventKitchenBoard = "kitchen_board"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds the connected clients and broadcasts messages to all of them.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> role
}

func New() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

// Register adds a connection with its role.
func (h *Hub) Register(conn *websocket.Conn, role string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = role
}

// Unregister drops and closes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends one message to every connected client. A client that fails
// to receive is skipped, not dropped; the read loop notices dead peers.
func (h *Hub) Broadcast(event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return
	}
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("hub: marshaling %s: %v", event, err)
		return
	}
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.Printf("hub: sending %s: %v", event, err)
		}
	}
}

// BindStore broadcasts every new snapshot of s under the given event.
func BindStore[T store.Entity](h *Hub, s *store.Store[T], event string) {
	s.Subscribe(func(snap []T) {
		h.Broadcast(event, snap)
	})
}

// BindScheduler broadcasts every recomputed kitchen board.
func BindScheduler(h *Hub, s *kitchen.Scheduler) {
	s.Subscribe(func(board []kitchen.Ticket) {
		h.Broadcast(EventKitchenBoard, board)
	})
}

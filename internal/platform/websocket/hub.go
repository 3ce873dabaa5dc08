// Package websocket pushes domain events to connected browsers so an open
// dashboard can refresh the affected panel. A connection is bound to the
// topics resolved from its session when it connects; clients cannot choose
// their own topics.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/platform/events"
)

// StaffTopic receives every event.
const StaffTopic = "staff"

func PatientTopic(patientID uuid.UUID) string {
	return "patient:" + patientID.String()
}

// Message is the JSON frame sent to clients.
type Message struct {
	Type       events.Type    `json:"type"`
	SubjectID  uuid.UUID      `json:"subject_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one open connection. SessionID is the auth session that opened
// it; the client is dropped when that session ends.
type Client struct {
	ID        string
	SessionID string
	Topics    []string
	Send      chan []byte
}

// Hub tracks connected clients by topic and by session.
type Hub struct {
	log zerolog.Logger

	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	sessions map[string]map[*Client]struct{}
	all      map[*Client]struct{}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:      log.With().Str("component", "live").Logger(),
		clients:  make(map[string]map[*Client]struct{}),
		sessions: make(map[string]map[*Client]struct{}),
		all:      make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
	if client.SessionID != "" {
		if h.sessions[client.SessionID] == nil {
			h.sessions[client.SessionID] = make(map[*Client]struct{})
		}
		h.sessions[client.SessionID][client] = struct{}{}
	}
}

// Unregister removes the client and closes its Send channel. Safe to call twice.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregister(client)
}

// DropSession unregisters every client opened by sessionID. Their write
// pumps see the closed channel and close the connections.
func (h *Hub) DropSession(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sessions[sessionID]
	n := len(clients)
	for client := range clients {
		h.unregister(client)
	}
	if n > 0 {
		h.log.Debug().Str("session_id", sessionID).Int("clients", n).Msg("session ended, live clients dropped")
	}
	return n
}

// unregister must be called with mu held.
func (h *Hub) unregister(client *Client) {
	if _, ok := h.all[client]; !ok {
		return
	}
	if subscribers, ok := h.sessions[client.SessionID]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.sessions, client.SessionID)
		}
	}
	for _, topic := range client.Topics {
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}
	delete(h.all, client)
	close(client.Send)
}

// Broadcast sends msg to every client on topic. Clients with a full buffer
// miss the message.
func (h *Hub) Broadcast(topic string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn().Err(err).Msg("marshal live message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			h.log.Debug().Str("client_id", client.ID).Msg("client buffer full, message skipped")
		}
	}
}

// HandleEvent is a Bus handler routing an event to its patient and to staff.
func (h *Hub) HandleEvent(_ context.Context, e events.Event) {
	msg := Message{Type: e.Type, SubjectID: e.SubjectID, OccurredAt: e.OccurredAt, Data: e.Data}
	if e.PatientID != uuid.Nil {
		h.Broadcast(PatientTopic(e.PatientID), msg)
	}
	h.Broadcast(StaffTopic, msg)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Subscription is what a request may listen on and the session it belongs to.
type Subscription struct {
	SessionID string
	Topics    []string
}

// TopicResolver returns the request's subscription; ok=false rejects the
// upgrade with 401.
type TopicResolver func(c echo.Context) (sub Subscription, ok bool)

type Handler struct {
	hub      *Hub
	resolve  TopicResolver
	upgrader gorillawebsocket.Upgrader
}

// NewHandler builds the upgrade handler. allowedOrigins empty means same-origin only.
func NewHandler(hub *Hub, resolve TopicResolver, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub:     hub,
		resolve: resolve,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin] || origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/live", h.Connect)
}

// Connect upgrades the request and starts the read and write pumps.
func (h *Handler) Connect(c echo.Context) error {
	sub, ok := h.resolve(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{ID: uuid.NewString(), SessionID: sub.SessionID, Topics: sub.Topics, Send: make(chan []byte, 64)}
	h.hub.Register(client)

	go writePump(client, ws)
	go readPump(h.hub, client, ws)
	return nil
}

// readPump discards inbound frames and unregisters the client when the
// connection closes.
func readPump(hub *Hub, client *Client, conn Conn) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(client *Client, conn Conn) {
	defer conn.Close()
	for message := range client.Send {
		if err := conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MessageType defines the type of WebSocket message pushed to monitors
type MessageType string

const (
	MsgIncidentOpened MessageType = "incident_opened"
	MsgDecisionTrace  MessageType = "decision_trace"
	MsgSessionUpdate  MessageType = "session_update"
	MsgError          MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages admin monitor connections. Several administrators may watch
// the same interview session at once.
type Hub struct {
	// sessionID -> connID -> connection
	monitors map[string]map[string]*Connection

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents one admin monitor subscription
type Connection struct {
	ID        string
	SessionID string
	AdminID   string
	Send      chan []byte
	Hub       *Hub
}

// BroadcastMessage is a message addressed to every monitor of a session
type BroadcastMessage struct {
	SessionID string
	Message   *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		monitors:   make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.monitors[conn.SessionID] == nil {
				h.monitors[conn.SessionID] = make(map[string]*Connection)
			}
			h.monitors[conn.SessionID][conn.ID] = conn
			h.mu.Unlock()
			logrus.WithFields(logrus.Fields{
				"session_id": conn.SessionID,
				"admin_id":   conn.AdminID,
			}).Info("admin monitor connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.monitors[conn.SessionID]; ok {
				if existing, ok := conns[conn.ID]; ok && existing == conn {
					delete(conns, conn.ID)
					close(conn.Send)
				}
				if len(conns) == 0 {
					delete(h.monitors, conn.SessionID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)
			for _, conn := range h.monitors[msg.SessionID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a monitor connection
func (h *Hub) Register(conn *Connection) {
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	h.register <- conn
}

// Unregister removes a monitor connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToAdmins pushes an event to every monitor of a session
// (implements service.Broadcaster).
func (h *Hub) BroadcastToAdmins(sessionID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Warn("failed to marshal broadcast payload")
		return
	}
	h.broadcast <- &BroadcastMessage{
		SessionID: sessionID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

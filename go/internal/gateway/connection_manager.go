package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/huddle/go/internal/events"
	"github.com/mcdev12/huddle/go/internal/identity"
	"github.com/mcdev12/huddle/go/internal/session"
	"github.com/rs/zerolog/log"
)

// SessionFactory creates the session backing a new connection
type SessionFactory func(ids identity.Store) *session.Session

// ConnectionManager manages WebSocket connections. Every connection is one device with its own
// session; devices see each other through the shared store, not through the manager.
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	sessions SessionFactory
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager
	Session *session.Session

	ConnectedAt time.Time

	// ids holds the participant a resuming client hands back
	ids *identity.MemoryStore

	// latest is the newest view not yet written; viewReady signals the write pump.
	viewMu    sync.Mutex
	latest    *session.View
	viewReady chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	RequestTimeout  time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		RequestTimeout:  30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			// party hubs are opened from any device on the network
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, sessions SessionFactory) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:   config,
		sessions: sessions,
	}
}

// Start blocks until ctx is done, then closes every connection
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	<-ctx.Done()

	cm.mu.RLock()
	open := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		open = append(open, c)
	}
	cm.mu.RUnlock()

	for _, c := range open {
		c.close()
	}
	log.Info().Int("connections", len(open)).Msg("connection manager shutting down")
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts a session for it
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	ids := &identity.MemoryStore{}
	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		Session:     cm.sessions(ids),
		ConnectedAt: time.Now(),
		ids:         ids,
		viewReady:   make(chan struct{}, 1),
		closed:      make(chan struct{}),
	}
	connection.Session.OnChange(connection.pushView)
	connection.Session.OnTransition(func(change events.SyncStateChangedPayload) {
		connection.sendEvent(EventTypeSyncState, "", change)
	})

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if _, exists := cm.connections[conn.ID]; !exists {
		return
	}
	delete(cm.connections, conn.ID)

	log.Info().
		Str("connection_id", conn.ID).
		Str("participant_id", conn.Session.Participant().ID).
		Msg("connection unregistered")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	states := make(map[string]int)
	for _, c := range cm.connections {
		states[string(c.Session.State())]++
	}

	return map[string]interface{}{
		"total_connections": len(cm.connections),
		"sync_states":       states,
	}
}

// close stops both pumps. The read pump then leaves the session.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.Conn.Close()
	})
}

// pushView keeps the newest view for the write pump. It never blocks.
func (c *Connection) pushView(v session.View) {
	c.viewMu.Lock()
	if c.latest == nil || v.Seq > c.latest.Seq {
		c.latest = &v
	}
	c.viewMu.Unlock()

	select {
	case c.viewReady <- struct{}{}:
	default:
	}
}

// sendEvent queues an event. A client too slow to drain its buffer is disconnected.
func (c *Connection) sendEvent(eventType EventType, requestID string, payload interface{}) {
	event, err := NewServerEvent(eventType, requestID, payload)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to build event")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal event")
		return
	}

	select {
	case <-c.closed:
	case c.Send <- data:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Msg("connection send buffer full, closing connection")
		c.close()
	}
}

// writePump is the only writer on the socket
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	var sent uint64
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.closed:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.viewReady:
			c.viewMu.Lock()
			view := c.latest
			c.viewMu.Unlock()
			if view == nil || view.Seq <= sent {
				continue
			}
			event, err := NewServerEvent(EventTypeView, "", view)
			if err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to build view event")
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal view event")
				continue
			}
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
			sent = view.Seq

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
	if err := c.Conn.WriteMessage(messageType, data); err != nil {
		log.Error().
			Err(err).
			Str("connection_id", c.ID).
			Msg("failed to write to WebSocket")
		return err
	}
	return nil
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.close()
		c.Session.Leave()
		c.Manager.unregisterConnection(c)
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage runs one intent and answers with a result or an error event
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendEvent(EventTypeError, "", ErrorPayload{
			Code:    errorCode(errBadRequest),
			Message: fmt.Sprintf("malformed message: %v", err),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.RequestTimeout)
	defer cancel()

	result, err := c.dispatch(ctx, &msg)
	if err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Str("intent", string(msg.Type)).
			Msg("intent rejected")
		c.sendEvent(EventTypeError, msg.ID, ErrorPayload{
			Intent:  msg.Type,
			Code:    errorCode(err),
			Message: err.Error(),
		})
		return
	}
	c.sendEvent(EventTypeResult, msg.ID, result)
}

package arbiter

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // client frames are join and pick only
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// Connection represents a WebSocket connection to a drafting client
type Connection struct {
	ID      string
	TeamID  string // empty for spectators
	Joined  bool
	Conn    *websocket.Conn
	Send    chan []byte
	Arbiter *Arbiter

	ConnectedAt time.Time
}

// UpgradeConnection upgrades an HTTP connection to WebSocket. The client is
// expected to send a join frame next.
func (a *Arbiter) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, a.config.SendBufferSize),
		Arbiter:     a,
		ConnectedAt: a.clock.Now(),
	}

	if !a.registerConnection(connection) {
		conn.Close()
		return fmt.Errorf("arbiter is shutting down")
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the arbiter
func (a *Arbiter) registerConnection(conn *Connection) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return false
	}
	a.conns[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(a.conns)).
		Msg("connection registered")
	return true
}

// unregisterConnection removes a connection from the arbiter
func (a *Arbiter) unregisterConnection(conn *Connection) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unregisterLocked(conn)
}

func (a *Arbiter) unregisterLocked(conn *Connection) {
	if _, exists := a.conns[conn]; !exists {
		return
	}
	delete(a.conns, conn)
	close(conn.Send)

	log.Info().
		Str("connection_id", conn.ID).
		Str("team_id", conn.TeamID).
		Msg("connection unregistered")
}

// enqueueLocked queues a frame for one connection. A connection that cannot
// keep up is dropped. Callers hold a.mu, which keeps per-connection frame
// order identical to the order of state changes.
func (a *Arbiter) enqueueLocked(conn *Connection, frame []byte) {
	if _, exists := a.conns[conn]; !exists {
		return
	}
	select {
	case conn.Send <- frame:
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("team_id", conn.TeamID).
			Msg("connection send buffer full, closing connection")
		a.unregisterLocked(conn)
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	config := c.Arbiter.config
	ticker := time.NewTicker(config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Arbiter.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	config := c.Arbiter.config
	defer func() {
		c.Arbiter.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.Arbiter.handleClientMessage(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
	}
}

package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/events"
)

// Inbound is one item read from the connection. The last item before the
// channel closes carries Err when the connection dropped on its own.
type Inbound struct {
	Data []byte
	Err  error
}

// Conn is the connection a session drives.
type Conn interface {
	Inbound() <-chan Inbound
	Send(frame []byte) error
	IsOpen() bool
	Close() error
}

// DialFunc opens a connection and sends the join frame.
type DialFunc func(ctx context.Context, leagueID, authToken string) (Conn, error)

// WebSocketDialer returns a DialFunc that opens a new Transport per call.
func WebSocketDialer(url string, config ConnectionConfig) DialFunc {
	return func(ctx context.Context, leagueID, authToken string) (Conn, error) {
		t := NewTransport(url, config)
		if err := t.Open(ctx, leagueID, authToken); err != nil {
			return nil, err
		}
		return t, nil
	}
}

// Transport owns a single websocket connection to the draft server.
// It is single use: a reconnect is a new Transport.
type Transport struct {
	url    string
	config ConnectionConfig
	dialer *websocket.Dialer

	conn    *websocket.Conn
	send    chan []byte
	inbound chan Inbound
	done    chan struct{}

	opened    atomic.Bool
	pumping   atomic.Bool
	open      atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once

	leagueID string
}

// NewTransport creates a transport for the given websocket URL
func NewTransport(url string, config ConnectionConfig) *Transport {
	defaults := DefaultConnectionConfig()
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = defaults.SendBufferSize
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	return &Transport{
		url:    url,
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
		},
		send:    make(chan []byte, config.SendBufferSize),
		inbound: make(chan Inbound, 64),
		done:    make(chan struct{}),
	}
}

// Open dials the server and immediately sends the join frame.
func (t *Transport) Open(ctx context.Context, leagueID, authToken string) (err error) {
	if !t.opened.CompareAndSwap(false, true) {
		return errors.New("transport already used")
	}
	t.leagueID = leagueID

	defer func() {
		if err != nil {
			t.Close()
		}
	}()

	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrConnectivity, t.url, err)
	}
	t.conn = conn

	join, err := events.EncodeJoin(leagueID, authToken)
	if err != nil {
		return err
	}
	t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, join); err != nil {
		return fmt.Errorf("%w: send join: %w", ErrConnectivity, err)
	}

	t.open.Store(true)
	t.pumping.Store(true)
	go t.writePump()
	go t.readPump()

	log.Info().
		Str("url", t.url).
		Str("league_id", leagueID).
		Msg("draft connection established")

	return nil
}

// Inbound returns the ordered stream of frames read from the server.
func (t *Transport) Inbound() <-chan Inbound {
	return t.inbound
}

// IsOpen reports whether frames can be sent.
func (t *Transport) IsOpen() bool {
	return t.open.Load()
}

// Send queues a frame for the write pump. It is a logged no-op when the
// connection is not open.
func (t *Transport) Send(frame []byte) error {
	if !t.IsOpen() {
		log.Warn().Str("league_id", t.leagueID).Msg("dropping frame, connection not open")
		return ErrNotOpen
	}

	select {
	case t.send <- frame:
		return nil
	case <-t.done:
		return ErrNotOpen
	default:
		log.Warn().Str("league_id", t.leagueID).Msg("send buffer full, dropping frame")
		return errors.New("send buffer full")
	}
}

// Close releases the socket. Safe to call more than once.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closing.Store(true)
		t.open.Store(false)
		close(t.done)

		if !t.pumping.Load() {
			// no read pump will close the stream
			close(t.inbound)
		}
		if t.conn == nil {
			return
		}

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		t.conn.Close()

		log.Debug().Str("league_id", t.leagueID).Msg("draft connection closed")
	})
	return nil
}

// readPump reads frames in order and hands them to the session.
func (t *Transport) readPump() {
	defer close(t.inbound)

	t.conn.SetReadLimit(t.config.MaxMessageSize)
	t.conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			t.open.Store(false)
			if t.closing.Load() {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("league_id", t.leagueID).Msg("unexpected websocket close")
			}
			select {
			case t.inbound <- Inbound{Err: fmt.Errorf("%w: %w", ErrDisconnected, err)}:
			case <-t.done:
			}
			t.Close()
			return
		}

		t.conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))
		select {
		case t.inbound <- Inbound{Data: message}:
		case <-t.done:
			return
		}
	}
}

// writePump writes queued frames and keeps the connection alive.
func (t *Transport) writePump() {
	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return

		case frame := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
			if err := t.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Error().Err(err).Str("league_id", t.leagueID).Msg("failed to write frame")
				t.open.Store(false)
				return
			}

		case <-ticker.C:
			if err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.config.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("league_id", t.leagueID).Msg("failed to send ping")
				t.open.Store(false)
				return
			}
		}
	}
}

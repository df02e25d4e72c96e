package client

import (
	"time"
)

// ConnectionConfig holds configuration for the websocket connection
type ConnectionConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	MaxMessageSize   int64
	ReadBufferSize   int
	WriteBufferSize  int
	SendBufferSize   int
}

// DefaultConnectionConfig returns default websocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		MaxMessageSize:   4 << 20, // snapshots carry the whole player pool
		ReadBufferSize:   4096,
		WriteBufferSize:  1024,
		SendBufferSize:   16,
	}
}

// Config holds configuration for a draft session
type Config struct {
	URL       string
	LeagueID  string
	AuthToken string

	Connection ConnectionConfig

	// SnapshotTimeout bounds the wait for the init frame after joining
	SnapshotTimeout time.Duration
	// AutoRetries is how many times a failed handshake is retried before giving up
	AutoRetries int
	// TickInterval is the countdown cadence, clamped to [100ms, 1s]
	TickInterval time.Duration
	// LowTimeThreshold is the remaining time below which picks skip confirmation
	LowTimeThreshold time.Duration
	// AdminObserver sessions watch the draft but never act
	AdminObserver bool

	AlertWindow    time.Duration
	AlertCacheSize int
}

// DefaultConfig returns default configuration for a draft session
func DefaultConfig() Config {
	return Config{
		Connection:       DefaultConnectionConfig(),
		SnapshotTimeout:  10 * time.Second,
		AutoRetries:      1,
		TickInterval:     250 * time.Millisecond,
		LowTimeThreshold: 10 * time.Second,
		AlertWindow:      2 * time.Minute,
		AlertCacheSize:   256,
	}
}

const (
	minTickInterval = 100 * time.Millisecond
	maxTickInterval = time.Second
)

func (c Config) tickInterval() time.Duration {
	switch {
	case c.TickInterval <= 0:
		return DefaultConfig().TickInterval
	case c.TickInterval < minTickInterval:
		return minTickInterval
	case c.TickInterval > maxTickInterval:
		return maxTickInterval
	}
	return c.TickInterval
}

package client

import "errors"

var (
	// ErrNotOpen is returned when sending on a connection that is not open
	ErrNotOpen = errors.New("connection not open")
	// ErrConnectivity is returned when the draft server cannot be reached or drops before a snapshot
	ErrConnectivity = errors.New("cannot connect to draft server")
	// ErrSnapshotTimeout is returned when no init frame arrives in time
	ErrSnapshotTimeout = errors.New("timed out waiting for draft snapshot")
	// ErrDisconnected is returned by Run when a live connection drops
	ErrDisconnected = errors.New("disconnected from draft server")
	// ErrSessionClosed is returned after Close
	ErrSessionClosed = errors.New("session closed")
	// ErrPlayerUnavailable is returned when picking a player that is not in the pool
	ErrPlayerUnavailable = errors.New("player not available")
)

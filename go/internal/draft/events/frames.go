package events

import "encoding/json"

// FrameType identifies a wire frame
type FrameType string

const (
	// client -> server
	FrameJoin FrameType = "join"
	FramePick FrameType = "pick"

	// server -> client
	FrameInit              FrameType = "init"
	FrameTimerStart        FrameType = "timer-start"
	FrameDraftTimerStarted FrameType = "draft-timer-started"
	FrameTimerStop         FrameType = "timer-stop"
	FramePickMade          FrameType = "pick-made"
	FrameAutoPickMade      FrameType = "auto-pick-made"
)

// Frame is the envelope every message travels in
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

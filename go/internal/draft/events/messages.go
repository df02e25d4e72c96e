package events

// Message is a decoded server->client frame. The set of implementations is
// closed; consumers dispatch through Handler.
type Message interface {
	Type() FrameType
	Accept(h Handler) error

	payload() any
}

// Handler has one method per server message. Adding a message type adds a
// method here, so every handler must be updated to compile.
type Handler interface {
	HandleInit(m Init) error
	HandleTimerStarted(m TimerStarted) error
	HandleTimerStopped(m TimerStopped) error
	HandlePickMade(m PickMade) error
}

// Init is a full snapshot.
type Init struct {
	InitPayload
}

// TimerStarted replaces the timer anchor.
type TimerStarted struct {
	Frame FrameType // timer-start or draft-timer-started
	TimerPayload
}

// TimerStopped clears the timer anchor.
type TimerStopped struct{}

// PickMade replaces order and pool after a pick. Auto-picks made by the
// server on timeout arrive as the same message with Frame set to
// auto-pick-made.
type PickMade struct {
	Frame FrameType // pick, pick-made or auto-pick-made
	PickMadePayload
}

// Auto reports whether the server picked on the team's behalf.
func (m PickMade) Auto() bool { return m.Frame == FrameAutoPickMade }

func (m Init) Type() FrameType { return FrameInit }
func (m Init) Accept(h Handler) error { return h.HandleInit(m) }
func (m Init) payload() any { return m.InitPayload }
func (m TimerStopped) Type() FrameType { return FrameTimerStop }
func (m TimerStopped) payload() any { return struct{}{} }
func (m TimerStarted) payload() any { return m.TimerPayload }
func (m PickMade) payload() any { return m.PickMadePayload }

func (m TimerStopped) Accept(h Handler) error { return h.HandleTimerStopped(m) }
func (m TimerStarted) Accept(h Handler) error { return h.HandleTimerStarted(m) }
func (m PickMade) Accept(h Handler) error { return h.HandlePickMade(m) }

func (m TimerStarted) Type() FrameType {
	if m.Frame == "" {
		return FrameTimerStart
	}
	return m.Frame
}

func (m PickMade) Type() FrameType {
	if m.Frame == "" {
		return FramePickMade
	}
	return m.Frame
}

// ClientMessage is a decoded client->server frame.
type ClientMessage interface {
	Type() FrameType
	isClientMessage()
}

// Join asks the server for a snapshot of a league's draft.
type Join struct {
	JoinPayload
}

// Pick is a pick intent.
type Pick struct {
	PickPayload
}

func (Join) Type() FrameType { return FrameJoin }
func (Pick) Type() FrameType { return FramePick }
func (Join) isClientMessage() {}
func (Pick) isClientMessage() {}

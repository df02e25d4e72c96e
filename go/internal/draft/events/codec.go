package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame is returned for frames that cannot be parsed or lack required fields
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnknownFrameType is returned for frames with a type outside the protocol
	ErrUnknownFrameType = errors.New("unknown frame type")
)

// Decode parses a server->client frame.
func Decode(data []byte) (Message, error) {
	frame, body, err := splitFrame(data)
	if err != nil {
		return nil, err
	}

	switch frame.Type {
	case FrameInit:
		var p InitPayload
		if err := unmarshalBody(frame.Type, body, &p); err != nil {
			return nil, err
		}
		if p.DraftOrder == nil || p.AvailablePlayers == nil {
			return nil, fmt.Errorf("%w: %s without draftOrder or availablePlayers", ErrMalformedFrame, frame.Type)
		}
		return Init{InitPayload: p}, nil

	case FrameTimerStart, FrameDraftTimerStarted:
		var p TimerPayload
		if err := unmarshalBody(frame.Type, body, &p); err != nil {
			return nil, err
		}
		if p.StartTime.IsZero() || p.TimeoutMs <= 0 {
			return nil, fmt.Errorf("%w: %s without startTime or timeoutMs", ErrMalformedFrame, frame.Type)
		}
		return TimerStarted{Frame: frame.Type, TimerPayload: p}, nil

	case FrameTimerStop:
		return TimerStopped{}, nil

	case FramePick, FramePickMade, FrameAutoPickMade:
		var p PickMadePayload
		if err := unmarshalBody(frame.Type, body, &p); err != nil {
			return nil, err
		}
		if p.DraftOrder == nil || p.AvailablePlayers == nil {
			return nil, fmt.Errorf("%w: %s without draftOrder or availablePlayers", ErrMalformedFrame, frame.Type)
		}
		return PickMade{Frame: frame.Type, PickMadePayload: p}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, frame.Type)
	}
}

// DecodeClient parses a client->server frame.
func DecodeClient(data []byte) (ClientMessage, error) {
	frame, body, err := splitFrame(data)
	if err != nil {
		return nil, err
	}

	switch frame.Type {
	case FrameJoin:
		var p JoinPayload
		if err := unmarshalBody(frame.Type, body, &p); err != nil {
			return nil, err
		}
		if p.LeagueID == "" {
			return nil, fmt.Errorf("%w: join without leagueId", ErrMalformedFrame)
		}
		return Join{JoinPayload: p}, nil

	case FramePick:
		var p PickPayload
		if err := unmarshalBody(frame.Type, body, &p); err != nil {
			return nil, err
		}
		if p.Player == "" || p.Pick <= 0 {
			return nil, fmt.Errorf("%w: pick without player or pick number", ErrMalformedFrame)
		}
		return Pick{PickPayload: p}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, frame.Type)
	}
}

// Encode wraps a server message in its envelope.
func Encode(m Message) ([]byte, error) {
	return encodeFrame(m.Type(), m.payload())
}

// EncodeJoin builds the join frame sent right after connecting.
func EncodeJoin(leagueID, token string) ([]byte, error) {
	return encodeFrame(FrameJoin, JoinPayload{Token: token, LeagueID: leagueID})
}

// EncodePick builds a pick intent frame.
func EncodePick(leagueID, playerID string, pickNumber int) ([]byte, error) {
	return encodeFrame(FramePick, PickPayload{Player: playerID, LeagueID: leagueID, Pick: pickNumber})
}

func encodeFrame(t FrameType, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return json.Marshal(Frame{Type: t, Payload: body})
}

// splitFrame returns the envelope and the payload body. Frames without a
// payload field are treated as flat, with the payload fields at top level.
func splitFrame(data []byte) (Frame, []byte, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if frame.Type == "" {
		return Frame{}, nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	body := bytes.TrimSpace(frame.Payload)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		body = data
	}
	return frame, body, nil
}

func unmarshalBody(t FrameType, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedFrame, t, err)
	}
	return nil
}

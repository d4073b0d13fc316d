package model

import "time"

// Direction of a call as seen from the account owner.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Call is a single call-detail record from the platform API.
type Call struct {
	ID        int64
	Direction Direction

	// Source / destination numbers as reported by the platform.
	SourceNumber string
	DestNumber   string
	// CallerName is the caller ID name, if any.
	CallerName string
	// DestCode is the platform's code for the destination (queue, voicemail, ...).
	DestCode string

	// Start is the absolute instant the call was placed, decoded from the
	// API's reference timezone.
	Start time.Time
	// Duration is the answered time; zero for unanswered calls.
	Duration time.Duration
	Answered bool
}

// Missed reports whether an inbound call was never picked up.
func (c Call) Missed() bool {
	return c.Direction == DirectionInbound && !c.Answered
}

// RemoteNumber is the other party's number.
func (c Call) RemoteNumber() string {
	if c.Direction == DirectionOutbound {
		return c.DestNumber
	}
	return c.SourceNumber
}

// End is Start + Duration.
func (c Call) End() time.Time {
	return c.Start.Add(c.Duration)
}

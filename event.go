package main

import "gitlab.com/gomidi/midi/v2"

// -------------------- Event model --------------------

// EventKind classifies a decoded incoming MIDI message.
type EventKind int

const (
	EventNoteOn EventKind = iota
	EventNoteOff
	EventChannelPressure
	EventOther
)

func eventKindName(k EventKind) string {
	switch k {
	case EventNoteOn:
		return "NOTE_ON"
	case EventNoteOff:
		return "NOTE_OFF"
	case EventChannelPressure:
		return "CHANNEL_PRESSURE"
	case EventOther:
		return "OTHER"
	}
	return "UNKNOWN"
}

// Event is one decoded incoming MIDI message. Raw always carries the
// original bytes so unhandled messages can pass through untouched.
type Event struct {
	Kind    EventKind
	Channel uint8
	Note    uint8
	Value   uint8 // velocity for note events, pressure for aftertouch
	Raw     midi.Message
}

// OutKind classifies a message the controller wants sent.
type OutKind int

const (
	OutPolyPressure OutKind = iota
	OutPitchBend
	OutPassthrough
)

// OutEvent is one outgoing message produced by a tick handler. Note and
// Value are ints rather than bytes: Note may be the NoNote sentinel and
// Value may be an unclamped bend value. The wire layer narrows both.
type OutEvent struct {
	Kind    OutKind
	Note    int
	Value   int
	Channel uint8
	Raw     midi.Message // payload for OutPassthrough
}

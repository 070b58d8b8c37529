package main

// -------------------- Note priority tracking --------------------

// NoNote is returned by CurrentNote when nothing is held.
const NoNote = -1

// NotePolicy selects which held note receives rewritten aftertouch.
type NotePolicy string

const (
	PolicyMostRecent NotePolicy = "recent" // last pressed wins
	PolicyLowest     NotePolicy = "lowest" // lowest pitch wins
	PolicyFirst      NotePolicy = "first"  // first pressed wins
)

// NotePriorityBuffer tracks currently-held notes in press order and picks
// the one that should receive aftertouch. It never emits MIDI itself.
type NotePriorityBuffer struct {
	held   []uint8 // press order, oldest first
	policy NotePolicy
}

func NewNotePriorityBuffer(policy NotePolicy) *NotePriorityBuffer {
	return &NotePriorityBuffer{policy: policy}
}

// NoteOn records a note as held and as the most recently pressed. A repeated
// press of an already-held note just refreshes its recency.
func (b *NotePriorityBuffer) NoteOn(note uint8) {
	b.remove(note)
	b.held = append(b.held, note)
	logger.Debug("notes: on", "note", pitchName(int(note)), "held", len(b.held))
}

// NoteOff removes a note from the held set. Unknown notes are ignored.
func (b *NotePriorityBuffer) NoteOff(note uint8) {
	b.remove(note)
	logger.Debug("notes: off", "note", pitchName(int(note)), "held", len(b.held))
}

// CurrentNote returns the note selected by the configured policy, or NoNote
// when nothing is held. The result is always a member of the held set.
func (b *NotePriorityBuffer) CurrentNote() int {
	if len(b.held) == 0 {
		return NoNote
	}
	switch b.policy {
	case PolicyLowest:
		low := b.held[0]
		for _, n := range b.held[1:] {
			if n < low {
				low = n
			}
		}
		return int(low)
	case PolicyFirst:
		return int(b.held[0])
	default: // PolicyMostRecent
		return int(b.held[len(b.held)-1])
	}
}

// Held returns the number of currently-held notes.
func (b *NotePriorityBuffer) Held() int { return len(b.held) }

// Clear drops all held notes (used on MIDI disconnect).
func (b *NotePriorityBuffer) Clear() { b.held = b.held[:0] }

func (b *NotePriorityBuffer) remove(note uint8) {
	for i, n := range b.held {
		if n == note {
			b.held = append(b.held[:i], b.held[i+1:]...)
			return
		}
	}
}

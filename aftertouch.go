package main

// -------------------- Aftertouch remapping --------------------

// activePressure records the last polyphonic aftertouch sent downstream, so
// the note it targets can always be zeroed before it is reused or released.
type activePressure struct {
	note     int
	pressure uint8
	channel  uint8
}

// AftertouchRemapper rewrites channel aftertouch into polyphonic aftertouch
// aimed at the priority buffer's current note. It guarantees that a note
// holding nonzero pressure gets a pressure-0 event before the pressure moves
// to a different note and on that note's release.
type AftertouchRemapper struct {
	notes  *NotePriorityBuffer
	active *activePressure
}

func NewAftertouchRemapper(notes *NotePriorityBuffer) *AftertouchRemapper {
	return &AftertouchRemapper{notes: notes}
}

// NoteOn handles an incoming note-on. A velocity-0 note-on is a note-off by
// MIDI convention and is treated identically.
func (r *AftertouchRemapper) NoteOn(ch, note, vel uint8) []OutEvent {
	if vel == 0 {
		return r.NoteOff(ch, note)
	}
	var out []OutEvent
	// Pressure still riding on a different note: zero it before anything else.
	if r.active != nil && r.active.pressure > 0 && r.active.note != int(note) {
		logger.Debug("aftertouch: clearing superseded note",
			"note", r.active.note, "channel", r.active.channel)
		out = append(out, r.pressureOff())
	}
	r.notes.NoteOn(note)
	return out
}

// NoteOff handles an incoming note-off, zeroing any pressure the released
// note still holds.
func (r *AftertouchRemapper) NoteOff(ch, note uint8) []OutEvent {
	var out []OutEvent
	if r.active != nil && r.active.pressure > 0 && r.active.note == int(note) {
		logger.Debug("aftertouch: clearing released note",
			"note", r.active.note, "channel", r.active.channel)
		out = append(out, r.pressureOff())
	}
	r.notes.NoteOff(note)
	return out
}

// ChannelPressure converts one channel-aftertouch event into one polyphonic
// aftertouch event targeting the current note. With nothing held the event
// is still emitted toward the NoNote sentinel rather than dropped.
func (r *AftertouchRemapper) ChannelPressure(ch, pressure uint8) []OutEvent {
	target := r.notes.CurrentNote()
	if target == NoNote {
		logger.Debug("aftertouch: pressure with no held note", "pressure", pressure)
	}
	r.active = &activePressure{note: target, pressure: pressure, channel: ch}
	return []OutEvent{{
		Kind:    OutPolyPressure,
		Note:    target,
		Value:   int(pressure),
		Channel: ch,
	}}
}

// Clear drops the recorded pressure without emitting (MIDI disconnect).
func (r *AftertouchRemapper) Clear() { r.active = nil }

func (r *AftertouchRemapper) pressureOff() OutEvent {
	ev := OutEvent{
		Kind:    OutPolyPressure,
		Note:    r.active.note,
		Value:   0,
		Channel: r.active.channel,
	}
	r.active = nil
	return ev
}

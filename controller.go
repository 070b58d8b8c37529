package main

import "time"

// -------------------- Controller --------------------

// Controller owns all per-tick state for both processing paths: the
// MIDI-event-driven path (note tracking + aftertouch rewriting) and the
// sample-driven path (ribbon filtering + bend emission).
//
// lastChannel is written by the MIDI path and read by the ribbon path
// within the same tick, so the event queue must always be drained before
// the ribbon sample is processed.
type Controller struct {
	notes  *NotePriorityBuffer
	remap  *AftertouchRemapper
	ribbon *RibbonFilter
	bend   *PitchBendEmitter

	lastChannel uint8

	// Strobe is a debug hook asserted around every ribbon transition or
	// bend send and cleared immediately after. Optional.
	Strobe func(on bool)
}

func NewController(cfg *Config) *Controller {
	notes := NewNotePriorityBuffer(cfg.NotePolicy)
	return &Controller{
		notes:  notes,
		remap:  NewAftertouchRemapper(notes),
		ribbon: NewRibbonFilter(cfg.Ribbon.Smoothing, cfg.Ribbon.SlopeThreshold, cfg.Ribbon.ContactThreshold, cfg.Ribbon.HistoryDepth),
		bend:   NewPitchBendEmitter(cfg.Bend.Scale, time.Duration(cfg.Bend.ThrottleMS)*time.Millisecond),
	}
}

// HandleEvent processes one decoded incoming MIDI event and returns the
// messages to send. Note events pass through after any aftertouch cleanup
// they trigger; channel aftertouch is consumed and replaced by its
// polyphonic rewrite; everything else passes through untouched.
func (c *Controller) HandleEvent(ev Event) []OutEvent {
	switch ev.Kind {
	case EventNoteOn:
		c.lastChannel = ev.Channel
		out := c.remap.NoteOn(ev.Channel, ev.Note, ev.Value)
		return append(out, OutEvent{Kind: OutPassthrough, Raw: ev.Raw})
	case EventNoteOff:
		c.lastChannel = ev.Channel
		out := c.remap.NoteOff(ev.Channel, ev.Note)
		return append(out, OutEvent{Kind: OutPassthrough, Raw: ev.Raw})
	case EventChannelPressure:
		return c.remap.ChannelPressure(ev.Channel, ev.Value)
	default:
		return []OutEvent{{Kind: OutPassthrough, Raw: ev.Raw}}
	}
}

// HandleSample processes one raw ribbon reading. Bends target the channel
// most recently seen on an incoming note event.
func (c *Controller) HandleSample(raw float64, now time.Time) []OutEvent {
	transition, offset := c.ribbon.Process(raw)

	if transition == ContactStarted || transition == ContactEnded {
		v := c.bend.Reset(now)
		c.pulse()
		return []OutEvent{{Kind: OutPitchBend, Value: v, Channel: c.lastChannel}}
	}
	if !c.ribbon.InContact() {
		return nil
	}
	if v, ok := c.bend.Update(offset, now); ok {
		c.pulse()
		return []OutEvent{{Kind: OutPitchBend, Value: v, Channel: c.lastChannel}}
	}
	return nil
}

// CurrentNote exposes the aftertouch target, mainly for logging.
func (c *Controller) CurrentNote() int { return c.notes.CurrentNote() }

// Reset drops all tracking state without emitting anything. Used when the
// MIDI device disappears and there is nowhere left to send cleanup events.
func (c *Controller) Reset() {
	c.notes.Clear()
	c.remap.Clear()
	logger.Info("controller: state cleared")
}

func (c *Controller) pulse() {
	if c.Strobe != nil {
		c.Strobe(true)
		c.Strobe(false)
	}
}

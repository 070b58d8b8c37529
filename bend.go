package main

import "time"

// -------------------- Pitch bend emission --------------------

// PitchBendEmitter turns ribbon offsets into rate-limited pitch-bend values.
// A bend goes out only when it differs from the last sent value and the
// throttle interval has elapsed; contact transitions bypass both checks with
// an unconditional zero bend.
type PitchBendEmitter struct {
	scale    float64
	throttle time.Duration

	lastBend   int
	lastSendAt time.Time
	sentAny    bool
}

func NewPitchBendEmitter(scale float64, throttle time.Duration) *PitchBendEmitter {
	return &PitchBendEmitter{scale: scale, throttle: throttle}
}

// Update computes the bend for the given baseline offset and reports whether
// it should be sent now. The returned value is the raw scaled integer; any
// clamping to the wire's 14-bit domain happens at send time.
func (e *PitchBendEmitter) Update(offset float64, now time.Time) (int, bool) {
	bend := int(offset * e.scale)
	if e.sentAny && bend == e.lastBend {
		return 0, false
	}
	if e.sentAny && now.Sub(e.lastSendAt) < e.throttle {
		return 0, false
	}
	e.lastBend = bend
	e.lastSendAt = now
	e.sentAny = true
	logger.Debug("bend: send", "value", bend)
	return bend, true
}

// Reset records an unconditional zero bend, bypassing the throttle. Used on
// contact start and contact end.
func (e *PitchBendEmitter) Reset(now time.Time) int {
	e.lastBend = 0
	e.lastSendAt = now
	e.sentAny = true
	logger.Debug("bend: reset")
	return 0
}

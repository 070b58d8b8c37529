package main

import "math"

// -------------------- Ribbon filtering --------------------

// ContactTransition reports a change of the ribbon's touched state.
type ContactTransition int

const (
	ContactNone ContactTransition = iota
	ContactStarted
	ContactEnded
)

// RibbonFilter smooths raw position samples, rejects the steep ramps the
// sensor produces while a finger lands or lifts, and tracks the contact
// baseline. It performs no MIDI I/O.
//
// The slope filter works on a lagged copy of the smoothed signal: the
// current accumulator is compared against its own value from one history
// length ago, and the update is rejected when the difference exceeds the
// slope threshold. A genuine press settles within a buffer length; a
// transient never does.
type RibbonFilter struct {
	smoothing        float64 // EMA weight of the incoming sample
	slopeThreshold   float64
	contactThreshold float64

	accumulator float64
	history     []float64 // ring of past accumulator values
	idx         int
	seeded      bool

	currentValue float64
	baseline     float64
	inContact    bool
}

func NewRibbonFilter(smoothing, slopeThreshold, contactThreshold float64, historyDepth int) *RibbonFilter {
	return &RibbonFilter{
		smoothing:        smoothing,
		slopeThreshold:   slopeThreshold,
		contactThreshold: contactThreshold,
		history:          make([]float64, historyDepth),
	}
}

// Process feeds one raw ADC reading. It returns the contact transition this
// sample caused (if any) and, while in contact, the offset from the baseline
// used for bend computation. The first sample ever seen seeds the
// accumulator and the whole history.
func (f *RibbonFilter) Process(raw float64) (ContactTransition, float64) {
	if !f.seeded {
		f.accumulator = raw
		for i := range f.history {
			f.history[i] = raw
		}
		f.currentValue = raw
		f.seeded = true
	} else {
		f.accumulator = (1-f.smoothing)*f.accumulator + f.smoothing*raw
	}

	f.history[f.idx] = f.accumulator
	f.idx = (f.idx + 1) % len(f.history)
	// After the push, idx points at the oldest retained sample: the
	// accumulator from len(history)-1 steps ago.
	earlier := f.history[f.idx]

	if math.Abs(f.accumulator-earlier) < f.slopeThreshold {
		f.currentValue = f.accumulator
	}

	switch {
	case !f.inContact && f.currentValue > f.contactThreshold:
		f.inContact = true
		f.baseline = f.currentValue
		logger.Info("ribbon: contact started", "baseline", f.baseline)
		return ContactStarted, 0
	case f.inContact && f.currentValue <= f.contactThreshold:
		f.inContact = false
		f.baseline = 0
		logger.Info("ribbon: contact ended")
		return ContactEnded, 0
	case f.inContact:
		return ContactNone, f.currentValue - f.baseline
	}
	return ContactNone, 0
}

// InContact reports whether the ribbon is currently touched.
func (f *RibbonFilter) InContact() bool { return f.inContact }

// Baseline returns the position recorded at first contact, 0 when untouched.
func (f *RibbonFilter) Baseline() float64 { return f.baseline }

// CurrentValue returns the latest accepted smoothed position.
func (f *RibbonFilter) CurrentValue() float64 { return f.currentValue }

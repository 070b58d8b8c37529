package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRemapper() (*AftertouchRemapper, *NotePriorityBuffer) {
	notes := NewNotePriorityBuffer(PolicyMostRecent)
	return NewAftertouchRemapper(notes), notes
}

func TestChannelPressureTargetsCurrentNote(t *testing.T) {
	r, _ := newRemapper()
	r.NoteOn(1, 60, 100)

	out := r.ChannelPressure(1, 80)
	require.Len(t, out, 1)
	assert.Equal(t, OutPolyPressure, out[0].Kind)
	assert.Equal(t, 60, out[0].Note)
	assert.Equal(t, 80, out[0].Value)
	assert.Equal(t, uint8(1), out[0].Channel)
}

func TestSupersededNoteClearedBeforeNoteOn(t *testing.T) {
	r, notes := newRemapper()
	r.NoteOn(1, 60, 100)
	r.ChannelPressure(1, 80)

	out := r.NoteOn(1, 64, 90)
	require.Len(t, out, 1)
	assert.Equal(t, OutPolyPressure, out[0].Kind)
	assert.Equal(t, 60, out[0].Note)
	assert.Equal(t, 0, out[0].Value)
	assert.Equal(t, uint8(1), out[0].Channel)
	// The note-on itself still lands after the cleanup.
	assert.Equal(t, 64, notes.CurrentNote())
}

func TestReleasedNoteCleared(t *testing.T) {
	r, _ := newRemapper()
	r.NoteOn(1, 60, 100)
	r.ChannelPressure(1, 80)

	out := r.NoteOff(1, 60)
	require.Len(t, out, 1)
	assert.Equal(t, 60, out[0].Note)
	assert.Equal(t, 0, out[0].Value)

	// Pressure was cleared; a second release emits nothing.
	out = r.NoteOff(1, 60)
	assert.Empty(t, out)
}

func TestPressureOffUsesRecordedChannel(t *testing.T) {
	r, _ := newRemapper()
	r.NoteOn(2, 60, 100)
	r.ChannelPressure(2, 80)

	// Note-on arrives on another channel; the cleanup still targets the
	// exact (note, channel) the pressure was recorded on.
	out := r.NoteOn(3, 64, 90)
	require.Len(t, out, 1)
	assert.Equal(t, 60, out[0].Note)
	assert.Equal(t, uint8(2), out[0].Channel)
}

func TestSameNoteRetriggerKeepsPressure(t *testing.T) {
	r, _ := newRemapper()
	r.NoteOn(1, 60, 100)
	r.ChannelPressure(1, 80)

	// Re-pressing the pressured note is not a supersession.
	out := r.NoteOn(1, 60, 110)
	assert.Empty(t, out)
}

func TestZeroPressureNeverDangles(t *testing.T) {
	r, _ := newRemapper()
	r.NoteOn(1, 60, 100)
	r.ChannelPressure(1, 0)

	// Pressure is already zero; neither release nor supersession re-clears.
	assert.Empty(t, r.NoteOn(1, 64, 90))
	assert.Empty(t, r.NoteOff(1, 60))
}

func TestVelocityZeroNoteOnEqualsNoteOff(t *testing.T) {
	setup := func() *AftertouchRemapper {
		r, _ := newRemapper()
		r.NoteOn(1, 60, 100)
		r.ChannelPressure(1, 80)
		return r
	}

	viaOff := setup().NoteOff(1, 60)
	viaZeroVel := setup().NoteOn(1, 60, 0)
	assert.Equal(t, viaOff, viaZeroVel)
}

func TestPressureWithNothingHeldStillEmitted(t *testing.T) {
	r, _ := newRemapper()
	out := r.ChannelPressure(0, 50)
	require.Len(t, out, 1)
	assert.Equal(t, NoNote, out[0].Note)
	assert.Equal(t, 50, out[0].Value)
}

// Whenever a pressured note is released or superseded, exactly one
// pressure-0 event goes out for it before pressure lands anywhere else.
func TestNoDanglingPressureAcrossSequence(t *testing.T) {
	r, _ := newRemapper()
	var all []OutEvent
	collect := func(evs []OutEvent) { all = append(all, evs...) }

	collect(r.NoteOn(1, 60, 100))
	collect(r.ChannelPressure(1, 64))
	collect(r.NoteOn(1, 64, 100)) // supersedes 60
	collect(r.ChannelPressure(1, 72))
	collect(r.NoteOff(1, 64)) // releases with pressure
	collect(r.NoteOff(1, 60))

	offs := map[int]int{}
	for _, ev := range all {
		if ev.Kind == OutPolyPressure && ev.Value == 0 {
			offs[ev.Note]++
		}
	}
	assert.Equal(t, 1, offs[60])
	assert.Equal(t, 1, offs[64])
}

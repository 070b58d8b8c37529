package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// -------------------- Port selection --------------------

const midiRescanInterval = 1000 * time.Millisecond

// eventQueueDepth bounds the per-tick event backlog. Overflow drops the
// event with a warning rather than blocking the listener goroutine.
const eventQueueDepth = 128

// -------------------- MIDIWatcher --------------------

// MIDIWatcher monitors available MIDI inputs and maintains a connection to
// the preferred instrument. It handles hot-plug (new device appears) and
// hot-unplug (device disappears) transparently.
//
// Decoded events are buffered on Events() and drained once per loop tick.
// onDisconnect is called (from a goroutine) when the active device is lost;
// callers should use it to drop all note/pressure tracking state.
type MIDIWatcher struct {
	mu           sync.Mutex
	drv          *rtmididrv.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time

	preferred []string
	excluded  []string

	events       chan Event
	onDisconnect func()
}

// NewMIDIWatcher creates a watcher and initialises the underlying rtmidi
// driver. Call Close() when done.
func NewMIDIWatcher(cfg MIDIConfig, onDisconnect func()) (*MIDIWatcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &MIDIWatcher{
		drv:          drv,
		preferred:    cfg.PreferredInputs,
		excluded:     cfg.ExcludedInputs,
		events:       make(chan Event, eventQueueDepth),
		onDisconnect: onDisconnect,
	}, nil
}

// Events returns the queue of decoded incoming events.
func (m *MIDIWatcher) Events() <-chan Event { return m.events }

// Driver exposes the rtmidi driver so the output port can share it.
func (m *MIDIWatcher) Driver() *rtmididrv.Driver { return m.drv }

// Close shuts down the active MIDI connection and the rtmidi driver.
func (m *MIDIWatcher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeConn()
	m.drv.Close()
}

// Tick should be called from the main loop. It rate-limits itself to the
// rescan interval, scans for devices, auto-connects to a preferred one, and
// detects disappearances.
func (m *MIDIWatcher) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if !m.lastRescanAt.IsZero() && now.Sub(m.lastRescanAt) < midiRescanInterval {
		return
	}
	m.lastRescanAt = now

	inputs := m.listInputs()

	if m.connected {
		// Verify the selected device is still present.
		for _, n := range inputs {
			if n == m.selectedName {
				return // still there, nothing to do
			}
		}
		// Device disappeared.
		logger.Warn("midi: device disappeared", "device", m.selectedName)
		m.closeConn()
		m.lastRescanAt = time.Time{} // rescan immediately next tick
		if m.onDisconnect != nil {
			go m.onDisconnect()
		}
		return
	}

	// Not connected – try to connect.
	if len(inputs) == 0 {
		return
	}
	cand, ok := m.pickPreferred(inputs)
	if !ok {
		return
	}
	if err := m.openByName(cand); err != nil {
		logger.Error("midi: connect failed", "device", cand, "err", err)
	}
}

// -------------------- internal --------------------

func (m *MIDIWatcher) listInputs() []string {
	ins, err := m.drv.Ins()
	if err != nil {
		logger.Error("midi: list inputs failed", "err", err)
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		excluded := false
		for _, pat := range m.excluded {
			if containsCI(name, pat) {
				excluded = true
				break
			}
		}
		if excluded {
			logger.Debug("midi: input excluded", "device", name)
		} else {
			names = append(names, name)
		}
	}
	logger.Debug("midi: inputs found", "count", len(names), "devices", strings.Join(names, ", "))
	return names
}

func (m *MIDIWatcher) pickPreferred(inputs []string) (string, bool) {
	for _, pat := range m.preferred {
		for _, name := range inputs {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func (m *MIDIWatcher) closeConn() {
	if m.stopFn != nil {
		m.stopFn()
		m.stopFn = nil
	}
	if m.inPort != nil {
		_ = m.inPort.Close()
		m.inPort = nil
	}
	m.connected = false
	m.selectedName = ""
}

func (m *MIDIWatcher) openByName(name string) error {
	ins, err := m.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		m.enqueue(decodeMessage(msg))
	}, midi.HandleError(func(listenErr error) {
		logger.Warn("midi: listener error", "device", name, "err", listenErr)
		// Must not call closeConn from within the listener goroutine, so
		// we dispatch to a new goroutine and re-acquire the mutex.
		go func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.connected && m.selectedName == name {
				m.closeConn()
				m.lastRescanAt = time.Time{} // trigger immediate rescan
				if m.onDisconnect != nil {
					go m.onDisconnect()
				}
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	m.inPort = found
	m.stopFn = stop
	m.connected = true
	m.selectedName = name
	logger.Info("midi: connected", "device", name)
	return nil
}

func (m *MIDIWatcher) enqueue(ev Event) {
	select {
	case m.events <- ev:
	default:
		logger.Warn("midi: event queue full, dropping", "kind", eventKindName(ev.Kind))
	}
}

// decodeMessage maps a raw message onto the event model. Velocity-0
// note-ons are deliberately kept as note-ons; the aftertouch remapper owns
// that equivalence.
func decodeMessage(msg midi.Message) Event {
	var ch, key, vel, pressure uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		return Event{Kind: EventNoteOn, Channel: ch, Note: key, Value: vel, Raw: msg}
	case msg.GetNoteOff(&ch, &key, &vel):
		return Event{Kind: EventNoteOff, Channel: ch, Note: key, Value: vel, Raw: msg}
	case msg.GetAfterTouch(&ch, &pressure):
		return Event{Kind: EventChannelPressure, Channel: ch, Value: pressure, Raw: msg}
	default:
		return Event{Kind: EventOther, Raw: msg}
	}
}

// -------------------- Output --------------------

// MIDIOut wraps the downstream port the rewritten stream is sent to.
type MIDIOut struct {
	port drivers.Out
	send func(midi.Message) error
}

// OpenMIDIOut opens the first output port matching pattern, or the first
// available port when pattern is empty.
func OpenMIDIOut(drv *rtmididrv.Driver, pattern string) (*MIDIOut, error) {
	outs, err := drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	var found drivers.Out
	for _, out := range outs {
		if pattern == "" || containsCI(out.String(), pattern) {
			found = out
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("no MIDI output matching %q", pattern)
	}
	if err := found.Open(); err != nil {
		return nil, fmt.Errorf("open output %q: %w", found.String(), err)
	}
	send, err := midi.SendTo(found)
	if err != nil {
		_ = found.Close()
		return nil, fmt.Errorf("sender for %q: %w", found.String(), err)
	}
	logger.Info("midi: output connected", "device", found.String())
	return &MIDIOut{port: found, send: send}, nil
}

// Emit converts one OutEvent to wire form and sends it. The core's note and
// bend values are unbounded ints; here they are narrowed to the 7-bit and
// 14-bit MIDI domains.
func (o *MIDIOut) Emit(ev OutEvent) {
	var msg midi.Message
	switch ev.Kind {
	case OutPolyPressure:
		msg = midi.PolyAfterTouch(ev.Channel, uint8(ev.Note)&0x7F, uint8(ev.Value)&0x7F)
	case OutPitchBend:
		msg = midi.Pitchbend(ev.Channel, clampBend(ev.Value))
	case OutPassthrough:
		msg = ev.Raw
	}
	if msg == nil {
		return
	}
	if err := o.send(msg); err != nil {
		logger.Error("midi: send failed", "err", err)
	}
}

// Close closes the output port.
func (o *MIDIOut) Close() {
	logger.Info("midi: closing output")
	_ = o.port.Close()
}

// clampBend narrows a raw bend value to the signed 14-bit pitch-bend range.
func clampBend(v int) int16 {
	if v < -8192 {
		return -8192
	}
	if v > 8191 {
		return 8191
	}
	return int16(v)
}

// -------------------- utility --------------------

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

package main

import (
	"os"
	"sync"

	"go.bug.st/serial"
)

// -------------------- Sensor frame protocol --------------------

const (
	SOF0          = 0xAA
	SOF1          = 0x55
	CmdSample     = 0x21
	SampleMax     = 4095 // 12-bit ADC
	samplePayload = 2    // big-endian sample bytes
)

// The MCU streams one frame per conversion:
//
//	[SOF0][SOF1][LEN][CMD][hi][lo][CKS]
//
// LEN counts CMD plus payload, CKS is the XOR of LEN, CMD and the payload.
// FrameDecoder consumes the byte stream one byte at a time and resyncs on
// any garbage or checksum failure.
type FrameDecoder struct {
	state   int
	length  byte
	cmd     byte
	payload []byte
	cks     byte
}

const (
	decWantSOF0 = iota
	decWantSOF1
	decWantLen
	decWantCmd
	decWantPayload
	decWantCks
)

// Feed consumes one byte and returns a decoded sample when it completes a
// valid sample frame.
func (d *FrameDecoder) Feed(b byte) (uint16, bool) {
	switch d.state {
	case decWantSOF0:
		if b == SOF0 {
			d.state = decWantSOF1
		}
	case decWantSOF1:
		if b == SOF1 {
			d.state = decWantLen
		} else if b != SOF0 { // AA AA 55 still syncs
			d.state = decWantSOF0
		}
	case decWantLen:
		d.length = b
		d.cks = b
		d.payload = d.payload[:0]
		if b < 1 {
			d.state = decWantSOF0
		} else {
			d.state = decWantCmd
		}
	case decWantCmd:
		d.cmd = b
		d.cks ^= b
		if d.length == 1 {
			d.state = decWantCks
		} else {
			d.state = decWantPayload
		}
	case decWantPayload:
		d.payload = append(d.payload, b)
		d.cks ^= b
		if len(d.payload) == int(d.length)-1 {
			d.state = decWantCks
		}
	case decWantCks:
		d.state = decWantSOF0
		if b != d.cks {
			logger.Warn("sensor: checksum mismatch, resyncing", "want", d.cks, "got", b)
			return 0, false
		}
		if d.cmd != CmdSample || len(d.payload) != samplePayload {
			logger.Debug("sensor: ignoring non-sample frame", "cmd", d.cmd)
			return 0, false
		}
		return uint16(d.payload[0])<<8 | uint16(d.payload[1]), true
	}
	return 0, false
}

// -------------------- Sensor port --------------------

// RibbonSensor owns the serial port the MCU streams position frames on. A
// background reader keeps only the most recent sample; the tick loop polls
// Latest without blocking.
type RibbonSensor struct {
	port serial.Port

	mu     sync.Mutex
	latest uint16
	seen   bool

	done chan struct{}
}

// OpenRibbonSensor opens the named serial device and starts the reader.
// Calls os.Exit on open failure.
func OpenRibbonSensor(device string, baud int) *RibbonSensor {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(device, mode)
	if err != nil {
		logger.Error("sensor: failed to open port", "device", device, "baud", baud, "err", err)
		os.Exit(1)
	}
	logger.Info("sensor: port opened", "device", device, "baud", baud)

	s := &RibbonSensor{port: p, done: make(chan struct{})}
	go s.run()
	return s
}

// Latest returns the most recent decoded sample. ok is false until the
// first complete frame has arrived.
func (s *RibbonSensor) Latest() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.latest), s.seen
}

// Close stops the reader and closes the port.
func (s *RibbonSensor) Close() {
	logger.Info("sensor: closing port")
	close(s.done)
	_ = s.port.Close()
}

func (s *RibbonSensor) run() {
	var dec FrameDecoder
	buf := make([]byte, 256)
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			logger.Error("sensor: read error", "err", err)
			return
		}
		for _, b := range buf[:n] {
			if sample, ok := dec.Feed(b); ok {
				s.mu.Lock()
				s.latest = sample
				s.seen = true
				s.mu.Unlock()
			}
		}
	}
}

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// -------------------- Logger --------------------

// logger is the package-wide structured logger. Safe to use before initLogger
// is called; defaults to slog.Default().
var logger = slog.Default()

// initLogger configures the shared slog logger and calls slog.SetDefault so
// the stdlib log package also routes through the same handler.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug, // include file:line in debug mode
	})
	logger = slog.New(h)
	slog.SetDefault(logger) // stdlib log.* now routes through slog
}

// -------------------- Pitch helpers --------------------

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func pitchName(pitch int) string {
	if pitch < 0 {
		return fmt.Sprintf("?\"%d\"", pitch)
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], (pitch/12)-1)
}

// -------------------- Main --------------------

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	configPath := flag.String("config", "config.yaml", "config file path")
	serialDev := flag.String("serial", "", "serial port device (overrides config)")
	baud := flag.Int("baud", 0, "serial baud rate (overrides config)")
	flag.Parse()

	initLogger(*debug)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if *serialDev != "" {
		cfg.Serial.Device = *serialDev
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}

	logger.Info("ribbon-bridge starting",
		"serial", cfg.Serial.Device,
		"baud", cfg.Serial.Baud,
		"tick_ms", cfg.TickMS,
		"note_policy", cfg.NotePolicy,
		"contact_threshold", cfg.Ribbon.ContactThreshold,
		"slope_threshold", cfg.Ribbon.SlopeThreshold,
		"bend_throttle_ms", cfg.Bend.ThrottleMS,
		"debug", *debug,
	)

	sensor := OpenRibbonSensor(cfg.Serial.Device, cfg.Serial.Baud)
	defer sensor.Close()

	ctrl := NewController(cfg)
	ctrl.Strobe = func(on bool) {
		logger.Debug("strobe", "on", on)
	}
	var stateMu sync.Mutex

	// onDisconnect runs from a watcher goroutine. There is nowhere left to
	// send cleanup events, so tracking state is just dropped.
	onDisconnect := func() {
		logger.Warn("midi: disconnect – clearing controller state")
		stateMu.Lock()
		defer stateMu.Unlock()
		ctrl.Reset()
	}

	watcher, err := NewMIDIWatcher(cfg.MIDI, onDisconnect)
	if err != nil {
		logger.Error("midi watcher init failed", "err", err)
		os.Exit(1)
	}
	defer watcher.Close()

	out, err := OpenMIDIOut(watcher.Driver(), cfg.MIDI.Output)
	if err != nil {
		logger.Error("midi output init failed", "err", err)
		os.Exit(1)
	}
	defer out.Close()

	logger.Info("running – waiting for MIDI device")

	ticker := time.NewTicker(time.Duration(cfg.TickMS) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		watcher.Tick()

		stateMu.Lock()
		// MIDI path first: the ribbon path reads the channel this writes.
		drainEvents(watcher, ctrl, out)
		if raw, ok := sensor.Latest(); ok {
			for _, ev := range ctrl.HandleSample(raw, time.Now()) {
				out.Emit(ev)
			}
		}
		stateMu.Unlock()
	}
}

// drainEvents runs every queued MIDI event through the controller and sends
// whatever comes out.
func drainEvents(watcher *MIDIWatcher, ctrl *Controller, out *MIDIOut) {
	for {
		select {
		case ev := <-watcher.Events():
			for _, oe := range ctrl.HandleEvent(ev) {
				out.Emit(oe)
			}
		default:
			return
		}
	}
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleFrame builds the on-wire form of one MCU sample report.
func sampleFrame(sample uint16) []byte {
	hi := byte(sample >> 8)
	lo := byte(sample)
	length := byte(3) // CMD + 2 payload bytes
	cks := length ^ CmdSample ^ hi ^ lo
	return []byte{SOF0, SOF1, length, CmdSample, hi, lo, cks}
}

func feedAll(dec *FrameDecoder, data []byte) []uint16 {
	var out []uint16
	for _, b := range data {
		if s, ok := dec.Feed(b); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestDecodeSingleFrame(t *testing.T) {
	var dec FrameDecoder
	got := feedAll(&dec, sampleFrame(2047))
	require.Len(t, got, 1)
	assert.Equal(t, uint16(2047), got[0])
}

func TestDecodeBackToBackFrames(t *testing.T) {
	var dec FrameDecoder
	data := append(sampleFrame(0), sampleFrame(4095)...)
	data = append(data, sampleFrame(13)...)
	assert.Equal(t, []uint16{0, 4095, 13}, feedAll(&dec, data))
}

func TestDecodeSkipsGarbagePrefix(t *testing.T) {
	var dec FrameDecoder
	data := append([]byte{0x00, 0x13, 0xFF, SOF0, 0x99}, sampleFrame(100)...)
	got := feedAll(&dec, data)
	require.Len(t, got, 1)
	assert.Equal(t, uint16(100), got[0])
}

func TestDecodeResyncsAfterRepeatedSOF0(t *testing.T) {
	// AA AA 55 ... must still lock on.
	var dec FrameDecoder
	data := append([]byte{SOF0}, sampleFrame(321)...)
	got := feedAll(&dec, data)
	require.Len(t, got, 1)
	assert.Equal(t, uint16(321), got[0])
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	var dec FrameDecoder
	bad := sampleFrame(500)
	bad[len(bad)-1] ^= 0x01

	assert.Empty(t, feedAll(&dec, bad))
	// The decoder recovers on the next clean frame.
	got := feedAll(&dec, sampleFrame(500))
	require.Len(t, got, 1)
	assert.Equal(t, uint16(500), got[0])
}

func TestDecodeIgnoresOtherCommands(t *testing.T) {
	var dec FrameDecoder
	length := byte(2)
	cmd := byte(0x7E)
	payload := byte(0x01)
	frame := []byte{SOF0, SOF1, length, cmd, payload, length ^ cmd ^ payload}

	assert.Empty(t, feedAll(&dec, frame))
	got := feedAll(&dec, sampleFrame(9))
	require.Len(t, got, 1)
	assert.Equal(t, uint16(9), got[0])
}

func TestDecodeSplitAcrossReads(t *testing.T) {
	var dec FrameDecoder
	frame := sampleFrame(1234)
	assert.Empty(t, feedAll(&dec, frame[:3]))
	got := feedAll(&dec, frame[3:])
	require.Len(t, got, 1)
	assert.Equal(t, uint16(1234), got[0])
}

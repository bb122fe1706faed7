// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package hwmon

import (
	"context"
	"encoding/binary"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Monitor owns the point-to-point channel to a single device. The protocol
// has no request IDs or pipelining: exactly one command may be outstanding
// at a time, and the Monitor's lock is what enforces that invariant.
type Monitor struct {
	mu  sync.Mutex
	rw  io.ReadWriter
	log zerolog.Logger
}

// NewMonitor creates a Monitor over the given channel.
func NewMonitor(rw io.ReadWriter, log zerolog.Logger) *Monitor {
	if rw == nil {
		panic("hwmon: channel cannot be nil")
	}
	return &Monitor{rw: rw, log: log}
}

// Send performs one command round trip: encode, write, read one response
// frame, validate framing, return the payload. Either the device's payload
// bytes come back intact or an error does; a garbled or truncated frame is
// never returned silently.
func (m *Monitor) Send(ctx context.Context, cmd Command) ([]byte, error) {
	frame, err := EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.log.Trace().Stringer("opcode", cmd.Opcode).
		Int32("p1", cmd.Param1).Int32("p2", cmd.Param2).
		Int("payload", len(cmd.Data)).Msg("command")

	if _, err := m.rw.Write(frame); err != nil {
		return nil, &TransportError{Op: "write", Cmd: cmd.Opcode, Err: err}
	}

	resp, err := m.readFrame(cmd.Opcode)
	if err != nil {
		return nil, err
	}
	return DecodeResponse(resp, cmd.Opcode)
}

// RawSend writes caller-assembled frame bytes verbatim and returns the raw
// response frame, framing validation included but without opcode matching.
// Diagnostic pass-through only.
func (m *Monitor) RawSend(ctx context.Context, frame []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := m.rw.Write(frame); err != nil {
		return nil, &TransportError{Op: "write", Err: err}
	}

	resp, err := m.readFrame(0)
	if err != nil {
		return nil, err
	}

	// Echo the opcode the device reported so raw callers can match it up.
	echoed := Opcode(binary.LittleEndian.Uint32(resp[4:8]))
	return DecodeResponse(resp, echoed)
}

// readFrame reads exactly one response frame off the channel. The response
// header carries the payload length, so the read is two ReadFull calls;
// anything short is a desync, not a default.
func (m *Monitor) readFrame(op Opcode) ([]byte, error) {
	header := make([]byte, ResponseHeaderSize)
	if _, err := io.ReadFull(m.rw, header); err != nil {
		return nil, &TransportError{Op: "read", Cmd: op, Err: err}
	}

	if binary.LittleEndian.Uint16(header[0:2]) != FrameMagic {
		return nil, ErrBadMagic
	}
	length := int(binary.LittleEndian.Uint16(header[2:4]))
	if length > MaxPayloadSize {
		return nil, ErrShortResponse
	}

	rest := make([]byte, length+CRCSize)
	if _, err := io.ReadFull(m.rw, rest); err != nil {
		return nil, &TransportError{Op: "read", Cmd: op, Err: err}
	}

	return append(header, rest...), nil
}

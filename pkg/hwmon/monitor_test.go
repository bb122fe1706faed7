// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package hwmon

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

// scriptedDevice simulates the microcontroller end of the channel: every
// Write must contain one complete command frame, and the handler's reply is
// queued for the following Reads.
type scriptedDevice struct {
	out     bytes.Buffer
	handler func(op Opcode, payload []byte) ([]byte, error)
	sent    []Opcode
}

func (d *scriptedDevice) Write(p []byte) (int, error) {
	if len(p) < HeaderSize+CRCSize {
		return 0, errors.New("short command frame")
	}
	op := Opcode(binary.LittleEndian.Uint32(p[4:8]))
	length := int(binary.LittleEndian.Uint16(p[2:4]))
	d.sent = append(d.sent, op)

	reply, err := d.handler(op, p[HeaderSize:HeaderSize+length])
	if err != nil {
		return 0, err
	}
	d.out.Write(reply)
	return len(p), nil
}

func (d *scriptedDevice) Read(p []byte) (int, error) {
	return d.out.Read(p)
}

func TestMonitor_SendRoundTrip(t *testing.T) {
	dev := &scriptedDevice{
		handler: func(op Opcode, payload []byte) ([]byte, error) {
			return buildResponseFrame(op, []byte{0xAA, 0xBB}), nil
		},
	}
	mon := NewMonitor(dev, zerolog.Nop())

	resp, err := mon.Send(context.Background(), NewFlashReadCommand(0, 2))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !bytes.Equal(resp, []byte{0xAA, 0xBB}) {
		t.Errorf("response %v, expected [AA BB]", resp)
	}
	if len(dev.sent) != 1 || dev.sent[0] != OpFlashRead {
		t.Errorf("device saw %v, expected one FRB", dev.sent)
	}
}

func TestMonitor_WriteFailureIsTransportError(t *testing.T) {
	dev := &scriptedDevice{
		handler: func(Opcode, []byte) ([]byte, error) {
			return nil, errors.New("bus gone")
		},
	}
	mon := NewMonitor(dev, zerolog.Nop())

	_, err := mon.Send(context.Background(), NewVersionCommand())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if terr.Cmd != OpGetVersion {
		t.Errorf("error opcode %s, expected GVD", terr.Cmd)
	}
}

func TestMonitor_TruncatedResponse(t *testing.T) {
	dev := &scriptedDevice{
		handler: func(op Opcode, payload []byte) ([]byte, error) {
			full := buildResponseFrame(op, []byte{1, 2, 3, 4})
			return full[:len(full)-4], nil
		},
	}
	mon := NewMonitor(dev, zerolog.Nop())

	_, err := mon.Send(context.Background(), NewVersionCommand())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError for truncated frame, got %v", err)
	}
}

func TestMonitor_MismatchedEcho(t *testing.T) {
	dev := &scriptedDevice{
		handler: func(op Opcode, payload []byte) ([]byte, error) {
			return buildResponseFrame(OpHardwareReset, nil), nil
		},
	}
	mon := NewMonitor(dev, zerolog.Nop())

	_, err := mon.Send(context.Background(), NewVersionCommand())
	if !errors.Is(err, ErrOpcodeMismatch) {
		t.Errorf("expected ErrOpcodeMismatch, got %v", err)
	}
}

func TestMonitor_CancelledContext(t *testing.T) {
	dev := &scriptedDevice{
		handler: func(op Opcode, payload []byte) ([]byte, error) {
			return buildResponseFrame(op, nil), nil
		},
	}
	mon := NewMonitor(dev, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mon.Send(ctx, NewVersionCommand()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(dev.sent) != 0 {
		t.Errorf("cancelled send still reached the device: %v", dev.sent)
	}
}

func TestMonitor_RawSend(t *testing.T) {
	dev := &scriptedDevice{
		handler: func(op Opcode, payload []byte) ([]byte, error) {
			return buildResponseFrame(op, []byte{0x42}), nil
		},
	}
	mon := NewMonitor(dev, zerolog.Nop())

	frame, err := EncodeCommand(NewVersionCommand())
	if err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}
	resp, err := mon.RawSend(context.Background(), frame)
	if err != nil {
		t.Fatalf("RawSend failed: %v", err)
	}
	if !bytes.Equal(resp, []byte{0x42}) {
		t.Errorf("response %v, expected [42]", resp)
	}
}

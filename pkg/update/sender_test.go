// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package update

import (
	"context"
	"encoding/binary"

	"github.com/halcyonvision/fathom/pkg/flashimg"
	"github.com/halcyonvision/fathom/pkg/hwmon"
)

// recordedWrite is one flash write observed by the mock device.
type recordedWrite struct {
	index int
	data  []byte
}

// mockDevice simulates the microcontroller behind a Sender: flash reads are
// served from (and writes applied to) an in-memory flash image, and every
// command is recorded in order. failOn, when set, is consulted before
// handling with the 0-based index of the send.
type mockDevice struct {
	flash  []byte
	sent   []hwmon.Command
	erases []int32
	writes []recordedWrite

	failOn      func(i int, cmd hwmon.Command) error
	statusQueue [][]byte // popped per OpAltStatus; empty means all-zero
}

func newMockDevice() *mockDevice {
	flash := make([]byte, flashimg.FlashSize)
	for i := range flash {
		flash[i] = byte(i * 31)
	}
	return &mockDevice{flash: flash}
}

func (d *mockDevice) Send(_ context.Context, cmd hwmon.Command) ([]byte, error) {
	i := len(d.sent)
	d.sent = append(d.sent, cmd)

	if d.failOn != nil {
		if err := d.failOn(i, cmd); err != nil {
			return nil, err
		}
	}

	switch cmd.Opcode {
	case hwmon.OpFlashRead:
		off, size := int(cmd.Param1), int(cmd.Param2)
		return append([]byte(nil), d.flash[off:off+size]...), nil
	case hwmon.OpEraseSector:
		d.erases = append(d.erases, cmd.Param1)
		start := int(cmd.Param1) * flashimg.SectorSize
		for j := start; j < start+flashimg.SectorSize && j < len(d.flash); j++ {
			d.flash[j] = 0xFF
		}
	case hwmon.OpFlashWrite:
		d.writes = append(d.writes, recordedWrite{
			index: int(cmd.Param1),
			data:  append([]byte(nil), cmd.Data...),
		})
		copy(d.flash[cmd.Param1:], cmd.Data)
	case hwmon.OpAltStatus:
		if len(d.statusQueue) > 0 {
			s := d.statusQueue[0]
			d.statusQueue = d.statusQueue[1:]
			return s, nil
		}
		return []byte{0, 0, 0, 0}, nil
	}
	return nil, nil
}

// opcodes returns the opcode sequence the device has seen.
func (d *mockDevice) opcodes() []hwmon.Opcode {
	ops := make([]hwmon.Opcode, len(d.sent))
	for i, c := range d.sent {
		ops[i] = c.Opcode
	}
	return ops
}

// countOp counts how many commands with the given opcode were sent.
func (d *mockDevice) countOp(op hwmon.Opcode) int {
	n := 0
	for _, c := range d.sent {
		if c.Opcode == op {
			n++
		}
	}
	return n
}

// ============================================================
// Flash image construction (mirrors the on-device layout)
// ============================================================

type imageLayout struct {
	rwStart, rwSize, rwApp uint32
	rwTables               []uint32
	roStart, roSize, roApp uint32
	roTables               []uint32
}

func testLayout() imageLayout {
	return imageLayout{
		rwStart: 0x000000, rwSize: 0x180000, rwApp: 0x100000,
		rwTables: []uint32{0x100000, 0x140000},
		roStart: 0x180000, roSize: 0x080000, roApp: 0x040000,
		roTables: []uint32{0x1C0000, 0x1E0000},
	}
}

func buildFlashImage(l imageLayout, fill byte) []byte {
	img := make([]byte, flashimg.FlashSize)
	for i := range img {
		img[i] = fill
	}

	writeImageTOC := func(start, size, appSize uint32, tables []uint32) {
		tocOff := start + size - flashimg.TOCSize
		for i := tocOff; i < start+size && i < flashimg.HeaderOffset; i++ {
			img[i] = 0xFF
		}
		binary.LittleEndian.PutUint32(img[tocOff:], appSize)
		for i, off := range tables {
			binary.LittleEndian.PutUint32(img[tocOff+4+uint32(i)*4:], off)
		}
	}
	writeImageTOC(l.rwStart, l.rwSize, l.rwApp, l.rwTables)
	writeImageTOC(l.roStart, l.roSize, l.roApp, l.roTables)

	binary.LittleEndian.PutUint32(img[flashimg.HeaderOffset+0:], l.rwStart)
	binary.LittleEndian.PutUint32(img[flashimg.HeaderOffset+4:], l.rwSize)
	binary.LittleEndian.PutUint32(img[flashimg.HeaderOffset+8:], l.roStart)
	binary.LittleEndian.PutUint32(img[flashimg.HeaderOffset+12:], l.roSize)
	return img
}

// progressRecorder collects reported fractions.
type progressRecorder struct {
	values []float64
}

func (r *progressRecorder) fn() ProgressFunc {
	return func(v float64) { r.values = append(r.values, v) }
}

func (r *progressRecorder) monotone() bool {
	for i := 1; i < len(r.values); i++ {
		if r.values[i] < r.values[i-1] {
			return false
		}
	}
	return true
}

func (r *progressRecorder) final() float64 {
	if len(r.values) == 0 {
		return -1
	}
	return r.values[len(r.values)-1]
}

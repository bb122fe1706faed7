// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package update

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/halcyonvision/fathom/pkg/flashimg"
	"github.com/halcyonvision/fathom/pkg/hwmon"
)

func TestProgramRange_TwoSectorScenario(t *testing.T) {
	// offset=0, size=8192 with 4096-byte sectors: exactly two erases,
	// writes chunked at the transport payload limit, progress 0.5 then 1.0.
	dev := newMockDevice()
	u := New(dev)
	img := buildFlashImage(testLayout(), 0x5A)

	var rec progressRecorder
	if err := u.programRange(context.Background(), img, 0, 8192, rec.fn(), 0, 1.0); err != nil {
		t.Fatalf("programRange failed: %v", err)
	}

	if len(dev.erases) != 2 || dev.erases[0] != 0 || dev.erases[1] != 1 {
		t.Errorf("erased sectors %v, expected [0 1]", dev.erases)
	}
	if len(dev.writes) != 8192/hwmon.MaxPayloadSize {
		t.Errorf("%d write commands, expected %d", len(dev.writes), 8192/hwmon.MaxPayloadSize)
	}
	for _, w := range dev.writes {
		if len(w.data) != hwmon.MaxPayloadSize {
			t.Errorf("write at %d carries %d bytes, expected %d", w.index, len(w.data), hwmon.MaxPayloadSize)
		}
	}
	if len(rec.values) != 2 || rec.values[0] != 0.5 || rec.values[1] != 1.0 {
		t.Errorf("progress %v, expected [0.5 1.0]", rec.values)
	}
}

func TestProgramRange_WritesExactRequestedBytes(t *testing.T) {
	dev := newMockDevice()
	u := New(dev)
	img := buildFlashImage(testLayout(), 0xC3)

	const offset, size = 8192, 4096 + 100 // tail sector rounds up
	if err := u.programRange(context.Background(), img, offset, size, nil, 0, 1.0); err != nil {
		t.Fatalf("programRange failed: %v", err)
	}

	covered := make([]bool, size)
	for _, w := range dev.writes {
		for j := 0; j < len(w.data); j++ {
			idx := w.index + j
			if idx < offset || idx >= offset+size {
				t.Fatalf("write byte at %d outside [%d, %d)", idx, offset, offset+size)
			}
			if covered[idx-offset] {
				t.Fatalf("byte at %d written twice", idx)
			}
			covered[idx-offset] = true
		}
	}
	for i, c := range covered {
		if !c {
			t.Fatalf("byte at %d never written", offset+i)
		}
	}
}

func TestProgramRange_UnalignedOffsetStaysInRange(t *testing.T) {
	dev := newMockDevice()
	u := New(dev)
	img := buildFlashImage(testLayout(), 0x11)

	const offset, size = 4000, 4096
	if err := u.programRange(context.Background(), img, offset, size, nil, 0, 1.0); err != nil {
		t.Fatalf("programRange failed: %v", err)
	}

	for _, w := range dev.writes {
		if w.index < offset || w.index+len(w.data) > offset+size {
			t.Errorf("write [%d, %d) outside requested [%d, %d)",
				w.index, w.index+len(w.data), offset, offset+size)
		}
	}
}

func TestProgramRange_ScaledProgress(t *testing.T) {
	dev := newMockDevice()
	u := New(dev)
	img := buildFlashImage(testLayout(), 0)

	var rec progressRecorder
	if err := u.programRange(context.Background(), img, 0, 8192, rec.fn(), 0.5, 0.5); err != nil {
		t.Fatalf("programRange failed: %v", err)
	}
	if len(rec.values) != 2 || rec.values[0] != 0.75 || rec.values[1] != 1.0 {
		t.Errorf("progress %v, expected [0.75 1.0]", rec.values)
	}
}

func TestProgramRange_WriteFailureAbortsImmediately(t *testing.T) {
	dev := newMockDevice()
	boom := errors.New("write slipped")
	writeCount := 0
	dev.failOn = func(i int, cmd hwmon.Command) error {
		if cmd.Opcode == hwmon.OpFlashWrite {
			writeCount++
			if writeCount == 3 {
				return boom
			}
		}
		return nil
	}

	u := New(dev)
	img := buildFlashImage(testLayout(), 0)

	err := u.programRange(context.Background(), img, 0, 8192, nil, 0, 1.0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected write failure to propagate, got %v", err)
	}
	// No retry and no further traffic after the failed write.
	if got := dev.countOp(hwmon.OpFlashWrite); got != 3 {
		t.Errorf("%d write commands after failure, expected 3", got)
	}
}

func TestWriteSection_ProportionalSpans(t *testing.T) {
	dev := newMockDevice()
	u := New(dev)

	l := testLayout()
	img := buildFlashImage(l, 0x42)
	info, err := flashimg.Parse(img)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var rec progressRecorder
	if err := u.writeSection(context.Background(), img, info.ReadWrite, rec.fn(), 0, 1.0); err != nil {
		t.Fatalf("writeSection failed: %v", err)
	}

	if !rec.monotone() {
		t.Errorf("progress not monotone: %v", rec.values)
	}
	if diff := math.Abs(rec.final() - 1.0); diff > 1e-12 {
		t.Errorf("final progress %v, expected 1.0", rec.final())
	}

	// The app phase ends at its byte share of the section.
	appShare := float64(info.ReadWrite.AppSize) / float64(info.ReadWrite.AppSize+info.ReadWrite.TablesSize())
	appSectors := int(info.ReadWrite.AppSize) / flashimg.SectorSize
	if got := rec.values[appSectors-1]; got != appShare {
		t.Errorf("app phase ended at %v, expected %v", got, appShare)
	}
}

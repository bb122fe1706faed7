// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

// Package flashimg models the device's flash image layout and implements the
// merge of a new firmware image with an existing image's calibration tables.
//
// The layout is a byte-exact contract shared with the device firmware and
// with images produced at manufacturing time:
//
//   - an info header in the last HeaderSize bytes of the image, holding the
//     start address and size of the read-write and read-only regions;
//   - per region, a table-of-content in the region's last TOCSize bytes:
//     the application-code size, then calibration table offsets terminated
//     by 0xFFFFFFFF. A table's size is never stored; it is the gap to the
//     next table, or to the region's end for the last one.
package flashimg

import "encoding/binary"

// Device flash geometry. Fixed constants for this controller family.
const (
	FlashSize  = 2 * 1024 * 1024
	SectorSize = 4096

	HeaderSize   = 16
	HeaderOffset = FlashSize - HeaderSize

	TOCSize       = 128
	tocTerminator = 0xFFFFFFFF
	maxTables     = (TOCSize - 4) / 4
)

// Header holds the region bounds read from the image's fixed-offset info
// header.
type Header struct {
	ReadWriteStart uint32
	ReadWriteSize  uint32
	ReadOnlyStart  uint32
	ReadOnlySize   uint32
}

// Table is one calibration table entry: an absolute byte offset into the
// image.
type Table struct {
	Offset uint32
}

// Section describes one flash region: application code at the region start,
// followed by calibration tables.
type Section struct {
	Offset  uint32
	Size    uint32
	AppSize uint32
	Tables  []Table
}

// End returns the exclusive end offset of the section.
func (s Section) End() uint32 { return s.Offset + s.Size }

// FirstTableOffset returns the offset of the first calibration table.
func (s Section) FirstTableOffset() uint32 { return s.Tables[0].Offset }

// TablesSize returns the byte size of the whole table region, first table
// through section end.
func (s Section) TablesSize() uint32 { return s.End() - s.FirstTableOffset() }

// TableSize returns the derived size of table i: the gap to the next table,
// or to the section end for the last one.
func (s Section) TableSize(i int) uint32 {
	if i == len(s.Tables)-1 {
		return s.End() - s.Tables[i].Offset
	}
	return s.Tables[i+1].Offset - s.Tables[i].Offset
}

// Info is the parsed layout of one flash image.
type Info struct {
	Header    Header
	ReadWrite Section
	ReadOnly  Section
}

// Parse extracts the layout from a raw flash image. It fails with a
// FormatError if the buffer cannot hold the info header or if any derived
// offset is internally inconsistent; arithmetic never wraps silently.
func Parse(img []byte) (*Info, error) {
	if len(img) < FlashSize {
		return nil, &FormatError{Reason: "image shorter than flash size", Offset: len(img)}
	}

	h := Header{
		ReadWriteStart: binary.LittleEndian.Uint32(img[HeaderOffset+0 : HeaderOffset+4]),
		ReadWriteSize:  binary.LittleEndian.Uint32(img[HeaderOffset+4 : HeaderOffset+8]),
		ReadOnlyStart:  binary.LittleEndian.Uint32(img[HeaderOffset+8 : HeaderOffset+12]),
		ReadOnlySize:   binary.LittleEndian.Uint32(img[HeaderOffset+12 : HeaderOffset+16]),
	}

	rw, err := parseSection(img, h.ReadWriteStart, h.ReadWriteSize)
	if err != nil {
		return nil, err
	}
	ro, err := parseSection(img, h.ReadOnlyStart, h.ReadOnlySize)
	if err != nil {
		return nil, err
	}

	return &Info{Header: h, ReadWrite: *rw, ReadOnly: *ro}, nil
}

func parseSection(img []byte, start, size uint32) (*Section, error) {
	end := uint64(start) + uint64(size)
	if end > uint64(len(img)) {
		return nil, &FormatError{Reason: "section extends past image end", Offset: int(start)}
	}
	if size < TOCSize {
		return nil, &FormatError{Reason: "section too small for table of content", Offset: int(start)}
	}

	tocOff := start + size - TOCSize
	appSize := binary.LittleEndian.Uint32(img[tocOff : tocOff+4])
	if appSize > size {
		return nil, &FormatError{Reason: "application size exceeds section", Offset: int(tocOff)}
	}

	s := &Section{Offset: start, Size: size, AppSize: appSize}
	prev := start + appSize
	for i := 0; i < maxTables; i++ {
		entry := tocOff + 4 + uint32(i)*4
		off := binary.LittleEndian.Uint32(img[entry : entry+4])
		if off == tocTerminator {
			break
		}
		// A table before the previous one (or inside the app region) would
		// give a negative derived size; reject rather than wrap.
		if off < prev {
			return nil, &FormatError{Reason: "table offsets out of order", Offset: int(entry)}
		}
		if uint64(off) >= end {
			return nil, &FormatError{Reason: "table offset past section end", Offset: int(entry)}
		}
		s.Tables = append(s.Tables, Table{Offset: off})
		prev = off
	}

	if len(s.Tables) == 0 {
		return nil, &FormatError{Reason: "section has no calibration tables", Offset: int(tocOff)}
	}
	return s, nil
}

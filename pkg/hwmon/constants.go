// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

// Package hwmon implements the host-side command transport for the camera's
// on-board microcontroller.
//
// Commands are fixed binary frames: a 24-byte header (magic, payload length,
// opcode, four signed 32-bit parameters), an optional payload of up to
// MaxPayloadSize bytes, and a trailing CRC-16. Responses carry the echoed
// opcode and a raw payload whose structure is defined per command; the
// transport validates framing only, never payload content.
package hwmon

// Wire framing
const (
	FrameMagic uint16 = 0xCDAB

	HeaderSize         = 24 // magic(2) + length(2) + opcode(4) + 4*param(4)
	ResponseHeaderSize = 8  // magic(2) + length(2) + opcode(4)
	CRCSize            = 2

	MaxPayloadSize = 1024
	MaxFrameSize   = HeaderSize + MaxPayloadSize + CRCSize
)

// Opcode identifies the command the device firmware should execute.
type Opcode uint32

// Flash and control opcodes
const (
	OpFlashRead      Opcode = 0x09
	OpFlashWrite     Opcode = 0x0A
	OpEraseSector    Opcode = 0x0B
	OpProtectDisable Opcode = 0x0C
	OpGetVersion     Opcode = 0x10
	OpEnterDFU       Opcode = 0x1E
	OpHardwareReset  Opcode = 0x20
)

// Alternate update dialect opcodes, used by one device family in place of
// the sector erase/write commands.
const (
	OpAltCommand Opcode = 0x60
	OpAltStatus  Opcode = 0x61
	OpAltData    Opcode = 0x62
)

// String returns the opcode mnemonic.
func (o Opcode) String() string {
	switch o {
	case OpFlashRead:
		return "FRB"
	case OpFlashWrite:
		return "FWB"
	case OpEraseSector:
		return "FES"
	case OpProtectDisable:
		return "PFD"
	case OpGetVersion:
		return "GVD"
	case OpEnterDFU:
		return "DFU"
	case OpHardwareReset:
		return "HWRST"
	case OpAltCommand:
		return "ALTCMD"
	case OpAltStatus:
		return "ALTSTAT"
	case OpAltData:
		return "ALTDATA"
	default:
		return "UNKNOWN"
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package hwmon

// Command is a single request to the device microcontroller. It is built per
// call and never reused; Data, when present, must not exceed MaxPayloadSize.
type Command struct {
	Opcode Opcode
	Param1 int32
	Param2 int32
	Param3 int32
	Param4 int32
	Data   []byte

	// RequireResponse marks whether the caller will decode the response
	// payload. The device always acknowledges; when false the payload is
	// discarded without interpretation.
	RequireResponse bool
}

// Command builder functions create Command values ready for sending. These
// are convenience wrappers that ensure correct parameter usage per opcode.

// NewFlashReadCommand creates a flash read (FRB) command covering
// [offset, offset+size) of the device's flash.
func NewFlashReadCommand(offset, size int32) Command {
	return Command{
		Opcode:          OpFlashRead,
		Param1:          offset,
		Param2:          size,
		RequireResponse: true,
	}
}

// NewFlashWriteCommand creates a flash write (FWB) command placing data at
// the absolute flash byte index. The target sector must already be erased.
func NewFlashWriteCommand(index int32, data []byte) Command {
	return Command{
		Opcode: OpFlashWrite,
		Param1: index,
		Param2: int32(len(data)),
		Data:   data,
	}
}

// NewEraseSectorCommand creates a sector erase (FES) command for the given
// sector index.
func NewEraseSectorCommand(sector int32) Command {
	return Command{
		Opcode: OpEraseSector,
		Param1: sector,
		Param2: 1,
	}
}

// NewProtectDisableCommand creates a flash write-protect disable (PFD)
// command. Must precede any erase/write sequence.
func NewProtectDisableCommand() Command {
	return Command{Opcode: OpProtectDisable}
}

// NewVersionCommand creates a version/device-information query (GVD).
func NewVersionCommand() Command {
	return Command{Opcode: OpGetVersion, RequireResponse: true}
}

// NewEnterDFUCommand creates the enter-update-mode (DFU) command. The device
// is expected to drop off the bus shortly after acknowledging it.
func NewEnterDFUCommand() Command {
	return Command{Opcode: OpEnterDFU, Param1: 1}
}

// NewHardwareResetCommand creates a hardware reset (HWRST) command.
func NewHardwareResetCommand() Command {
	return Command{Opcode: OpHardwareReset}
}

// NewAltCommand creates an alternate-dialect control exchange carrying a
// fixed 16-byte command block.
func NewAltCommand(block []byte) Command {
	return Command{
		Opcode:          OpAltCommand,
		Data:            block,
		RequireResponse: true,
	}
}

// NewAltStatusCommand creates an alternate-dialect status query.
func NewAltStatusCommand() Command {
	return Command{Opcode: OpAltStatus, RequireResponse: true}
}

// NewAltDataCommand creates an alternate-dialect data transfer carrying one
// fixed-size firmware block.
func NewAltDataCommand(block []byte) Command {
	return Command{
		Opcode:          OpAltData,
		Param1:          int32(len(block)),
		Data:            block,
		RequireResponse: true,
	}
}

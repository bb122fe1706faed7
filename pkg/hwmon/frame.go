// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package hwmon

import (
	"encoding/binary"
	"fmt"

	"github.com/sigurn/crc16"
)

// crcTable is the CRC-16/CCITT-FALSE table shared by command and response
// frames.
var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// ChecksumFrame computes the frame CRC over everything before the CRC field.
func ChecksumFrame(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// EncodeCommand serializes a command to wire format:
//
//	magic(2 LE) | payload length(2 LE) | opcode(4 LE) | param1..4(4 LE each) | payload | crc16(2 LE)
func EncodeCommand(c Command) ([]byte, error) {
	if len(c.Data) > MaxPayloadSize {
		return nil, fmt.Errorf("hwmon: %s payload too large: %d bytes (max %d)", c.Opcode, len(c.Data), MaxPayloadSize)
	}

	frame := make([]byte, HeaderSize+len(c.Data)+CRCSize)
	binary.LittleEndian.PutUint16(frame[0:2], FrameMagic)
	binary.LittleEndian.PutUint16(frame[2:4], uint16(len(c.Data)))
	binary.LittleEndian.PutUint32(frame[4:8], uint32(c.Opcode))
	binary.LittleEndian.PutUint32(frame[8:12], uint32(c.Param1))
	binary.LittleEndian.PutUint32(frame[12:16], uint32(c.Param2))
	binary.LittleEndian.PutUint32(frame[16:20], uint32(c.Param3))
	binary.LittleEndian.PutUint32(frame[20:24], uint32(c.Param4))
	copy(frame[HeaderSize:], c.Data)

	crc := ChecksumFrame(frame[:HeaderSize+len(c.Data)])
	binary.LittleEndian.PutUint16(frame[HeaderSize+len(c.Data):], crc)

	return frame, nil
}

// DecodeResponse validates a complete response frame against the opcode it
// answers and returns its payload. The payload is returned as-is; content
// interpretation belongs to the caller.
//
// Response format:
//
//	magic(2 LE) | payload length(2 LE) | opcode(4 LE) | payload | crc16(2 LE)
func DecodeResponse(frame []byte, op Opcode) ([]byte, error) {
	if len(frame) < ResponseHeaderSize+CRCSize {
		return nil, ErrShortResponse
	}
	if binary.LittleEndian.Uint16(frame[0:2]) != FrameMagic {
		return nil, ErrBadMagic
	}

	length := int(binary.LittleEndian.Uint16(frame[2:4]))
	if length > MaxPayloadSize {
		return nil, fmt.Errorf("hwmon: declared payload length %d exceeds maximum %d", length, MaxPayloadSize)
	}
	if len(frame) < ResponseHeaderSize+length+CRCSize {
		return nil, ErrShortResponse
	}

	body := frame[:ResponseHeaderSize+length]
	want := binary.LittleEndian.Uint16(frame[ResponseHeaderSize+length:])
	if got := ChecksumFrame(body); got != want {
		return nil, fmt.Errorf("%w: calculated 0x%04X, frame carries 0x%04X", ErrCRCMismatch, got, want)
	}

	echoed := Opcode(binary.LittleEndian.Uint32(frame[4:8]))
	if echoed != op {
		return nil, fmt.Errorf("%w: sent %s, device answered %s", ErrOpcodeMismatch, op, echoed)
	}

	return body[ResponseHeaderSize:], nil
}

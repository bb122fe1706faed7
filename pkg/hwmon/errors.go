// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package hwmon

import (
	"errors"
	"fmt"
)

// Framing errors. All of these indicate the host and device have lost frame
// sync; callers treat them as fatal to the enclosing operation.
var (
	ErrShortResponse  = errors.New("hwmon: response shorter than declared length")
	ErrBadMagic       = errors.New("hwmon: bad response magic")
	ErrCRCMismatch    = errors.New("hwmon: response CRC mismatch")
	ErrOpcodeMismatch = errors.New("hwmon: response opcode does not match command")
)

// TransportError wraps an I/O failure on the underlying channel.
type TransportError struct {
	Op  string // "write", "read"
	Cmd Opcode
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("hwmon: %s %s: %v", e.Cmd, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

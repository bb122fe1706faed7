// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package update

import (
	"errors"
	"fmt"
)

// ErrInvalidMode reports an unrecognized update mode. It is raised before
// any device I/O takes place.
var ErrInvalidMode = errors.New("update: unrecognized update mode")

// ErrAltTimeout reports that the device did not finish applying an image
// within the status poll bound of the alternate dialect.
var ErrAltTimeout = errors.New("update: timed out waiting for device to apply image")

// AltStatusError is a hard failure code reported by the device while
// applying an image over the alternate dialect.
type AltStatusError struct {
	Code byte
}

func (e *AltStatusError) Error() string {
	switch e.Code {
	case altStatusUnsupported:
		return fmt.Sprintf("update: device rejected command as unsupported (status 0x%02X)", e.Code)
	case altStatusBurnError:
		return fmt.Sprintf("update: device failed to burn image (status 0x%02X)", e.Code)
	default:
		return fmt.Sprintf("update: device reported failure status 0x%02X", e.Code)
	}
}

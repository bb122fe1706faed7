// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package flashimg

import "fmt"

// FormatError reports a flash image that is too short or internally
// inconsistent. It is always raised before any device I/O takes place.
type FormatError struct {
	Reason string
	Offset int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("flashimg: %s (offset %d)", e.Reason, e.Offset)
}

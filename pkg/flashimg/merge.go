// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package flashimg

// Merge combines a new firmware image with the device's current flash
// contents: the output carries the candidate's application code and the
// backup's calibration tables. Calibration tables are written once at
// manufacturing time and are not part of ordinary firmware images, so a
// firmware-only update must carry them over byte for byte.
//
// Pure and deterministic: no I/O, and either a complete merged image is
// returned or none at all. Application regions are located by the candidate
// image's layout, table regions by the backup's.
func Merge(backup, candidate []byte) ([]byte, error) {
	if len(backup) != FlashSize {
		return nil, &FormatError{Reason: "backup image is not flash sized", Offset: len(backup)}
	}
	if len(candidate) != FlashSize {
		return nil, &FormatError{Reason: "candidate image is not flash sized", Offset: len(candidate)}
	}

	backupInfo, err := Parse(backup)
	if err != nil {
		return nil, err
	}
	if _, err := Parse(candidate); err != nil {
		return nil, err
	}

	merged := make([]byte, FlashSize)
	copy(merged, candidate)

	// The table region runs from the first table to the section end. That
	// span includes the TOC and, for the read-only section, the info
	// header, all of which must survive from the backup.
	overlayTables(merged, backup, backupInfo.ReadWrite)
	overlayTables(merged, backup, backupInfo.ReadOnly)

	return merged, nil
}

func overlayTables(dst, backup []byte, s Section) {
	first := s.FirstTableOffset()
	copy(dst[first:s.End()], backup[first:s.End()])
}

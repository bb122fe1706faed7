// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package update

import (
	"context"

	"github.com/halcyonvision/fathom/pkg/flashimg"
	"github.com/halcyonvision/fathom/pkg/hwmon"
)

// writeSection programs one flash section of the merged image: first the
// application-code range, then the calibration-table range. Each range's
// share of the progress span is proportional to its byte size so reported
// progress stays linear across the section.
func (u *Updater) writeSection(ctx context.Context, img []byte, s flashimg.Section, progress ProgressFunc, base, span float64) error {
	appSize := int(s.AppSize)
	tablesSize := int(s.TablesSize())
	total := float64(appSize + tablesSize)

	appSpan := float64(appSize) / total * span
	tablesSpan := float64(tablesSize) / total * span

	if err := u.programRange(ctx, img, int(s.Offset), appSize, progress, base, appSpan); err != nil {
		return err
	}
	return u.programRange(ctx, img, int(s.FirstTableOffset()), tablesSize, progress, base+appSpan, tablesSpan)
}

// programRange erases and rewrites flash over [offset, offset+size).
//
// Sectors are the minimum erasable unit, so the range is walked in
// sector-aligned steps with the tail sector rounded up; within each sector
// only bytes inside the requested range are written, in chunks no larger
// than the transport payload limit. Progress is reported after each
// completed sector as base + completed/sectors*span, reaching exactly
// base+span on the last one.
//
// A failed write aborts immediately with no retry: a half-written sector is
// not safe to retry blindly, and the caller holds a backup.
func (u *Updater) programRange(ctx context.Context, img []byte, offset, size int, progress ProgressFunc, base, span float64) error {
	sectorCount := size / flashimg.SectorSize
	firstSector := offset / flashimg.SectorSize
	if sectorCount*flashimg.SectorSize != size {
		sectorCount++
	}
	lastSector := firstSector + sectorCount // exclusive

	u.log.Debug().Int("offset", offset).Int("size", size).
		Int("sectors", sectorCount).Msg("programming flash range")

	for sector := firstSector; sector < lastSector; sector++ {
		if _, err := u.mon.Send(ctx, hwmon.NewEraseSectorCommand(int32(sector))); err != nil {
			return err
		}

		// A sector may be only partially inside the requested range at
		// either boundary; only the requested bytes are written, never more.
		i := 0
		if start := sector * flashimg.SectorSize; start < offset {
			i = offset - start
		}
		for i < flashimg.SectorSize {
			index := sector*flashimg.SectorSize + i
			if index >= offset+size {
				break
			}

			chunk := hwmon.MaxPayloadSize - (i % hwmon.MaxPayloadSize)
			if rest := flashimg.SectorSize - i; chunk > rest {
				chunk = rest
			}
			// Only the requested bytes, never more.
			if rest := offset + size - index; chunk > rest {
				chunk = rest
			}

			if _, err := u.mon.Send(ctx, hwmon.NewFlashWriteCommand(int32(index), img[index:index+chunk])); err != nil {
				return err
			}
			i += chunk
		}

		completed := sector - firstSector + 1
		report(progress, base+float64(completed)/float64(sectorCount)*span)
	}

	return nil
}

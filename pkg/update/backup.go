// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package update

import (
	"context"
	"fmt"
	"time"

	"github.com/halcyonvision/fathom/pkg/flashimg"
	"github.com/halcyonvision/fathom/pkg/hwmon"
)

const (
	// backupChunkSize is deliberately below the transport's maximum payload.
	backupChunkSize  = 1016
	backupRetries    = 3
	backupRetryDelay = 100 * time.Millisecond
)

// Backup reads the device's entire flash and returns it as one image of
// exactly flashimg.FlashSize bytes. Each chunk read is attempted up to
// three times with a fixed backoff before the whole backup fails; a chunk
// that comes back shorter than requested is a protocol desync and fails
// immediately. Progress runs monotonically and ends at exactly 1.0.
func (u *Updater) Backup(ctx context.Context, progress ProgressFunc) ([]byte, error) {
	total := flashimg.FlashSize / backupChunkSize
	if total*backupChunkSize != flashimg.FlashSize {
		total++
	}

	if err := u.power.Acquire(); err != nil {
		return nil, fmt.Errorf("update: acquire power: %w", err)
	}
	defer u.power.Release()

	u.log.Debug().Int("chunks", total).Msg("flash backup started")

	flash := make([]byte, 0, flashimg.FlashSize)
	for i := 0; i < total; i++ {
		offset := i * backupChunkSize
		size := backupChunkSize
		if offset+size > flashimg.FlashSize {
			size = flashimg.FlashSize - offset
		}

		chunk, err := u.readChunk(ctx, offset, size)
		if err != nil {
			return nil, err
		}
		flash = append(flash, chunk...)

		u.log.Trace().Int("bytes", len(flash)).Msg("flash backup progress")
		report(progress, float64(i)/float64(total))
	}
	report(progress, 1.0)

	u.log.Debug().Int("bytes", len(flash)).Msg("flash backup complete")
	return flash, nil
}

func (u *Updater) readChunk(ctx context.Context, offset, size int) ([]byte, error) {
	var resp []byte
	var err error
	for attempt := 1; ; attempt++ {
		resp, err = u.mon.Send(ctx, hwmon.NewFlashReadCommand(int32(offset), int32(size)))
		if err == nil {
			break
		}
		if attempt >= backupRetries {
			return nil, fmt.Errorf("update: flash read at 0x%X failed after %d attempts: %w", offset, attempt, err)
		}
		u.log.Warn().Err(err).Int("offset", offset).Int("attempt", attempt).Msg("flash read failed, retrying")
		time.Sleep(u.retryDelay)
	}

	if len(resp) < size {
		return nil, fmt.Errorf("%w: flash read at 0x%X returned %d of %d bytes",
			hwmon.ErrShortResponse, offset, len(resp), size)
	}
	return resp[:size], nil
}

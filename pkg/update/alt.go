// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package update

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/halcyonvision/fathom/pkg/hwmon"
)

// Alternate update dialect: one device family takes the firmware as a
// stream of fixed-size blocks framed by an init/start command exchange, then
// burns the image on its own while the host polls a status word.
const (
	altBlockSize    = 512
	altCmdBlockSize = 16

	altCmdInit  = 0x00030001
	altCmdStart = 0x00030101

	altStatusUnsupported = 0x80
	altStatusBurnError   = 0x82

	altPollInterval = time.Second
	altMaxPolls     = 600 // ~10 minutes
)

// altStrategy transfers the image as fixed 512-byte blocks, the last one
// zero-padded, then starts the burn and polls for completion. An all-zero
// status word means success, a known hard-failure code fails immediately,
// and any unknown code is treated as still-in-progress until the poll bound
// runs out.
type altStrategy struct{ u *Updater }

func (s altStrategy) apply(ctx context.Context, image []byte, progress ProgressFunc) error {
	u := s.u

	paddedSize := (len(image) + altBlockSize - 1) / altBlockSize * altBlockSize
	blocks := paddedSize / altBlockSize

	if err := u.altCommand(ctx, altCmdInit, uint32(paddedSize)); err != nil {
		return err
	}
	// Readiness check before streaming data.
	if _, err := u.altStatus(ctx); err != nil {
		return err
	}

	block := make([]byte, altBlockSize)
	for i := 0; i < blocks; i++ {
		offset := i * altBlockSize
		end := offset + altBlockSize
		if end > len(image) {
			end = len(image)
		}
		n := copy(block, image[offset:end])
		for j := n; j < altBlockSize; j++ {
			block[j] = 0
		}

		if _, err := u.mon.Send(ctx, hwmon.NewAltDataCommand(block)); err != nil {
			return err
		}
		report(progress, float64(i+1)/float64(blocks))
	}

	if err := u.altCommand(ctx, altCmdStart, uint32(paddedSize)); err != nil {
		return err
	}

	for i := 0; i < u.altMaxPolls; i++ {
		time.Sleep(u.altPollInterval)

		status, err := u.altStatus(ctx)
		if err != nil {
			return err
		}
		if status[0] == 0 && status[1] == 0 && status[2] == 0 && status[3] == 0 {
			u.log.Debug().Int("polls", i+1).Msg("device finished applying image")
			return nil
		}
		if status[0] == altStatusUnsupported || status[0] == altStatusBurnError {
			return &AltStatusError{Code: status[0]}
		}
		// Unknown codes are still-in-progress, not success.
	}
	return ErrAltTimeout
}

// altCommand sends one fixed-size control block carrying a command word and
// the padded image size.
func (u *Updater) altCommand(ctx context.Context, word, size uint32) error {
	block := make([]byte, altCmdBlockSize)
	binary.LittleEndian.PutUint32(block[0:4], word)
	binary.LittleEndian.PutUint32(block[4:8], size)

	_, err := u.mon.Send(ctx, hwmon.NewAltCommand(block))
	return err
}

// altStatus queries the device's status word; the first four payload bytes
// are the code the device reports while burning.
func (u *Updater) altStatus(ctx context.Context) ([]byte, error) {
	resp, err := u.mon.Send(ctx, hwmon.NewAltStatusCommand())
	if err != nil {
		return nil, err
	}
	if len(resp) < 4 {
		return nil, fmt.Errorf("%w: status response carries %d bytes, need 4", hwmon.ErrShortResponse, len(resp))
	}
	return resp[:4], nil
}

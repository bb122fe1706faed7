// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

package update

import (
	"context"
	"time"

	"github.com/halcyonvision/fathom/pkg/hwmon"
)

const (
	dfuPollInterval = 100 * time.Millisecond
	// The removal status on Linux is refreshed at a 5 second rate; allow a
	// second on top of that.
	dfuPollWindow = 6 * time.Second
)

// EnterUpdateState asks the device to reboot into its firmware-update mode,
// then waits for it to disappear from the bus. Callers invoke this as an
// unconditional precursor to a destructive operation they intend to proceed
// with regardless, so it never fails: every error, including one from the
// command send itself, is logged and swallowed, which is why the signature
// carries no error return. Any active data exchange must already be stopped.
func (u *Updater) EnterUpdateState(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			u.log.Error().Interface("cause", r).Msg("unexpected failure while entering update state")
		}
	}()

	u.log.Info().Msg("entering update state, device disconnect is expected")

	if _, err := u.mon.Send(ctx, hwmon.NewEnterDFUCommand()); err != nil {
		u.log.Warn().Err(err).Msg("enter-DFU command failed")
		return
	}

	iterations := int(u.dfuPollWindow / u.dfuPollInterval)
	for i := 0; i < iterations; i++ {
		// Once the device is observed absent it is assumed to be entering
		// update mode.
		if u.prober != nil && !u.prober() {
			u.log.Debug().Msg("device left the bus")
			return
		}
		time.Sleep(u.dfuPollInterval)
	}

	if u.prober != nil {
		u.log.Warn().Msg("timeout waiting for device disconnect after DFU command")
	}
}

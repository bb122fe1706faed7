// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

// Package update implements the flash backup and firmware-update engine: it
// reads the device's full flash in bounded chunks, merges a new firmware
// image with the existing calibration tables, and reprograms flash in
// sector-aligned units over the hwmon command transport.
//
// A corrupted or interrupted flash write can permanently disable the device.
// The engine therefore behaves deterministically and fails loudly: every
// operation either completes with a final progress of 1.0 or returns a
// specific error, and nothing is retried once a write has started.
package update

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/halcyonvision/fathom/pkg/flashimg"
	"github.com/halcyonvision/fathom/pkg/hwmon"
)

// Sender issues one command round trip to the device. *hwmon.Monitor
// satisfies it; tests substitute recorders.
type Sender interface {
	Send(ctx context.Context, cmd hwmon.Command) ([]byte, error)
}

// ProgressFunc receives progress fractions in [0, 1]. For one logical
// operation the observed values are monotonically non-decreasing and the
// final invocation is exactly 1.0. A nil ProgressFunc is allowed.
type ProgressFunc func(fraction float64)

func report(p ProgressFunc, v float64) {
	if p != nil {
		p(v)
	}
}

// Mode selects the update strategy.
type Mode int

const (
	// ModeFull trusts the candidate image to be complete and self-consistent
	// and writes all of flash. No backup, no merge.
	ModeFull Mode = iota
	// ModeUpdate merges with a backup and rewrites the read-write section.
	ModeUpdate
	// ModeReadOnly merges with a backup and rewrites both sections.
	ModeReadOnly
	// ModeAltProtocol uses the block-transfer dialect spoken by one device
	// family instead of the sector erase/write commands.
	ModeAltProtocol
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeUpdate:
		return "update"
	case ModeReadOnly:
		return "read-only"
	case ModeAltProtocol:
		return "alt"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a mode name to its Mode value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "full":
		return ModeFull, nil
	case "update":
		return ModeUpdate, nil
	case "read-only":
		return ModeReadOnly, nil
	case "alt":
		return ModeAltProtocol, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// PowerControl keeps the device powered for the duration of a flash
// operation. Release runs on every exit path. Acquisition nests (an update
// acquires around the whole operation and again around its inner backup);
// implementations reference count.
type PowerControl interface {
	Acquire() error
	Release()
}

type nopPower struct{}

func (nopPower) Acquire() error { return nil }
func (nopPower) Release()       {}

// PresenceProber reports whether the device is still visible on the bus.
type PresenceProber func() bool

// Updater drives flash operations against a single device. Exactly one
// update or backup may run against a device at a time; callers serialize
// above this layer.
type Updater struct {
	mon    Sender
	log    zerolog.Logger
	power  PowerControl
	prober PresenceProber

	retryDelay      time.Duration
	altPollInterval time.Duration
	altMaxPolls     int
	dfuPollInterval time.Duration
	dfuPollWindow   time.Duration
}

// Option configures an Updater.
type Option func(*Updater)

// WithLogger sets the engine's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(u *Updater) { u.log = log }
}

// WithPower sets the power guard wrapped around whole flash operations.
func WithPower(p PowerControl) Option {
	return func(u *Updater) {
		if p != nil {
			u.power = p
		}
	}
}

// WithPresenceProber sets the bus-presence probe used while waiting for the
// device to disappear after the enter-DFU command.
func WithPresenceProber(p PresenceProber) Option {
	return func(u *Updater) { u.prober = p }
}

// WithRetryDelay overrides the backoff between backup chunk retries.
func WithRetryDelay(d time.Duration) Option {
	return func(u *Updater) { u.retryDelay = d }
}

// WithAltPolling overrides the alternate-dialect status poll interval and
// iteration bound.
func WithAltPolling(interval time.Duration, maxPolls int) Option {
	return func(u *Updater) {
		if interval > 0 {
			u.altPollInterval = interval
		}
		if maxPolls > 0 {
			u.altMaxPolls = maxPolls
		}
	}
}

// WithDFUPolling overrides the presence-poll interval and total window used
// by EnterUpdateState.
func WithDFUPolling(interval, window time.Duration) Option {
	return func(u *Updater) {
		if interval > 0 {
			u.dfuPollInterval = interval
		}
		if window > 0 {
			u.dfuPollWindow = window
		}
	}
}

// New creates an Updater over the given transport.
func New(mon Sender, opts ...Option) *Updater {
	if mon == nil {
		panic("update: transport cannot be nil")
	}
	u := &Updater{
		mon:             mon,
		log:             zerolog.Nop(),
		power:           nopPower{},
		retryDelay:      backupRetryDelay,
		altPollInterval: altPollInterval,
		altMaxPolls:     altMaxPolls,
		dfuPollInterval: dfuPollInterval,
		dfuPollWindow:   dfuPollWindow,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// applyStrategy is the per-mode "apply firmware image" variant. The mode is
// resolved to a strategy once, before any device I/O.
type applyStrategy interface {
	apply(ctx context.Context, image []byte, progress ProgressFunc) error
}

func (u *Updater) strategyFor(mode Mode) (applyStrategy, error) {
	switch mode {
	case ModeFull:
		return fullStrategy{u}, nil
	case ModeUpdate:
		return mergeStrategy{u: u, includeReadOnly: false}, nil
	case ModeReadOnly:
		return mergeStrategy{u: u, includeReadOnly: true}, nil
	case ModeAltProtocol:
		return altStrategy{u}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
}

// Update applies a firmware image to the device. The mode is validated
// before any command reaches the device; the device stays powered for the
// whole operation; every mode ends with a final progress of exactly 1.0
// followed by a hardware reset.
func (u *Updater) Update(ctx context.Context, image []byte, mode Mode, progress ProgressFunc) error {
	strat, err := u.strategyFor(mode)
	if err != nil {
		return err
	}

	if err := u.power.Acquire(); err != nil {
		return fmt.Errorf("update: acquire power: %w", err)
	}
	defer u.power.Release()

	u.log.Info().Stringer("mode", mode).Int("image_bytes", len(image)).Msg("flash update started")

	if _, err := u.mon.Send(ctx, hwmon.NewProtectDisableCommand()); err != nil {
		return err
	}

	if err := strat.apply(ctx, image, progress); err != nil {
		u.log.Error().Err(err).Stringer("mode", mode).Msg("flash update failed")
		return err
	}

	report(progress, 1.0)

	if _, err := u.mon.Send(ctx, hwmon.NewHardwareResetCommand()); err != nil {
		return err
	}

	u.log.Info().Stringer("mode", mode).Msg("flash update complete, device resetting")
	return nil
}

// fullStrategy writes the candidate over the entire flash.
type fullStrategy struct{ u *Updater }

func (s fullStrategy) apply(ctx context.Context, image []byte, progress ProgressFunc) error {
	if len(image) < flashimg.FlashSize {
		return &flashimg.FormatError{Reason: "image shorter than flash size", Offset: len(image)}
	}
	return s.u.programRange(ctx, image, 0, flashimg.FlashSize, progress, 0, 1.0)
}

// mergeStrategy backs up the current flash, merges the candidate's
// application code with the existing calibration tables, and rewrites the
// read-write section. For ModeReadOnly the read-only section is rewritten
// as well, with each major phase covering half the progress range.
type mergeStrategy struct {
	u               *Updater
	includeReadOnly bool
}

func (s mergeStrategy) apply(ctx context.Context, image []byte, progress ProgressFunc) error {
	candInfo, err := flashimg.Parse(image)
	if err != nil {
		return err
	}

	backup, err := s.u.Backup(ctx, nil)
	if err != nil {
		return err
	}

	merged, err := flashimg.Merge(backup, image)
	if err != nil {
		return err
	}

	span := 1.0
	if s.includeReadOnly {
		span = 0.5
	}
	if err := s.u.writeSection(ctx, merged, candInfo.ReadWrite, progress, 0, span); err != nil {
		return err
	}
	if s.includeReadOnly {
		return s.u.writeSection(ctx, merged, candInfo.ReadOnly, progress, 0.5, 0.5)
	}
	return nil
}

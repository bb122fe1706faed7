// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Halcyon Vision

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/halcyonvision/fathom/pkg/update"
)

var (
	progressTitleStyle = lipgloss.NewStyle().Bold(true)
	progressHelpStyle  = lipgloss.NewStyle().Faint(true)
)

type progressMsg float64

type opDoneMsg struct{ err error }

type progressModel struct {
	title     string
	bar       progress.Model
	pct       float64
	cancel    context.CancelFunc
	cancelled bool
	err       error
}

func newProgressModel(title string, cancel context.CancelFunc) progressModel {
	return progressModel{
		title:  title,
		bar:    progress.New(progress.WithDefaultGradient()),
		cancel: cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 8
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case progressMsg:
		m.pct = float64(msg)
		return m, nil

	case opDoneMsg:
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		// Cancel the operation but keep the view alive until the worker
		// acknowledges with opDoneMsg; quitting early would orphan it.
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			m.cancel()
			return m, nil
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	status := progressHelpStyle.Render("ctrl+c to cancel")
	if m.cancelled {
		status = progressHelpStyle.Render("cancelling...")
	}
	return fmt.Sprintf("%s\n\n  %s %5.1f%%\n\n  %s\n",
		progressTitleStyle.Render(m.title),
		m.bar.ViewAs(m.pct),
		m.pct*100,
		status)
}

// runWithProgress executes fn while rendering its progress. When stdout is a
// terminal it drives a live progress bar; otherwise it prints coarse
// percentage lines so logs stay readable.
func runWithProgress(ctx context.Context, title string, fn func(context.Context, update.ProgressFunc) error) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return runPlainProgress(ctx, title, fn)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(newProgressModel(title, cancel))

	go func() {
		err := fn(ctx, func(fraction float64) {
			prog.Send(progressMsg(fraction))
		})
		prog.Send(opDoneMsg{err: err})
	}()

	final, err := prog.Run()
	if err != nil {
		return err
	}
	return final.(progressModel).err
}

func runPlainProgress(ctx context.Context, title string, fn func(context.Context, update.ProgressFunc) error) error {
	fmt.Printf("%s\n", title)
	last := -1.0
	return fn(ctx, func(fraction float64) {
		if fraction-last >= 0.05 || fraction >= 1.0 {
			fmt.Printf("  %5.1f%%\n", fraction*100)
			last = fraction
		}
	})
}

// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/constellation-live/constellation/lib/process"
	"github.com/constellation-live/constellation/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var feedAddr string
	var noColor bool
	var showVersion bool

	flagSet := pflag.NewFlagSet("constellation-viewer", pflag.ContinueOnError)
	flagSet.StringVar(&feedAddr, "feed", "127.0.0.1:3334", "address of the constellation-server native feed")
	flagSet.BoolVar(&noColor, "no-color", false, "disable color output")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		version.Print("constellation-viewer")
		return nil
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("stdout is not a terminal")
	}

	if noColor {
		disableColor()
	}

	model := NewModel(feedAddr, DefaultTheme())
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the lipgloss styles for the viewer. All colors use ANSI
// 256-color codes for broad terminal compatibility.
type Theme struct {
	Header      lipgloss.Style
	Machine     lipgloss.Style
	SessionName lipgloss.Style
	Faint       lipgloss.Style
	Waiting     lipgloss.Style
	Thinking    lipgloss.Style
	Active      lipgloss.Style
	Inactive    lipgloss.Style
	ContextBar  lipgloss.Style
	ContextFill lipgloss.Style
	Footer      lipgloss.Style
	Help        lipgloss.Style
}

// DefaultTheme returns the standard viewer palette.
func DefaultTheme() Theme {
	return Theme{
		Header:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("189")),
		Machine:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("110")),
		SessionName: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Faint:       lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		Waiting:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Thinking:    lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		Active:      lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		Inactive:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		ContextBar:  lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		ContextFill: lipgloss.NewStyle().Foreground(lipgloss.Color("110")),
		Footer:      lipgloss.NewStyle().Foreground(lipgloss.Color("146")),
		Help:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// disableColor drops lipgloss to the ASCII profile so every style
// renders as plain text.
func disableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ExpiringThreshold is when a code is drawn in the warning color.
const ExpiringThreshold = 5 * time.Second

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style

	// ==========================================================================
	// ACCOUNT TABLE STYLES
	// ==========================================================================

	TableHeader   lipgloss.Style
	TableCell     lipgloss.Style
	TableSelected lipgloss.Style
	TableBorder   lipgloss.Style

	// ==========================================================================
	// CODE STYLES
	// ==========================================================================

	Code         lipgloss.Style
	CodeExpiring lipgloss.Style
	CodeMissing  lipgloss.Style

	// ==========================================================================
	// DETAIL PANE STYLES
	// ==========================================================================

	DetailBox   lipgloss.Style
	DetailTitle lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style

	// ==========================================================================
	// ACCOUNT STATUS STYLES
	// ==========================================================================

	StatusReady      lipgloss.Style
	StatusNoIdentity lipgloss.Style
	StatusNoSecret   lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	SuccessStyle lipgloss.Style
	MutedStyle   lipgloss.Style
	LinkStyle    lipgloss.Style
}

// NewTheme creates a theme for the given ui.theme value ("auto", "dark" or
// "light"). Unknown names behave like "auto".
func NewTheme(name string) *Theme {
	colorProfile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(name) {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.HeaderInfo = lipgloss.NewStyle().
		Foreground(TextSecondary)

	// Table
	t.TableHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		BorderBottom(true)

	t.TableCell = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.TableSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary).
		Background(SelectionBg)

	t.TableBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)

	// Codes
	t.Code = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald)

	t.CodeExpiring = lipgloss.NewStyle().
		Bold(true).
		Foreground(Rose)

	t.CodeMissing = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Detail pane
	t.DetailBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)

	t.DetailTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		MarginBottom(1)

	t.Label = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Width(14)

	t.Value = lipgloss.NewStyle().
		Foreground(TextPrimary)

	// Account status. Each status also carries a text indicator.
	t.StatusReady = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusNoIdentity = lipgloss.NewStyle().Foreground(Amber)
	t.StatusNoSecret = lipgloss.NewStyle().Foreground(Rose)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	// Messages
	t.ErrorStyle = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.WarningStyle = lipgloss.NewStyle().Foreground(Amber)
	t.SuccessStyle = lipgloss.NewStyle().Foreground(Emerald)
	t.MutedStyle = lipgloss.NewStyle().Foreground(TextMuted)

	// Underline keeps links distinct without color
	t.LinkStyle = lipgloss.NewStyle().
		Foreground(LinkColor).
		Underline(true)
}

// CodeStyle returns the style for a code with the given time left.
func (t *Theme) CodeStyle(remaining time.Duration) lipgloss.Style {
	if remaining <= ExpiringThreshold {
		return t.CodeExpiring
	}
	return t.Code
}

// StatusStyle returns the style for an account status string.
func (t *Theme) StatusStyle(status string) lipgloss.Style {
	switch status {
	case "ready":
		return t.StatusReady
	case "no identity":
		return t.StatusNoIdentity
	default:
		return t.StatusNoSecret
	}
}

// StatusIndicator returns the text indicator for an account status string.
func StatusIndicator(status string) string {
	switch status {
	case "ready":
		return StatusIndicators.Success
	case "no identity":
		return StatusIndicators.Warning
	default:
		return StatusIndicators.Error
	}
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, detail pane hidden
	LayoutMedium                   // 60-100 columns, detail pane below the table
	LayoutWide                     // > 100 columns, detail pane beside the table
)

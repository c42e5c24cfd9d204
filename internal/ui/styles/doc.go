// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the sam TUI.

# Color System (colors.go)

All colors are Lip Gloss AdaptiveColor values:

	Purple, Cyan    - accents, titles, selection
	Emerald         - live codes and ready accounts
	Amber           - warnings, stale profiles
	Rose            - errors and codes about to rotate

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	code := theme.CodeStyle(remaining).Render("MQV58")

NewTheme honours ui.theme ("auto", "dark" or "light"); "auto" asks termenv
whether the terminal background is dark.

# Spinners (spinner.go)

SpinnerConfig frames are ASCII so they render in any terminal. Bubbles
converts a config with SpinnerConfig.Bubbles.
*/
package styles

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands (remove, restore, delete).
//
//  1. If --confirm is present, proceed without prompting
//  2. In --json mode, require --confirm (no interactive prompts)
//  3. If stdin is not a TTY, require --confirm
//  4. Otherwise, ask on the terminal

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ConfirmationOptions describes how a destructive action was requested.
type ConfirmationOptions struct {
	// ConfirmFlag indicates if --confirm was passed
	ConfirmFlag bool
	// JSONMode indicates if --json was passed
	JSONMode bool
	// Interactive is false when stdin cannot be prompted
	Interactive bool
}

// Prompter asks a yes/no question. in and out are the terminal streams.
type Prompter struct {
	in  io.Reader
	out io.Writer
}

// NewPrompter creates a prompter reading answers from in.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

// RequireConfirmation returns true when the action may proceed, false when
// the user declined, and an error when confirmation cannot be obtained.
func (p *Prompter) RequireConfirmation(action string, opts ConfirmationOptions) (bool, error) {
	if opts.ConfirmFlag {
		return true, nil
	}
	if opts.JSONMode {
		return false, &ValidationError{
			Field:   "--confirm",
			Reason:  fmt.Sprintf("%s requires --confirm in JSON mode", action),
			Example: "add --confirm to the command",
		}
	}
	if !opts.Interactive || p.in == nil {
		return false, &ValidationError{
			Field:   "--confirm",
			Reason:  fmt.Sprintf("%s requires --confirm when stdin is not a terminal", action),
			Example: "add --confirm to the command",
		}
	}
	return p.promptYesNo(fmt.Sprintf("%s %s?", WarningStyle.Render("Really"), action)), nil
}

func (p *Prompter) promptYesNo(question string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	reader := bufio.NewReader(p.in)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

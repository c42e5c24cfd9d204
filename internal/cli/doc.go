// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-interactive sam
// commands.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed global flags plus the raw command arguments
//   - Env: Loaded config, logger and account store shared by commands
//   - ArgParser: Flag and positional parsing for one command
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	if cmd == cli.CmdTUI {
//	    // start the terminal UI
//	}
//	os.Exit(cli.Run(cmd, args))
//
// # Output
//
// Every command honours --json, which wraps its result in a JSONResponse
// envelope. Errors map to exit codes through GetExitCode.
package cli

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package dashboard is the interactive account table shown by running sam
without a command.

# Model (model.go)

Model is a Bubble Tea model built from a Deps value. The table lists every
account with its current Steam Guard code and status. Codes are recomputed
from the clock on every TickMsg, once per ui.refresh_secs.

# View (view.go)

The detail pane shows the selected account, its cached profile and the code
with a countdown bar. Its position follows the layout mode:

	wide    beside the table
	medium  below the table
	narrow  hidden, and the SteamID column is dropped

# Messages (messages.go)

Slow work runs in tea.Cmds: store reloads, profile lookups, clipboard
writes, backups and browser launches. A profile result is applied only if
the cursor is still on the account it was requested for.

# Keys (keys.go)

	c / Enter  copy code        r  reload accounts
	p          fetch profile    b  create backup
	o          open profile     /  filter
	?          help             q  quit
*/
package dashboard

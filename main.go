// sam - Steam account 2FA manager for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/cli"
	"github.com/war100ck/Steam-Account-Manager/internal/ui/dashboard"
	"github.com/war100ck/Steam-Account-Manager/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])
	if cmd == cli.CmdTUI {
		os.Exit(runTUI(args))
	}
	os.Exit(cli.Run(cmd, args))
}

func runTUI(args cli.Args) int {
	if err := cli.RequiresTTY("open the account table"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nRun 'sam help' for non-interactive commands.\n", err)
		return cli.GetExitCode(err)
	}

	env, err := cli.NewEnv(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.GetExitCode(err)
	}
	defer env.Close()

	log := env.Logger.WithField("component", "main")

	// Live reload is best effort; the r key still works without it.
	var changes <-chan account.ChangeEvent
	watcher, err := account.NewWatcher(env.Store.Dir(), account.DefaultDebounce, env.Logger)
	if err == nil {
		if err = watcher.Start(); err != nil {
			watcher.Close()
		}
	}
	if err != nil {
		log.WithError(err).Warn("accounts directory watcher unavailable")
	} else {
		defer watcher.Close()
		changes = watcher.Events()
	}

	cfg := env.Config
	theme := styles.NewTheme(cfg.UI.Theme)
	m := dashboard.New(theme, dashboard.Deps{
		Store:          env.Store,
		Resolver:       env.Resolver,
		Backups:        env.Backups,
		Clipboard:      env.Clipboard,
		OpenURL:        env.OpenURL,
		Now:            env.Now,
		Logger:         env.Logger,
		Changes:        changes,
		Refresh:        time.Duration(cfg.UI.RefreshSecs) * time.Second,
		ProfileTimeout: time.Duration(4*cfg.Steam.TimeoutSecs+5) * time.Second,
		ShowSecrets:    cfg.UI.ShowSecrets,
		Offline:        cfg.Offline || args.Offline,
	})

	log.WithField("accounts_dir", env.Store.Dir()).Info("starting TUI")
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running sam: %v\n", err)
		return 1
	}
	return 0
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared command environment and dispatch.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/backup"
	"github.com/war100ck/Steam-Account-Manager/internal/config"
	"github.com/war100ck/Steam-Account-Manager/internal/logging"
	"github.com/war100ck/Steam-Account-Manager/internal/offline"
	"github.com/war100ck/Steam-Account-Manager/internal/profile"
	"github.com/war100ck/Steam-Account-Manager/internal/steamapi"
	"github.com/war100ck/Steam-Account-Manager/internal/steamguard"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Env carries everything a command needs. The TUI builds on the same Env.
type Env struct {
	Config *config.Config
	Logger *logrus.Logger
	Store  *account.Store

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive is true when In is a terminal that can be prompted.
	Interactive bool

	// Now is the clock used for codes and cache ages.
	Now func() time.Time

	// Clipboard writes text to the system clipboard.
	Clipboard func(string) error

	// OpenURL launches a browser. Only the TUI uses it.
	OpenURL func(string) error

	// Width reports the terminal width for table layout.
	Width func() int

	resolver *profile.Resolver
	closers  []io.Closer
}

// NewEnv loads the configuration and opens the account store.
func NewEnv(args Args) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	env, err := NewEnvWithConfig(cfg, args)
	if err != nil {
		return nil, err
	}
	env.In = os.Stdin
	env.Interactive = IsTTY() && !args.JSON
	return env, nil
}

// NewEnvWithConfig builds an Env from an already loaded configuration.
// Output goes to stdout and stderr until the caller replaces the writers.
func NewEnvWithConfig(cfg *config.Config, args Args) (*Env, error) {
	if args.AccountsDir != "" {
		cfg.Storage.AccountsDir = config.ExpandPath(args.AccountsDir)
	}
	offline.SetOfflineMode(cfg.Offline || args.Offline)

	logger, closer, err := logging.Setup(logging.Options{
		Level:   cfg.Log.Level,
		Path:    config.ExpandPath(cfg.Log.Path),
		Verbose: args.Verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}

	store, err := account.NewStore(config.ExpandPath(cfg.Storage.AccountsDir), logger)
	if err != nil {
		closer.Close()
		return nil, err
	}

	return &Env{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Out:       os.Stdout,
		Err:       os.Stderr,
		Now:       time.Now,
		Clipboard: clipboard.WriteAll,
		OpenURL:   util.OpenBrowser,
		Width:     GetTerminalWidth,
		closers:   []io.Closer{closer},
	}, nil
}

// Close releases the profile cache and the log file.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	e.resolver = nil
	return errors.Join(errs...)
}

// Generator returns a code generator reading the Env clock.
func (e *Env) Generator() *steamguard.Generator {
	return steamguard.NewGenerator(steamguard.ClockFunc(e.Now))
}

// Client builds a Web API client from the [steam] section.
func (e *Env) Client() *steamapi.Client {
	return e.clientWithKey(e.Config.Steam.APIKey)
}

func (e *Env) clientWithKey(key string) *steamapi.Client {
	s := e.Config.Steam
	return steamapi.NewClient(key, e.Logger).
		WithBaseURL(s.APIURL).
		WithTimeout(time.Duration(s.TimeoutSecs) * time.Second).
		WithRateLimit(s.RequestsPerSecond)
}

// Resolver opens the profile cache on first use.
func (e *Env) Resolver() (*profile.Resolver, error) {
	if e.resolver != nil {
		return e.resolver, nil
	}
	cache, err := profile.OpenCache(config.ExpandPath(e.Config.Storage.CacheDB))
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, cache)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if n, err := cache.Prune(ctx, e.Now().Add(-profile.Retention)); err != nil {
		e.Logger.WithError(err).Warn("failed to prune profile cache")
	} else if n > 0 {
		e.Logger.WithField("removed", n).Info("pruned old profiles")
	}

	avatars := profile.NewAvatarCache(config.ExpandPath(e.Config.AvatarsDir()), e.Logger)
	ttl := time.Duration(e.Config.Storage.AvatarTTLHours) * time.Hour
	e.resolver = profile.NewResolver(cache, avatars, e.Client(), e.Logger).
		WithTTL(ttl).
		WithClock(e.Now)
	return e.resolver, nil
}

// forgetProfile drops the cached profile and avatar of a removed account.
// The cache is only opened when it already exists on disk.
func (e *Env) forgetProfile(steamID string) {
	if steamID == "" || !util.FileExists(config.ExpandPath(e.Config.Storage.CacheDB)) {
		return
	}
	r, err := e.Resolver()
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = r.Forget(ctx, steamID)
	}
	if err != nil {
		e.Logger.WithError(err).WithField("steamid", steamID).Warn("failed to forget cached profile")
	}
}

// Backups returns a backup manager for the configured directories.
func (e *Env) Backups() *backup.Manager {
	return backup.NewManager(
		e.Store.Dir(),
		config.ExpandPath(e.Config.Storage.BackupsDir),
		e.Logger,
	).WithMaxBackups(e.Config.Storage.MaxBackups).WithClock(e.Now)
}

// account loads the store and resolves key to an account.
func (e *Env) account(key string) (*account.Account, error) {
	if _, err := e.Store.LoadAll(); err != nil {
		return nil, err
	}
	acc, err := e.Store.Get(key)
	if err != nil {
		return nil, &NotFoundError{Resource: "account", ID: key, Err: err}
	}
	return acc, nil
}

// emit prints data as a JSON envelope, or calls human for terminal output.
func (e *Env) emit(jsonMode bool, command string, data interface{}, human func(w io.Writer)) error {
	if jsonMode {
		return NewJSONResponse(command, data).Print(e.Out)
	}
	human(e.Out)
	return nil
}

func (e *Env) confirm(action string, args Args, p *ArgParser) (bool, error) {
	return NewPrompter(e.In, e.Err).RequireConfirmation(action, ConfirmationOptions{
		ConfirmFlag: p.BoolFlag("confirm") || p.BoolFlag("yes"),
		JSONMode:    args.JSON,
		Interactive: e.Interactive,
	})
}

// readSecret reads a value without echo on a terminal, otherwise one line
// from In.
func (e *Env) readSecret(prompt string) (string, error) {
	if e.Interactive {
		fmt.Fprint(e.Err, prompt)
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(e.Err)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	if e.In == nil {
		return "", &TTYRequiredError{Operation: "read a secret"}
	}
	line, err := bufio.NewReader(e.In).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// Execute runs one non-interactive command.
func Execute(env *Env, cmd Command, args Args) error {
	switch cmd {
	case CmdList:
		return HandleList(env, args)
	case CmdCode:
		return HandleCode(env, args)
	case CmdCopy:
		return HandleCopy(env, args)
	case CmdImport:
		return HandleImport(env, args)
	case CmdExport:
		return HandleExport(env, args)
	case CmdRemove:
		return HandleRemove(env, args)
	case CmdURI:
		return HandleURI(env, args)
	case CmdVerify:
		return HandleVerify(env, args)
	case CmdProfile:
		return HandleProfile(env, args)
	case CmdAPIKey:
		return HandleAPIKey(env, args)
	case CmdBackup:
		return HandleBackup(env, args)
	case CmdConfig:
		return HandleConfig(env, args)
	case CmdSetup:
		return HandleSetup(env, args)
	case CmdVersion:
		return HandleVersion(env.Out, args)
	case CmdHelp:
		PrintUsage(env.Out)
		return nil
	default:
		return &ValidationError{
			Field:   "command",
			Value:   args.Name,
			Reason:  "unknown command",
			Example: "sam help",
		}
	}
}

// Run executes cmd with a fresh Env and returns the process exit code.
func Run(cmd Command, args Args) int {
	switch cmd {
	case CmdHelp:
		PrintUsage(os.Stdout)
		return ExitSuccess
	case CmdVersion:
		if err := HandleVersion(os.Stdout, args); err != nil {
			return ExitGeneralError
		}
		return ExitSuccess
	}

	env, err := NewEnv(args)
	if err != nil {
		report(os.Stdout, os.Stderr, cmd, args, err)
		return GetExitCode(err)
	}
	defer env.Close()

	if err := Execute(env, cmd, args); err != nil {
		env.Logger.WithFields(logrus.Fields{
			"component": "cli",
			"command":   cmd.String(),
		}).WithError(err).Warn("command failed")
		report(env.Out, env.Err, cmd, args, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// report sends JSON errors to stdout, where the caller reads the envelope,
// and text errors to stderr.
func report(out, errOut io.Writer, cmd Command, args Args, err error) {
	if args.JSON {
		DisplayError(out, cmd.String(), err, true)
		return
	}
	DisplayError(errOut, cmd.String(), err, false)
}

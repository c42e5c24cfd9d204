// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - First-run wizard for sam.
//
// Command: setup
// Aliases: init
//
// Examples:
//   sam setup                  Run interactive setup wizard
//   sam setup --json           Show setup status in JSON
//
// The wizard walks through:
//   1. Accounts directory (where maFiles live)
//   2. Optional Steam Web API key (read without echo)
//   3. Importing maFiles from another directory, e.g. an SDA install
//   4. Backup retention

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/config"
	"github.com/war100ck/Steam-Account-Manager/internal/steamapi"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// ErrSetupCancelled is returned when the wizard is aborted with Ctrl+C.
var ErrSetupCancelled = errors.New("setup cancelled")

// LineReader is the prompt surface the wizard needs. *liner.State
// implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
}

// SetupResult summarises what the wizard changed.
type SetupResult struct {
	ConfigPath  string `json:"config_path"`
	AccountsDir string `json:"accounts_dir"`
	APIKeySet   bool   `json:"api_key_configured"`
	Imported    int    `json:"imported"`
	Skipped     int    `json:"skipped"`
	MaxBackups  int    `json:"max_backups"`
	Accounts    int    `json:"accounts"`
}

// HandleSetup runs the wizard, or reports setup status in JSON mode.
func HandleSetup(env *Env, args Args) error {
	if args.JSON {
		return setupStatus(env, args)
	}
	if err := RequiresTTY("run the setup wizard"); err != nil {
		return err
	}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	res, err := RunSetupWizard(env, line)
	if err != nil {
		return err
	}
	printSetupSummary(env.Out, res)
	return nil
}

// RunSetupWizard asks the setup questions on r and saves the answers.
func RunSetupWizard(env *Env, r LineReader) (*SetupResult, error) {
	out := env.Out
	fmt.Fprintln(out, TitleStyle.Render("sam setup"))
	fmt.Fprintln(out, RenderSeparator())
	fmt.Fprintln(out, "Press Enter to keep the value in brackets. Ctrl+C cancels.")
	fmt.Fprintln(out)

	cfg, err := config.LoadForEdit()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}

	// [1/4] Accounts directory
	fmt.Fprintln(out, SectionStyle.Render("[1/4] Accounts directory"))
	dir, err := promptDefault(r, "maFiles directory", cfg.Storage.AccountsDir)
	if err != nil {
		return nil, err
	}
	cfg.Storage.AccountsDir = config.ExpandPath(dir)

	// [2/4] API key
	fmt.Fprintln(out, SectionStyle.Render("[2/4] Steam Web API key"))
	fmt.Fprintln(out, DimStyle.Render("Used for nicknames and avatars. Get one at https://steamcommunity.com/dev/apikey"))
	current := "none"
	if cfg.Steam.APIKey != "" {
		current = "fingerprint " + steamapi.KeyFingerprint(cfg.Steam.APIKey)
	}
	key, err := r.PasswordPrompt(fmt.Sprintf("API key (Enter keeps %s): ", current))
	if err != nil {
		return nil, wizardErr(err)
	}
	if key = strings.TrimSpace(key); key != "" {
		cfg.Steam.APIKey = key
	}

	// [3/4] Import
	fmt.Fprintln(out, SectionStyle.Render("[3/4] Import maFiles"))
	importDir, err := promptDefault(r, "Directory to import from (Enter skips)", "")
	if err != nil {
		return nil, err
	}

	// [4/4] Backups
	fmt.Fprintln(out, SectionStyle.Render("[4/4] Backups"))
	for {
		answer, err := promptDefault(r, "Backups to keep (0 keeps all)", strconv.Itoa(cfg.Storage.MaxBackups))
		if err != nil {
			return nil, err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr == nil && n >= 0 {
			cfg.Storage.MaxBackups = n
			break
		}
		fmt.Fprintln(out, ErrorStyle.Render("Enter a whole number, 0 or more."))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.Save(cfg); err != nil {
		return nil, NewCommandError("setup", "save config", "", err)
	}
	path, _ := config.ConfigPathTOML()

	store, err := account.NewStore(cfg.Storage.AccountsDir, env.Logger)
	if err != nil {
		return nil, err
	}
	res := &SetupResult{
		ConfigPath:  path,
		AccountsDir: cfg.Storage.AccountsDir,
		APIKeySet:   cfg.Steam.APIKey != "",
		MaxBackups:  cfg.Storage.MaxBackups,
	}
	if importDir != "" {
		res.Imported, res.Skipped, err = importDirectory(store, config.ExpandPath(importDir), out)
		if err != nil {
			return nil, err
		}
	}
	accounts, err := store.LoadAll()
	if err != nil {
		return nil, err
	}
	res.Accounts = len(accounts)

	env.Config.Storage = cfg.Storage
	env.Config.Steam.APIKey = cfg.Steam.APIKey
	env.Store = store
	env.Logger.WithField("accounts", res.Accounts).Info("setup completed")
	return res, nil
}

func promptDefault(r LineReader, label, def string) (string, error) {
	prompt := label + ": "
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", label, def)
	}
	answer, err := r.Prompt(prompt)
	if err != nil {
		return "", wizardErr(err)
	}
	if answer = strings.TrimSpace(answer); answer == "" {
		return def, nil
	}
	return answer, nil
}

func wizardErr(err error) error {
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return ErrSetupCancelled
	}
	return err
}

// importDirectory imports every maFile in dir, skipping accounts that
// already exist.
func importDirectory(store *account.Store, dir string, out io.Writer) (imported, skipped int, err error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+account.FileExt))
	if err != nil {
		return 0, 0, err
	}
	if len(matches) == 0 {
		if _, statErr := os.Stat(dir); statErr != nil {
			return 0, 0, fmt.Errorf("import directory: %w", statErr)
		}
		fmt.Fprintln(out, WarningStyle.Render("No maFiles found in "+dir))
		return 0, 0, nil
	}

	for _, path := range matches {
		acc, err := store.Import(path, false)
		switch {
		case errors.Is(err, account.ErrAccountExists):
			skipped++
			fmt.Fprintf(out, "  %s %s (already present)\n", DimStyle.Render("skip"), filepath.Base(path))
		case err != nil:
			skipped++
			fmt.Fprintf(out, "  %s %s: %v\n", ErrorStyle.Render("fail"), filepath.Base(path), err)
		default:
			imported++
			fmt.Fprintf(out, "  %s %s\n", SuccessStyle.Render("ok"), acc.Name())
		}
	}
	return imported, skipped, nil
}

func printSetupSummary(w io.Writer, res *SetupResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, SuccessStyle.Render("Setup complete"))
	fmt.Fprintln(w, RenderField("Config", res.ConfigPath))
	fmt.Fprintln(w, RenderField("Accounts dir", res.AccountsDir))
	fmt.Fprintln(w, RenderField("Accounts", strconv.Itoa(res.Accounts)))
	if res.Imported > 0 || res.Skipped > 0 {
		fmt.Fprintln(w, RenderField("Imported", fmt.Sprintf("%d (%d skipped)", res.Imported, res.Skipped)))
	}
	apiKey := "not set"
	if res.APIKeySet {
		apiKey = "configured"
	}
	fmt.Fprintln(w, RenderField("API key", apiKey))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'sam' to open the account table.")
}

func setupStatus(env *Env, args Args) error {
	path, _ := config.ConfigPathTOML()
	accounts, err := env.Store.LoadAll()
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"config_path":        path,
		"config_exists":      util.FileExists(path),
		"accounts_dir":       env.Store.Dir(),
		"accounts":           len(accounts),
		"api_key_configured": env.Config.Steam.APIKey != "",
	}
	return env.emit(args.JSON, "setup", data, func(io.Writer) {})
}

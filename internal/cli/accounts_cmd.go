// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// accounts_cmd.go - Account commands: list, code, copy, import, export, remove.
//
// Examples:
//   sam list
//   sam code alice
//   sam copy alice
//   sam import ~/Downloads/alice.maFile --force
//   sam export alice ./alice.maFile
//   sam remove alice --confirm

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/samber/lo"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/steamguard"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// Column widths for "sam list". The name column takes whatever the
// terminal has left, within [listMinNameWidth, listMaxNameWidth].
const (
	listMinNameWidth = 12
	listMaxNameWidth = 40
	listSteamIDWidth = 19
	listCodeWidth    = 16
	listStatusWidth  = 11
)

// listNameWidth sizes the name column for a terminal of termWidth columns.
func listNameWidth(termWidth int) int {
	w := termWidth - listSteamIDWidth - listCodeWidth - listStatusWidth - 6
	return max(listMinNameWidth, min(w, listMaxNameWidth))
}

// =============================================================================
// LIST
// =============================================================================

// HandleList prints every account with its current code.
func HandleList(env *Env, args Args) error {
	accounts, err := env.Store.LoadAll()
	if err != nil {
		return err
	}

	gen := env.Generator()
	results := lo.Map(accounts, func(acc *account.Account, _ int) steamguard.CodeResult {
		return gen.Code(acc.SharedSecret)
	})
	rows := lo.Map(accounts, func(acc *account.Account, i int) AccountData {
		res := results[i]
		row := AccountData{
			ID:        acc.ID,
			Name:      acc.Name(),
			SteamID:   acc.SteamID,
			Code:      res.Code,
			Status:    acc.Status().String(),
			Remaining: int(res.Remaining.Seconds()),
		}
		if res.Err != nil {
			row.CodeError = res.Err.Error()
		}
		return row
	})

	return env.emit(args.JSON, "list", rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintf(w, "No accounts in %s\n", env.Store.Dir())
			fmt.Fprintln(w, DimStyle.Render("Import one with: sam import <file.maFile>"))
			return
		}

		nameWidth := listNameWidth(env.Width())
		header := util.PadRight("NAME", nameWidth) + "  " +
			util.PadRight("STEAMID", listSteamIDWidth) + "  " +
			util.PadRight("CODE", listCodeWidth) + "  STATUS"
		fmt.Fprintln(w, SectionStyle.Render(header))
		fmt.Fprintln(w, RenderSeparator(nameWidth + listSteamIDWidth + listCodeWidth + listStatusWidth + 6))

		for i, row := range rows {
			res := results[i]
			code := res.Display()
			if res.OK() {
				code = CodeStyle.Render(util.PadRight(code, listCodeWidth))
			} else {
				code = ErrorStyle.Render(util.PadRight(util.TruncateWidth(code, listCodeWidth), listCodeWidth))
			}
			steamID := row.SteamID
			if steamID == "" {
				steamID = "-"
			}
			fmt.Fprintf(w, "%s  %s  %s  %s\n",
				util.PadRight(row.Name, nameWidth),
				util.PadRight(steamID, listSteamIDWidth),
				code,
				RenderStatus(row.Status))
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%d account(s), codes rotate in %s",
			len(rows), util.FormatCountdown(gen.Remaining()))))
	})
}

// =============================================================================
// CODE / COPY
// =============================================================================

// currentCode generates the code for the account named by the first
// positional argument.
func currentCode(env *Env, command string, p *ArgParser) (*account.Account, steamguard.CodeResult, error) {
	key := p.Positional(0)
	if key == "" {
		return nil, steamguard.CodeResult{}, ErrMissingArgument("account", "sam "+command+" <account>")
	}
	acc, err := env.account(key)
	if err != nil {
		return nil, steamguard.CodeResult{}, err
	}
	res := env.Generator().Code(acc.SharedSecret)
	if res.Err != nil {
		return acc, res, fmt.Errorf("%s: %w", acc.Name(), res.Err)
	}
	return acc, res, nil
}

// HandleCode prints the current code on its own line so scripts can read it.
func HandleCode(env *Env, args Args) error {
	acc, res, err := currentCode(env, "code", NewArgParser(args.Raw))
	if err != nil {
		return err
	}
	data := CodeData{Account: acc.Name(), Code: res.Code, Remaining: int(res.Remaining.Seconds())}
	return env.emit(args.JSON, "code", data, func(w io.Writer) {
		fmt.Fprintln(w, res.Code)
	})
}

// HandleCopy puts the current code on the clipboard.
func HandleCopy(env *Env, args Args) error {
	acc, res, err := currentCode(env, "copy", NewArgParser(args.Raw))
	if err != nil {
		return err
	}
	if err := env.Clipboard(res.Code); err != nil {
		return NewCommandError("copy", "write clipboard", "clipboard unavailable", err)
	}
	env.Logger.WithField("account", acc.Name()).Info("code copied to clipboard")

	data := CodeData{Account: acc.Name(), Code: res.Code, Remaining: int(res.Remaining.Seconds()), Copied: true}
	return env.emit(args.JSON, "copy", data, func(w io.Writer) {
		fmt.Fprintf(w, "%s Copied %s for %s (valid for %s)\n",
			SuccessStyle.Render("[OK]"),
			CodeStyle.Render(res.Code),
			acc.Name(),
			util.FormatCountdown(res.Remaining))
	})
}

// =============================================================================
// IMPORT / EXPORT / REMOVE
// =============================================================================

// HandleImport copies one or more maFiles into the accounts directory.
func HandleImport(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "force")
	files := p.PositionalFrom(0)
	if len(files) == 0 {
		return ErrMissingArgument("file", "sam import <file.maFile> [--force]")
	}
	force := p.BoolFlag("force")

	var imported []ImportData
	for _, file := range files {
		acc, err := env.Store.Import(file, force)
		if err != nil {
			if errors.Is(err, account.ErrAccountExists) {
				return NewCommandError("import", "import "+file, "an account with this name exists; use --force to overwrite", err)
			}
			return NewCommandError("import", "import "+file, "", err)
		}
		imported = append(imported, ImportData{
			ID:      acc.ID,
			Name:    acc.Name(),
			SteamID: acc.SteamID,
			Path:    acc.Path,
		})
	}

	return env.emit(args.JSON, "import", imported, func(w io.Writer) {
		for _, d := range imported {
			line := fmt.Sprintf("%s Imported %s -> %s", SuccessStyle.Render("[OK]"), d.Name, d.Path)
			if d.SteamID == "" {
				line += " " + WarningStyle.Render("(no SteamID found)")
			}
			fmt.Fprintln(w, line)
		}
	})
}

// HandleExport writes an account's maFile to the given path.
func HandleExport(env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	key, dest := p.Positional(0), p.Positional(1)
	if key == "" || dest == "" {
		return ErrMissingArgument("account and file", "sam export <account> <file>")
	}
	if _, err := env.account(key); err != nil {
		return err
	}
	path, err := env.Store.Export(key, dest)
	if err != nil {
		return NewCommandError("export", "export "+key, "", err)
	}
	data := map[string]string{"account": key, "path": path}
	return env.emit(args.JSON, "export", data, func(w io.Writer) {
		fmt.Fprintf(w, "%s Exported %s -> %s\n", SuccessStyle.Render("[OK]"), key, path)
		fmt.Fprintln(w, WarningStyle.Render("The exported file contains your 2FA secrets. Keep it private."))
	})
}

// HandleRemove deletes an account's maFile.
func HandleRemove(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "confirm", "yes")
	key := p.Positional(0)
	if key == "" {
		return ErrMissingArgument("account", "sam remove <account> --confirm")
	}
	acc, err := env.account(key)
	if err != nil {
		return err
	}

	ok, err := env.confirm("remove account "+acc.Name(), args, p)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(env.Err, "Cancelled.")
		return nil
	}

	if err := env.Store.Remove(acc.ID); err != nil {
		return NewCommandError("remove", "remove "+acc.Name(), "", err)
	}
	env.forgetProfile(acc.SteamID)
	data := map[string]string{"account": acc.Name(), "id": acc.ID}
	return env.emit(args.JSON, "remove", data, func(w io.Writer) {
		fmt.Fprintf(w, "%s Removed %s\n", SuccessStyle.Render("[OK]"), acc.Name())
		fmt.Fprintln(w, DimStyle.Render("Existing backups still hold a copy. Run 'sam backup list' to see them."))
	})
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// backup_cmd.go - Backup management for maFiles and cached avatars.
//
// Command: backup [subcommand]
// Aliases: backups
//
// Subcommands:
//   list (default)      List backups, newest first (aliases: ls)
//   create              Copy every maFile and avatar into a new backup
//   verify <id>         Check every file against the manifest checksums
//   restore <id>        Verify, then copy the backup over the accounts dir
//   delete <id>         Delete a backup
//
// Examples:
//   sam backup
//   sam backup create
//   sam backup verify backup_20240315_103000
//   sam backup restore backup_20240315_103000 --confirm
//   sam backup delete backup_20240315_103000 --confirm
//
// Backups live in storage.backups_dir. The oldest are deleted once there
// are more than storage.max_backups (0 keeps all).

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"

	"github.com/war100ck/Steam-Account-Manager/internal/backup"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// HandleBackup dispatches backup subcommands.
func HandleBackup(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "confirm", "yes")

	switch sub := p.Subcommand(); sub {
	case "", "list", "ls":
		return listBackups(env, args)
	case "create", "new":
		return createBackup(env, args)
	case "verify":
		return verifyBackup(env, args, p)
	case "restore":
		return restoreBackup(env, args, p)
	case "delete", "rm":
		return deleteBackup(env, args, p)
	default:
		return ErrUnknownSubcommand("backup", sub, []string{"list", "create", "verify", "restore", "delete"})
	}
}

func backupData(m *backup.Manifest) BackupData {
	return BackupData{
		ID:        m.ID,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		Accounts:  m.Accounts,
		Files:     len(m.Files),
		SizeBytes: m.TotalSize(),
		Legacy:    m.Legacy,
	}
}

func backupID(p *ArgParser, action string) (string, error) {
	id := p.Positional(1)
	if id == "" {
		return "", ErrMissingArgument("backup ID", "sam backup "+action+" <backup_YYYYMMDD_HHMMSS>")
	}
	return id, nil
}

// =============================================================================
// CREATE BACKUP
// =============================================================================

func createBackup(env *Env, args Args) error {
	man, err := env.Backups().Create()
	if err != nil {
		return NewCommandError("backup", "create backup", "", err)
	}

	data := backupData(man)
	return env.emit(args.JSON, "backup create", data, func(w io.Writer) {
		fmt.Fprintf(w, "%s Backup created: %s\n", SuccessStyle.Render("[OK]"), man.ID)
		fmt.Fprintln(w, RenderField("Accounts", fmt.Sprintf("%d", man.Accounts)))
		fmt.Fprintln(w, RenderField("Files", fmt.Sprintf("%d", len(man.Files))))
		fmt.Fprintln(w, RenderField("Size", util.FormatBytes(man.TotalSize())))
	})
}

// =============================================================================
// LIST BACKUPS
// =============================================================================

func listBackups(env *Env, args Args) error {
	mgr := env.Backups()
	manifests, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	rows := lo.Map(manifests, func(m *backup.Manifest, _ int) BackupData { return backupData(m) })
	return env.emit(args.JSON, "backup list", rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "No backups found.")
			fmt.Fprintln(w, DimStyle.Render("Create a backup with: sam backup create"))
			return
		}

		fmt.Fprintln(w, TitleStyle.Render("Available Backups"))
		fmt.Fprintln(w, RenderSeparator())
		for i, m := range manifests {
			id := m.ID
			if m.Legacy {
				id += " " + DimStyle.Render("(no manifest)")
			}
			fmt.Fprintf(w, "[%d] %s\n", i+1, id)
			fmt.Fprintf(w, "    Created:   %s (%s)\n",
				m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				util.FormatAge(m.CreatedAt, env.Now()))
			fmt.Fprintf(w, "    Accounts:  %d\n", m.Accounts)
			fmt.Fprintf(w, "    Size:      %s\n", util.FormatBytes(m.TotalSize()))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Total backups: %d (in %s)\n", len(manifests), mgr.Dir())
	})
}

// =============================================================================
// VERIFY / RESTORE / DELETE
// =============================================================================

func verifyBackup(env *Env, args Args, p *ArgParser) error {
	id, err := backupID(p, "verify")
	if err != nil {
		return err
	}
	man, err := env.Backups().Verify(id)
	if err != nil {
		return err
	}

	data := backupData(man)
	data.Verified = !man.Legacy
	return env.emit(args.JSON, "backup verify", data, func(w io.Writer) {
		if man.Legacy {
			fmt.Fprintf(w, "%s %s has no manifest; files cannot be checked\n", WarningStyle.Render("[WARN]"), id)
			return
		}
		fmt.Fprintf(w, "%s %s: %d file(s) match their checksums\n", SuccessStyle.Render("[OK]"), id, len(man.Files))
	})
}

func restoreBackup(env *Env, args Args, p *ArgParser) error {
	id, err := backupID(p, "restore")
	if err != nil {
		return err
	}
	mgr := env.Backups()
	if _, err := mgr.Get(id); err != nil {
		return err
	}

	ok, err := env.confirm("restore "+id+" over "+env.Store.Dir(), args, p)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(env.Err, "Cancelled.")
		return nil
	}

	man, err := mgr.Restore(id)
	if err != nil {
		return err
	}

	data := backupData(man)
	data.Verified = !man.Legacy
	return env.emit(args.JSON, "backup restore", data, func(w io.Writer) {
		fmt.Fprintf(w, "%s Restored %d account(s) from %s\n", SuccessStyle.Render("[OK]"), man.Accounts, id)
	})
}

func deleteBackup(env *Env, args Args, p *ArgParser) error {
	id, err := backupID(p, "delete")
	if err != nil {
		return err
	}
	mgr := env.Backups()
	if _, err := mgr.Get(id); err != nil {
		return err
	}

	ok, err := env.confirm("delete backup "+id, args, p)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(env.Err, "Cancelled.")
		return nil
	}

	if err := mgr.Delete(id); err != nil {
		return err
	}
	return env.emit(args.JSON, "backup delete", map[string]string{"id": id}, func(w io.Writer) {
		fmt.Fprintf(w, "%s Deleted %s\n", SuccessStyle.Render("[OK]"), id)
	})
}

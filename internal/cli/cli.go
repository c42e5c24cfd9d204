// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command line parsing and usage text for sam.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdList
	CmdCode
	CmdCopy
	CmdImport
	CmdExport
	CmdRemove
	CmdURI
	CmdVerify
	CmdProfile
	CmdAPIKey
	CmdBackup
	CmdConfig
	CmdSetup
	CmdVersion
	CmdHelp
	CmdUnknown
)

var commandNames = map[Command]string{
	CmdTUI:     "tui",
	CmdList:    "list",
	CmdCode:    "code",
	CmdCopy:    "copy",
	CmdImport:  "import",
	CmdExport:  "export",
	CmdRemove:  "remove",
	CmdURI:     "uri",
	CmdVerify:  "verify",
	CmdProfile: "profile",
	CmdAPIKey:  "apikey",
	CmdBackup:  "backup",
	CmdConfig:  "config",
	CmdSetup:   "setup",
	CmdVersion: "version",
	CmdHelp:    "help",
}

// String returns the command name as typed on the command line.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON        bool   // Output in JSON format
	Offline     bool   // Block every Steam Web API request
	Verbose     bool   // Debug logging
	AccountsDir string // Overrides storage.accounts_dir

	// Name is the command word as typed, kept for error messages.
	Name string

	// Raw args (remaining after the command word and global flags)
	Raw []string
}

const usageText = `sam - Steam account 2FA manager
Version: %s

USAGE:
  sam [global flags] [command] [arguments]

  Without a command sam opens the interactive account table.

COMMANDS:
  list                          List accounts with their current codes
  code <account>                Print the current Steam Guard code
  copy <account>                Copy the current code to the clipboard
  import <file> [--force]       Import a maFile into the accounts directory
  export <account> <file>       Write an account's maFile to <file>
  remove <account> --confirm    Delete an account's maFile
  uri <account>                 Print an otpauth:// URI for other authenticators
  verify <account> <code>       Check a code against the current window (+/-30s)
  profile <account> [--refresh] Show the cached Steam profile
  apikey [show|set|validate]    Manage the Steam Web API key
  backup [create|list|verify|restore|delete]
                                Manage backups of maFiles and avatars
  config [show|get|set|path]    Inspect or change configuration
  setup                         Interactive first-run wizard
  version                       Print version information
  help                          Show this help

GLOBAL FLAGS:
  --json           Machine-readable output
  --offline        Never contact the Steam Web API
  --accounts DIR   Use DIR as the accounts directory
  -v, --verbose    Debug logging to the log file

ACCOUNTS:
  <account> is a maFile name without the extension or an account_name.

EXAMPLES:
  sam code alice
  sam import ~/Downloads/alice.maFile
  sam backup restore backup_20240315_103000 --confirm
  sam config set storage.max_backups 50
  sam --json list

EXIT CODES:
  0 success, 1 error, 2 usage, 3 config, 4 API key, 5 network, 7 not found
`

// PrintUsage writes the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "sam version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", runtime.Version())
}

// Parse parses command-line arguments (without the program name) and
// returns the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	parsedArgs.Name = cmd
	parsedArgs.Raw = remaining[1:]

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs
	case "list", "ls":
		return CmdList, parsedArgs
	case "code":
		return CmdCode, parsedArgs
	case "copy", "cp":
		return CmdCopy, parsedArgs
	case "import":
		return CmdImport, parsedArgs
	case "export":
		return CmdExport, parsedArgs
	case "remove", "rm":
		return CmdRemove, parsedArgs
	case "uri":
		return CmdURI, parsedArgs
	case "verify":
		return CmdVerify, parsedArgs
	case "profile":
		return CmdProfile, parsedArgs
	case "apikey", "api-key":
		return CmdAPIKey, parsedArgs
	case "backup", "backups":
		return CmdBackup, parsedArgs
	case "config":
		return CmdConfig, parsedArgs
	case "setup", "init":
		return CmdSetup, parsedArgs
	case "version", "--version":
		return CmdVersion, parsedArgs
	case "help", "-h", "--help":
		return CmdHelp, parsedArgs
	default:
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Global flags may appear anywhere on the line.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "--":
			remaining = append(remaining, args[i:]...)
			return remaining, parsedArgs
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--offline":
			parsedArgs.Offline = true
		case "--accounts":
			if i+1 < len(args) {
				i++
				parsedArgs.AccountsDir = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--accounts=") {
				parsedArgs.AccountsDir = strings.TrimPrefix(arg, "--accounts=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// HandleVersion prints version information, as JSON with --json.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		return NewJSONResponse("version", data).Print(w)
	}
	PrintVersion(w)
	return nil
}

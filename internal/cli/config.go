// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for sam.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display the effective configuration (API key redacted)
//   get <key>           Print one value
//   set <key> <value>   Set a value and save config.toml
//   reset --confirm     Reset to default configuration
//   path                Show configuration file path
//
// Examples:
//   sam config
//   sam config get storage.accounts_dir
//   sam config set storage.max_backups 50
//   sam config set ui.show_secrets true
//   sam config set offline true
//
// Values set through SAM_* environment variables are shown by "show" and
// "get" but never written by "set".

package cli

import (
	"fmt"
	"io"

	"github.com/samber/lo"

	"github.com/war100ck/Steam-Account-Manager/internal/config"
)

// redactedValue replaces secrets in config output.
const redactedValue = "[REDACTED]"

// HandleConfig dispatches config subcommands.
func HandleConfig(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "confirm", "yes")

	switch sub := p.Subcommand(); sub {
	case "", "show":
		return handleConfigShow(env, args)
	case "get":
		return handleConfigGet(env, args, p)
	case "set":
		return handleConfigSet(env, args, p)
	case "reset":
		return handleConfigReset(env, args, p)
	case "path":
		return handleConfigPath(env, args)
	default:
		return ErrUnknownSubcommand("config", sub, []string{"show", "get", "set", "reset", "path"})
	}
}

// displayValue renders a config value, hiding secrets.
func displayValue(key string, v interface{}) interface{} {
	if config.IsSecretKey(key) {
		if s, ok := v.(string); ok && s == "" {
			return ""
		}
		return redactedValue
	}
	return v
}

func configValues(cfg *config.Config) map[string]interface{} {
	return lo.SliceToMap(config.GetAllKeys(), func(key string) (string, interface{}) {
		v, err := cfg.Get(key)
		if err != nil {
			return key, nil
		}
		return key, displayValue(key, v)
	})
}

func handleConfigShow(env *Env, args Args) error {
	path, _ := config.ConfigPathTOML()
	values := configValues(env.Config)

	data := ConfigData{Path: path, Values: values}
	return env.emit(args.JSON, "config show", data, func(w io.Writer) {
		fmt.Fprintln(w, TitleStyle.Render("sam configuration"))
		fmt.Fprintln(w, DimStyle.Render(path))
		fmt.Fprintln(w, RenderSeparator())
		for _, key := range config.GetAllKeys() {
			fmt.Fprintf(w, "%-28s %v\n", key, values[key])
		}
	})
}

func handleConfigGet(env *Env, args Args, p *ArgParser) error {
	key := p.Positional(1)
	if key == "" {
		return ErrMissingArgument("key", "sam config get storage.accounts_dir")
	}
	v, err := env.Config.Get(key)
	if err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "sam config show"}
	}
	v = displayValue(key, v)

	return env.emit(args.JSON, "config get", map[string]interface{}{key: v}, func(w io.Writer) {
		fmt.Fprintln(w, v)
	})
}

func handleConfigSet(env *Env, args Args, p *ArgParser) error {
	key, value := p.Positional(1), p.Positional(2)
	if key == "" || p.PositionalCount() < 3 {
		return ErrMissingArgument("key and value", "sam config set storage.max_backups 50")
	}

	cfg, err := config.LoadForEdit()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "sam config show"}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return NewCommandError("config", "save config", "", err)
	}
	env.Logger.WithField("key", key).Info("config updated")

	shown := displayValue(key, value)
	return env.emit(args.JSON, "config set", map[string]interface{}{key: shown}, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s = %v\n", SuccessStyle.Render("[OK]"), key, shown)
	})
}

func handleConfigReset(env *Env, args Args, p *ArgParser) error {
	ok, err := env.confirm("reset the configuration to defaults", args, p)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(env.Err, "Cancelled.")
		return nil
	}

	cfg := config.Default()
	if err := config.Save(cfg); err != nil {
		return NewCommandError("config", "reset config", "", err)
	}
	return env.emit(args.JSON, "config reset", configValues(cfg), func(w io.Writer) {
		fmt.Fprintf(w, "%s Configuration reset to defaults\n", SuccessStyle.Render("[OK]"))
	})
}

func handleConfigPath(env *Env, args Args) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	dir, _ := config.ConfigDir()
	data := map[string]string{"config_path": path, "data_dir": dir}
	return env.emit(args.JSON, "config path", data, func(w io.Writer) {
		fmt.Fprintln(w, path)
	})
}

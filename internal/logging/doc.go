// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process logger.
//
// The TUI owns stdout, so log lines go to a JSON file (~/.sam/sam.log by
// default). Components take a *logrus.Entry scoped with a "component" field.
//
// # Usage
//
//	logger, closer, err := logging.Setup(logging.Options{Level: "info", Path: cfg.Log.Path})
//	defer closer.Close()
//	log := logging.Component(logger, "store")
package logging

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder for DecodeConfig
	_ "image/png"  // register decoder for DecodeConfig
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/war100ck/Steam-Account-Manager/internal/logging"
	"github.com/war100ck/Steam-Account-Manager/internal/steamapi"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// avatarExts lists the stored avatar formats, in lookup order.
var avatarExts = []string{".png", ".jpg"}

// ErrCorruptAvatar is returned for image data that does not decode.
var ErrCorruptAvatar = errors.New("avatar image is corrupt")

// CachedAvatar is an avatar file on disk.
type CachedAvatar struct {
	Path    string
	ModTime time.Time
	Width   int
	Height  int
}

// AvatarCache keeps one image per SteamID in a directory, named
// <steamid>.png or <steamid>.jpg.
type AvatarCache struct {
	dir string
	log *logrus.Entry
}

// NewAvatarCache uses dir, which is created on first save.
func NewAvatarCache(dir string, logger *logrus.Logger) *AvatarCache {
	return &AvatarCache{dir: dir, log: logging.Component(logger, "avatars")}
}

// Dir returns the avatar directory.
func (a *AvatarCache) Dir() string {
	return a.dir
}

// Load returns the cached avatar for steamID, or nil when there is none.
// Files that fail to decode are deleted and treated as missing.
func (a *AvatarCache) Load(steamID string) *CachedAvatar {
	for _, ext := range avatarExts {
		path := filepath.Join(a.dir, steamID+ext)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		cfg, err := decodeFile(path)
		if err != nil {
			a.log.WithError(err).WithField("steamid", steamID).Warn("removing corrupt cached avatar")
			_ = os.Remove(path)
			continue
		}
		return &CachedAvatar{Path: path, ModTime: info.ModTime(), Width: cfg.Width, Height: cfg.Height}
	}
	return nil
}

// Save validates and stores av, replacing an avatar of the other format.
func (a *AvatarCache) Save(steamID string, av *steamapi.Avatar) (string, error) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(av.Data)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptAvatar, err)
	}

	path := filepath.Join(a.dir, steamID+av.Ext)
	if err := util.AtomicWriteFile(path, av.Data, util.PrivateFilePerm); err != nil {
		return "", fmt.Errorf("failed to save avatar: %w", err)
	}
	for _, ext := range avatarExts {
		if ext != av.Ext {
			_ = os.Remove(filepath.Join(a.dir, steamID+ext))
		}
	}

	a.log.WithFields(logrus.Fields{"steamid": steamID, "bytes": len(av.Data)}).Debug("avatar cached")
	return path, nil
}

// Remove deletes any cached avatar for steamID.
func (a *AvatarCache) Remove(steamID string) {
	for _, ext := range avatarExts {
		_ = os.Remove(filepath.Join(a.dir, steamID+ext))
	}
}

func decodeFile(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}

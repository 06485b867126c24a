// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/pinata/internal/engine"
)

// watchSkipDirs mirrors the scanner's default denylist so edits in
// dependency trees never trigger a rescan.
var watchSkipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, "__pycache__": true, ".venv": true,
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Close()

	eng, _, err := newEngine(logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	dir := targetDir(args)
	opts := scanOptions()

	// Initial scan before watching.
	if err := scanAndRender(ctx, eng, dir, opts); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := addWatchDirs(watcher, dir); err != nil {
		return err
	}

	logger.Info("watching for changes", "dir", dir, "debounce_ms", debounceMillis)

	debounce := time.Duration(debounceMillis) * time.Millisecond
	var timer *time.Timer
	rescan := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need explicit registration.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !watchSkipDirs[filepath.Base(event.Name)] {
						_ = watcher.Add(event.Name)
					}
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case rescan <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-rescan:
			if err := scanAndRender(ctx, eng, dir, opts); err != nil {
				logger.Error("rescan failed", "error", err)
			}
		}
	}
}

func scanAndRender(ctx context.Context, eng *engine.Engine, dir string, opts engine.Options) error {
	result, err := eng.Scan(ctx, dir, opts)
	if err != nil {
		return err
	}
	if jsonOutput {
		return renderScanJSON(os.Stdout, result)
	}
	renderScanText(os.Stdout, result)
	return nil
}

// addWatchDirs registers every non-excluded directory under root.
// fsnotify watches are not recursive.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && watchSkipDirs[d.Name()] {
			return fs.SkipDir
		}
		return watcher.Add(path)
	})
}

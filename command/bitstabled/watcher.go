// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/fsnotify/fsnotify"

	"github.com/bitmark-inc/bitstable/configuration"
)

// wait for an editor to finish writing before reading the file
const defaultSettle = 2 * time.Second

// watcher - re-read the configuration file when it changes
//
// the directory is watched since editors often replace the file
type watcher struct {
	log       *logger.L
	watcher   *fsnotify.Watcher
	filePath  string
	variables map[string]string
	settle    time.Duration
	apply     func(configuration.Reloadable)
}

func newWatcher(fileName string, variables map[string]string, apply func(configuration.Reloadable)) (*watcher, error) {
	log := logger.New("watcher")

	filePath, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, err
	}
	if _, err := os.Stat(filePath); nil != err {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, err
	}
	if err := w.Add(filepath.Dir(filePath)); nil != err {
		w.Close()
		return nil, err
	}

	return &watcher{
		log:       log,
		watcher:   w,
		filePath:  filePath,
		variables: variables,
		settle:    defaultSettle,
		apply:     apply,
	}, nil
}

// Run - background process
func (w *watcher) Run(args interface{}, shutdown <-chan struct{}) {
	log := w.log
	log.Infof("starting… file: %q", w.filePath)

	// a nil channel blocks until a change arms the timer
	var settled <-chan time.Time

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case event, ok := <-w.watcher.Events:
			if !ok {
				break loop
			}
			if filepath.Clean(event.Name) != w.filePath {
				continue
			}
			log.Debugf("file event: %v", event)
			if isRemove(event) {
				log.Warn("config file removed")
				continue
			}
			if isChange(event) {
				settled = time.After(w.settle)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				break loop
			}
			log.Errorf("watch error: %s", err)

		case <-settled:
			settled = nil
			w.reload()
		}
	}

	log.Info("shutting down…")
	w.watcher.Close()
}

func (w *watcher) reload() {
	options, err := configuration.GetConfiguration(w.filePath, w.variables)
	if nil != err {
		w.log.Errorf("failed to read configuration from: %q  error: %s", w.filePath, err)
		return
	}
	r, err := options.Reloadable()
	if nil != err {
		w.log.Errorf("invalid configuration in: %q  error: %s", w.filePath, err)
		return
	}
	w.log.Info("configuration reloaded")
	w.apply(r)
}

func isRemove(event fsnotify.Event) bool {
	return event.Op&fsnotify.Remove == fsnotify.Remove ||
		event.Op&fsnotify.Rename == fsnotify.Rename
}

func isChange(event fsnotify.Event) bool {
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Chmod == fsnotify.Chmod
}

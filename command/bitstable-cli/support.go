// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/configuration"
)

// scratch directory for the log so the daemon's files are not touched
var logDirectory string

// replaceable so tests can keep their own logger
var (
	initialiseLogger = setupLogger
	finaliseLogger   = teardownLogger
)

// log to a private directory keeping the configured levels
func setupLogger(options *configuration.Configuration) error {
	directory, err := os.MkdirTemp("", "bitstable-cli-")
	if nil != err {
		return err
	}
	logDirectory = directory

	levels := options.Logging.Levels
	if 0 == len(levels) {
		levels = map[string]string{
			logger.DefaultTag: "critical",
		}
	}
	logging := logger.Configuration{
		Directory: directory,
		File:      "bitstable-cli.log",
		Size:      1048576,
		Count:     2,
		Console:   false,
		Levels:    levels,
	}
	return logger.Initialise(logging)
}

func teardownLogger() {
	logger.Finalise()
	if "" != logDirectory {
		os.RemoveAll(filepath.Clean(logDirectory))
	}
}

func printJson(handle io.Writer, message interface{}) error {

	b, err := json.MarshalIndent(message, "", "  ")
	if nil != err {
		return err
	}

	fmt.Fprintf(handle, "%s\n", b)
	return nil
}

func checkVaultID(s string) (uuid.UUID, error) {
	if "" == s {
		return uuid.Nil, fmt.Errorf("vault id is required")
	}
	return uuid.Parse(s)
}

func checkAccount(name string, s string) (account.Account, error) {
	if "" == s {
		return account.Account{}, fmt.Errorf("%s is required", name)
	}
	a, err := account.FromBase58(s)
	if nil != err {
		return account.Account{}, err
	}
	return *a, nil
}

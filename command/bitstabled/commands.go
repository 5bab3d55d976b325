// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bitmark-inc/exitwithstatus"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/configuration"
)

// setup command handler
//
// commands that run to create keys these commands cannot access any
// internal database or states or the configuration file
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {
	case "gen-account", "account":
		testnet := len(arguments) > 0 && "testnet" == arguments[0]
		a, privateKey, err := account.Generate(rand.Reader, testnet)
		if nil != err {
			fmt.Printf("generate account error: %s\n", err)
			exitwithstatus.Exit(1)
		}
		fmt.Printf("account: %s\n", a)
		fmt.Printf("seed:    %x\n", privateKey.Seed())

	case "gen-source-seed", "seed":
		a, privateKey, err := account.Generate(rand.Reader, false)
		if nil != err {
			fmt.Printf("generate source seed error: %s\n", err)
			exitwithstatus.Exit(1)
		}
		fmt.Printf("seed:       %s\n", hex.EncodeToString(privateKey.Seed()))
		fmt.Printf("public key: %x\n", a.PublicKey)

	case "start", "run":
		return false // continue processing

	case "config-test", "cfg":
		return false // defer processing until configuration is read

	case "version", "v":
		fmt.Printf("%s\n", version)
		return true

	default:
		switch command {
		case "help", "h", "?":
		case "", " ":
			fmt.Printf("error: missing command\n")
		default:
			fmt.Printf("error: no such command: %q\n", command)
		}
		fmt.Printf("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE [--define=KEY=VALUE...] [[command|help] arguments...]\n", program)

		fmt.Printf("supported commands:\n\n")
		fmt.Printf("  help                       (h)      - display this message\n\n")
		fmt.Printf("  version                    (v)      - display version sting\n\n")

		fmt.Printf("  gen-account [testnet]      (account) - create a liquidator or holder account\n")
		fmt.Printf("                                         and print its private seed\n")
		fmt.Printf("\n")

		fmt.Printf("  gen-source-seed            (seed)   - create a price source signing seed\n")
		fmt.Printf("\n")

		fmt.Printf("  start                      (run)    - just run the program, same as no arguments\n")
		fmt.Printf("                                        for convienience when passing script arguments\n")
		fmt.Printf("\n")

		fmt.Printf("  config-test                (cfg)    - just check the configuration file\n")
		fmt.Printf("\n")

		exitwithstatus.Exit(1)
	}

	// indicate processing complete and preform normal exit from main
	return true
}

// configuration file enquiry commands
// have configuration file read and decoded, but nothing else
func processConfigCommand(arguments []string, options *configuration.Configuration) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {
	case "config-test", "cfg":
		if _, err := options.Reloadable(); nil != err {
			exitwithstatus.Message("error: %s", err)
		}
		if _, err := options.Stability.StabilityPolicies(); nil != err {
			exitwithstatus.Message("error: %s", err)
		}
		if _, err := options.Registry(); nil != err {
			exitwithstatus.Message("error: %s", err)
		}

		b, err := json.Marshal(options)
		if err != nil {
			exitwithstatus.Message("error: %s", err)
		}
		var out bytes.Buffer
		json.Indent(&out, b, "", "  ")
		out.WriteTo(os.Stdout)
		os.Stdout.WriteString("\n")

	default: // unknown commands fall through
		return false
	}

	// indicate processing complete and perform normal exit from main
	return true
}

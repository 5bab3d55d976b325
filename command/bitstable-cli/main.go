// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/bitstable/configuration"
	"github.com/bitmark-inc/bitstable/system"
)

type metadata struct {
	file    string
	config  *configuration.Configuration
	system  *system.System
	verbose bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	app := newApp()
	err := app.Run(os.Args)
	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {

	app := cli.NewApp()
	app.Name = "bitstable-cli"
	app.Usage = "inspect a bitstabled event log offline"
	app.Version = version
	app.HideVersion = true

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.StringFlag{
			Name:  "config-file, c",
			Value: "",
			Usage: "*bitstabled configuration `FILE`",
		},
		cli.StringSliceFlag{
			Name:  "define, D",
			Usage: " configuration variable `KEY=VALUE`",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "dump",
			Usage:     "print event log records",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.Uint64Flag{
					Name:  "start, s",
					Value: 1,
					Usage: " first sequence number `NUMBER`",
				},
				cli.IntFlag{
					Name:  "count, n",
					Value: 20,
					Usage: " maximum records to output `COUNT`",
				},
				cli.StringFlag{
					Name:  "type, t",
					Value: "",
					Usage: " only records of `TYPE`",
				},
			},
			Action: runDump,
		},
		{
			Name:      "vaults",
			Usage:     "list vaults with their collateral ratio",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "owner, o",
					Value: "",
					Usage: " only vaults of `ACCOUNT`",
				},
				cli.BoolFlag{
					Name:  "all, a",
					Usage: " include closed and liquidated vaults",
				},
			},
			Action: runVaults,
		},
		{
			Name:      "vault",
			Usage:     "show one vault and its mint headroom",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "id, i",
					Value: "",
					Usage: "*vault `UUID`",
				},
			},
			Action: runVault,
		},
		{
			Name:      "balances",
			Usage:     "show stable balances and backing slices",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "holder, o",
					Value: "",
					Usage: "*holder `ACCOUNT`",
				},
			},
			Action: runBalances,
		},
		{
			Name:      "prices",
			Usage:     "show accepted prices and time weighted averages",
			ArgsUsage: "\n   (* = required)",
			Flags:     []cli.Flag{},
			Action:    runPrices,
		},
		{
			Name:      "sources",
			Usage:     "show price sources, bonds and scores",
			ArgsUsage: "\n   (* = required)",
			Flags:     []cli.Flag{},
			Action:    runSources,
		},
		{
			Name:      "liquidations",
			Usage:     "show pending and completed liquidations",
			ArgsUsage: "\n   (* = required)",
			Flags:     []cli.Flag{},
			Action:    runLiquidations,
		},
		{
			Name:      "risk",
			Usage:     "show system collateral ratio, concentration and alerts",
			ArgsUsage: "\n   (* = required)",
			Flags:     []cli.Flag{},
			Action:    runRisk,
		},
		{
			Name:      "redemptions",
			Usage:     "show redemption totals, daily limits and recent redemptions",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "count, n",
					Value: 20,
					Usage: " recent redemptions to output `COUNT`",
				},
			},
			Action: runRedemptions,
		},
		{
			Name:      "verify",
			Usage:     "replay the log and check ledger consistency",
			ArgsUsage: "\n   (* = required)",
			Flags:     []cli.Flag{},
			Action:    runVerify,
		},
		{
			Name:      "version",
			Usage:     "display bitstable-cli version",
			ArgsUsage: "",
			Action:    runVersion,
		},
	}

	// read the configuration and replay the log
	app.Before = func(c *cli.Context) error {

		e := c.App.ErrWriter
		w := c.App.Writer
		verbose := c.GlobalBool("verbose")

		// to suppress reading config file if certain commands
		command := c.Args().Get(0)
		if "" == command || "version" == command || "help" == command || "h" == command {
			return nil
		}

		file := c.GlobalString("config-file")
		if "" == file {
			return fmt.Errorf("config-file is required")
		}

		variables := make(map[string]string)
		for _, d := range c.GlobalStringSlice("define") {
			kv := strings.SplitN(d, "=", 2)
			if 2 != len(kv) || "" == kv[0] {
				return fmt.Errorf("define: %q is not KEY=VALUE", d)
			}
			variables[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}

		if verbose {
			fmt.Fprintf(e, "reading config file: %s\n", file)
		}

		options, err := configuration.GetConfiguration(file, variables)
		if nil != err {
			return err
		}

		if err := initialiseLogger(options); nil != err {
			return err
		}

		s, err := system.New(options, true)
		if nil != err {
			return err
		}

		c.App.Metadata["config"] = &metadata{
			file:    file,
			config:  options,
			system:  s,
			verbose: verbose,
			e:       e,
			w:       w,
		}
		return nil
	}

	// release the store
	app.After = func(c *cli.Context) error {
		m, ok := c.App.Metadata["config"].(*metadata)
		if !ok {
			return nil
		}
		m.system.Stop()
		finaliseLogger()
		return nil
	}

	return app
}

func runVersion(c *cli.Context) error {
	fmt.Fprintf(c.App.Writer, "%s\n", version)
	return nil
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package liquidation

import (
	"context"
	"time"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/background"
	"github.com/bitmark-inc/bitstable/fault"
)

type keeper struct {
	engine     *Engine
	interval   time.Duration
	liquidator account.Account
}

// Keeper - background process running a round at a fixed interval
func (e *Engine) Keeper(interval time.Duration, liquidator account.Account) background.Process {
	return &keeper{
		engine:     e,
		interval:   interval,
		liquidator: liquidator,
	}
}

func (k *keeper) Run(args interface{}, shutdown <-chan struct{}) {
	log := k.engine.log
	log.Info("starting…")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-ticker.C:
			_, err := k.engine.Round(ctx, k.liquidator)

			switch {
			case nil == err:
			case fault.LiquidationHalted == err:
				log.Debug("round skipped: halted")
			case fault.IsErrRetry(err) || fault.IsErrNotFound(err):
				log.Warnf("round skipped: %s", err)
			default:
				log.Errorf("round error: %s", err)
			}
		}
	}
	log.Info("shutting down…")
}

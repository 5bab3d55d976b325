// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package source

import (
	"context"
	"time"

	"github.com/bitmark-inc/logger"
	"golang.org/x/sync/errgroup"

	"github.com/bitmark-inc/bitstable/counter"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/oracle"
)

// maximum concurrent fetches
const maximumFetches = 8

// Poller - fetch every source each interval and submit the reports
type Poller struct {
	log       *logger.L
	sources   []Source
	submitter oracle.Submitter
	interval  time.Duration
	timeout   time.Duration

	fetched counter.Counter
	failed  counter.Counter
}

// NewPoller - create a poller for a fixed set of sources
func NewPoller(sources []Source, submitter oracle.Submitter, interval time.Duration, log *logger.L) (*Poller, error) {
	if nil == submitter || nil == log || interval <= 0 {
		return nil, fault.MissingParameters
	}
	return &Poller{
		log:       log,
		sources:   sources,
		submitter: submitter,
		interval:  interval,
		timeout:   interval,
	}, nil
}

// Poll - one concurrent round, returns the number of accepted prices
func (p *Poller) Poll(ctx context.Context) (int, error) {
	reports := make([]*oracle.Report, len(p.sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maximumFetches)

	for i, s := range p.sources {
		i, s := i, s
		g.Go(func() error {
			r, err := s.Fetch(ctx)
			if nil != err {
				if nil != ctx.Err() {
					return ctx.Err()
				}
				p.failed.Increment()
				p.log.Warnf("fetch: %s  error: %s", s.Name(), err)
				return nil
			}
			p.fetched.Increment()
			reports[i] = &r
			return nil
		})
	}
	if err := g.Wait(); nil != err {
		return 0, err
	}

	accepted := 0
	for _, r := range reports {
		if nil == r {
			continue
		}
		c, err := p.submitter.Submit(*r)
		switch {
		case nil != err && fault.IsErrLimit(err):
			p.log.Warnf("submit: %s  pair: %s  error: %s", r.Source, r.Pair, err)
		case nil != err:
			p.log.Errorf("submit: %s  pair: %s  error: %s", r.Source, r.Pair, err)
		case nil != c:
			accepted += 1
		}
	}
	return accepted, nil
}

// Statistics - fetch counts
func (p *Poller) Statistics() (fetched uint64, failed uint64) {
	return p.fetched.Uint64(), p.failed.Uint64()
}

// Run - background process
func (p *Poller) Run(args interface{}, shutdown <-chan struct{}) {
	log := p.log
	log.Infof("starting… sources: %d", len(p.sources))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-shutdown
		cancel()
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			tctx, tcancel := context.WithTimeout(ctx, p.timeout)
			n, err := p.Poll(tctx)
			tcancel()
			if nil != err && nil == ctx.Err() {
				log.Errorf("poll error: %s", err)
			} else if n > 0 {
				log.Debugf("accepted prices: %d", n)
			}
		}
	}
	log.Info("shutting down…")
	log.Info("finished")
}

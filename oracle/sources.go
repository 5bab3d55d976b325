// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package oracle

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/bitstable/counter"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// SlashKind - offence category
type SlashKind int

// offences and their bond penalty
const (
	SlashDeviation    SlashKind = iota + 1 // 10%
	SlashDowntime                          // 5%
	SlashManipulation                      // 100% and unbond
)

func (kind SlashKind) penalty() (decimal.Decimal, error) {
	switch kind {
	case SlashDeviation:
		return decimal.New(10, -2), nil
	case SlashDowntime:
		return decimal.New(5, -2), nil
	case SlashManipulation:
		return decimal.NewFromInt(1), nil
	default:
		return decimal.Zero, fault.InvalidSlashKind
	}
}

// String - for logs
func (kind SlashKind) String() string {
	switch kind {
	case SlashDeviation:
		return "deviation"
	case SlashDowntime:
		return "downtime"
	case SlashManipulation:
		return "manipulation"
	default:
		return "unknown"
	}
}

// SourceRecord - the externally visible state of a source, also the
// SourceChanged journal payload
type SourceRecord struct {
	ID        string            `json:"id"`
	PublicKey ed25519.PublicKey `json:"publicKey"`
	Bond      satoshi.Amount    `json:"bond"`
	Slashed   satoshi.Amount    `json:"slashed"`
	Bonded    bool              `json:"bonded"`
	Score     decimal.Decimal   `json:"score"`
	LastSeen  time.Time         `json:"lastSeen"`
	Reports   uint64            `json:"reports"`
	Outliers  uint64            `json:"outliers"`
}

type sourceState struct {
	id         string
	publicKey  ed25519.PublicKey
	bond       satoshi.Amount
	slashed    satoshi.Amount
	bonded     bool
	score      decimal.Decimal
	lastSeen   time.Time
	lastDecay  time.Time
	limiter    *rate.Limiter
	reports    counter.Counter
	outliers   counter.Counter
	registered time.Time
}

func (s *sourceState) record() SourceRecord {
	return SourceRecord{
		ID:        s.id,
		PublicKey: s.publicKey,
		Bond:      s.bond,
		Slashed:   s.slashed,
		Bonded:    s.bonded,
		Score:     s.score,
		LastSeen:  s.lastSeen,
		Reports:   s.reports.Uint64(),
		Outliers:  s.outliers.Uint64(),
	}
}

// exponentially decayed average towards sample
func (o *Oracle) sample(s *sourceState, sample decimal.Decimal) {
	one := decimal.NewFromInt(1)
	s.score = s.score.Mul(o.config.Decay).Add(sample.Mul(one.Sub(o.config.Decay))).Round(6)
}

// weight - min(1, score/good standing)
func (o *Oracle) weight(s *sourceState) decimal.Decimal {
	w := s.score.Div(o.config.GoodStanding)
	one := decimal.NewFromInt(1)
	if w.GreaterThan(one) {
		return one
	}
	return w
}

// Register - add a price source; a zero bond registers it unbonded
func (o *Oracle) Register(id string, publicKey ed25519.PublicKey, bond satoshi.Amount) error {
	if "" == id {
		return fault.MissingParameters
	}
	if ed25519.PublicKeySize != len(publicKey) {
		return fault.InvalidKeyLength
	}
	if bond < 0 {
		return fault.InvalidBond
	}

	o.Lock()
	defer o.Unlock()

	if _, ok := o.sources[id]; ok {
		return fault.SourceAlreadyRegistered
	}

	now := o.clock()
	s := &sourceState{
		id:         id,
		publicKey:  publicKey,
		bond:       bond,
		bonded:     bond > 0,
		score:      decimal.NewFromInt(1),
		lastSeen:   now,
		lastDecay:  now,
		limiter:    rate.NewLimiter(o.config.ReportRate, o.config.ReportBurst),
		registered: now,
	}
	o.sources[id] = s

	o.log.Infof("register source: %s  bond: %s", id, bond)
	return o.emitSource(s, now)
}

// Bond - top up a source's bond and mark it bonded
func (o *Oracle) Bond(id string, amount satoshi.Amount) error {
	if amount <= 0 {
		return fault.InvalidBond
	}

	o.Lock()
	defer o.Unlock()

	s, ok := o.sources[id]
	if !ok {
		return fault.SourceNotFound
	}
	s.bond += amount
	s.bonded = true

	o.log.Infof("bond source: %s  total: %s", id, s.bond)
	return o.emitSource(s, o.clock())
}

// Slash - apply a fixed penalty to a source's bond and score
//
// returns the amount removed from the bond
func (o *Oracle) Slash(id string, kind SlashKind) (satoshi.Amount, error) {
	penalty, err := kind.penalty()
	if nil != err {
		return 0, err
	}

	o.Lock()
	defer o.Unlock()

	s, ok := o.sources[id]
	if !ok {
		return 0, fault.SourceNotFound
	}
	if !s.bonded {
		return 0, fault.SourceNotBonded
	}

	amount := satoshi.FromBTC(s.bond.BTC().Mul(penalty))
	s.bond -= amount
	s.slashed += amount

	half := decimal.New(5, -1)
	s.score = s.score.Mul(decimal.NewFromInt(1).Sub(penalty.Mul(half))).Round(6)

	if penalty.Equal(decimal.NewFromInt(1)) || 0 == s.bond {
		s.bonded = false
	}

	o.log.Warnf("slash source: %s  for: %s  amount: %s  remaining: %s", id, kind, amount, s.bond)
	return amount, o.emitSource(s, o.clock())
}

// Source - state of one source
func (o *Oracle) Source(id string) (SourceRecord, error) {
	o.RLock()
	defer o.RUnlock()

	s, ok := o.sources[id]
	if !ok {
		return SourceRecord{}, fault.SourceNotFound
	}
	return s.record(), nil
}

// Sources - state of every source, sorted by id
func (o *Oracle) Sources() []SourceRecord {
	o.RLock()
	defer o.RUnlock()

	records := make([]SourceRecord, 0, len(o.sources))
	for _, s := range o.sources {
		records = append(records, s.record())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records
}

// Sweep - decay the score of every source silent for the timeout
//
// a silent source is decayed at most once per timeout period
func (o *Oracle) Sweep() int {
	now := o.clock()

	o.Lock()
	defer o.Unlock()

	n := 0
	for _, s := range o.sources {
		if !s.bonded {
			continue
		}
		if now.Sub(s.lastSeen) < o.config.SilenceTimeout || now.Sub(s.lastDecay) < o.config.SilenceTimeout {
			continue
		}
		o.sample(s, decimal.Zero)
		s.lastDecay = now
		n += 1

		o.log.Warnf("source: %s  silent since: %s  score: %s", s.id, s.lastSeen.Format(time.RFC3339), s.score)
		if err := o.emitSource(s, now); nil != err {
			o.log.Errorf("journal source: %s  error: %s", s.id, err)
		}
	}
	return n
}

// must hold the lock
func (o *Oracle) emitSource(s *sourceState, now time.Time) error {
	return o.sink.Emit(event.SourceChanged, now, s.record())
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package liquidation

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/position"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/vault"
)

// limits shared by every vault staged in one round
type round struct {
	now        time.Time
	snapshot   rates.Snapshot
	price      decimal.Decimal // BTC/USD
	liquidator account.Account
	limit      decimal.Decimal // USD
	seizedUSD  decimal.Decimal
	collateral satoshi.Amount // system collateral at the start of the round
}

func (e *Engine) begin(liquidator account.Account) (*round, error) {
	now := e.clock()

	e.Lock()
	config := e.config
	halted := e.halted(now)
	e.Unlock()
	if halted {
		return nil, fault.LiquidationHalted
	}
	if liquidator.IsZero() {
		return nil, fault.InvalidAccount
	}

	snapshot := e.rates.Snapshot()
	if err := snapshot.Require(now, config.MaxPriceAge); nil != err {
		return nil, err
	}
	usd, err := snapshot.BTCPrice(currency.USD)
	if nil != err {
		return nil, err
	}

	supply := decimal.Zero
	for _, c := range currency.All() {
		amount := e.positions.TotalSupply(c)
		if 0 == amount {
			continue
		}
		value, err := snapshot.ValueUSD(c, amount)
		if nil != err {
			e.log.Warnf("supply: %s %s  has no price: %s", c.FormatAmount(amount), c, err)
			continue
		}
		supply = supply.Add(value)
	}

	limit := supply.Mul(config.RoundSupplyFraction)
	if limit.GreaterThan(config.RoundCap) {
		limit = config.RoundCap
	}

	return &round{
		now:        now,
		snapshot:   snapshot,
		price:      usd.Price,
		liquidator: liquidator,
		limit:      limit,
		seizedUSD:  decimal.Zero,
		collateral: e.vaults.TotalCollateral(),
	}, nil
}

type candidate struct {
	id    uuid.UUID
	ratio vault.Ratio
}

// Round - one scan of every live vault against one price snapshot
//
// impaired vaults are staged most impaired first; locked vaults are
// skipped and vaults over a cap are deferred to a later round
func (e *Engine) Round(ctx context.Context, liquidator account.Account) (Report, error) {
	e.rounds.Increment()
	report := Report{}

	r, err := e.begin(liquidator)
	if fault.LiquidationHalted == err {
		report.Halted = true
	}
	if nil != err {
		return report, err
	}

	config := e.Config()
	candidates := make([]candidate, 0, 16)
	for _, v := range e.vaults.List() {
		if !v.State.IsLive() {
			continue
		}
		report.Evaluated += 1
		ratio, err := v.Ratio(r.snapshot)
		if nil != err {
			e.log.Warnf("vault: %s  cannot evaluate: %s", v.ID, err)
			report.Skipped += 1
			e.skipped.Increment()
			continue
		}
		if Safe != config.StageOf(ratio) {
			candidates = append(candidates, candidate{id: v.ID, ratio: ratio})
		}
	}
	report.Impaired = len(candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ratio.Cmp(candidates[j].ratio) < 0
	})

loop:
	for _, c := range candidates {
		if nil != ctx.Err() {
			break loop
		}
		p, err := e.stage(r, c.id)
		switch err {
		case nil:
			if nil == p {
				continue loop
			}
			report.Staged += 1
			report.Seized += p.Seized
			e.submit(ctx, p.Intent)

		case fault.VaultLocked, fault.LiquidationInFlight:
			e.log.Warnf("vault: %s  skipped: %s", c.id, err)
			report.Skipped += 1
			e.skipped.Increment()

		case fault.LiquidationCapExceeded:
			e.log.Warnf("vault: %s  ratio: %s  deferred: %s", c.id, c.ratio, err)
			report.Deferred += 1
			e.deferred.Increment()

		case fault.LiquidationHalted:
			report.Halted = true
			report.Deferred += 1
			e.deferred.Increment()
			break loop

		case fault.InsufficientBalance:
			e.log.Warnf("vault: %s  liquidator cannot cover debt", c.id)
			report.Skipped += 1
			e.skipped.Increment()

		default:
			e.log.Errorf("vault: %s  stage error: %s", c.id, err)
			report.Skipped += 1
			e.skipped.Increment()
		}
	}

	if report.Impaired > 0 {
		e.log.Infof("round: evaluated: %d  impaired: %d  staged: %d  deferred: %d  skipped: %d  seized: %s",
			report.Evaluated, report.Impaired, report.Staged, report.Deferred, report.Skipped, report.Seized)
	}
	return report, nil
}

// Liquidate - stage one vault outside a scan
func (e *Engine) Liquidate(ctx context.Context, id uuid.UUID, liquidator account.Account) (*Pending, error) {
	r, err := e.begin(liquidator)
	if nil != err {
		return nil, err
	}
	p, err := e.stage(r, id)
	if nil != err {
		if fault.LiquidationCapExceeded == err {
			e.deferred.Increment()
		}
		return nil, err
	}
	if nil == p {
		return nil, nil
	}
	e.submit(ctx, p.Intent)

	c := p.clone()
	return &c, nil
}

// stage one vault under its lock; returns nil when it is not impaired
func (e *Engine) stage(r *round, id uuid.UUID) (*Pending, error) {
	var staged *Pending
	_, err := e.vaults.BeginLiquidation(id, func(v vault.Vault) (bool, error) {
		p, err := e.plan(r, v)
		if nil != err || nil == p {
			return false, err
		}
		staged = p
		return true, nil
	})
	if nil != err {
		return nil, err
	}
	if nil != staged {
		e.staged.Increment()
		e.log.Infof("staged vault: %s  stage: %s  fraction: %s  seize: %s  bonus: %s  intent: %s",
			id, staged.Stage, staged.Fraction, staged.Seized, staged.Bonus, staged.Intent)
	}
	return staged, nil
}

// decide and reserve a seizure, runs under the vault lock
func (e *Engine) plan(r *round, v vault.Vault) (*Pending, error) {
	ratio, err := v.Ratio(r.snapshot)
	if nil != err {
		return nil, err
	}

	e.Lock()
	defer e.Unlock()

	config := e.config
	stage := config.StageOf(ratio)
	if Safe == stage {
		return nil, nil
	}
	if e.halted(r.now) {
		return nil, fault.LiquidationHalted
	}

	fraction := stage.Fraction()
	full := Full == stage
	if !full || !config.FullExempt {
		allowance := config.VaultFraction.Sub(e.vaultWindow(v.ID).total(r.now, config.VaultWindow))
		if !allowance.IsPositive() {
			return nil, fault.LiquidationCapExceeded
		}
		if fraction.GreaterThan(allowance) {
			fraction = allowance
			full = false
		}
	}

	currencies := v.Currencies()
	cleared := make(map[currency.Currency]currency.Amount, len(currencies))
	clearedUSD := decimal.Zero
	for _, c := range currencies {
		amount := v.Debt[c]
		if !full {
			amount = currency.Amount(decimal.NewFromInt(int64(amount)).Mul(fraction).Floor().IntPart())
		}
		if amount <= 0 {
			continue
		}
		value, err := r.snapshot.ValueUSD(c, amount)
		if nil != err {
			return nil, err
		}
		cleared[c] = amount
		clearedUSD = clearedUSD.Add(value)
	}
	if 0 == len(cleared) {
		return nil, nil
	}

	gamma := config.BonusRate(e.volume.total(r.now, config.VolumeWindow).Add(clearedUSD))
	debtBTC := clearedUSD.Div(r.price)
	equivalent := satoshi.FromBTCCeil(debtBTC)
	seized := satoshi.FromBTC(debtBTC.Mul(decimal.New(1, 0).Add(gamma)))
	if seized > v.Collateral {
		seized = v.Collateral
	}
	bonus := seized - equivalent
	if bonus < 0 {
		bonus = 0
	}

	seizedUSD := seized.Value(r.price)
	if r.seizedUSD.Add(seizedUSD).GreaterThan(r.limit) {
		return nil, fault.LiquidationCapExceeded
	}

	recent := e.seized.total(r.now, config.HaltWindow).Add(seized.BTC())
	if recent.GreaterThan(r.collateral.BTC().Mul(config.HaltFraction)) {
		e.trigger(r.now, "seizures within "+config.HaltWindow.String()+" exceed "+config.HaltFraction.Shift(2).String()+"% of collateral")
		return nil, fault.LiquidationHalted
	}

	consumed := make(map[currency.Currency]position.Consumed, len(cleared))
	for _, c := range currencies {
		amount, ok := cleared[c]
		if !ok {
			continue
		}
		burned, err := e.positions.Burn(r.liquidator, c, amount)
		if nil != err {
			for k, back := range consumed {
				if err := e.positions.Restore(r.liquidator, k, back); nil != err {
					e.log.Criticalf("restore liquidator: %s %s  error: %s", k.FormatAmount(back.Total()), k, err)
				}
			}
			return nil, err
		}
		consumed[c] = burned
	}

	p := &Pending{
		Intent:     uuid.New(),
		Vault:      v.ID,
		Owner:      v.Owner,
		Liquidator: r.liquidator,
		Stage:      stage,
		Fraction:   fraction,
		Full:       full,
		Ratio:      ratio.Decimal(),
		Price:      r.price,
		Seized:     seized,
		Bonus:      bonus,
		BonusRate:  gamma,
		Cleared:    cleared,
		ClearedUSD: clearedUSD,
		Consumed:   consumed,
		Staged:     r.now,
		Status:     Staged,
	}
	e.track(p)
	r.seizedUSD = r.seizedUSD.Add(seizedUSD)

	e.emit(event.LiquidationStaged, p.clone())
	return p, nil
}

// hand a staged seizure to custody outside every lock
func (e *Engine) submit(ctx context.Context, intent uuid.UUID) error {
	e.Lock()
	p, ok := e.pending[intent]
	if !ok {
		e.Unlock()
		return fault.PendingLiquidationNotFound
	}
	request := p.clone()
	timeout := e.config.SettlementTimeout
	e.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	id, err := e.custody.EscrowSeize(ctx, request.Intent, request.Vault, request.Seized, request.Liquidator)

	e.Lock()
	defer e.Unlock()
	p, ok = e.pending[intent]
	if !ok {
		return nil // settled while submitting
	}
	p.Attempts += 1
	if nil != err {
		p.Status = Failed
		p.Reason = err.Error()
		e.emit(event.LiquidationFailed, p.failure())
		e.failures.Increment()
		e.log.Criticalf("seize intent: %s  vault: %s  submit error: %s", intent, p.Vault, err)
		return fault.SettlementFailed
	}
	if Staged == p.Status {
		p.Status = Submitted
	}
	p.Settlement = id
	return nil
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stability

import (
	"sort"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/vault"
)

// Vaults - the vault ledger operations a portfolio needs
type Vaults interface {
	Get(id uuid.UUID) (vault.Vault, error)
	Headroom(id uuid.UUID, c currency.Currency) (currency.Amount, error)
}

// Balances - stable balances by holder
type Balances interface {
	Balance(holder account.Account, c currency.Currency) currency.Amount
}

// Parameters - per currency settings
type Parameters interface {
	Get(c currency.Currency) (currency.Parameters, error)
}

// Decision - an action for one policy
type Decision struct {
	Holder account.Account `json:"holder"`
	Vault  uuid.UUID       `json:"vault"`
	Action Action          `json:"action"`
}

type key struct {
	holder   string
	currency currency.Currency
}

// Portfolio - the policies of many holders
type Portfolio struct {
	sync.RWMutex

	log        *logger.L
	vaults     Vaults
	balances   Balances
	rates      rates.Reader
	parameters Parameters
	maxAge     time.Duration
	clock      func() time.Time
	holdings   *Holdings

	policies map[key]Policy
}

// NewPortfolio - an empty portfolio
func NewPortfolio(vaults Vaults, balances Balances, reader rates.Reader, parameters Parameters, maxAge time.Duration, clock func() time.Time, log *logger.L) (*Portfolio, error) {
	if nil == vaults || nil == balances || nil == reader || nil == parameters || nil == log {
		return nil, fault.MissingParameters
	}
	if maxAge <= 0 {
		return nil, fault.InvalidCount
	}
	if nil == clock {
		clock = time.Now
	}
	return &Portfolio{
		log:        log,
		vaults:     vaults,
		balances:   balances,
		rates:      reader,
		parameters: parameters,
		maxAge:     maxAge,
		clock:      clock,
		holdings:   NewHoldings(),
		policies:   make(map[key]Policy),
	}, nil
}

// Holdings - BTC balances held outside the vaults
func (p *Portfolio) Holdings() *Holdings {
	return p.holdings
}

func keyOf(holder account.Account, c currency.Currency) key {
	return key{holder: holder.String(), currency: c}
}

// Set - add or replace the policy for a holder and currency
func (p *Portfolio) Set(policy Policy) error {
	if err := policy.validate(); nil != err {
		return err
	}
	p.Lock()
	p.policies[keyOf(policy.Holder, policy.Currency)] = policy
	p.Unlock()
	p.log.Infof("policy holder: %s  currency: %s  vault: %s", policy.Holder.String(), policy.Currency, policy.Vault)
	return nil
}

// Remove - drop a policy
func (p *Portfolio) Remove(holder account.Account, c currency.Currency) error {
	k := keyOf(holder, c)
	p.Lock()
	defer p.Unlock()
	if _, ok := p.policies[k]; !ok {
		return fault.PolicyNotFound
	}
	delete(p.policies, k)
	return nil
}

// Get - the policy for a holder and currency
func (p *Portfolio) Get(holder account.Account, c currency.Currency) (Policy, error) {
	p.RLock()
	defer p.RUnlock()
	policy, ok := p.policies[keyOf(holder, c)]
	if !ok {
		return Policy{}, fault.PolicyNotFound
	}
	return policy, nil
}

// Policies - every policy ordered by holder then currency; a non-nil
// holder restricts the list to that holder
func (p *Portfolio) Policies(holder *account.Account) []Policy {
	p.RLock()
	l := make([]Policy, 0, len(p.policies))
	for k, policy := range p.policies {
		if nil != holder && k.holder != holder.String() {
			continue
		}
		l = append(l, policy)
	}
	p.RUnlock()

	sort.Slice(l, func(i, j int) bool {
		hi, hj := l[i].Holder.String(), l[j].Holder.String()
		if hi == hj {
			return l[i].Currency < l[j].Currency
		}
		return hi < hj
	})
	return l
}

// Evaluate - the action for one holder and currency
func (p *Portfolio) Evaluate(holder account.Account, c currency.Currency) (Action, error) {
	policy, err := p.Get(holder, c)
	if nil != err {
		return Action{}, err
	}
	return p.evaluate(policy)
}

func (p *Portfolio) evaluate(policy Policy) (Action, error) {
	none := Action{Kind: None, Currency: policy.Currency}
	if !policy.Enabled {
		return none, nil
	}

	v, err := p.vaults.Get(policy.Vault)
	if nil != err {
		return none, err
	}
	if v.Owner.String() != policy.Holder.String() {
		return none, fault.InvalidAccount
	}
	params, err := p.parameters.Get(policy.Currency)
	if nil != err {
		return none, err
	}

	in := Inputs{
		Balance:     p.balances.Balance(policy.Holder, policy.Currency),
		MinimumMint: params.MinimumMint,
	}
	if policy.Target.IsPercentage() {
		btc, ok := p.holdings.BTCBalance(policy.Holder)
		if !ok {
			// no recorded balance: the vault collateral is the holder's BTC
			btc = v.Collateral
		}
		in.BTC = btc

		snapshot := p.rates.Snapshot()
		if err := snapshot.Require(p.clock(), p.maxAge, policy.Currency); nil != err {
			return none, err
		}
		entry, err := snapshot.BTCPrice(policy.Currency)
		if nil != err {
			return none, err
		}
		in.Price = entry.Price
	}

	if policy.Desired(in) > in.Balance && params.Enabled && policy.Deviates(in) {
		headroom, err := p.vaults.Headroom(policy.Vault, policy.Currency)
		if nil != err {
			return none, err
		}
		in.Headroom = headroom
	}

	action := policy.Evaluate(in)
	p.log.Debugf("evaluate holder: %s  currency: %s  balance: %s  desired: %s  action: %s",
		policy.Holder.String(), policy.Currency, policy.Currency.FormatAmount(in.Balance),
		policy.Currency.FormatAmount(policy.Desired(in)), action)
	return action, nil
}

// EvaluateAll - every action that is not None, in policy order;
// policies that cannot be evaluated are logged and skipped
func (p *Portfolio) EvaluateAll() []Decision {
	decisions := make([]Decision, 0, 8)
	for _, policy := range p.Policies(nil) {
		action, err := p.evaluate(policy)
		if nil != err {
			p.log.Warnf("holder: %s  currency: %s  cannot evaluate: %s", policy.Holder.String(), policy.Currency, err)
			continue
		}
		if None == action.Kind {
			continue
		}
		decisions = append(decisions, Decision{
			Holder: policy.Holder,
			Vault:  policy.Vault,
			Action: action,
		})
	}
	return decisions
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package liquidation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type sample struct {
	at     time.Time
	intent uuid.UUID
	value  decimal.Decimal
}

// rolling sum over a fixed period, samples are added in time order
type window struct {
	samples []sample
}

func (w *window) add(at time.Time, intent uuid.UUID, value decimal.Decimal) {
	w.samples = append(w.samples, sample{at: at, intent: intent, value: value})
}

func (w *window) remove(intent uuid.UUID) {
	for i, s := range w.samples {
		if intent == s.intent {
			w.samples = append(w.samples[:i], w.samples[i+1:]...)
			return
		}
	}
}

// sum of samples newer than now-period, older samples are dropped
func (w *window) total(now time.Time, period time.Duration) decimal.Decimal {
	cutoff := now.Add(-period)
	n := 0
	for n < len(w.samples) && !w.samples[n].at.After(cutoff) {
		n += 1
	}
	w.samples = w.samples[n:]

	total := decimal.Zero
	for _, s := range w.samples {
		total = total.Add(s.value)
	}
	return total
}

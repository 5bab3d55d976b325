// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package position - stable balances as ordered vault backed slices
//
// each holder has one book per currency; a book is a sequence of
// slices, oldest first, and the sum of the slices is the balance.
// Every slice names the vault whose debt issued it, so
//
//   Σ slices backed by V in K  ≤  debt(V, K)
//
// burns and transfers always consume the oldest slices first and a
// partially consumed slice keeps its place at the head of the book.
package position

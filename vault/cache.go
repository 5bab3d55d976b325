// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

// Cache - read-through copies of vaults
type Cache interface {
	Get(uuid.UUID) (Vault, bool)
	Set(Vault)
	Invalidate(uuid.UUID)
	Clear()
}

type vaultCache struct {
	cache  *cache.Cache
	expiry time.Duration
}

// NewCache - a cache whose entries live for expiry
func NewCache(expiry time.Duration) Cache {
	return &vaultCache{
		cache:  cache.New(expiry, 2*expiry),
		expiry: expiry,
	}
}

func (c *vaultCache) Get(id uuid.UUID) (Vault, bool) {
	obj, found := c.cache.Get(id.String())
	if !found {
		return Vault{}, false
	}
	return obj.(Vault).Clone(), true
}

func (c *vaultCache) Set(v Vault) {
	c.cache.Set(v.ID.String(), v.Clone(), c.expiry)
}

func (c *vaultCache) Invalidate(id uuid.UUID) {
	c.cache.Delete(id.String())
}

func (c *vaultCache) Clear() {
	c.cache.Flush()
}

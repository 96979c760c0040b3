package repository

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache is an in-process, size-bounded cache with per-entry expiry.
type LRUCache struct {
	lru *expirable.LRU[string, string]
}

func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *LRUCache) Get(key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache) Set(key string, value string) error {
	c.lru.Add(key, value)
	return nil
}

func (c *LRUCache) Len() int {
	return c.lru.Len()
}

package drawing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/GreenHydrogen/H2-Backend/internal/geo"
)

const (
	DefaultCacheSize = 16
	DefaultCacheTTL  = 30 * time.Minute
)

// ResultCache memoizes analysis results per polygon for one session.
// Entries expire after the TTL; Purge and RetainOnly invalidate explicitly.
type ResultCache[V any] struct {
	lru *expirable.LRU[string, V]
}

func NewResultCache[V any](size int, ttl time.Duration) *ResultCache[V] {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

func (c *ResultCache[V]) Get(key string) (V, bool) { return c.lru.Get(key) }

func (c *ResultCache[V]) Put(key string, v V) { c.lru.Add(key, v) }

func (c *ResultCache[V]) Remove(key string) { c.lru.Remove(key) }

func (c *ResultCache[V]) Len() int { return c.lru.Len() }

func (c *ResultCache[V]) Purge() { c.lru.Purge() }

// RetainOnly drops every entry except key.
func (c *ResultCache[V]) RetainOnly(key string) {
	for _, k := range c.lru.Keys() {
		if k != key {
			c.lru.Remove(k)
		}
	}
}

// Fingerprint identifies a polygon by its open ring at micro-degree
// precision, so closing the ring does not change the key.
func Fingerprint(p geo.Polygon) string {
	var b strings.Builder
	for _, v := range p.Open() {
		fmt.Fprintf(&b, "%.6f,%.6f;", v.Lat, v.Lng)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

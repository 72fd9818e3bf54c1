package story

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 24 * time.Hour
)

// Cache keeps generated stories keyed by normalized prompt. Images are never
// cached; callers attach fresh ones to a copy.
type Cache struct {
	lru *expirable.LRU[string, GameData]
}

func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{lru: expirable.NewLRU[string, GameData](size, nil, ttl)}
}

func (c *Cache) Get(prompt string) (*GameData, bool) {
	g, ok := c.lru.Get(cacheKey(prompt))
	if !ok {
		return nil, false
	}
	g.Images = nil
	return &g, true
}

func (c *Cache) Add(prompt string, g *GameData) {
	v := *g
	v.Images = nil
	c.lru.Add(cacheKey(prompt), v)
}

func (c *Cache) Len() int { return c.lru.Len() }

func cacheKey(prompt string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

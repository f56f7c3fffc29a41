package query

import (
	"sync"

	"github.com/cloudwego/eino/components/model"

	"github.com/maheshLEO4/public-chat-go/internal/tenant"
)

// handle is the prepared per-tenant query context: the resolved collection
// name, the assembled system block, and the generation options derived from
// the tenant's settings. Its identity is pure given the cache key, so it is
// safe to reuse across requests for the same bot.
type handle struct {
	collection  string
	systemBlock string
	genOpts     []model.Option
}

// handleKey identifies a handle. Any field change produces a different key
// and therefore a rebuilt handle.
type handleKey struct {
	ownerID      string
	botID        string
	systemPrompt string
	temperature  float32
}

// handleCache memoizes handles per (owner, bot). A lookup whose key differs
// from the cached entry's key in any field replaces the entry, so a tenant
// editing their system prompt or temperature takes effect on the next query.
type handleCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	key    handleKey
	handle *handle
}

func newHandleCache() *handleCache {
	return &handleCache{entries: make(map[string]cacheEntry)}
}

// get returns the cached handle for key, building and storing one via build
// on miss or key change.
func (c *handleCache) get(key handleKey, build func(handleKey) *handle) *handle {
	slot := key.ownerID + "\x00" + key.botID

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[slot]; ok && entry.key == key {
		return entry.handle
	}
	h := build(key)
	c.entries[slot] = cacheEntry{key: key, handle: h}
	return h
}

// buildHandle constructs the handle for a key: collection from the tenant
// namer, system block from the tenant prompt plus the fixed grounding
// instructions, and generation options from the tenant temperature.
func buildHandle(key handleKey, maxTokens int) *handle {
	return &handle{
		collection:  tenant.CollectionName(key.ownerID, key.botID),
		systemBlock: buildSystemBlock(key.systemPrompt),
		genOpts: []model.Option{
			model.WithTemperature(key.temperature),
			model.WithMaxTokens(maxTokens),
		},
	}
}

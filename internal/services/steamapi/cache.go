package steamapi

import (
	"context"
	"sync"
)

// AppInfo is the subset of steamcmd.net app info the emulator uses.
type AppInfo struct {
	Depots    map[string]any    `json:"depots"`
	Languages map[string]string `json:"-"`
}

// InfoCache holds app info per app id for the lifetime of one run. Each app id
// is fetched at most once on success; failed loads are not cached.
type InfoCache struct {
	mu      sync.Mutex
	entries map[string]*AppInfo
}

// NewInfoCache returns an empty cache.
func NewInfoCache() *InfoCache {
	return &InfoCache{entries: make(map[string]*AppInfo)}
}

// Get returns the cached info for appID, calling load to populate it on a miss.
func (c *InfoCache) Get(ctx context.Context, appID string, load func(context.Context) (*AppInfo, error)) (*AppInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if info, ok := c.entries[appID]; ok {
		return info, nil
	}
	info, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.entries[appID] = info
	return info, nil
}

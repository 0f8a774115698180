package artifacts

import (
	"maps"
	"slices"
	"sync"
)

// Cache holds the artifact locations of one file's completed pages
type Cache struct {
	mu      sync.RWMutex
	locator Locator
	fileID  string
	pages   map[int]string
}

// NewCache creates an empty cache
func NewCache(locator Locator) *Cache {
	return &Cache{
		locator: locator,
		pages:   make(map[int]string),
	}
}

// Register records the location of a completed page. Registering a page of
// another file drops the entries of the previous one.
func (c *Cache) Register(fileID string, page int) string {
	loc := c.locator.Location(fileID, page)

	c.mu.Lock()
	defer c.mu.Unlock()

	if fileID != c.fileID {
		c.fileID = fileID
		c.pages = make(map[int]string)
	}
	c.pages[page] = loc
	return loc
}

// Rehydrate replaces the cache contents with locations derived for pages
func (c *Cache) Rehydrate(fileID string, pages []int) {
	next := make(map[int]string, len(pages))
	for _, p := range pages {
		next[p] = c.locator.Location(fileID, p)
	}

	c.mu.Lock()
	c.fileID = fileID
	c.pages = next
	c.mu.Unlock()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	c.fileID = ""
	c.pages = make(map[int]string)
	c.mu.Unlock()
}

// Get returns the location of page
func (c *Cache) Get(page int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	loc, ok := c.pages[page]
	return loc, ok
}

// Len returns the number of cached pages
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}

// FileID returns the file the cache currently belongs to
func (c *Cache) FileID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fileID
}

// Pages returns the cached page numbers in ascending order
func (c *Cache) Pages() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.pages))
}

// Snapshot returns a copy of the page to location mapping
func (c *Cache) Snapshot() map[int]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.pages)
}

// Locator returns the locator used to derive locations
func (c *Cache) Locator() Locator {
	return c.locator
}

package utils

import "sync"

// URLTracker remembers hotel links already collected for a city, so a card
// that shows up twice while scrolling is only kept once.
type URLTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewURLTracker creates a new tracker
func NewURLTracker() *URLTracker {
	return &URLTracker{seen: make(map[string]struct{})}
}

// Add returns true if the URL is new. Empty URLs are never tracked and always
// count as new.
func (t *URLTracker) Add(url string) bool {
	if url == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.seen[url]; exists {
		return false
	}
	t.seen[url] = struct{}{}
	return true
}

// Reset forgets every tracked URL.
func (t *URLTracker) Reset() {
	t.mu.Lock()
	t.seen = make(map[string]struct{})
	t.mu.Unlock()
}

// Count returns the number of tracked URLs
func (t *URLTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

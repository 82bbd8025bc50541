package filter

import (
	"slices"
	"strings"
	"sync"
)

// MemoryFilter implements Filter with a map.
type MemoryFilter struct {
	addresses map[string]struct{}
	mu        sync.RWMutex
}

// NewMemoryFilter creates a filter tracking addresses. Blank entries are ignored.
func NewMemoryFilter(addresses ...string) *MemoryFilter {
	f := &MemoryFilter{addresses: make(map[string]struct{}, len(addresses))}
	f.AddBatch(addresses)
	return f
}

func (f *MemoryFilter) Contains(address string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, exists := f.addresses[address]
	return exists
}

// MatchAny reports whether any of addresses is tracked.
func (f *MemoryFilter) MatchAny(addresses ...string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, a := range addresses {
		if _, ok := f.addresses[a]; ok {
			return true
		}
	}
	return false
}

func (f *MemoryFilter) Add(address string) {
	f.AddBatch([]string{address})
}

func (f *MemoryFilter) AddBatch(addresses []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, addr := range addresses {
		if addr = strings.TrimSpace(addr); addr != "" {
			f.addresses[addr] = struct{}{}
		}
	}
}

func (f *MemoryFilter) Remove(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.addresses, address)
}

func (f *MemoryFilter) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.addresses)
}

// Addresses returns the tracked addresses, sorted.
func (f *MemoryFilter) Addresses() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]string, 0, len(f.addresses))
	for addr := range f.addresses {
		result = append(result, addr)
	}
	slices.Sort(result)
	return result
}

// Package filter tracks the set of addresses subscribers asked to follow.
package filter

// Filter reports whether an address is tracked. TRON base58 addresses are
// case sensitive and are matched exactly.
type Filter interface {
	Contains(address string) bool
	Add(address string)
	AddBatch(addresses []string)
	Remove(address string)
	Size() int
}

package filter

import (
	"testing"
)

const (
	usdt   = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	wallet = "TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7"
)

func TestMemoryFilter(t *testing.T) {
	f := NewMemoryFilter(usdt, " ", "")

	if !f.Contains(usdt) {
		t.Errorf("Expected filter to contain %s", usdt)
	}
	if f.Contains("tr7nhqjekqxgtci8q8zy4pl8otszgjlj6t") {
		t.Error("Expected base58 matching to be case sensitive")
	}
	if f.Size() != 1 {
		t.Errorf("Expected blank entries to be ignored, got size %d", f.Size())
	}

	f.AddBatch([]string{wallet, " " + wallet + " "})
	if f.Size() != 2 {
		t.Errorf("Expected size to be 2, got %d", f.Size())
	}
	if !f.MatchAny("T000", wallet) {
		t.Error("Expected MatchAny to find the wallet")
	}
	if f.MatchAny() {
		t.Error("Expected MatchAny without input to be false")
	}

	f.Remove(usdt)
	if f.Contains(usdt) {
		t.Errorf("Expected filter not to contain %s after removal", usdt)
	}

	addrs := f.Addresses()
	if len(addrs) != 1 || addrs[0] != wallet {
		t.Errorf("Expected [%s], got %v", wallet, addrs)
	}
}

package throttle

import "time"

// Config holds the live-chain throttle settings.
type Config struct {
	// Window is how close to the head, in blocks, a block must be to be throttled
	Window uint64

	// Interval is the per-block sleep inside the window
	Interval time.Duration

	// HeadCacheTTL is how long a chain head lookup is reused (default: 3s)
	HeadCacheTTL time.Duration
}

// DefaultConfig matches TRON's 3s block time.
func DefaultConfig() Config {
	return Config{
		Window:       3,
		Interval:     3 * time.Second,
		HeadCacheTTL: 3 * time.Second,
	}
}

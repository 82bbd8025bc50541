package indexer

import (
	"fmt"
	"time"
)

// maxMillis is the largest 13-digit millisecond timestamp.
const maxMillis = 9_999_999_999_999

// minMillis is the timestamp of the first TRON mainnet block. Anything older,
// including a 10-digit seconds value, is not a header timestamp.
const minMillis = 1_529_891_469_000

// maxTimestampDivisions is how many times a header timestamp is scaled down by
// 1000. Covers microseconds and nanoseconds.
const maxTimestampDivisions = 2

// NormalizeTimestamp converts a header timestamp in ms, µs or ns into an instant.
func NormalizeTimestamp(ts int64) (time.Time, error) {
	if ts == 0 {
		return time.Time{}, ErrMissingTimestamp
	}
	for i := 0; i < maxTimestampDivisions && ts > maxMillis; i++ {
		ts /= 1000
	}
	if ts < minMillis {
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidTimestamp, ts)
	}
	return time.UnixMilli(ts).UTC(), nil
}

// Package clock adapts the injected clockwork clock to the unix seconds the
// lottery core works in.
package clock

import "github.com/jonboulle/clockwork"

// UnixSeconds reads c as unix seconds; readings before the epoch are 0.
func UnixSeconds(c clockwork.Clock) uint64 {
	secs := c.Now().Unix()
	if secs < 0 {
		return 0
	}
	return uint64(secs)
}

package lottery

import (
	"fmt"

	"custodial-lottery/internal/models"
)

const (
	DefaultCooldownSeconds   uint64 = 60
	AllowlistCooldownSeconds uint64 = 10
)

// CooldownPolicy returns the minimum number of seconds between two calls by
// the same identity.
type CooldownPolicy func(caller models.IdentityKey) uint64

// FixedCooldown applies the same cooldown to everyone.
func FixedCooldown(seconds uint64) CooldownPolicy {
	return func(models.IdentityKey) uint64 { return seconds }
}

// TieredCooldown gives allowlisted identities their own, usually shorter,
// cooldown.
func TieredCooldown(access *AccessControl, standard, allowlisted uint64) CooldownPolicy {
	return func(caller models.IdentityKey) uint64 {
		if access.Contains(caller) {
			return allowlisted
		}
		return standard
	}
}

// RateLimiter tracks the last accepted call per identity. The first call of
// an identity is always accepted.
type RateLimiter struct {
	lastCall map[models.IdentityKey]uint64
	cooldown CooldownPolicy
}

// NewRateLimiter returns a limiter with no recorded calls.
func NewRateLimiter(cooldown CooldownPolicy) *RateLimiter {
	return &RateLimiter{
		lastCall: make(map[models.IdentityKey]uint64),
		cooldown: cooldown,
	}
}

// Check does not mutate. A clock reading earlier than the stored call counts
// as no time elapsed.
func (r *RateLimiter) Check(caller models.IdentityKey, now uint64) error {
	last, seen := r.lastCall[caller]
	if !seen {
		return nil
	}
	var elapsed uint64
	if now > last {
		elapsed = now - last
	}
	if cooldown := r.cooldown(caller); elapsed < cooldown {
		return fmt.Errorf("%w: %s must wait %ds, %ds elapsed", ErrRateLimited, caller, cooldown, elapsed)
	}
	return nil
}

// Record stores now as the last accepted call of caller.
func (r *RateLimiter) Record(caller models.IdentityKey, now uint64) {
	r.lastCall[caller] = now
}

// CheckAndUpdate records now for caller if the call is allowed.
func (r *RateLimiter) CheckAndUpdate(caller models.IdentityKey, now uint64) error {
	if err := r.Check(caller, now); err != nil {
		return err
	}
	r.Record(caller, now)
	return nil
}

// LastCall returns the stored timestamp, 0 if caller was never seen.
func (r *RateLimiter) LastCall(caller models.IdentityKey) uint64 {
	return r.lastCall[caller]
}

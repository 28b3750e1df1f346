package cache

import (
	"context"
	"time"
)

// Denylist records revoked token ids until the token would have expired.
type Denylist struct {
	store TTLStore
}

// NewDenylist creates a Denylist over store.
func NewDenylist(store TTLStore) *Denylist {
	return &Denylist{store: store}
}

// Revoke marks jti as revoked for ttl. Non-positive ttls are ignored since
// the token has already expired.
func (d *Denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return d.store.SetWithExpiry(ctx, "jwt:revoked:"+jti, "1", ttl)
}

// IsRevoked reports whether jti has been revoked.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	return d.store.Exists(ctx, "jwt:revoked:"+jti)
}

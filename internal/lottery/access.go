package lottery

import (
	"bytes"
	"fmt"
	"slices"

	"custodial-lottery/internal/models"
)

// AccessControl holds the admin identity and the allowlist. Membership in the
// allowlist does not make an identity admin.
type AccessControl struct {
	admin models.IdentityKey
	acl   map[models.IdentityKey]struct{}
}

// NewAccessControl returns access control with no admin and an empty allowlist.
func NewAccessControl() *AccessControl {
	return &AccessControl{acl: make(map[models.IdentityKey]struct{})}
}

// Admin returns the admin identity, the default identity before initialization.
func (a *AccessControl) Admin() models.IdentityKey {
	return a.admin
}

func (a *AccessControl) setAdmin(admin models.IdentityKey) {
	a.admin = admin
}

// ValidateAdmin accepts the admin, or anyone while the admin is still the
// unset sentinel.
func (a *AccessControl) ValidateAdmin(caller models.IdentityKey) error {
	if caller != a.admin && !a.admin.IsDefault() {
		return fmt.Errorf("%w: %s is not the admin", ErrInvalidAdmin, caller)
	}
	return nil
}

// Add is idempotent.
func (a *AccessControl) Add(id models.IdentityKey) {
	a.acl[id] = struct{}{}
}

// Remove is idempotent.
func (a *AccessControl) Remove(id models.IdentityKey) {
	delete(a.acl, id)
}

// Contains reports whether id is allowlisted.
func (a *AccessControl) Contains(id models.IdentityKey) bool {
	_, ok := a.acl[id]
	return ok
}

// Privileged reports whether id may trigger the draw: the admin or any
// allowlisted identity.
func (a *AccessControl) Privileged(id models.IdentityKey) bool {
	return (!a.admin.IsDefault() && id == a.admin) || a.Contains(id)
}

// Members returns the allowlist in byte order.
func (a *AccessControl) Members() []models.IdentityKey {
	out := make([]models.IdentityKey, 0, len(a.acl))
	for id := range a.acl {
		out = append(out, id)
	}
	slices.SortFunc(out, func(x, y models.IdentityKey) int {
		return bytes.Compare(x[:], y[:])
	})
	return out
}

package threads

import (
	"github.com/commonwealth-im/commonwealth-api/src/api/types"
)

// Permissions holds the caller's derived flags for one request against
// one thread. Computed once, never persisted.
type Permissions struct {
	IsThreadOwner bool
	IsMod         bool
	IsAdmin       bool
	IsSuperAdmin  bool
}

func (p Permissions) any() bool {
	return p.IsThreadOwner || p.IsMod || p.IsAdmin || p.IsSuperAdmin
}

// ValidatePermissions passes if the caller holds at least one of the
// required flags, and returns ErrUnauthorized otherwise.
func ValidatePermissions(have, required Permissions) error {
	if required.IsThreadOwner && have.IsThreadOwner {
		return nil
	}
	if required.IsMod && have.IsMod {
		return nil
	}
	if required.IsAdmin && have.IsAdmin {
		return nil
	}
	if required.IsSuperAdmin && have.IsSuperAdmin {
		return nil
	}
	return ErrUnauthorized
}

// computePermissions derives the caller's flags from their verified
// addresses' roles in the thread's community.
func computePermissions(user *types.User, thread *types.Thread, ownedAddressIDs []uint32, roles []types.Role) Permissions {
	perms := Permissions{IsSuperAdmin: user != nil && user.IsAdmin}
	for _, id := range ownedAddressIDs {
		if id == thread.AddressID {
			perms.IsThreadOwner = true
			break
		}
	}
	for _, r := range roles {
		if r.CommunityID != thread.CommunityID {
			continue
		}
		switch r.Permission {
		case types.RoleModerator:
			perms.IsMod = true
		case types.RoleAdmin:
			perms.IsAdmin = true
		}
	}
	return perms
}

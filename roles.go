package auth

import (
	"strings"
)

// Role is the account's role
type Role string

const (
	// RoleSuperAdmin has unrestricted access to every branch and capability
	RoleSuperAdmin Role = "super_admin"
	// RoleBranchAdmin manages a single branch
	RoleBranchAdmin Role = "branch_admin"
	// RoleCounsellor is the faculty counsellor slot of a branch
	RoleCounsellor Role = "counsellor"
	// RoleChairperson is the student chairperson slot of a branch
	RoleChairperson Role = "chairperson"
	// RoleMember is a regular member of a branch
	RoleMember Role = "member"
	// RoleEditor edits chapter wide content, not bound to a branch
	RoleEditor Role = "editor"
)

// Roles lists every known role
var Roles = []Role{
	RoleSuperAdmin,
	RoleBranchAdmin,
	RoleCounsellor,
	RoleChairperson,
	RoleMember,
	RoleEditor,
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleBranchAdmin, RoleCounsellor, RoleChairperson, RoleMember, RoleEditor:
		return true
	default:
		return false
	}
}

// IsBranchScoped reports whether accounts with this role must be bound to a
// branch. Scoped accounts only ever see their own branch on list routes.
func (r Role) IsBranchScoped() bool {
	switch r {
	case RoleBranchAdmin, RoleCounsellor, RoleChairperson, RoleMember:
		return true
	default:
		return false
	}
}

// IsSuperAdmin is true for the super admin role
func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

func (r Role) String() string {
	return string(r)
}

// ParseRole normalizes and validates a role name
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrInvalidRole.Clone().WithMetadata(map[string]any{
			"role": s,
		})
	}
	return r, nil
}

// Slot is a branch leadership position bound to an account
type Slot string

const (
	SlotChairperson Slot = "chairperson"
	SlotCounsellor  Slot = "counsellor"
)

// Role returns the role granted to the holder of the slot
func (s Slot) Role() Role {
	switch s {
	case SlotChairperson:
		return RoleChairperson
	case SlotCounsellor:
		return RoleCounsellor
	default:
		return ""
	}
}

// IsValid checks the slot name
func (s Slot) IsValid() bool {
	return s == SlotChairperson || s == SlotCounsellor
}

// ParseSlot normalizes and validates a slot name
func ParseSlot(s string) (Slot, error) {
	slot := Slot(strings.ToLower(strings.TrimSpace(s)))
	if !slot.IsValid() {
		return "", ErrInvalidSlot.Clone().WithMetadata(map[string]any{
			"slot": s,
		})
	}
	return slot, nil
}

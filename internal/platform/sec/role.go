// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package sec

// # User Roles

// UserRole represents the coarse authorization level granted to an account.
//
// Signet deliberately stays out of the fine-grained permission business:
// downstream services interpret the role string however they need to.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "ADMIN"

	// Default role for standard registered users
	RoleUser UserRole = "USER"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {

	// Linear scale (10-40) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 40
	case RoleUser:
		return 10
	default:
		return 0
	}
}

package domain

import "time"

// Role is an admin's job function
type Role string

const (
	RoleSuperAdmin Role = "super_admin" // Every permission
	RoleManager    Role = "manager"
	RoleSupport    Role = "support"
	RoleFinance    Role = "finance"
	RoleViewer     Role = "viewer"
)

// Permission is a single admin capability
type Permission string

const (
	PermUsers        Permission = "users"
	PermAccounts     Permission = "accounts"
	PermTrades       Permission = "trades"
	PermFunds        Permission = "funds"
	PermTransactions Permission = "transactions"
	PermSettings     Permission = "settings"
	PermAdmins       Permission = "admins"
	PermAll          Permission = "all" // Grants every permission
)

// PermissionSet is a capability set
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from a list of permissions
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports membership of p, honouring the "all" capability
func (s PermissionSet) Has(p Permission) bool {
	if _, ok := s[PermAll]; ok {
		return true
	}
	_, ok := s[p]
	return ok
}

// Admin Model
type Admin struct {
	ID          uint         `gorm:"primaryKey" json:"id"`                        // Primary key
	Name        string       `gorm:"size:100;not null" json:"name"`               // Display name
	Email       string       `gorm:"uniqueIndex;size:255;not null" json:"email"`  // Unique email
	Role        Role         `gorm:"size:32;not null;default:viewer" json:"role"` // Role
	Permissions []Permission `gorm:"serializer:json" json:"permissions"`          // Granted capabilities
	IsActive    bool         `gorm:"not null;default:true" json:"is_active"`      // Deactivated admins are refused
	CreatedAt   time.Time    `json:"created_at"`                                  // Creation time
}

// Capabilities returns the admin's permissions as a set
func (a *Admin) Capabilities() PermissionSet {
	return NewPermissionSet(a.Permissions...)
}

// HasPermission reports whether the admin may perform actions guarded by p
func (a *Admin) HasPermission(p Permission) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	return a.Capabilities().Has(p)
}

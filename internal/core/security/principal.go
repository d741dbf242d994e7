package security

import (
	"slices"
	"strings"
)

// Role is the acting user's role as issued by the auth collaborator.
type Role string

const (
	RoleSuperadmin       Role = "superadmin"
	RoleWarehouseManager Role = "warehouse_manager"
	RoleCompanyManager   Role = "company_manager"
	RoleUser             Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleWarehouseManager, RoleCompanyManager, RoleUser:
		return true
	}
	return false
}

// AllWarehouses is the allow-list sentinel granting every warehouse.
const AllWarehouses = "all"

// Capability is a permission string carried by a principal.
type Capability string

const (
	CapabilityAdd      Capability = "inventory.add"
	CapabilityTransfer Capability = "inventory.transfer"
	CapabilityDispatch Capability = "inventory.dispatch"
	CapabilityDelete   Capability = "inventory.delete"
	CapabilityEdit     Capability = "inventory.edit"

	// CapabilityFullAccess and CapabilityAll subsume every other capability.
	CapabilityFullAccess Capability = "full_access"
	CapabilityAll        Capability = "all"
)

// Principal is a snapshot of the acting user.
// It is passed by value and never mutated by the ledger.
type Principal struct {
	UserID            string   `json:"userId"`
	Role              Role     `json:"role"`
	AllowedWarehouses []string `json:"allowedWarehouses"`
	Permissions       []string `json:"permissions"`
}

// HasAllWarehouses reports whether the allow-list carries the "all" sentinel.
func (p Principal) HasAllWarehouses() bool {
	return slices.ContainsFunc(p.AllowedWarehouses, func(w string) bool {
		return strings.EqualFold(w, AllWarehouses)
	})
}

// HasCapability reports whether the principal holds c.
func (p Principal) HasCapability(c Capability) bool {
	if p.Role == RoleSuperadmin {
		return true
	}
	for _, perm := range p.Permissions {
		switch Capability(perm) {
		case c, CapabilityFullAccess, CapabilityAll:
			return true
		}
	}
	return false
}

// warehouses returns the explicit allow-list without the sentinel and duplicates.
func (p Principal) warehouses() []string {
	out := make([]string, 0, len(p.AllowedWarehouses))
	for _, w := range p.AllowedWarehouses {
		w = strings.TrimSpace(w)
		if w == "" || strings.EqualFold(w, AllWarehouses) || slices.Contains(out, w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

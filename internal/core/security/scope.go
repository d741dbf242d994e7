// Package security provides authorization and access control for the ledger.
package security

import (
	"fmt"
	"slices"

	"stockledger/internal/core/apperror"
)

// Operation distinguishes read paths from stock-mutating paths.
type Operation int

const (
	OperationRead Operation = iota
	OperationWrite
)

func (o Operation) String() string {
	if o == OperationWrite {
		return "write"
	}
	return "read"
}

// ScopeKind tags a Scope.
type ScopeKind int

const (
	// ScopeUnrestricted places no warehouse filter on the query.
	ScopeUnrestricted ScopeKind = iota
	// ScopeWarehouses limits the query to an explicit warehouse set.
	ScopeWarehouses
)

// Scope is the warehouse boundary of a request.
// The zero value is unrestricted.
type Scope struct {
	kind       ScopeKind
	warehouses []string
}

// Unrestricted returns a scope with no warehouse filter.
func Unrestricted() Scope {
	return Scope{kind: ScopeUnrestricted}
}

// WarehouseSet returns a scope limited to ids.
func WarehouseSet(ids ...string) Scope {
	return Scope{kind: ScopeWarehouses, warehouses: slices.Clone(ids)}
}

// Kind returns the scope tag.
func (s Scope) Kind() ScopeKind { return s.kind }

// IsUnrestricted reports whether the scope has no warehouse filter.
func (s Scope) IsUnrestricted() bool { return s.kind == ScopeUnrestricted }

// Warehouses returns the warehouse filter. Nil for unrestricted scopes.
func (s Scope) Warehouses() []string {
	if s.kind == ScopeUnrestricted {
		return nil
	}
	return slices.Clone(s.warehouses)
}

// Allows reports whether warehouseID falls inside the scope.
func (s Scope) Allows(warehouseID string) bool {
	return s.kind == ScopeUnrestricted || slices.Contains(s.warehouses, warehouseID)
}

// Request is the input of Resolve.
type Request struct {
	Operation Operation
	// Warehouse is the requested warehouse filter (reads) or target warehouse (writes).
	Warehouse string
	// Capability is required for writes by non-superadmins. Empty means none.
	Capability Capability
}

// Resolve applies the role policy table to p and req.
//
// A requested warehouse narrows the resulting scope to that warehouse once it
// passes the allow-list check. Writes always name a warehouse.
func Resolve(p Principal, req Request) (Scope, error) {
	if req.Operation == OperationWrite && req.Warehouse == "" {
		return Scope{}, deny(p, req, "target warehouse is required")
	}

	var base Scope
	switch p.Role {
	case RoleSuperadmin:
		base = Unrestricted()

	case RoleCompanyManager:
		if req.Operation == OperationWrite {
			return Scope{}, deny(p, req, "role has read-only access")
		}
		base = Unrestricted()

	case RoleWarehouseManager, RoleUser:
		if p.Role == RoleUser && req.Operation == OperationWrite {
			return Scope{}, deny(p, req, "role has read-only access")
		}
		if p.HasAllWarehouses() {
			base = Unrestricted()
		} else {
			ids := p.warehouses()
			if len(ids) == 0 {
				return Scope{}, deny(p, req, "no warehouses assigned")
			}
			base = WarehouseSet(ids...)
		}
		if req.Operation == OperationWrite && req.Capability != "" && !p.HasCapability(req.Capability) {
			return Scope{}, deny(p, req, fmt.Sprintf("permission %s required", req.Capability)).
				WithDetail("permission", req.Capability)
		}

	default:
		return Scope{}, deny(p, req, "unknown role")
	}

	if req.Warehouse == "" {
		return base, nil
	}
	if !base.Allows(req.Warehouse) {
		return Scope{}, deny(p, req, "warehouse is outside the allowed warehouses")
	}
	return WarehouseSet(req.Warehouse), nil
}

// RequireWrite checks that p may perform a write needing c on every warehouse.
// A transfer passes both its source and destination.
func RequireWrite(p Principal, c Capability, warehouses ...string) error {
	for _, w := range warehouses {
		if _, err := Resolve(p, Request{Operation: OperationWrite, Warehouse: w, Capability: c}); err != nil {
			return err
		}
	}
	return nil
}

// ResolveRead returns the read scope of p optionally narrowed to warehouse.
func ResolveRead(p Principal, warehouse string) (Scope, error) {
	return Resolve(p, Request{Operation: OperationRead, Warehouse: warehouse})
}

func deny(p Principal, req Request, reason string) *apperror.AppError {
	err := apperror.NewForbidden("access denied: " + reason).
		WithDetail("role", string(p.Role)).
		WithDetail("operation", req.Operation.String())
	if req.Warehouse != "" {
		err.WithDetail("warehouse_id", req.Warehouse)
	}
	return err
}

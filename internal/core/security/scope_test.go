package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
)

func manager(warehouses ...string) Principal {
	return Principal{
		UserID:            "u-1",
		Role:              RoleWarehouseManager,
		AllowedWarehouses: warehouses,
		Permissions:       []string{string(CapabilityFullAccess)},
	}
}

func TestResolveRead(t *testing.T) {
	tests := []struct {
		name      string
		principal Principal
		warehouse string
		wantErr   bool
		want      Scope
	}{
		{"superadmin unrestricted", Principal{Role: RoleSuperadmin}, "", false, Unrestricted()},
		{"superadmin narrowed", Principal{Role: RoleSuperadmin}, "W1", false, WarehouseSet("W1")},
		{"company manager reads everything", Principal{Role: RoleCompanyManager}, "", false, Unrestricted()},
		{"manager allow-list", manager("W1", "W2"), "", false, WarehouseSet("W1", "W2")},
		{"manager narrowed", manager("W1", "W2"), "W2", false, WarehouseSet("W2")},
		{"manager outside allow-list", manager("W1"), "W9", true, Scope{}},
		{"manager all sentinel", manager("all"), "", false, Unrestricted()},
		{"manager no warehouses", manager(), "", true, Scope{}},
		{"user allow-list", Principal{Role: RoleUser, AllowedWarehouses: []string{"W1"}}, "", false, WarehouseSet("W1")},
		{"unknown role", Principal{Role: "guest"}, "", true, Scope{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRead(tt.principal, tt.warehouse)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperror.CodeForbidden, apperror.Kind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind(), got.Kind())
			assert.Equal(t, tt.want.Warehouses(), got.Warehouses())
		})
	}
}

func TestRequireWrite(t *testing.T) {
	tests := []struct {
		name       string
		principal  Principal
		capability Capability
		warehouses []string
		wantErr    bool
	}{
		{"superadmin", Principal{Role: RoleSuperadmin}, CapabilityDispatch, []string{"W1"}, false},
		{"manager in scope", manager("A"), CapabilityDispatch, []string{"A"}, false},
		{"manager out of scope", manager("A"), CapabilityDispatch, []string{"B"}, true},
		{"manager all sentinel", manager("all"), CapabilityDelete, []string{"Z"}, false},
		{"manager transfer both sides", manager("A", "B"), CapabilityTransfer, []string{"A", "B"}, false},
		{"manager transfer destination outside", manager("A"), CapabilityTransfer, []string{"A", "B"}, true},
		{"manager missing capability", Principal{Role: RoleWarehouseManager, AllowedWarehouses: []string{"A"}, Permissions: []string{"inventory.add"}}, CapabilityDelete, []string{"A"}, true},
		{"manager specific capability", Principal{Role: RoleWarehouseManager, AllowedWarehouses: []string{"A"}, Permissions: []string{"inventory.add"}}, CapabilityAdd, []string{"A"}, false},
		{"manager empty target", manager("A"), CapabilityAdd, []string{""}, true},
		{"company manager", Principal{Role: RoleCompanyManager}, CapabilityAdd, []string{"A"}, true},
		{"user", Principal{Role: RoleUser, AllowedWarehouses: []string{"A"}, Permissions: []string{"all"}}, CapabilityAdd, []string{"A"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireWrite(tt.principal, tt.capability, tt.warehouses...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperror.CodeForbidden, apperror.Kind(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestScopeAllows(t *testing.T) {
	assert.True(t, Unrestricted().Allows("any"))
	assert.Nil(t, Unrestricted().Warehouses())

	s := WarehouseSet("A", "B")
	assert.True(t, s.Allows("A"))
	assert.False(t, s.Allows("C"))
}

func TestPrincipalHasCapability(t *testing.T) {
	p := Principal{Role: RoleWarehouseManager, Permissions: []string{"all"}}
	assert.True(t, p.HasCapability(CapabilityTransfer))

	p.Permissions = []string{"inventory.edit"}
	assert.True(t, p.HasCapability(CapabilityEdit))
	assert.False(t, p.HasCapability(CapabilityDispatch))
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleCustomer, PermProductRead, true},
		{RoleCustomer, PermProductWrite, false},
		{RoleCustomer, PermOrderWrite, true},
		{RoleCustomer, PermAdminPanel, false},
		{RoleAdmin, PermProductWrite, true},
		{RoleAdmin, PermProductDelete, true},
		{RoleAdmin, PermUserDelete, false},
		{RoleAdmin, PermSystemConfig, false},
		{RoleSuperAdmin, PermUserDelete, true},
		{RoleSuperAdmin, PermSystemConfig, true},
		{"unknown", PermProductRead, false},
		{"", PermProductRead, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HasPermission(tt.role, tt.permission),
			"role=%s perm=%s", tt.role, tt.permission)
	}
}

func TestRoleRank(t *testing.T) {
	assert.Less(t, RoleRank(RoleCustomer), RoleRank(RoleAdmin))
	assert.Less(t, RoleRank(RoleAdmin), RoleRank(RoleSuperAdmin))
	assert.Equal(t, -1, RoleRank("unknown"))
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAtLeast(RoleAdmin, RoleAdmin))
	assert.True(t, RoleAtLeast(RoleAdmin, RoleCustomer))
	assert.False(t, RoleAtLeast(RoleCustomer, RoleAdmin))
	assert.False(t, RoleAtLeast("unknown", RoleCustomer))

	// super_admin显式放行，包括未知的要求层级
	assert.True(t, RoleAtLeast(RoleSuperAdmin, RoleAdmin))
	assert.True(t, RoleAtLeast(RoleSuperAdmin, RoleSuperAdmin))
	assert.True(t, RoleAtLeast(RoleSuperAdmin, "unknown"))
}

// 权限表与层级表必须保持一致：高层级角色的权限是低层级角色的超集
func TestRoleHierarchyPermissionSuperset(t *testing.T) {
	pairs := [][2]string{
		{RoleCustomer, RoleAdmin},
		{RoleAdmin, RoleSuperAdmin},
	}

	for _, pair := range pairs {
		lower, higher := pair[0], pair[1]
		for _, perm := range PermissionsForRole(lower) {
			assert.True(t, HasPermission(higher, perm),
				"%s缺少%s的权限%s", higher, lower, perm)
		}
	}
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(RoleCustomer))
	assert.True(t, IsValidRole(RoleAdmin))
	assert.True(t, IsValidRole(RoleSuperAdmin))
	assert.False(t, IsValidRole("platform_admin"))
	assert.False(t, IsValidRole(""))

	assert.True(t, IsAdminRole(RoleAdmin))
	assert.True(t, IsAdminRole(RoleSuperAdmin))
	assert.False(t, IsAdminRole(RoleCustomer))
}

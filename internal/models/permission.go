package models

// 角色常量
const (
	RoleCustomer   = "customer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// 权限常量
const (
	// 用户权限
	PermUserRead   = "user:read"
	PermUserWrite  = "user:write"
	PermUserDelete = "user:delete"

	// 商品权限
	PermProductRead   = "product:read"
	PermProductWrite  = "product:write"
	PermProductDelete = "product:delete"

	// 订单权限
	PermOrderRead   = "order:read"
	PermOrderWrite  = "order:write"
	PermOrderDelete = "order:delete"

	// 管理权限
	PermAdminPanel   = "admin:panel"
	PermSystemConfig = "system:config"
)

// rolePermissions 角色权限映射表（代码定义，权限检查的唯一事实来源）
var rolePermissions = map[string][]string{
	RoleCustomer: {
		PermProductRead,
		PermOrderRead,
		PermOrderWrite,
	},
	RoleAdmin: {
		PermUserRead,
		PermUserWrite,
		PermProductRead,
		PermProductWrite,
		PermProductDelete,
		PermOrderRead,
		PermOrderWrite,
		PermOrderDelete,
		PermAdminPanel,
	},
	RoleSuperAdmin: {
		PermUserRead,
		PermUserWrite,
		PermUserDelete,
		PermProductRead,
		PermProductWrite,
		PermProductDelete,
		PermOrderRead,
		PermOrderWrite,
		PermOrderDelete,
		PermAdminPanel,
		PermSystemConfig,
	},
}

// roleRanks 角色层级，用于"某角色及以上"的判断
var roleRanks = map[string]int{
	RoleCustomer:   0,
	RoleAdmin:      1,
	RoleSuperAdmin: 2,
}

// HasPermission 检查角色是否拥有指定权限
// 未知角色视为无任何权限（默认拒绝）
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// PermissionsForRole 获取角色的全部权限
func PermissionsForRole(role string) []string {
	perms := rolePermissions[role]
	result := make([]string, len(perms))
	copy(result, perms)
	return result
}

// RoleRank 角色层级序号，未知角色返回-1
func RoleRank(role string) int {
	rank, ok := roleRanks[role]
	if !ok {
		return -1
	}
	return rank
}

// RoleAtLeast 检查角色是否达到要求的层级
// super_admin显式放行，不依赖层级数值
func RoleAtLeast(role, required string) bool {
	if role == RoleSuperAdmin {
		return true
	}

	requiredRank, ok := roleRanks[required]
	if !ok {
		return false
	}
	return RoleRank(role) >= requiredRank
}

// IsValidRole 检查角色是否合法
func IsValidRole(role string) bool {
	_, ok := roleRanks[role]
	return ok
}

// IsAdminRole 检查是否管理类角色（后台用户创建时校验）
func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

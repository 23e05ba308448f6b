// Package authorization maps roles to permission tokens through an
// immutable table. Authentication lives at the edge; this package only
// answers "may this role do that".
package authorization

type Role string

const (
	RoleAdmin          Role = "admin"
	RoleCatalogManager Role = "catalog_manager"
	RoleSales          Role = "sales"
	RoleDealer         Role = "dealer"
)

type Permission string

const (
	PermDiscountView   Permission = "discount.view"
	PermDiscountCreate Permission = "discount.create"
	PermDiscountUpdate Permission = "discount.update"
	PermDiscountDelete Permission = "discount.delete"

	PermOrderPrice  Permission = "order.price"
	PermOrderCommit Permission = "order.commit"
)

// rolePermissions is the whole policy. It is data, not code: adding a rule
// is one table entry, and resolution is a pure lookup.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleAdmin: permSet(
		PermDiscountView, PermDiscountCreate, PermDiscountUpdate, PermDiscountDelete,
		PermOrderPrice, PermOrderCommit,
	),
	RoleCatalogManager: permSet(
		PermDiscountView, PermDiscountCreate, PermDiscountUpdate, PermDiscountDelete,
		PermOrderPrice,
	),
	RoleSales: permSet(
		PermDiscountView,
		PermOrderPrice, PermOrderCommit,
	),
	RoleDealer: permSet(
		PermOrderPrice, PermOrderCommit,
	),
}

func permSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Can reports whether the role holds the permission. Unknown roles hold
// nothing.
func Can(role Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[perm]
	return ok
}

// Known reports whether the role exists in the table at all, letting the
// edge distinguish "forbidden" from "no such role".
func Known(role Role) bool {
	_, ok := rolePermissions[role]
	return ok
}

package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	tests := []struct {
		name string
		role Role
		perm Permission
		want bool
	}{
		{name: "admin manages discounts", role: RoleAdmin, perm: PermDiscountDelete, want: true},
		{name: "admin commits orders", role: RoleAdmin, perm: PermOrderCommit, want: true},
		{name: "catalog manager edits discounts", role: RoleCatalogManager, perm: PermDiscountUpdate, want: true},
		{name: "catalog manager cannot commit", role: RoleCatalogManager, perm: PermOrderCommit, want: false},
		{name: "sales views discounts", role: RoleSales, perm: PermDiscountView, want: true},
		{name: "sales cannot create discounts", role: RoleSales, perm: PermDiscountCreate, want: false},
		{name: "dealer prices orders", role: RoleDealer, perm: PermOrderPrice, want: true},
		{name: "dealer cannot view discounts", role: RoleDealer, perm: PermDiscountView, want: false},
		{name: "unknown role holds nothing", role: Role("auditor"), perm: PermOrderPrice, want: false},
		{name: "empty role holds nothing", role: Role(""), perm: PermOrderPrice, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.role, tt.perm))
		})
	}
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(RoleAdmin))
	assert.True(t, Known(RoleDealer))
	assert.False(t, Known(Role("auditor")))
	assert.False(t, Known(Role("")))
}

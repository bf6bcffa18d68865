package types

import "fmt"

// Role is the closed set of authorization levels a user can hold.
// Roles are flat: there is no hierarchy or delegation between them.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Action identifies an operation gated by a capability check.
type Action string

const (
	// ActionManageCategories covers category create, update, and delete.
	ActionManageCategories Action = "categories:manage"

	// ActionManageProducts covers product create, update, delete, and
	// image upload. Update and delete additionally require ownership,
	// which is checked against the product row, not the role.
	ActionManageProducts Action = "products:manage"

	// ActionCreateReview covers posting a review.
	ActionCreateReview Action = "reviews:create"

	// ActionDeleteReview covers soft-deleting a review.
	ActionDeleteReview Action = "reviews:delete"
)

// capabilities maps each role to the actions it may perform.
var capabilities = map[Role]map[Action]bool{
	RoleBuyer: {
		ActionCreateReview: true,
	},
	RoleSeller: {
		ActionManageProducts: true,
	},
	RoleAdmin: {
		ActionManageCategories: true,
		ActionDeleteReview:     true,
	},
}

// Can reports whether the role is allowed to perform the action.
func (r Role) Can(action Action) bool {
	return capabilities[r][action]
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

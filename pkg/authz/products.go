package authz

import (
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
)

// staff are the account-level roles with blanket access to tenant resources,
// subject only to the base permission check.
var staff = []bearer.Role{
	bearer.RoleAdmin,
	bearer.RoleDeveloper,
	bearer.RoleSalesAgent,
	bearer.RoleSupportAgent,
}

var staffAndReadOnly = append([]bearer.Role{bearer.RoleReadOnly}, staff...)

// ProductPolicy is the rule table for products. A product-role bearer only
// reaches its own record; creation and deletion are reserved for admins and
// developers.
func ProductPolicy() *Policy[model.Product] {
	ownRecord := func(b bearer.Bearer, p model.Product) bool {
		return b.SameRecord(bearer.KindProduct, p.ID)
	}

	return &Policy[model.Product]{
		Permissions: map[string]string{
			ActionIndex:   PermProductRead,
			ActionShow:    PermProductRead,
			ActionCreate:  PermProductCreate,
			ActionUpdate:  PermProductUpdate,
			ActionDestroy: PermProductDelete,
		},
		Rules: map[string][]Rule[model.Product]{
			ActionShow: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownRecord},
			},
			ActionCreate: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
			},
			ActionUpdate: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownRecord},
			},
			ActionDestroy: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
			},
		},
		CollectionRules: map[string][]Rule[[]model.Product]{
			ActionIndex: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: func(b bearer.Bearer, page []model.Product) bool {
					for _, p := range page {
						if p.ID != b.ID {
							return false
						}
					}
					return true
				}},
			},
		},
	}
}

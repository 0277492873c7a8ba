package authz

import (
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
)

// LicensePolicy is the rule table for licenses. Product-role bearers manage
// licenses for their own product; license- and user-role bearers only reach
// their own records.
func LicensePolicy() *Policy[model.License] {
	ownsProduct := func(b bearer.Bearer, l model.License) bool {
		return b.SameRecord(bearer.KindProduct, l.ProductID)
	}
	ownRecord := func(b bearer.Bearer, l model.License) bool {
		return b.SameRecord(bearer.KindLicense, l.ID)
	}
	ownUser := func(b bearer.Bearer, l model.License) bool {
		return l.UserID != nil && b.SameRecord(bearer.KindUser, *l.UserID)
	}

	uniform := func(guard Guard[model.License]) Guard[[]model.License] {
		return func(b bearer.Bearer, page []model.License) bool {
			for _, l := range page {
				if !guard(b, l) {
					return false
				}
			}
			return true
		}
	}

	return &Policy[model.License]{
		Permissions: map[string]string{
			ActionIndex:   PermLicenseRead,
			ActionShow:    PermLicenseRead,
			ActionCreate:  PermLicenseCreate,
			ActionUpdate:  PermLicenseUpdate,
			ActionDestroy: PermLicenseDelete,
		},
		Rules: map[string][]Rule[model.License]{
			ActionShow: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsProduct},
				{Roles: []bearer.Role{bearer.RoleLicense}, Guard: ownRecord},
				{Roles: []bearer.Role{bearer.RoleUser}, Guard: ownUser},
			},
			ActionCreate: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper, bearer.RoleSalesAgent}},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsProduct},
			},
			ActionUpdate: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper, bearer.RoleSalesAgent}},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsProduct},
			},
			ActionDestroy: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsProduct},
			},
		},
		CollectionRules: map[string][]Rule[[]model.License]{
			ActionIndex: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: uniform(ownsProduct)},
				{Roles: []bearer.Role{bearer.RoleUser}, Guard: uniform(ownUser)},
			},
		},
	}
}

// EntitlementPolicy is the rule table for entitlements. They are read-only
// for everything but admins and developers, who manage them elsewhere.
func EntitlementPolicy() *Policy[model.Entitlement] {
	return &Policy[model.Entitlement]{
		Permissions: map[string]string{
			ActionIndex: PermEntitlementRead,
			ActionShow:  PermEntitlementRead,
		},
		Rules: map[string][]Rule[model.Entitlement]{
			ActionShow: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleProduct, bearer.RoleLicense, bearer.RoleUser}},
			},
		},
		CollectionRules: map[string][]Rule[[]model.Entitlement]{
			ActionIndex: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleProduct, bearer.RoleLicense, bearer.RoleUser}},
			},
		},
	}
}

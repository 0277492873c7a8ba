package authz

import (
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
)

// LicenseTokenPolicy is the rule table for tokens held by one license. The
// license is evaluation context: a product-role bearer reaches the tokens
// only when it owns the license's product.
func LicenseTokenPolicy(license model.License) *Policy[model.Token] {
	ownsLicense := func(b bearer.Bearer, _ model.Token) bool {
		return b.SameRecord(bearer.KindProduct, license.ProductID)
	}
	ownsLicensePage := func(b bearer.Bearer, _ []model.Token) bool {
		return b.SameRecord(bearer.KindProduct, license.ProductID)
	}

	return &Policy[model.Token]{
		Permissions: map[string]string{
			ActionIndex:  PermLicenseTokensRead,
			ActionShow:   PermLicenseTokensRead,
			ActionCreate: PermLicenseTokensGenerate,
		},
		Rules: map[string][]Rule[model.Token]{
			ActionShow: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsLicense},
			},
			ActionCreate: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper, bearer.RoleSalesAgent}},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsLicense},
			},
		},
		CollectionRules: map[string][]Rule[[]model.Token]{
			ActionIndex: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsLicensePage},
			},
		},
	}
}

// ProductTokenPolicy is the rule table for tokens held by one product. The
// collection rule demands uniform ownership: a product-role bearer may list
// a page only when every token on it is bound to that product. The singular
// rule guards the one record. The asymmetry mirrors how collections must be
// ownership-homogeneous while lookups are guarded per item.
func ProductTokenPolicy(product model.Product) *Policy[model.Token] {
	return &Policy[model.Token]{
		Permissions: map[string]string{
			ActionIndex:  PermProductTokensRead,
			ActionShow:   PermProductTokensRead,
			ActionCreate: PermProductTokensGenerate,
		},
		Rules: map[string][]Rule[model.Token]{
			ActionShow: {
				{Roles: staff},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: func(b bearer.Bearer, t model.Token) bool {
					return b.SameRecord(bearer.KindProduct, product.ID) &&
						t.BearerType == model.TokenBearerProduct && t.BearerID == b.ID
				}},
			},
			ActionCreate: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
			},
		},
		CollectionRules: map[string][]Rule[[]model.Token]{
			ActionIndex: {
				{Roles: staff},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: func(b bearer.Bearer, page []model.Token) bool {
					if !b.SameRecord(bearer.KindProduct, product.ID) {
						return false
					}
					for _, t := range page {
						if t.BearerType != model.TokenBearerProduct || t.BearerID != b.ID {
							return false
						}
					}
					return true
				}},
			},
		},
	}
}

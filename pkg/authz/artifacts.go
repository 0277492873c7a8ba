package authz

import (
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
)

// ArtifactContext carries the resolved state artifact guards need: the
// product being browsed and the licenses the bearer holds for it (empty when
// it holds none). The distribution gate applies per-artifact entitlement
// filtering afterwards; this policy only decides whether the bearer may look
// at the collection at all.
type ArtifactContext struct {
	Product      model.Product
	HeldLicenses []model.License
}

// ReleaseArtifactPolicy is the rule table for release artifacts.
func ReleaseArtifactPolicy(ctx ArtifactContext) *Policy[model.ReleaseArtifact] {
	ownsProduct := func(b bearer.Bearer, _ model.ReleaseArtifact) bool {
		return b.SameRecord(bearer.KindProduct, ctx.Product.ID)
	}
	holdsLicense := func(b bearer.Bearer, _ model.ReleaseArtifact) bool {
		return len(ctx.HeldLicenses) > 0
	}
	openProduct := func(b bearer.Bearer, _ model.ReleaseArtifact) bool {
		return ctx.Product.Open()
	}

	// Collection guards share the singular predicates: the licensed/open
	// checks depend on the product, not on individual page items.
	lift := func(g Guard[model.ReleaseArtifact]) Guard[[]model.ReleaseArtifact] {
		return func(b bearer.Bearer, _ []model.ReleaseArtifact) bool {
			var zero model.ReleaseArtifact
			return g(b, zero)
		}
	}

	return &Policy[model.ReleaseArtifact]{
		Permissions: map[string]string{
			ActionIndex: PermReleaseRead,
			ActionShow:  PermReleaseRead,
			// Managing a product's releases is an update of the product.
			ActionCreate:  PermProductUpdate,
			ActionUpdate:  PermProductUpdate,
			ActionDestroy: PermProductUpdate,
		},
		Rules: map[string][]Rule[model.ReleaseArtifact]{
			ActionShow: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsProduct},
				{Roles: []bearer.Role{bearer.RoleLicense, bearer.RoleUser}, Guard: holdsLicense},
				{Guard: openProduct}, // any bearer, anonymous included
			},
			ActionCreate: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsProduct},
			},
			ActionUpdate: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsProduct},
			},
			ActionDestroy: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: ownsProduct},
			},
		},
		CollectionRules: map[string][]Rule[[]model.ReleaseArtifact]{
			ActionIndex: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleProduct}, Guard: lift(ownsProduct)},
				{Roles: []bearer.Role{bearer.RoleLicense, bearer.RoleUser}, Guard: lift(holdsLicense)},
				{Guard: lift(openProduct)},
			},
		},
	}
}

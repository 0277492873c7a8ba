package authz

import "github.com/keylinehq/keyline/pkg/bearer"

// Dot-namespaced permission strings checked by the registry.
const (
	PermWildcard = "*"

	PermProductRead   = "product.read"
	PermProductCreate = "product.create"
	PermProductUpdate = "product.update"
	PermProductDelete = "product.delete"

	PermProductTokensRead     = "product.tokens.read"
	PermProductTokensGenerate = "product.tokens.generate"

	PermLicenseRead   = "license.read"
	PermLicenseCreate = "license.create"
	PermLicenseUpdate = "license.update"
	PermLicenseDelete = "license.delete"

	PermLicenseTokensRead     = "license.tokens.read"
	PermLicenseTokensGenerate = "license.tokens.generate"

	PermEntitlementRead = "entitlement.read"

	PermReleaseRead     = "release.read"
	PermReleaseDownload = "release.download"

	PermUserRead          = "user.read"
	PermUserCreate        = "user.create"
	PermUserUpdate        = "user.update"
	PermUserDelete        = "user.delete"
	PermUserPasswordReset = "user.password-reset"

	PermWebhookRead   = "webhook.read"
	PermWebhookManage = "webhook.manage"
)

var readPermissions = []string{
	PermProductRead,
	PermProductTokensRead,
	PermLicenseRead,
	PermLicenseTokensRead,
	PermEntitlementRead,
	PermReleaseRead,
	PermUserRead,
}

// defaultGrants is each role's default permission set. The effective set of
// a bearer is the union of these with its explicit token grants.
var defaultGrants = map[bearer.Role][]string{
	bearer.RoleAdmin:     {PermWildcard},
	bearer.RoleDeveloper: {PermWildcard},
	bearer.RoleSalesAgent: append([]string{
		PermLicenseCreate,
		PermLicenseUpdate,
		PermLicenseTokensGenerate,
	}, readPermissions...),
	bearer.RoleSupportAgent: readPermissions,
	bearer.RoleReadOnly:     readPermissions,
	bearer.RoleProduct: {
		PermProductRead,
		PermProductUpdate,
		PermProductTokensRead,
		PermProductTokensGenerate,
		PermLicenseRead,
		PermLicenseCreate,
		PermLicenseUpdate,
		PermLicenseDelete,
		PermLicenseTokensRead,
		PermLicenseTokensGenerate,
		PermEntitlementRead,
		PermReleaseRead,
		PermReleaseDownload,
	},
	bearer.RoleLicense: {
		PermLicenseRead,
		PermEntitlementRead,
		PermReleaseRead,
		PermReleaseDownload,
	},
	bearer.RoleUser: {
		PermUserRead,
		PermUserPasswordReset,
		PermLicenseRead,
		PermEntitlementRead,
		PermReleaseRead,
		PermReleaseDownload,
	},
}

// anonymousGrants covers unauthenticated bearers. Open-distribution products
// serve releases without credentials; everything else is denied.
var anonymousGrants = []string{
	PermProductRead,
	PermReleaseRead,
	PermReleaseDownload,
}

// HasPermission reports whether the bearer's effective permission set covers
// the action. Unknown actions are simply absent from every set and so deny;
// they are never an error.
func HasPermission(b bearer.Bearer, action string) bool {
	for _, grant := range b.Grants {
		if grant == PermWildcard || grant == action {
			return true
		}
	}

	grants, ok := defaultGrants[b.Role]
	if !ok {
		grants = anonymousGrants
	}
	for _, grant := range grants {
		if grant == PermWildcard || grant == action {
			return true
		}
	}
	return false
}

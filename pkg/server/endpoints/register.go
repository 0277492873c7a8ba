package endpoints

import "github.com/keylinehq/keyline/pkg/server"

// EmittedEvents lists every event name the endpoints dispatch. Checked
// against the seeded catalog at startup; an absent name aborts boot instead
// of failing the first mutation that emits it.
var EmittedEvents = []string{
	"user.created",
	"user.updated",
	"user.deleted",
	"user.password-reset",
	"product.created",
	"product.updated",
	"product.deleted",
	"license.created",
	"license.updated",
	"license.deleted",
	"license.suspended",
	"license.reinstated",
	"license.entitlements.attached",
	"license.entitlements.detached",
	"entitlement.created",
	"entitlement.deleted",
	"token.generated",
	"token.revoked",
	"release.created",
	"release.updated",
	"release.deleted",
	"release.downloaded",
	"release.yanked",
}

// RegisterAll mounts every endpoint group on the server's router.
func RegisterAll(s *server.Server) {
	RegisterStatusEndpoints(s)
	RegisterAccountsEndpoints(s)
	RegisterUsersEndpoints(s)
	RegisterProductsEndpoints(s)
	RegisterLicensesEndpoints(s)
	RegisterEntitlementsEndpoints(s)
	RegisterTokensEndpoints(s)
	RegisterArtifactsEndpoints(s)
	RegisterPyPIEndpoints(s)
	RegisterWebhooksEndpoints(s)
}

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
)

func TestLicenseTokenPolicy(t *testing.T) {
	lic := model.License{ID: "lic-1", AccountID: "acct-1", ProductID: "prod-1"}
	policy := LicenseTokenPolicy(lic)
	tok := model.Token{ID: "tok-1", BearerType: model.TokenBearerLicense, BearerID: "lic-1"}

	t.Run("read_only shows a token it does not own", func(t *testing.T) {
		// Permission present, so evaluation reaches the rules; read_only is
		// in the allow-list for show with no guard.
		decision := policy.Authorize(staffBearer(bearer.RoleReadOnly), ActionShow, tok)
		assert.True(t, decision.Allowed())
	})

	t.Run("owning product reads and generates", func(t *testing.T) {
		owner := productBearer("prod-1")
		assert.True(t, policy.Authorize(owner, ActionShow, tok).Allowed())
		assert.True(t, policy.Authorize(owner, ActionCreate, model.Token{}).Allowed())
	})

	t.Run("foreign product denied", func(t *testing.T) {
		stranger := productBearer("prod-2")
		show := policy.Authorize(stranger, ActionShow, tok)
		assert.False(t, show.Allowed())
		assert.True(t, show.HidesExistence())
		assert.False(t, policy.Authorize(stranger, ActionCreate, model.Token{}).Allowed())
	})

	t.Run("sales_agent generates, support_agent does not", func(t *testing.T) {
		assert.True(t, policy.Authorize(staffBearer(bearer.RoleSalesAgent), ActionCreate, model.Token{}).Allowed())
		assert.False(t, policy.Authorize(staffBearer(bearer.RoleSupportAgent), ActionCreate, model.Token{}).Allowed())
	})
}

func TestProductTokenPolicyUniformOwnership(t *testing.T) {
	prod := model.Product{ID: "prod-1", AccountID: "acct-1"}
	policy := ProductTokenPolicy(prod)
	owner := productBearer("prod-1")

	owned := model.Token{ID: "tok-1", BearerType: model.TokenBearerProduct, BearerID: "prod-1"}
	foreign := model.Token{ID: "tok-2", BearerType: model.TokenBearerProduct, BearerID: "prod-2"}
	userToken := model.Token{ID: "tok-3", BearerType: model.TokenBearerUser, BearerID: "user-1"}

	t.Run("empty page allows trivially", func(t *testing.T) {
		assert.True(t, policy.AuthorizeAll(owner, ActionIndex, nil).Allowed())
	})

	t.Run("uniformly owned page allows", func(t *testing.T) {
		page := []model.Token{owned, {ID: "tok-4", BearerType: model.TokenBearerProduct, BearerID: "prod-1"}}
		assert.True(t, policy.AuthorizeAll(owner, ActionIndex, page).Allowed())
	})

	t.Run("any foreign token denies the whole page", func(t *testing.T) {
		assert.False(t, policy.AuthorizeAll(owner, ActionIndex, []model.Token{owned, foreign}).Allowed())
	})

	t.Run("non-product bearer type denies the page", func(t *testing.T) {
		assert.False(t, policy.AuthorizeAll(owner, ActionIndex, []model.Token{owned, userToken}).Allowed())
	})

	t.Run("singular show guards per item", func(t *testing.T) {
		assert.True(t, policy.Authorize(owner, ActionShow, owned).Allowed())
		assert.False(t, policy.Authorize(owner, ActionShow, foreign).Allowed())
	})

	t.Run("staff bypass the guard", func(t *testing.T) {
		page := []model.Token{owned, foreign}
		assert.True(t, policy.AuthorizeAll(staffBearer(bearer.RoleSupportAgent), ActionIndex, page).Allowed())
	})

	t.Run("only admin and developer create", func(t *testing.T) {
		assert.True(t, policy.Authorize(staffBearer(bearer.RoleDeveloper), ActionCreate, model.Token{}).Allowed())
		assert.False(t, policy.Authorize(owner, ActionCreate, model.Token{}).Allowed())
	})
}

func TestHasPermission(t *testing.T) {
	t.Run("admin holds the wildcard", func(t *testing.T) {
		assert.True(t, HasPermission(staffBearer(bearer.RoleAdmin), "anything.at.all"))
	})

	t.Run("explicit token grants union with role defaults", func(t *testing.T) {
		b := bearer.Bearer{Kind: bearer.KindToken, ID: "tok-1", AccountID: "acct-1", Role: bearer.RoleReadOnly,
			Grants: []string{PermLicenseCreate}}
		assert.True(t, HasPermission(b, PermLicenseCreate))
		assert.True(t, HasPermission(b, PermLicenseRead))
		assert.False(t, HasPermission(b, PermProductDelete))
	})

	t.Run("anonymous bearers only read open distribution surfaces", func(t *testing.T) {
		anon := bearer.Anonymous("acct-1")
		assert.True(t, HasPermission(anon, PermReleaseRead))
		assert.True(t, HasPermission(anon, PermReleaseDownload))
		assert.False(t, HasPermission(anon, PermLicenseRead))
	})

	t.Run("unknown action is denied, not an error", func(t *testing.T) {
		assert.False(t, HasPermission(staffBearer(bearer.RoleReadOnly), "no.such.action"))
	})
}

package authz

import (
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
)

// UserPolicy is the rule table for users. User-role bearers reach their own
// record only; management is reserved for admins and developers.
func UserPolicy() *Policy[model.User] {
	ownRecord := func(b bearer.Bearer, u model.User) bool {
		return b.SameRecord(bearer.KindUser, u.ID)
	}

	return &Policy[model.User]{
		Permissions: map[string]string{
			ActionIndex:   PermUserRead,
			ActionShow:    PermUserRead,
			ActionCreate:  PermUserCreate,
			ActionUpdate:  PermUserUpdate,
			ActionDestroy: PermUserDelete,
		},
		Rules: map[string][]Rule[model.User]{
			ActionShow: {
				{Roles: staffAndReadOnly},
				{Roles: []bearer.Role{bearer.RoleUser}, Guard: ownRecord},
			},
			ActionCreate: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
			},
			ActionUpdate: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
				{Roles: []bearer.Role{bearer.RoleUser}, Guard: ownRecord},
			},
			ActionDestroy: {
				{Roles: []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}},
			},
		},
		CollectionRules: map[string][]Rule[[]model.User]{
			ActionIndex: {
				{Roles: staffAndReadOnly},
			},
		},
	}
}

// WebhookEndpointPolicy is the rule table for webhook endpoint management.
// Only admins and developers (whose wildcard grant covers the permissions)
// may see or change an account's subscriber configuration.
func WebhookEndpointPolicy() *Policy[model.WebhookEndpoint] {
	management := []bearer.Role{bearer.RoleAdmin, bearer.RoleDeveloper}

	return &Policy[model.WebhookEndpoint]{
		Permissions: map[string]string{
			ActionIndex:   PermWebhookRead,
			ActionShow:    PermWebhookRead,
			ActionCreate:  PermWebhookManage,
			ActionUpdate:  PermWebhookManage,
			ActionDestroy: PermWebhookManage,
		},
		Rules: map[string][]Rule[model.WebhookEndpoint]{
			ActionShow:    {{Roles: management}},
			ActionCreate:  {{Roles: management}},
			ActionUpdate:  {{Roles: management}},
			ActionDestroy: {{Roles: management}},
		},
		CollectionRules: map[string][]Rule[[]model.WebhookEndpoint]{
			ActionIndex: {{Roles: management}},
		},
	}
}

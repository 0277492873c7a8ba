// Package bearer models the authenticated principal of a request.
//
// A Bearer is a closed tagged union: it is a user, a product, a license, or
// a token. Tokens authenticate as their owning record and so adopt that
// record's kind and role; an anonymous token has no role at all. Policy
// evaluation pattern-matches on (kind, role) pairs plus ownership guards.
package bearer

// Kind discriminates the bearer union.
type Kind int

const (
	KindToken Kind = iota
	KindUser
	KindProduct
	KindLicense
)

func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindUser:
		return "user"
	case KindProduct:
		return "product"
	case KindLicense:
		return "license"
	default:
		return "unknown"
	}
}

// Bearer is the authenticated principal making a request. ID identifies the
// underlying record (user, product or license row); AccountID scopes every
// lookup to the bearer's tenant. Grants holds explicit per-token permission
// grants layered on top of the role's defaults.
type Bearer struct {
	Kind      Kind
	ID        string
	AccountID string
	Role      Role
	Grants    []string
}

// Anonymous returns a bearer with no identity and no role. Anonymous bearers
// only ever see open-distribution artifacts.
func Anonymous(accountID string) Bearer {
	return Bearer{Kind: KindToken, AccountID: accountID}
}

// IsAnonymous reports whether the bearer carries no identity.
func (b Bearer) IsAnonymous() bool {
	return b.ID == "" && b.Role == RoleNone
}

// Is reports whether the bearer's role is one of the given roles.
func (b Bearer) Is(roles ...Role) bool {
	for _, r := range roles {
		if b.Role == r {
			return true
		}
	}
	return false
}

// SameRecord reports whether the bearer is the record identified by kind and
// id. Used by ownership guards, e.g. "bearer is the product that owns this
// license".
func (b Bearer) SameRecord(kind Kind, id string) bool {
	return b.Kind == kind && b.ID != "" && b.ID == id
}

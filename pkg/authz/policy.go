package authz

import "github.com/keylinehq/keyline/pkg/bearer"

// Actions evaluated by resource policies.
const (
	ActionIndex   = "index"
	ActionShow    = "show"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDestroy = "destroy"
)

// Effect is a terminal authorization outcome.
type Effect int

const (
	Deny Effect = iota
	Allow
)

// Decision is the result of evaluating one action. The action is exposed so
// callers can map denials: read actions surface not-found, write actions
// surface forbidden.
type Decision struct {
	Effect Effect
	Action string
}

// Allowed reports whether the decision permits the action.
func (d Decision) Allowed() bool {
	return d.Effect == Allow
}

// HidesExistence reports whether a denial of this action must be surfaced as
// not-found rather than forbidden.
func (d Decision) HidesExistence() bool {
	return d.Action == ActionIndex || d.Action == ActionShow
}

// Guard is an instance-level predicate applied after the role match. A nil
// guard means the role alone suffices.
type Guard[T any] func(b bearer.Bearer, record T) bool

// Rule allows an action for the listed roles, optionally constrained by a
// guard. An empty role list matches any bearer, including anonymous ones.
type Rule[T any] struct {
	Roles []bearer.Role
	Guard Guard[T]
}

func (r Rule[T]) matches(b bearer.Bearer, record T) bool {
	if len(r.Roles) > 0 && !b.Is(r.Roles...) {
		return false
	}
	if r.Guard != nil && !r.Guard(b, record) {
		return false
	}
	return true
}

// Policy is the rule table for one resource type. Permissions maps each
// action to the registry permission it requires; Rules guards singular
// records and CollectionRules guards already-scoped pages.
type Policy[T any] struct {
	Permissions     map[string]string
	Rules           map[string][]Rule[T]
	CollectionRules map[string][]Rule[[]T]
}

// Authorize evaluates a singular action against one record. First match
// wins; no match is a deny.
func (p *Policy[T]) Authorize(b bearer.Bearer, action string, record T) Decision {
	if !p.verify(b, action) {
		return Decision{Effect: Deny, Action: action}
	}
	for _, rule := range p.Rules[action] {
		if rule.matches(b, record) {
			return Decision{Effect: Allow, Action: action}
		}
	}
	return Decision{Effect: Deny, Action: action}
}

// AuthorizeAll evaluates a collection action against an already-scoped page.
// Guards see the whole page; a guard over an empty page passes trivially.
func (p *Policy[T]) AuthorizeAll(b bearer.Bearer, action string, records []T) Decision {
	if !p.verify(b, action) {
		return Decision{Effect: Deny, Action: action}
	}
	for _, rule := range p.CollectionRules[action] {
		if rule.matches(b, records) {
			return Decision{Effect: Allow, Action: action}
		}
	}
	return Decision{Effect: Deny, Action: action}
}

// verify runs the base permission check. An action missing from the
// permission map is unknown and denies outright.
func (p *Policy[T]) verify(b bearer.Bearer, action string) bool {
	perm, ok := p.Permissions[action]
	if !ok {
		return false
	}
	return HasPermission(b, perm)
}

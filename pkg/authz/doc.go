// Package authz implements deny-by-default authorization for Keyline.
//
// Authorization is two-phase. The permission registry first checks that the
// bearer's effective permission set (role defaults plus explicit token
// grants) covers the dot-namespaced action; a missing permission denies
// immediately and no further rules are consulted. The policy evaluator then
// pattern-matches the bearer's role against a per-resource-type rule table,
// where each rule may attach a guard predicate tying the bearer to the
// resource instance (ownership). A bearer whose role matches no rule, or
// whose guard fails, falls through to deny.
//
// Collection (index) rules evaluate the already tenant/ownership-scoped page
// as a whole: an empty page passes trivially, and the product-token rule
// requires uniform ownership across every item. Singular (show) rules guard
// the single record. The asymmetry is deliberate.
//
// Decisions are terminal Allow or Deny and carry the evaluated action so
// callers can map read-action denials to not-found responses (existence
// hiding) and write-action denials to forbidden responses.
package authz

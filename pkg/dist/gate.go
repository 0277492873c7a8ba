// Package dist gates release-artifact visibility by product distribution
// strategy and entitlement constraints.
package dist

import "github.com/keylinehq/keyline/pkg/model"

// Artifact pairs a release artifact with the entitlement codes it requires.
// An artifact with no constraints is visible to any bearer the product's
// strategy admits.
type Artifact struct {
	model.ReleaseArtifact
	RequiredEntitlements []string
}

// Access is the resolved licensing state of the requesting bearer for one
// product: whether it holds any license, and the union of entitlement codes
// across its held licenses.
type Access struct {
	Licensed     bool
	Entitlements map[string]struct{}
}

// NewAccess builds an Access from held licenses and their entitlement codes.
func NewAccess(held []model.License, entitlementCodes []string) Access {
	a := Access{Licensed: len(held) > 0, Entitlements: make(map[string]struct{}, len(entitlementCodes))}
	for _, code := range entitlementCodes {
		a.Entitlements[code] = struct{}{}
	}
	return a
}

// Visible reports whether one artifact is visible under the product's
// strategy. Open products admit everyone. Licensed products require a held
// license, and the bearer's entitlement set must cover every constraint on
// the artifact.
func Visible(product model.Product, access Access, artifact Artifact) bool {
	if artifact.Yanked {
		return false
	}
	if product.Open() {
		return true
	}
	if !access.Licensed {
		return false
	}
	for _, required := range artifact.RequiredEntitlements {
		if _, ok := access.Entitlements[required]; !ok {
			return false
		}
	}
	return true
}

// FilterArtifacts evaluates each artifact independently and returns the
// visible subset in order. The result is per-artifact because a bearer may
// be entitled to some releases and not others.
func FilterArtifacts(product model.Product, access Access, artifacts []Artifact) []Artifact {
	visible := make([]Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if Visible(product, access, a) {
			visible = append(visible, a)
		}
	}
	return visible
}

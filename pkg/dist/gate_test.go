package dist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keylinehq/keyline/pkg/model"
)

func TestFilterArtifactsLicensed(t *testing.T) {
	product := model.Product{ID: "prod-1", DistributionStrategy: model.DistributionLicensed}
	access := NewAccess([]model.License{{ID: "lic-1"}}, []string{"E1"})

	unconstrained := Artifact{ReleaseArtifact: model.ReleaseArtifact{ID: "art-1"}}
	withinSet := Artifact{ReleaseArtifact: model.ReleaseArtifact{ID: "art-2"}, RequiredEntitlements: []string{"E1"}}
	beyondSet := Artifact{ReleaseArtifact: model.ReleaseArtifact{ID: "art-3"}, RequiredEntitlements: []string{"E1", "E2"}}

	visible := FilterArtifacts(product, access, []Artifact{unconstrained, withinSet, beyondSet})

	ids := make([]string, 0, len(visible))
	for _, a := range visible {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"art-1", "art-2"}, ids)
}

func TestFilterArtifactsUnlicensed(t *testing.T) {
	product := model.Product{ID: "prod-1", DistributionStrategy: model.DistributionLicensed}
	access := NewAccess(nil, nil)

	visible := FilterArtifacts(product, access, []Artifact{
		{ReleaseArtifact: model.ReleaseArtifact{ID: "art-1"}},
	})
	assert.Empty(t, visible)
}

func TestFilterArtifactsOpen(t *testing.T) {
	product := model.Product{ID: "prod-1", DistributionStrategy: model.DistributionOpen}
	access := NewAccess(nil, nil)

	visible := FilterArtifacts(product, access, []Artifact{
		{ReleaseArtifact: model.ReleaseArtifact{ID: "art-1"}},
		{ReleaseArtifact: model.ReleaseArtifact{ID: "art-2"}, RequiredEntitlements: []string{"E1"}},
	})
	// Open distribution bypasses licensing entirely, constraints included.
	assert.Len(t, visible, 2)
}

func TestYankedArtifactsHidden(t *testing.T) {
	product := model.Product{ID: "prod-1", DistributionStrategy: model.DistributionOpen}

	visible := FilterArtifacts(product, NewAccess(nil, nil), []Artifact{
		{ReleaseArtifact: model.ReleaseArtifact{ID: "art-1", Yanked: true}},
	})
	assert.Empty(t, visible)
}

package matching

import (
	"testing"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func donor(id string, bg models.BloodGroup, city string, emergency bool, organs ...models.OrganType) models.Donor {
	return models.Donor{
		ID:                    id,
		BloodGroup:            bg,
		OrganOffered:          organs,
		City:                  city,
		Region:                "north",
		AvailableForEmergency: emergency,
		Active:                true,
	}
}

func TestEvaluate_BloodCompatibilityTable(t *testing.T) {
	compatible := map[models.BloodGroup][]models.BloodGroup{
		models.BloodOMinus:  models.BloodGroups,
		models.BloodOPlus:   {models.BloodOPlus, models.BloodAPlus, models.BloodBPlus, models.BloodABPlus},
		models.BloodAMinus:  {models.BloodAMinus, models.BloodAPlus, models.BloodABMinus, models.BloodABPlus},
		models.BloodAPlus:   {models.BloodAPlus, models.BloodABPlus},
		models.BloodBMinus:  {models.BloodBMinus, models.BloodBPlus, models.BloodABMinus, models.BloodABPlus},
		models.BloodBPlus:   {models.BloodBPlus, models.BloodABPlus},
		models.BloodABMinus: {models.BloodABMinus, models.BloodABPlus},
		models.BloodABPlus:  {models.BloodABPlus},
	}
	e := NewEvaluator(DefaultWeights())

	pairs := 0
	for _, dg := range models.BloodGroups {
		for _, rg := range models.BloodGroups {
			pairs++
			want := false
			for _, c := range compatible[dg] {
				if c == rg {
					want = true
				}
			}
			d := donor("d", dg, "cityA", false, models.Kidney)
			r := models.Request{ID: "r", OrganType: models.Kidney, BloodGroup: rg, UrgencyLevel: models.UrgencyMedium}

			v := e.Evaluate(d, r)
			assert.Equalf(t, want, v.Eligible, "donor %s -> recipient %s", dg, rg)
			if !want {
				assert.Equal(t, RuleBlood, v.FailedRule)
			}
		}
	}
	require.Equal(t, 64, pairs)
}

func TestEvaluate_RulesShortCircuitInOrder(t *testing.T) {
	e := NewEvaluator(DefaultWeights())
	r := models.Request{ID: "r", OrganType: models.Liver, BloodGroup: models.BloodOMinus, UrgencyLevel: models.UrgencyLow}

	d := donor("d", models.BloodABPlus, "cityA", false, models.Kidney)
	d.Active = false
	v := e.Evaluate(d, r)
	require.False(t, v.Eligible)
	assert.Equal(t, RuleOrgan, v.FailedRule)
	assert.Zero(t, v.Score)

	d.OrganOffered = []models.OrganType{models.Liver}
	v = e.Evaluate(d, r)
	assert.Equal(t, RuleBlood, v.FailedRule)

	d.BloodGroup = models.BloodOMinus
	v = e.Evaluate(d, r)
	assert.Equal(t, RuleDonorActive, v.FailedRule)

	d.Active = true
	v = e.Evaluate(d, r)
	assert.True(t, v.Eligible)
}

func TestEvaluate_ScenarioUniversalDonorCriticalKidney(t *testing.T) {
	e := NewEvaluator(DefaultWeights())
	d1 := donor("D1", models.BloodOMinus, "cityA", true, models.Kidney)
	r1 := models.Request{ID: "R1", OrganType: models.Kidney, BloodGroup: models.BloodOPlus, UrgencyLevel: models.UrgencyCritical, City: "cityA"}

	v := e.Evaluate(d1, r1)
	require.True(t, v.Eligible)
	assert.Equal(t, 85.0, v.Score)
	assert.Contains(t, v.Reasons, "blood: compatible")
	assert.Contains(t, v.Reasons, "emergency availability")
}

func TestEvaluate_Scoring(t *testing.T) {
	e := NewEvaluator(DefaultWeights())
	tests := []struct {
		name    string
		donor   models.Donor
		request models.Request
		want    float64
	}{
		{
			name:    "exact blood, same city, high urgency, emergency donor",
			donor:   donor("d", models.BloodAPlus, "cityA", true, models.Heart),
			request: models.Request{OrganType: models.Heart, BloodGroup: models.BloodAPlus, UrgencyLevel: models.UrgencyHigh, City: "CITYA"},
			want:    40 + 30 + 10 + 10,
		},
		{
			name:    "same region only",
			donor:   donor("d", models.BloodAPlus, "cityA", false, models.Heart),
			request: models.Request{OrganType: models.Heart, BloodGroup: models.BloodAPlus, UrgencyLevel: models.UrgencyMedium, City: "cityB", Region: "north"},
			want:    40 + 15 + 5,
		},
		{
			name:    "distant, low urgency, emergency bonus not applied",
			donor:   donor("d", models.BloodOMinus, "cityA", true, models.Cornea),
			request: models.Request{OrganType: models.Cornea, BloodGroup: models.BloodBPlus, UrgencyLevel: models.UrgencyLow, City: "cityZ", Region: "south"},
			want:    25 + 5,
		},
		{
			name:    "empty locations never match",
			donor:   models.Donor{BloodGroup: models.BloodOPlus, OrganOffered: []models.OrganType{models.Lung}, Active: true},
			request: models.Request{OrganType: models.Lung, BloodGroup: models.BloodOPlus, UrgencyLevel: models.UrgencyCritical},
			want:    40 + 5 + 20,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := e.Evaluate(tt.donor, tt.request)
			require.True(t, v.Eligible)
			assert.Equal(t, tt.want, v.Score)
		})
	}
}

func TestEvaluate_CustomWeightsAreNormalized(t *testing.T) {
	w := DefaultWeights()
	w.Emergency = 0
	w.UrgencyCritical = 10
	require.NoError(t, w.Validate())

	e := NewEvaluator(w)
	d := donor("d", models.BloodOPlus, "cityA", true, models.Kidney)
	r := models.Request{OrganType: models.Kidney, BloodGroup: models.BloodOPlus, UrgencyLevel: models.UrgencyCritical, City: "cityA"}

	v := e.Evaluate(d, r)
	assert.Equal(t, 100.0, v.Score)
}

func TestWeights_Validate(t *testing.T) {
	w := DefaultWeights()
	w.SameCity = -1
	assert.Error(t, w.Validate())

	assert.Error(t, Weights{}.Validate())
	assert.NoError(t, DefaultWeights().Validate())
}

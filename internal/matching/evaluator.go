package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/senyabanana/organ-match-service/internal/models"
)

// Rule - жесткое правило, по которому пара может быть отклонена.
type Rule string

const (
	RuleOrgan       Rule = "organ"
	RuleBlood       Rule = "blood"
	RuleDonorActive Rule = "donor_active"
)

// Verdict - результат оценки пары донор-запрос.
type Verdict struct {
	Eligible   bool     `json:"eligible"`
	Score      float64  `json:"score"`
	Reasons    []string `json:"reasons"`
	FailedRule Rule     `json:"failedRule,omitempty"`
}

// Evaluator оценивает совместимость донора и запроса. Не имеет побочных эффектов.
type Evaluator struct {
	weights Weights
}

// NewEvaluator создает оценщик с заданными весами.
func NewEvaluator(weights Weights) *Evaluator {
	return &Evaluator{weights: weights}
}

// Evaluate применяет жесткие правила по порядку и, если пара допустима, считает балл.
func (e *Evaluator) Evaluate(donor models.Donor, request models.Request) Verdict {
	if !donor.Offers(request.OrganType) {
		return ineligible(RuleOrgan, fmt.Sprintf("donor %s does not offer %s", donor.ID, request.OrganType))
	}
	if !donor.BloodGroup.CanDonateTo(request.BloodGroup) {
		return ineligible(RuleBlood, fmt.Sprintf("blood group %s cannot donate to %s", donor.BloodGroup, request.BloodGroup))
	}
	if !donor.Active {
		return ineligible(RuleDonorActive, fmt.Sprintf("donor %s is not active", donor.ID))
	}

	w := e.weights
	var raw float64
	var reasons []string

	if donor.BloodGroup == request.BloodGroup {
		raw += w.BloodExact
		reasons = append(reasons, "blood: exact")
	} else {
		raw += w.BloodCompatible
		reasons = append(reasons, "blood: compatible")
	}

	switch {
	case sameLocation(donor.City, request.City):
		raw += w.SameCity
		reasons = append(reasons, "proximity: same city")
	case sameLocation(donor.Region, request.Region):
		raw += w.SameRegion
		reasons = append(reasons, "proximity: same region")
	default:
		raw += w.Distant
		reasons = append(reasons, "proximity: distant")
	}

	raw += w.urgency(request.UrgencyLevel)
	reasons = append(reasons, "urgency: "+string(request.UrgencyLevel))

	if donor.AvailableForEmergency && request.UrgencyLevel.Rank() >= models.UrgencyHigh.Rank() {
		raw += w.Emergency
		reasons = append(reasons, "emergency availability")
	}

	return Verdict{
		Eligible: true,
		Score:    normalize(raw, w.max()),
		Reasons:  reasons,
	}
}

func ineligible(rule Rule, reason string) Verdict {
	return Verdict{Eligible: false, FailedRule: rule, Reasons: []string{reason}}
}

// sameLocation сравнивает идентификаторы без учета регистра; пустые значения не совпадают.
func sameLocation(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func normalize(raw, max float64) float64 {
	if max <= 0 {
		return 0
	}
	score := raw / max * 100
	// округляем до сотых, чтобы избежать шума плавающей точки при сравнении
	return math.Round(score*100) / 100
}

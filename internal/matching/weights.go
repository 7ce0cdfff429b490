package matching

import (
	"fmt"

	"github.com/senyabanana/organ-match-service/internal/models"
)

// Weights задает баллы оценки совместимости.
type Weights struct {
	BloodExact      float64 `mapstructure:"WEIGHT_BLOOD_EXACT"`
	BloodCompatible float64 `mapstructure:"WEIGHT_BLOOD_COMPATIBLE"`
	SameCity        float64 `mapstructure:"WEIGHT_SAME_CITY"`
	SameRegion      float64 `mapstructure:"WEIGHT_SAME_REGION"`
	Distant         float64 `mapstructure:"WEIGHT_DISTANT"`
	UrgencyCritical float64 `mapstructure:"WEIGHT_URGENCY_CRITICAL"`
	UrgencyHigh     float64 `mapstructure:"WEIGHT_URGENCY_HIGH"`
	UrgencyMedium   float64 `mapstructure:"WEIGHT_URGENCY_MEDIUM"`
	UrgencyLow      float64 `mapstructure:"WEIGHT_URGENCY_LOW"`
	Emergency       float64 `mapstructure:"WEIGHT_EMERGENCY"`
}

// DefaultWeights возвращает эталонные веса.
func DefaultWeights() Weights {
	return Weights{
		BloodExact:      40,
		BloodCompatible: 25,
		SameCity:        30,
		SameRegion:      15,
		Distant:         5,
		UrgencyCritical: 20,
		UrgencyHigh:     10,
		UrgencyMedium:   5,
		UrgencyLow:      0,
		Emergency:       10,
	}
}

// Validate проверяет, что веса неотрицательны и максимум положителен.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"blood exact":      w.BloodExact,
		"blood compatible": w.BloodCompatible,
		"same city":        w.SameCity,
		"same region":      w.SameRegion,
		"distant":          w.Distant,
		"urgency critical": w.UrgencyCritical,
		"urgency high":     w.UrgencyHigh,
		"urgency medium":   w.UrgencyMedium,
		"urgency low":      w.UrgencyLow,
		"emergency":        w.Emergency,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %v", name, v)
		}
	}
	if w.max() <= 0 {
		return fmt.Errorf("weights must allow a positive maximum score")
	}
	return nil
}

func (w Weights) urgency(u models.UrgencyLevel) float64 {
	switch u {
	case models.UrgencyCritical:
		return w.UrgencyCritical
	case models.UrgencyHigh:
		return w.UrgencyHigh
	case models.UrgencyMedium:
		return w.UrgencyMedium
	default:
		return w.UrgencyLow
	}
}

// max - максимально достижимая сумма баллов, используется для нормализации в [0,100].
func (w Weights) max() float64 {
	return maxOf(w.BloodExact, w.BloodCompatible) +
		maxOf(w.SameCity, w.SameRegion, w.Distant) +
		maxOf(w.UrgencyCritical, w.UrgencyHigh, w.UrgencyMedium, w.UrgencyLow) +
		w.Emergency
}

func maxOf(vs ...float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Package scoring derives the four desirability sub-scores and the composite
// score for a vehicle. The engine is pure: output depends only on the
// snapshot, the preference profile and the snapshot date.
package scoring

import (
	"time"

	"github.com/shopspring/decimal"

	"lotwatch/internal/domain"
)

// Reference ranges for value-efficiency ratios (EUR per unit). A ratio at the
// low bound scores 100, at the high bound 0, linear in between.
const (
	refPricePerKmMin = 0.5
	refPricePerKmMax = 15.0

	refPricePerKWMin = 100.0
	refPricePerKWMax = 500.0

	refPricePerRangeMin = 50.0
	refPricePerRangeMax = 250.0
)

// Age/usage parameters.
const (
	ageZeroScoreMonths = 120.0 // a ten-year-old vehicle scores 0 on age
	annualKmZeroScore  = 40000.0
	minAgeYearsFloor   = 0.25 // guards annualized mileage against near-zero age

	// Listings younger than this lack depreciation-adjusted value and are
	// penalized.
	newnessThresholdMonths = 6
	newnessPenalty         = 15.0
)

// Performance/range saturation points.
const (
	rangeSaturationKM = 500.0
	powerSaturationKW = 300.0
)

// Score computes the full bundle for one snapshot. The snapshot's own scrape
// timestamp supplies the reference date for age calculations.
func Score(s *domain.VehicleSnapshot, profile *domain.PreferenceProfile) domain.ScoreBundle {
	b := domain.ScoreBundle{
		ValueEfficiency:  valueEfficiencyScore(s),
		AgeUsage:         ageUsageScore(s, s.ScrapedAt),
		PerformanceRange: performanceRangeScore(s),
		Equipment:        equipmentScore(s.Equipment, profile),
	}
	b.Composite = compositeScore(b)
	return b
}

// valueEfficiencyScore combines price-per-km, price-per-kW and
// price-per-battery-range. A ratio whose denominator is zero or undefined is
// excluded from the combination, not treated as zero.
func valueEfficiencyScore(s *domain.VehicleSnapshot) *float64 {
	var parts []float64

	if s.Kilometers > 0 {
		ratio := ratioOf(s.Price, s.Kilometers)
		parts = append(parts, normalizeInverse(ratio, refPricePerKmMin, refPricePerKmMax))
	}
	if s.PowerKW != nil && *s.PowerKW > 0 {
		ratio := ratioOf(s.Price, *s.PowerKW)
		parts = append(parts, normalizeInverse(ratio, refPricePerKWMin, refPricePerKWMax))
	}
	if s.BatteryRangeKM != nil && *s.BatteryRangeKM > 0 {
		ratio := ratioOf(s.Price, *s.BatteryRangeKM)
		parts = append(parts, normalizeInverse(ratio, refPricePerRangeMin, refPricePerRangeMax))
	}

	if len(parts) == 0 {
		return nil
	}
	return ptr(clip(mean(parts)))
}

// ratioOf divides a decimal price by an integer denominator without going
// through float arithmetic first.
func ratioOf(price decimal.Decimal, denom int) float64 {
	return price.Div(decimal.NewFromInt(int64(denom))).InexactFloat64()
}

// normalizeInverse maps a ratio onto [0,100] where lower is better.
func normalizeInverse(ratio, refMin, refMax float64) float64 {
	return clip(100 * (1 - (ratio-refMin)/(refMax-refMin)))
}

// ageUsageScore blends vehicle age and annualized mileage, both normalized so
// newer and less-driven score higher. Undefined without a registration date.
func ageUsageScore(s *domain.VehicleSnapshot, asOf time.Time) *float64 {
	if s.RegistrationDate == nil {
		return nil
	}

	months := monthsBetween(*s.RegistrationDate, asOf)
	if months < 0 {
		months = 0
	}
	ageScore := clip(100 * (1 - float64(months)/ageZeroScoreMonths))

	years := float64(months) / 12
	if years < minAgeYearsFloor {
		years = minAgeYearsFloor
	}
	annualKm := float64(s.Kilometers) / years
	mileageScore := clip(100 * (1 - annualKm/annualKmZeroScore))

	score := (ageScore + mileageScore) / 2
	if months < newnessThresholdMonths {
		score -= newnessPenalty
	}
	return ptr(clip(score))
}

// performanceRangeScore averages range adequacy and power adequacy, each
// linear up to its saturation point. A missing battery range (non-electric
// vehicle) falls back to power adequacy alone.
func performanceRangeScore(s *domain.VehicleSnapshot) *float64 {
	var parts []float64
	if s.BatteryRangeKM != nil {
		parts = append(parts, clip(100*float64(*s.BatteryRangeKM)/rangeSaturationKM))
	}
	if s.PowerKW != nil {
		parts = append(parts, clip(100*float64(*s.PowerKW)/powerSaturationKW))
	}
	if len(parts) == 0 {
		return nil
	}
	return ptr(mean(parts))
}

// equipmentScore is the matched fraction of the desired equipment set.
// Undefined (not zero) when no desired equipment is configured.
func equipmentScore(items []domain.EquipmentItem, profile *domain.PreferenceProfile) *float64 {
	desired := profile.DesiredSet()
	if len(desired) == 0 {
		return nil
	}

	matched := make(map[string]struct{})
	for _, item := range items {
		name := domain.NormalizeEquipmentText(item.Name)
		if _, ok := desired[name]; ok {
			matched[name] = struct{}{}
		}
	}
	return ptr(100 * float64(len(matched)) / float64(len(desired)))
}

// compositeScore is the equal-weighted mean over the defined sub-scores, with
// weights renormalized when some are undefined. Undefined only if all four are.
func compositeScore(b domain.ScoreBundle) *float64 {
	var parts []float64
	for _, sub := range []*float64{b.ValueEfficiency, b.AgeUsage, b.PerformanceRange, b.Equipment} {
		if sub != nil {
			parts = append(parts, *sub)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return ptr(mean(parts))
}

// monthsBetween counts whole calendar months from a to b.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func ptr(v float64) *float64 { return &v }

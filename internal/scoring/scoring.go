// Package scoring derives the per-vehicle metric set attached to each
// snapshot before reconciliation. Scores are relative to the snapshot
// they were computed in: most of them min-max normalize across the
// batch, so the same car can score differently as the market around it
// moves.
package scoring

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"InventoryTracker/internal/domain"
)

var yearExpr = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Calculate computes the full score set for every vehicle in the
// snapshot. Vehicles missing the inputs of a given score get nil for
// that score rather than a default.
func Calculate(snapshot []domain.Vehicle, prefs Preferences, now time.Time) map[int64]domain.ScoreSet {
	scores := make(map[int64]domain.ScoreSet, len(snapshot))
	if len(snapshot) == 0 {
		return scores
	}

	pricePerKW := make([]*float64, len(snapshot))
	pricePerRange := make([]*float64, len(snapshot))
	rangeEfficiency := make([]*float64, len(snapshot))
	mileage := make([]*float64, len(snapshot))
	equipmentRaw := make([]*float64, len(snapshot))

	for i, vehicle := range snapshot {
		pricePerKW[i] = ratio(vehicle.Price, vehicle.PowerKW)
		pricePerRange[i] = ratio(vehicle.Price, vehicle.RangeKM)
		rangeEfficiency[i] = ratio(vehicle.RangeKM, vehicle.PowerKW)
		mileage[i] = vehicle.Kilometers
		equipmentRaw[i] = equipmentRawScore(vehicle, prefs)
	}

	pricePerKWScore := normalize(pricePerKW, lowerIsBetter, 50)
	pricePerRangeScore := normalize(pricePerRange, lowerIsBetter, 50)
	rangeEfficiencyScore := normalize(rangeEfficiency, higherIsBetter, 50)
	// A snapshot where every car has the same mileage scores them all
	// at the top rather than the middle.
	mileageScore := normalize(mileage, lowerIsBetter, 100)
	equipmentScore := normalize(equipmentRaw, higherIsBetter, 50)

	for i, vehicle := range snapshot {
		var set domain.ScoreSet

		set.ValueEfficiency = meanOf(pricePerKWScore[i], pricePerRangeScore[i])

		yearScore := yearScore(vehicle.RegistrationDate, now)
		set.AgeUsage = weightedSum(
			term{yearScore, 0.5},
			term{mileageScore[i], 0.5},
		)

		set.PerformanceRange = weightedSum(
			term{rangeAdequacyScore(vehicle.RangeKM), 0.4},
			term{powerAdequacyScore(vehicle.PowerKW), 0.3},
			term{rangeEfficiencyScore[i], 0.3},
		)

		set.Equipment = equipmentScore[i]

		set.Final = weightedSum(
			term{set.ValueEfficiency, 0.25},
			term{set.AgeUsage, 0.25},
			term{set.PerformanceRange, 0.25},
			term{set.Equipment, 0.25},
		)

		scores[vehicle.ID] = set
	}

	return scores
}

func ratio(numerator, denominator *float64) *float64 {
	if numerator == nil || denominator == nil || *denominator <= 0 {
		return nil
	}
	value := *numerator / *denominator
	return &value
}

type direction int

const (
	lowerIsBetter direction = iota
	higherIsBetter
)

// normalize min-max scales the present values to 0-100. When every
// present value is identical there is no spread to rank on, and each
// gets the provided flat score.
func normalize(values []*float64, dir direction, flat float64) []*float64 {
	var (
		min, max float64
		any      bool
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		if !any || *v < min {
			min = *v
		}
		if !any || *v > max {
			max = *v
		}
		any = true
	}

	out := make([]*float64, len(values))
	if !any {
		return out
	}

	for i, v := range values {
		if v == nil {
			continue
		}
		var score float64
		switch {
		case max == min:
			score = flat
		case dir == lowerIsBetter:
			score = 100 * (1 - (*v-min)/(max-min))
		default:
			score = 100 * (*v - min) / (max - min)
		}
		out[i] = &score
	}
	return out
}

func meanOf(values ...*float64) *float64 {
	var (
		sum   float64
		count int
	)
	for _, v := range values {
		if v != nil {
			sum += *v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}

type term struct {
	value  *float64
	weight float64
}

// weightedSum adds the present terms with their weights. Absent terms
// drop out without renormalizing the remaining weights.
func weightedSum(terms ...term) *float64 {
	var (
		sum float64
		any bool
	)
	for _, t := range terms {
		if t.value != nil {
			sum += *t.value * t.weight
			any = true
		}
	}
	if !any {
		return nil
	}
	return &sum
}

// yearScore rewards recent registration years: the current year scores
// 100, each of the first five years back costs 10 points, and every
// year beyond that costs 5 more, floored at 0.
func yearScore(registrationDate string, now time.Time) *float64 {
	match := yearExpr.FindString(registrationDate)
	if match == "" {
		return nil
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}

	diff := now.Year() - year
	var score float64
	switch {
	case diff <= 0:
		score = 100
	case diff <= 5:
		score = float64(100 - diff*10)
	default:
		score = float64(50 - (diff-5)*5)
		if score < 0 {
			score = 0
		}
	}
	return &score
}

func rangeAdequacyScore(rangeKM *float64) *float64 {
	if rangeKM == nil {
		return nil
	}
	var score float64
	switch {
	case *rangeKM >= 500:
		score = 100
	case *rangeKM >= 450:
		score = 90
	case *rangeKM >= 400:
		score = 80
	case *rangeKM >= 350:
		score = 60
	case *rangeKM >= 300:
		score = 40
	default:
		score = 20
	}
	return &score
}

func powerAdequacyScore(powerKW *float64) *float64 {
	if powerKW == nil {
		return nil
	}
	var score float64
	switch {
	case *powerKW >= 300:
		score = 100
	case *powerKW >= 250:
		score = 90
	case *powerKW >= 200:
		score = 80
	case *powerKW >= 150:
		score = 60
	case *powerKW >= 100:
		score = 40
	default:
		score = 20
	}
	return &score
}

// equipmentRawScore counts two points per desired equipment item and
// one per other item, across the deduplicated union of all categories.
func equipmentRawScore(vehicle domain.Vehicle, prefs Preferences) *float64 {
	if prefs.Empty() || len(vehicle.Equipment) == 0 {
		return nil
	}

	items := map[string]struct{}{}
	for _, names := range vehicle.Equipment {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name != "" {
				items[name] = struct{}{}
			}
		}
	}
	if len(items) == 0 {
		return nil
	}

	var raw float64
	for item := range items {
		if _, ok := prefs.Desired[item]; ok {
			raw += 2
		} else {
			raw++
		}
	}
	return &raw
}

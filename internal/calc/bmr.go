package calc

import (
	"fmt"
	"math"

	"alcyxob/nutrition-app/internal/domain"
)

// CalculateBMR computes basal metabolic rate using the selected formula.
// An empty formula defaults to Mifflin-St Jeor. Katch-McArdle requires a
// body-fat percentage (it works off lean body mass) and fails validation
// without one.
func CalculateBMR(in Inputs) (domain.BMRResult, error) {
	formula := in.Formula
	if formula == "" {
		formula = domain.FormulaMifflinStJeor
	}

	inputs := map[string]float64{
		"weightKg": in.WeightKG,
		"heightCm": in.HeightCM,
		"age":      float64(in.Age),
	}

	var value float64
	var rationale string

	switch formula {
	case domain.FormulaMifflinStJeor:
		value = 10*in.WeightKG + 6.25*in.HeightCM - 5*float64(in.Age)
		if in.Gender == domain.GenderMale {
			value += 5
		} else {
			value -= 161
		}
		rationale = fmt.Sprintf(
			"Mifflin-St Jeor for a %d-year-old %s at %.1fkg, %.0fcm. Generally the most accurate estimate without body-fat data.",
			in.Age, in.Gender, in.WeightKG, in.HeightCM)

	case domain.FormulaHarrisBenedict:
		if in.Gender == domain.GenderMale {
			value = 88.362 + 13.397*in.WeightKG + 4.799*in.HeightCM - 5.677*float64(in.Age)
		} else {
			value = 447.593 + 9.247*in.WeightKG + 3.098*in.HeightCM - 4.330*float64(in.Age)
		}
		rationale = fmt.Sprintf(
			"Revised Harris-Benedict for a %d-year-old %s at %.1fkg, %.0fcm.",
			in.Age, in.Gender, in.WeightKG, in.HeightCM)

	case domain.FormulaKatchMcArdle:
		if in.BodyFatPct == nil {
			return domain.BMRResult{}, validationErr("bodyFatPct",
				"Katch-McArdle requires body-fat percentage to derive lean body mass")
		}
		bf := *in.BodyFatPct
		if bf <= 0 || bf >= 100 {
			return domain.BMRResult{}, validationErr("bodyFatPct", "must be between 0 and 100")
		}
		lbm := in.WeightKG * (1 - bf/100)
		value = 370 + 21.6*lbm
		inputs["bodyFatPct"] = bf
		inputs["leanBodyMassKg"] = math.Round(lbm*10) / 10
		rationale = fmt.Sprintf(
			"Katch-McArdle from %.1fkg lean body mass (%.1fkg at %.1f%% body fat). Preferred when body composition is known.",
			lbm, in.WeightKG, bf)

	default:
		return domain.BMRResult{}, validationErr("formula", fmt.Sprintf("unsupported value %q", formula))
	}

	return domain.BMRResult{
		Value:     math.Round(value),
		Formula:   formula,
		Inputs:    inputs,
		Rationale: rationale,
	}, nil
}

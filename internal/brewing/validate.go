package brewing

import (
	"fmt"
	"strings"
	"time"
)

// Candidate is the immutable payload a recipe version proposes for validation.
// Optional measurements are pointers so "absent" and "zero" stay distinct.
type Candidate struct {
	BrewMethod         BrewMethod
	DrinkType          DrinkType
	DoseGrams          *float64
	YieldWeightGrams   *float64
	YieldVolumeMl      *float64
	TimeSeconds        *int64
	TemperatureCelsius *float64
	RoastDate          *time.Time
	GrindDate          *time.Time
	Preparations       []string
}

// Result carries the collected outcome of both validation tiers. Warnings are
// advisory and never block a write.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate runs both tiers and merges their findings.
func Validate(candidate Candidate) Result {
	hardErrors := ValidateHard(candidate)
	return Result{
		Valid:    len(hardErrors) == 0,
		Errors:   hardErrors,
		Warnings: ValidateSoft(candidate),
	}
}

// ValidateHard collects every blocking rule violation. Rules are evaluated
// independently so the caller receives the complete set in one pass.
func ValidateHard(candidate Candidate) []string {
	var findings []string

	if !MethodProduces(candidate.BrewMethod, candidate.DrinkType) {
		findings = append(findings, fmt.Sprintf(
			"brew method %s cannot produce drink type %s",
			candidate.BrewMethod, candidate.DrinkType))
	}

	if candidate.RoastDate != nil && candidate.GrindDate != nil &&
		candidate.GrindDate.Before(*candidate.RoastDate) {
		findings = append(findings, "grind date cannot precede roast date")
	}

	if candidate.DoseGrams == nil {
		findings = append(findings, "dose is required")
	} else if *candidate.DoseGrams <= 0 {
		findings = append(findings, fmt.Sprintf("dose must be positive, got %.2fg", *candidate.DoseGrams))
	}

	return findings
}

// ValidateSoft collects every advisory finding.
func ValidateSoft(candidate Candidate) []string {
	var findings []string

	if ratio, ok := BrewRatio(candidate.DoseGrams, candidate.YieldWeightGrams); ok {
		window := RatioWindow(candidate.DrinkType)
		if !window.Contains(ratio) {
			findings = append(findings, fmt.Sprintf(
				"brew ratio 1:%.2f is outside the typical 1:%.1f-1:%.1f range for %s",
				ratio, window.Min, window.Max, candidate.DrinkType))
		}
	}

	if candidate.TimeSeconds != nil {
		extraction := time.Duration(*candidate.TimeSeconds) * time.Second
		window := TimeWindow(candidate.BrewMethod)
		if !window.Contains(extraction) {
			findings = append(findings, fmt.Sprintf(
				"extraction time %s is outside the typical %s-%s range for %s",
				formatDuration(extraction), formatDuration(window.Min), formatDuration(window.Max),
				candidate.BrewMethod))
		}
	} else if candidate.BrewMethod == BrewMethodEspressoMachine {
		findings = append(findings, "extraction time is usually recorded for espresso machine brews")
	}

	if candidate.TemperatureCelsius != nil {
		window := TemperatureWindow(candidate.BrewMethod)
		if !window.Contains(*candidate.TemperatureCelsius) {
			findings = append(findings, fmt.Sprintf(
				"brew temperature %.1f°C is outside the typical %.0f-%.0f°C range for %s",
				*candidate.TemperatureCelsius, window.Min, window.Max, candidate.BrewMethod))
		}
	}

	if !IsMilkDrink(candidate.DrinkType) {
		for _, preparation := range candidate.Preparations {
			if strings.Contains(strings.ToLower(preparation), "milk") {
				findings = append(findings, fmt.Sprintf(
					"preparation %q suggests a milk drink but drink type is %s",
					preparation, candidate.DrinkType))
			}
		}
	}

	return findings
}

// BrewRatio derives yield-by-weight divided by dose. The boolean reports
// whether both inputs were present and usable.
func BrewRatio(doseGrams, yieldWeightGrams *float64) (float64, bool) {
	if doseGrams == nil || yieldWeightGrams == nil || *doseGrams <= 0 {
		return 0, false
	}
	return *yieldWeightGrams / *doseGrams, true
}

// FlowRate derives yield-by-volume divided by extraction time in ml/s.
func FlowRate(yieldVolumeMl *float64, timeSeconds *int64) (float64, bool) {
	if yieldVolumeMl == nil || timeSeconds == nil || *timeSeconds <= 0 {
		return 0, false
	}
	return *yieldVolumeMl / float64(*timeSeconds), true
}

// formatDuration renders a duration in the coarsest unit of seconds, minutes
// or hours that divides it evenly.
func formatDuration(value time.Duration) string {
	seconds := int64(value / time.Second)
	switch {
	case seconds != 0 && seconds%3600 == 0:
		return fmt.Sprintf("%dh", seconds/3600)
	case seconds != 0 && seconds%60 == 0:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

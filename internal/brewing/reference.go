package brewing

import (
	"fmt"
	"time"
)

// Window bounds a typical value range for a brewing parameter.
type Window struct {
	Min float64
	Max float64
}

// Contains reports whether the value falls inside the inclusive window.
func (w Window) Contains(value float64) bool {
	return value >= w.Min && value <= w.Max
}

// DurationWindow bounds a typical extraction time range.
type DurationWindow struct {
	Min time.Duration
	Max time.Duration
}

// Contains reports whether the duration falls inside the inclusive window.
func (w DurationWindow) Contains(value time.Duration) bool {
	return value >= w.Min && value <= w.Max
}

// methodDrinks lists which drink types each brew method can produce.
// Pairs absent from this table are rejected by hard validation.
var methodDrinks = map[BrewMethod][]DrinkType{
	BrewMethodEspressoMachine: {
		DrinkTypeEspresso,
		DrinkTypeRistretto,
		DrinkTypeLungo,
		DrinkTypeAmericano,
		DrinkTypeLatte,
		DrinkTypeCappuccino,
		DrinkTypeFlatWhite,
		DrinkTypeCortado,
		DrinkTypeIcedCoffee,
	},
	BrewMethodPourOver: {
		DrinkTypePourOver,
		DrinkTypeIcedCoffee,
	},
	BrewMethodFrenchPress: {
		DrinkTypeFrenchPress,
		DrinkTypeIcedCoffee,
	},
	BrewMethodAeropress: {
		DrinkTypeAeropress,
		DrinkTypeAmericano,
		DrinkTypeIcedCoffee,
	},
	BrewMethodMokaPot: {
		DrinkTypeMokaPot,
		DrinkTypeAmericano,
		DrinkTypeLatte,
		DrinkTypeCappuccino,
		DrinkTypeIcedCoffee,
	},
	BrewMethodColdBrew: {
		DrinkTypeColdBrew,
		DrinkTypeIcedCoffee,
	},
}

// drinkRatioWindows holds the typical yield-by-weight to dose ratio per drink type.
var drinkRatioWindows = map[DrinkType]Window{
	DrinkTypeEspresso:    {Min: 1.5, Max: 2.5},
	DrinkTypeRistretto:   {Min: 1.0, Max: 1.5},
	DrinkTypeLungo:       {Min: 2.5, Max: 4.0},
	DrinkTypeAmericano:   {Min: 1.5, Max: 4.0},
	DrinkTypeLatte:       {Min: 1.5, Max: 2.5},
	DrinkTypeCappuccino:  {Min: 1.5, Max: 2.5},
	DrinkTypeFlatWhite:   {Min: 1.5, Max: 2.5},
	DrinkTypeCortado:     {Min: 1.0, Max: 2.0},
	DrinkTypePourOver:    {Min: 14.0, Max: 18.0},
	DrinkTypeFrenchPress: {Min: 12.0, Max: 17.0},
	DrinkTypeAeropress:   {Min: 10.0, Max: 18.0},
	DrinkTypeMokaPot:     {Min: 7.0, Max: 12.0},
	DrinkTypeColdBrew:    {Min: 4.0, Max: 10.0},
	DrinkTypeIcedCoffee:  {Min: 10.0, Max: 18.0},
}

// methodTimeWindows holds the typical extraction time per brew method.
var methodTimeWindows = map[BrewMethod]DurationWindow{
	BrewMethodEspressoMachine: {Min: 20 * time.Second, Max: 35 * time.Second},
	BrewMethodPourOver:        {Min: 2 * time.Minute, Max: 5 * time.Minute},
	BrewMethodFrenchPress:     {Min: 3 * time.Minute, Max: 6 * time.Minute},
	BrewMethodAeropress:       {Min: 1 * time.Minute, Max: 3 * time.Minute},
	BrewMethodMokaPot:         {Min: 2 * time.Minute, Max: 6 * time.Minute},
	BrewMethodColdBrew:        {Min: 8 * time.Hour, Max: 24 * time.Hour},
}

// methodTempWindows holds the typical brew water temperature (celsius) per brew method.
var methodTempWindows = map[BrewMethod]Window{
	BrewMethodEspressoMachine: {Min: 88, Max: 96},
	BrewMethodPourOver:        {Min: 88, Max: 96},
	BrewMethodFrenchPress:     {Min: 90, Max: 96},
	BrewMethodAeropress:       {Min: 80, Max: 96},
	BrewMethodMokaPot:         {Min: 90, Max: 100},
	BrewMethodColdBrew:        {Min: 2, Max: 25},
}

// milkDrinks lists the drink types that are milk based.
var milkDrinks = map[DrinkType]bool{
	DrinkTypeLatte:      true,
	DrinkTypeCappuccino: true,
	DrinkTypeFlatWhite:  true,
	DrinkTypeCortado:    true,
}

// The reference tables must be total over their enumerations. A hole is a
// programming error, so it fails the process at load rather than surfacing
// as a runtime validation outcome.
func init() {
	for _, method := range brewMethods {
		if _, ok := methodDrinks[method]; !ok {
			panic(fmt.Sprintf("brewing: methodDrinks missing entry for %s", method))
		}
		if _, ok := methodTimeWindows[method]; !ok {
			panic(fmt.Sprintf("brewing: methodTimeWindows missing entry for %s", method))
		}
		if _, ok := methodTempWindows[method]; !ok {
			panic(fmt.Sprintf("brewing: methodTempWindows missing entry for %s", method))
		}
	}
	for _, drink := range drinkTypes {
		if _, ok := drinkRatioWindows[drink]; !ok {
			panic(fmt.Sprintf("brewing: drinkRatioWindows missing entry for %s", drink))
		}
	}
}

// MethodProduces reports whether the brew method can produce the drink type.
func MethodProduces(method BrewMethod, drink DrinkType) bool {
	for _, candidate := range methodDrinks[method] {
		if candidate == drink {
			return true
		}
	}
	return false
}

// RatioWindow returns the typical brew-ratio window for the drink type.
func RatioWindow(drink DrinkType) Window {
	return drinkRatioWindows[drink]
}

// TimeWindow returns the typical extraction-time window for the brew method.
func TimeWindow(method BrewMethod) DurationWindow {
	return methodTimeWindows[method]
}

// TemperatureWindow returns the typical brew-temperature window for the brew method.
func TemperatureWindow(method BrewMethod) Window {
	return methodTempWindows[method]
}

// IsMilkDrink reports whether the drink type is milk based.
func IsMilkDrink(drink DrinkType) bool {
	return milkDrinks[drink]
}

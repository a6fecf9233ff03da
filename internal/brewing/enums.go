package brewing

import (
	"errors"
	"fmt"
	"strings"
)

// BrewMethod enumerates the supported extraction apparatus.
type BrewMethod string

const (
	BrewMethodEspressoMachine BrewMethod = "ESPRESSO_MACHINE"
	BrewMethodPourOver        BrewMethod = "POUR_OVER"
	BrewMethodFrenchPress     BrewMethod = "FRENCH_PRESS"
	BrewMethodAeropress       BrewMethod = "AEROPRESS"
	BrewMethodMokaPot         BrewMethod = "MOKA_POT"
	BrewMethodColdBrew        BrewMethod = "COLD_BREW"
)

// DrinkType enumerates the beverage categories a recipe can target.
type DrinkType string

const (
	DrinkTypeEspresso    DrinkType = "ESPRESSO"
	DrinkTypeRistretto   DrinkType = "RISTRETTO"
	DrinkTypeLungo       DrinkType = "LUNGO"
	DrinkTypeAmericano   DrinkType = "AMERICANO"
	DrinkTypeLatte       DrinkType = "LATTE"
	DrinkTypeCappuccino  DrinkType = "CAPPUCCINO"
	DrinkTypeFlatWhite   DrinkType = "FLAT_WHITE"
	DrinkTypeCortado     DrinkType = "CORTADO"
	DrinkTypePourOver    DrinkType = "POUR_OVER"
	DrinkTypeFrenchPress DrinkType = "FRENCH_PRESS"
	DrinkTypeAeropress   DrinkType = "AEROPRESS"
	DrinkTypeMokaPot     DrinkType = "MOKA_POT"
	DrinkTypeColdBrew    DrinkType = "COLD_BREW"
	DrinkTypeIcedCoffee  DrinkType = "ICED_COFFEE"
)

// EmojiRating enumerates the coarse reaction a taster can record on a version.
type EmojiRating string

const (
	EmojiRatingLoved   EmojiRating = "LOVED"
	EmojiRatingLiked   EmojiRating = "LIKED"
	EmojiRatingNeutral EmojiRating = "NEUTRAL"
	EmojiRatingMeh     EmojiRating = "MEH"
	EmojiRatingBad     EmojiRating = "BAD"
)

var (
	// ErrUnknownBrewMethod indicates a value outside the BrewMethod enumeration.
	ErrUnknownBrewMethod = errors.New("brewing: unknown brew method")
	// ErrUnknownDrinkType indicates a value outside the DrinkType enumeration.
	ErrUnknownDrinkType = errors.New("brewing: unknown drink type")
	// ErrUnknownEmojiRating indicates a value outside the EmojiRating enumeration.
	ErrUnknownEmojiRating = errors.New("brewing: unknown emoji rating")
)

var brewMethods = []BrewMethod{
	BrewMethodEspressoMachine,
	BrewMethodPourOver,
	BrewMethodFrenchPress,
	BrewMethodAeropress,
	BrewMethodMokaPot,
	BrewMethodColdBrew,
}

var drinkTypes = []DrinkType{
	DrinkTypeEspresso,
	DrinkTypeRistretto,
	DrinkTypeLungo,
	DrinkTypeAmericano,
	DrinkTypeLatte,
	DrinkTypeCappuccino,
	DrinkTypeFlatWhite,
	DrinkTypeCortado,
	DrinkTypePourOver,
	DrinkTypeFrenchPress,
	DrinkTypeAeropress,
	DrinkTypeMokaPot,
	DrinkTypeColdBrew,
	DrinkTypeIcedCoffee,
}

var emojiRatings = []EmojiRating{
	EmojiRatingLoved,
	EmojiRatingLiked,
	EmojiRatingNeutral,
	EmojiRatingMeh,
	EmojiRatingBad,
}

// BrewMethods returns every BrewMethod value in declaration order.
func BrewMethods() []BrewMethod {
	out := make([]BrewMethod, len(brewMethods))
	copy(out, brewMethods)
	return out
}

// DrinkTypes returns every DrinkType value in declaration order.
func DrinkTypes() []DrinkType {
	out := make([]DrinkType, len(drinkTypes))
	copy(out, drinkTypes)
	return out
}

// ParseBrewMethod validates raw input against the BrewMethod enumeration.
func ParseBrewMethod(rawInput string) (BrewMethod, error) {
	normalized := BrewMethod(strings.ToUpper(strings.TrimSpace(rawInput)))
	for _, method := range brewMethods {
		if method == normalized {
			return method, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBrewMethod, rawInput)
}

// ParseDrinkType validates raw input against the DrinkType enumeration.
func ParseDrinkType(rawInput string) (DrinkType, error) {
	normalized := DrinkType(strings.ToUpper(strings.TrimSpace(rawInput)))
	for _, drink := range drinkTypes {
		if drink == normalized {
			return drink, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDrinkType, rawInput)
}

// ParseEmojiRating validates raw input against the EmojiRating enumeration.
func ParseEmojiRating(rawInput string) (EmojiRating, error) {
	normalized := EmojiRating(strings.ToUpper(strings.TrimSpace(rawInput)))
	for _, rating := range emojiRatings {
		if rating == normalized {
			return rating, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEmojiRating, rawInput)
}

func (m BrewMethod) String() string {
	return string(m)
}

func (d DrinkType) String() string {
	return string(d)
}

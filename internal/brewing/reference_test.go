package brewing

import "testing"

func TestReferenceTablesAreTotal(t *testing.T) {
	for _, method := range BrewMethods() {
		if _, ok := methodDrinks[method]; !ok {
			t.Fatalf("methodDrinks missing %s", method)
		}
		if _, ok := methodTimeWindows[method]; !ok {
			t.Fatalf("methodTimeWindows missing %s", method)
		}
		if _, ok := methodTempWindows[method]; !ok {
			t.Fatalf("methodTempWindows missing %s", method)
		}
	}
	for _, drink := range DrinkTypes() {
		if _, ok := drinkRatioWindows[drink]; !ok {
			t.Fatalf("drinkRatioWindows missing %s", drink)
		}
	}
}

func TestEveryDrinkHasAProducingMethod(t *testing.T) {
	for _, drink := range DrinkTypes() {
		found := false
		for _, method := range BrewMethods() {
			if MethodProduces(method, drink) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("no brew method produces %s", drink)
		}
	}
}

func TestParseBrewMethod(t *testing.T) {
	method, err := ParseBrewMethod(" espresso_machine ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != BrewMethodEspressoMachine {
		t.Fatalf("unexpected method %s", method)
	}
	if _, err := ParseBrewMethod("PERCOLATOR"); err == nil {
		t.Fatalf("expected error for unknown method")
	}
}

func TestParseDrinkType(t *testing.T) {
	drink, err := ParseDrinkType("latte")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if drink != DrinkTypeLatte {
		t.Fatalf("unexpected drink %s", drink)
	}
	if _, err := ParseDrinkType(""); err == nil {
		t.Fatalf("expected error for empty drink type")
	}
}

func TestMilkDrinkClassification(t *testing.T) {
	if !IsMilkDrink(DrinkTypeLatte) || !IsMilkDrink(DrinkTypeCortado) {
		t.Fatalf("latte and cortado are milk drinks")
	}
	if IsMilkDrink(DrinkTypeEspresso) || IsMilkDrink(DrinkTypeColdBrew) {
		t.Fatalf("espresso and cold brew are not milk drinks")
	}
}

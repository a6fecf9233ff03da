package recipes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Ardakilic/BrewForm-sub000/internal/brewing"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type staticIDGenerator struct {
	mu    sync.Mutex
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.index >= len(g.ids) {
		return "", errors.New("exhausted ids")
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

func sequentialIDs(count int) []string {
	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		ids = append(ids, fmt.Sprintf("id-%03d", i))
	}
	return ids
}

type recordingInvalidator struct {
	mu   sync.Mutex
	keys []string
	fail bool
}

func (r *recordingInvalidator) Invalidate(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("invalidation failed")
	}
	r.keys = append(r.keys, keys...)
	return nil
}

func (r *recordingInvalidator) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingInvalidator) {
	t.Helper()

	dsn := fmt.Sprintf("file:brewform_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Recipe{}, &RecipeVersion{}, &RecipeFavourite{}, &RecipeComment{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	invalidator := &recordingInvalidator{}
	clock := func() time.Time { return time.Unix(1760000000, 0).UTC() }
	service, err := NewService(ServiceConfig{
		Database:    db,
		Clock:       clock,
		IDProvider:  &staticIDGenerator{ids: sequentialIDs(200)},
		Invalidator: invalidator,
	})
	if err != nil {
		t.Fatalf("failed to construct recipes service: %v", err)
	}

	return service, db, invalidator
}

func floatPtr(value float64) *float64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func strPtr(value string) *string {
	return &value
}

func espressoVersionInput() VersionInput {
	return VersionInput{
		BrewMethod:         brewing.BrewMethodEspressoMachine,
		DrinkType:          brewing.DrinkTypeEspresso,
		DoseGrams:          floatPtr(18),
		YieldWeightGrams:   floatPtr(36),
		YieldVolumeMl:      floatPtr(40),
		TimeSeconds:        int64Ptr(28),
		TemperatureCelsius: floatPtr(93),
		GrindSetting:       "2.4",
		Tags:               []string{"morning", "dialed-in"},
	}
}

func mustCreateRecipe(t *testing.T, service *Service, ownerID string, visibility Visibility) *Recipe {
	t.Helper()
	recipe, _, err := service.CreateRecipe(context.Background(), ownerID, CreateRecipeInput{
		Title:      "Morning Espresso",
		CoffeeName: "Ethiopia Yirgacheffe",
		Visibility: visibility,
		Version:    espressoVersionInput(),
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	return recipe
}

package recipes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Ardakilic/BrewForm-sub000/internal/brewing"
)

func TestCreateRecipePersistsRecipeAndFirstVersion(t *testing.T) {
	service, db, invalidator := newTestService(t)

	recipe, warnings, err := service.CreateRecipe(context.Background(), "user-a", CreateRecipeInput{
		Title:      "Morning Espresso",
		Visibility: VisibilityPublic,
		Version:    espressoVersionInput(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("clean espresso input should produce no warnings, got %v", warnings)
	}
	if recipe.CurrentVersionID == "" {
		t.Fatalf("expected current version pointer to be set")
	}
	if recipe.ViewCount != 0 || recipe.FavouriteCount != 0 || recipe.CommentCount != 0 || recipe.ForkCount != 0 {
		t.Fatalf("counters must initialize to zero: %+v", recipe)
	}
	if !strings.HasPrefix(recipe.Slug, "morning-espresso-") {
		t.Fatalf("unexpected slug %q", recipe.Slug)
	}

	var version RecipeVersion
	if err := db.Where("recipe_id = ?", recipe.ID).Take(&version).Error; err != nil {
		t.Fatalf("failed to load version: %v", err)
	}
	if version.VersionNumber != 1 {
		t.Fatalf("first version must be number 1, got %d", version.VersionNumber)
	}
	if version.ID != recipe.CurrentVersionID {
		t.Fatalf("current version pointer must reference version 1")
	}
	if version.AuthorID != "user-a" {
		t.Fatalf("version author must equal recipe owner")
	}
	if version.BrewRatio == nil || *version.BrewRatio != 2.0 {
		t.Fatalf("expected stored brew ratio 2.0, got %v", version.BrewRatio)
	}
	if version.FlowRate == nil {
		t.Fatalf("expected stored flow rate")
	}

	keys := invalidator.recorded()
	if len(keys) == 0 {
		t.Fatalf("create must invalidate cache keys")
	}
}

func TestCreateRecipeRejectsHardValidationFailure(t *testing.T) {
	service, db, _ := newTestService(t)

	input := espressoVersionInput()
	input.BrewMethod = brewing.BrewMethodColdBrew
	_, _, err := service.CreateRecipe(context.Background(), "user-a", CreateRecipeInput{
		Title:      "Impossible Brew",
		Visibility: VisibilityPublic,
		Version:    input,
	})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validationErr.Findings) != 1 {
		t.Fatalf("expected one finding, got %v", validationErr.Findings)
	}

	var count int64
	if err := db.Model(&Recipe{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected create must not persist anything")
	}
}

func TestCreateRecipeReturnsSoftWarningsAlongsideWrite(t *testing.T) {
	service, _, _ := newTestService(t)

	input := espressoVersionInput()
	input.YieldWeightGrams = floatPtr(72)
	recipe, warnings, err := service.CreateRecipe(context.Background(), "user-a", CreateRecipeInput{
		Title:      "Long Shot",
		Visibility: VisibilityPublic,
		Version:    input,
	})
	if err != nil {
		t.Fatalf("soft warnings must not block the write: %v", err)
	}
	if recipe == nil {
		t.Fatalf("expected created recipe")
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "brew ratio") {
		t.Fatalf("expected ratio warning, got %v", warnings)
	}
}

func TestCreateRecipeRequiresTitle(t *testing.T) {
	service, _, _ := newTestService(t)

	_, _, err := service.CreateRecipe(context.Background(), "user-a", CreateRecipeInput{
		Version: espressoVersionInput(),
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for missing title, got %v", err)
	}
}

func TestCreateVersionAssignsContiguousNumbers(t *testing.T) {
	service, db, _ := newTestService(t)
	recipe := mustCreateRecipe(t, service, "user-a", VisibilityPublic)

	for i := 0; i < 3; i++ {
		input := espressoVersionInput()
		input.GrindSetting = "finer"
		version, _, err := service.CreateVersion(context.Background(), recipe.ID, "user-a", input)
		if err != nil {
			t.Fatalf("unexpected error on version %d: %v", i+2, err)
		}
		if version.VersionNumber != int64(i+2) {
			t.Fatalf("expected version %d, got %d", i+2, version.VersionNumber)
		}
	}

	versions, err := service.ListVersions(context.Background(), recipe.ID, "user-a")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(versions) != 4 {
		t.Fatalf("expected 4 versions, got %d", len(versions))
	}
	for i, version := range versions {
		expected := int64(4 - i)
		if version.VersionNumber != expected {
			t.Fatalf("versions must list descending: index %d has %d", i, version.VersionNumber)
		}
	}

	var header Recipe
	if err := db.Where("id = ?", recipe.ID).Take(&header).Error; err != nil {
		t.Fatalf("failed to reload recipe: %v", err)
	}
	if header.CurrentVersionID != versions[0].ID {
		t.Fatalf("current version pointer must follow the newest version")
	}
}

func TestCreateVersionRequiresOwner(t *testing.T) {
	service, _, _ := newTestService(t)
	recipe := mustCreateRecipe(t, service, "user-a", VisibilityPublic)

	_, _, err := service.CreateVersion(context.Background(), recipe.ID, "user-b", espressoVersionInput())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateVersionChecksOwnershipBeforePayload(t *testing.T) {
	service, _, _ := newTestService(t)
	recipe := mustCreateRecipe(t, service, "user-a", VisibilityPublic)

	invalid := espressoVersionInput()
	invalid.DoseGrams = floatPtr(-1)

	_, _, err := service.CreateVersion(context.Background(), recipe.ID, "user-b", invalid)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner must get ErrForbidden regardless of payload, got %v", err)
	}

	hidden := mustCreateRecipe(t, service, "user-a", VisibilityPrivate)
	_, _, err = service.CreateVersion(context.Background(), hidden.ID, "user-b", invalid)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("stranger on private recipe must get ErrNotFound, got %v", err)
	}
}

func TestCreateVersionOnDeletedRecipeIsNotFound(t *testing.T) {
	service, _, _ := newTestService(t)
	recipe := mustCreateRecipe(t, service, "user-a", VisibilityPublic)
	if err := service.DeleteRecipe(context.Background(), recipe.ID, "user-a"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	_, _, err := service.CreateVersion(context.Background(), recipe.ID, "user-a", espressoVersionInput())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateVersionNumberRaceSurfacesConflict(t *testing.T) {
	service, db, _ := newTestService(t)
	recipe := mustCreateRecipe(t, service, "user-a", VisibilityPublic)

	// Occupy the number a racing writer would claim next.
	squatter := RecipeVersion{
		ID:            "squatter",
		RecipeID:      recipe.ID,
		VersionNumber: 2,
		AuthorID:      "user-a",
		BrewMethod:    brewing.BrewMethodEspressoMachine,
		DrinkType:     brewing.DrinkTypeEspresso,
		DoseGrams:     18,
		CreatedAt:     service.clock(),
	}
	if err := db.Create(&squatter).Error; err != nil {
		t.Fatalf("failed to seed version: %v", err)
	}

	duplicate := squatter
	duplicate.ID = "duplicate"
	if err := db.Create(&duplicate).Error; err == nil {
		t.Fatalf("composite unique index must reject duplicate version numbers")
	} else if !isDuplicateKey(err) {
		t.Fatalf("duplicate insert should be recognised as a conflict, got %v", err)
	}
}

func TestGetRecipeVisibility(t *testing.T) {
	service, _, _ := newTestService(t)

	tests := []struct {
		name       string
		visibility Visibility
		viewerID   string
		expectErr  error
	}{
		{name: "public-anonymous", visibility: VisibilityPublic, viewerID: ""},
		{name: "unlisted-direct-reference", visibility: VisibilityUnlisted, viewerID: "user-b"},
		{name: "private-owner", visibility: VisibilityPrivate, viewerID: "user-a"},
		{name: "private-non-owner", visibility: VisibilityPrivate, viewerID: "user-b", expectErr: ErrNotFound},
		{name: "private-anonymous", visibility: VisibilityPrivate, viewerID: "", expectErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipe := mustCreateRecipe(t, service, "user-a", tt.visibility)
			_, err := service.GetRecipeByID(context.Background(), recipe.ID, tt.viewerID)
			if tt.expectErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.expectErr != nil && !errors.Is(err, tt.expectErr) {
				t.Fatalf("expected %v, got %v", tt.expectErr, err)
			}

			_, err = service.GetRecipeBySlug(context.Background(), recipe.Slug, tt.viewerID)
			if tt.expectErr == nil && err != nil {
				t.Fatalf("unexpected slug lookup error: %v", err)
			}
			if tt.expectErr != nil && !errors.Is(err, tt.expectErr) {
				t.Fatalf("slug lookup expected %v, got %v", tt.expectErr, err)
			}
		})
	}
}

func TestGetRecipeBumpsViewCountBestEffort(t *testing.T) {
	service, db, _ := newTestService(t)
	recipe := mustCreateRecipe(t, service, "user-a", VisibilityPublic)

	if _, err := service.GetRecipeByID(context.Background(), recipe.ID, "user-b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.GetRecipeByID(context.Background(), recipe.ID, "user-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stored Recipe
	if err := db.Where("id = ?", recipe.ID).Take(&stored).Error; err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if stored.ViewCount != 1 {
		t.Fatalf("owner reads must not count views, expected 1 got %d", stored.ViewCount)
	}
}

func TestGetCurrentVersionDoesNotCountView(t *testing.T) {
	service, db, _ := newTestService(t)
	recipe := mustCreateRecipe(t, service, "user-a", VisibilityPublic)

	version, err := service.GetCurrentVersion(context.Background(), recipe.ID, "user-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version.VersionNumber != 1 {
		t.Fatalf("expected version 1, got %d", version.VersionNumber)
	}

	var stored Recipe
	if err := db.Where("id = ?", recipe.ID).Take(&stored).Error; err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if stored.ViewCount != 0 {
		t.Fatalf("version lookups are not recipe views, expected 0 got %d", stored.ViewCount)
	}
}

func TestForkRecipeCopiesParametersAndClearsSubjectiveFields(t *testing.T) {
	service, db, _ := newTestService(t)

	input := espressoVersionInput()
	input.Rating = intPtr(9)
	emoji := brewing.EmojiRatingLoved
	input.EmojiRating = &emoji
	input.TastingNotes = "stone fruit, honey"
	input.IsFavourite = true
	input.GrinderID = strPtr("grinder-1")
	source, _, err := service.CreateRecipe(context.Background(), "user-a", CreateRecipeInput{
		Title:      "Competition Shot",
		Visibility: VisibilityPublic,
		Version:    input,
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	fork, err := service.ForkRecipe(context.Background(), source.ID, "user-b")
	if err != nil {
		t.Fatalf("unexpected fork error: %v", err)
	}
	if fork.Visibility != VisibilityPrivate {
		t.Fatalf("forks must be private regardless of source visibility, got %s", fork.Visibility)
	}
	if fork.ForkedFromID == nil || *fork.ForkedFromID != source.ID {
		t.Fatalf("fork must reference its source")
	}
	if fork.OwnerID != "user-b" {
		t.Fatalf("fork owner mismatch: %s", fork.OwnerID)
	}

	var forkVersion RecipeVersion
	if err := db.Where("recipe_id = ?", fork.ID).Take(&forkVersion).Error; err != nil {
		t.Fatalf("failed to load fork version: %v", err)
	}
	if forkVersion.VersionNumber != 1 {
		t.Fatalf("fork history restarts at version 1, got %d", forkVersion.VersionNumber)
	}
	if forkVersion.AuthorID != "user-b" {
		t.Fatalf("fork version author must be the new owner")
	}
	if forkVersion.Rating != nil || forkVersion.EmojiRating != nil ||
		forkVersion.TastingNotes != "" || forkVersion.IsFavourite {
		t.Fatalf("subjective fields must be cleared: %+v", forkVersion)
	}
	if forkVersion.GrinderID == nil || *forkVersion.GrinderID != "grinder-1" {
		t.Fatalf("equipment must carry over")
	}
	if forkVersion.DoseGrams != 18 {
		t.Fatalf("brew parameters must carry over")
	}
	if len(forkVersion.Tags()) != 2 {
		t.Fatalf("tags must carry over, got %v", forkVersion.Tags())
	}

	var reloadedSource Recipe
	if err := db.Where("id = ?", source.ID).Take(&reloadedSource).Error; err != nil {
		t.Fatalf("failed to reload source: %v", err)
	}
	if reloadedSource.ForkCount != 1 {
		t.Fatalf("source fork count must increment exactly once, got %d", reloadedSource.ForkCount)
	}
}

func TestForkRecipeRejectsPrivateSource(t *testing.T) {
	service, _, _ := newTestService(t)
	source := mustCreateRecipe(t, service, "user-a", VisibilityPrivate)

	// Invisible to strangers: reported as absent.
	if _, err := service.ForkRecipe(context.Background(), source.ID, "user-b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for invisible source, got %v", err)
	}
	// Visible to the owner, but private recipes are not forkable.
	if _, err := service.ForkRecipe(context.Background(), source.ID, "user-a"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for private source, got %v", err)
	}
}

func TestForkRecipeAllowsUnlistedSource(t *testing.T) {
	service, _, _ := newTestService(t)
	source := mustCreateRecipe(t, service, "user-a", VisibilityUnlisted)

	fork, err := service.ForkRecipe(context.Background(), source.ID, "user-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fork.Visibility != VisibilityPrivate {
		t.Fatalf("fork must be private, got %s", fork.Visibility)
	}
}

func TestUpdateRecipePatchesMetadataOnly(t *testing.T) {
	service, db, _ := newTestService(t)
	recipe := mustCreateRecipe(t, service, "user-a", VisibilityPrivate)

	visibility := VisibilityPublic
	featured := true
	updated, err := service.UpdateRecipe(context.Background(), recipe.ID, "user-a", RecipePatch{
		Visibility: &visibility,
		IsFeatured: &featured,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Visibility != VisibilityPublic || !updated.IsFeatured {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Slug != recipe.Slug {
		t.Fatalf("patch must not touch the slug")
	}

	var versionCount int64
	if err := db.Model(&RecipeVersion{}).Where("recipe_id = ?", recipe.ID).Count(&versionCount).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if versionCount != 1 {
		t.Fatalf("metadata patch must not create versions")
	}
}

func TestUpdateRecipeRequiresOwner(t *testing.T) {
	service, _, _ := newTestService(t)
	recipe := mustCreateRecipe(t, service, "user-a", VisibilityPublic)

	visibility := VisibilityPrivate
	_, err := service.UpdateRecipe(context.Background(), recipe.ID, "user-b", RecipePatch{Visibility: &visibility})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDeleteRecipeSoftDeletes(t *testing.T) {
	service, db, _ := newTestService(t)
	recipe := mustCreateRecipe(t, service, "user-a", VisibilityPublic)

	if err := service.DeleteRecipe(context.Background(), recipe.ID, "user-b"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
	if err := service.DeleteRecipe(context.Background(), recipe.ID, "user-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := service.GetRecipeByID(context.Background(), recipe.ID, "user-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted recipe must read as not found even for the owner, got %v", err)
	}

	// Versions survive for history.
	var versionCount int64
	if err := db.Model(&RecipeVersion{}).Where("recipe_id = ?", recipe.ID).Count(&versionCount).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if versionCount != 1 {
		t.Fatalf("delete must not cascade to versions")
	}

	// The row keeps its slug so it is never reassigned.
	var stored Recipe
	if err := db.Unscoped().Where("id = ?", recipe.ID).Take(&stored).Error; err != nil {
		t.Fatalf("failed to load deleted row: %v", err)
	}
	if stored.DeletedAt == nil {
		t.Fatalf("expected soft-delete timestamp")
	}
	if stored.Slug != recipe.Slug {
		t.Fatalf("slug must remain on the deleted row")
	}
}

func TestInvalidationFailureDoesNotFailWrite(t *testing.T) {
	service, _, invalidator := newTestService(t)
	invalidator.fail = true

	recipe, _, err := service.CreateRecipe(context.Background(), "user-a", CreateRecipeInput{
		Title:      "Resilient Brew",
		Visibility: VisibilityPublic,
		Version:    espressoVersionInput(),
	})
	if err != nil {
		t.Fatalf("invalidation failure must not fail the write: %v", err)
	}
	if recipe == nil {
		t.Fatalf("expected created recipe")
	}
}

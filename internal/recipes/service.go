package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ardakilic/BrewForm-sub000/internal/brewing"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew    = "recipes.service.new"
	opCreateRecipe  = "recipes.create_recipe"
	opGetRecipe     = "recipes.get_recipe"
	opListRecipes   = "recipes.list_recipes"
	opCreateVersion = "recipes.create_version"
	opListVersions  = "recipes.list_versions"
	opForkRecipe    = "recipes.fork_recipe"
	opUpdateRecipe  = "recipes.update_recipe"
	opDeleteRecipe  = "recipes.delete_recipe"
)

// ServiceConfig describes the dependencies of the recipe lifecycle service.
type ServiceConfig struct {
	Database    *gorm.DB
	Clock       func() time.Time
	IDProvider  IDProvider
	Invalidator Invalidator
	Logger      *zap.Logger
}

// Service orchestrates recipe lifecycle operations against the aggregate,
// gating every write behind hard validation.
type Service struct {
	db          *gorm.DB
	clock       func() time.Time
	idProvider  IDProvider
	invalidator Invalidator
	logger      *zap.Logger
}

// NewService validates dependencies and constructs the lifecycle service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	invalidator := cfg.Invalidator
	if invalidator == nil {
		invalidator = NewNopInvalidator()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:          cfg.Database,
		clock:       clock,
		idProvider:  cfg.IDProvider,
		invalidator: invalidator,
		logger:      logger,
	}, nil
}

// CreateRecipe persists a recipe together with its first version as one
// atomic unit. Hard-rule violations reject the write; soft warnings are
// returned alongside the created aggregate.
func (s *Service) CreateRecipe(ctx context.Context, ownerID string, input CreateRecipeInput) (*Recipe, []string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, nil, &ValidationError{Findings: []string{"owner is required"}}
	}
	if findings := checkHeaderInput(input); len(findings) > 0 {
		return nil, nil, &ValidationError{Findings: findings}
	}

	result := brewing.Validate(input.Version.Candidate())
	findings := append(checkVersionInput(input.Version), result.Errors...)
	if len(findings) > 0 {
		return nil, nil, &ValidationError{Findings: findings}
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = VisibilityPrivate
	}

	slug, err := newSlug(input.Title)
	if err != nil {
		s.logError(opCreateRecipe, "slug_generation_failed", err)
		return nil, nil, newServiceError(opCreateRecipe, "slug_generation_failed", err)
	}
	recipeID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateRecipe, "id_generation_failed", err)
		return nil, nil, newServiceError(opCreateRecipe, "id_generation_failed", err)
	}
	versionID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateRecipe, "id_generation_failed", err)
		return nil, nil, newServiceError(opCreateRecipe, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	recipe := Recipe{
		ID:          recipeID,
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		CoffeeName:  input.CoffeeName,
		Slug:        slug,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	version := buildVersion(input.Version, versionID, recipeID, ownerID, 1, now)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}
		recipe.CurrentVersionID = version.ID
		return tx.Model(&Recipe{}).
			Where("id = ?", recipe.ID).
			UpdateColumn("current_version_id", version.ID).Error
	})
	if txErr != nil {
		if isDuplicateKey(txErr) {
			return nil, nil, fmt.Errorf("%w: slug %q taken", ErrConflict, slug)
		}
		s.logError(opCreateRecipe, "persist_failed", txErr, zap.String("owner_id", ownerID))
		return nil, nil, newServiceError(opCreateRecipe, "persist_failed", txErr)
	}

	s.invalidate(ctx, opCreateRecipe, recipe)
	return &recipe, result.Warnings, nil
}

// GetRecipeByID resolves a recipe the viewer may see. Missing, soft-deleted
// and invisible recipes are indistinguishable.
func (s *Service) GetRecipeByID(ctx context.Context, recipeID, viewerID string) (*Recipe, error) {
	return s.getRecipe(ctx, "id = ?", recipeID, viewerID)
}

// GetRecipeBySlug resolves a recipe by its URL slug under the same
// visibility rules as GetRecipeByID.
func (s *Service) GetRecipeBySlug(ctx context.Context, slug, viewerID string) (*Recipe, error) {
	return s.getRecipe(ctx, "slug = ?", slug, viewerID)
}

func (s *Service) getRecipe(ctx context.Context, query, key, viewerID string) (*Recipe, error) {
	recipe, err := s.loadVisibleRecipe(ctx, query, key, viewerID)
	if err != nil {
		return nil, err
	}
	s.bumpViewCount(ctx, recipe, viewerID)
	return recipe, nil
}

// loadVisibleRecipe resolves a recipe under the visibility rules without
// touching view_count. Callers that represent a viewer-facing read go
// through getRecipe instead, which counts the view.
func (s *Service) loadVisibleRecipe(ctx context.Context, query, key, viewerID string) (*Recipe, error) {
	var recipe Recipe
	err := s.db.WithContext(ctx).Scopes(notDeleted).Where(query, key).Take(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logError(opGetRecipe, "query_failed", err, zap.String("key", key))
		return nil, newServiceError(opGetRecipe, "query_failed", err)
	}
	if !CanView(recipe, viewerID) {
		return nil, ErrNotFound
	}
	return &recipe, nil
}

// bumpViewCount is best effort: a failure is logged and the read proceeds.
func (s *Service) bumpViewCount(ctx context.Context, recipe *Recipe, viewerID string) {
	if viewerID == recipe.OwnerID {
		return
	}
	err := s.db.WithContext(ctx).Model(&Recipe{}).
		Where("id = ?", recipe.ID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	if err != nil {
		s.logError(opGetRecipe, "view_count_failed", err, zap.String("recipe_id", recipe.ID))
		return
	}
	recipe.ViewCount++
}

// GetCurrentVersion loads the version the recipe currently points at. It
// does not count a view: the recipe read that preceded it already did.
func (s *Service) GetCurrentVersion(ctx context.Context, recipeID, viewerID string) (*RecipeVersion, error) {
	recipe, err := s.loadVisibleRecipe(ctx, "id = ?", recipeID, viewerID)
	if err != nil {
		return nil, err
	}
	var version RecipeVersion
	err = s.db.WithContext(ctx).Where("id = ?", recipe.CurrentVersionID).Take(&version).Error
	if err != nil {
		s.logError(opGetRecipe, "current_version_missing", err, zap.String("recipe_id", recipeID))
		return nil, newServiceError(opGetRecipe, "current_version_missing", err)
	}
	return &version, nil
}

// CreateVersion appends a new immutable snapshot and repoints the current
// version inside one transaction. Version numbers are assigned max+1; a
// racing writer trips the composite unique index and surfaces ErrConflict.
func (s *Service) CreateVersion(ctx context.Context, recipeID, authorID string, input VersionInput) (*RecipeVersion, []string, error) {
	versionID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateVersion, "id_generation_failed", err)
		return nil, nil, newServiceError(opCreateVersion, "id_generation_failed", err)
	}

	var version RecipeVersion
	var recipe Recipe
	var result brewing.Result
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(notDeleted).
			Where("id = ?", recipeID).
			Take(&recipe).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return newServiceError(opCreateVersion, "recipe_select_failed", err)
		}
		if !CanView(recipe, authorID) {
			return ErrNotFound
		}
		if recipe.OwnerID != authorID {
			return ErrForbidden
		}

		// Ownership is settled before the payload is inspected.
		result = brewing.Validate(input.Candidate())
		if findings := append(checkVersionInput(input), result.Errors...); len(findings) > 0 {
			return &ValidationError{Findings: findings}
		}

		var maxNumber int64
		err = tx.Model(&RecipeVersion{}).
			Where("recipe_id = ?", recipeID).
			Select("COALESCE(MAX(version_number), 0)").
			Scan(&maxNumber).Error
		if err != nil {
			return newServiceError(opCreateVersion, "version_number_query_failed", err)
		}

		now := s.clock().UTC()
		version = buildVersion(input, versionID, recipeID, authorID, maxNumber+1, now)
		if err := tx.Create(&version).Error; err != nil {
			return err
		}
		return tx.Model(&Recipe{}).
			Where("id = ?", recipeID).
			UpdateColumns(map[string]interface{}{
				"current_version_id": version.ID,
				"updated_at":         now,
			}).Error
	})
	if txErr != nil {
		if errors.Is(txErr, ErrNotFound) || errors.Is(txErr, ErrForbidden) {
			return nil, nil, txErr
		}
		var validationErr *ValidationError
		if errors.As(txErr, &validationErr) {
			return nil, nil, validationErr
		}
		if isDuplicateKey(txErr) {
			return nil, nil, fmt.Errorf("%w: version number race on recipe %s", ErrConflict, recipeID)
		}
		s.logError(opCreateVersion, "persist_failed", txErr,
			zap.String("recipe_id", recipeID), zap.String("author_id", authorID))
		var svcErr *ServiceError
		if errors.As(txErr, &svcErr) {
			return nil, nil, txErr
		}
		return nil, nil, newServiceError(opCreateVersion, "persist_failed", txErr)
	}

	recipe.CurrentVersionID = version.ID
	s.invalidate(ctx, opCreateVersion, recipe)
	return &version, result.Warnings, nil
}

// ListVersions returns the recipe's history in descending version order.
func (s *Service) ListVersions(ctx context.Context, recipeID, viewerID string) ([]RecipeVersion, error) {
	var recipe Recipe
	err := s.db.WithContext(ctx).Scopes(notDeleted).Where("id = ?", recipeID).Take(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logError(opListVersions, "recipe_select_failed", err, zap.String("recipe_id", recipeID))
		return nil, newServiceError(opListVersions, "recipe_select_failed", err)
	}
	if !CanView(recipe, viewerID) {
		return nil, ErrNotFound
	}

	var versions []RecipeVersion
	err = s.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		s.logError(opListVersions, "query_failed", err, zap.String("recipe_id", recipeID))
		return nil, newServiceError(opListVersions, "query_failed", err)
	}
	return versions, nil
}

// ForkRecipe derives a new private recipe from the source's current version.
// Brew parameters, equipment and tags carry over; rating, emoji rating,
// favourite flag and tasting notes are cleared. The fork insert and the
// source fork-count increment commit together.
func (s *Service) ForkRecipe(ctx context.Context, sourceID, newOwnerID string) (*Recipe, error) {
	var source Recipe
	err := s.db.WithContext(ctx).Scopes(notDeleted).Where("id = ?", sourceID).Take(&source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logError(opForkRecipe, "source_select_failed", err, zap.String("source_id", sourceID))
		return nil, newServiceError(opForkRecipe, "source_select_failed", err)
	}
	if !CanView(source, newOwnerID) {
		return nil, ErrNotFound
	}
	if source.Visibility == VisibilityPrivate {
		return nil, fmt.Errorf("%w: private recipes cannot be forked", ErrForbidden)
	}

	var sourceVersion RecipeVersion
	err = s.db.WithContext(ctx).Where("id = ?", source.CurrentVersionID).Take(&sourceVersion).Error
	if err != nil {
		s.logError(opForkRecipe, "source_version_missing", err, zap.String("source_id", sourceID))
		return nil, newServiceError(opForkRecipe, "source_version_missing", err)
	}

	forkID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opForkRecipe, "id_generation_failed", err)
		return nil, newServiceError(opForkRecipe, "id_generation_failed", err)
	}
	versionID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opForkRecipe, "id_generation_failed", err)
		return nil, newServiceError(opForkRecipe, "id_generation_failed", err)
	}
	slug, err := newSlug(source.Title)
	if err != nil {
		s.logError(opForkRecipe, "slug_generation_failed", err)
		return nil, newServiceError(opForkRecipe, "slug_generation_failed", err)
	}

	now := s.clock().UTC()
	fork := Recipe{
		ID:           forkID,
		OwnerID:      newOwnerID,
		Title:        source.Title,
		Description:  source.Description,
		CoffeeName:   source.CoffeeName,
		Slug:         slug,
		Visibility:   VisibilityPrivate,
		ForkedFromID: &source.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	forkVersion := copyForFork(sourceVersion, versionID, forkID, newOwnerID, now)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&fork).Error; err != nil {
			return err
		}
		if err := tx.Create(&forkVersion).Error; err != nil {
			return err
		}
		if err := tx.Model(&Recipe{}).
			Where("id = ?", fork.ID).
			UpdateColumn("current_version_id", forkVersion.ID).Error; err != nil {
			return err
		}
		return tx.Model(&Recipe{}).
			Where("id = ?", source.ID).
			UpdateColumn("fork_count", gorm.Expr("fork_count + ?", 1)).Error
	})
	if txErr != nil {
		if isDuplicateKey(txErr) {
			return nil, fmt.Errorf("%w: slug %q taken", ErrConflict, slug)
		}
		s.logError(opForkRecipe, "persist_failed", txErr,
			zap.String("source_id", sourceID), zap.String("new_owner_id", newOwnerID))
		return nil, newServiceError(opForkRecipe, "persist_failed", txErr)
	}

	fork.CurrentVersionID = forkVersion.ID
	s.invalidate(ctx, opForkRecipe, source)
	s.invalidate(ctx, opForkRecipe, fork)
	return &fork, nil
}

// UpdateRecipe applies an owner-only metadata patch. Versions are untouched
// and a title change does not regenerate the slug.
func (s *Service) UpdateRecipe(ctx context.Context, recipeID, requesterID string, patch RecipePatch) (*Recipe, error) {
	var recipe Recipe
	err := s.db.WithContext(ctx).Scopes(notDeleted).Where("id = ?", recipeID).Take(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logError(opUpdateRecipe, "query_failed", err, zap.String("recipe_id", recipeID))
		return nil, newServiceError(opUpdateRecipe, "query_failed", err)
	}
	if !CanView(recipe, requesterID) {
		return nil, ErrNotFound
	}
	if !CanMutate(recipe, requesterID) {
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" || len(title) > maxTitleLength {
			return nil, &ValidationError{Findings: []string{"title must be non-empty"}}
		}
		updates["title"] = title
		recipe.Title = title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
		recipe.Description = *patch.Description
	}
	if patch.CoffeeName != nil {
		updates["coffee_name"] = *patch.CoffeeName
		recipe.CoffeeName = *patch.CoffeeName
	}
	if patch.Visibility != nil {
		if _, err := ParseVisibility(string(*patch.Visibility)); err != nil {
			return nil, &ValidationError{Findings: []string{err.Error()}}
		}
		updates["visibility"] = *patch.Visibility
		recipe.Visibility = *patch.Visibility
	}
	if patch.IsFeatured != nil {
		updates["is_featured"] = *patch.IsFeatured
		recipe.IsFeatured = *patch.IsFeatured
	}
	if len(updates) == 0 {
		return &recipe, nil
	}

	now := s.clock().UTC()
	updates["updated_at"] = now
	recipe.UpdatedAt = now
	err = s.db.WithContext(ctx).Model(&Recipe{}).Where("id = ?", recipeID).Updates(updates).Error
	if err != nil {
		s.logError(opUpdateRecipe, "persist_failed", err, zap.String("recipe_id", recipeID))
		return nil, newServiceError(opUpdateRecipe, "persist_failed", err)
	}

	s.invalidate(ctx, opUpdateRecipe, recipe)
	return &recipe, nil
}

// DeleteRecipe soft-deletes the recipe. Versions remain for history but are
// unreachable through normal reads.
func (s *Service) DeleteRecipe(ctx context.Context, recipeID, requesterID string) error {
	var recipe Recipe
	err := s.db.WithContext(ctx).Scopes(notDeleted).Where("id = ?", recipeID).Take(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		s.logError(opDeleteRecipe, "query_failed", err, zap.String("recipe_id", recipeID))
		return newServiceError(opDeleteRecipe, "query_failed", err)
	}
	if !CanView(recipe, requesterID) {
		return ErrNotFound
	}
	if !CanMutate(recipe, requesterID) {
		return ErrForbidden
	}

	now := s.clock().UTC()
	err = s.db.WithContext(ctx).Model(&Recipe{}).
		Where("id = ? AND deleted_at IS NULL", recipeID).
		UpdateColumn("deleted_at", now).Error
	if err != nil {
		s.logError(opDeleteRecipe, "persist_failed", err, zap.String("recipe_id", recipeID))
		return newServiceError(opDeleteRecipe, "persist_failed", err)
	}

	s.invalidate(ctx, opDeleteRecipe, recipe)
	return nil
}

func buildVersion(input VersionInput, versionID, recipeID, authorID string, number int64, now time.Time) RecipeVersion {
	version := RecipeVersion{
		ID:                 versionID,
		RecipeID:           recipeID,
		VersionNumber:      number,
		AuthorID:           authorID,
		BrewMethod:         input.BrewMethod,
		DrinkType:          input.DrinkType,
		GrinderID:          input.GrinderID,
		BrewerID:           input.BrewerID,
		PortafilterID:      input.PortafilterID,
		BasketID:           input.BasketID,
		PuckScreenID:       input.PuckScreenID,
		PaperFilterID:      input.PaperFilterID,
		TamperID:           input.TamperID,
		GrindSetting:       input.GrindSetting,
		YieldWeightGrams:   input.YieldWeightGrams,
		YieldVolumeMl:      input.YieldVolumeMl,
		TimeSeconds:        input.TimeSeconds,
		TemperatureCelsius: input.TemperatureCelsius,
		PressureBar:        input.PressureBar,
		RoastDate:          input.RoastDate,
		GrindDate:          input.GrindDate,
		TastingNotes:       input.TastingNotes,
		Rating:             input.Rating,
		EmojiRating:        input.EmojiRating,
		IsFavourite:        input.IsFavourite,
		TagsJSON:           encodeStringList(input.Tags),
		TasteNoteIDsJSON:   encodeStringList(input.TasteNoteIDs),
		PreparationsJSON:   encodeStringList(input.Preparations),
		CreatedAt:          now,
	}
	if input.DoseGrams != nil {
		version.DoseGrams = *input.DoseGrams
	}
	if ratio, ok := brewing.BrewRatio(input.DoseGrams, input.YieldWeightGrams); ok {
		version.BrewRatio = &ratio
	}
	if rate, ok := brewing.FlowRate(input.YieldVolumeMl, input.TimeSeconds); ok {
		version.FlowRate = &rate
	}
	return version
}

// copyForFork value-copies the brew parameters of the source version and
// clears the subjective fields.
func copyForFork(source RecipeVersion, versionID, recipeID, authorID string, now time.Time) RecipeVersion {
	version := source
	version.ID = versionID
	version.RecipeID = recipeID
	version.VersionNumber = 1
	version.AuthorID = authorID
	version.Rating = nil
	version.EmojiRating = nil
	version.TastingNotes = ""
	version.IsFavourite = false
	version.CreatedAt = now
	return version
}

func checkHeaderInput(input CreateRecipeInput) []string {
	var findings []string
	title := strings.TrimSpace(input.Title)
	if title == "" {
		findings = append(findings, "title is required")
	} else if len(title) > maxTitleLength {
		findings = append(findings, fmt.Sprintf("title exceeds %d characters", maxTitleLength))
	}
	if input.Visibility != "" {
		if _, err := ParseVisibility(string(input.Visibility)); err != nil {
			findings = append(findings, err.Error())
		}
	}
	return findings
}

func checkVersionInput(input VersionInput) []string {
	var findings []string
	if input.Rating != nil && (*input.Rating < minRating || *input.Rating > maxRating) {
		findings = append(findings, fmt.Sprintf("rating must be between %d and %d", minRating, maxRating))
	}
	if len(input.Tags) > maxTags {
		findings = append(findings, fmt.Sprintf("at most %d tags are allowed", maxTags))
	}
	if input.EmojiRating != nil {
		if _, err := brewing.ParseEmojiRating(string(*input.EmojiRating)); err != nil {
			findings = append(findings, err.Error())
		}
	}
	return findings
}

// isDuplicateKey recognises unique-constraint violations across the GORM
// translator and the raw sqlite driver message.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// invalidate drops downstream cache entries after a committed write. A
// failure is logged, never surfaced to the caller.
func (s *Service) invalidate(ctx context.Context, operation string, recipe Recipe) {
	if err := s.invalidator.Invalidate(ctx, CacheKeys(recipe.ID, recipe.Slug)...); err != nil {
		s.logError(operation, "cache_invalidation_failed", err, zap.String("recipe_id", recipe.ID))
	}
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("recipes service error", attrs...)
}

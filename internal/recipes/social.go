package recipes

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opFavouriteRecipe   = "recipes.favourite_recipe"
	opUnfavouriteRecipe = "recipes.unfavourite_recipe"
	opAddComment        = "recipes.add_comment"
	opDeleteComment     = "recipes.delete_comment"
	opListComments      = "recipes.list_comments"
)

const maxCommentLength = 2000

// interactableRecipe loads the recipe and checks the social-action gate:
// viewable and not private.
func (s *Service) interactableRecipe(tx *gorm.DB, recipeID, userID string) (Recipe, error) {
	var recipe Recipe
	err := tx.Scopes(notDeleted).Where("id = ?", recipeID).Take(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Recipe{}, ErrNotFound
	}
	if err != nil {
		return Recipe{}, err
	}
	if !CanView(recipe, userID) {
		return Recipe{}, ErrNotFound
	}
	if !CanInteract(recipe, userID) {
		return Recipe{}, ErrForbidden
	}
	return recipe, nil
}

// FavouriteRecipe records the user's favourite and bumps the counter. The
// operation is idempotent: an existing favourite changes nothing.
func (s *Service) FavouriteRecipe(ctx context.Context, recipeID, userID string) error {
	var recipe Recipe
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := s.interactableRecipe(tx, recipeID, userID)
		if err != nil {
			return err
		}
		recipe = loaded

		favourite := RecipeFavourite{
			UserID:    userID,
			RecipeID:  recipeID,
			CreatedAt: s.clock().UTC(),
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&favourite)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&Recipe{}).
			Where("id = ?", recipeID).
			UpdateColumn("favourite_count", gorm.Expr("favourite_count + ?", 1)).Error
	})
	if txErr != nil {
		if errors.Is(txErr, ErrNotFound) || errors.Is(txErr, ErrForbidden) {
			return txErr
		}
		s.logError(opFavouriteRecipe, "persist_failed", txErr,
			zap.String("recipe_id", recipeID), zap.String("user_id", userID))
		return newServiceError(opFavouriteRecipe, "persist_failed", txErr)
	}

	s.invalidate(ctx, opFavouriteRecipe, recipe)
	return nil
}

// UnfavouriteRecipe removes the user's favourite when present and decrements
// the counter, which never goes below zero.
func (s *Service) UnfavouriteRecipe(ctx context.Context, recipeID, userID string) error {
	var recipe Recipe
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := s.interactableRecipe(tx, recipeID, userID)
		if err != nil {
			return err
		}
		recipe = loaded

		result := tx.Where("user_id = ? AND recipe_id = ?", userID, recipeID).
			Delete(&RecipeFavourite{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&Recipe{}).
			Where("id = ?", recipeID).
			UpdateColumn("favourite_count",
				gorm.Expr("CASE WHEN favourite_count > 0 THEN favourite_count - 1 ELSE 0 END")).Error
	})
	if txErr != nil {
		if errors.Is(txErr, ErrNotFound) || errors.Is(txErr, ErrForbidden) {
			return txErr
		}
		s.logError(opUnfavouriteRecipe, "persist_failed", txErr,
			zap.String("recipe_id", recipeID), zap.String("user_id", userID))
		return newServiceError(opUnfavouriteRecipe, "persist_failed", txErr)
	}

	s.invalidate(ctx, opUnfavouriteRecipe, recipe)
	return nil
}

// AddComment attaches a comment and bumps the counter transactionally.
func (s *Service) AddComment(ctx context.Context, recipeID, userID, body string) (*RecipeComment, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, &ValidationError{Findings: []string{"comment body is required"}}
	}
	if len(trimmed) > maxCommentLength {
		return nil, &ValidationError{Findings: []string{"comment body is too long"}}
	}

	commentID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAddComment, "id_generation_failed", err)
		return nil, newServiceError(opAddComment, "id_generation_failed", err)
	}

	var recipe Recipe
	comment := RecipeComment{
		ID:        commentID,
		RecipeID:  recipeID,
		UserID:    userID,
		Body:      trimmed,
		CreatedAt: s.clock().UTC(),
	}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := s.interactableRecipe(tx, recipeID, userID)
		if err != nil {
			return err
		}
		recipe = loaded

		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&Recipe{}).
			Where("id = ?", recipeID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error
	})
	if txErr != nil {
		if errors.Is(txErr, ErrNotFound) || errors.Is(txErr, ErrForbidden) {
			return nil, txErr
		}
		s.logError(opAddComment, "persist_failed", txErr,
			zap.String("recipe_id", recipeID), zap.String("user_id", userID))
		return nil, newServiceError(opAddComment, "persist_failed", txErr)
	}

	s.invalidate(ctx, opAddComment, recipe)
	return &comment, nil
}

// DeleteComment soft-deletes a comment. The comment author and the recipe
// owner may both delete.
func (s *Service) DeleteComment(ctx context.Context, recipeID, commentID, requesterID string) error {
	var recipe Recipe
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Scopes(notDeleted).Where("id = ?", recipeID).Take(&recipe).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !CanView(recipe, requesterID) {
			return ErrNotFound
		}

		var comment RecipeComment
		err = tx.Where("id = ? AND recipe_id = ? AND deleted_at IS NULL", commentID, recipeID).
			Take(&comment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if requesterID != comment.UserID && requesterID != recipe.OwnerID {
			return ErrForbidden
		}

		now := s.clock().UTC()
		err = tx.Model(&RecipeComment{}).
			Where("id = ?", commentID).
			UpdateColumn("deleted_at", now).Error
		if err != nil {
			return err
		}
		return tx.Model(&Recipe{}).
			Where("id = ?", recipeID).
			UpdateColumn("comment_count",
				gorm.Expr("CASE WHEN comment_count > 0 THEN comment_count - 1 ELSE 0 END")).Error
	})
	if txErr != nil {
		if errors.Is(txErr, ErrNotFound) || errors.Is(txErr, ErrForbidden) {
			return txErr
		}
		s.logError(opDeleteComment, "persist_failed", txErr,
			zap.String("recipe_id", recipeID), zap.String("comment_id", commentID))
		return newServiceError(opDeleteComment, "persist_failed", txErr)
	}

	s.invalidate(ctx, opDeleteComment, recipe)
	return nil
}

// ListComments returns live comments in ascending creation order.
func (s *Service) ListComments(ctx context.Context, recipeID, viewerID string) ([]RecipeComment, error) {
	var recipe Recipe
	err := s.db.WithContext(ctx).Scopes(notDeleted).Where("id = ?", recipeID).Take(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logError(opListComments, "query_failed", err, zap.String("recipe_id", recipeID))
		return nil, newServiceError(opListComments, "query_failed", err)
	}
	if !CanView(recipe, viewerID) {
		return nil, ErrNotFound
	}

	var comments []RecipeComment
	err = s.db.WithContext(ctx).
		Where("recipe_id = ? AND deleted_at IS NULL", recipeID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		s.logError(opListComments, "query_failed", err, zap.String("recipe_id", recipeID))
		return nil, newServiceError(opListComments, "query_failed", err)
	}
	return comments, nil
}

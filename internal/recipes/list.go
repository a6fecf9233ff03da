package recipes

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ardakilic/BrewForm-sub000/internal/brewing"
	"go.uber.org/zap"
)

// SortKey enumerates the supported list orderings.
type SortKey string

const (
	SortByCreatedAt  SortKey = "created_at"
	SortByUpdatedAt  SortKey = "updated_at"
	SortByViews      SortKey = "view_count"
	SortByFavourites SortKey = "favourite_count"
	SortByForks      SortKey = "fork_count"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ListFilters narrows and orders a recipe listing. Version-level filters
// (method, drink, rating, equipment, tags) apply to each recipe's current
// version.
type ListFilters struct {
	Search       string
	BrewMethod   *brewing.BrewMethod
	DrinkType    *brewing.DrinkType
	EquipmentIDs []string
	OwnerID      string
	MinRating    *int
	Tags         []string
	Sort         SortKey
	Descending   bool
	Page         int
	Limit        int
}

// PageMeta describes the pagination window of a listing response.
type PageMeta struct {
	Page       int
	Limit      int
	Total      int64
	TotalPages int64
}

// RecipePage is one page of a recipe listing.
type RecipePage struct {
	Items []Recipe
	Meta  PageMeta
}

// ListRecipes returns browsable recipes. Only PUBLIC recipes appear unless
// the viewer filters by their own ownership, in which case every visibility
// state of their recipes is included. Unlisted recipes never appear here.
func (s *Service) ListRecipes(ctx context.Context, filters ListFilters, viewerID string) (RecipePage, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}

	query := s.db.WithContext(ctx).Model(&Recipe{}).
		Scopes(notDeleted).
		Joins("JOIN recipe_versions ON recipe_versions.id = recipes.current_version_id")

	ownContent := filters.OwnerID != "" && filters.OwnerID == viewerID
	if ownContent {
		query = query.Where("recipes.owner_id = ?", viewerID)
	} else {
		query = query.Where("recipes.visibility = ?", VisibilityPublic)
		if filters.OwnerID != "" {
			query = query.Where("recipes.owner_id = ?", filters.OwnerID)
		}
	}

	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(recipes.title) LIKE ? OR LOWER(recipes.description) LIKE ? OR LOWER(recipes.coffee_name) LIKE ?",
			pattern, pattern, pattern)
	}
	if filters.BrewMethod != nil {
		query = query.Where("recipe_versions.brew_method = ?", *filters.BrewMethod)
	}
	if filters.DrinkType != nil {
		query = query.Where("recipe_versions.drink_type = ?", *filters.DrinkType)
	}
	if filters.MinRating != nil {
		query = query.Where("recipe_versions.rating >= ?", *filters.MinRating)
	}
	if len(filters.EquipmentIDs) > 0 {
		ids := filters.EquipmentIDs
		query = query.Where(
			"recipe_versions.grinder_id IN ? OR recipe_versions.brewer_id IN ? OR recipe_versions.portafilter_id IN ?"+
				" OR recipe_versions.basket_id IN ? OR recipe_versions.puck_screen_id IN ?"+
				" OR recipe_versions.paper_filter_id IN ? OR recipe_versions.tamper_id IN ?",
			ids, ids, ids, ids, ids, ids, ids)
	}
	if len(filters.Tags) > 0 {
		// Tags are stored as a JSON array; match-any via per-tag LIKE.
		var conditions []string
		var args []interface{}
		for _, tag := range filters.Tags {
			conditions = append(conditions, "recipe_versions.tags_json LIKE ?")
			args = append(args, fmt.Sprintf("%%%q%%", tag))
		}
		query = query.Where(strings.Join(conditions, " OR "), args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		s.logError(opListRecipes, "count_failed", err)
		return RecipePage{}, newServiceError(opListRecipes, "count_failed", err)
	}

	var items []Recipe
	err := query.
		Order(orderClause(filters.Sort, filters.Descending)).
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&items).Error
	if err != nil {
		s.logError(opListRecipes, "query_failed", err, zap.String("viewer_id", viewerID))
		return RecipePage{}, newServiceError(opListRecipes, "query_failed", err)
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return RecipePage{
		Items: items,
		Meta: PageMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func orderClause(sort SortKey, descending bool) string {
	column := "recipes.created_at"
	switch sort {
	case SortByCreatedAt, "":
		column = "recipes.created_at"
	case SortByUpdatedAt:
		column = "recipes.updated_at"
	case SortByViews:
		column = "recipes.view_count"
	case SortByFavourites:
		column = "recipes.favourite_count"
	case SortByForks:
		column = "recipes.fork_count"
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}
	return column + " " + direction
}

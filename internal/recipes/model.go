package recipes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ardakilic/BrewForm-sub000/internal/brewing"
	"gorm.io/gorm"
)

// Visibility is the access-control state of a recipe.
type Visibility string

const (
	// VisibilityPublic recipes appear in browse listings for everyone.
	VisibilityPublic Visibility = "PUBLIC"
	// VisibilityUnlisted recipes resolve by id or slug but never in listings.
	VisibilityUnlisted Visibility = "UNLISTED"
	// VisibilityPrivate is the most restricted state, also used for drafts.
	VisibilityPrivate Visibility = "PRIVATE"
)

const (
	maxTags        = 10
	maxRating      = 10
	minRating      = 1
	maxTitleLength = 320
)

// ErrInvalidVisibility indicates a value outside the Visibility enumeration.
var ErrInvalidVisibility = errors.New("recipes: invalid visibility")

// ParseVisibility validates raw input against the Visibility enumeration.
func ParseVisibility(rawInput string) (Visibility, error) {
	switch Visibility(strings.ToUpper(strings.TrimSpace(rawInput))) {
	case VisibilityPublic:
		return VisibilityPublic, nil
	case VisibilityUnlisted:
		return VisibilityUnlisted, nil
	case VisibilityPrivate:
		return VisibilityPrivate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVisibility, rawInput)
	}
}

// Recipe is the mutable aggregate header. Versions hang off it append-only;
// CurrentVersionID is the only pointer that moves.
type Recipe struct {
	ID               string     `gorm:"column:id;primaryKey;size:190;not null"`
	OwnerID          string     `gorm:"column:owner_id;size:190;not null;index:idx_recipes_owner"`
	Title            string     `gorm:"column:title;size:320;not null"`
	Description      string     `gorm:"column:description;type:text"`
	CoffeeName       string     `gorm:"column:coffee_name;size:320"`
	Slug             string     `gorm:"column:slug;size:190;not null;uniqueIndex:idx_recipes_slug"`
	Visibility       Visibility `gorm:"column:visibility;size:32;not null"`
	CurrentVersionID string     `gorm:"column:current_version_id;size:190;not null;default:''"`
	ForkedFromID     *string    `gorm:"column:forked_from_id;size:190"`
	IsFeatured       bool       `gorm:"column:is_featured;not null;default:false"`
	ViewCount        int64      `gorm:"column:view_count;not null;default:0"`
	FavouriteCount   int64      `gorm:"column:favourite_count;not null;default:0"`
	CommentCount     int64      `gorm:"column:comment_count;not null;default:0"`
	ForkCount        int64      `gorm:"column:fork_count;not null;default:0"`
	CreatedAt        time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;not null"`
	DeletedAt        *time.Time `gorm:"column:deleted_at;index:idx_recipes_deleted"`
}

// TableName provides the explicit table binding for GORM.
func (Recipe) TableName() string {
	return "recipes"
}

// RecipeVersion is an immutable brew snapshot. Rows are only ever inserted;
// the composite unique index serializes version numbering per recipe.
type RecipeVersion struct {
	ID                 string               `gorm:"column:id;primaryKey;size:190;not null"`
	RecipeID           string               `gorm:"column:recipe_id;size:190;not null;uniqueIndex:idx_versions_recipe_number,priority:1"`
	VersionNumber      int64                `gorm:"column:version_number;not null;uniqueIndex:idx_versions_recipe_number,priority:2"`
	AuthorID           string               `gorm:"column:author_id;size:190;not null"`
	BrewMethod         brewing.BrewMethod   `gorm:"column:brew_method;size:32;not null"`
	DrinkType          brewing.DrinkType    `gorm:"column:drink_type;size:32;not null"`
	GrinderID          *string              `gorm:"column:grinder_id;size:190"`
	BrewerID           *string              `gorm:"column:brewer_id;size:190"`
	PortafilterID      *string              `gorm:"column:portafilter_id;size:190"`
	BasketID           *string              `gorm:"column:basket_id;size:190"`
	PuckScreenID       *string              `gorm:"column:puck_screen_id;size:190"`
	PaperFilterID      *string              `gorm:"column:paper_filter_id;size:190"`
	TamperID           *string              `gorm:"column:tamper_id;size:190"`
	GrindSetting       string               `gorm:"column:grind_setting;size:190"`
	DoseGrams          float64              `gorm:"column:dose_grams;not null"`
	YieldWeightGrams   *float64             `gorm:"column:yield_weight_grams"`
	YieldVolumeMl      *float64             `gorm:"column:yield_volume_ml"`
	TimeSeconds        *int64               `gorm:"column:time_seconds"`
	TemperatureCelsius *float64             `gorm:"column:temperature_celsius"`
	PressureBar        *float64             `gorm:"column:pressure_bar"`
	BrewRatio          *float64             `gorm:"column:brew_ratio"`
	FlowRate           *float64             `gorm:"column:flow_rate"`
	RoastDate          *time.Time           `gorm:"column:roast_date"`
	GrindDate          *time.Time           `gorm:"column:grind_date"`
	TastingNotes       string               `gorm:"column:tasting_notes;type:text"`
	Rating             *int                 `gorm:"column:rating"`
	EmojiRating        *brewing.EmojiRating `gorm:"column:emoji_rating;size:32"`
	IsFavourite        bool                 `gorm:"column:is_favourite;not null;default:false"`
	TagsJSON           string               `gorm:"column:tags_json;type:text;not null;default:''"`
	TasteNoteIDsJSON   string               `gorm:"column:taste_note_ids_json;type:text;not null;default:''"`
	PreparationsJSON   string               `gorm:"column:preparations_json;type:text;not null;default:''"`
	CreatedAt          time.Time            `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (RecipeVersion) TableName() string {
	return "recipe_versions"
}

// Tags decodes the bounded tag list stored on the version.
func (v RecipeVersion) Tags() []string {
	return decodeStringList(v.TagsJSON)
}

// TasteNoteIDs decodes the associated taste-note identifiers.
func (v RecipeVersion) TasteNoteIDs() []string {
	return decodeStringList(v.TasteNoteIDsJSON)
}

// Preparations decodes the free-form preparation entries.
func (v RecipeVersion) Preparations() []string {
	return decodeStringList(v.PreparationsJSON)
}

// RecipeFavourite records a user's favourite membership for a recipe.
type RecipeFavourite struct {
	UserID    string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	RecipeID  string    `gorm:"column:recipe_id;primaryKey;size:190;not null;index:idx_favourites_recipe"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (RecipeFavourite) TableName() string {
	return "recipe_favourites"
}

// RecipeComment is a user comment attached to a recipe.
type RecipeComment struct {
	ID        string     `gorm:"column:id;primaryKey;size:190;not null"`
	RecipeID  string     `gorm:"column:recipe_id;size:190;not null;index:idx_comments_recipe"`
	UserID    string     `gorm:"column:user_id;size:190;not null"`
	Body      string     `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

// TableName provides the explicit table binding for GORM.
func (RecipeComment) TableName() string {
	return "recipe_comments"
}

// VersionInput is the client payload for a recipe version. Optional
// measurements stay pointers so absence survives into validation.
type VersionInput struct {
	BrewMethod         brewing.BrewMethod
	DrinkType          brewing.DrinkType
	GrinderID          *string
	BrewerID           *string
	PortafilterID      *string
	BasketID           *string
	PuckScreenID       *string
	PaperFilterID      *string
	TamperID           *string
	GrindSetting       string
	DoseGrams          *float64
	YieldWeightGrams   *float64
	YieldVolumeMl      *float64
	TimeSeconds        *int64
	TemperatureCelsius *float64
	PressureBar        *float64
	RoastDate          *time.Time
	GrindDate          *time.Time
	TastingNotes       string
	Rating             *int
	EmojiRating        *brewing.EmojiRating
	IsFavourite        bool
	Tags               []string
	TasteNoteIDs       []string
	Preparations       []string
}

// Candidate projects the input into the validation engine's value type.
func (in VersionInput) Candidate() brewing.Candidate {
	return brewing.Candidate{
		BrewMethod:         in.BrewMethod,
		DrinkType:          in.DrinkType,
		DoseGrams:          in.DoseGrams,
		YieldWeightGrams:   in.YieldWeightGrams,
		YieldVolumeMl:      in.YieldVolumeMl,
		TimeSeconds:        in.TimeSeconds,
		TemperatureCelsius: in.TemperatureCelsius,
		RoastDate:          in.RoastDate,
		GrindDate:          in.GrindDate,
		Preparations:       in.Preparations,
	}
}

// CreateRecipeInput carries the header fields and first version for a new recipe.
type CreateRecipeInput struct {
	Title       string
	Description string
	CoffeeName  string
	Visibility  Visibility
	Version     VersionInput
}

// RecipePatch is the owner-only metadata update; nil fields are untouched.
type RecipePatch struct {
	Title       *string
	Description *string
	CoffeeName  *string
	Visibility  *Visibility
	IsFeatured  *bool
}

// notDeleted is the uniform soft-delete filter. Every read path composes it
// via Scopes so no query can forget it.
func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("recipes.deleted_at IS NULL")
}

func encodeStringList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

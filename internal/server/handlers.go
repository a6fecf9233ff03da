package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ardakilic/BrewForm-sub000/internal/brewing"
	"github.com/Ardakilic/BrewForm-sub000/internal/recipes"
)

const dateLayout = "2006-01-02"

type versionPayload struct {
	BrewMethod         string   `json:"brew_method"`
	DrinkType          string   `json:"drink_type"`
	GrinderID          *string  `json:"grinder_id"`
	BrewerID           *string  `json:"brewer_id"`
	PortafilterID      *string  `json:"portafilter_id"`
	BasketID           *string  `json:"basket_id"`
	PuckScreenID       *string  `json:"puck_screen_id"`
	PaperFilterID      *string  `json:"paper_filter_id"`
	TamperID           *string  `json:"tamper_id"`
	GrindSetting       string   `json:"grind_setting"`
	DoseGrams          *float64 `json:"dose_grams"`
	YieldWeightGrams   *float64 `json:"yield_weight_grams"`
	YieldVolumeMl      *float64 `json:"yield_volume_ml"`
	TimeSeconds        *int64   `json:"time_seconds"`
	TemperatureCelsius *float64 `json:"temperature_celsius"`
	PressureBar        *float64 `json:"pressure_bar"`
	RoastDate          *string  `json:"roast_date"`
	GrindDate          *string  `json:"grind_date"`
	TastingNotes       string   `json:"tasting_notes"`
	Rating             *int     `json:"rating"`
	EmojiRating        *string  `json:"emoji_rating"`
	IsFavourite        bool     `json:"is_favourite"`
	Tags               []string `json:"tags"`
	TasteNoteIDs       []string `json:"taste_note_ids"`
	Preparations       []string `json:"preparations"`
}

type createRecipePayload struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	CoffeeName  string         `json:"coffee_name"`
	Visibility  string         `json:"visibility"`
	Version     versionPayload `json:"version"`
}

type updateRecipePayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CoffeeName  *string `json:"coffee_name"`
	Visibility  *string `json:"visibility"`
	IsFeatured  *bool   `json:"is_featured"`
}

type commentPayload struct {
	Body string `json:"body"`
}

type recipeResponse struct {
	ID               string  `json:"id"`
	OwnerID          string  `json:"owner_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	CoffeeName       string  `json:"coffee_name,omitempty"`
	Slug             string  `json:"slug"`
	Visibility       string  `json:"visibility"`
	CurrentVersionID string  `json:"current_version_id"`
	ForkedFromID     *string `json:"forked_from_id,omitempty"`
	IsFeatured       bool    `json:"is_featured"`
	ViewCount        int64   `json:"view_count"`
	FavouriteCount   int64   `json:"favourite_count"`
	CommentCount     int64   `json:"comment_count"`
	ForkCount        int64   `json:"fork_count"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type versionResponse struct {
	ID                 string   `json:"id"`
	RecipeID           string   `json:"recipe_id"`
	VersionNumber      int64    `json:"version_number"`
	AuthorID           string   `json:"author_id"`
	BrewMethod         string   `json:"brew_method"`
	DrinkType          string   `json:"drink_type"`
	GrinderID          *string  `json:"grinder_id,omitempty"`
	BrewerID           *string  `json:"brewer_id,omitempty"`
	PortafilterID      *string  `json:"portafilter_id,omitempty"`
	BasketID           *string  `json:"basket_id,omitempty"`
	PuckScreenID       *string  `json:"puck_screen_id,omitempty"`
	PaperFilterID      *string  `json:"paper_filter_id,omitempty"`
	TamperID           *string  `json:"tamper_id,omitempty"`
	GrindSetting       string   `json:"grind_setting,omitempty"`
	DoseGrams          float64  `json:"dose_grams"`
	YieldWeightGrams   *float64 `json:"yield_weight_grams,omitempty"`
	YieldVolumeMl      *float64 `json:"yield_volume_ml,omitempty"`
	TimeSeconds        *int64   `json:"time_seconds,omitempty"`
	TemperatureCelsius *float64 `json:"temperature_celsius,omitempty"`
	PressureBar        *float64 `json:"pressure_bar,omitempty"`
	BrewRatio          *float64 `json:"brew_ratio,omitempty"`
	FlowRate           *float64 `json:"flow_rate,omitempty"`
	RoastDate          *string  `json:"roast_date,omitempty"`
	GrindDate          *string  `json:"grind_date,omitempty"`
	TastingNotes       string   `json:"tasting_notes,omitempty"`
	Rating             *int     `json:"rating,omitempty"`
	EmojiRating        *string  `json:"emoji_rating,omitempty"`
	IsFavourite        bool     `json:"is_favourite"`
	Tags               []string `json:"tags,omitempty"`
	TasteNoteIDs       []string `json:"taste_note_ids,omitempty"`
	Preparations       []string `json:"preparations,omitempty"`
	CreatedAt          string   `json:"created_at"`
}

type commentResponse struct {
	ID        string `json:"id"`
	RecipeID  string `json:"recipe_id"`
	UserID    string `json:"user_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

type pageResponse struct {
	Items      []recipeResponse `json:"items"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int64            `json:"total"`
	TotalPages int64            `json:"total_pages"`
}

func (h *httpHandler) handleCreateRecipe(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	var request createRecipePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	visibility := recipes.VisibilityPrivate
	if strings.TrimSpace(request.Visibility) != "" {
		parsed, err := recipes.ParseVisibility(request.Visibility)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "errors": []string{err.Error()}})
			return
		}
		visibility = parsed
	}

	versionInput, findings := toVersionInput(request.Version)
	if len(findings) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "errors": findings})
		return
	}

	recipe, warnings, err := h.recipes.CreateRecipe(c.Request.Context(), userID, recipes.CreateRecipeInput{
		Title:       request.Title,
		Description: request.Description,
		CoffeeName:  request.CoffeeName,
		Visibility:  visibility,
		Version:     versionInput,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.publishRecipeChange(userID, recipe.ID, "created")
	c.JSON(http.StatusCreated, gin.H{
		"recipe":   toRecipeResponse(*recipe),
		"warnings": warnings,
	})
}

func (h *httpHandler) handleGetRecipe(c *gin.Context) {
	viewerID := c.GetString(userIDContextKey)
	recipe, err := h.recipes.GetRecipeByID(c.Request.Context(), c.Param("id"), viewerID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.respondRecipeWithVersion(c, recipe, viewerID)
}

func (h *httpHandler) handleGetRecipeBySlug(c *gin.Context) {
	viewerID := c.GetString(userIDContextKey)
	recipe, err := h.recipes.GetRecipeBySlug(c.Request.Context(), c.Param("slug"), viewerID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.respondRecipeWithVersion(c, recipe, viewerID)
}

func (h *httpHandler) respondRecipeWithVersion(c *gin.Context, recipe *recipes.Recipe, viewerID string) {
	response := gin.H{"recipe": toRecipeResponse(*recipe)}
	version, err := h.recipes.GetCurrentVersion(c.Request.Context(), recipe.ID, viewerID)
	if err == nil {
		response["current_version"] = toVersionResponse(*version)
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleListRecipes(c *gin.Context) {
	viewerID := c.GetString(userIDContextKey)

	filters, findings := parseListFilters(c)
	if len(findings) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "errors": findings})
		return
	}

	page, err := h.recipes.ListRecipes(c.Request.Context(), filters, viewerID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	items := make([]recipeResponse, 0, len(page.Items))
	for _, recipe := range page.Items {
		items = append(items, toRecipeResponse(recipe))
	}
	c.JSON(http.StatusOK, pageResponse{
		Items:      items,
		Page:       page.Meta.Page,
		Limit:      page.Meta.Limit,
		Total:      page.Meta.Total,
		TotalPages: page.Meta.TotalPages,
	})
}

func (h *httpHandler) handleUpdateRecipe(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	var request updateRecipePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	patch := recipes.RecipePatch{
		Title:       request.Title,
		Description: request.Description,
		CoffeeName:  request.CoffeeName,
		IsFeatured:  request.IsFeatured,
	}
	if request.Visibility != nil {
		visibility, err := recipes.ParseVisibility(*request.Visibility)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "errors": []string{err.Error()}})
			return
		}
		patch.Visibility = &visibility
	}

	recipe, err := h.recipes.UpdateRecipe(c.Request.Context(), c.Param("id"), userID, patch)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.publishRecipeChange(userID, recipe.ID, "updated")
	c.JSON(http.StatusOK, gin.H{"recipe": toRecipeResponse(*recipe)})
}

func (h *httpHandler) handleDeleteRecipe(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	recipeID := c.Param("id")
	if err := h.recipes.DeleteRecipe(c.Request.Context(), recipeID, userID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.publishRecipeChange(userID, recipeID, "deleted")
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleCreateVersion(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	var request versionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	versionInput, findings := toVersionInput(request)
	if len(findings) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "errors": findings})
		return
	}

	version, warnings, err := h.recipes.CreateVersion(c.Request.Context(), c.Param("id"), userID, versionInput)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.publishRecipeChange(userID, version.RecipeID, "version-added")
	c.JSON(http.StatusCreated, gin.H{
		"version":  toVersionResponse(*version),
		"warnings": warnings,
	})
}

func (h *httpHandler) handleListVersions(c *gin.Context) {
	viewerID := c.GetString(userIDContextKey)
	versions, err := h.recipes.ListVersions(c.Request.Context(), c.Param("id"), viewerID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	items := make([]versionResponse, 0, len(versions))
	for _, version := range versions {
		items = append(items, toVersionResponse(version))
	}
	c.JSON(http.StatusOK, gin.H{"versions": items})
}

func (h *httpHandler) handleForkRecipe(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	fork, err := h.recipes.ForkRecipe(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.publishRecipeChange(userID, fork.ID, "forked")
	c.JSON(http.StatusCreated, gin.H{"recipe": toRecipeResponse(*fork)})
}

func (h *httpHandler) handleFavourite(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	recipeID := c.Param("id")
	if err := h.recipes.FavouriteRecipe(c.Request.Context(), recipeID, userID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.publishRecipeChange(userID, recipeID, "favourited")
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleUnfavourite(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	recipeID := c.Param("id")
	if err := h.recipes.UnfavouriteRecipe(c.Request.Context(), recipeID, userID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.publishRecipeChange(userID, recipeID, "unfavourited")
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	var request commentPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	comment, err := h.recipes.AddComment(c.Request.Context(), c.Param("id"), userID, request.Body)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.publishRecipeChange(userID, comment.RecipeID, "commented")
	c.JSON(http.StatusCreated, gin.H{"comment": toCommentResponse(*comment)})
}

func (h *httpHandler) handleDeleteComment(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	recipeID := c.Param("id")
	if err := h.recipes.DeleteComment(c.Request.Context(), recipeID, c.Param("cid"), userID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	h.publishRecipeChange(userID, recipeID, "comment-deleted")
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	viewerID := c.GetString(userIDContextKey)
	comments, err := h.recipes.ListComments(c.Request.Context(), c.Param("id"), viewerID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	items := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		items = append(items, toCommentResponse(comment))
	}
	c.JSON(http.StatusOK, gin.H{"comments": items})
}

type streamEventPayload struct {
	RecipeID string `json:"recipeId"`
	Change   string `json:"change"`
	Source   string `json:"source"`
	Ts       int64  `json:"ts"`
}

func (h *httpHandler) handleEventStream(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming_unsupported"})
		return
	}

	stream, cleanup := h.events.Subscribe(c.Request.Context(), userID)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, eventHeartbeat, []byte(`{}`))
			flusher.Flush()
		case event, open := <-stream:
			if !open {
				return
			}
			data, err := json.Marshal(streamEventPayload{
				RecipeID: event.RecipeID,
				Change:   event.Change,
				Source:   eventSourceBackend,
				Ts:       event.Timestamp.Unix(),
			})
			if err != nil {
				continue
			}
			writeSSE(c.Writer, event.EventType, data)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, eventType string, data []byte) {
	_, _ = w.Write([]byte("event: " + eventType + "\n"))
	_, _ = w.Write([]byte("data: " + string(data) + "\n\n"))
}

func toVersionInput(payload versionPayload) (recipes.VersionInput, []string) {
	var findings []string

	method, err := brewing.ParseBrewMethod(payload.BrewMethod)
	if err != nil {
		findings = append(findings, err.Error())
	}
	drink, err := brewing.ParseDrinkType(payload.DrinkType)
	if err != nil {
		findings = append(findings, err.Error())
	}

	var emoji *brewing.EmojiRating
	if payload.EmojiRating != nil && strings.TrimSpace(*payload.EmojiRating) != "" {
		parsed, err := brewing.ParseEmojiRating(*payload.EmojiRating)
		if err != nil {
			findings = append(findings, err.Error())
		} else {
			emoji = &parsed
		}
	}

	roastDate, err := parseDate(payload.RoastDate)
	if err != nil {
		findings = append(findings, "roast_date must use YYYY-MM-DD")
	}
	grindDate, err := parseDate(payload.GrindDate)
	if err != nil {
		findings = append(findings, "grind_date must use YYYY-MM-DD")
	}

	if len(findings) > 0 {
		return recipes.VersionInput{}, findings
	}

	return recipes.VersionInput{
		BrewMethod:         method,
		DrinkType:          drink,
		GrinderID:          payload.GrinderID,
		BrewerID:           payload.BrewerID,
		PortafilterID:      payload.PortafilterID,
		BasketID:           payload.BasketID,
		PuckScreenID:       payload.PuckScreenID,
		PaperFilterID:      payload.PaperFilterID,
		TamperID:           payload.TamperID,
		GrindSetting:       payload.GrindSetting,
		DoseGrams:          payload.DoseGrams,
		YieldWeightGrams:   payload.YieldWeightGrams,
		YieldVolumeMl:      payload.YieldVolumeMl,
		TimeSeconds:        payload.TimeSeconds,
		TemperatureCelsius: payload.TemperatureCelsius,
		PressureBar:        payload.PressureBar,
		RoastDate:          roastDate,
		GrindDate:          grindDate,
		TastingNotes:       payload.TastingNotes,
		Rating:             payload.Rating,
		EmojiRating:        emoji,
		IsFavourite:        payload.IsFavourite,
		Tags:               payload.Tags,
		TasteNoteIDs:       payload.TasteNoteIDs,
		Preparations:       payload.Preparations,
	}, nil
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseListFilters(c *gin.Context) (recipes.ListFilters, []string) {
	var findings []string

	filters := recipes.ListFilters{
		Search:  c.Query("search"),
		OwnerID: c.Query("owner_id"),
	}

	if raw := c.Query("method"); raw != "" {
		method, err := brewing.ParseBrewMethod(raw)
		if err != nil {
			findings = append(findings, err.Error())
		} else {
			filters.BrewMethod = &method
		}
	}
	if raw := c.Query("drink"); raw != "" {
		drink, err := brewing.ParseDrinkType(raw)
		if err != nil {
			findings = append(findings, err.Error())
		} else {
			filters.DrinkType = &drink
		}
	}
	if raw := c.Query("min_rating"); raw != "" {
		minRating, err := strconv.Atoi(raw)
		if err != nil {
			findings = append(findings, "min_rating must be an integer")
		} else {
			filters.MinRating = &minRating
		}
	}
	if raw := c.Query("tags"); raw != "" {
		filters.Tags = splitCommaList(raw)
	}
	if raw := c.Query("equipment"); raw != "" {
		filters.EquipmentIDs = splitCommaList(raw)
	}
	if raw := c.Query("sort"); raw != "" {
		filters.Sort = recipes.SortKey(raw)
	}
	filters.Descending = c.DefaultQuery("order", "desc") != "asc"
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			findings = append(findings, "page must be an integer")
		} else {
			filters.Page = page
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			findings = append(findings, "limit must be an integer")
		} else {
			filters.Limit = limit
		}
	}

	return filters, findings
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func toRecipeResponse(recipe recipes.Recipe) recipeResponse {
	return recipeResponse{
		ID:               recipe.ID,
		OwnerID:          recipe.OwnerID,
		Title:            recipe.Title,
		Description:      recipe.Description,
		CoffeeName:       recipe.CoffeeName,
		Slug:             recipe.Slug,
		Visibility:       string(recipe.Visibility),
		CurrentVersionID: recipe.CurrentVersionID,
		ForkedFromID:     recipe.ForkedFromID,
		IsFeatured:       recipe.IsFeatured,
		ViewCount:        recipe.ViewCount,
		FavouriteCount:   recipe.FavouriteCount,
		CommentCount:     recipe.CommentCount,
		ForkCount:        recipe.ForkCount,
		CreatedAt:        recipe.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        recipe.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toVersionResponse(version recipes.RecipeVersion) versionResponse {
	var emoji *string
	if version.EmojiRating != nil {
		value := string(*version.EmojiRating)
		emoji = &value
	}
	return versionResponse{
		ID:                 version.ID,
		RecipeID:           version.RecipeID,
		VersionNumber:      version.VersionNumber,
		AuthorID:           version.AuthorID,
		BrewMethod:         string(version.BrewMethod),
		DrinkType:          string(version.DrinkType),
		GrinderID:          version.GrinderID,
		BrewerID:           version.BrewerID,
		PortafilterID:      version.PortafilterID,
		BasketID:           version.BasketID,
		PuckScreenID:       version.PuckScreenID,
		PaperFilterID:      version.PaperFilterID,
		TamperID:           version.TamperID,
		GrindSetting:       version.GrindSetting,
		DoseGrams:          version.DoseGrams,
		YieldWeightGrams:   version.YieldWeightGrams,
		YieldVolumeMl:      version.YieldVolumeMl,
		TimeSeconds:        version.TimeSeconds,
		TemperatureCelsius: version.TemperatureCelsius,
		PressureBar:        version.PressureBar,
		BrewRatio:          version.BrewRatio,
		FlowRate:           version.FlowRate,
		RoastDate:          formatDate(version.RoastDate),
		GrindDate:          formatDate(version.GrindDate),
		TastingNotes:       version.TastingNotes,
		Rating:             version.Rating,
		EmojiRating:        emoji,
		IsFavourite:        version.IsFavourite,
		Tags:               version.Tags(),
		TasteNoteIDs:       version.TasteNoteIDs(),
		Preparations:       version.Preparations(),
		CreatedAt:          version.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func formatDate(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(dateLayout)
	return &formatted
}

func toCommentResponse(comment recipes.RecipeComment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		RecipeID:  comment.RecipeID,
		UserID:    comment.UserID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt.UTC().Format(time.RFC3339),
	}
}

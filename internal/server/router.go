package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Ardakilic/BrewForm-sub000/internal/recipes"
	"github.com/Ardakilic/BrewForm-sub000/internal/users"
)

const userIDContextKey = "brewform_user_id"

var (
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingRecipesService = errors.New("recipes service dependency required")
	errMissingUsersService   = errors.New("users service dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates the bearer tokens protecting the API.
type TokenManager interface {
	IssueToken(ctx context.Context, subject string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

type Dependencies struct {
	TokenManager   TokenManager
	RecipesService *recipes.Service
	UsersService   *users.Service
	Events         *RecipeEventDispatcher
	Logger         *zap.Logger
	AllowedOrigins []string
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.RecipesService == nil {
		return nil, errMissingRecipesService
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := deps.Events
	if events == nil {
		events = NewRecipeEventDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		tokens:  deps.TokenManager,
		recipes: deps.RecipesService,
		users:   deps.UsersService,
		events:  events,
		logger:  logger,
	}

	router.POST("/auth/token", handler.handleIssueToken)

	reads := router.Group("/")
	reads.Use(handler.resolveOptionalIdentity)
	reads.GET("/recipes", handler.handleListRecipes)
	reads.GET("/recipes/:id", handler.handleGetRecipe)
	reads.GET("/recipes/slug/:slug", handler.handleGetRecipeBySlug)
	reads.GET("/recipes/:id/versions", handler.handleListVersions)
	reads.GET("/recipes/:id/comments", handler.handleListComments)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/recipes", handler.handleCreateRecipe)
	protected.PATCH("/recipes/:id", handler.handleUpdateRecipe)
	protected.DELETE("/recipes/:id", handler.handleDeleteRecipe)
	protected.POST("/recipes/:id/versions", handler.handleCreateVersion)
	protected.POST("/recipes/:id/fork", handler.handleForkRecipe)
	protected.PUT("/recipes/:id/favourite", handler.handleFavourite)
	protected.DELETE("/recipes/:id/favourite", handler.handleUnfavourite)
	protected.POST("/recipes/:id/comments", handler.handleAddComment)
	protected.DELETE("/recipes/:id/comments/:cid", handler.handleDeleteComment)
	protected.GET("/recipes/stream", handler.handleEventStream)

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

type httpHandler struct {
	tokens  TokenManager
	recipes *recipes.Service
	users   *users.Service
	events  *RecipeEventDispatcher
	logger  *zap.Logger
}

type tokenRequestPayload struct {
	Provider    string `json:"provider"`
	Subject     string `json:"subject"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type tokenResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

func (h *httpHandler) handleIssueToken(c *gin.Context) {
	var request tokenRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Subject) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	profile := users.Profile{
		Subject:     request.Subject,
		Email:       request.Email,
		DisplayName: request.DisplayName,
	}
	if provider := strings.TrimSpace(request.Provider); provider != "" {
		profile.UserID = provider + ":" + strings.TrimSpace(request.Subject)
	}
	userID, err := h.users.ResolveCanonicalUserID(profile)
	if err != nil {
		h.logger.Warn("identity resolution failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, tokenResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		UserID:      userID,
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

// resolveOptionalIdentity attaches the caller's identity when credentials
// are supplied; anonymous requests proceed, bad credentials do not.
func (h *httpHandler) resolveOptionalIdentity(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.Next()
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.Query("access_token"))
}

func (h *httpHandler) publishRecipeChange(userID, recipeID, change string) {
	h.events.Publish(RecipeEvent{
		OwnerID:   userID,
		EventType: EventRecipeChanged,
		RecipeID:  recipeID,
		Change:    change,
		Timestamp: time.Now().UTC(),
	})
}

func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	var validationErr *recipes.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation_failed",
			"errors": validationErr.Findings,
		})
	case errors.Is(err, recipes.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, recipes.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, recipes.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/robe-lope/bookbuddy-swapper/internal/services"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// RestUserHandler handles REST requests related to users.
type RestUserHandler struct {
	userService  services.IUserService
	matchService services.IMatchService
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(userService services.IUserService, matchService services.IMatchService) *RestUserHandler {
	return &RestUserHandler{
		userService:  userService,
		matchService: matchService,
	}
}

// PublicUser represents the data returned for a user profile.
type PublicUser struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Location       string `json:"location,omitempty"`
	DateJoined     string `json:"date_joined"`
	ActiveMatches  int    `json:"active_matches"`
	CompletedSwaps int    `json:"completed_swaps"`
}

// GetUserByID handles GET /v1/user/:id
func (h *RestUserHandler) GetUserByID(c *gin.Context) {
	userID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			respondError(c, err, "retrieve user")
		}
		return
	}

	publicUser := PublicUser{
		ID:         user.ID.String(),
		Username:   user.Username,
		Location:   user.Location,
		DateJoined: user.CreatedAt.Format("2006-01-02"),
	}

	// Stats are decoration; a profile is still served without them.
	stats, err := h.matchService.GetUserSwapStats(c.Request.Context(), userID)
	if err != nil {
		log.Printf("WARNING: failed to load swap stats for user %s: %v", userID, err)
	} else {
		publicUser.ActiveMatches = stats.ActiveMatches
		publicUser.CompletedSwaps = stats.CompletedSwaps
	}

	c.JSON(http.StatusOK, publicUser)
}

package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/robe-lope/bookbuddy-swapper/internal/services"
)

// respondError maps a service error onto an HTTP status and JSON body.
func respondError(c *gin.Context, err error, action string) {
	var transitionErr *services.TransitionError
	switch {
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "match": transitionErr.Match})
	case errors.Is(err, services.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a participant of this match"})
	case errors.Is(err, services.ErrMatchClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "Match is closed for messaging"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDependencyUnavailable):
		log.Printf("WARNING: %s: %v", action, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
	default:
		_ = c.Error(err)
		log.Printf("Error during %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

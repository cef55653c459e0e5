package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/robe-lope/bookbuddy-swapper/internal/api/middleware"
	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/services"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// RestMatchHandler handles REST requests on matches and their conversations.
type RestMatchHandler struct {
	matchService  services.IMatchService
	ledgerService services.ILedgerService
}

// NewRestMatchHandler creates a new RestMatchHandler.
func NewRestMatchHandler(matchService services.IMatchService, ledgerService services.ILedgerService) *RestMatchHandler {
	return &RestMatchHandler{
		matchService:  matchService,
		ledgerService: ledgerService,
	}
}

// requestIDs extracts the acting user and the :id match parameter. It writes
// the error response itself and returns ok=false when either is missing.
func requestIDs(c *gin.Context) (userID, matchID utils.SixID, ok bool) {
	userID, ok = middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return userID, matchID, false
	}
	matchID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match ID format"})
		return userID, matchID, false
	}
	return userID, matchID, true
}

// ListMatches handles GET /v1/matches
func (h *RestMatchHandler) ListMatches(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	summaries, err := h.matchService.ListMatches(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "list matches")
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": summaries})
}

// GetMatch handles GET /v1/matches/:id. Only participants may view a match.
func (h *RestMatchHandler) GetMatch(c *gin.Context) {
	userID, matchID, ok := requestIDs(c)
	if !ok {
		return
	}

	match, err := h.matchService.GetMatch(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err, "retrieve match")
		return
	}
	if !match.IsParticipant(userID) {
		respondError(c, services.ErrNotParticipant, "retrieve match")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"match":        match,
		"role":         match.RoleOf(userID).String(),
		"unread_count": models.UnreadCount(match.Messages, userID),
	})
}

// AcceptMatch handles POST /v1/matches/:id/accept
func (h *RestMatchHandler) AcceptMatch(c *gin.Context) {
	h.transition(c, h.matchService.AcceptMatch, "accept match")
}

// DeclineMatch handles POST /v1/matches/:id/decline
func (h *RestMatchHandler) DeclineMatch(c *gin.Context) {
	h.transition(c, h.matchService.DeclineMatch, "decline match")
}

// CompleteMatch handles POST /v1/matches/:id/complete
func (h *RestMatchHandler) CompleteMatch(c *gin.Context) {
	h.transition(c, h.matchService.CompleteMatch, "complete match")
}

func (h *RestMatchHandler) transition(c *gin.Context, move func(context.Context, utils.SixID, utils.SixID) (*models.Match, error), action string) {
	userID, matchID, ok := requestIDs(c)
	if !ok {
		return
	}

	match, err := move(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err, action)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": match})
}

// ListMessages handles GET /v1/matches/:id/messages
func (h *RestMatchHandler) ListMessages(c *gin.Context) {
	userID, matchID, ok := requestIDs(c)
	if !ok {
		return
	}

	messages, err := h.ledgerService.ListMessages(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err, "list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":     messages,
		"unread_count": models.UnreadCount(messages, userID),
	})
}

// SendMessage handles POST /v1/matches/:id/messages
func (h *RestMatchHandler) SendMessage(c *gin.Context) {
	userID, matchID, ok := requestIDs(c)
	if !ok {
		return
	}

	var input models.MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	message, err := h.ledgerService.SendMessage(c.Request.Context(), matchID, userID, input.Content)
	if err != nil {
		respondError(c, err, "send message")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": message})
}

// MarkMessagesRead handles POST /v1/matches/:id/read
func (h *RestMatchHandler) MarkMessagesRead(c *gin.Context) {
	userID, matchID, ok := requestIDs(c)
	if !ok {
		return
	}

	if err := h.ledgerService.MarkMessagesRead(c.Request.Context(), matchID, userID); err != nil {
		respondError(c, err, "mark messages read")
		return
	}
	c.Status(http.StatusNoContent)
}

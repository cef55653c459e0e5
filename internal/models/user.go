package models

import (
	"time"

	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// User is the read-only profile the match core consumes from the user directory.
type User struct {
	Base      `bson:",inline"`
	Username  string    `bson:"username" json:"username"`
	Email     string    `bson:"email" json:"-"`
	Location  string    `bson:"location,omitempty" json:"location,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserSwapStats summarises a user's match history.
type UserSwapStats struct {
	UserID         utils.SixID `json:"user_id"`
	ActiveMatches  int         `json:"active_matches"`
	CompletedSwaps int         `json:"completed_swaps"`
}

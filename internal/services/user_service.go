package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// IUserService is the read-only user directory.
type IUserService interface {
	FindByID(ctx context.Context, userID utils.SixID) (*models.User, error)
}

const usersCollection = "profiles"

type userService struct {
	db *mongo.Database
}

// NewUserService creates a directory reader over the `profiles` collection.
func NewUserService(db *mongo.Database) IUserService {
	return &userService{db: db}
}

// FindByID returns ErrNotFound when the profile does not exist and wraps
// ErrDependencyUnavailable for database failures.
func (s *userService) FindByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: error finding user by ID %s: %v", ErrDependencyUnavailable, userID, err)
	}
	return &user, nil
}

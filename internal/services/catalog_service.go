package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/robe-lope/bookbuddy-swapper/internal/matching"
	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// ICatalogService is the read-only view of the shared book catalog.
type ICatalogService interface {
	ListOffered(ctx context.Context, userID utils.SixID) ([]models.OfferedBook, error)
	ListWanted(ctx context.Context, userID utils.SixID) ([]models.WantedBook, error)
	ListAllOffered(ctx context.Context) ([]models.OfferedBook, error)
	ListAllWanted(ctx context.Context) ([]models.WantedBook, error)
	FindBookByID(ctx context.Context, bookID utils.SixID) (models.CatalogEntry, error)
}

const booksCollection = "books"

type catalogService struct {
	db *mongo.Database
}

// NewCatalogService creates a catalog reader over the `books` collection.
func NewCatalogService(db *mongo.Database) ICatalogService {
	return &catalogService{db: db}
}

func offeredFilter() bson.M {
	return bson.M{"is_available": true, "is_wanted": bson.M{"$ne": true}}
}

func wantedFilter() bson.M {
	return bson.M{"is_wanted": true}
}

func (s *catalogService) ListOffered(ctx context.Context, userID utils.SixID) ([]models.OfferedBook, error) {
	filter := offeredFilter()
	filter["owner_id"] = userID
	entries, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	offered, _ := matching.SplitEntries(entries)
	return offered, nil
}

func (s *catalogService) ListWanted(ctx context.Context, userID utils.SixID) ([]models.WantedBook, error) {
	filter := wantedFilter()
	filter["owner_id"] = userID
	entries, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	_, wanted := matching.SplitEntries(entries)
	return wanted, nil
}

func (s *catalogService) ListAllOffered(ctx context.Context) ([]models.OfferedBook, error) {
	entries, err := s.load(ctx, offeredFilter())
	if err != nil {
		return nil, err
	}
	offered, _ := matching.SplitEntries(entries)
	return offered, nil
}

func (s *catalogService) ListAllWanted(ctx context.Context) ([]models.WantedBook, error) {
	entries, err := s.load(ctx, wantedFilter())
	if err != nil {
		return nil, err
	}
	_, wanted := matching.SplitEntries(entries)
	return wanted, nil
}

// FindBookByID returns ErrNotFound for missing rows. Rows that fail
// validation are reported as errors, not skipped.
func (s *catalogService) FindBookByID(ctx context.Context, bookID utils.SixID) (models.CatalogEntry, error) {
	var book models.Book
	err := s.db.Collection(booksCollection).FindOne(ctx, bson.M{"_id": bookID}).Decode(&book)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: error finding book %s: %v", ErrDependencyUnavailable, bookID, err)
	}
	return book.Entry()
}

// load reads rows matching filter and converts them into catalog entries,
// skipping rows that fail validation.
func (s *catalogService) load(ctx context.Context, filter bson.M) ([]models.CatalogEntry, error) {
	cursor, err := s.db.Collection(booksCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query books: %v", ErrDependencyUnavailable, err)
	}
	defer cursor.Close(ctx)

	var entries []models.CatalogEntry
	for cursor.Next(ctx) {
		var book models.Book
		if err := cursor.Decode(&book); err != nil {
			log.Printf("WARNING: Skipping undecodable book row: %v", err)
			continue
		}
		entry, err := book.Entry()
		if err != nil {
			log.Printf("WARNING: Skipping invalid book row: %v", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor error reading books: %v", ErrDependencyUnavailable, err)
	}
	return entries, nil
}

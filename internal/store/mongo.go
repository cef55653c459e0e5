package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robe-lope/bookbuddy-swapper/internal/db"
	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

const (
	MatchesCollection  = "matches"
	MessagesCollection = "messages"
)

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a MongoStore. Call EnsureIndexes once at startup.
func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{db: database}
}

// EnsureIndexes creates the indexes the store relies on for idempotent
// match creation and ordered message retrieval.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(MatchesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "pair_key", Value: 1}}, Options: options.Index().SetUnique(true).SetName("pair_key_unique")},
		{Keys: bson.D{{Key: "user_a", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_b", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create match indexes: %w", err)
	}
	_, err = s.db.Collection(MessagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "match_id", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("match_seq_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertMatch(ctx context.Context, m *models.Match) (*models.Match, bool, error) {
	collection := s.db.Collection(MatchesCollection)

	var existing *models.Match
	attempt := 0
	operation := func() error {
		if attempt > 0 {
			m.GenID()
		}
		attempt++
		_, err := collection.InsertOne(ctx, m)
		if err == nil || !db.IsMongoDuplicateKeyError(err) {
			return err
		}
		// Either the pair already exists or the generated _id collided.
		var found models.Match
		findErr := collection.FindOne(ctx, bson.M{"pair_key": m.PairKey}).Decode(&found)
		if findErr == nil {
			existing = &found
			return nil
		}
		if !errors.Is(findErr, mongo.ErrNoDocuments) {
			return findErr
		}
		return err
	}

	if err := db.Try(operation); err != nil {
		return nil, false, fmt.Errorf("failed to insert match %s: %w", m.PairKey, err)
	}
	if existing != nil {
		return existing, false, nil
	}
	return m, true, nil
}

func (s *MongoStore) FindMatchByID(ctx context.Context, id utils.SixID) (*models.Match, error) {
	var m models.Match
	err := s.db.Collection(MatchesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding match %s: %w", id, err)
	}
	return &m, nil
}

func (s *MongoStore) ListMatchesByUser(ctx context.Context, userID utils.SixID) ([]models.Match, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"user_a": userID},
		bson.M{"user_b": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})

	cursor, err := s.db.Collection(MatchesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	matches := []models.Match{}
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, fmt.Errorf("failed to decode matches for user %s: %w", userID, err)
	}
	return matches, nil
}

// ListAllMatches returns every stored match, newest first.
func (s *MongoStore) ListAllMatches(ctx context.Context) ([]models.Match, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(MatchesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer cursor.Close(ctx)

	matches := []models.Match{}
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, fmt.Errorf("failed to decode matches: %w", err)
	}
	return matches, nil
}

func (s *MongoStore) CompareAndSetStatus(ctx context.Context, id utils.SixID, from, to models.MatchStatus, at time.Time) (*models.Match, error) {
	collection := s.db.Collection(MatchesCollection)
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Match
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("db error updating match %s status: %w", id, err)
	}

	// Check why the filter did not match
	if _, findErr := s.FindMatchByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, ErrStatusConflict
}

func (s *MongoStore) ReserveMessageSeq(ctx context.Context, id utils.SixID) (*models.Match, error) {
	collection := s.db.Collection(MatchesCollection)
	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.MatchDeclined}}
	update := bson.M{"$inc": bson.M{"message_seq": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Match
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("db error reserving message slot on match %s: %w", id, err)
	}

	if _, findErr := s.FindMatchByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, ErrMatchClosed
}

func (s *MongoStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	collection := s.db.Collection(MessagesCollection)
	msg.GenIDIfEmpty()
	attempt := 0
	operation := func() error {
		if attempt > 0 {
			msg.GenID()
		}
		attempt++
		_, err := collection.InsertOne(ctx, msg)
		return err
	}
	if err := db.Try(operation); err != nil {
		return fmt.Errorf("failed to insert message %d on match %s: %w", msg.Seq, msg.MatchID, err)
	}
	return nil
}

func (s *MongoStore) ListMessages(ctx context.Context, matchID utils.SixID) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := s.db.Collection(MessagesCollection).Find(ctx, bson.M{"match_id": matchID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for match %s: %w", matchID, err)
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages for match %s: %w", matchID, err)
	}
	return messages, nil
}

func (s *MongoStore) MarkMessagesRead(ctx context.Context, matchID, readerID utils.SixID) (int64, error) {
	filter := bson.M{
		"match_id":  matchID,
		"sender_id": bson.M{"$ne": readerID},
		"read":      false,
	}
	result, err := s.db.Collection(MessagesCollection).UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read on match %s: %w", matchID, err)
	}
	return result.ModifiedCount, nil
}

// internal/app/store/profile/profilestore.go
package profilestore

import (
	"context"
	"time"

	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/vitalmetrics/fitreport/internal/report"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the profiles collection. One document per
// user, keyed by user_id.
type Store struct {
	c *mongo.Collection
}

// New creates a new profile store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// EnsureIndexes creates necessary indexes for the collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_profile_user"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Get returns the user's profile. If no document exists yet, a default
// profile is returned so callers never deal with a missing-profile
// case.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error) {
	var p models.Profile
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return &models.Profile{
			UserID:          userID,
			LivelloAttivita: "Sedentario",
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Merge merge-writes the given profile fields, leaving all other
// fields untouched. Only recognized profile keys are written; the
// document is created on first write.
func (s *Store) Merge(ctx context.Context, userID primitive.ObjectID, fields map[string]string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for _, f := range report.ProfileFields() {
		if v, ok := fields[f.Key]; ok {
			set[f.Key] = v
		}
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"user_id":    userID,
			"created_at": time.Now().UTC(),
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx, bson.M{"user_id": userID}, update, opts)
	return err
}
